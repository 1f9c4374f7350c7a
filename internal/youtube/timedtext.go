package youtube

import (
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/transcript"
)

// timedText covers both layouts YouTube serves: the classic
// <transcript><text start dur> form in seconds and the srv3
// <timedtext><body><p t d> form in milliseconds.
type timedText struct {
	Texts []classicLine `xml:"text"`
	Body  struct {
		Paragraphs []srv3Paragraph `xml:"p"`
	} `xml:"body"`
}

type classicLine struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

type srv3Paragraph struct {
	T     int64  `xml:"t,attr"`
	D     int64  `xml:"d,attr"`
	Inner string `xml:",innerxml"`
}

var (
	tagRE   = regexp.MustCompile(`<[^>]*>`)
	spaceRE = regexp.MustCompile(`\s+`)
)

// ParseTimedText decodes a timedtext XML document into ordered segments.
// Lines that are empty after markup removal are dropped.
func ParseTimedText(data []byte) ([]transcript.Segment, error) {
	var tt timedText
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	var out []transcript.Segment
	for _, line := range tt.Texts {
		text := cleanLine(html.UnescapeString(line.Text))
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(line.Start, 64)
		dur, _ := strconv.ParseFloat(line.Dur, 64)
		out = append(out, transcript.FromTiming(text, start, dur))
	}
	for _, p := range tt.Body.Paragraphs {
		text := cleanLine(p.Inner)
		if text == "" {
			continue
		}
		out = append(out, transcript.FromTiming(text, float64(p.T)/1000, float64(p.D)/1000))
	}
	return out, nil
}

func cleanLine(s string) string {
	s = tagRE.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}
