// Package transcript holds the timed-text data model shared by acquisition,
// speech-to-text, cleaning and job results.
package transcript

import "strings"

// Source identifies where a transcript came from.
type Source string

const (
	SourceManual  Source = "youtube_manual"
	SourceAuto    Source = "youtube_auto"
	SourceWhisper Source = "whisper"
)

// Segment is one timed span of speech. End is never before Start.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the output of speech-to-text.
type Result struct {
	FullText        string    `json:"text"`
	Segments        []Segment `json:"segments"`
	LanguageCode    string    `json:"language"`
	DurationSeconds float64   `json:"duration"`
}

// Acquisition is a raw transcript tagged with its provenance.
type Acquisition struct {
	VideoID      string    `json:"video_id"`
	Source       Source    `json:"source"`
	LanguageCode string    `json:"language"`
	Text         string    `json:"text"`
	Segments     []Segment `json:"segments"`
}

// JoinText concatenates segment texts with single spaces, skipping empty ones.
func JoinText(segments []Segment) string {
	var sb strings.Builder
	for _, s := range segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
	}
	return sb.String()
}

// FromTiming builds a segment from a start offset and a duration.
func FromTiming(text string, start, duration float64) Segment {
	if duration < 0 {
		duration = 0
	}
	return Segment{Start: start, End: start + duration, Text: text}
}
