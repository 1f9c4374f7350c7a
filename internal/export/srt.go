package export

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/transcript"
)

// ErrNoSegments is returned when a transcript has no timing to render.
var ErrNoSegments = errors.New("transcript has no timed segments")

// SRT writes the raw timed segments as SubRip subtitles.
type SRT struct {
	w fileWriter
}

var _ Exporter = (*SRT)(nil)

func NewSRT(dir, filenameTemplate string) (*SRT, error) {
	w, err := newFileWriter(dir, filenameTemplate)
	if err != nil {
		return nil, err
	}
	return &SRT{w: w}, nil
}

func (s *SRT) Name() string { return FormatSRT }

func (s *SRT) Export(_ context.Context, req Request) (Output, error) {
	body := RenderSRT(req.Segments)
	if body == "" {
		return Output{}, ErrNoSegments
	}
	path, err := s.w.write(req, ".srt", []byte(body))
	if err != nil {
		return Output{}, err
	}
	return Output{Exporter: FormatSRT, Path: path}, nil
}

// RenderSRT numbers the non-empty segments from 1.
func RenderSRT(segments []transcript.Segment) string {
	var sb strings.Builder
	n := 0
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		n++
		end := seg.End
		if end < seg.Start {
			end = seg.Start
		}
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n", n, srtTimestamp(seg.Start), srtTimestamp(end), text)
	}
	return sb.String()
}

// srtTimestamp formats seconds as HH:MM:SS,mmm.
func srtTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int64(math.Round(sec * 1000))
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
