// Package stt defines the speech-to-text capability used for uploaded audio
// and for videos that publish no captions.
package stt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/transcript"
)

// ErrAudioNotFound is returned when the input file does not exist.
var ErrAudioNotFound = errors.New("audio file not found")

// Transcriber turns an audio file into timed text. An empty language asks the
// backend to detect it.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (*transcript.Result, error)
}

// CheckAudio verifies that path names a readable regular file.
func CheckAudio(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty path", ErrAudioNotFound)
	}
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrAudioNotFound, path)
		}
		return fmt.Errorf("stat audio: %w", err)
	}
	if st.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrAudioNotFound, path)
	}
	return nil
}

// NormalizeLanguage maps "auto" and empty input to "" (detect).
func NormalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}

// Finish trims segment texts, drops empty ones, and fills FullText and
// DurationSeconds when the backend left them unset.
func Finish(res *transcript.Result) *transcript.Result {
	segs := res.Segments[:0]
	for _, s := range res.Segments {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		if s.End < s.Start {
			s.End = s.Start
		}
		segs = append(segs, s)
	}
	res.Segments = segs
	if strings.TrimSpace(res.FullText) == "" {
		res.FullText = transcript.JoinText(segs)
	} else {
		res.FullText = strings.TrimSpace(res.FullText)
	}
	if res.DurationSeconds <= 0 && len(segs) > 0 {
		res.DurationSeconds = segs[len(segs)-1].End
	}
	return res
}
