package mock

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/config"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/stt"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/transcript"
)

var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber returns a fixed, deliberately messy transcript naming the input
// file, so the cleaning layers have something to do in local runs.
type Transcriber struct {
	delay time.Duration
	text  string
}

func New(cfg config.MockSettings) *Transcriber {
	text := cfg.Prefix
	if strings.TrimSpace(text) == "" {
		text = "um so this is is a mock transcript of"
	}
	return &Transcriber{delay: cfg.Delay, text: text}
}

func (t *Transcriber) Transcribe(ctx context.Context, audioPath, language string) (*transcript.Result, error) {
	if err := stt.CheckAudio(audioPath); err != nil {
		return nil, err
	}
	if t.delay > 0 {
		timer := time.NewTimer(t.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}
	lang := stt.NormalizeLanguage(language)
	if lang == "" {
		lang = "en"
	}
	name := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return stt.Finish(&transcript.Result{
		LanguageCode: lang,
		Segments: []transcript.Segment{
			{Start: 0, End: 2.5, Text: t.text},
			{Start: 2.5, End: 4, Text: name + "."},
		},
	}), nil
}
