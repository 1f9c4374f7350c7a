package acquire

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/cleaner"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/download"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/resolver"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/transcript"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/youtube"
)

type upperLLM struct{ calls int }

func (u *upperLLM) CorrectTranscript(_ context.Context, chunk string) (string, error) {
	u.calls++
	return strings.ToUpper(chunk), nil
}

func TestTranscribeURL_ManualSkipsLLM(t *testing.T) {
	caps := &fakeCaptions{
		tracks:   []youtube.Track{{BaseURL: "man-en", LanguageCode: "en"}},
		segments: map[string][]transcript.Segment{"man-en": seg("um vidsage runs runs fastapi")},
	}
	chain, _, _ := newChain(t, caps, nil)
	model := &upperLLM{}
	svc := NewService(discard(), chain, cleaner.New(discard(), model, cleaner.Settings{}))

	out, err := svc.TranscribeURL(context.Background(), "https://youtu.be/abc123XYZ_-", download.Options{})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "abc123XYZ_-", out.VideoID)
	assert.Equal(t, transcript.SourceManual, out.Source)
	assert.Equal(t, "VidSage runs FastAPI", out.CleanedText)
	assert.Equal(t, []string{"basic", "dictionary"}, out.CleaningSteps)
	assert.Zero(t, model.calls)
}

func TestTranscribeURL_SynthesizedUsesAllLayers(t *testing.T) {
	chain, _, _ := newChain(t, &fakeCaptions{listErr: youtube.ErrNoCaptions}, nil)
	svc := NewService(discard(), chain, cleaner.New(discard(), &upperLLM{}, cleaner.Settings{}))

	out, err := svc.TranscribeURL(context.Background(), "https://www.youtube.com/watch?v=abc123XYZ_-", download.Options{})
	require.NoError(t, err)
	assert.Equal(t, transcript.SourceWhisper, out.Source)
	assert.Equal(t, []string{"basic", "dictionary", "llm"}, out.CleaningSteps)
	assert.Equal(t, "SYNTHESIZED WORDS", out.CleanedText)
	assert.Equal(t, "um synthesized words", out.RawText)
}

func TestTranscribeURL_InputErrors(t *testing.T) {
	chain, audio, _ := newChain(t, &fakeCaptions{}, nil)
	svc := NewService(discard(), chain, cleaner.New(discard(), nil, cleaner.Settings{}))

	_, err := svc.TranscribeURL(context.Background(), "https://vimeo.com/123", download.Options{})
	assert.True(t, errors.Is(err, resolver.ErrUnresolvable))

	_, err = svc.TranscribeURL(context.Background(), "https://youtu.be/abc123XYZ_-", download.Options{Format: "ogg"})
	assert.True(t, errors.Is(err, download.ErrUnsupportedFormat))
	assert.Zero(t, audio.calls)
}

func TestCleaningFor(t *testing.T) {
	assert.Equal(t, cleaner.Options{Basic: true, Dictionary: true}, CleaningFor(transcript.SourceManual))
	assert.Equal(t, cleaner.AllLayers(), CleaningFor(transcript.SourceAuto))
	assert.Equal(t, cleaner.AllLayers(), CleaningFor(transcript.SourceWhisper))
}
