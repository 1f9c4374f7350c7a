package mock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/config"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/stt"
)

func TestTranscribe(t *testing.T) {
	p := filepath.Join(t.TempDir(), "lecture.wav")
	require.NoError(t, os.WriteFile(p, []byte("RIFF"), 0o644))

	res, err := New(config.MockSettings{}).Transcribe(context.Background(), p, "auto")
	require.NoError(t, err)
	assert.Equal(t, "um so this is is a mock transcript of lecture.", res.FullText)
	assert.Equal(t, "en", res.LanguageCode)
	assert.Equal(t, 4.0, res.DurationSeconds)
	assert.Len(t, res.Segments, 2)
}

func TestTranscribe_MissingFile(t *testing.T) {
	_, err := New(config.MockSettings{}).Transcribe(context.Background(), "/nope/a.wav", "")
	assert.ErrorIs(t, err, stt.ErrAudioNotFound)
}

func TestTranscribe_HonorsContext(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.mp3")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := New(config.MockSettings{Delay: time.Second}).Transcribe(ctx, p, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
