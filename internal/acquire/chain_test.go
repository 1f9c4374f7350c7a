package acquire

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/cache"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/config"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/download"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/transcript"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/youtube"
)

type fakeCaptions struct {
	tracks   []youtube.Track
	listErr  error
	fetchErr error
	// per-track failures keyed by BaseURL
	failing  map[string]error
	segments map[string][]transcript.Segment
	fetched  []youtube.Track
}

func (f *fakeCaptions) ListTranscripts(context.Context, string) ([]youtube.Track, error) {
	return f.tracks, f.listErr
}

func (f *fakeCaptions) FetchTranscript(_ context.Context, t youtube.Track) ([]transcript.Segment, error) {
	f.fetched = append(f.fetched, t)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if err := f.failing[t.BaseURL]; err != nil {
		return nil, err
	}
	return f.segments[t.BaseURL], nil
}

type fakeAudio struct {
	dir   string
	calls int32
	err   error
}

func (f *fakeAudio) Normalize(opts download.Options) (download.Options, error) {
	if opts.Format == "" {
		opts.Format = "mp3"
	}
	if opts.Format == "ogg" {
		return opts, download.ErrUnsupportedFormat
	}
	return opts, nil
}

func (f *fakeAudio) Download(_ context.Context, url string, opts download.Options) (*download.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	p := filepath.Join(f.dir, "vid."+opts.Format)
	if err := os.WriteFile(p, []byte("audio"), 0o644); err != nil {
		return nil, err
	}
	return &download.Result{VideoID: "vid", FilePath: p}, nil
}

type fakeSTT struct {
	calls int32
	err   error
	path  string
}

func (f *fakeSTT) Transcribe(_ context.Context, path, _ string) (*transcript.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	f.path = path
	if f.err != nil {
		return nil, f.err
	}
	return &transcript.Result{
		FullText:     "um synthesized words",
		LanguageCode: "en",
		Segments:     []transcript.Segment{{Start: 0, End: 2, Text: "um synthesized words"}},
	}, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func seg(text string) []transcript.Segment {
	return []transcript.Segment{{Start: 0, End: 1, Text: text}}
}

func newChain(t *testing.T, caps *fakeCaptions, c *cache.Cache) (*Chain, *fakeAudio, *fakeSTT) {
	t.Helper()
	audio := &fakeAudio{dir: t.TempDir()}
	tr := &fakeSTT{}
	return NewChain(discard(), caps, audio, tr, c, Settings{}), audio, tr
}

func TestAcquire_PrefersManualInPriorityLanguage(t *testing.T) {
	caps := &fakeCaptions{
		tracks: []youtube.Track{
			{BaseURL: "auto-en", LanguageCode: "en", Generated: true},
			{BaseURL: "man-de", LanguageCode: "de"},
			{BaseURL: "man-hi", LanguageCode: "hi"},
		},
		segments: map[string][]transcript.Segment{"man-hi": seg("namaste duniya")},
	}
	chain, audio, tr := newChain(t, caps, nil)

	acq, err := chain.Acquire(context.Background(), "vid", download.Options{})
	require.NoError(t, err)
	assert.Equal(t, transcript.SourceManual, acq.Source)
	assert.Equal(t, "hi", acq.LanguageCode)
	assert.Equal(t, "namaste duniya", acq.Text)
	assert.Zero(t, audio.calls)
	assert.Zero(t, tr.calls)
}

func TestAcquire_AutoOnlySkipsDownload(t *testing.T) {
	caps := &fakeCaptions{
		tracks:   []youtube.Track{{BaseURL: "auto-en-US", LanguageCode: "en-US", Generated: true}},
		segments: map[string][]transcript.Segment{"auto-en-US": seg("auto words")},
	}
	chain, audio, _ := newChain(t, caps, nil)

	acq, err := chain.Acquire(context.Background(), "vid", download.Options{})
	require.NoError(t, err)
	assert.Equal(t, transcript.SourceAuto, acq.Source)
	assert.Equal(t, "en-US", acq.LanguageCode)
	assert.Zero(t, audio.calls)
}

func TestAcquire_NoTracksSynthesizes(t *testing.T) {
	caps := &fakeCaptions{listErr: youtube.ErrNoCaptions}
	chain, audio, tr := newChain(t, caps, nil)

	acq, err := chain.Acquire(context.Background(), "vid", download.Options{Format: "wav"})
	require.NoError(t, err)
	assert.Equal(t, transcript.SourceWhisper, acq.Source)
	assert.Equal(t, "um synthesized words", acq.Text)
	assert.EqualValues(t, 1, audio.calls)
	assert.EqualValues(t, 1, tr.calls)
	assert.Equal(t, ".wav", filepath.Ext(tr.path))
	_, statErr := os.Stat(tr.path)
	assert.True(t, os.IsNotExist(statErr), "downloaded audio should be removed")
}

func TestAcquire_FetchFailureFallsThrough(t *testing.T) {
	caps := &fakeCaptions{
		tracks:   []youtube.Track{{BaseURL: "man-en", LanguageCode: "en"}},
		fetchErr: errors.New("status 403"),
	}
	chain, _, tr := newChain(t, caps, nil)

	acq, err := chain.Acquire(context.Background(), "vid", download.Options{})
	require.NoError(t, err)
	assert.Equal(t, transcript.SourceWhisper, acq.Source)
	assert.EqualValues(t, 1, tr.calls)
}

func TestAcquire_ManualFailureFallsBackToAuto(t *testing.T) {
	cases := []struct {
		name string
		caps *fakeCaptions
	}{
		{"manual fetch fails", &fakeCaptions{
			tracks:   []youtube.Track{{BaseURL: "man-en", LanguageCode: "en"}, {BaseURL: "auto-en", LanguageCode: "en", Generated: true}},
			failing:  map[string]error{"man-en": errors.New("status 403")},
			segments: map[string][]transcript.Segment{"auto-en": seg("auto words")},
		}},
		{"manual track empty", &fakeCaptions{
			tracks:   []youtube.Track{{BaseURL: "man-en", LanguageCode: "en"}, {BaseURL: "auto-en", LanguageCode: "en", Generated: true}},
			segments: map[string][]transcript.Segment{"man-en": seg("  "), "auto-en": seg("auto words")},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chain, audio, tr := newChain(t, tc.caps, nil)

			acq, err := chain.Acquire(context.Background(), "vid", download.Options{})
			require.NoError(t, err)
			assert.Equal(t, transcript.SourceAuto, acq.Source)
			assert.Equal(t, "auto words", acq.Text)
			assert.Len(t, tc.caps.fetched, 2)
			assert.Zero(t, audio.calls)
			assert.Zero(t, tr.calls)
		})
	}
}

func TestAcquire_ManualAndAutoFailSynthesizes(t *testing.T) {
	caps := &fakeCaptions{
		tracks: []youtube.Track{{BaseURL: "man-en", LanguageCode: "en"}, {BaseURL: "auto-en", LanguageCode: "en", Generated: true}},
		failing: map[string]error{
			"man-en":  errors.New("status 403"),
			"auto-en": errors.New("status 429"),
		},
	}
	chain, audio, _ := newChain(t, caps, nil)

	acq, err := chain.Acquire(context.Background(), "vid", download.Options{})
	require.NoError(t, err)
	assert.Equal(t, transcript.SourceWhisper, acq.Source)
	assert.Len(t, caps.fetched, 2)
	assert.EqualValues(t, 1, audio.calls)
}

func TestAcquire_UnsupportedAutoLanguageSynthesizes(t *testing.T) {
	caps := &fakeCaptions{tracks: []youtube.Track{{BaseURL: "auto-it", LanguageCode: "it", Generated: true}}}
	chain, audio, _ := newChain(t, caps, nil)

	acq, err := chain.Acquire(context.Background(), "vid", download.Options{})
	require.NoError(t, err)
	assert.Equal(t, transcript.SourceWhisper, acq.Source)
	assert.EqualValues(t, 1, audio.calls)
	assert.Empty(t, caps.fetched)
}

func TestAcquire_AllSourcesFail(t *testing.T) {
	caps := &fakeCaptions{listErr: errors.New("blocked")}
	chain, audio, _ := newChain(t, caps, nil)
	audio.err = errors.New("yt-dlp exploded")

	_, err := chain.Acquire(context.Background(), "vid", download.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yt-dlp exploded")
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestAcquire_CancelledContextStops(t *testing.T) {
	caps := &fakeCaptions{listErr: context.Canceled}
	chain, audio, _ := newChain(t, caps, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.Acquire(ctx, "vid", download.Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, audio.calls)
}

func TestAcquire_CachesResult(t *testing.T) {
	c := cache.New(context.Background(), discard(), config.CacheConfig{})
	caps := &fakeCaptions{
		tracks:   []youtube.Track{{BaseURL: "man-en", LanguageCode: "en"}},
		segments: map[string][]transcript.Segment{"man-en": seg("hello")},
	}
	chain, _, _ := newChain(t, caps, c)

	for i := 0; i < 2; i++ {
		acq, err := chain.Acquire(context.Background(), "vid", download.Options{})
		require.NoError(t, err)
		assert.Equal(t, "hello", acq.Text)
	}
	assert.Len(t, caps.fetched, 1)
}

func TestRankTracks(t *testing.T) {
	tracks := []youtube.Track{
		{BaseURL: "a-it", LanguageCode: "it", Generated: true},
		{BaseURL: "a-en", LanguageCode: "en", Generated: true},
		{BaseURL: "m-fr", LanguageCode: "fr"},
		{BaseURL: "m-hi", LanguageCode: "hi"},
	}
	ranked := RankTracks(tracks, []string{"en", "hi"})
	require.Len(t, ranked, 2)
	assert.Equal(t, RankedTrack{Track: tracks[3], Source: transcript.SourceManual}, ranked[0])
	assert.Equal(t, RankedTrack{Track: tracks[1], Source: transcript.SourceAuto}, ranked[1])

	assert.Empty(t, RankTracks(tracks[:1], []string{"en"}))
}

func TestSelectTrack(t *testing.T) {
	langs := []string{"en", "hi"}
	cases := []struct {
		name   string
		tracks []youtube.Track
		want   string
		source transcript.Source
		ok     bool
	}{
		{"manual priority beats listing order", []youtube.Track{{BaseURL: "hi", LanguageCode: "hi"}, {BaseURL: "en", LanguageCode: "en-GB"}}, "en", transcript.SourceManual, true},
		{"manual outside priority beats auto", []youtube.Track{{BaseURL: "auto", LanguageCode: "en", Generated: true}, {BaseURL: "fr", LanguageCode: "fr"}}, "fr", transcript.SourceManual, true},
		{"auto priority", []youtube.Track{{BaseURL: "a-hi", LanguageCode: "hi", Generated: true}, {BaseURL: "a-en", LanguageCode: "en", Generated: true}}, "a-en", transcript.SourceAuto, true},
		{"nothing usable", []youtube.Track{{BaseURL: "a-it", LanguageCode: "it", Generated: true}}, "", "", false},
		{"empty listing", nil, "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, src, ok := SelectTrack(tc.tracks, langs)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.source, src)
			assert.Equal(t, tc.want, got.BaseURL)
		})
	}
}
