// Package acquire obtains a raw transcript for a video through the cheapest
// source that works: a manually authored caption track, then an
// auto-generated one, then downloading the audio and running speech-to-text.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/cache"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/download"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/metrics"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/resolver"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/stt"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/transcript"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/youtube"
)

// ErrUnavailable marks a source that has nothing usable. The chain moves on
// to the next source when it sees it.
var ErrUnavailable = errors.New("transcript source unavailable")

// DefaultLanguages is the language priority used when none is configured.
var DefaultLanguages = []string{"en", "hi", "es", "de", "fr", "ja", "pt", "zh", "ko", "ru", "ar"}

// CaptionSource lists and fetches published caption tracks.
type CaptionSource interface {
	ListTranscripts(ctx context.Context, videoID string) ([]youtube.Track, error)
	FetchTranscript(ctx context.Context, track youtube.Track) ([]transcript.Segment, error)
}

// AudioSource downloads the audio of a video.
type AudioSource interface {
	Normalize(opts download.Options) (download.Options, error)
	Download(ctx context.Context, url string, opts download.Options) (*download.Result, error)
}

// Settings configures a Chain.
type Settings struct {
	Languages  []string
	STTTimeout time.Duration
	KeepAudio  bool
}

// Chain runs the fallback policy. It is safe for concurrent use.
type Chain struct {
	log       *slog.Logger
	captions  CaptionSource
	audio     AudioSource
	stt       stt.Transcriber
	cache     *cache.Cache
	languages []string
	timeout   time.Duration
	keepAudio bool
}

// NewChain wires the sources. A nil cache disables caching.
func NewChain(log *slog.Logger, captions CaptionSource, audio AudioSource, tr stt.Transcriber, c *cache.Cache, s Settings) *Chain {
	if log == nil {
		log = slog.Default()
	}
	langs := s.Languages
	if len(langs) == 0 {
		langs = DefaultLanguages
	}
	return &Chain{
		log:       log,
		captions:  captions,
		audio:     audio,
		stt:       tr,
		cache:     c,
		languages: langs,
		timeout:   s.STTTimeout,
		keepAudio: s.KeepAudio,
	}
}

// Acquire returns the transcript of videoID. Published captions are used when
// available; otherwise the audio is downloaded with opts and transcribed.
// Only a failure of that last source is returned as an error.
func (c *Chain) Acquire(ctx context.Context, videoID string, opts download.Options) (*transcript.Acquisition, error) {
	key := cache.Key("acquire", videoID)
	var cached transcript.Acquisition
	if c.cache.GetJSON(ctx, key, &cached) {
		c.log.Debug("transcript served from cache", "video_id", videoID, "source", cached.Source)
		return &cached, nil
	}

	acq, err := c.published(ctx, videoID)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		c.log.Info("no usable published transcript, synthesizing from audio", "video_id", videoID, "err", err)
		acq, err = c.synthesize(ctx, videoID, opts)
		if err != nil {
			metrics.IncrAcquireErrors()
			return nil, err
		}
	}

	switch acq.Source {
	case transcript.SourceManual:
		metrics.IncrAcquireManual()
	case transcript.SourceAuto:
		metrics.IncrAcquireAuto()
	case transcript.SourceWhisper:
		metrics.IncrAcquireWhisper()
	}
	c.cache.SetJSON(ctx, key, acq)
	return acq, nil
}

// published tries the ranked caption tracks in order, so an auto-generated
// track still serves when the manual one fails. Every failure except
// cancellation is reported as ErrUnavailable.
func (c *Chain) published(ctx context.Context, videoID string) (*transcript.Acquisition, error) {
	tracks, err := c.captions.ListTranscripts(ctx, videoID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: list: %v", ErrUnavailable, err)
	}
	ranked := RankTracks(tracks, c.languages)
	if len(ranked) == 0 {
		return nil, fmt.Errorf("%w: no track in a supported language", ErrUnavailable)
	}

	var errs []error
	for _, rt := range ranked {
		acq, err := c.fetchTrack(ctx, videoID, rt)
		if err == nil {
			return acq, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Warn("published transcript unusable", "video_id", videoID, "source", rt.Source, "language", rt.Track.LanguageCode, "err", err)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

func (c *Chain) fetchTrack(ctx context.Context, videoID string, rt RankedTrack) (*transcript.Acquisition, error) {
	c.log.Info("using published transcript", "video_id", videoID, "source", rt.Source, "language", rt.Track.LanguageCode)
	segments, err := c.captions.FetchTranscript(ctx, rt.Track)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", rt.Source, rt.Track.LanguageCode, err)
	}
	text := transcript.JoinText(segments)
	if text == "" {
		return nil, fmt.Errorf("%s %s track is empty", rt.Source, rt.Track.LanguageCode)
	}
	return &transcript.Acquisition{
		VideoID:      videoID,
		Source:       rt.Source,
		LanguageCode: rt.Track.LanguageCode,
		Text:         text,
		Segments:     segments,
	}, nil
}

func (c *Chain) synthesize(ctx context.Context, videoID string, opts download.Options) (*transcript.Acquisition, error) {
	dl, err := c.audio.Download(ctx, resolver.WatchURL(videoID), opts)
	if err != nil {
		return nil, fmt.Errorf("download audio: %w", err)
	}
	if !c.keepAudio {
		defer func() {
			if rerr := os.Remove(dl.FilePath); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
				c.log.Warn("remove downloaded audio", "path", dl.FilePath, "err", rerr)
			}
		}()
	}

	sctx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	res, err := c.stt.Transcribe(sctx, dl.FilePath, "")
	if err != nil {
		return nil, fmt.Errorf("transcribe audio: %w", err)
	}
	return &transcript.Acquisition{
		VideoID:      videoID,
		Source:       transcript.SourceWhisper,
		LanguageCode: res.LanguageCode,
		Text:         res.FullText,
		Segments:     res.Segments,
	}, nil
}

// RankedTrack is a caption track with the source it would be attributed to.
type RankedTrack struct {
	Track  youtube.Track
	Source transcript.Source
}

// RankTracks orders the usable tracks of a listing:
//  1. a manual track whose language starts with a priority language, in priority order,
//     or else the first manual track in listing order
//  2. an auto-generated track whose language starts with a priority language
//
// Auto-generated tracks in other languages are not used.
func RankTracks(tracks []youtube.Track, languages []string) []RankedTrack {
	var manual, auto []youtube.Track
	for _, t := range tracks {
		if t.Generated {
			auto = append(auto, t)
		} else {
			manual = append(manual, t)
		}
	}
	var ranked []RankedTrack
	if t, ok := byPriority(manual, languages); ok {
		ranked = append(ranked, RankedTrack{Track: t, Source: transcript.SourceManual})
	} else if len(manual) > 0 {
		ranked = append(ranked, RankedTrack{Track: manual[0], Source: transcript.SourceManual})
	}
	if t, ok := byPriority(auto, languages); ok {
		ranked = append(ranked, RankedTrack{Track: t, Source: transcript.SourceAuto})
	}
	return ranked
}

// SelectTrack returns the best track of a listing, see RankTracks.
func SelectTrack(tracks []youtube.Track, languages []string) (youtube.Track, transcript.Source, bool) {
	ranked := RankTracks(tracks, languages)
	if len(ranked) == 0 {
		return youtube.Track{}, "", false
	}
	return ranked[0].Track, ranked[0].Source, true
}

func byPriority(tracks []youtube.Track, languages []string) (youtube.Track, bool) {
	for _, lang := range languages {
		for _, t := range tracks {
			if strings.HasPrefix(t.LanguageCode, lang) {
				return t, true
			}
		}
	}
	return youtube.Track{}, false
}
