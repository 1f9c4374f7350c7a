package acquire

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/cleaner"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/download"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/resolver"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/transcript"
)

// TextCleaner is the cleaning pipeline as seen by the service.
type TextCleaner interface {
	Clean(ctx context.Context, text string, opts cleaner.Options) cleaner.Result
}

// VideoTranscript is the answer to a URL transcription request.
type VideoTranscript struct {
	Success       bool                 `json:"success"`
	Source        transcript.Source    `json:"source"`
	VideoID       string               `json:"video_id"`
	Language      string               `json:"language"`
	RawText       string               `json:"raw_text"`
	CleanedText   string               `json:"cleaned_text"`
	CleaningSteps []string             `json:"cleaning_steps"`
	Segments      []transcript.Segment `json:"segments"`
}

// Service turns a video URL into a cleaned transcript.
type Service struct {
	log     *slog.Logger
	chain   *Chain
	cleaner TextCleaner
}

func NewService(log *slog.Logger, chain *Chain, c TextCleaner) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{log: log, chain: chain, cleaner: c}
}

// CleaningFor returns the layers applied to a transcript from source.
// Human-authored captions skip the model layer; machine text gets all three.
func CleaningFor(source transcript.Source) cleaner.Options {
	if source == transcript.SourceManual {
		return cleaner.Options{Basic: true, Dictionary: true}
	}
	return cleaner.AllLayers()
}

// TranscribeURL validates opts, resolves rawURL, acquires the transcript and
// cleans it. Input problems wrap resolver.ErrUnresolvable or
// download.ErrUnsupportedFormat.
func (s *Service) TranscribeURL(ctx context.Context, rawURL string, opts download.Options) (*VideoTranscript, error) {
	opts, err := s.chain.audio.Normalize(opts)
	if err != nil {
		return nil, err
	}
	videoID, err := resolver.ResolveVideoID(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, rawURL)
	}
	log := s.log.With("video_id", videoID)

	acq, err := s.chain.Acquire(ctx, videoID, opts)
	if err != nil {
		log.Error("transcript acquisition failed", "err", err)
		return nil, err
	}
	cleaned := s.cleaner.Clean(ctx, acq.Text, CleaningFor(acq.Source))
	log.Info("transcript ready", "source", acq.Source, "steps", cleaned.StepsApplied)

	return &VideoTranscript{
		Success:       true,
		Source:        acq.Source,
		VideoID:       videoID,
		Language:      acq.LanguageCode,
		RawText:       acq.Text,
		CleanedText:   cleaned.CleanedText,
		CleaningSteps: cleaned.StepsApplied,
		Segments:      acq.Segments,
	}, nil
}
