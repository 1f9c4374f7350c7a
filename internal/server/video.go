package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/acquire"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/cleaner"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/download"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/resolver"
)

// VideoTranscriber produces a cleaned transcript for a video URL.
type VideoTranscriber interface {
	TranscribeURL(ctx context.Context, rawURL string, opts download.Options) (*acquire.VideoTranscript, error)
}

// AudioDownloader extracts the audio track of a video.
type AudioDownloader interface {
	Normalize(opts download.Options) (download.Options, error)
	Download(ctx context.Context, url string, opts download.Options) (*download.Result, error)
}

// TextCleaner runs the cleaning layers.
type TextCleaner interface {
	Clean(ctx context.Context, text string, opts cleaner.Options) cleaner.Result
}

var httpURLPattern = regexp.MustCompile(`^https?://`)

type videoRequest struct {
	VideoURL string `json:"video_url"`
	download.Options
}

func (svc *Service) decodeVideoRequest(w http.ResponseWriter, r *http.Request) (videoRequest, bool) {
	var req videoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	req.VideoURL = strings.TrimSpace(req.VideoURL)
	if !httpURLPattern.MatchString(req.VideoURL) {
		writeError(w, http.StatusBadRequest, "video_url must start with http:// or https://")
		return req, false
	}
	return req, true
}

func (svc *Service) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if d := svc.Cfg.Server.RequestTimeout; d > 0 {
		return context.WithTimeout(r.Context(), d)
	}
	return context.WithCancel(r.Context())
}

func (svc *Service) handleVideoTranscript(w http.ResponseWriter, r *http.Request) {
	req, ok := svc.decodeVideoRequest(w, r)
	if !ok {
		return
	}
	ctx, cancel := svc.requestContext(r)
	defer cancel()

	out, err := svc.Videos.TranscribeURL(ctx, req.VideoURL, req.Options)
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrUnresolvable), errors.Is(err, download.ErrUnsupportedFormat):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			svc.Log.Error("video transcript failed", "url", req.VideoURL, "err", err)
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Transcript acquisition failed: %v", err))
		}
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type downloadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*download.Result
}

func (svc *Service) handleVideoDownload(w http.ResponseWriter, r *http.Request) {
	req, ok := svc.decodeVideoRequest(w, r)
	if !ok {
		return
	}
	opts, err := svc.Audio.Normalize(req.Options)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := svc.requestContext(r)
	defer cancel()

	res, err := svc.Audio.Download(ctx, req.VideoURL, opts)
	if err != nil {
		svc.Log.Error("audio download failed", "url", req.VideoURL, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, downloadResponse{
		Success: true,
		Message: "Audio download successful!",
		Result:  res,
	})
}

type cleanRequest struct {
	Text          string `json:"text"`
	UseBasic      *bool  `json:"use_basic"`
	UseDictionary *bool  `json:"use_dictionary"`
	UseLLM        *bool  `json:"use_llm"`
}

type cleanResponse struct {
	Success       bool     `json:"success"`
	RawText       string   `json:"raw_text"`
	CleanedText   string   `json:"cleaned_text"`
	CleaningSteps []string `json:"cleaning_steps"`
}

func (svc *Service) handleClean(w http.ResponseWriter, r *http.Request) {
	var req cleanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	res := svc.Cleaner.Clean(r.Context(), req.Text, cleaner.Options{
		Basic:      orTrue(req.UseBasic),
		Dictionary: orTrue(req.UseDictionary),
		LLM:        orTrue(req.UseLLM),
	})
	writeJSON(w, http.StatusOK, cleanResponse{
		Success:       true,
		RawText:       res.RawText,
		CleanedText:   res.CleanedText,
		CleaningSteps: res.StepsApplied,
	})
}

func orTrue(b *bool) bool {
	return b == nil || *b
}
