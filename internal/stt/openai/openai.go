package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/config"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/llm"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/stt"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/transcript"
)

var _ stt.Transcriber = (*Client)(nil)

const (
	endpointTranscriptions = "v1/audio/transcriptions"
	responseFormat         = "verbose_json"
	errorSnippetLimit      = 400
)

// Client implements stt.Transcriber against an OpenAI-compatible
// /v1/audio/transcriptions endpoint (Groq by default).
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	language   string
}

// New returns llm.ErrNotConfigured when no API key is set.
func New(cfg config.TranscriptionConfig) (*Client, error) {
	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		return nil, llm.ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.OpenAI.BaseURL, "/"),
		apiKey:     cfg.OpenAI.APIKey,
		model:      cfg.OpenAI.Model,
		language:   cfg.Language,
	}, nil
}

// Transcribe uploads the file as multipart form data and maps the verbose
// JSON answer onto a transcript.Result.
func (c *Client) Transcribe(ctx context.Context, audioPath, language string) (*transcript.Result, error) {
	if err := stt.CheckAudio(audioPath); err != nil {
		return nil, err
	}
	lang := stt.NormalizeLanguage(language)
	if lang == "" {
		lang = stt.NormalizeLanguage(c.language)
	}

	body, contentType, err := c.buildForm(audioPath, lang)
	if err != nil {
		return nil, err
	}
	u, err := url.JoinPath(c.baseURL, endpointTranscriptions)
	if err != nil {
		return nil, fmt.Errorf("join url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("transcriptions status %d: %s", resp.StatusCode, truncate(string(respBytes), errorSnippetLimit))
	}

	var vr verboseResponse
	if err := json.Unmarshal(respBytes, &vr); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	res := &transcript.Result{
		FullText:        vr.Text,
		LanguageCode:    vr.Language,
		DurationSeconds: vr.Duration,
	}
	for _, s := range vr.Segments {
		res.Segments = append(res.Segments, transcript.Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	if res.LanguageCode == "" {
		res.LanguageCode = lang
	}
	return stt.Finish(res), nil
}

// buildForm buffers the multipart body. Uploads to these endpoints are capped
// well below the local upload limit, so the whole file fits in memory.
func (c *Client) buildForm(audioPath, lang string) (*bytes.Buffer, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, "", fmt.Errorf("copy audio: %w", err)
	}
	fields := map[string]string{"model": c.model, "response_format": responseFormat}
	if lang != "" {
		fields["language"] = lang
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type verboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}
