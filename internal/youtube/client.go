// Package youtube lists and fetches the caption tracks YouTube publishes for a
// video. It scrapes the watch page first and falls back to the ANDROID
// innertube player endpoint.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v5"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/common"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/config"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/transcript"
)

const (
	defaultBaseURL   = "https://www.youtube.com"
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	androidVersion = "20.10.38"
	androidUA      = "com.google.android.youtube/" + androidVersion + " (Linux; U; Android 11) gzip"

	playerResponseMarker = "ytInitialPlayerResponse = "

	maxWatchPageBytes = 6 << 20
	maxPlayerBytes    = 3 << 20
	maxTimedTextBytes = 2 << 20
)

var (
	// ErrNoCaptions means the video publishes no usable caption track.
	ErrNoCaptions = errors.New("no caption tracks available")
	// ErrUnplayable means YouTube refused to serve the video.
	ErrUnplayable = errors.New("video unavailable")
)

// Track is one published caption track.
type Track struct {
	BaseURL      string `json:"-"`
	LanguageCode string `json:"language_code"`
	LanguageName string `json:"language"`
	Generated    bool   `json:"is_generated"`
}

// Client talks to YouTube over HTTP.
type Client struct {
	log          *slog.Logger
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	retryInitial time.Duration
	maxTries     uint
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another host. Tests use it with httptest.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets the initial backoff interval and the number of attempts.
func WithRetry(initial time.Duration, tries uint) Option {
	return func(c *Client) {
		c.retryInitial = initial
		c.maxTries = tries
	}
}

func New(log *slog.Logger, cfg config.YouTubeConfig, opts ...Option) *Client {
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	c := &Client{
		log:          log,
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      defaultBaseURL,
		userAgent:    ua,
		retryInitial: time.Second,
		maxTries:     3,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ListTranscripts returns the caption tracks of videoID in YouTube's order.
// Tracks that can only be fetched from a browser are dropped.
func (c *Client) ListTranscripts(ctx context.Context, videoID string) ([]Track, error) {
	tracks, err := c.listViaWatchPage(ctx, videoID)
	if err == nil {
		return tracks, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	c.log.Debug("watch page listing failed, trying innertube player", "video_id", videoID, "err", err)

	tracks, perr := c.listViaPlayer(ctx, videoID)
	if perr != nil {
		return nil, errors.Join(err, perr)
	}
	return tracks, nil
}

// FetchTranscript downloads and parses the timed text of a track.
func (c *Client) FetchTranscript(ctx context.Context, track Track) ([]transcript.Segment, error) {
	if track.BaseURL == "" {
		return nil, errors.New("track has no url")
	}
	resp, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTimedTextBytes))
	if err != nil {
		return nil, fmt.Errorf("read timedtext: %w", err)
	}
	segments, err := ParseTimedText(body)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, errors.New("timedtext has no lines")
	}
	return segments, nil
}

func (c *Client) listViaWatchPage(ctx context.Context, videoID string) ([]Track, error) {
	watchURL := c.baseURL + "/watch?v=" + videoID + "&hl=en"
	resp, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxWatchPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parse watch page: %w", err)
	}
	var raw []byte
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, playerResponseMarker)
		if idx < 0 {
			return true
		}
		raw = extractJSON([]byte(text[idx+len(playerResponseMarker):]))
		return raw == nil
	})
	if raw == nil {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}

	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return pr.tracks()
}

func (c *Client) listViaPlayer(ctx context.Context, videoID string) ([]Track, error) {
	body, err := json.Marshal(innertubeRequest{
		VideoID: videoID,
		Context: innertubeContext{Client: innertubeClient{
			ClientName:        "ANDROID",
			ClientVersion:     androidVersion,
			AndroidSdkVersion: 30,
			Hl:                "en",
			Gl:                "US",
		}},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, err
	}
	playerURL := c.baseURL + "/youtubei/v1/player?prettyPrint=false"
	resp, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, playerURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", common.ContentTypeJSON)
		req.Header.Set("User-Agent", androidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", androidVersion)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("innertube player: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var pr playerResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPlayerBytes)).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return pr.tracks()
}

// do sends the request built by build, retrying network errors and
// 429/5xx responses with exponential backoff. Other non-200 answers are final.
func (c *Client) do(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	operation := func() (*http.Response, error) {
		req, err := build()
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		if isRetryableStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
		return resp, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInitial
	bo.MaxInterval = 10 * time.Second
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithMaxElapsedTime(30*time.Second),
	)
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
