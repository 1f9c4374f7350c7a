package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/common"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/config"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/jobs"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/metrics"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/storage"
)

const maxJSONBody = 16 << 20

// Service holds everything the HTTP handlers need.
type Service struct {
	Log      *slog.Logger
	Cfg      *config.Config
	Jobs     *jobs.Manager
	Queue    *jobs.Queue
	Uploader *storage.Uploader
	Videos   VideoTranscriber
	Audio    AudioDownloader
	Cleaner  TextCleaner
	// MCP is mounted at /mcp when set.
	MCP http.Handler
	// WatchInterval is how often the watch socket polls a job. Zero means 500ms.
	WatchInterval time.Duration
}

// NewHTTPServer builds the http.Server with routes and middleware.
func NewHTTPServer(svc *Service) *http.Server {
	if svc.Log == nil {
		svc.Log = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	}
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+common.PathHealthz, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc(http.MethodGet+" "+common.PathMetrics, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", common.ContentTypeText)
		_, _ = io.WriteString(w, metrics.Format())
	})
	mux.HandleFunc(http.MethodGet+" "+common.PathAudioHealth, svc.handleAudioHealth)

	mux.HandleFunc(http.MethodPost+" "+common.PathVideoTranscript, svc.withCommon(svc.handleVideoTranscript))
	mux.HandleFunc(http.MethodPost+" "+common.PathVideoDownload, svc.withCommon(svc.handleVideoDownload))
	mux.HandleFunc(http.MethodPost+" "+common.PathClean, svc.withCommon(svc.handleClean))

	mux.HandleFunc(http.MethodPost+" "+common.PathAudioUpload, svc.withCommon(svc.handleAudioUpload))
	mux.HandleFunc(http.MethodGet+" "+common.PathAudioStatus+"{job_id}", svc.withCommon(svc.handleAudioStatus))
	mux.HandleFunc(http.MethodGet+" "+common.PathAudioResult+"{job_id}", svc.withCommon(svc.handleAudioResult))
	mux.HandleFunc(http.MethodGet+" "+common.PathAudioWatch+"{job_id}", svc.withCommon(svc.handleAudioWatch))

	if svc.MCP != nil {
		mux.Handle(common.PathMCP, svc.withCommon(svc.MCP.ServeHTTP))
		mux.Handle(common.PathMCP+"/", svc.withCommon(svc.MCP.ServeHTTP))
	}

	s := &http.Server{
		Addr:         svc.Cfg.Server.Addr,
		Handler:      loggingMiddleware(recoveryMiddleware(mux, svc.Log), svc.Log),
		ReadTimeout:  svc.Cfg.Server.ReadTimeout,
		WriteTimeout: svc.Cfg.Server.WriteTimeout,
		IdleTimeout:  svc.Cfg.Server.IdleTimeout,
	}
	return s
}

func (svc *Service) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Enforce API key if configured
		if key := strings.TrimSpace(svc.Cfg.Server.APIKey); key != "" {
			if r.Header.Get(common.HeaderAPIKey) != key {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", common.ContentTypeJSON)
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func safeInt64(u config.ByteSize) int64 {
	if u > config.ByteSize(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(u) // #nosec G115 - safe cast after explicit upper-bound check
}

func loggingMiddleware(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &writeWrap{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(ww, r)
		log.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.code,
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr)
	})
}

type writeWrap struct {
	http.ResponseWriter
	code int
}

func (w *writeWrap) WriteHeader(statusCode int) {
	w.code = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *writeWrap) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the websocket upgrader take over the connection.
func (w *writeWrap) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.code = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *writeWrap) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func recoveryMiddleware(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error("handler panic", "path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
