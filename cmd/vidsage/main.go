package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/acquire"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/cache"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/cleaner"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/common"
	appcfg "github.com/sumitiitj493-boop/vidsage-ai/internal/config"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/download"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/export"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/jobs"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/llm"
	llmmock "github.com/sumitiitj493-boop/vidsage-ai/internal/llm/mock"
	llmopenai "github.com/sumitiitj493-boop/vidsage-ai/internal/llm/openai"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/mcptools"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/processor"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/runner"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/server"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/storage"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/stt"
	sttmock "github.com/sumitiitj493-boop/vidsage-ai/internal/stt/mock"
	sttopenai "github.com/sumitiitj493-boop/vidsage-ai/internal/stt/openai"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/stt/whispercpp"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/youtube"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: $VIDSAGE_CONFIG or ./config.yaml)")
	flag.Parse()

	// Load config
	cfg, err := appcfg.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	// Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	rootCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Job store
	var store jobs.Store
	switch cfg.Jobs.Store {
	case "sqlite":
		s, err := jobs.NewSQLiteStore(cfg.Jobs.DatabasePath)
		if err != nil {
			logger.Error("sqlite open", "path", cfg.Jobs.DatabasePath, "err", err)
			os.Exit(1)
		}
		store = s
	default:
		store = jobs.NewMemoryStore()
	}
	defer func() { _ = store.Close() }()
	manager := jobs.NewManager(logger, store)

	// Correction model; a missing credential disables the llm layer
	llmClient := newLLMClient(logger, cfg)

	corrections := make([]cleaner.Correction, 0, len(cfg.Cleaning.Dictionary))
	for _, e := range cfg.Cleaning.Dictionary {
		corrections = append(corrections, cleaner.Correction{From: e.From, To: e.To})
	}
	textCleaner := cleaner.New(logger, llmClient, cleaner.Settings{
		MaxChunkSize: cfg.Cleaning.MaxChunkSize,
		Concurrency:  cfg.Cleaning.Concurrency,
		Corrections:  corrections,
	})

	// Speech-to-text
	transcriber, err := newTranscriber(logger, cfg)
	if err != nil {
		logger.Error("init transcriber", "provider", cfg.Transcription.Provider, "err", err)
		os.Exit(1)
	}

	// Acquisition chain
	var acqCache *cache.Cache
	if cfg.Cache.Enabled {
		acqCache = cache.New(rootCtx, logger, cfg.Cache)
		defer func() { _ = acqCache.Close() }()
		go acqCache.Run(rootCtx)
	}
	downloader := download.New(logger, cfg.Download, runner.Exec{})
	chain := acquire.NewChain(logger, youtube.New(logger, cfg.YouTube), downloader, transcriber, acqCache, acquire.Settings{
		Languages:  cfg.YouTube.Languages,
		STTTimeout: cfg.Transcription.Timeout,
		KeepAudio:  cfg.Download.KeepFiles,
	})
	videos := acquire.NewService(logger, chain, textCleaner)

	// Exporters
	exports, err := export.FromConfig(logger, cfg.Export.Formats, cfg.Export.Dir, cfg.Export.FilenameTemplate)
	if err != nil {
		logger.Error("init exporters", "err", err)
		os.Exit(1)
	}

	// Worker and queue
	worker := processor.New(logger, manager, transcriber, textCleaner, exports, processor.Options{
		Timeout:  cfg.Transcription.Timeout,
		Language: cfg.Transcription.Language,
	})
	queue := jobs.NewQueue(logger, cfg.Server.QueueCapacity, cfg.Server.WorkerCount).FailAbandonedOn(manager)
	if err := queue.Start(rootCtx, worker); err != nil {
		logger.Error("start queue", "err", err)
		os.Exit(1)
	}

	// MCP tools
	mcpServer := mcptools.NewServer(&mcptools.Tools{
		Log:     logger,
		Videos:  videos,
		Cleaner: textCleaner,
		Jobs:    manager,
		Timeout: cfg.Server.RequestTimeout,
	})
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpServer }, nil)

	// HTTP server
	svc := &server.Service{
		Log:      logger,
		Cfg:      cfg,
		Jobs:     manager,
		Queue:    queue,
		Uploader: storage.NewUploader(cfg.Server.StorageDir, int64(cfg.Server.MaxUploadSize)), // #nosec G115 - bounded by config parsing
		Videos:   videos,
		Audio:    downloader,
		Cleaner:  textCleaner,
		MCP:      mcpHandler,
	}
	httpSrv := server.NewHTTPServer(svc)

	// Run server in background
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting",
			"address", cfg.Server.Addr,
			"version", common.ServiceVersion,
			"jobs_store", cfg.Jobs.Store,
			"stt", cfg.Transcription.Provider,
			"llm", textCleaner.LLMEnabled())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error
	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "err", err)
		}
	}

	// Graceful shutdown
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	// Stop workers
	queue.Shutdown(cfg.Server.ShutdownGrace)
	logger.Info("server stopped")
}

func newLLMClient(logger *slog.Logger, cfg *appcfg.Config) llm.Client {
	switch cfg.LLM.Provider {
	case common.ProviderMock:
		return llmmock.New(cfg.LLM.Mock)
	case common.ProviderOpenAI:
		c, err := llmopenai.New(cfg.LLM.OpenAI)
		if errors.Is(err, llm.ErrNotConfigured) {
			logger.Warn("no llm api key configured (GROQ_API_KEY), llm cleaning disabled")
			return nil
		}
		if err != nil {
			logger.Warn("llm client init failed, llm cleaning disabled", "err", err)
			return nil
		}
		return c
	default:
		logger.Info("llm cleaning disabled by configuration")
		return nil
	}
}

func newTranscriber(logger *slog.Logger, cfg *appcfg.Config) (stt.Transcriber, error) {
	switch cfg.Transcription.Provider {
	case common.ProviderMock:
		return sttmock.New(cfg.Transcription.Mock), nil
	case common.ProviderOpenAI:
		return sttopenai.New(cfg.Transcription)
	default:
		return whispercpp.New(logger, cfg.Transcription, runner.Exec{}), nil
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
