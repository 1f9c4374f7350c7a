package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/common"
)

// Config is the root configuration loaded from YAML.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Jobs          JobsConfig          `yaml:"jobs"`
	LLM           LLMConfig           `yaml:"llm"`
	Cleaning      CleaningConfig      `yaml:"cleaning"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	YouTube       YouTubeConfig       `yaml:"youtube"`
	Download      DownloadConfig      `yaml:"download"`
	Cache         CacheConfig         `yaml:"cache"`
	Export        ExportConfig        `yaml:"export"`
}

// ServerConfig holds HTTP server and runtime settings.
type ServerConfig struct {
	Addr           string        `yaml:"address"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
	MaxUploadSize  ByteSize      `yaml:"maxUploadSize"`
	WorkerCount    int           `yaml:"workerCount"`
	QueueCapacity  int           `yaml:"queueCapacity"`
	StorageDir     string        `yaml:"storageDir"`
	APIKey         string        `yaml:"apiKey"`         // optional static API key header (X-API-Key)
	ShutdownGrace  time.Duration `yaml:"shutdownGrace"`  // time to wait for workers before forced stop
	RequestTimeout time.Duration `yaml:"requestTimeout"` // bound for synchronous URL acquisition
	KeepUploads    bool          `yaml:"keepUploads"`    // keep audio files after their job finished
	LogLevel       string        `yaml:"logLevel"`       // debug|info|warn|error
}

// JobsConfig selects the job store backend.
type JobsConfig struct {
	Store        string `yaml:"store"`        // memory|sqlite
	DatabasePath string `yaml:"databasePath"` // sqlite only; defaults to <storageDir>/jobs.db
}

// LLMConfig selects the correction provider and provider-specific options.
type LLMConfig struct {
	Provider string         `yaml:"provider"` // openai|mock|none
	Mock     MockSettings   `yaml:"mock"`
	OpenAI   OpenAISettings `yaml:"openai"`
}

// MockSettings config for the mock providers.
type MockSettings struct {
	Delay  time.Duration `yaml:"delay"`
	Prefix string        `yaml:"prefix"`
}

// OpenAISettings config for an OpenAI-compatible chat completions endpoint (Groq by default).
type OpenAISettings struct {
	BaseURL           string        `yaml:"baseUrl"`
	APIKey            string        `yaml:"apiKey"`
	Model             string        `yaml:"model"`
	SystemPrompt      string        `yaml:"systemPrompt"` // optional system message override
	Instructions      string        `yaml:"instructions"` // optional editing rules override
	Temperature       float32       `yaml:"temperature"`
	MaxTokens         int           `yaml:"maxTokens"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"` // 0 disables rate limiting
}

// CleaningConfig tunes the cleaning pipeline.
type CleaningConfig struct {
	MaxChunkSize int               `yaml:"maxChunkSize"`
	Concurrency  int               `yaml:"concurrency"` // parallel LLM chunk corrections
	Dictionary   []DictionaryEntry `yaml:"dictionary"`  // appended after the built-in corrections
}

// DictionaryEntry is one case-insensitive substitution.
type DictionaryEntry struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// TranscriptionConfig selects the speech-to-text backend.
type TranscriptionConfig struct {
	Provider   string             `yaml:"provider"` // whispercpp|openai|mock
	ModelSize  string             `yaml:"modelSize"`
	Device     string             `yaml:"device"`
	Language   string             `yaml:"language"` // empty means auto-detect
	Timeout    time.Duration      `yaml:"timeout"`
	WhisperCPP WhisperCPPSettings `yaml:"whispercpp"`
	OpenAI     OpenAISTTSettings  `yaml:"openai"`
	Mock       MockSettings       `yaml:"mock"`
}

// WhisperCPPSettings config for the local whisper.cpp backend.
type WhisperCPPSettings struct {
	Binary   string `yaml:"binary"`
	FFmpeg   string `yaml:"ffmpeg"`
	ModelDir string `yaml:"modelDir"`
	Threads  int    `yaml:"threads"`
}

// OpenAISTTSettings config for an OpenAI-compatible audio transcription endpoint.
type OpenAISTTSettings struct {
	BaseURL string `yaml:"baseUrl"`
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
}

// YouTubeConfig controls published transcript retrieval.
type YouTubeConfig struct {
	Languages []string      `yaml:"languages"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"userAgent"`
}

// DownloadConfig controls audio extraction via yt-dlp.
type DownloadConfig struct {
	Binary         string        `yaml:"binary"`
	Dir            string        `yaml:"dir"`
	DefaultFormat  string        `yaml:"defaultFormat"`
	DefaultQuality string        `yaml:"defaultQuality"`
	Timeout        time.Duration `yaml:"timeout"`
	KeepFiles      bool          `yaml:"keepFiles"` // keep audio synthesized for URL requests
}

// CacheConfig controls the transcript acquisition cache.
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled"`
	TTL             time.Duration `yaml:"ttl"`
	MaxEntries      int           `yaml:"maxEntries"`
	CleanupInterval time.Duration `yaml:"cleanupInterval"`
	RedisURL        string        `yaml:"redisUrl"` // empty disables L2
}

// ExportConfig controls transcript files written after a job completes.
type ExportConfig struct {
	Formats          []string `yaml:"formats"` // markdown|srt
	Dir              string   `yaml:"dir"`
	FilenameTemplate string   `yaml:"filenameTemplate"`
}

// ByteSize represents a size in bytes that unmarshals from strings like "10Mi", "20MB", "512KiB", "1024".
type ByteSize uint64

// UnmarshalYAML implements yaml unmarshalling for ByteSize.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		parsed, err := ParseByteSize(strings.TrimSpace(value.Value))
		if err != nil {
			return err
		}
		*b = ByteSize(parsed)
		return nil
	}
	return fmt.Errorf("invalid bytesize node kind: %v", value.Kind)
}

var reNumeric = regexp.MustCompile(`^\d+$`)

// ParseByteSize parses a string like "10Mi", "20MB", "512KiB", "1024" into bytes.
// Binary units accept Ki/Mi/Gi and KiB/MiB/GiB, decimal units KB/MB/GB (case-insensitive).
func ParseByteSize(s string) (uint64, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty size")
	}
	if reNumeric.MatchString(s) {
		val, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size number: %w", err)
		}
		return val, nil
	}

	up := strings.ToUpper(s)

	type unit struct {
		suffix string
		value  uint64
	}
	units := []unit{
		{"KIB", 1024},
		{"MIB", 1024 * 1024},
		{"GIB", 1024 * 1024 * 1024},
		{"KI", 1024},
		{"MI", 1024 * 1024},
		{"GI", 1024 * 1024 * 1024},
		{"KB", 1000},
		{"MB", 1000 * 1000},
		{"GB", 1000 * 1000 * 1000},
		{"B", 1},
	}
	for _, u := range units {
		if strings.HasSuffix(up, u.suffix) {
			num := strings.TrimSpace(s[:len(s)-len(u.suffix)])
			val, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid size number in %q: %w", orig, err)
			}
			return uint64(val * float64(u.value)), nil
		}
	}
	return 0, fmt.Errorf("unknown size suffix in %q", orig)
}

// Load reads YAML config from path, expands environment variables, applies the
// environment overrides and defaults, and validates the result.
// If path is empty, it falls back to VIDSAGE_CONFIG and then "config.yaml"; a
// missing default file is not an error so the service can run from env alone.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		if env := os.Getenv("VIDSAGE_CONFIG"); env != "" {
			path = env
			explicit = true
		} else {
			path = "config.yaml"
		}
	}

	var cfg Config
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - reading sanitized config file path is expected
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// env-only configuration
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	for _, dir := range []string{cfg.Server.StorageDir, cfg.Download.Dir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("ensure dir %s: %w", dir, err)
		}
	}
	return &cfg, nil
}

// applyEnvOverrides maps the service's well-known environment variables onto the config.
func applyEnvOverrides(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("GROQ_API_KEY")); v != "" {
		cfg.LLM.OpenAI.APIKey = v
		if cfg.Transcription.OpenAI.APIKey == "" {
			cfg.Transcription.OpenAI.APIKey = v
		}
	}
	if v := strings.TrimSpace(os.Getenv("WHISPER_MODEL_SIZE")); v != "" {
		cfg.Transcription.ModelSize = v
	}
	if v := strings.TrimSpace(os.Getenv("WHISPER_DEVICE")); v != "" {
		cfg.Transcription.Device = v
	}
	if v := strings.TrimSpace(os.Getenv("CLEANING_MODEL")); v != "" {
		cfg.LLM.OpenAI.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("MAX_CHUNK_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_CHUNK_SIZE: %w", err)
		}
		cfg.Cleaning.MaxChunkSize = n
	}
	return nil
}

func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 5 * time.Minute
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Minute
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.MaxUploadSize == 0 {
		cfg.Server.MaxUploadSize = ByteSize(common.DefaultMaxUploadSize)
	}
	if cfg.Server.WorkerCount <= 0 {
		cfg.Server.WorkerCount = common.DefaultWorkerCount
	}
	if cfg.Server.QueueCapacity <= 0 {
		cfg.Server.QueueCapacity = common.DefaultQueueCapacity
	}
	if cfg.Server.StorageDir == "" {
		cfg.Server.StorageDir = "data"
	}
	if cfg.Server.ShutdownGrace == 0 {
		cfg.Server.ShutdownGrace = 15 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 9 * time.Minute
	}
	if strings.TrimSpace(cfg.Server.LogLevel) == "" {
		cfg.Server.LogLevel = "info"
	}

	// Jobs
	if cfg.Jobs.Store == "" {
		cfg.Jobs.Store = "memory"
	}
	if cfg.Jobs.Store == "sqlite" && cfg.Jobs.DatabasePath == "" {
		cfg.Jobs.DatabasePath = filepath.Join(cfg.Server.StorageDir, "jobs.db")
	}

	// LLM defaults
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = common.ProviderOpenAI
	}
	if strings.TrimSpace(cfg.LLM.Mock.Prefix) == "" {
		cfg.LLM.Mock.Prefix = "[mock]"
	}
	o := &cfg.LLM.OpenAI
	if strings.TrimSpace(o.BaseURL) == "" {
		o.BaseURL = "https://api.groq.com/openai"
	}
	if strings.TrimSpace(o.Model) == "" {
		o.Model = "llama-3.1-8b-instant"
	}
	if o.Temperature == 0 {
		o.Temperature = 0.1
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = 4096
	}
	if o.Timeout == 0 {
		o.Timeout = 60 * time.Second
	}

	// Cleaning
	if cfg.Cleaning.MaxChunkSize <= 0 {
		cfg.Cleaning.MaxChunkSize = common.DefaultMaxChunkSize
	}
	if cfg.Cleaning.Concurrency <= 0 {
		cfg.Cleaning.Concurrency = 1
	}

	// Transcription
	t := &cfg.Transcription
	if t.Provider == "" {
		t.Provider = common.ProviderWhisperCPP
	}
	if t.ModelSize == "" {
		t.ModelSize = "base"
	}
	if t.Device == "" {
		t.Device = "cpu"
	}
	if t.Timeout == 0 {
		t.Timeout = 30 * time.Minute
	}
	if t.WhisperCPP.Binary == "" {
		t.WhisperCPP.Binary = "whisper-cli"
	}
	if t.WhisperCPP.FFmpeg == "" {
		t.WhisperCPP.FFmpeg = "ffmpeg"
	}
	if t.WhisperCPP.ModelDir == "" {
		t.WhisperCPP.ModelDir = "models"
	}
	if strings.TrimSpace(t.OpenAI.BaseURL) == "" {
		t.OpenAI.BaseURL = "https://api.groq.com/openai"
	}
	if strings.TrimSpace(t.OpenAI.Model) == "" {
		t.OpenAI.Model = "whisper-large-v3"
	}

	// YouTube
	if len(cfg.YouTube.Languages) == 0 {
		cfg.YouTube.Languages = []string{"en", "hi", "es", "de", "fr", "ja", "pt", "zh", "ko", "ru", "ar"}
	}
	if cfg.YouTube.Timeout == 0 {
		cfg.YouTube.Timeout = 30 * time.Second
	}

	// Download
	if cfg.Download.Binary == "" {
		cfg.Download.Binary = "yt-dlp"
	}
	if cfg.Download.Dir == "" {
		cfg.Download.Dir = filepath.Join(cfg.Server.StorageDir, common.DownloadsDirName)
	}
	if cfg.Download.DefaultFormat == "" {
		cfg.Download.DefaultFormat = "mp3"
	}
	if cfg.Download.DefaultQuality == "" {
		cfg.Download.DefaultQuality = "192"
	}
	if cfg.Download.Timeout == 0 {
		cfg.Download.Timeout = 10 * time.Minute
	}

	// Cache
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 500
	}
	if cfg.Cache.CleanupInterval == 0 {
		cfg.Cache.CleanupInterval = 5 * time.Minute
	}

	// Export
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = filepath.Join(cfg.Server.StorageDir, common.ExportsDirName)
	}
	if cfg.Export.FilenameTemplate == "" {
		cfg.Export.FilenameTemplate = "{{ .JobID }}"
	}
}

func validate(cfg *Config) error {
	switch cfg.Jobs.Store {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("jobs.store %q not supported", cfg.Jobs.Store)
	}
	switch cfg.LLM.Provider {
	case common.ProviderOpenAI, common.ProviderMock, common.ProviderNone:
	default:
		return fmt.Errorf("llm.provider %q not supported", cfg.LLM.Provider)
	}
	switch cfg.Transcription.Provider {
	case common.ProviderWhisperCPP, common.ProviderOpenAI, common.ProviderMock:
	default:
		return fmt.Errorf("transcription.provider %q not supported", cfg.Transcription.Provider)
	}
	if cfg.Transcription.Provider == common.ProviderOpenAI && strings.TrimSpace(cfg.Transcription.OpenAI.APIKey) == "" {
		return errors.New("transcription.openai.apiKey is required for the openai provider")
	}
	for i, e := range cfg.Cleaning.Dictionary {
		if strings.TrimSpace(e.From) == "" {
			return fmt.Errorf("cleaning.dictionary[%d].from is required", i)
		}
	}
	for _, f := range cfg.Export.Formats {
		switch strings.ToLower(f) {
		case "markdown", "srt":
		default:
			return fmt.Errorf("export format %q not supported", f)
		}
	}
	switch strings.ToLower(cfg.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.logLevel %q not supported", cfg.Server.LogLevel)
	}
	return nil
}
