package common

// Shared constants to enforce DRY and avoid magic strings/numbers.

// HTTP headers and content types
const (
	HeaderAPIKey    = "X-API-Key" // #nosec G101 - header name constant, not a credential
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain; charset=utf-8"
)

// API paths
const (
	PathHealthz         = "/healthz"
	PathMetrics         = "/metrics"
	PathVideoTranscript = "/api/video/transcript"
	PathVideoDownload   = "/api/video/download"
	PathClean           = "/api/clean"
	PathAudioUpload     = "/api/audio/upload"
	PathAudioStatus     = "/api/audio/status/"
	PathAudioResult     = "/api/audio/result/"
	PathAudioWatch      = "/api/audio/watch/"
	PathAudioHealth     = "/api/audio/health"
	PathMCP             = "/mcp"
)

// Defaults and limits
const (
	DefaultQueueCapacity = 128
	DefaultWorkerCount   = 2
	SQLiteBusyTimeoutMS  = 5000
	DefaultMaxChunkSize  = 3000
	UploadChunkSize      = 1024 * 1024
	DefaultMaxUploadSize = 500 * 1024 * 1024
)

// Subdirectory names
const (
	UploadsDirName   = "uploads"
	DownloadsDirName = "downloads"
	ExportsDirName   = "exports"
)

// Cleaning step names recorded on results.
const (
	StepBasic      = "basic"
	StepDictionary = "dictionary"
	StepLLM        = "llm"
)

// Provider names shared by config and main wiring.
const (
	ProviderMock       = "mock"
	ProviderOpenAI     = "openai"
	ProviderWhisperCPP = "whispercpp"
	ProviderNone       = "none"
)

// Service identity
const (
	ServiceName    = "vidsage"
	ServiceVersion = "0.3.0"
)
