// Package mcptools exposes transcript acquisition, cleaning and job lookup as
// MCP tools.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/acquire"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/cleaner"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/common"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/download"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/jobs"
)

// VideoTranscriber produces a cleaned transcript for a video URL.
type VideoTranscriber interface {
	TranscribeURL(ctx context.Context, rawURL string, opts download.Options) (*acquire.VideoTranscript, error)
}

// TextCleaner runs the cleaning layers.
type TextCleaner interface {
	Clean(ctx context.Context, text string, opts cleaner.Options) cleaner.Result
}

// JobReader looks up upload jobs.
type JobReader interface {
	Get(id string) (*jobs.Job, error)
}

// Tools holds the dependencies of the registered tools.
type Tools struct {
	Log     *slog.Logger
	Videos  VideoTranscriber
	Cleaner TextCleaner
	Jobs    JobReader
	// Timeout bounds one video_transcript call. Zero means no bound.
	Timeout time.Duration
}

// NewServer builds an MCP server with every tool registered.
func NewServer(t *Tools) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    common.ServiceName,
		Version: common.ServiceVersion,
	}, nil)
	t.Register(server)
	return server
}

// Register adds the tools to server.
func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_transcript",
		Description: "Get a cleaned transcript for a YouTube video URL. Uses published captions when available, otherwise downloads the audio and runs speech-to-text. Returns the source, language, raw and cleaned text, and timed segments.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.videoTranscript)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clean_transcript",
		Description: "Clean raw speech-to-text output. Removes filler words and repeats, applies the correction dictionary and optionally a language model pass. Each layer can be switched off; all are on by default.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.cleanTranscript)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "audio_job_status",
		Description: "Look up an uploaded audio transcription job by id. Returns its status, timestamps, and the result once completed.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.audioJobStatus)
}

// VideoTranscriptInput is the video_transcript argument set.
type VideoTranscriptInput struct {
	URL    string `json:"url" jsonschema:"YouTube video URL (watch, youtu.be, shorts, embed, live or attribution link)"`
	Format string `json:"format,omitempty" jsonschema:"Audio format used if speech-to-text is needed: mp3, wav, aac or m4a. Default: mp3"`
}

func (t *Tools) videoTranscript(ctx context.Context, _ *mcp.CallToolRequest, in VideoTranscriptInput) (*mcp.CallToolResult, *acquire.VideoTranscript, error) {
	if strings.TrimSpace(in.URL) == "" {
		return nil, nil, errors.New("url is required")
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	out, err := t.Videos.TranscribeURL(ctx, in.URL, download.Options{Format: in.Format})
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// CleanTranscriptInput is the clean_transcript argument set. Unset toggles
// count as enabled.
type CleanTranscriptInput struct {
	Text          string `json:"text" jsonschema:"Raw transcript text"`
	UseBasic      *bool  `json:"use_basic,omitempty" jsonschema:"Rule-based cleanup (default: true)"`
	UseDictionary *bool  `json:"use_dictionary,omitempty" jsonschema:"Correction dictionary (default: true)"`
	UseLLM        *bool  `json:"use_llm,omitempty" jsonschema:"Language model correction (default: true)"`
}

// CleanTranscriptOutput mirrors the HTTP clean response.
type CleanTranscriptOutput struct {
	Success       bool     `json:"success"`
	RawText       string   `json:"raw_text"`
	CleanedText   string   `json:"cleaned_text"`
	CleaningSteps []string `json:"cleaning_steps"`
}

func (t *Tools) cleanTranscript(ctx context.Context, _ *mcp.CallToolRequest, in CleanTranscriptInput) (*mcp.CallToolResult, *CleanTranscriptOutput, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, nil, errors.New("text is required")
	}
	res := t.Cleaner.Clean(ctx, in.Text, cleaner.Options{
		Basic:      orTrue(in.UseBasic),
		Dictionary: orTrue(in.UseDictionary),
		LLM:        orTrue(in.UseLLM),
	})
	return nil, &CleanTranscriptOutput{
		Success:       true,
		RawText:       res.RawText,
		CleanedText:   res.CleanedText,
		CleaningSteps: res.StepsApplied,
	}, nil
}

// JobStatusInput is the audio_job_status argument set.
type JobStatusInput struct {
	JobID string `json:"job_id" jsonschema:"Job id returned by the upload endpoint"`
}

// JobStatusOutput is a job snapshot. Times are RFC 3339.
type JobStatusOutput struct {
	JobID       string       `json:"job_id"`
	Status      jobs.Status  `json:"status"`
	CreatedAt   string       `json:"created_at"`
	CompletedAt string       `json:"completed_at,omitempty"`
	Error       string       `json:"error,omitempty"`
	Result      *jobs.Result `json:"result,omitempty"`
}

func (t *Tools) audioJobStatus(_ context.Context, _ *mcp.CallToolRequest, in JobStatusInput) (*mcp.CallToolResult, *JobStatusOutput, error) {
	id := strings.TrimSpace(in.JobID)
	if id == "" {
		return nil, nil, errors.New("job_id is required")
	}
	job, err := t.Jobs.Get(id)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			return nil, nil, fmt.Errorf("job %s not found", id)
		}
		return nil, nil, err
	}
	out := &JobStatusOutput{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
		Result:    job.Result,
	}
	if job.CompletedAt != nil {
		out.CompletedAt = job.CompletedAt.UTC().Format(time.RFC3339)
	}
	if job.ErrorMessage != nil {
		out.Error = *job.ErrorMessage
	}
	return nil, out, nil
}

func orTrue(b *bool) bool {
	return b == nil || *b
}
