// Package cleaner turns raw speech-to-text output into readable text through
// three optional layers: rule-based cleanup, a correction dictionary, and
// model-assisted correction of chunked text.
package cleaner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/common"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/llm"
)

// Options toggles the individual layers. The zero value disables all of them.
type Options struct {
	Basic      bool `json:"use_basic"`
	Dictionary bool `json:"use_dictionary"`
	LLM        bool `json:"use_llm"`
}

// AllLayers enables every layer.
func AllLayers() Options {
	return Options{Basic: true, Dictionary: true, LLM: true}
}

// Result carries the input, the output, and the layers that ran, in order.
type Result struct {
	RawText      string   `json:"raw_text"`
	CleanedText  string   `json:"cleaned_text"`
	StepsApplied []string `json:"cleaning_steps"`
}

// Settings configures a Cleaner.
type Settings struct {
	MaxChunkSize int
	Concurrency  int
	Corrections  []Correction
}

// Cleaner runs the cleaning layers. It is safe for concurrent use.
type Cleaner struct {
	log         *slog.Logger
	dict        *Dictionary
	llm         llm.Client
	maxChunk    int
	concurrency int
}

// New builds a Cleaner. A nil client disables the model layer.
func New(log *slog.Logger, client llm.Client, s Settings) *Cleaner {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.MaxChunkSize <= 0 {
		s.MaxChunkSize = common.DefaultMaxChunkSize
	}
	if s.Concurrency <= 0 {
		s.Concurrency = 1
	}
	return &Cleaner{
		log:         log,
		dict:        NewDictionary(s.Corrections...),
		llm:         client,
		maxChunk:    s.MaxChunkSize,
		concurrency: s.Concurrency,
	}
}

// LLMEnabled reports whether a correction client is configured.
func (c *Cleaner) LLMEnabled() bool { return c.llm != nil }

// Clean applies the enabled layers in order: basic, dictionary, llm.
// A failed model layer leaves the text as it was before that layer and never
// surfaces an error; the step is still recorded because it was attempted.
func (c *Cleaner) Clean(ctx context.Context, text string, opts Options) Result {
	res := Result{RawText: text, CleanedText: text, StepsApplied: []string{}}

	if opts.Basic {
		res.CleanedText = BasicClean(res.CleanedText)
		res.StepsApplied = append(res.StepsApplied, common.StepBasic)
	}
	if opts.Dictionary {
		res.CleanedText = c.dict.Apply(res.CleanedText)
		res.StepsApplied = append(res.StepsApplied, common.StepDictionary)
	}
	if opts.LLM {
		if c.llm == nil {
			c.log.Warn("no correction model configured, skipping llm cleaning")
		} else {
			res.CleanedText = c.correct(ctx, res.CleanedText)
			res.StepsApplied = append(res.StepsApplied, common.StepLLM)
		}
	}
	return res
}

// correct sends each chunk to the model and joins the answers with single
// spaces in chunk order. Any chunk failure returns text untouched.
func (c *Cleaner) correct(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	chunks := ChunkText(text, c.maxChunk)
	out := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			c.log.Info("llm cleaning chunk", "chunk", i+1, "of", len(chunks))
			fixed, err := c.llm.CorrectTranscript(gctx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			out[i] = strings.TrimSpace(fixed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Error("llm cleaning failed", "err", err)
		return text
	}
	return strings.Join(out, " ")
}
