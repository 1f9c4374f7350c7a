package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/cleaner"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/export"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/jobs"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/stt"
)

// TextCleaner is the cleaning pipeline as seen by the worker.
type TextCleaner interface {
	Clean(ctx context.Context, text string, opts cleaner.Options) cleaner.Result
}

// Options tunes a Worker.
type Options struct {
	// Timeout bounds speech-to-text for one job. Zero means no bound.
	Timeout time.Duration
	// Language is passed to the transcriber; empty means auto-detect.
	Language string
}

// Worker implements jobs.Processor for uploaded audio: transcribe, clean,
// record the outcome and export it.
type Worker struct {
	Log     *slog.Logger
	Jobs    *jobs.Manager
	STT     stt.Transcriber
	Cleaner TextCleaner
	Exports *export.Registry
	Opts    Options
}

// Ensure Worker implements jobs.Processor
var _ jobs.Processor = (*Worker)(nil)

func New(log *slog.Logger, m *jobs.Manager, tr stt.Transcriber, c TextCleaner, exports *export.Registry, opts Options) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		Log:     log,
		Jobs:    m,
		STT:     tr,
		Cleaner: c,
		Exports: exports,
		Opts:    opts,
	}
}

// Process runs one job to a terminal state. Every failure, including a panic
// in a dependency, is recorded on the job and returned.
func (w *Worker) Process(ctx context.Context, item jobs.WorkItem) (err error) {
	job := item.Job
	log := w.Log.With("job_id", job.ID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
			w.finishWithError(log, job.ID, err)
		}
	}()

	if err := w.Jobs.MarkProcessing(job.ID); err != nil {
		err = fmt.Errorf("mark processing: %w", err)
		// a job already in a terminal state keeps its outcome
		if !errors.Is(err, jobs.ErrInvalidTransition) {
			w.finishWithError(log, job.ID, err)
		}
		return err
	}

	result, err := w.run(ctx, job)
	if err != nil {
		w.finishWithError(log, job.ID, err)
		return err
	}
	if err := w.Jobs.Complete(job.ID, result); err != nil {
		err = fmt.Errorf("save result: %w", err)
		w.finishWithError(log, job.ID, err)
		return err
	}

	w.Exports.ExportAll(ctx, export.Request{
		JobID:         job.ID,
		SourceFile:    filepath.Base(job.FilePath),
		Language:      result.Language,
		RawText:       result.RawText,
		CleanedText:   result.CleanedText,
		CleaningSteps: result.CleaningSteps,
		Segments:      result.Segments,
		Timestamp:     time.Now().UTC(),
	})
	return nil
}

func (w *Worker) run(ctx context.Context, job jobs.Job) (*jobs.Result, error) {
	sctx := ctx
	if w.Opts.Timeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, w.Opts.Timeout)
		defer cancel()
	}
	tr, err := w.STT.Transcribe(sctx, job.FilePath, w.Opts.Language)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("transcription timed out after %s", w.Opts.Timeout)
		}
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	cleaned := w.Cleaner.Clean(ctx, tr.FullText, cleaner.AllLayers())
	return &jobs.Result{
		RawText:         tr.FullText,
		CleanedText:     cleaned.CleanedText,
		CleaningSteps:   cleaned.StepsApplied,
		Language:        tr.LanguageCode,
		DurationSeconds: tr.DurationSeconds,
		Segments:        tr.Segments,
	}, nil
}

func (w *Worker) finishWithError(log *slog.Logger, jobID string, err error) {
	if ferr := w.Jobs.Fail(jobID, err.Error()); ferr != nil {
		log.Warn("record job failure", "err", ferr)
	}
}
