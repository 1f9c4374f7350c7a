package processor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/cleaner"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/export"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/jobs"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/transcript"
)

type sttMock struct {
	out   *transcript.Result
	err   error
	panic bool
	wait  bool
}

func (m *sttMock) Transcribe(ctx context.Context, path, lang string) (*transcript.Result, error) {
	if m.panic {
		panic("decoder crashed")
	}
	if m.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.out, nil
}

type llmMock struct {
	err error
}

func (m *llmMock) CorrectTranscript(ctx context.Context, chunk string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return strings.ToUpper(chunk), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setup(t *testing.T, tr *sttMock, model *llmMock, exports *export.Registry, opts Options) (*Worker, *jobs.Manager, jobs.Job) {
	t.Helper()
	m := jobs.NewManager(discardLogger(), jobs.NewMemoryStore())

	audio := filepath.Join(t.TempDir(), "talk.wav")
	if err := os.WriteFile(audio, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	id, err := m.Create(audio)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	job, err := m.Get(id)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}

	cl := cleaner.New(discardLogger(), nil, cleaner.Settings{})
	if model != nil {
		cl = cleaner.New(discardLogger(), model, cleaner.Settings{})
	}
	return New(discardLogger(), m, tr, cl, exports, opts), m, *job
}

func okResult() *transcript.Result {
	return &transcript.Result{
		FullText:        "um the the vid sage demo",
		LanguageCode:    "en",
		DurationSeconds: 4,
		Segments:        []transcript.Segment{{Start: 0, End: 4, Text: "um the the vid sage demo"}},
	}
}

func TestWorker_Process_Success(t *testing.T) {
	dir := t.TempDir()
	exports, err := export.FromConfig(discardLogger(), []string{"markdown"}, dir, "{{ .JobID }}")
	if err != nil {
		t.Fatalf("exports: %v", err)
	}
	w, m, job := setup(t, &sttMock{out: okResult()}, &llmMock{}, exports, Options{})

	if err := w.Process(context.Background(), jobs.WorkItem{Job: job}); err != nil {
		t.Fatalf("Process error: %v", err)
	}

	got, _ := m.Get(job.ID)
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("job not completed: %+v", got)
	}
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Fatalf("timestamps not stamped: %+v", got)
	}
	if got.Result.CleanedText != "THE VIDSAGE DEMO" {
		t.Fatalf("cleaned text = %q", got.Result.CleanedText)
	}
	if strings.Join(got.Result.CleaningSteps, ",") != "basic,dictionary,llm" {
		t.Fatalf("steps = %v", got.Result.CleaningSteps)
	}
	if got.Result.RawText != "um the the vid sage demo" || got.Result.DurationSeconds != 4 {
		t.Fatalf("raw result not kept: %+v", got.Result)
	}
	if _, err := os.Stat(filepath.Join(dir, job.ID+".md")); err != nil {
		t.Fatalf("export missing: %v", err)
	}
}

func TestWorker_Process_NoModelSkipsLLMStep(t *testing.T) {
	w, m, job := setup(t, &sttMock{out: okResult()}, nil, nil, Options{})
	if err := w.Process(context.Background(), jobs.WorkItem{Job: job}); err != nil {
		t.Fatalf("Process error: %v", err)
	}
	got, _ := m.Get(job.ID)
	if strings.Join(got.Result.CleaningSteps, ",") != "basic,dictionary" {
		t.Fatalf("steps = %v", got.Result.CleaningSteps)
	}
	if got.Result.CleanedText != "The VidSage demo" {
		t.Fatalf("cleaned text = %q", got.Result.CleanedText)
	}
}

func TestWorker_Process_ModelFailureStillCompletes(t *testing.T) {
	w, m, job := setup(t, &sttMock{out: okResult()}, &llmMock{err: errors.New("quota")}, nil, Options{})
	if err := w.Process(context.Background(), jobs.WorkItem{Job: job}); err != nil {
		t.Fatalf("Process error: %v", err)
	}
	got, _ := m.Get(job.ID)
	if got.Status != jobs.StatusCompleted || got.Result.CleanedText != "The VidSage demo" {
		t.Fatalf("unexpected job: %+v", got)
	}
}

func TestWorker_Process_STTError_SetsFailed(t *testing.T) {
	w, m, job := setup(t, &sttMock{err: errors.New("boom")}, nil, nil, Options{})
	if err := w.Process(context.Background(), jobs.WorkItem{Job: job}); err == nil {
		t.Fatalf("expected error")
	}
	got, _ := m.Get(job.ID)
	if got.Status != jobs.StatusFailed {
		t.Fatalf("job not failed: %+v", got)
	}
	if got.ErrorMessage == nil || !strings.Contains(*got.ErrorMessage, "boom") {
		t.Fatalf("error message = %v", got.ErrorMessage)
	}
	if got.Result != nil {
		t.Fatalf("failed job carries a result")
	}
}

func TestWorker_Process_PanicRoutedToFail(t *testing.T) {
	w, m, job := setup(t, &sttMock{panic: true}, nil, nil, Options{})
	err := w.Process(context.Background(), jobs.WorkItem{Job: job})
	if err == nil || !strings.Contains(err.Error(), "decoder crashed") {
		t.Fatalf("expected panic error, got %v", err)
	}
	got, _ := m.Get(job.ID)
	if got.Status != jobs.StatusFailed {
		t.Fatalf("job stuck in %s", got.Status)
	}
}

func TestWorker_Process_TimeoutRoutedToFail(t *testing.T) {
	w, m, job := setup(t, &sttMock{wait: true}, nil, nil, Options{Timeout: 20 * time.Millisecond})
	if err := w.Process(context.Background(), jobs.WorkItem{Job: job}); err == nil {
		t.Fatalf("expected timeout error")
	}
	got, _ := m.Get(job.ID)
	if got.Status != jobs.StatusFailed || !strings.Contains(*got.ErrorMessage, "timed out") {
		t.Fatalf("unexpected job: %+v", got)
	}
}

func TestWorker_Process_ThroughQueue(t *testing.T) {
	w, m, job := setup(t, &sttMock{out: okResult()}, nil, nil, Options{})
	q := jobs.NewQueue(discardLogger(), 4, 1)
	if err := q.Start(context.Background(), w); err != nil {
		t.Fatalf("start: %v", err)
	}
	cleaned := make(chan struct{})
	if err := q.Enqueue(jobs.WorkItem{Job: job, Cleanup: func() error { close(cleaned); return nil }}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	select {
	case <-cleaned:
	case <-time.After(2 * time.Second):
		t.Fatalf("job never finished")
	}
	q.Shutdown(time.Second)
	got, _ := m.Get(job.ID)
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s", got.Status)
	}
}

// flakyStore fails selected transitions the way a locked database would.
type flakyStore struct {
	*jobs.MemoryStore
	failMark bool
	failSave bool
}

func (s *flakyStore) MarkProcessing(id string, startedAt time.Time) error {
	if s.failMark {
		return errors.New("database is locked")
	}
	return s.MemoryStore.MarkProcessing(id, startedAt)
}

func (s *flakyStore) SaveResult(id string, result *jobs.Result, completedAt time.Time) error {
	if s.failSave {
		return errors.New("database is locked")
	}
	return s.MemoryStore.SaveResult(id, result, completedAt)
}

func TestWorker_Process_StoreErrorsRoutedToFail(t *testing.T) {
	cases := []struct {
		name  string
		store *flakyStore
		want  string
	}{
		{"save result", &flakyStore{MemoryStore: jobs.NewMemoryStore(), failSave: true}, "save result: database is locked"},
		{"mark processing", &flakyStore{MemoryStore: jobs.NewMemoryStore(), failMark: true}, "mark processing: database is locked"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := jobs.NewManager(discardLogger(), tc.store)
			id, err := m.Create(filepath.Join(t.TempDir(), "talk.wav"))
			if err != nil {
				t.Fatalf("create job: %v", err)
			}
			job, _ := m.Get(id)
			cl := cleaner.New(discardLogger(), nil, cleaner.Settings{})
			w := New(discardLogger(), m, &sttMock{out: okResult()}, cl, nil, Options{})

			err = w.Process(context.Background(), jobs.WorkItem{Job: *job})
			if err == nil || err.Error() != tc.want {
				t.Fatalf("Process error = %v, want %q", err, tc.want)
			}
			got, _ := m.Get(id)
			if got.Status != jobs.StatusFailed {
				t.Fatalf("job stuck in %s", got.Status)
			}
			if got.CompletedAt == nil {
				t.Fatalf("completion not stamped: %+v", got)
			}
			if got.ErrorMessage == nil || *got.ErrorMessage != tc.want {
				t.Fatalf("error message = %v", got.ErrorMessage)
			}
		})
	}
}

func TestWorker_Process_TerminalJobKeepsOutcome(t *testing.T) {
	w, m, job := setup(t, &sttMock{out: okResult()}, nil, nil, Options{})
	if err := m.Complete(job.ID, &jobs.Result{CleanedText: "Done."}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := w.Process(context.Background(), jobs.WorkItem{Job: job}); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	got, _ := m.Get(job.ID)
	if got.Status != jobs.StatusCompleted || got.Result.CleanedText != "Done." {
		t.Fatalf("completed job was overwritten: %+v", got)
	}
}
