package jobs

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/metrics"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/util"
)

// Manager owns the job state machine: pending -> processing -> completed|failed.
// Transitions on an unknown id are no-ops. Transitions out of a terminal state
// are rejected with ErrInvalidTransition and leave the job untouched.
type Manager struct {
	log   *slog.Logger
	store Store
	now   func() time.Time
}

func NewManager(log *slog.Logger, store Store) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{log: log, store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a pending job for filePath and returns its id.
func (m *Manager) Create(filePath string) (string, error) {
	job := &Job{
		ID:        util.NewHexID(),
		FilePath:  filePath,
		Status:    StatusPending,
		CreatedAt: m.now(),
	}
	if err := m.store.CreateJob(job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	metrics.IncrJobsCreated()
	m.log.Debug("job created", "job_id", job.ID)
	return job.ID, nil
}

// MarkProcessing moves a pending job to processing. Calling it again on a job
// that is already processing is a no-op.
func (m *Manager) MarkProcessing(id string) error {
	err := m.store.MarkProcessing(id, m.now())
	if errors.Is(err, ErrJobNotFound) {
		return nil
	}
	if errors.Is(err, ErrInvalidTransition) {
		if job, gerr := m.store.GetJob(id); gerr == nil && job.Status == StatusProcessing {
			return nil
		}
	}
	return err
}

// Complete stores the result and stamps completion.
func (m *Manager) Complete(id string, result *Result) error {
	err := m.store.SaveResult(id, result, m.now())
	if errors.Is(err, ErrJobNotFound) {
		return nil
	}
	if err == nil {
		metrics.IncrJobsCompleted()
	}
	return err
}

// Fail records errMsg and stamps completion.
func (m *Manager) Fail(id string, errMsg string) error {
	err := m.store.SaveError(id, errMsg, m.now())
	if errors.Is(err, ErrJobNotFound) {
		return nil
	}
	if err == nil {
		metrics.IncrJobsFailed()
	}
	return err
}

// Get returns a snapshot of the job or ErrJobNotFound.
func (m *Manager) Get(id string) (*Job, error) {
	return m.store.GetJob(id)
}
