package jobs

import (
	"errors"
	"sync"
	"time"
)

// MemoryStore keeps jobs in a map guarded by a read-write lock. Jobs live only
// as long as the process.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) CreateJob(job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.ID == "" {
		return errors.New("job.ID is required")
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = StatusPending
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *MemoryStore) MarkProcessing(id string, startedAt time.Time) error {
	return s.transition(id, []Status{StatusPending}, func(j *Job) {
		j.Status = StatusProcessing
		t := startedAt
		j.StartedAt = &t
	})
}

func (s *MemoryStore) SaveResult(id string, result *Result, completedAt time.Time) error {
	return s.transition(id, []Status{StatusPending, StatusProcessing}, func(j *Job) {
		j.Status = StatusCompleted
		if result != nil {
			r := *result
			j.Result = &r
		}
		j.ErrorMessage = nil
		t := completedAt
		j.CompletedAt = &t
	})
}

func (s *MemoryStore) SaveError(id string, errMsg string, completedAt time.Time) error {
	return s.transition(id, []Status{StatusPending, StatusProcessing}, func(j *Job) {
		j.Status = StatusFailed
		e := errMsg
		j.ErrorMessage = &e
		j.Result = nil
		t := completedAt
		j.CompletedAt = &t
	})
}

func (s *MemoryStore) transition(id string, from []Status, apply func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	for _, st := range from {
		if j.Status == st {
			apply(j)
			return nil
		}
	}
	return ErrInvalidTransition
}

func (s *MemoryStore) GetJob(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return cloneJob(j), nil
}

func (s *MemoryStore) Close() error { return nil }
