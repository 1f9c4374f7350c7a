package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/common"
)

// ShutdownMessage is recorded on jobs that were still queued when the queue
// shut down.
const ShutdownMessage = "server shutting down"

// WorkItem carries the job snapshot to process and a cleanup func for the uploaded audio file.
type WorkItem struct {
	Job     Job
	Cleanup func() error
}

var (
	ErrQueueNotStarted = errors.New("queue not started")
	ErrQueueFull       = errors.New("queue is full")
	ErrQueueClosed     = errors.New("queue is shut down")
)

// Processor defines how to process a WorkItem.
type Processor interface {
	Process(ctx context.Context, item WorkItem) error
}

type queueState int

const (
	queueIdle queueState = iota
	queueRunning
	queueClosed
)

// Queue feeds WorkItems from a bounded buffer to a fixed pool of workers.
// Items still buffered at Shutdown are abandoned: their jobs are failed with
// ShutdownMessage on the attached Manager and their cleanup runs.
type Queue struct {
	log     *slog.Logger
	items   chan WorkItem
	workers int
	jobs    *Manager

	mu     sync.Mutex
	state  queueState
	cancel context.CancelFunc

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewQueue creates a Queue with the given capacity and worker count.
func NewQueue(logger *slog.Logger, capacity int, workers int) *Queue {
	if capacity <= 0 {
		capacity = common.DefaultQueueCapacity
	}
	if workers <= 0 {
		workers = common.DefaultWorkerCount
	}
	return &Queue{
		log:     logger,
		items:   make(chan WorkItem, capacity),
		workers: workers,
	}
}

// FailAbandonedOn attaches the Manager that records abandoned jobs as failed.
func (q *Queue) FailAbandonedOn(m *Manager) *Queue {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = m
	return q
}

// Start launches the workers. Cancelling ctx stops in-flight work; anything a
// worker receives afterwards is abandoned instead of processed.
func (q *Queue) Start(ctx context.Context, p Processor) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch q.state {
	case queueRunning:
		return errors.New("queue already started")
	case queueClosed:
		return ErrQueueClosed
	}
	ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(q.workers)
	for i := range q.workers {
		go q.work(ctx, p, q.log.With("worker", i))
	}
	q.state = queueRunning
	return nil
}

func (q *Queue) work(ctx context.Context, p Processor, log *slog.Logger) {
	defer q.wg.Done()
	for item := range q.items {
		if ctx.Err() != nil {
			q.abandon(item)
			continue
		}
		q.handle(ctx, p, log.With("job_id", item.Job.ID), item)
	}
	log.Debug("queue closed, worker exiting")
}

func (q *Queue) handle(ctx context.Context, p Processor, log *slog.Logger, item WorkItem) {
	log.Info("processing job", "status", item.Job.Status)
	start := time.Now()
	if err := p.Process(ctx, item); err != nil {
		log.Error("job processing failed", "err", err, "duration", time.Since(start))
	} else {
		log.Info("job processed", "duration", time.Since(start))
	}
	q.cleanup(log, item)
}

func (q *Queue) abandon(item WorkItem) {
	log := q.log.With("job_id", item.Job.ID)
	log.Warn("job abandoned at shutdown")
	q.mu.Lock()
	m := q.jobs
	q.mu.Unlock()
	if m != nil {
		if err := m.Fail(item.Job.ID, ShutdownMessage); err != nil {
			log.Warn("record abandoned job", "err", err)
		}
	}
	q.cleanup(log, item)
}

func (q *Queue) cleanup(log *slog.Logger, item WorkItem) {
	if item.Cleanup == nil {
		return
	}
	if err := item.Cleanup(); err != nil {
		log.Warn("cleanup failed", "err", err)
	}
}

// Len reports how many items are waiting for a worker.
func (q *Queue) Len() int { return len(q.items) }

// Enqueue adds a WorkItem without blocking. It returns ErrQueueFull when the
// buffer is at capacity.
func (q *Queue) Enqueue(item WorkItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch q.state {
	case queueIdle:
		return ErrQueueNotStarted
	case queueClosed:
		return ErrQueueClosed
	}
	select {
	case q.items <- item:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting work, cancels in-flight jobs, fails everything
// still buffered and waits up to deadline for the workers to exit. A
// non-positive deadline waits indefinitely.
func (q *Queue) Shutdown(deadline time.Duration) {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.state = queueClosed
		if q.cancel != nil {
			q.cancel()
		}
		close(q.items)
		q.mu.Unlock()

		// Workers drain too; whichever receiver gets an item abandons it.
		for item := range q.items {
			q.abandon(item)
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			q.wg.Wait()
		}()
		if deadline <= 0 {
			<-done
			return
		}
		timer := time.NewTimer(deadline)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			q.log.Warn("queue shutdown deadline reached; workers may still be running")
		}
	})
}
