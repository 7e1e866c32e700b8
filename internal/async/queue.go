// Package async runs pipeline requests on a background worker pool.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pdf-fields/constants"
	"github.com/joseph-ayodele/pdf-fields/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document waiting for a worker.
type Job struct {
	ID          uuid.UUID
	Request     pipeline.Request
	SubmittedAt time.Time
	TraceID     string
}

// Processor is the part of pipeline.Processor the queue needs.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Report, error)
}

type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

func (s State) terminal() bool { return s == StateDone || s == StateFailed }

// Status is the externally visible progress of a job.
type Status struct {
	ID         uuid.UUID
	State      State
	Report     *pipeline.Report
	FinishedAt time.Time
}

type ProcessorQueue struct {
	proc     Processor
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult func(Job, pipeline.Report)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// mu guards closed; senders hold it shared so Shutdown never closes ch under them.
	mu     sync.RWMutex
	closed bool

	// finished jobs are forgotten after retention or once more than maxFinished
	// of them are held, oldest first
	jobsMu      sync.Mutex
	jobs        map[uuid.UUID]*Status
	finished    []uuid.UUID
	retention   time.Duration
	maxFinished int
	now         func() time.Time
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithJobRetention bounds how long and how many finished job statuses are kept for
// Status lookups. Pending and running jobs are never dropped.
func WithJobRetention(ttl time.Duration, maxFinished int) Option {
	return func(q *ProcessorQueue) {
		if ttl > 0 {
			q.retention = ttl
		}
		if maxFinished > 0 {
			q.maxFinished = maxFinished
		}
	}
}

// WithResultHandler is called from the worker goroutine after every job.
func WithResultHandler(fn func(Job, pipeline.Report)) Option {
	return func(q *ProcessorQueue) {
		q.onResult = fn
	}
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
		jobs:    map[uuid.UUID]*Status{},

		retention:   constants.DefaultJobRetention,
		maxFinished: constants.DefaultMaxFinishedJobs,
		now:         time.Now,
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Debug("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	q.setState(job.ID, StateRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	rep, err := q.proc.Process(ctx, job.Request)
	cancel()

	if err != nil {
		q.logger.Error("async.job.failed", "worker_id", workerID, "job_id", job.ID, "path", job.Request.Path, "error", err)
		q.setState(job.ID, StateFailed, &rep)
	} else {
		q.logger.Info("async.job.ok",
			"worker_id", workerID,
			"job_id", job.ID,
			"path", job.Request.Path,
			"queued_ms", time.Since(job.SubmittedAt).Milliseconds(),
		)
		q.setState(job.ID, StateDone, &rep)
	}
	if q.onResult != nil {
		q.onResult(job, rep)
	}
}

// Enqueue blocks while the queue is full, until ctx ends.
func (q *ProcessorQueue) Enqueue(ctx context.Context, req pipeline.Request) (uuid.UUID, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("async.enqueue.closed", "path", req.Path)
		return uuid.Nil, ErrQueueClosed
	}
	job := Job{ID: uuid.New(), Request: req, SubmittedAt: time.Now()}
	q.jobsMu.Lock()
	q.jobs[job.ID] = &Status{ID: job.ID, State: StatePending}
	q.jobsMu.Unlock()

	select {
	case q.ch <- job:
	default:
		q.logger.Warn("async.enqueue.backpressure", "path", req.Path, "job_id", job.ID)
		select {
		case q.ch <- job:
		case <-ctx.Done():
			q.jobsMu.Lock()
			delete(q.jobs, job.ID)
			q.jobsMu.Unlock()
			return uuid.Nil, ctx.Err()
		}
	}
	q.logger.Debug("async.enqueue.ok", "path", req.Path, "job_id", job.ID)
	return job.ID, nil
}

// Status reports the state of a job enqueued earlier. Expired jobs are not found.
func (q *ProcessorQueue) Status(id uuid.UUID) (Status, bool) {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()
	q.evictLocked()
	s, ok := q.jobs[id]
	if !ok {
		return Status{}, false
	}
	return *s, true
}

func (q *ProcessorQueue) setState(id uuid.UUID, st State, rep *pipeline.Report) {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()
	s, ok := q.jobs[id]
	if !ok {
		return
	}
	s.State = st
	s.Report = rep
	if st.terminal() {
		s.FinishedAt = q.now()
		q.finished = append(q.finished, id)
	}
	q.evictLocked()
}

// evictLocked drops finished jobs past retention or over maxFinished. finished is in
// completion order, so expired entries are always at its head.
func (q *ProcessorQueue) evictLocked() {
	cutoff := q.now().Add(-q.retention)
	n := 0
	for n < len(q.finished) {
		s, ok := q.jobs[q.finished[n]]
		if ok && len(q.finished)-n <= q.maxFinished && s.FinishedAt.After(cutoff) {
			break
		}
		delete(q.jobs, q.finished[n])
		n++
	}
	if n > 0 {
		q.logger.Debug("async.jobs.evicted", "count", n, "retained", len(q.finished)-n)
		q.finished = append(q.finished[:0], q.finished[n:]...)
	}
}

// Len reports how many job statuses are held, pending and running ones included.
func (q *ProcessorQueue) Len() int {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()
	return len(q.jobs)
}

// Shutdown stops accepting jobs and waits for the workers to drain the queue.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("async.shutdown.interrupted")
	case <-done:
		q.logger.Info("async.shutdown.drained")
	}
}
