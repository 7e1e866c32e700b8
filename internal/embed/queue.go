package embed

import (
	"context"
	"log/slog"
	"sync"
)

type task struct {
	ctx    context.Context
	texts  []string
	result chan<- taskResult
}

type taskResult struct {
	vectors [][]float32
	err     error
}

// Queue serializes access to a Model that is not safe for concurrent calls: every
// Embed call becomes a task handled by a single worker goroutine.
type Queue struct {
	model  Model
	logger *slog.Logger
	tasks  chan task
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewQueue starts the worker. size is the task buffer; values below 1 mean unbuffered.
func NewQueue(model Model, size int, logger *slog.Logger) *Queue {
	if size < 0 {
		size = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		model:  model,
		logger: logger,
		tasks:  make(chan task, size),
		done:   make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *Queue) Dimension() int { return q.model.Dimension() }

func (q *Queue) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	result := make(chan taskResult, 1)
	select {
	case <-q.done:
		return nil, ErrQueueClosed
	default:
	}
	select {
	case q.tasks <- task{ctx: ctx, texts: texts, result: result}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, ErrQueueClosed
	}
	select {
	case res := <-result:
		return res.vectors, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the worker; pending tasks fail with ErrQueueClosed.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.done)
		q.wg.Wait()
	})
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case t := <-q.tasks:
			q.handle(t)
		case <-q.done:
			for {
				select {
				case t := <-q.tasks:
					t.result <- taskResult{err: ErrQueueClosed}
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) handle(t task) {
	if err := t.ctx.Err(); err != nil {
		t.result <- taskResult{err: err}
		return
	}
	vectors, err := q.model.Embed(t.ctx, t.texts)
	if err != nil {
		q.logger.Warn("embed.queue.task_failed", "texts", len(t.texts), "error", err)
	}
	t.result <- taskResult{vectors: vectors, err: err}
}
