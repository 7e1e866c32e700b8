package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-fields/internal/pipeline"
)

type stubProcessor struct {
	calls atomic.Int32
	delay time.Duration
}

func (s *stubProcessor) Process(ctx context.Context, req pipeline.Request) (pipeline.Report, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if req.Path == "bad.pdf" {
		err := errors.New("boom")
		return pipeline.Report{Path: req.Path, Err: err}, err
	}
	return pipeline.Report{Path: req.Path}, nil
}

func TestQueueRunsJobsAndReportsStatus(t *testing.T) {
	proc := &stubProcessor{}
	var mu sync.Mutex
	seen := map[string]bool{}
	q := NewProcessorQueue(proc, nil, WithWorkers(2), WithResultHandler(func(j Job, r pipeline.Report) {
		mu.Lock()
		seen[r.Path] = r.Err == nil
		mu.Unlock()
	}))

	ok, err := q.Enqueue(context.Background(), pipeline.Request{Path: "a.pdf"})
	require.NoError(t, err)
	bad, err := q.Enqueue(context.Background(), pipeline.Request{Path: "bad.pdf"})
	require.NoError(t, err)

	q.Shutdown(context.Background())
	assert.Equal(t, int32(2), proc.calls.Load())
	assert.Equal(t, map[string]bool{"a.pdf": true, "bad.pdf": false}, seen)

	st, found := q.Status(ok)
	require.True(t, found)
	assert.Equal(t, StateDone, st.State)
	require.NotNil(t, st.Report)
	assert.Equal(t, "a.pdf", st.Report.Path)

	st, _ = q.Status(bad)
	assert.Equal(t, StateFailed, st.State)

	_, found = q.Status(uuid.New())
	assert.False(t, found)
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&stubProcessor{}, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())
	_, err := q.Enqueue(context.Background(), pipeline.Request{Path: "a.pdf"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestEnqueueBackpressureHonoursContext(t *testing.T) {
	proc := &stubProcessor{delay: 200 * time.Millisecond}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))
	defer q.Shutdown(context.Background())

	_, err := q.Enqueue(context.Background(), pipeline.Request{Path: "1.pdf"})
	require.NoError(t, err)
	// wait until the worker holds the first job so the buffer slot is free
	require.Eventually(t, func() bool { return proc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	_, err = q.Enqueue(context.Background(), pipeline.Request{Path: "2.pdf"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = q.Enqueue(ctx, pipeline.Request{Path: "3.pdf"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFinishedJobsExpire(t *testing.T) {
	proc := &stubProcessor{}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithJobRetention(time.Minute, 100))
	var mu sync.Mutex
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}

	id, err := q.Enqueue(context.Background(), pipeline.Request{Path: "a.pdf"})
	require.NoError(t, err)
	q.Shutdown(context.Background())

	st, found := q.Status(id)
	require.True(t, found)
	assert.Equal(t, StateDone, st.State)
	assert.Equal(t, clock, st.FinishedAt)

	mu.Lock()
	clock = clock.Add(2 * time.Minute)
	mu.Unlock()
	_, found = q.Status(id)
	assert.False(t, found)
	assert.Equal(t, 0, q.Len())
}

func TestFinishedJobsAreCapped(t *testing.T) {
	proc := &stubProcessor{}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithJobRetention(time.Hour, 3))

	ids := make([]uuid.UUID, 0, 10)
	for i := 0; i < 10; i++ {
		id, err := q.Enqueue(context.Background(), pipeline.Request{Path: "a.pdf"})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	q.Shutdown(context.Background())

	assert.Equal(t, 3, q.Len())
	for _, id := range ids[:7] {
		_, found := q.Status(id)
		assert.False(t, found)
	}
	for _, id := range ids[7:] {
		st, found := q.Status(id)
		require.True(t, found)
		assert.Equal(t, StateDone, st.State)
	}
}
