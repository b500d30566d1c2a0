package host

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/auto-apply/internal/config"
	"github.com/jonathan/auto-apply/internal/types"
)

type countingRunner struct {
	mu        sync.Mutex
	processed []types.ApplicationRequest
	status    types.Status
	err       error

	active    atomic.Int64
	maxActive atomic.Int64
	delay     time.Duration
}

func (r *countingRunner) Run(ctx context.Context, req types.ApplicationRequest) (*types.ApplicationRecord, error) {
	cur := r.active.Add(1)
	for {
		max := r.maxActive.Load()
		if cur <= max || r.maxActive.CompareAndSwap(max, cur) {
			break
		}
	}
	defer r.active.Add(-1)

	if r.delay > 0 {
		time.Sleep(r.delay)
	}

	r.mu.Lock()
	r.processed = append(r.processed, req)
	r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	status := r.status
	if status == "" {
		status = types.StatusSubmitted
	}
	return &types.ApplicationRecord{ID: uuid.New(), Status: status}, nil
}

func testQueue(t *testing.T) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	queue, err := newQueueWithClient(client, "test:applications")
	require.NoError(t, err)
	return queue
}

func validRequest() types.ApplicationRequest {
	return types.ApplicationRequest{
		UserID: uuid.New(),
		Job: types.JobContext{
			JobID:   uuid.New(),
			URL:     "https://boards.greenhouse.io/acme/jobs/1",
			Company: "Acme",
		},
	}
}

func hostConfig(poolSize int) *config.Config {
	cfg := config.Defaults()
	cfg.PoolSize = poolSize
	return &cfg
}

func TestQueue_RoundTrip(t *testing.T) {
	queue := testQueue(t)
	req := validRequest()

	require.NoError(t, queue.Enqueue(context.Background(), req))

	depth, err := queue.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	got, err := queue.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, req.UserID, got.UserID)
	assert.Equal(t, req.Job.JobID, got.Job.JobID)
	assert.Equal(t, req.Job.URL, got.Job.URL)
}

func TestQueue_RejectsInvalidPayload(t *testing.T) {
	queue := testQueue(t)

	req := validRequest()
	req.Job.URL = "not-a-url"
	err := queue.Enqueue(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	depth, err := queue.Depth(context.Background())
	require.NoError(t, err)
	assert.Zero(t, depth, "invalid payloads never reach the queue")
}

func TestExecute_DirectMode(t *testing.T) {
	runner := &countingRunner{status: types.StatusSubmitted}
	h := New(runner, nil, NewMetrics(), hostConfig(2), zap.NewNop())

	record, err := h.Execute(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, types.StatusSubmitted, record.Status)

	stats := h.Stats(context.Background())
	assert.Equal(t, int64(1), stats.Started)
	assert.Equal(t, int64(1), stats.Submitted)
	assert.Equal(t, int64(0), stats.Active)
}

func TestExecute_RunnerErrorCounted(t *testing.T) {
	runner := &countingRunner{err: errors.New("db down")}
	h := New(runner, nil, nil, hostConfig(1), zap.NewNop())

	_, err := h.Execute(context.Background(), validRequest())
	require.Error(t, err)

	stats := h.Stats(context.Background())
	assert.Equal(t, int64(1), stats.Errors)
	assert.Equal(t, int64(0), stats.Submitted)
}

func TestExecute_ConcurrencyCap(t *testing.T) {
	runner := &countingRunner{delay: 50 * time.Millisecond}
	h := New(runner, nil, nil, hostConfig(2), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Execute(context.Background(), validRequest())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, runner.maxActive.Load(), int64(2), "pool cap must bound concurrency")
	assert.Len(t, runner.processed, 6)
}

func TestServe_DrainsQueue(t *testing.T) {
	queue := testQueue(t)
	runner := &countingRunner{}
	h := New(runner, queue, NewMetrics(), hostConfig(2), zap.NewNop())

	for i := 0; i < 3; i++ {
		require.NoError(t, queue.Enqueue(context.Background(), validRequest()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Serve(ctx) }()

	// Wait for all three requests to be processed, then stop the pool.
	require.Eventually(t, func() bool {
		runner.mu.Lock()
		defer runner.mu.Unlock()
		return len(runner.processed) == 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	stats := h.Stats(context.Background())
	assert.Equal(t, int64(3), stats.Started)
	assert.Equal(t, int64(3), stats.Submitted)
}

func TestStats_IncludesQueueDepth(t *testing.T) {
	queue := testQueue(t)
	h := New(&countingRunner{}, queue, nil, hostConfig(1), zap.NewNop())

	for i := 0; i < 2; i++ {
		require.NoError(t, h.Enqueue(context.Background(), validRequest()))
	}

	stats := h.Stats(context.Background())
	assert.Equal(t, int64(2), stats.QueueDepth)
}

func TestEnqueue_WithoutQueueFails(t *testing.T) {
	h := New(&countingRunner{}, nil, nil, hostConfig(1), zap.NewNop())
	err := h.Enqueue(context.Background(), validRequest())
	assert.Error(t, err)
}
