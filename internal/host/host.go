// Package host executes application requests, either directly in the
// caller's goroutine or through a capped worker pool fed by a durable
// queue.
package host

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/auto-apply/internal/config"
	"github.com/jonathan/auto-apply/internal/types"
)

// dequeueTimeout bounds each blocking pop so workers notice shutdown.
const dequeueTimeout = 5 * time.Second

// Runner executes one application request to a terminal record.
type Runner interface {
	Run(ctx context.Context, req types.ApplicationRequest) (*types.ApplicationRecord, error)
}

// Stats is a point-in-time snapshot of host activity.
type Stats struct {
	Started    int64 `json:"started"`
	Submitted  int64 `json:"submitted"`
	Manual     int64 `json:"manual_required"`
	Failed     int64 `json:"failed"`
	Errors     int64 `json:"errors"`
	Active     int64 `json:"active"`
	QueueDepth int64 `json:"queue_depth"`
}

// Host runs application requests with a concurrency cap. The cap covers
// both direct and queued execution, so a process never runs more browser
// sessions than configured.
type Host struct {
	runner  Runner
	queue   *Queue
	metrics *Metrics
	sem     *semaphore.Weighted
	cfg     *config.Config
	log     *zap.Logger

	started   atomic.Int64
	submitted atomic.Int64
	manual    atomic.Int64
	failed    atomic.Int64
	errors    atomic.Int64
	active    atomic.Int64
}

// New creates a Host. The queue may be nil for direct-only use.
func New(runner Runner, queue *Queue, metrics *Metrics, cfg *config.Config, log *zap.Logger) *Host {
	size := cfg.PoolSize
	if size < 1 {
		size = 1
	}
	return &Host{
		runner:  runner,
		queue:   queue,
		metrics: metrics,
		sem:     semaphore.NewWeighted(int64(size)),
		cfg:     cfg,
		log:     log,
	}
}

// Execute runs one request synchronously under the concurrency cap.
func (h *Host) Execute(ctx context.Context, req types.ApplicationRequest) (*types.ApplicationRecord, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer h.sem.Release(1)
	return h.run(ctx, req)
}

// Enqueue pushes a request onto the durable queue for worker execution.
func (h *Host) Enqueue(ctx context.Context, req types.ApplicationRequest) error {
	if h.queue == nil {
		return errors.New("host has no queue configured")
	}
	return h.queue.Enqueue(ctx, req)
}

// Serve consumes the queue with a pool of workers until the context is
// cancelled. Each worker holds a semaphore slot for the duration of a run.
func (h *Host) Serve(ctx context.Context) error {
	if h.queue == nil {
		return errors.New("host has no queue configured")
	}

	workers := h.cfg.PoolSize
	if workers < 1 {
		workers = 1
	}
	h.log.Info("worker pool starting", zap.Int("workers", workers))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			h.workerLoop(ctx, id)
		}(i)
	}

	wg.Wait()
	h.log.Info("worker pool drained")
	return ctx.Err()
}

func (h *Host) workerLoop(ctx context.Context, id int) {
	log := h.log.With(zap.Int("worker", id))
	for {
		if ctx.Err() != nil {
			return
		}

		req, err := h.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("dequeue failed", zap.Error(err))
			continue
		}
		if req == nil {
			if h.metrics != nil {
				if depth, err := h.queue.Depth(ctx); err == nil {
					h.metrics.QueueDepth.Set(float64(depth))
				}
			}
			continue
		}

		if err := h.sem.Acquire(ctx, 1); err != nil {
			return
		}
		_, err = h.run(ctx, *req)
		h.sem.Release(1)
		if err != nil {
			log.Error("application run failed", zap.Error(err))
		}
	}
}

// run executes one request and records its outcome in stats and metrics.
func (h *Host) run(ctx context.Context, req types.ApplicationRequest) (*types.ApplicationRecord, error) {
	h.started.Add(1)
	h.active.Add(1)
	start := time.Now()
	if h.metrics != nil {
		h.metrics.ApplicationsStarted.Inc()
		h.metrics.ActiveRuns.Inc()
	}
	defer func() {
		h.active.Add(-1)
		if h.metrics != nil {
			h.metrics.ActiveRuns.Dec()
			h.metrics.ApplicationDuration.Observe(time.Since(start).Seconds())
		}
	}()

	record, err := h.runner.Run(ctx, req)
	if err != nil {
		h.errors.Add(1)
		if h.metrics != nil {
			h.metrics.ApplicationsCompleted.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	switch record.Status {
	case types.StatusSubmitted:
		h.submitted.Add(1)
	case types.StatusManualRequired:
		h.manual.Add(1)
	case types.StatusFailed:
		h.failed.Add(1)
	}
	if h.metrics != nil {
		h.metrics.ApplicationsCompleted.WithLabelValues(string(record.Status)).Inc()
		if record.Evidence != nil && record.Evidence.Attempts > 0 {
			h.metrics.SubmitAttempts.Observe(float64(record.Evidence.Attempts))
		}
	}
	return record, nil
}

// Stats returns a snapshot of host activity, including the current queue
// depth when a queue is attached.
func (h *Host) Stats(ctx context.Context) Stats {
	stats := Stats{
		Started:   h.started.Load(),
		Submitted: h.submitted.Load(),
		Manual:    h.manual.Load(),
		Failed:    h.failed.Load(),
		Errors:    h.errors.Load(),
		Active:    h.active.Load(),
	}
	if h.queue != nil {
		depth, err := h.queue.Depth(ctx)
		if err != nil {
			h.log.Warn("failed to read queue depth", zap.Error(err))
		} else {
			stats.QueueDepth = depth
			if h.metrics != nil {
				h.metrics.QueueDepth.Set(float64(depth))
			}
		}
	}
	return stats
}
