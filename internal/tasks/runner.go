// Package tasks runs fire-and-forget background work on a bounded worker
// pool. Submitted work is tracked so failures are logged and counted and
// shutdown can drain what is still pending.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrClosed = errors.New("task runner is shut down")

type task struct {
	name string
	fn   func(ctx context.Context) error
}

type Stats struct {
	Submitted  int64 `json:"submitted"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Overflowed int64 `json:"overflowed"`
	Dropped    int64 `json:"dropped"`
}

type Runner struct {
	logger *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	closed   bool
	queue    chan task
	workers  *errgroup.Group
	overflow sync.WaitGroup

	submitted  atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64
	overflowed atomic.Int64
	dropped    atomic.Int64
}

// New starts workers goroutines consuming a queue of queueSize tasks.
func New(logger *zap.SugaredLogger, workers, queueSize int) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		queue:   make(chan task, queueSize),
		workers: &errgroup.Group{},
	}

	for i := 0; i < workers; i++ {
		r.workers.Go(func() error {
			for t := range r.queue {
				r.run(t)
			}
			return nil
		})
	}

	return r
}

// Go schedules fn and returns immediately. When the queue is full the task
// runs on its own goroutine instead of blocking the caller.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		r.logger.Warnw("task dropped", "task", name, "error", ErrClosed)
		return
	}

	r.submitted.Add(1)
	t := task{name: name, fn: fn}

	select {
	case r.queue <- t:
	default:
		r.overflowed.Add(1)
		r.overflow.Add(1)
		go func() {
			defer r.overflow.Done()
			r.run(t)
		}()
	}
}

func (r *Runner) run(t task) {
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return t.fn(r.ctx)
	}()

	if err != nil {
		r.logger.Warnw("background task failed", "task", t.name, "error", err)
		r.failed.Add(1)
		return
	}

	r.completed.Add(1)
}

// Shutdown stops accepting work and waits for queued and running tasks.
// If ctx expires first, the context handed to running tasks is cancelled
// and ctx.Err() is returned.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = r.workers.Wait()
		r.overflow.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	}
}

func (r *Runner) Stats() Stats {
	return Stats{
		Submitted:  r.submitted.Load(),
		Completed:  r.completed.Load(),
		Failed:     r.failed.Load(),
		Overflowed: r.overflowed.Load(),
		Dropped:    r.dropped.Load(),
	}
}
