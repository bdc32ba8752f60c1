// Package effects runs best-effort side tasks (persistence, cache writes)
// detached from the request that triggered them. A failed task is logged and
// dropped; it never surfaces to the caller.
package effects

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultTaskTimeout = 15 * time.Second

// Runner executes submitted tasks with a bounded level of concurrency.
type Runner struct {
	group   *errgroup.Group
	logger  *slog.Logger
	timeout time.Duration
}

// NewRunner returns a runner that executes at most workers tasks at once.
// workers below 1 is treated as 1.
func NewRunner(workers int, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := new(errgroup.Group)
	g.SetLimit(workers)
	return &Runner{group: g, logger: logger, timeout: defaultTaskTimeout}
}

// Submit schedules fn for execution. The task runs on a detached context so
// it survives the request that spawned it, bounded by the runner's timeout.
// Blocks when all workers are busy.
func (r *Runner) Submit(name string, fn func(ctx context.Context) error) {
	r.group.Go(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		start := time.Now()
		if err := fn(ctx); err != nil {
			r.logger.Warn("background task failed",
				"task", name,
				"elapsed", time.Since(start),
				"error", err)
		}
		return nil
	})
}

// Shutdown waits for all submitted tasks to finish or for ctx to expire,
// whichever comes first.
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = r.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
