// Package bgworker provides a shared background worker pool with graceful
// lifecycle control. Concurrent waits (waitfor.All) run on it so that a large
// spec file cannot open an unbounded number of API connections at once.
package bgworker

import (
	"context"
	"log/slog"

	"github.com/alitto/pond/v2"

	"github.com/amp-labs/amp-wait/envutil"
	"github.com/amp-labs/amp-wait/lazy"
	"github.com/amp-labs/amp-wait/shutdown"
)

const defaultWorkerCount = 10

// workerPool is a lazy-initialized background worker pool.
var workerPool = lazy.NewCtx[pond.Pool](func(ctx context.Context) pond.Pool {
	count := envutil.Int(ctx, "WAIT_WORKER_COUNT",
		envutil.Default(defaultWorkerCount)).ValueOrElse(defaultWorkerCount)

	slog.Debug("Initializing background worker pool", "count", count)

	pool := pond.NewPool(count)

	shutdown.BeforeShutdown(func() {
		slog.Debug("Stopping background worker pool")
		pool.StopAndWait()
		slog.Debug("Background worker pool stopped")
	})

	return pool
}).WithName("bgworker-pool")

// Submit submits a function to the background worker pool.
// It returns a Task that can be used to wait for the function to complete.
func Submit(ctx context.Context, f func()) pond.Task { //nolint:ireturn
	return workerPool.Get(ctx).Submit(f)
}

// SubmitErr submits a fallible function to the background worker pool. The
// returned task yields the function's error from Wait.
func SubmitErr(ctx context.Context, f func() error) pond.Task { //nolint:ireturn
	return workerPool.Get(ctx).SubmitErr(f)
}

// Go submits a function to the background worker pool. It returns immediately.
// It returns an error if the pool is stopped.
func Go(ctx context.Context, f func()) error {
	return workerPool.Get(ctx).Go(f)
}
