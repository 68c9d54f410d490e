package waitfor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/amp-labs/amp-wait/bgworker"
	"github.com/amp-labs/amp-wait/contexts"
	"github.com/amp-labs/amp-wait/errors"
	"github.com/amp-labs/amp-wait/logger"
)

// All runs every wait concurrently on the background worker pool and blocks
// until all of them settle. Each wait gets its own operation id. Failures are
// collected per wait, prefixed with the target, and reported together; a
// single failed wait fails the whole batch.
func All(ctx context.Context, w *Waiter, specs []Spec) error {
	if len(specs) == 0 {
		return nil
	}

	log := logger.Get(ctx)

	if remaining, ok := contexts.Remaining(ctx); ok {
		log.Debug("starting waits", "count", len(specs), "budget", remaining.String())
	} else {
		log.Debug("starting waits", "count", len(specs))
	}

	var succeeded atomic.Int64

	tasks := make([]interface{ Wait() error }, len(specs))

	for i, spec := range specs {
		tasks[i] = bgworker.SubmitErr(ctx, func() error {
			waitCtx := logger.WithOperation(ctx, uuid.NewString())

			if _, err := w.Run(waitCtx, spec); err != nil {
				return err
			}

			succeeded.Inc()

			return nil
		})
	}

	// Tasks run concurrently on the pool; this loop only collects results, so
	// Collection's lack of locking is fine.
	var errs errors.Collection

	for i, task := range tasks {
		if err := task.Wait(); err != nil {
			errs.Add(fmt.Errorf("%s: %w", specs[i].Object(), err))
		}
	}

	log.Info("waits finished",
		"total", len(specs),
		"succeeded", succeeded.Load(),
		"failed", errs.Len(),
	)

	return errs.GetError()
}
