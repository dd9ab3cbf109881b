package etl

import (
	"context"

	"github.com/gperdrizet/OpenSearch/pkg/queue"
)

// Transform is the pure per-record function applied by workers in a stage
// (spec §4.4). It is deterministic with respect to its input and whatever
// configuration was closed over when it was constructed; it carries no
// cross-record state. A transform may emit zero, one, or many output
// records.
type Transform[In, Out any] func(ctx context.Context, in In) ([]Out, error)

// runWorker drains in, applies tf to every payload, and forwards results to
// out, exactly once forwarding the sentinel itself on EOS (spec §4.4's
// worker loop). It returns the first error encountered, if any.
func runWorker[In, Out any](ctx context.Context, in *queue.Queue[In], out *queue.Queue[Out], tf Transform[In, Out]) error {
	for {
		item, ok := in.Get(ctx)
		if !ok {
			return ctx.Err()
		}
		if item.IsSentinel {
			return out.PutSentinel(ctx)
		}

		results, err := tf(ctx, item.Payload)
		if err != nil {
			return err
		}
		for _, r := range results {
			if err := out.PutValue(ctx, r); err != nil {
				return err
			}
		}
	}
}

// runPool starts n workers and waits for all of them to exit, returning the
// first error any of them reported. Each worker forwards exactly one
// sentinel to out before returning, satisfying P2 (sentinel accounting).
func runPool[In, Out any](ctx context.Context, n int, in *queue.Queue[In], out *queue.Queue[Out], tf Transform[In, Out]) error {
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			errs <- runWorker(ctx, in, out, tf)
		}()
	}

	var first error
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil && first == nil {
			first = err
		}
	}
	return first
}
