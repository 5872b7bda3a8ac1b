package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
)

// fanOut runs fn over items with at most workers in flight, waits for the
// whole batch and returns results in input order. Pools are per-batch: the
// bulkhead is created here and fully drained before returning; nothing
// outlives the call. A unit the bulkhead refuses keeps its zero-value result
// and is logged.
func fanOut[T, R any](ctx context.Context, workers int, logger *slog.Logger, items []T, fn func(context.Context, T) R) []R {
	if len(items) == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	bh := bulkhead.New[R](bulkhead.Config{
		MaxConcurrent: workers,
		MaxQueue:      len(items),
		QueueTimeout:  24 * time.Hour,
	})

	results := make([]R, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			r, err := bh.Execute(ctx, func(ctx context.Context) (R, error) {
				return fn(ctx, item), nil
			})
			if err != nil {
				logger.Warn("work unit not dispatched", "unit", i, "reason", err)
			}
			results[i] = r
		}(i, item)
	}
	wg.Wait()
	return results
}
