// Package parallel runs indexed work over a bounded pool of goroutines.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers resolves a requested worker count. Values below 1 (the -1
// convention included) mean one worker per CPU. The result never exceeds
// n, the number of work items, and is at least 1.
func Workers(requested, n int) int {
	w := requested
	if w < 1 {
		w = runtime.NumCPU()
	}
	return max(1, min(w, n))
}

// For calls fn(i) for every i in [0, n) using at most workers goroutines and
// waits for all of them. After the first error no further items are
// dispatched; items already running finish. The first error is returned.
func For(ctx context.Context, n, workers int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	if workers <= 1 {
		for i := range n {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
