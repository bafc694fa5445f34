package voyager

import (
	"context"
	"fmt"
	"time"

	"github.com/canbakiskan/voyager-go/internal/parallel"
)

// Neighbors is the result of one query: labels ordered by ascending
// distance, with their distances at the same positions.
type Neighbors struct {
	Labels    []uint64
	Distances []float32
}

// Len returns the number of neighbors.
func (n Neighbors) Len() int { return len(n.Labels) }

func applyQueryOptions(opts []QueryOption) queryOptions {
	o := queryOptions{numThreads: -1}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// Query returns the k nearest live labels to q. When fewer than k labels
// are live, all of them are returned. Ties in distance are broken by
// insertion order.
func (idx *Index) Query(q []float32, k int, opts ...QueryOption) (Neighbors, error) {
	o := applyQueryOptions(opts)
	if k <= 0 {
		return Neighbors{}, fmt.Errorf("%w: k must be positive, got %d", ErrArgument, k)
	}
	return idx.query(q, k, idx.queryEf(o))
}

// QueryBatch runs Query for every vector of qs, on up to
// WithNumThreads goroutines. All vectors are checked before any search
// starts.
func (idx *Index) QueryBatch(qs [][]float32, k int, opts ...QueryOption) ([]Neighbors, error) {
	o := applyQueryOptions(opts)
	if len(qs) == 0 {
		return nil, fmt.Errorf("%w: empty query batch", ErrArgument)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrArgument, k)
	}
	dim := idx.graph.Dimension()
	for _, q := range qs {
		if len(q) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(q)}
		}
	}

	ef := idx.queryEf(o)
	out := make([]Neighbors, len(qs))

	ctx := context.Background()
	workers, err := idx.rc.AcquireWorkers(ctx, parallel.Workers(o.numThreads, len(qs)))
	if err != nil {
		return nil, err
	}
	defer idx.rc.ReleaseWorkers(workers)

	err = parallel.For(ctx, len(qs), workers, func(i int) error {
		n, err := idx.query(qs[i], k, ef)
		if err != nil {
			return err
		}
		out[i] = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (idx *Index) queryEf(o queryOptions) int {
	if o.ef > 0 {
		return o.ef
	}
	return idx.Ef()
}

func (idx *Index) query(q []float32, k, ef int) (Neighbors, error) {
	start := time.Now()
	res, err := idx.graph.Search(q, k, ef)
	err = translateError(err)
	idx.metrics.RecordSearch(k, time.Since(start), err)
	idx.logger.LogSearch(context.Background(), k, len(res), err)
	if err != nil {
		return Neighbors{}, err
	}

	n := Neighbors{
		Labels:    make([]uint64, len(res)),
		Distances: make([]float32, len(res)),
	}
	for i, r := range res {
		n.Labels[i] = r.Label
		n.Distances[i] = r.Distance
	}
	return n, nil
}
