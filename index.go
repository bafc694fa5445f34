package voyager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/canbakiskan/voyager-go/distance"
	"github.com/canbakiskan/voyager-go/internal/header"
	"github.com/canbakiskan/voyager-go/internal/hnsw"
	"github.com/canbakiskan/voyager-go/internal/labels"
	"github.com/canbakiskan/voyager-go/internal/parallel"
	"github.com/canbakiskan/voyager-go/quantization"
	"github.com/canbakiskan/voyager-go/resource"
)

// Stats describes the graph: parameters, storage counters and per-layer
// connectivity.
type Stats = hnsw.Stats

// Index is an approximate nearest neighbor index over fixed-dimension
// vectors, addressed by uint64 labels.
//
// All methods are safe for concurrent use. Queries running concurrently
// with insertions see a consistent graph but not a snapshot.
type Index struct {
	graph  *hnsw.Graph
	labels *labels.Map
	ef     atomic.Int64

	// meta holds the header fields that have no effect on the graph but
	// are carried through save and load.
	meta header.Metadata

	logger  *Logger
	metrics MetricsCollector
	rc      *resource.Controller

	// resizeMu serializes capacity changes with their memory accounting.
	resizeMu sync.Mutex
	reserved int64
	closed   atomic.Bool
}

// New creates an empty index for vectors of numDimensions components
// compared in space.
func New(space distance.Space, numDimensions int, optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if !space.Valid() {
		return nil, &ErrUnknownEnumValue{Kind: "Space", Value: int(space)}
	}
	if !opts.StorageDataType.Valid() {
		return nil, &ErrUnknownEnumValue{Kind: "StorageDataType", Value: int(opts.StorageDataType)}
	}
	if opts.Ef < 1 {
		return nil, fmt.Errorf("%w: ef must be positive, got %d", ErrArgument, opts.Ef)
	}

	g, err := hnsw.New(func(o *hnsw.Options) {
		o.Dimension = numDimensions
		o.M = opts.M
		o.EfConstruction = opts.EfConstruction
		o.Capacity = opts.MaxElements
		o.RandomSeed = opts.RandomSeed
		o.Space = space
		o.DataType = opts.StorageDataType
	})
	if err != nil {
		return nil, translateError(err)
	}

	meta := header.Metadata{
		NumDimensions:   numDimensions,
		Space:           space,
		StorageDataType: opts.StorageDataType,
	}
	return newIndex(g, labels.New(), meta, opts)
}

func newIndex(g *hnsw.Graph, lm *labels.Map, meta header.Metadata, opts Options) (*Index, error) {
	opts.setDefaults()

	idx := &Index{
		graph:   g,
		labels:  lm,
		meta:    meta,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		rc:      opts.Resource,
	}
	idx.ef.Store(int64(opts.Ef))

	bytes := idx.capacityBytes(g.Capacity())
	if err := idx.rc.TryAcquireMemory(bytes); err != nil {
		return nil, translateError(fmt.Errorf("reserve %d elements: %w", g.Capacity(), err))
	}
	idx.reserved = bytes
	return idx, nil
}

func (idx *Index) capacityBytes(capacity int) int64 {
	return int64(capacity) * int64(idx.graph.ElementSize())
}

// AddItem adds v to the index and returns its label. Without an explicit
// label the next unused automatic label is assigned.
//
// A label whose element was marked deleted may be added again; the label
// then refers to the new element and the old one stays deleted.
func (idx *Index) AddItem(v []float32, label ...uint64) (uint64, error) {
	start := time.Now()
	id, err := idx.addItem(v, label)
	idx.metrics.RecordInsert(time.Since(start), err)
	idx.logger.LogInsert(context.Background(), id, len(v), err)
	return id, err
}

func (idx *Index) addItem(v []float32, label []uint64) (uint64, error) {
	if idx.closed.Load() {
		return 0, ErrClosed
	}
	if len(label) > 1 {
		return 0, fmt.Errorf("%w: at most one label, got %d", ErrArgument, len(label))
	}
	if dim := idx.graph.Dimension(); len(v) != dim {
		return 0, &ErrDimensionMismatch{Expected: dim, Actual: len(v)}
	}

	var r labels.Reservation
	if len(label) == 1 {
		var err error
		if r, err = idx.labels.Reserve(label[0]); err != nil {
			return 0, &ErrDuplicateLabel{Label: label[0]}
		}
	} else {
		r = idx.labels.ReserveNext()
	}

	slot, err := idx.graph.Insert(v, r.Label)
	if err != nil {
		idx.labels.Release(r)
		return r.Label, translateError(err)
	}
	idx.labels.Commit(r, slot)
	return r.Label, nil
}

// AddItems adds vs and returns their labels in input order. labels is
// either nil, for automatic labels, or has one label per vector.
//
// Every vector is checked and every label reserved before the first
// insertion. Insertion then runs on up to numThreads goroutines (-1 for
// one per CPU) and is best-effort: after the first failure no new items
// start, and items already added stay in the index.
func (idx *Index) AddItems(vs [][]float32, lbls []uint64, numThreads int) ([]uint64, error) {
	start := time.Now()
	var applied atomic.Int64
	out, err := idx.addItems(vs, lbls, numThreads, &applied)
	failed := len(vs) - int(applied.Load())
	idx.metrics.RecordBatchInsert(len(vs), failed, time.Since(start))
	idx.logger.LogBatchInsert(context.Background(), len(vs), failed, err)
	return out, err
}

func (idx *Index) addItems(vs [][]float32, lbls []uint64, numThreads int, applied *atomic.Int64) ([]uint64, error) {
	if idx.closed.Load() {
		return nil, ErrClosed
	}
	if lbls != nil && len(lbls) != len(vs) {
		return nil, fmt.Errorf("%w: got %d labels for %d vectors", ErrArgument, len(lbls), len(vs))
	}
	dim := idx.graph.Dimension()
	for _, v := range vs {
		if len(v) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(v)}
		}
	}
	if len(vs) == 0 {
		return []uint64{}, nil
	}

	res := make([]labels.Reservation, 0, len(vs))
	done := make([]bool, len(vs))
	release := func() {
		for i := len(res) - 1; i >= 0; i-- {
			if !done[i] {
				idx.labels.Release(res[i])
			}
		}
	}

	for i := range vs {
		if lbls == nil {
			res = append(res, idx.labels.ReserveNext())
			continue
		}
		r, err := idx.labels.Reserve(lbls[i])
		if err != nil {
			release()
			return nil, &ErrDuplicateLabel{Label: lbls[i]}
		}
		res = append(res, r)
	}

	ctx := context.Background()
	workers, err := idx.rc.AcquireWorkers(ctx, parallel.Workers(numThreads, len(vs)))
	if err != nil {
		release()
		return nil, err
	}
	defer idx.rc.ReleaseWorkers(workers)

	err = parallel.For(ctx, len(vs), workers, func(i int) error {
		slot, err := idx.graph.Insert(vs[i], res[i].Label)
		if err != nil {
			return translateError(err)
		}
		idx.labels.Commit(res[i], slot)
		done[i] = true
		applied.Add(1)
		return nil
	})
	if err != nil {
		release()
		return nil, err
	}

	out := make([]uint64, len(res))
	for i, r := range res {
		out[i] = r.Label
	}
	return out, nil
}

// GetVector returns the stored vector of label, decoded to float32. For
// Cosine indexes this is the normalized vector. Deleted labels are still
// retrievable.
func (idx *Index) GetVector(label uint64) ([]float32, error) {
	slot, _, err := idx.labels.Slot(label)
	if err != nil {
		return nil, &ErrLabelNotFound{Label: label}
	}
	v, err := idx.graph.Vector(slot)
	if err != nil {
		return nil, translateError(err)
	}
	return v, nil
}

// GetVectors returns the vectors of labels in order.
func (idx *Index) GetVectors(labels []uint64) ([][]float32, error) {
	out := make([][]float32, len(labels))
	for i, label := range labels {
		v, err := idx.GetVector(label)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// MarkDeleted hides label from query results. Its vector stays
// retrievable and the label can be restored with UnmarkDeleted. Marking a
// deleted label again is a no-op.
func (idx *Index) MarkDeleted(label uint64) error {
	return idx.setDeleted(label, true)
}

// UnmarkDeleted restores a label hidden by MarkDeleted.
func (idx *Index) UnmarkDeleted(label uint64) error {
	return idx.setDeleted(label, false)
}

func (idx *Index) setDeleted(label uint64, deleted bool) error {
	start := time.Now()
	err := idx.labels.SetDeleted(label, deleted, func(slot uint32) error {
		var err error
		if deleted {
			_, err = idx.graph.MarkDeleted(slot)
		} else {
			_, err = idx.graph.UnmarkDeleted(slot)
		}
		return err
	})
	switch {
	case errors.Is(err, labels.ErrNotFound):
		err = &ErrLabelNotFound{Label: label}
	case err != nil:
		err = translateError(err)
	}
	idx.metrics.RecordDelete(time.Since(start), err)
	idx.logger.LogDelete(context.Background(), label, deleted, err)
	return err
}

// Resize sets the capacity to n. It fails with ErrCapacityExceeded and
// leaves the index unchanged when n is below NumElements.
func (idx *Index) Resize(n int) error {
	idx.resizeMu.Lock()
	defer idx.resizeMu.Unlock()

	from := idx.graph.Capacity()
	err := idx.resize(n)
	idx.logger.LogResize(context.Background(), from, n, err)
	return err
}

func (idx *Index) resize(n int) error {
	if idx.closed.Load() {
		return ErrClosed
	}
	if used := idx.graph.Len(); n < used {
		return &ErrCapacityExceeded{Capacity: n, Requested: used}
	}

	bytes := idx.capacityBytes(n)
	delta := bytes - idx.reserved
	if err := idx.rc.TryAcquireMemory(delta); err != nil {
		return translateError(fmt.Errorf("resize to %d elements: %w", n, err))
	}
	if err := idx.graph.Resize(n); err != nil {
		idx.rc.ReleaseMemory(delta)
		return translateError(err)
	}
	idx.rc.ReleaseMemory(-delta)
	idx.reserved = bytes
	return nil
}

// SetMaxElements is Resize.
func (idx *Index) SetMaxElements(n int) error { return idx.Resize(n) }

// GetDistance returns the distance between a and b in the index's space.
// Cosine inputs are normalized first.
func (idx *Index) GetDistance(a, b []float32) (float32, error) {
	d, err := idx.graph.Distance(a, b)
	if err != nil {
		return 0, translateError(err)
	}
	return d, nil
}

// Space returns the distance space.
func (idx *Index) Space() distance.Space { return idx.graph.Space() }

// NumDimensions returns the vector dimensionality.
func (idx *Index) NumDimensions() int { return idx.graph.Dimension() }

// M returns the graph connectivity.
func (idx *Index) M() int { return idx.graph.M() }

// EfConstruction returns the construction-time candidate list size.
func (idx *Index) EfConstruction() int { return idx.graph.EfConstruction() }

// MaxElements returns the capacity.
func (idx *Index) MaxElements() int { return idx.graph.Capacity() }

// StorageDataType returns the vector encoding.
func (idx *Index) StorageDataType() quantization.DataType { return idx.graph.DataType() }

// NumElements returns the number of elements, deleted ones included.
func (idx *Index) NumElements() int { return idx.graph.Len() }

// Len returns the number of live labels.
func (idx *Index) Len() int { return idx.labels.Len() }

// IDs returns the live labels in ascending order.
func (idx *Index) IDs() []uint64 { return idx.labels.IDs() }

// Has reports whether label is live.
func (idx *Index) Has(label uint64) bool { return idx.labels.Has(label) }

// Ef returns the default query-time candidate list size.
func (idx *Index) Ef() int { return int(idx.ef.Load()) }

// SetEf sets the default query-time candidate list size.
func (idx *Index) SetEf(ef int) error {
	if ef < 1 {
		return fmt.Errorf("%w: ef must be positive, got %d", ErrArgument, ef)
	}
	idx.ef.Store(int64(ef))
	return nil
}

// Stats returns graph statistics.
func (idx *Index) Stats() Stats { return idx.graph.Stats() }

func (idx *Index) String() string {
	return fmt.Sprintf("Index(space=%s, dimensions=%d, storageDatatType=%s, M=%d, efConstruction=%d, numElements=%d, maxElements=%d)",
		idx.Space().ShortName(),
		idx.NumDimensions(),
		idx.StorageDataType(),
		idx.M(),
		idx.EfConstruction(),
		idx.NumElements(),
		idx.MaxElements(),
	)
}

// Close releases the index's memory reservation with its resource
// controller. Reads keep working; additions and resizes fail with
// ErrClosed. Close is idempotent.
func (idx *Index) Close() error {
	if !idx.closed.CompareAndSwap(false, true) {
		return nil
	}
	idx.resizeMu.Lock()
	defer idx.resizeMu.Unlock()
	idx.rc.ReleaseMemory(idx.reserved)
	idx.reserved = 0
	return nil
}
