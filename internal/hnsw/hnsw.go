package hnsw

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/canbakiskan/voyager-go/distance"
	"github.com/canbakiskan/voyager-go/internal/searcher"
	"github.com/canbakiskan/voyager-go/internal/vectorstore"
	"github.com/canbakiskan/voyager-go/quantization"
)

const (
	// mmax0Multiplier is the multiplier for calculating maximum connections at layer 0.
	mmax0Multiplier = 2

	// minimumM is the minimum valid value for M.
	minimumM = 2

	// maxRandomLevel caps the drawn level of a new node.
	maxRandomLevel = 64

	// DefaultM is the default number of bidirectional links.
	DefaultM = 12

	// DefaultEfConstruction is the default size of the construction candidate list.
	DefaultEfConstruction = 200

	// noEntryPoint marks an empty graph.
	noEntryPoint = math.MaxUint32
)

// Options represents the options for configuring HNSW.
type Options struct {
	Dimension      int
	M              int
	EfConstruction int
	Capacity       int
	RandomSeed     uint64
	Space          distance.Space
	DataType       quantization.DataType
}

// DefaultOptions contains the default options for HNSW.
var DefaultOptions = Options{
	M:              DefaultM,
	EfConstruction: DefaultEfConstruction,
	Capacity:       1,
	RandomSeed:     1,
	Space:          distance.Euclidean,
	DataType:       quantization.Float32,
}

// Graph is a Hierarchical Navigable Small World graph over encoded vectors.
type Graph struct {
	// mu is held shared by every operation and exclusively by Resize and
	// serialization.
	mu sync.RWMutex

	// insertMu is held for the whole insertion of a node that raises the
	// max level, so at most one such insertion is in flight.
	insertMu   sync.Mutex
	epMu       sync.RWMutex
	entryPoint uint32
	maxLevel   int

	count    atomic.Uint32
	capacity int

	nodes    *nodeTable
	vectors  *vectorstore.Store
	distFunc distance.Func
	opts     Options

	maxM           int
	maxM0          int
	efConstruction int
	mult           float64

	rngMu sync.Mutex
	rng   *rand.Rand

	scratchPool sync.Pool
}

// scratch holds the per-insertion buffers of neighbor selection.
type scratch struct {
	base     []float32
	cand     []float32
	selected [][]float32
	result   []searcher.PriorityQueueItem
	chosen   []searcher.PriorityQueueItem
	prune    []searcher.PriorityQueueItem
	ids      []uint32
}

// New creates a new HNSW graph.
func New(optFns ...func(o *Options)) (*Graph, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension <= 0 {
		return nil, &ErrInvalidDimension{Dimension: opts.Dimension}
	}
	if opts.M < minimumM {
		return nil, fmt.Errorf("%w: M must be at least %d, got %d", ErrInvalidOption, minimumM, opts.M)
	}
	if opts.EfConstruction <= 0 {
		return nil, fmt.Errorf("%w: efConstruction must be positive, got %d", ErrInvalidOption, opts.EfConstruction)
	}
	if opts.Capacity < 0 || uint64(opts.Capacity) > noEntryPoint {
		return nil, fmt.Errorf("%w: capacity out of range: %d", ErrInvalidOption, opts.Capacity)
	}

	return newGraph(opts, opts.M, mmax0Multiplier*opts.M, 1/math.Log(float64(opts.M)))
}

func newGraph(opts Options, maxM, maxM0 int, mult float64) (*Graph, error) {
	distFunc, err := distance.Provider(opts.Space)
	if err != nil {
		return nil, err
	}
	codec, err := quantization.NewCodec(opts.DataType)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		entryPoint:     noEntryPoint,
		maxLevel:       -1,
		capacity:       opts.Capacity,
		nodes:          newNodeTable(),
		vectors:        vectorstore.New(codec, opts.Dimension),
		distFunc:       distFunc,
		opts:           opts,
		maxM:           maxM,
		maxM0:          maxM0,
		efConstruction: opts.EfConstruction,
		mult:           mult,
		rng:            rand.New(rand.NewPCG(opts.RandomSeed, opts.RandomSeed)),
	}
	g.initPools()
	return g, nil
}

func (g *Graph) initPools() {
	dim := g.opts.Dimension
	maxConns := max(g.maxM, g.maxM0) + 1

	g.scratchPool.New = func() any {
		sc := &scratch{
			base:     make([]float32, dim),
			cand:     make([]float32, dim),
			selected: make([][]float32, maxConns),
			result:   make([]searcher.PriorityQueueItem, 0, maxConns),
			chosen:   make([]searcher.PriorityQueueItem, 0, maxConns),
			prune:    make([]searcher.PriorityQueueItem, 0, maxConns),
			ids:      make([]uint32, 0, maxConns),
		}
		for i := range sc.selected {
			sc.selected[i] = make([]float32, dim)
		}
		return sc
	}
}

// Dimension returns the vector dimensionality.
func (g *Graph) Dimension() int { return g.opts.Dimension }

// Space returns the distance space.
func (g *Graph) Space() distance.Space { return g.opts.Space }

// DataType returns the storage encoding.
func (g *Graph) DataType() quantization.DataType { return g.opts.DataType }

// M returns the connectivity parameter the graph was built with.
func (g *Graph) M() int { return g.opts.M }

// ElementSize returns the number of bytes one element occupies in the
// layer-0 record layout.
func (g *Graph) ElementSize() int {
	return newLayout(g.maxM, g.maxM0, g.vectors.Stride()).recordLength
}

// EfConstruction returns the construction candidate list size.
func (g *Graph) EfConstruction() int { return g.efConstruction }

// Len returns the number of used slots, tombstoned ones included.
func (g *Graph) Len() int { return int(g.count.Load()) }

// Capacity returns the number of slots available without resizing.
func (g *Graph) Capacity() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.capacity
}

// Resize changes the capacity. It fails without changes when capacity is
// below the number of used slots.
func (g *Graph) Resize(capacity int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if used := int(g.count.Load()); capacity < used {
		return &ErrCapacityExceeded{Capacity: capacity, Required: used}
	}
	if uint64(capacity) > noEntryPoint {
		return fmt.Errorf("%w: capacity out of range: %d", ErrInvalidOption, capacity)
	}
	g.capacity = capacity
	return nil
}

// Distance returns the distance between two vectors, normalizing them first
// when the space requires it.
func (g *Graph) Distance(a, b []float32) (float32, error) {
	if len(a) != g.opts.Dimension {
		return 0, &ErrDimensionMismatch{Expected: g.opts.Dimension, Actual: len(a)}
	}
	if len(b) != g.opts.Dimension {
		return 0, &ErrDimensionMismatch{Expected: g.opts.Dimension, Actual: len(b)}
	}
	if g.opts.Space.Normalizes() {
		a, b = distance.Normalize(a), distance.Normalize(b)
	}
	return g.distFunc(a, b), nil
}

// Insert adds v under label and links it into the graph. It returns the
// slot the element was stored in.
func (g *Graph) Insert(v []float32, label uint64) (uint32, error) {
	if len(v) != g.opts.Dimension {
		return 0, &ErrDimensionMismatch{Expected: g.opts.Dimension, Actual: len(v)}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	id, err := g.reserveSlot()
	if err != nil {
		return 0, err
	}

	s := searcher.Get(g.opts.Dimension)
	defer searcher.Put(s)

	vec := v
	if g.opts.Space.Normalizes() {
		vec = distance.NormalizeInto(s.Decoded, v)
	}
	if err := g.vectors.Set(id, vec); err != nil {
		return 0, err
	}
	// Links are chosen against the stored value, not the raw input.
	q := g.vectors.Decode(id, s.Query)

	level := g.randomLevel()
	n := newNode(label, level, g.maxM, g.maxM0)
	g.nodes.set(id, n)

	g.insertMu.Lock()
	ep, maxLevel := g.entry()
	if ep == noEntryPoint {
		g.setEntry(id, level)
		g.insertMu.Unlock()
		return id, nil
	}
	if level <= maxLevel {
		g.insertMu.Unlock()
	} else {
		defer g.insertMu.Unlock()
	}

	g.link(s, id, q, level, ep, maxLevel)

	if level > maxLevel {
		g.setEntry(id, level)
	}
	return id, nil
}

func (g *Graph) reserveSlot() (uint32, error) {
	for {
		cur := g.count.Load()
		if int(cur) >= g.capacity {
			return 0, &ErrCapacityExceeded{Capacity: g.capacity, Required: int(cur) + 1}
		}
		if g.count.CompareAndSwap(cur, cur+1) {
			return cur, nil
		}
	}
}

func (g *Graph) randomLevel() int {
	g.rngMu.Lock()
	u := 1 - g.rng.Float64() // (0, 1]
	g.rngMu.Unlock()
	return int(min(math.Floor(-math.Log(u)*g.mult), maxRandomLevel))
}

func (g *Graph) entry() (uint32, int) {
	g.epMu.RLock()
	defer g.epMu.RUnlock()
	return g.entryPoint, g.maxLevel
}

func (g *Graph) setEntry(id uint32, level int) {
	g.epMu.Lock()
	g.entryPoint = id
	g.maxLevel = level
	g.epMu.Unlock()
}

// link connects node id, whose stored vector is q, into every layer from
// min(level, maxLevel) down to 0.
func (g *Graph) link(s *searcher.Searcher, id uint32, q []float32, level int, ep uint32, maxLevel int) {
	sc := g.scratchPool.Get().(*scratch)
	defer g.scratchPool.Put(sc)

	curr := ep
	currDist := g.distTo(q, curr, s.Decoded)

	// 1. Greedy search from the top down to level+1
	for l := maxLevel; l > level; l-- {
		curr, currDist = g.greedySearch(s, q, curr, currDist, l)
	}

	// 2. Search and link from level down to 0
	self := g.nodes.get(id)
	for l := min(level, maxLevel); l >= 0; l-- {
		g.searchLayer(s, q, curr, currDist, l, g.efConstruction, false)
		s.Sorted = s.Candidates.DrainSorted(s.Sorted[:0])

		candidates := s.Sorted[:0]
		for _, c := range s.Sorted {
			if c.Node != id {
				candidates = append(candidates, c)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		curr, currDist = candidates[0].Node, candidates[0].Distance

		selected := g.selectNeighbors(sc, candidates, g.maxM)
		sc.chosen = append(sc.chosen[:0], selected...)

		sc.ids = sc.ids[:0]
		for _, c := range sc.chosen {
			sc.ids = append(sc.ids, c.Node)
		}
		self.setLinks(l, sc.ids)

		for _, c := range sc.chosen {
			g.addConnection(sc, c.Node, id, l, c.Distance)
		}
	}
}

// addConnection adds target to the neighbor list of source on layer l,
// pruning the list with the selection heuristic when it is full.
func (g *Graph) addConnection(sc *scratch, source, target uint32, l int, dist float32) {
	n := g.nodes.get(source)
	if n == nil || l > n.level {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	links := n.links[l]
	for _, c := range links {
		if c == target {
			return
		}
	}

	maxConns := g.maxM
	if l == 0 {
		maxConns = g.maxM0
	}
	if len(links) < maxConns {
		n.links[l] = append(links, target)
		return
	}

	// Prune: rank the existing links and the new one by distance to source.
	base := g.vectors.Decode(source, sc.base)
	cands := append(sc.prune[:0], searcher.PriorityQueueItem{Node: target, Distance: dist})
	for _, c := range links {
		cands = append(cands, searcher.PriorityQueueItem{Node: c, Distance: g.distTo(base, c, sc.cand)})
	}
	sortItems(cands)
	sc.prune = cands

	selected := g.selectNeighbors(sc, cands, maxConns)
	links = links[:0]
	for _, c := range selected {
		links = append(links, c.Node)
	}
	n.links[l] = links
}

// selectNeighbors picks at most m neighbors from candidates, which must be
// sorted by distance to the base node. A candidate is kept only when it is
// closer to the base than to every neighbor kept so far; remaining room is
// filled with the nearest rejected candidates.
func (g *Graph) selectNeighbors(sc *scratch, candidates []searcher.PriorityQueueItem, m int) []searcher.PriorityQueueItem {
	result := sc.result[:0]
	if len(candidates) <= m {
		result = append(result, candidates...)
		sc.result = result
		return result
	}

	for _, cand := range candidates {
		if len(result) >= m {
			break
		}
		candVec := g.vectors.Decode(cand.Node, sc.cand)

		good := true
		for i := range result {
			if g.distFunc(candVec, sc.selected[i]) < cand.Distance {
				good = false
				break
			}
		}
		if good {
			copy(sc.selected[len(result)], candVec)
			result = append(result, cand)
		}
	}

	// Fill up with the nearest candidates that were skipped.
	for _, cand := range candidates {
		if len(result) >= m {
			break
		}
		found := false
		for _, r := range result {
			if r.Node == cand.Node {
				found = true
				break
			}
		}
		if !found {
			result = append(result, cand)
		}
	}

	sc.result = result
	return result
}

func (g *Graph) greedySearch(s *searcher.Searcher, q []float32, curr uint32, currDist float32, l int) (uint32, float32) {
	for changed := true; changed; {
		changed = false
		n := g.nodes.get(curr)
		if n == nil {
			break
		}
		s.Links = n.copyLinks(l, s.Links)
		for _, next := range s.Links {
			if d := g.distTo(q, next, s.Decoded); d < currDist {
				curr, currDist = next, d
				changed = true
			}
		}
	}
	return curr, currDist
}

// searchLayer runs a best-first search bounded by ef on layer l and leaves
// the results in s.Candidates. With excludeDeleted, tombstoned nodes are
// traversed but not returned.
func (g *Graph) searchLayer(s *searcher.Searcher, q []float32, ep uint32, epDist float32, l int, ef int, excludeDeleted bool) {
	s.Visited.Reset()
	s.ScratchCandidates.Reset()
	s.Candidates.Reset()

	candidates := s.ScratchCandidates
	results := s.Candidates
	visited := s.Visited

	visited.Visit(ep)
	candidates.PushItem(searcher.PriorityQueueItem{Node: ep, Distance: epDist})
	if !excludeDeleted || !g.isDeleted(ep) {
		results.PushItem(searcher.PriorityQueueItem{Node: ep, Distance: epDist})
	}

	for candidates.Len() > 0 {
		curr, _ := candidates.PopItem()

		if worst, ok := results.TopItem(); ok && curr.Distance > worst.Distance && results.Len() >= ef {
			break
		}

		n := g.nodes.get(curr.Node)
		if n == nil {
			continue
		}
		s.Links = n.copyLinks(l, s.Links)
		for _, next := range s.Links {
			if !visited.Visit(next) {
				continue
			}
			nextDist := g.distTo(q, next, s.Decoded)

			// Classic HNSW pruning: avoid pushing obviously-bad candidates
			// once we already have ef results.
			if worst, ok := results.TopItem(); ok && results.Len() >= ef && nextDist > worst.Distance {
				continue
			}

			item := searcher.PriorityQueueItem{Node: next, Distance: nextDist}
			candidates.PushItem(item)
			if !excludeDeleted || !g.isDeleted(next) {
				results.PushItemBounded(item, ef)
			}
		}
	}
}

// Search returns up to k live elements nearest to q, searching with a
// candidate list of max(ef, k).
func (g *Graph) Search(q []float32, k, ef int) ([]SearchResult, error) {
	if len(q) != g.opts.Dimension {
		return nil, &ErrDimensionMismatch{Expected: g.opts.Dimension, Actual: len(q)}
	}
	if k <= 0 {
		return nil, nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	ep, maxLevel := g.entry()
	if ep == noEntryPoint {
		return nil, nil
	}

	s := searcher.Get(g.opts.Dimension)
	defer searcher.Put(s)

	query := s.Query
	if g.opts.Space.Normalizes() {
		distance.NormalizeInto(query, q)
		g.vectors.RoundTrip(query, query)
	} else {
		g.vectors.RoundTrip(query, q)
	}

	curr := ep
	currDist := g.distTo(query, curr, s.Decoded)
	for l := maxLevel; l > 0; l-- {
		curr, currDist = g.greedySearch(s, query, curr, currDist, l)
	}

	g.searchLayer(s, query, curr, currDist, 0, max(ef, k), true)
	for s.Candidates.Len() > k {
		s.Candidates.PopItem()
	}
	s.Sorted = s.Candidates.DrainSorted(s.Sorted[:0])

	res := make([]SearchResult, len(s.Sorted))
	for i, item := range s.Sorted {
		res[i] = SearchResult{
			Slot:     item.Node,
			Label:    g.nodes.get(item.Node).label,
			Distance: item.Distance,
		}
	}
	return res, nil
}

// MarkDeleted tombstones slot id. It reports whether the flag changed.
func (g *Graph) MarkDeleted(id uint32) (bool, error) {
	n, err := g.node(id)
	if err != nil {
		return false, err
	}
	return n.deleted.CompareAndSwap(false, true), nil
}

// UnmarkDeleted clears the tombstone of slot id. It reports whether the
// flag changed.
func (g *Graph) UnmarkDeleted(id uint32) (bool, error) {
	n, err := g.node(id)
	if err != nil {
		return false, err
	}
	return n.deleted.CompareAndSwap(true, false), nil
}

// IsDeleted reports whether slot id is tombstoned.
func (g *Graph) IsDeleted(id uint32) bool {
	return g.isDeleted(id)
}

// Label returns the label stored in slot id.
func (g *Graph) Label(id uint32) (uint64, error) {
	n, err := g.node(id)
	if err != nil {
		return 0, err
	}
	return n.label, nil
}

// Vector returns a decoded copy of the vector in slot id.
func (g *Graph) Vector(id uint32) ([]float32, error) {
	if _, err := g.node(id); err != nil {
		return nil, err
	}
	return g.vectors.Vector(id), nil
}

// Slots calls fn for every used slot in order until fn returns false.
func (g *Graph) Slots(fn func(id uint32, label uint64, deleted bool) bool) {
	count := g.count.Load()
	for id := uint32(0); id < count; id++ {
		n := g.nodes.get(id)
		if n == nil {
			continue
		}
		if !fn(id, n.label, n.deleted.Load()) {
			return
		}
	}
}

func (g *Graph) node(id uint32) (*node, error) {
	if id >= g.count.Load() {
		return nil, fmt.Errorf("%w: %d", ErrSlotNotFound, id)
	}
	n := g.nodes.get(id)
	if n == nil {
		return nil, fmt.Errorf("%w: %d", ErrSlotNotFound, id)
	}
	return n, nil
}

func (g *Graph) isDeleted(id uint32) bool {
	n := g.nodes.get(id)
	return n != nil && n.deleted.Load()
}

// distTo computes the distance between q and the stored vector of id,
// decoding into buf.
func (g *Graph) distTo(q []float32, id uint32, buf []float32) float32 {
	return g.distFunc(q, g.vectors.Decode(id, buf))
}
