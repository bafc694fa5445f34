package searcher

import "sync"

// Searcher is a reusable execution context for graph traversal.
//
// Searcher is NOT thread-safe.
type Searcher struct {
	// Visited tracks visited nodes during graph traversal.
	Visited *VisitedSet

	// Candidates is a max-heap holding the best results found so far.
	Candidates *PriorityQueue

	// ScratchCandidates is a min-heap of nodes still to explore.
	ScratchCandidates *PriorityQueue

	// Query holds the prepared (normalized) query vector.
	Query []float32

	// Decoded is a buffer for decoding stored vectors.
	Decoded []float32

	// Sorted is a buffer for drained, ordered queue contents.
	Sorted []PriorityQueueItem

	// Links is a buffer for copying a node's neighbor list.
	Links []uint32
}

var pool = sync.Pool{
	New: func() any {
		return NewSearcher(1024)
	},
}

// NewSearcher creates a searcher with a visited set sized for visitedCap nodes.
func NewSearcher(visitedCap int) *Searcher {
	return &Searcher{
		Visited:           NewVisitedSet(visitedCap),
		Candidates:        NewPriorityQueue(true),
		ScratchCandidates: NewPriorityQueue(false),
		Sorted:            make([]PriorityQueueItem, 0, 64),
		Links:             make([]uint32, 0, 64),
	}
}

// Get returns a reset Searcher from the pool with buffers sized for dims.
func Get(dims int) *Searcher {
	s := pool.Get().(*Searcher)
	s.Reset()
	if cap(s.Query) < dims {
		s.Query = make([]float32, dims)
		s.Decoded = make([]float32, dims)
	}
	s.Query = s.Query[:dims]
	s.Decoded = s.Decoded[:dims]
	return s
}

// Put returns a Searcher to the pool.
func Put(s *Searcher) {
	pool.Put(s)
}

// Reset clears the searcher state for reuse.
func (s *Searcher) Reset() {
	s.Visited.Reset()
	s.Candidates.Reset()
	s.ScratchCandidates.Reset()
	s.Sorted = s.Sorted[:0]
	s.Links = s.Links[:0]
}
