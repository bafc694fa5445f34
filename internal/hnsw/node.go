package hnsw

import (
	"sync"
	"sync/atomic"
)

const (
	// nodeSegmentBits sizes each node segment (1024 nodes).
	// Using segments avoids copying the node table during growth.
	nodeSegmentBits = 10
	nodeSegmentSize = 1 << nodeSegmentBits
	nodeSegmentMask = nodeSegmentSize - 1
)

// NodeSegment is a fixed-size array of node pointers.
type NodeSegment [nodeSegmentSize]atomic.Pointer[node]

// node is one graph element. links[l] holds the neighbor slots on layer l
// and is only read or written under mu.
type node struct {
	mu      sync.Mutex
	label   uint64
	level   int
	links   [][]uint32
	deleted atomic.Bool
}

func newNode(label uint64, level, maxM, maxM0 int) *node {
	n := &node{
		label: label,
		level: level,
		links: make([][]uint32, level+1),
	}
	n.links[0] = make([]uint32, 0, maxM0)
	for l := 1; l <= level; l++ {
		n.links[l] = make([]uint32, 0, maxM)
	}
	return n
}

// copyLinks appends the neighbors of n on layer l to buf.
func (n *node) copyLinks(l int, buf []uint32) []uint32 {
	buf = buf[:0]
	if l > n.level {
		return buf
	}
	n.mu.Lock()
	buf = append(buf, n.links[l]...)
	n.mu.Unlock()
	return buf
}

// setLinks replaces the neighbors of n on layer l.
func (n *node) setLinks(l int, ids []uint32) {
	n.mu.Lock()
	n.links[l] = append(n.links[l][:0], ids...)
	n.mu.Unlock()
}

// nodeTable is a segmented, append-only slot table.
type nodeTable struct {
	segments atomic.Pointer[[]*NodeSegment]
	growMu   sync.Mutex
}

func newNodeTable() *nodeTable {
	t := &nodeTable{}
	segs := make([]*NodeSegment, 0)
	t.segments.Store(&segs)
	return t
}

// get returns the node in slot id, or nil.
func (t *nodeTable) get(id uint32) *node {
	segs := *t.segments.Load()
	idx := int(id >> nodeSegmentBits)
	if idx >= len(segs) {
		return nil
	}
	return segs[idx][id&nodeSegmentMask].Load()
}

// set publishes n in slot id.
func (t *nodeTable) set(id uint32, n *node) {
	t.grow(id)
	segs := *t.segments.Load()
	segs[id>>nodeSegmentBits][id&nodeSegmentMask].Store(n)
}

func (t *nodeTable) grow(id uint32) {
	idx := int(id >> nodeSegmentBits)
	if idx < len(*t.segments.Load()) {
		return
	}

	t.growMu.Lock()
	defer t.growMu.Unlock()

	cur := *t.segments.Load()
	if idx < len(cur) {
		return
	}
	next := make([]*NodeSegment, idx+1)
	copy(next, cur)
	for i := len(cur); i <= idx; i++ {
		next[i] = new(NodeSegment)
	}
	t.segments.Store(&next)
}
