package searcher

// VisitedSet tracks visited nodes using a bitset and a dirty list for fast reset.
type VisitedSet struct {
	bits  []uint64
	dirty []uint32
}

// NewVisitedSet creates a visited set sized for capacity nodes.
func NewVisitedSet(capacity int) *VisitedSet {
	return &VisitedSet{
		bits:  make([]uint64, (capacity+63)/64),
		dirty: make([]uint32, 0, 128),
	}
}

// Visit marks a node as visited and reports whether it was new.
func (v *VisitedSet) Visit(id uint32) bool {
	word := int(id >> 6)
	mask := uint64(1) << (id & 63)
	if word >= len(v.bits) {
		v.grow(word + 1)
	}
	if v.bits[word]&mask != 0 {
		return false
	}
	v.bits[word] |= mask
	v.dirty = append(v.dirty, id)
	return true
}

// Visited returns true if the node has been visited.
func (v *VisitedSet) Visited(id uint32) bool {
	word := int(id >> 6)
	if word >= len(v.bits) {
		return false
	}
	return v.bits[word]&(uint64(1)<<(id&63)) != 0
}

// Reset clears the nodes visited since the last reset.
func (v *VisitedSet) Reset() {
	for _, id := range v.dirty {
		v.bits[id>>6] &^= uint64(1) << (id & 63)
	}
	v.dirty = v.dirty[:0]
}

func (v *VisitedSet) grow(n int) {
	bits := make([]uint64, max(len(v.bits)*2, n))
	copy(bits, v.bits)
	v.bits = bits
}
