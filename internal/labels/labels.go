// Package labels maps external labels to graph slots and tracks which labels
// are live.
package labels

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

var (
	// ErrNotFound is returned for labels without a committed slot.
	ErrNotFound = errors.New("label not found")
	// ErrDuplicate is returned when reserving a label that is live or pending.
	ErrDuplicate = errors.New("label already exists")
)

type binding struct {
	slot    uint32
	deleted bool
	pending bool
}

// Map is a concurrency-safe label to slot map.
//
// A label is live when it is bound to a slot and not deleted. A deleted
// label keeps its binding, so it can be undeleted, and may be rebound to a
// new slot by a later insertion.
type Map struct {
	mu    sync.RWMutex
	slots map[uint64]binding
	live  *roaring64.Bitmap
	next  uint64
}

// New creates an empty map.
func New() *Map {
	return &Map{
		slots: make(map[uint64]binding),
		live:  roaring64.New(),
	}
}

// Reservation is a label held for an insertion in progress.
type Reservation struct {
	Label   uint64
	prev    binding
	hadPrev bool
	auto    bool
}

// Reserve claims label for insertion. It fails with ErrDuplicate when the
// label is live or held by another reservation.
func (m *Map) Reserve(label uint64) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.slots[label]
	if ok && (!prev.deleted || prev.pending) {
		return Reservation{}, fmt.Errorf("%w: %d", ErrDuplicate, label)
	}
	m.slots[label] = binding{pending: true}
	return Reservation{Label: label, prev: prev, hadPrev: ok}, nil
}

// ReserveNext claims the smallest label at or after the internal counter
// that has never been used.
func (m *Map) ReserveNext() Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		label := m.next
		m.next++
		if _, used := m.slots[label]; !used {
			m.slots[label] = binding{pending: true}
			return Reservation{Label: label, auto: true}
		}
	}
}

// Commit binds a reserved label to slot and makes it live.
func (m *Map) Commit(r Reservation, slot uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.slots[r.Label] = binding{slot: slot}
	m.live.Add(r.Label)
}

// Release gives up a reservation, restoring any previous binding. Releasing
// the most recent automatic label hands it out again on the next
// ReserveNext; releasing several in reverse order rewinds them all.
func (m *Map) Release(r Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.hadPrev {
		m.slots[r.Label] = r.prev
	} else {
		delete(m.slots, r.Label)
	}
	if r.auto && r.Label+1 == m.next {
		m.next--
	}
}

// Bind records a loaded slot. A live binding wins over a deleted one, and a
// later slot wins over an earlier one of the same state.
func (m *Map) Bind(label uint64, slot uint32, deleted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.slots[label]; ok && !cur.deleted && deleted {
		return
	}
	m.slots[label] = binding{slot: slot, deleted: deleted}
	if deleted {
		m.live.Remove(label)
	} else {
		m.live.Add(label)
	}
}

// Slot returns the slot bound to label, live or deleted.
func (m *Map) Slot(label uint64) (uint32, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.slots[label]
	if !ok || b.pending {
		return 0, false, fmt.Errorf("%w: %d", ErrNotFound, label)
	}
	return b.slot, b.deleted, nil
}

// SetDeleted flips the deleted state of label. The flip function is called
// with the bound slot while the map is locked and must apply the same change
// to the graph.
func (m *Map) SetDeleted(label uint64, deleted bool, flip func(slot uint32) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.slots[label]
	if !ok || b.pending {
		return fmt.Errorf("%w: %d", ErrNotFound, label)
	}
	if b.deleted == deleted {
		return nil
	}
	if err := flip(b.slot); err != nil {
		return err
	}
	b.deleted = deleted
	m.slots[label] = b
	if deleted {
		m.live.Remove(label)
	} else {
		m.live.Add(label)
	}
	return nil
}

// Has reports whether label is live.
func (m *Map) Has(label uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.live.Contains(label)
}

// Len returns the number of live labels.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int(m.live.GetCardinality())
}

// IDs returns the live labels in ascending order.
func (m *Map) IDs() []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.live.ToArray()
	slices.Sort(ids)
	return ids
}
