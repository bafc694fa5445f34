package labels

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveCommit(t *testing.T) {
	m := New()

	r, err := m.Reserve(7)
	require.NoError(t, err)
	assert.False(t, m.Has(7))

	_, err = m.Reserve(7)
	assert.ErrorIs(t, err, ErrDuplicate)
	_, _, err = m.Slot(7)
	assert.ErrorIs(t, err, ErrNotFound)

	m.Commit(r, 3)
	assert.True(t, m.Has(7))
	slot, deleted, err := m.Slot(7)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), slot)
	assert.False(t, deleted)

	_, err = m.Reserve(7)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestReserveNext_SkipsUsed(t *testing.T) {
	m := New()

	r, err := m.Reserve(1)
	require.NoError(t, err)
	m.Commit(r, 0)

	a := m.ReserveNext()
	b := m.ReserveNext()
	assert.Equal(t, uint64(0), a.Label)
	assert.Equal(t, uint64(2), b.Label)

	// Only the most recent auto label is rewound.
	m.Release(a)
	c := m.ReserveNext()
	assert.Equal(t, uint64(3), c.Label)
}

func TestRelease_RewindsAutoLabels(t *testing.T) {
	m := New()
	rs := []Reservation{m.ReserveNext(), m.ReserveNext(), m.ReserveNext()}
	for i := len(rs) - 1; i >= 0; i-- {
		m.Release(rs[i])
	}

	r := m.ReserveNext()
	assert.Equal(t, uint64(0), r.Label)
	m.Commit(r, 0)
	assert.Equal(t, []uint64{0}, m.IDs())
}

func TestSetDeleted(t *testing.T) {
	m := New()
	r, err := m.Reserve(5)
	require.NoError(t, err)
	m.Commit(r, 0)

	var flipped []uint32
	flip := func(slot uint32) error {
		flipped = append(flipped, slot)
		return nil
	}

	require.NoError(t, m.SetDeleted(5, true, flip))
	require.NoError(t, m.SetDeleted(5, true, flip))
	assert.Equal(t, []uint32{0}, flipped)
	assert.False(t, m.Has(5))
	assert.Equal(t, 0, m.Len())

	// A deleted label keeps its binding.
	slot, deleted, err := m.Slot(5)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), slot)
	assert.True(t, deleted)

	require.NoError(t, m.SetDeleted(5, false, flip))
	assert.True(t, m.Has(5))

	err = m.SetDeleted(6, true, flip)
	assert.ErrorIs(t, err, ErrNotFound)

	boom := errors.New("boom")
	err = m.SetDeleted(5, true, func(uint32) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, m.Has(5))
}

func TestReinsertDeleted(t *testing.T) {
	m := New()
	r, err := m.Reserve(9)
	require.NoError(t, err)
	m.Commit(r, 0)
	require.NoError(t, m.SetDeleted(9, true, func(uint32) error { return nil }))

	r, err = m.Reserve(9)
	require.NoError(t, err)

	// A failed insertion restores the deleted binding.
	m.Release(r)
	slot, deleted, err := m.Slot(9)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), slot)
	assert.True(t, deleted)

	r, err = m.Reserve(9)
	require.NoError(t, err)
	m.Commit(r, 4)
	slot, deleted, err = m.Slot(9)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), slot)
	assert.False(t, deleted)
}

func TestBind(t *testing.T) {
	m := New()
	m.Bind(1, 0, true)
	m.Bind(1, 1, false)
	m.Bind(1, 2, true)
	m.Bind(2, 3, false)

	slot, deleted, err := m.Slot(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), slot)
	assert.False(t, deleted)
	assert.Equal(t, []uint64{1, 2}, m.IDs())
	assert.Equal(t, 2, m.Len())

	r := m.ReserveNext()
	assert.Equal(t, uint64(0), r.Label)
	r = m.ReserveNext()
	assert.Equal(t, uint64(3), r.Label)
}

func TestConcurrentReserve(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := m.Reserve(42)
			if err != nil {
				return
			}
			mu.Lock()
			wins++
			mu.Unlock()
			m.Commit(r, 0)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.True(t, m.Has(42))
}
