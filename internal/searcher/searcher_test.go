package searcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueueMinHeap(t *testing.T) {
	pq := NewPriorityQueue(false)
	for i, d := range []float32{5, 1, 3, 4, 2} {
		pq.PushItem(PriorityQueueItem{Node: uint32(i), Distance: d})
	}

	var got []float32
	for pq.Len() > 0 {
		item, ok := pq.PopItem()
		require.True(t, ok)
		got = append(got, item.Distance)
	}
	assert.Equal(t, []float32{1, 2, 3, 4, 5}, got)

	_, ok := pq.PopItem()
	assert.False(t, ok)
}

func TestPriorityQueueBounded(t *testing.T) {
	pq := NewPriorityQueue(true)
	for i, d := range []float32{5, 1, 3, 4, 2, 0.5} {
		pq.PushItemBounded(PriorityQueueItem{Node: uint32(i), Distance: d}, 3)
	}
	require.Equal(t, 3, pq.Len())

	top, ok := pq.TopItem()
	require.True(t, ok)
	assert.Equal(t, float32(2), top.Distance)

	sorted := pq.DrainSorted(nil)
	assert.Equal(t, 0, pq.Len())
	assert.Equal(t, []PriorityQueueItem{
		{Node: 5, Distance: 0.5},
		{Node: 1, Distance: 1},
		{Node: 4, Distance: 2},
	}, sorted)
}

func TestPriorityQueueTiesBySlot(t *testing.T) {
	pq := NewPriorityQueue(false)
	pq.PushItem(PriorityQueueItem{Node: 7, Distance: 1})
	pq.PushItem(PriorityQueueItem{Node: 2, Distance: 1})
	pq.PushItem(PriorityQueueItem{Node: 4, Distance: 1})

	sorted := pq.DrainSorted(nil)
	assert.Equal(t, []uint32{2, 4, 7}, []uint32{sorted[0].Node, sorted[1].Node, sorted[2].Node})
}

func TestVisitedSet(t *testing.T) {
	v := NewVisitedSet(8)

	assert.True(t, v.Visit(3))
	assert.False(t, v.Visit(3))
	assert.True(t, v.Visited(3))
	assert.False(t, v.Visited(4))

	// beyond the initial capacity
	assert.True(t, v.Visit(1000))
	assert.True(t, v.Visited(1000))

	v.Reset()
	assert.False(t, v.Visited(3))
	assert.False(t, v.Visited(1000))
	assert.True(t, v.Visit(3))
}

func TestGetPut(t *testing.T) {
	s := Get(16)
	assert.Len(t, s.Query, 16)
	assert.Len(t, s.Decoded, 16)

	s.Visited.Visit(9)
	s.Candidates.PushItem(PriorityQueueItem{Node: 1})
	Put(s)

	s = Get(4)
	defer Put(s)
	assert.Len(t, s.Query, 4)
	assert.False(t, s.Visited.Visited(9))
	assert.Equal(t, 0, s.Candidates.Len())
}
