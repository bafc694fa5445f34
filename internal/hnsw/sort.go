package hnsw

import (
	"slices"

	"github.com/canbakiskan/voyager-go/internal/searcher"
)

// sortItems orders items by distance, ties by slot.
func sortItems(items []searcher.PriorityQueueItem) {
	slices.SortFunc(items, func(a, b searcher.PriorityQueueItem) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
}
