package hnsw

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt is returned when serialized graph data is inconsistent.
	ErrCorrupt = errors.New("hnsw: corrupt index data")
	// ErrSlotNotFound is returned for slots that hold no element.
	ErrSlotNotFound = errors.New("hnsw: slot not found")
)

type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrCapacityExceeded reports that Required elements do not fit into Capacity.
type ErrCapacityExceeded struct {
	Capacity int
	Required int
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("capacity exceeded: %d elements do not fit in capacity %d", e.Required, e.Capacity)
}

// SearchResult is one hit of a search, ordered by Distance then Slot.
type SearchResult struct {
	Slot     uint32
	Label    uint64
	Distance float32
}

type LevelStats struct {
	Level          int
	Nodes          int
	Connections    int
	AvgConnections int
}

type Stats struct {
	Parameters map[string]string
	Storage    map[string]string
	Levels     []LevelStats
}

// ErrInvalidOption is returned by New for out-of-range parameters.
var ErrInvalidOption = errors.New("hnsw: invalid option")
