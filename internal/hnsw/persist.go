package hnsw

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/canbakiskan/voyager-go/internal/binio"
	"github.com/canbakiskan/voyager-go/internal/conv"
)

const (
	// deleteMark is the tombstone bit in byte 2 of a layer-0 list header.
	deleteMark = 0x01

	// maxListSize bounds neighbor counts, which are stored as u16.
	maxListSize = math.MaxUint16

	// maxEf bounds efConstruction read from a file.
	maxEf = math.MaxInt32
)

// maxMult is the level multiplier 1/ln(M) for the smallest valid M.
var maxMult = 1 / math.Log(minimumM)

// graphHeader is the fixed part of a serialized graph.
type graphHeader struct {
	OffsetLevel0       uint64
	MaxElements        uint64
	CurElementCount    uint64
	SizeDataPerElement uint64
	LabelOffset        uint64
	OffsetData         uint64
	MaxLevel           uint32
	EnterpointNode     uint32
	MaxM               uint64
	MaxM0              uint64
	M                  uint64
	Mult               float64
	EfConstruction     uint64
}

// layout describes the byte layout of one element record.
type layout struct {
	linksSize0   int // u32 header + maxM0 links
	linksSize    int // u32 header + maxM links, per upper layer
	dataOffset   int
	labelOffset  int
	recordLength int
}

func newLayout(maxM, maxM0, stride int) layout {
	l := layout{
		linksSize0: 4 + 4*maxM0,
		linksSize:  4 + 4*maxM,
	}
	l.dataOffset = l.linksSize0
	l.labelOffset = l.dataOffset + stride
	l.recordLength = l.labelOffset + 8
	return l
}

// Save writes the graph in the hnswlib-compatible layout. It takes the
// graph lock exclusively, so the output is a consistent snapshot.
func (g *Graph) Save(w *binio.Writer) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	count := g.count.Load()
	lay := newLayout(g.maxM, g.maxM0, g.vectors.Stride())

	h := graphHeader{
		OffsetLevel0:       0,
		MaxElements:        uint64(g.capacity),
		CurElementCount:    uint64(count),
		SizeDataPerElement: uint64(lay.recordLength),
		LabelOffset:        uint64(lay.labelOffset),
		OffsetData:         uint64(lay.dataOffset),
		MaxLevel:           noEntryPoint,
		EnterpointNode:     noEntryPoint,
		MaxM:               uint64(g.maxM),
		MaxM0:              uint64(g.maxM0),
		M:                  uint64(g.opts.M),
		Mult:               g.mult,
		EfConstruction:     uint64(g.efConstruction),
	}
	if ep, maxLevel := g.entry(); ep != noEntryPoint {
		h.EnterpointNode = ep
		h.MaxLevel = uint32(maxLevel)
	}
	if err := w.Write(&h); err != nil {
		return fmt.Errorf("write graph header: %w", err)
	}

	rec := make([]byte, lay.recordLength)
	for id := uint32(0); id < count; id++ {
		n := g.nodes.get(id)
		clear(rec)
		writeList(rec, n.links[0])
		if n.deleted.Load() {
			rec[2] = deleteMark
		}
		copy(rec[lay.dataOffset:], g.vectors.Raw(id))
		binary.LittleEndian.PutUint64(rec[lay.labelOffset:], n.label)
		if err := w.Bytes(rec); err != nil {
			return fmt.Errorf("write element %d: %w", id, err)
		}
	}

	var upper []byte
	for id := uint32(0); id < count; id++ {
		n := g.nodes.get(id)
		size := n.level * lay.linksSize
		if err := w.Uint32(uint32(size)); err != nil {
			return fmt.Errorf("write link list size %d: %w", id, err)
		}
		if size == 0 {
			continue
		}
		if cap(upper) < size {
			upper = make([]byte, size)
		}
		upper = upper[:size]
		clear(upper)
		for l := 1; l <= n.level; l++ {
			writeList(upper[(l-1)*lay.linksSize:], n.links[l])
		}
		if err := w.Bytes(upper); err != nil {
			return fmt.Errorf("write link lists %d: %w", id, err)
		}
	}
	return nil
}

func writeList(dst []byte, links []uint32) {
	binary.LittleEndian.PutUint16(dst, uint16(len(links)))
	for i, id := range links {
		binary.LittleEndian.PutUint32(dst[4+4*i:], id)
	}
}

// Load reads a graph written by Save. Dimension, Space, DataType and
// RandomSeed come from opts; the graph parameters come from the stream.
// Every count and offset is checked against the remaining input, and any
// inconsistency is reported as ErrCorrupt.
func Load(r *binio.Reader, opts Options) (*Graph, error) {
	g, err := load(r, opts)
	if err != nil {
		if errors.Is(err, binio.ErrTruncated) && !errors.Is(err, ErrCorrupt) {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		return nil, err
	}
	return g, nil
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

func load(r *binio.Reader, opts Options) (*Graph, error) {
	if opts.Dimension <= 0 {
		return nil, &ErrInvalidDimension{Dimension: opts.Dimension}
	}

	var h graphHeader
	if err := r.Read(&h); err != nil {
		return nil, fmt.Errorf("read graph header: %w", err)
	}

	if h.MaxM == 0 || h.MaxM > maxListSize || h.MaxM0 == 0 || h.MaxM0 > maxListSize {
		return nil, corruptf("neighbor limits out of range: maxM=%d maxM0=%d", h.MaxM, h.MaxM0)
	}
	if h.M == 0 || h.M > maxListSize {
		return nil, corruptf("M out of range: %d", h.M)
	}
	if h.EfConstruction == 0 || h.EfConstruction > maxEf {
		return nil, corruptf("efConstruction out of range: %d", h.EfConstruction)
	}
	if math.IsNaN(h.Mult) || h.Mult <= 0 || h.Mult > maxMult {
		return nil, corruptf("level multiplier out of range: %v", h.Mult)
	}
	if h.CurElementCount >= noEntryPoint || h.MaxElements > noEntryPoint {
		return nil, corruptf("element counts out of range: %d of %d", h.CurElementCount, h.MaxElements)
	}

	opts.M = int(h.M)
	opts.EfConstruction = int(h.EfConstruction)
	opts.Capacity = int(max(h.MaxElements, h.CurElementCount))

	g, err := newGraph(opts, int(h.MaxM), int(h.MaxM0), h.Mult)
	if err != nil {
		return nil, err
	}

	lay := newLayout(g.maxM, g.maxM0, g.vectors.Stride())
	if h.OffsetLevel0 != 0 ||
		h.SizeDataPerElement != uint64(lay.recordLength) ||
		h.OffsetData != uint64(lay.dataOffset) ||
		h.LabelOffset != uint64(lay.labelOffset) {
		return nil, corruptf(
			"element layout (size %d, data offset %d, label offset %d) does not match %d dimensions of %s",
			h.SizeDataPerElement, h.OffsetData, h.LabelOffset, opts.Dimension, opts.DataType)
	}

	count := uint32(h.CurElementCount)
	total, err := conv.MulUint64(h.CurElementCount, h.SizeDataPerElement)
	if err != nil {
		return nil, corruptf("element data size overflows: %v", err)
	}
	if err := r.Check(total); err != nil {
		return nil, err
	}

	levels := make([]int, count)
	rec := make([]byte, lay.recordLength)
	for id := uint32(0); id < count; id++ {
		if err := r.ReadFull(rec); err != nil {
			return nil, fmt.Errorf("read element %d: %w", id, err)
		}
		links, err := readList(rec, g.maxM0, count)
		if err != nil {
			return nil, corruptf("element %d layer 0: %v", id, err)
		}

		n := &node{
			label: binary.LittleEndian.Uint64(rec[lay.labelOffset:]),
			links: [][]uint32{append(make([]uint32, 0, g.maxM0), links...)},
		}
		n.deleted.Store(rec[2]&deleteMark != 0)
		if err := g.vectors.SetRaw(id, rec[lay.dataOffset:lay.labelOffset]); err != nil {
			return nil, err
		}
		g.nodes.set(id, n)
	}

	for id := uint32(0); id < count; id++ {
		size, err := r.Uint32()
		if err != nil {
			return nil, fmt.Errorf("read link list size %d: %w", id, err)
		}
		if size%uint32(lay.linksSize) != 0 {
			return nil, corruptf("element %d: link list size %d is not a multiple of %d", id, size, lay.linksSize)
		}
		level := int(size / uint32(lay.linksSize))
		levels[id] = level

		n := g.nodes.get(id)
		n.level = level
		if level == 0 {
			continue
		}

		buf, err := r.Bytes(uint64(size))
		if err != nil {
			return nil, fmt.Errorf("read link lists %d: %w", id, err)
		}
		for l := 1; l <= level; l++ {
			links, err := readList(buf[(l-1)*lay.linksSize:l*lay.linksSize], g.maxM, count)
			if err != nil {
				return nil, corruptf("element %d layer %d: %v", id, l, err)
			}
			n.links = append(n.links, append(make([]uint32, 0, g.maxM), links...))
		}
	}

	g.count.Store(count)

	if count > 0 {
		ep := h.EnterpointNode
		if ep >= count {
			return nil, corruptf("entry point %d out of range for %d elements", ep, count)
		}
		if int64(h.MaxLevel) != int64(levels[ep]) {
			return nil, corruptf("max level %d does not match entry point level %d", h.MaxLevel, levels[ep])
		}
		g.entryPoint = ep
		g.maxLevel = levels[ep]
	}

	return g, nil
}

// readList decodes a neighbor list block, checking its count against limit
// and every neighbor against count.
func readList(b []byte, limit int, count uint32) ([]uint32, error) {
	size := int(binary.LittleEndian.Uint16(b))
	if size > limit {
		return nil, fmt.Errorf("%d neighbors exceed limit %d", size, limit)
	}
	links := make([]uint32, size)
	for i := range links {
		id := binary.LittleEndian.Uint32(b[4+4*i:])
		if id >= count {
			return nil, fmt.Errorf("neighbor %d out of range for %d elements", id, count)
		}
		links[i] = id
	}
	return links, nil
}
