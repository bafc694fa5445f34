package vectorstore

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/canbakiskan/voyager-go/quantization"
)

const (
	// segmentBits caps a segment at 1024 slots.
	segmentBits = 10
	segmentSize = 1 << segmentBits

	// segmentTargetBytes caps the size of a segment for wide vectors. A
	// segment holds at least one slot, so it is never smaller than one
	// stride.
	segmentTargetBytes = 1 << 20
)

// ErrWrongDimension is returned when a vector doesn't match the store dimension.
var ErrWrongDimension = errors.New("wrong vector dimension")

// Store is a segmented slab of encoded vectors.
type Store struct {
	codec  quantization.Codec
	dim    int
	stride int

	segBits uint
	segMask uint32

	segments atomic.Pointer[[][]byte]
	growMu   sync.Mutex
}

// New creates an empty store for vectors of dim elements.
func New(codec quantization.Codec, dim int) *Store {
	s := &Store{
		codec:  codec,
		dim:    dim,
		stride: codec.ByteSize(dim),
	}
	s.segBits = segmentBitsFor(s.stride)
	s.segMask = 1<<s.segBits - 1
	segs := make([][]byte, 0)
	s.segments.Store(&segs)
	return s
}

// segmentBitsFor returns log2 of the slots per segment: the largest power
// of two up to segmentSize whose segment fits in segmentTargetBytes.
func segmentBitsFor(stride int) uint {
	bits := uint(segmentBits)
	for bits > 0 && (1<<bits)*stride > segmentTargetBytes {
		bits--
	}
	return bits
}

// SlotsPerSegment returns the number of slots allocated together.
func (s *Store) SlotsPerSegment() int { return 1 << s.segBits }

// Dimension returns the number of elements per vector.
func (s *Store) Dimension() int { return s.dim }

// Stride returns the encoded size of one vector in bytes.
func (s *Store) Stride() int { return s.stride }

// Codec returns the storage codec.
func (s *Store) Codec() quantization.Codec { return s.codec }

// Set encodes v into slot id.
func (s *Store) Set(id uint32, v []float32) error {
	if len(v) != s.dim {
		return fmt.Errorf("%w: expected %d, got %d", ErrWrongDimension, s.dim, len(v))
	}
	s.grow(id)
	s.codec.Encode(s.Raw(id), v)
	return nil
}

// SetRaw copies already encoded bytes into slot id.
func (s *Store) SetRaw(id uint32, b []byte) error {
	if len(b) != s.stride {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrWrongDimension, s.stride, len(b))
	}
	s.grow(id)
	copy(s.Raw(id), b)
	return nil
}

// Raw returns the encoded bytes of slot id, which must have been set.
// The slice aliases the store.
func (s *Store) Raw(id uint32) []byte {
	seg := (*s.segments.Load())[id>>s.segBits]
	off := int(id&s.segMask) * s.stride
	return seg[off : off+s.stride : off+s.stride]
}

// Decode writes the vector of slot id into dst and returns it.
// dst must hold at least Dimension() elements.
func (s *Store) Decode(id uint32, dst []float32) []float32 {
	dst = dst[:s.dim]
	s.codec.Decode(dst, s.Raw(id))
	return dst
}

// Vector returns a freshly allocated decoded copy of slot id.
func (s *Store) Vector(id uint32) []float32 {
	return s.Decode(id, make([]float32, s.dim))
}

// RoundTrip writes the value v takes after being stored into dst.
func (s *Store) RoundTrip(dst, v []float32) []float32 {
	dst = dst[:len(v)]
	if s.codec.DataType() == quantization.Float32 {
		copy(dst, v)
		return dst
	}
	buf := make([]byte, s.codec.ByteSize(len(v)))
	s.codec.Encode(buf, v)
	s.codec.Decode(dst, buf)
	return dst
}

// Segments returns the number of allocated segments.
func (s *Store) Segments() int {
	return len(*s.segments.Load())
}

func (s *Store) grow(id uint32) {
	idx := int(id >> s.segBits)
	if idx < len(*s.segments.Load()) {
		return
	}

	s.growMu.Lock()
	defer s.growMu.Unlock()

	cur := *s.segments.Load()
	if idx < len(cur) {
		return
	}
	next := make([][]byte, idx+1)
	copy(next, cur)
	for i := len(cur); i <= idx; i++ {
		next[i] = make([]byte, s.SlotsPerSegment()*s.stride)
	}
	s.segments.Store(&next)
}
