// Package distance provides the distance spaces supported by the index.
package distance

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// ErrUnknownSpace is returned for space codes outside the known set.
var ErrUnknownSpace = errors.New("unknown space")

// normEpsilon keeps normalization of zero vectors finite.
const normEpsilon = 1e-30

// Space selects how distances between vectors are measured.
// The numeric values are part of the on-disk format.
type Space uint8

const (
	// Euclidean is the squared L2 distance.
	Euclidean Space = 0
	// InnerProduct is 1 - dot(a, b).
	InnerProduct Space = 1
	// Cosine is 1 - dot(a, b) over L2-normalized vectors.
	Cosine Space = 2
)

func (s Space) String() string {
	switch s {
	case Euclidean:
		return "Euclidean"
	case InnerProduct:
		return "InnerProduct"
	case Cosine:
		return "Cosine"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// ShortName returns the compact name used in index descriptions.
func (s Space) ShortName() string {
	switch s {
	case Euclidean:
		return "l2"
	case InnerProduct:
		return "ip"
	case Cosine:
		return "cosine"
	default:
		return "unknown"
	}
}

// Valid reports whether s is a known space.
func (s Space) Valid() bool {
	return s <= Cosine
}

// Normalizes reports whether vectors are normalized before storage and search.
func (s Space) Normalizes() bool {
	return s == Cosine
}

// ParseSpace maps a name (long or short form) to a Space.
func ParseSpace(name string) (Space, error) {
	switch name {
	case "Euclidean", "euclidean", "l2":
		return Euclidean, nil
	case "InnerProduct", "innerproduct", "ip":
		return InnerProduct, nil
	case "Cosine", "cosine":
		return Cosine, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSpace, name)
}

// Func is a function type for distance calculation.
type Func func(a, b []float32) float32

// Provider returns the distance function for s. Cosine expects both inputs
// to be normalized already.
func Provider(s Space) (Func, error) {
	switch s {
	case Euclidean:
		return SquaredL2, nil
	case InnerProduct, Cosine:
		return InnerProductDistance, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownSpace, uint8(s))
	}
}

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	b = b[:len(a)]
	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= len(a); i += 4 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	for ; i < len(a); i++ {
		s0 += a[i] * b[i]
	}
	return (s0 + s1) + (s2 + s3)
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	b = b[:len(a)]
	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= len(a); i += 4 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}
	for ; i < len(a); i++ {
		d := a[i] - b[i]
		s0 += d * d
	}
	return (s0 + s1) + (s2 + s3)
}

// InnerProductDistance returns 1 - dot(a, b).
func InnerProductDistance(a, b []float32) float32 {
	return 1 - Dot(a, b)
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	return math32.Sqrt(Dot(v, v))
}

// NormalizeInto writes v / (|v| + 1e-30) into dst and returns dst.
// dst may alias v. A zero vector stays zero.
func NormalizeInto(dst, v []float32) []float32 {
	dst = dst[:len(v)]
	inv := 1 / (Norm(v) + normEpsilon)
	for i, x := range v {
		dst[i] = x * inv
	}
	return dst
}

// Normalize returns a normalized copy of v.
func Normalize(v []float32) []float32 {
	return NormalizeInto(make([]float32, len(v)), v)
}
