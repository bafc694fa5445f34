package quantization

import (
	"math"
	"sort"
)

const (
	e4m3Bias     = 7
	e4m3SignBit  = 0x80
	e4m3NaN      = 0x7f
	e4m3MaxCode  = 0x7e // 448
	e4m3MaxValue = 448
)

// e4m3Table holds the decoded value of every code.
var e4m3Table = func() [256]float32 {
	var t [256]float32
	for c := 0; c < 256; c++ {
		exp := (c >> 3) & 0x0f
		man := c & 0x07
		var v float64
		switch {
		case c&0x7f == e4m3NaN:
			v = math.NaN()
		case exp == 0:
			v = math.Ldexp(float64(man)/8, 1-e4m3Bias)
		default:
			v = math.Ldexp(1+float64(man)/8, exp-e4m3Bias)
		}
		if c&e4m3SignBit != 0 {
			v = -v
		}
		t[c] = float32(v)
	}
	return t
}()

// DecodeE4M3 returns the exact value of an E4M3 code.
func DecodeE4M3(b uint8) float32 {
	return e4m3Table[b]
}

// EncodeE4M3 rounds x to the nearest E4M3 value, ties to the even code.
// Magnitudes beyond 448 saturate; NaN maps to the NaN code.
func EncodeE4M3(x float32) uint8 {
	if x != x {
		return e4m3NaN
	}
	var sign uint8
	if math.Signbit(float64(x)) {
		sign = e4m3SignBit
		x = -x
	}
	if x >= e4m3MaxValue {
		return sign | e4m3MaxCode
	}

	// Positive codes 0..0x7e are strictly increasing in value.
	hi := sort.Search(e4m3MaxCode+1, func(i int) bool { return e4m3Table[i] >= x })
	if hi == 0 || e4m3Table[hi] == x {
		return sign | uint8(hi)
	}
	lo := hi - 1
	dLo := x - e4m3Table[lo]
	dHi := e4m3Table[hi] - x
	code := hi
	if dLo < dHi || (dLo == dHi && lo%2 == 0) {
		code = lo
	}
	return sign | uint8(code)
}

type e4m3Codec struct{}

func (e4m3Codec) DataType() DataType { return E4M3 }

func (e4m3Codec) ByteSize(dims int) int { return dims }

func (e4m3Codec) Encode(dst []byte, v []float32) {
	dst = dst[:len(v)]
	for i, x := range v {
		dst[i] = EncodeE4M3(x)
	}
}

func (e4m3Codec) Decode(dst []float32, src []byte) {
	src = src[:len(dst)]
	for i, b := range src {
		dst[i] = e4m3Table[b]
	}
}
