package quantization

import "math"

const fixed8Scale = 127

// EncodeFixed8 maps x to round(x*127) clamped to the int8 range.
func EncodeFixed8(x float32) uint8 {
	r := math.Round(float64(x) * fixed8Scale)
	switch {
	case r > math.MaxInt8:
		r = math.MaxInt8
	case r < math.MinInt8:
		r = math.MinInt8
	case math.IsNaN(r):
		r = 0
	}
	return uint8(int8(r))
}

// DecodeFixed8 maps a stored byte back to stored/127.
func DecodeFixed8(b uint8) float32 {
	return float32(int8(b)) / fixed8Scale
}

type fixed8Codec struct{}

func (fixed8Codec) DataType() DataType { return Float8 }

func (fixed8Codec) ByteSize(dims int) int { return dims }

func (fixed8Codec) Encode(dst []byte, v []float32) {
	dst = dst[:len(v)]
	for i, x := range v {
		dst[i] = EncodeFixed8(x)
	}
}

func (fixed8Codec) Decode(dst []float32, src []byte) {
	src = src[:len(dst)]
	for i, b := range src {
		dst[i] = DecodeFixed8(b)
	}
}
