package quantization

import (
	"encoding/binary"
	"math"
)

type float32Codec struct{}

func (float32Codec) DataType() DataType { return Float32 }

func (float32Codec) ByteSize(dims int) int { return dims * 4 }

func (float32Codec) Encode(dst []byte, v []float32) {
	dst = dst[:len(v)*4]
	for i, x := range v {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(x))
	}
}

func (float32Codec) Decode(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
}
