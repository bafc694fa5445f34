// Package quantization implements the per-element storage encodings.
//
//   - Float32: 4 bytes per dimension, lossless
//   - Float8: 1 byte per dimension, fixed point with scale 1/127 for inputs in [-1, 1]
//   - E4M3: 1 byte per dimension, 8-bit float (1 sign, 4 exponent, 3 mantissa bits)
//
// Both 8-bit encodings are monotonic: a <= b implies
// Decode(Encode(a)) <= Decode(Encode(b)). Distances are always computed on
// decoded values.
//
//	codec, _ := quantization.NewCodec(quantization.E4M3)
//	buf := make([]byte, codec.ByteSize(len(v)))
//	codec.Encode(buf, v)
package quantization
