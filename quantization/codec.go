package quantization

import (
	"errors"
	"fmt"
)

// ErrUnknownDataType is returned for storage codes outside the known set.
var ErrUnknownDataType = errors.New("unknown storage data type")

// DataType selects the storage encoding of vector elements.
// The numeric values are part of the on-disk format.
type DataType uint8

const (
	// Float8 is 8-bit fixed point with scale 1/127.
	Float8 DataType = 16
	// Float32 is full-precision IEEE-754.
	Float32 DataType = 32
	// E4M3 is an 8-bit float with 4 exponent and 3 mantissa bits.
	E4M3 DataType = 48
)

func (d DataType) String() string {
	switch d {
	case Float8:
		return "Float8"
	case Float32:
		return "Float32"
	case E4M3:
		return "E4M3"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(d))
	}
}

// Valid reports whether d is a known data type.
func (d DataType) Valid() bool {
	return d == Float8 || d == Float32 || d == E4M3
}

// ParseDataType maps a name to a DataType.
func ParseDataType(name string) (DataType, error) {
	switch name {
	case "Float8", "float8", "fixed8":
		return Float8, nil
	case "Float32", "float32":
		return Float32, nil
	case "E4M3", "e4m3":
		return E4M3, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDataType, name)
}

// Codec converts between float vectors and their stored bytes.
type Codec interface {
	// DataType returns the storage kind implemented by the codec.
	DataType() DataType
	// ByteSize returns the encoded size of a vector with dims elements.
	ByteSize(dims int) int
	// Encode writes v into dst, which must be ByteSize(len(v)) long.
	Encode(dst []byte, v []float32)
	// Decode writes the vector stored in src into dst.
	Decode(dst []float32, src []byte)
}

// NewCodec returns the codec for d.
func NewCodec(d DataType) (Codec, error) {
	switch d {
	case Float32:
		return float32Codec{}, nil
	case Float8:
		return fixed8Codec{}, nil
	case E4M3:
		return e4m3Codec{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownDataType, uint8(d))
	}
}
