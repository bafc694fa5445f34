// Package compress wraps serialized indexes in a small compression envelope.
//
// Envelope layout (little-endian):
//
//	"VOYZ" | u8 type | u64 uncompressed size | payload
//
// When compression saves less than 10% the payload is stored as is and the
// type byte is None.
package compress

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None stores the payload uncompressed.
	None Type = 0
	// LZ4 is LZ4 block compression (fast).
	LZ4 Type = 1
	// Zstd is Zstandard compression (better ratio).
	Zstd Type = 2
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseType maps a name to a Type.
func ParseType(name string) (Type, error) {
	switch name {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

var (
	// ErrUnknownType is returned for compression types outside the known set.
	ErrUnknownType = errors.New("compress: unknown compression type")
	// ErrCorrupt is returned for malformed envelopes.
	ErrCorrupt = errors.New("compress: corrupt envelope")
)

var magic = []byte("VOYZ")

const (
	headerSize = 4 + 1 + 8

	// maxLZ4Ratio bounds the expansion of an LZ4 block.
	maxLZ4Ratio = 255

	// maxPrealloc bounds the initial buffer when decoding zstd.
	maxPrealloc = 64 << 20

	// maxZstdWindow bounds the window a zstd frame may ask for. The
	// default encoder levels use at most 8 MiB.
	maxZstdWindow = 128 << 20
)

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxWindow(maxZstdWindow),
	)
	return dec
}

// IsEnvelope reports whether data starts with the envelope magic.
func IsEnvelope(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

// Encode wraps data in an envelope compressed with t.
func Encode(data []byte, t Type) ([]byte, error) {
	var payload []byte
	switch t {
	case None:
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("compress: lz4: %w", err)
		}
		payload = buf[:n]
	case Zstd:
		enc := getZstdEncoder()
		payload = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}

	// If compression doesn't help (ratio > 0.9), store uncompressed
	if t == None || len(payload) == 0 || float64(len(payload)) > float64(len(data))*0.9 {
		t, payload = None, data
	}

	out := make([]byte, headerSize+len(payload))
	copy(out, magic)
	out[4] = byte(t)
	binary.LittleEndian.PutUint64(out[5:], uint64(len(data)))
	copy(out[headerSize:], payload)
	return out, nil
}

// Decode unwraps an envelope produced by Encode.
func Decode(data []byte) ([]byte, Type, error) {
	if len(data) < headerSize || !IsEnvelope(data) {
		return nil, None, fmt.Errorf("%w: missing header", ErrCorrupt)
	}
	t := Type(data[4])
	size := binary.LittleEndian.Uint64(data[5:])
	payload := data[headerSize:]

	switch t {
	case None:
		if size != uint64(len(payload)) {
			return nil, t, fmt.Errorf("%w: size %d does not match payload %d", ErrCorrupt, size, len(payload))
		}
		return payload, t, nil

	case LZ4:
		if size > uint64(len(payload))*maxLZ4Ratio+16 {
			return nil, t, fmt.Errorf("%w: size %d too large for payload %d", ErrCorrupt, size, len(payload))
		}
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, t, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
		}
		if uint64(n) != size {
			return nil, t, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, t, nil

	case Zstd:
		out, err := decodeZstd(payload, size)
		if err != nil {
			return nil, t, err
		}
		return out, t, nil

	default:
		return nil, t, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
}

// decodeZstd stream-decodes payload, reading at most size+1 bytes of output
// so a frame that inflates past the declared size stops early.
func decodeZstd(payload []byte, size uint64) ([]byte, error) {
	if size >= math.MaxInt64 {
		return nil, fmt.Errorf("%w: size %d out of range", ErrCorrupt, size)
	}

	dec := getZstdDecoder()
	defer func() {
		_ = dec.Reset(nil)
		zstdDecoderPool.Put(dec)
	}()
	if err := dec.Reset(bytes.NewReader(payload)); err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
	}

	out := bytes.NewBuffer(make([]byte, 0, min(size, maxPrealloc)))
	n, err := io.Copy(out, io.LimitReader(dec, int64(size)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
	}
	if uint64(n) != size {
		return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
	}
	return out.Bytes(), nil
}
