// Package header reads and writes the versioned metadata block that
// precedes a serialized index.
//
// Layout (little-endian):
//
//	"VOYA" | u32 version | u32 dimensions | u8 space | u8 storage |
//	f32 maxNorm | u8 useOrderPreservingTransform
//
// Streams that do not start with the magic bytes are legacy indexes
// without metadata.
package header

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/canbakiskan/voyager-go/distance"
	"github.com/canbakiskan/voyager-go/internal/binio"
	"github.com/canbakiskan/voyager-go/internal/stream"
	"github.com/canbakiskan/voyager-go/quantization"
)

// Version is the metadata version written by this package.
const Version = 1

var magic = []byte("VOYA")

// Magic is the little-endian uint32 value of the magic bytes, as returned
// by stream.Stream.Peek.
const Magic uint32 = 'V' | 'O'<<8 | 'Y'<<16 | 'A'<<24

var (
	// ErrBadMagic is returned when the stream does not start with "VOYA".
	ErrBadMagic = errors.New("header: missing magic bytes")
	// ErrUnsupportedVersion is returned for metadata versions other than 1.
	ErrUnsupportedVersion = errors.New("header: unsupported metadata version")
	// ErrInvalid is returned for out-of-range metadata fields.
	ErrInvalid = errors.New("header: invalid metadata")
)

// Metadata describes how an index was built.
type Metadata struct {
	NumDimensions   int
	Space           distance.Space
	StorageDataType quantization.DataType
	// MaxNorm and UseOrderPreservingTransform are carried for format
	// compatibility; inner-product indexes built here always store 0/false.
	MaxNorm                     float32
	UseOrderPreservingTransform bool
}

type rawV1 struct {
	Version                     uint32
	NumDimensions               uint32
	Space                       uint8
	StorageDataType             uint8
	MaxNorm                     float32
	UseOrderPreservingTransform uint8
}

// HasMagic reports whether the next four bytes of s are the magic bytes.
// It does not advance the stream.
func HasMagic(s stream.Stream) bool {
	v, err := s.Peek()
	return err == nil && v == Magic
}

// Write writes m as version 1 metadata.
func Write(w *binio.Writer, m Metadata) error {
	if m.NumDimensions <= 0 || uint64(m.NumDimensions) > 1<<32-1 {
		return fmt.Errorf("%w: dimensions %d", ErrInvalid, m.NumDimensions)
	}
	raw := rawV1{
		Version:         Version,
		NumDimensions:   uint32(m.NumDimensions),
		Space:           uint8(m.Space),
		StorageDataType: uint8(m.StorageDataType),
		MaxNorm:         m.MaxNorm,
	}
	if m.UseOrderPreservingTransform {
		raw.UseOrderPreservingTransform = 1
	}
	if err := w.Bytes(magic); err != nil {
		return err
	}
	return w.Write(&raw)
}

// Read reads metadata, including the magic bytes.
func Read(r *binio.Reader) (Metadata, error) {
	var got [4]byte
	if err := r.ReadFull(got[:]); err != nil {
		return Metadata{}, err
	}
	if !bytes.Equal(got[:], magic) {
		return Metadata{}, fmt.Errorf("%w: %q", ErrBadMagic, got[:])
	}

	var version uint32
	if err := r.Read(&version); err != nil {
		return Metadata{}, err
	}
	if version != Version {
		return Metadata{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	var raw struct {
		NumDimensions               uint32
		Space                       uint8
		StorageDataType             uint8
		MaxNorm                     float32
		UseOrderPreservingTransform uint8
	}
	if err := r.Read(&raw); err != nil {
		return Metadata{}, err
	}

	space := distance.Space(raw.Space)
	if !space.Valid() {
		return Metadata{}, fmt.Errorf("%w: %d", distance.ErrUnknownSpace, raw.Space)
	}
	dt := quantization.DataType(raw.StorageDataType)
	if !dt.Valid() {
		return Metadata{}, fmt.Errorf("%w: %d", quantization.ErrUnknownDataType, raw.StorageDataType)
	}
	if raw.NumDimensions == 0 || raw.NumDimensions > 1<<31-1 {
		return Metadata{}, fmt.Errorf("%w: dimensions %d", ErrInvalid, raw.NumDimensions)
	}

	return Metadata{
		NumDimensions:               int(raw.NumDimensions),
		Space:                       space,
		StorageDataType:             dt,
		MaxNorm:                     raw.MaxNorm,
		UseOrderPreservingTransform: raw.UseOrderPreservingTransform != 0,
	}, nil
}
