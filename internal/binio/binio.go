// Package binio reads and writes little-endian binary records on a stream.
//
// Reader checks every length against the bytes left in the stream before
// allocating, so a corrupt count can neither over-allocate nor read past
// the end of the input.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/canbakiskan/voyager-go/internal/stream"
)

// ErrTruncated is returned when a record extends past the end of the stream.
var ErrTruncated = errors.New("binio: record extends past end of stream")

// chunkSize bounds a single allocation when the stream length is unknown.
const chunkSize = 1 << 20

var byteOrder = binary.LittleEndian

// Writer writes little-endian records.
type Writer struct {
	s       stream.Stream
	scratch [8]byte
}

// NewWriter creates a Writer on s.
func NewWriter(s stream.Stream) *Writer {
	return &Writer{s: s}
}

// Write encodes a fixed-size value (struct of fixed-size fields, number or
// slice of numbers).
func (w *Writer) Write(v any) error {
	return binary.Write(w.s, byteOrder, v)
}

// Uint32 writes a single uint32.
func (w *Writer) Uint32(v uint32) error {
	byteOrder.PutUint32(w.scratch[:4], v)
	_, err := w.s.Write(w.scratch[:4])
	return err
}

// Bytes writes p verbatim.
func (w *Writer) Bytes(p []byte) error {
	_, err := w.s.Write(p)
	return err
}

// Reader reads little-endian records.
type Reader struct {
	s stream.Stream
}

// NewReader creates a Reader on s.
func NewReader(s stream.Stream) *Reader {
	return &Reader{s: s}
}

// Remaining returns the unread byte count, or -1 if unknown.
func (r *Reader) Remaining() int64 {
	return stream.Remaining(r.s)
}

// Position returns the current stream offset.
func (r *Reader) Position() int64 {
	return r.s.Position()
}

// Check returns ErrTruncated if fewer than n bytes remain.
func (r *Reader) Check(n uint64) error {
	rem := r.Remaining()
	if rem >= 0 && n > uint64(rem) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.Position(), rem)
	}
	return nil
}

// Read decodes a fixed-size value.
func (r *Reader) Read(v any) error {
	size := binary.Size(v)
	if size < 0 {
		return fmt.Errorf("binio: %T is not a fixed-size value", v)
	}
	if err := r.Check(uint64(size)); err != nil {
		return err
	}
	return wrapEOF(binary.Read(r.s, byteOrder, v))
}

// Uint32 reads a single uint32.
func (r *Reader) Uint32() (uint32, error) {
	var v uint32
	if err := r.Read(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// ReadFull fills p from the stream.
func (r *Reader) ReadFull(p []byte) error {
	if err := r.Check(uint64(len(p))); err != nil {
		return err
	}
	_, err := io.ReadFull(r.s, p)
	return wrapEOF(err)
}

// Bytes reads and returns the next n bytes.
func (r *Reader) Bytes(n uint64) ([]byte, error) {
	if err := r.Check(n); err != nil {
		return nil, err
	}
	if r.Remaining() >= 0 {
		p := make([]byte, n)
		_, err := io.ReadFull(r.s, p)
		return p, wrapEOF(err)
	}
	// Unknown length: grow in bounded steps so a bogus n fails on EOF
	// before it can exhaust memory.
	var p []byte
	for uint64(len(p)) < n {
		step := min(n-uint64(len(p)), chunkSize)
		chunk := make([]byte, step)
		if _, err := io.ReadFull(r.s, chunk); err != nil {
			return nil, wrapEOF(err)
		}
		p = append(p, chunk...)
	}
	return p, nil
}

func wrapEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	return err
}
