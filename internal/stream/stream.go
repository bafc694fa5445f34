package stream

import (
	"errors"
	"io"
)

var (
	// ErrShortPeek is returned by Peek when fewer than 4 bytes remain.
	ErrShortPeek = errors.New("stream: fewer than 4 bytes remain to peek")
	// ErrReadOnly is returned when writing to a stream opened for reading.
	ErrReadOnly = errors.New("stream: stream is read-only")
	// ErrWriteOnly is returned when reading from a stream opened for writing.
	ErrWriteOnly = errors.New("stream: stream is write-only")
)

// Stream is a seekable byte source or sink.
type Stream interface {
	io.Reader
	io.Writer

	// Position returns the current offset from the start of the stream.
	Position() int64
	// SetPosition moves to pos and reports whether the move was possible.
	SetPosition(pos int64) bool
	// IsExhausted reports whether a reader has consumed every byte.
	IsExhausted() bool
	// Peek returns the next 4 bytes as a little-endian uint32 without advancing.
	Peek() (uint32, error)
	// IsSeekable reports whether SetPosition can move backwards.
	IsSeekable() bool
	// TotalLength returns the number of bytes in the stream, or -1 if unknown.
	TotalLength() int64
}

// Remaining returns the number of unread bytes of s, or -1 when the total
// length is unknown.
func Remaining(s Stream) int64 {
	total := s.TotalLength()
	if total < 0 {
		return -1
	}
	if r := total - s.Position(); r > 0 {
		return r
	}
	return 0
}
