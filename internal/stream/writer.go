package stream

import (
	"bufio"
	"io"
)

// WriterStream is a buffered, write-only Stream over an io.Writer. It can
// only move forward.
type WriterStream struct {
	w   *bufio.Writer
	pos int64
}

var _ Stream = (*WriterStream)(nil)

// NewWriter wraps w. Call Flush when done.
func NewWriter(w io.Writer) *WriterStream {
	return &WriterStream{w: bufio.NewWriterSize(w, bufferSize)}
}

func (s *WriterStream) Read([]byte) (int, error) { return 0, ErrWriteOnly }

func (s *WriterStream) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.pos += int64(n)
	return n, err
}

func (s *WriterStream) Position() int64 { return s.pos }

// SetPosition only succeeds for the current position.
func (s *WriterStream) SetPosition(pos int64) bool { return pos == s.pos }

func (s *WriterStream) IsExhausted() bool { return true }

func (s *WriterStream) Peek() (uint32, error) { return 0, ErrWriteOnly }

func (s *WriterStream) IsSeekable() bool { return false }

func (s *WriterStream) TotalLength() int64 { return s.pos }

// Flush writes buffered data to the underlying writer.
func (s *WriterStream) Flush() error { return s.w.Flush() }
