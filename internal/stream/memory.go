package stream

import (
	"encoding/binary"
	"io"
)

// MemoryStream is an in-memory Stream.
type MemoryStream struct {
	buf      []byte
	pos      int64
	readOnly bool
}

var _ Stream = (*MemoryStream)(nil)

// NewMemoryStream creates an empty, writable MemoryStream.
func NewMemoryStream(sizeHint int) *MemoryStream {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &MemoryStream{buf: make([]byte, 0, sizeHint)}
}

// NewMemoryReader creates a read-only MemoryStream over data.
// data is not copied and must not be modified while the stream is in use.
func NewMemoryReader(data []byte) *MemoryStream {
	return &MemoryStream{buf: data, readOnly: true}
}

// Write implements io.Writer, growing the buffer as needed.
func (m *MemoryStream) Write(p []byte) (int, error) {
	if m.readOnly {
		return 0, ErrReadOnly
	}
	end := int(m.pos) + len(p)
	if end > cap(m.buf) {
		newCap := cap(m.buf) * 2
		if newCap < end {
			newCap = end
		}
		grown := make([]byte, len(m.buf), newCap)
		copy(grown, m.buf)
		m.buf = grown
	}
	if end > len(m.buf) {
		m.buf = m.buf[:end]
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += int64(n)
	return n, nil
}

// Read implements io.Reader.
func (m *MemoryStream) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *MemoryStream) Position() int64 { return m.pos }

func (m *MemoryStream) SetPosition(pos int64) bool {
	if pos < 0 || pos > int64(len(m.buf)) {
		return false
	}
	m.pos = pos
	return true
}

func (m *MemoryStream) IsExhausted() bool { return m.pos >= int64(len(m.buf)) }

func (m *MemoryStream) Peek() (uint32, error) {
	if int64(len(m.buf))-m.pos < 4 {
		return 0, ErrShortPeek
	}
	return binary.LittleEndian.Uint32(m.buf[m.pos:]), nil
}

func (m *MemoryStream) IsSeekable() bool { return true }

func (m *MemoryStream) TotalLength() int64 { return int64(len(m.buf)) }

// Bytes returns the buffer contents.
func (m *MemoryStream) Bytes() []byte { return m.buf }
