package stream

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/canbakiskan/voyager-go/internal/fs"
)

const bufferSize = 256 * 1024

// FileStream is a buffered Stream over a file. A FileStream either reads or
// writes, never both.
type FileStream struct {
	file  fs.File
	r     *bufio.Reader
	w     *bufio.Writer
	pos   int64
	total int64
}

var _ Stream = (*FileStream)(nil)

// OpenFile opens path on fsys for reading.
func OpenFile(fsys fs.FileSystem, path string) (*FileStream, error) {
	f, err := fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &FileStream{
		file:  f,
		r:     bufio.NewReaderSize(f, bufferSize),
		total: fi.Size(),
	}, nil
}

// NewFileWriter wraps an open, empty file for writing.
func NewFileWriter(f fs.File) *FileStream {
	return &FileStream{
		file: f,
		w:    bufio.NewWriterSize(f, bufferSize),
	}
}

func (s *FileStream) Read(p []byte) (int, error) {
	if s.r == nil {
		return 0, ErrWriteOnly
	}
	n, err := s.r.Read(p)
	s.pos += int64(n)
	return n, err
}

func (s *FileStream) Write(p []byte) (int, error) {
	if s.w == nil {
		return 0, ErrReadOnly
	}
	n, err := s.w.Write(p)
	s.pos += int64(n)
	if s.pos > s.total {
		s.total = s.pos
	}
	return n, err
}

func (s *FileStream) Position() int64 { return s.pos }

func (s *FileStream) SetPosition(pos int64) bool {
	if pos < 0 || pos > s.total {
		return false
	}
	if s.w != nil {
		if err := s.w.Flush(); err != nil {
			return false
		}
	}
	if _, err := s.file.Seek(pos, io.SeekStart); err != nil {
		return false
	}
	if s.r != nil {
		s.r.Reset(s.file)
	}
	s.pos = pos
	return true
}

func (s *FileStream) IsExhausted() bool {
	if s.r == nil {
		return true
	}
	return s.pos >= s.total
}

func (s *FileStream) Peek() (uint32, error) {
	if s.r == nil {
		return 0, ErrWriteOnly
	}
	b, err := s.r.Peek(4)
	if len(b) < 4 {
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		return 0, ErrShortPeek
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (s *FileStream) IsSeekable() bool { return true }

func (s *FileStream) TotalLength() int64 { return s.total }

// Flush writes buffered data to the file.
func (s *FileStream) Flush() error {
	if s.w == nil {
		return nil
	}
	return s.w.Flush()
}

// Sync flushes buffered data and commits the file to stable storage.
func (s *FileStream) Sync() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

// Close flushes buffered data and closes the file.
func (s *FileStream) Close() error {
	err := s.Flush()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}
