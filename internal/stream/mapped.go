package stream

import (
	"github.com/canbakiskan/voyager-go/internal/mmap"
)

// MappedStream is a read-only Stream over a memory-mapped file.
type MappedStream struct {
	*MemoryStream
	m *mmap.Mapping
}

// OpenMapped maps path into memory and returns a stream over it.
func OpenMapped(path string) (*MappedStream, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	return &MappedStream{MemoryStream: NewMemoryReader(m.Bytes()), m: m}, nil
}

// Close unmaps the file. The stream must not be used afterwards.
func (s *MappedStream) Close() error {
	s.MemoryStream = NewMemoryReader(nil)
	return s.m.Close()
}
