// Package stream provides the seekable byte source/sink that index
// serialization is written against.
//
// Implementations of the [Stream] interface:
//
//   - [MemoryStream]: growable in-memory buffer (toBuffer / fromBuffer)
//   - [FileStream]: buffered file reader or writer on top of internal/fs
//   - [MappedStream]: read-only view of a memory-mapped file
//   - [WriterStream]: forward-only sink over any io.Writer
//
// The serializer never type-switches on the concrete stream.
package stream
