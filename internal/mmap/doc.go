// Package mmap provides read-only memory-mapped file access.
//
//	m, err := mmap.Open("index.voy")
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes()
//
// On Unix the file is mapped with mmap(2) and advised as sequential, since
// the index loader reads it front to back exactly once. Other platforms fall
// back to reading the file into memory.
package mmap
