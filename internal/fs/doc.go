// Package fs provides filesystem abstractions for testability and fault injection.
//
//   - [LocalFS]: production implementation on top of the os package
//   - [FaultyFS]: test wrapper that fails opens, writes, syncs or renames
//
// Production code uses fs.Default. Tests inject a FaultyFS to exercise the
// I/O failure paths of index saving:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp-", fs.Fault{FailAfterBytes: 64})
package fs
