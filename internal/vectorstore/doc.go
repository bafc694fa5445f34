// Package vectorstore keeps the encoded vectors of an index in fixed-size
// segments indexed by slot.
//
// Slot i lives in segment i>>segmentBits at byte offset
// (i&segmentMask)*stride, where stride is the codec's encoded size for the
// configured dimensionality. Segments are allocated on first write and never
// move, so growth does not copy existing vectors and distinct slots may be
// written and read concurrently.
package vectorstore
