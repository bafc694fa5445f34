// Package searcher provides the pooled scratch state of a graph search:
// the two priority queues, the visited set and decode buffers.
//
// A Searcher is owned by one goroutine for the duration of one search or
// one insertion and is returned to the pool afterwards.
package searcher
