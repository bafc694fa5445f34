// Package hnsw implements Hierarchical Navigable Small World graphs.
//
// HNSW provides approximate nearest neighbor search with high recall and
// sub-linear query time. Nodes are addressed by dense slots that are never
// reclaimed; deletion is a tombstone that hides a node from results while
// keeping it available for traversal.
//
// # Parameters
//
//   - M: Max connections per node on the upper layers (default: 12)
//   - M0: Max connections per node on layer 0 (2*M)
//   - EfConstruction: Construction queue size (default: 200)
//   - ef: Search queue size, max(ef, k) per query
//
// # Concurrency
//
// Inserts, searches and tombstone flips run concurrently. Neighbor lists are
// guarded per node, the entry point by its own lock, and Resize and
// serialization take the graph lock exclusively.
//
// # Reference
//
// Malkov & Yashunin, "Efficient and robust approximate nearest neighbor search
// using Hierarchical Navigable Small World graphs", IEEE TPAMI 2018.
package hnsw
