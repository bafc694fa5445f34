// Package voyager provides an embedded approximate nearest neighbor index
// for Go, built on a Hierarchical Navigable Small World (HNSW) graph.
//
// Vectors are addressed by uint64 labels, compared in one of three spaces
// (Euclidean, InnerProduct, Cosine) and stored as Float32, Float8 or E4M3.
// Indexes serialize to a compact file format with a metadata header and
// can be stored locally or in S3-compatible object storage.
//
// # Quick Start
//
//	idx, _ := voyager.New(voyager.Cosine, 128, voyager.WithMaxElements(10_000))
//	defer idx.Close()
//
//	label, _ := idx.AddItem(vector)              // automatic label
//	_, _ = idx.AddItem(other, 42)                // explicit label
//	labels, _ := idx.AddItems(batch, nil, -1)    // parallel batch insert
//
//	res, _ := idx.Query(query, 10)
//	for i, l := range res.Labels {
//	    fmt.Println(l, res.Distances[i])
//	}
//
// # Capacity
//
// An index holds at most MaxElements elements. Inserting beyond it fails
// with an *ErrCapacityExceeded; call Resize to grow the index. Deleted
// elements keep their slot.
//
// # Deletion
//
// MarkDeleted hides a label from queries and IDs without freeing its slot.
// The vector stays retrievable with GetVector, and UnmarkDeleted restores
// it. A deleted label may be added again with a new vector.
//
// # Persistence
//
//	_ = idx.SaveIndex("products.voy")            // atomic temp file + rename
//	buf, _ := idx.ToBuffer()
//	idx2, _ := voyager.LoadIndex("products.voy", voyager.LoadOptions{})
//	idx3, _ := voyager.FromBuffer(buf, voyager.LoadOptions{})
//
// Files written by older versions lack the metadata header; load them by
// setting LoadOptions.NumDimensions (and Space and StorageDataType when
// they differ from Euclidean and Float32).
//
// Snapshots go to any blobstore.BlobStore, optionally compressed:
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("indexes/"))
//	_ = idx.SaveToBlob(ctx, store, "products.voy", voyager.WithCompression(voyager.CompressionZstd))
//	idx4, _ := voyager.LoadFromBlob(ctx, store, "products.voy", voyager.LoadOptions{})
//
// # Errors
//
// Sentinel errors (ErrArgument, ErrCorruptData, ErrIOFailure, ErrClosed)
// are matched with errors.Is. Typed errors carry details and are matched
// with errors.As:
//
//	var dm *voyager.ErrDimensionMismatch
//	if errors.As(err, &dm) {
//	    log.Printf("expected %d dimensions, got %d", dm.Expected, dm.Actual)
//	}
//
// # Observability
//
// WithLogger attaches a log/slog based Logger and WithMetricsCollector a
// MetricsCollector; see the metrics/prometheus package for a Prometheus
// implementation. WithResourceController shares a memory, worker and IO
// budget between indexes.
package voyager
