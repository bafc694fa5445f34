package voyager

import (
	"context"
	"fmt"
	"time"

	"github.com/canbakiskan/voyager-go/blobstore"
	"github.com/canbakiskan/voyager-go/internal/compress"
	"github.com/canbakiskan/voyager-go/internal/stream"
)

// Compression selects how SaveToBlob encodes the serialized index.
type Compression = compress.Type

const (
	// CompressionNone stores the same bytes as ToBuffer.
	CompressionNone = compress.None
	// CompressionLZ4 favors speed.
	CompressionLZ4 = compress.LZ4
	// CompressionZstd favors size.
	CompressionZstd = compress.Zstd
)

// ParseCompression maps "none", "lz4" or "zstd" to a Compression.
func ParseCompression(name string) (Compression, error) {
	c, err := compress.ParseType(name)
	if err != nil {
		return CompressionNone, fmt.Errorf("%w: %w", ErrArgument, err)
	}
	return c, nil
}

// BlobOption configures SaveToBlob.
type BlobOption func(*blobOptions)

type blobOptions struct {
	compression Compression
}

// WithCompression compresses the blob. Payloads that do not shrink by at
// least 10% are stored uncompressed inside the envelope.
func WithCompression(c Compression) BlobOption {
	return func(o *blobOptions) { o.compression = c }
}

// SaveToBlob serializes the index and stores it under name. Uploads are
// throttled by the IO budget of the index's resource controller.
func (idx *Index) SaveToBlob(ctx context.Context, store blobstore.BlobStore, name string, opts ...BlobOption) error {
	var o blobOptions
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	start := time.Now()
	target := "blob:" + name
	n, err := idx.saveToBlob(ctx, store, name, o)
	idx.recordSave(target, start, n, err)
	return err
}

func (idx *Index) saveToBlob(ctx context.Context, store blobstore.BlobStore, name string, o blobOptions) (int64, error) {
	s := stream.NewMemoryStream(idx.graph.Len()*idx.graph.ElementSize() + 256)
	if err := idx.save(s); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	data := s.Bytes()
	if o.compression != CompressionNone {
		var err error
		if data, err = compress.Encode(data, o.compression); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrArgument, err)
		}
	}

	if err := idx.rc.AcquireIO(ctx, len(data)); err != nil {
		return 0, err
	}
	if err := store.Put(ctx, name, data); err != nil {
		return 0, fmt.Errorf("%w: put %s: %w", ErrIOFailure, name, err)
	}
	return int64(len(data)), nil
}

// LoadFromBlob reads an index stored by SaveToBlob. Plain index bytes, as
// written by SaveIndex or ToBuffer, are accepted too. A missing blob
// returns an error matching both ErrIOFailure and blobstore.ErrNotFound.
func LoadFromBlob(ctx context.Context, store blobstore.BlobStore, name string, opts LoadOptions) (*Index, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrIOFailure, name, err)
	}
	if err := opts.Resource.AcquireIO(ctx, len(data)); err != nil {
		return nil, err
	}

	if compress.IsEnvelope(data) {
		if data, _, err = compress.Decode(data); err != nil {
			return nil, readError(fmt.Errorf("decompress %s: %w", name, err))
		}
	}
	return load(stream.NewMemoryReader(data), opts, "blob:"+name, "buffer")
}
