package voyager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canbakiskan/voyager-go/blobstore"
	"github.com/canbakiskan/voyager-go/internal/compress"
	"github.com/canbakiskan/voyager-go/resource"
)

func TestBlobRoundTrip(t *testing.T) {
	ctx := context.Background()
	idx := populated(t, Cosine, Float8)
	plain, err := idx.ToBuffer()
	require.NoError(t, err)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			require.NoError(t, idx.SaveToBlob(ctx, store, "snap.voy", WithCompression(c)))

			stored, err := store.Get(ctx, "snap.voy")
			require.NoError(t, err)
			if c == CompressionNone {
				assert.Equal(t, plain, stored)
			} else {
				assert.True(t, compress.IsEnvelope(stored))
			}

			loaded, err := LoadFromBlob(ctx, store, "snap.voy", LoadOptions{Space: Ptr(Cosine)})
			require.NoError(t, err)
			assertSameIndex(t, idx, loaded)
		})
	}
}

func TestBlob_LocalStoreAcceptsIndexFiles(t *testing.T) {
	ctx := context.Background()
	idx := populated(t, Euclidean, Float32)
	dir := t.TempDir()
	require.NoError(t, idx.SaveIndex(dir+"/plain.voy"))

	store := blobstore.NewLocalStore(dir)
	loaded, err := LoadFromBlob(ctx, store, "plain.voy", LoadOptions{})
	require.NoError(t, err)
	assertSameIndex(t, idx, loaded)
}

func TestBlob_Errors(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	_, err := LoadFromBlob(ctx, store, "missing", LoadOptions{})
	assert.ErrorIs(t, err, ErrIOFailure)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	idx := populated(t, Euclidean, Float32)
	require.NoError(t, idx.SaveToBlob(ctx, store, "snap", WithCompression(CompressionZstd)))
	data, err := store.Get(ctx, "snap")
	require.NoError(t, err)

	data[len(data)-1] ^= 0xFF
	data[len(data)/2] ^= 0xFF
	require.NoError(t, store.Put(ctx, "broken", data))
	_, err = LoadFromBlob(ctx, store, "broken", LoadOptions{})
	assert.ErrorIs(t, err, ErrCorruptData)

	require.NoError(t, store.Put(ctx, "short", data[:8]))
	_, err = LoadFromBlob(ctx, store, "short", LoadOptions{})
	assert.ErrorIs(t, err, ErrCorruptData)

	_, err = ParseCompression("brotli")
	assert.ErrorIs(t, err, ErrArgument)
	c, err := ParseCompression("lz4")
	require.NoError(t, err)
	assert.Equal(t, CompressionLZ4, c)
}

func TestBlob_Throttled(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 30})
	idx := newTestIndex(t, Euclidean, 2, WithResourceController(rc))
	_, err := idx.AddItem([]float32{1, 1})
	require.NoError(t, err)

	store := blobstore.NewMemoryStore()
	require.NoError(t, idx.SaveToBlob(ctx, store, "a"))
	_, err = LoadFromBlob(ctx, store, "a", LoadOptions{Resource: rc})
	require.NoError(t, err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	slow := resource.NewController(resource.Config{IOLimitBytesPerSec: 1})
	idx2 := newTestIndex(t, Euclidean, 2, WithResourceController(slow))
	assert.Error(t, idx2.SaveToBlob(canceled, store, "b"))
}
