package voyager

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canbakiskan/voyager-go/distance"
	"github.com/canbakiskan/voyager-go/internal/fs"
	"github.com/canbakiskan/voyager-go/quantization"
)

// metadataSize is the length of the version 1 metadata block.
const metadataSize = 19

func populated(t *testing.T, space distance.Space, dt quantization.DataType) *Index {
	t.Helper()
	idx := newTestIndex(t, space, 4, WithMaxElements(64), WithStorageDataType(dt))
	vs := make([][]float32, 50)
	for i := range vs {
		x := float32(i) / 50
		vs[i] = []float32{x, 1 - x, x * x, 0.5}
	}
	_, err := idx.AddItems(vs, nil, -1)
	require.NoError(t, err)
	require.NoError(t, idx.MarkDeleted(7))
	return idx
}

func assertSameIndex(t *testing.T, want, got *Index) {
	t.Helper()
	assert.Equal(t, want.IDs(), got.IDs())
	assert.Equal(t, want.Space(), got.Space())
	assert.Equal(t, want.NumDimensions(), got.NumDimensions())
	assert.Equal(t, want.StorageDataType(), got.StorageDataType())
	assert.Equal(t, want.MaxElements(), got.MaxElements())
	assert.Equal(t, want.NumElements(), got.NumElements())
	assert.Equal(t, want.M(), got.M())
	assert.Equal(t, want.EfConstruction(), got.EfConstruction())

	for _, label := range want.IDs() {
		wv, err := want.GetVector(label)
		require.NoError(t, err)
		gv, err := got.GetVector(label)
		require.NoError(t, err)
		assert.Equal(t, wv, gv)

		wr, err := want.Query(wv, 5)
		require.NoError(t, err)
		gr, err := got.Query(wv, 5)
		require.NoError(t, err)
		assert.Equal(t, wr, gr)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, space := range []distance.Space{Euclidean, InnerProduct, Cosine} {
		for _, dt := range []quantization.DataType{Float32, Float8, E4M3} {
			t.Run(space.String()+"/"+dt.String(), func(t *testing.T) {
				idx := populated(t, space, dt)

				buf, err := idx.ToBuffer()
				require.NoError(t, err)

				var w bytes.Buffer
				n, err := idx.WriteTo(&w)
				require.NoError(t, err)
				assert.Equal(t, int64(len(buf)), n)
				assert.Equal(t, buf, w.Bytes())

				path := filepath.Join(t.TempDir(), "index.voy")
				require.NoError(t, idx.SaveIndex(path))
				onDisk, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.Equal(t, buf, onDisk)

				fromBuf, err := FromBuffer(buf, LoadOptions{})
				require.NoError(t, err)
				assertSameIndex(t, idx, fromBuf)
				assert.False(t, fromBuf.Has(7))

				fromFile, err := LoadIndex(path, LoadOptions{
					Space:           Ptr(space),
					NumDimensions:   Ptr(4),
					StorageDataType: Ptr(dt),
				})
				require.NoError(t, err)
				assertSameIndex(t, idx, fromFile)

				mapped, err := LoadIndexMapped(path, LoadOptions{})
				require.NoError(t, err)
				assertSameIndex(t, idx, mapped)

				again, err := fromFile.ToBuffer()
				require.NoError(t, err)
				assert.Equal(t, buf, again)
			})
		}
	}
}

func TestLoadedIndexAcceptsInserts(t *testing.T) {
	idx := populated(t, Euclidean, Float32)
	buf, err := idx.ToBuffer()
	require.NoError(t, err)

	loaded, err := FromBuffer(buf, LoadOptions{Ef: 40})
	require.NoError(t, err)
	assert.Equal(t, 40, loaded.Ef())

	label, err := loaded.AddItem([]float32{9, 9, 9, 9})
	require.NoError(t, err)
	assert.Equal(t, uint64(50), label)

	_, err = loaded.AddItem([]float32{1, 1, 1, 1}, 3)
	assert.ErrorIs(t, err, &ErrDuplicateLabel{})

	res, err := loaded.Query([]float32{9, 9, 9, 9}, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{50}, res.Labels)
}

func TestLegacyLoad(t *testing.T) {
	idx := populated(t, InnerProduct, Float32)
	buf, err := idx.ToBuffer()
	require.NoError(t, err)
	legacy := buf[metadataSize:]

	t.Run("RequiresDimensions", func(t *testing.T) {
		_, err := FromBuffer(legacy, LoadOptions{})
		require.ErrorIs(t, err, ErrArgument)
		assert.Contains(t, err.Error(), "Index buffer has no metadata. Please provide space, numDimensions, and storageDataType options.")

		path := filepath.Join(t.TempDir(), "legacy.hnsw")
		require.NoError(t, os.WriteFile(path, legacy, 0o644))
		_, err = LoadIndex(path, LoadOptions{})
		require.ErrorIs(t, err, ErrArgument)
		assert.Contains(t, err.Error(), "Index file has no metadata.")
	})

	t.Run("WithOptions", func(t *testing.T) {
		loaded, err := FromBuffer(legacy, LoadOptions{
			Space:         Ptr(InnerProduct),
			NumDimensions: Ptr(4),
		})
		require.NoError(t, err)
		assertSameIndex(t, idx, loaded)

		// Saving again writes metadata.
		out, err := loaded.ToBuffer()
		require.NoError(t, err)
		assert.Equal(t, buf, out)
	})

	t.Run("DefaultsToEuclideanFloat32", func(t *testing.T) {
		loaded, err := FromBuffer(legacy, LoadOptions{NumDimensions: Ptr(4)})
		require.NoError(t, err)
		assert.Equal(t, Euclidean, loaded.Space())
		assert.Equal(t, Float32, loaded.StorageDataType())
	})

	t.Run("UnknownEnum", func(t *testing.T) {
		_, err := FromBuffer(legacy, LoadOptions{NumDimensions: Ptr(4), Space: Ptr(distance.Space(5))})
		assert.ErrorIs(t, err, &ErrUnknownEnumValue{})
	})
}

func TestMetadataMismatch(t *testing.T) {
	idx := populated(t, Euclidean, Float32)
	buf, err := idx.ToBuffer()
	require.NoError(t, err)

	tests := []struct {
		name string
		opts LoadOptions
		msg  string
	}{
		{
			name: "StorageDataType",
			opts: LoadOptions{StorageDataType: Ptr(E4M3)},
			msg:  "Provided storage data type (E4M3) does not match the data type used in this file (Float32).",
		},
		{
			name: "Space",
			opts: LoadOptions{Space: Ptr(Cosine)},
			msg:  "Provided space type (Cosine) does not match the space type used in this file (Euclidean).",
		},
		{
			name: "NumDimensions",
			opts: LoadOptions{NumDimensions: Ptr(8)},
			msg:  "Provided number of dimensions (8) does not match the number of dimensions used in this file (4).",
		},
		{
			name: "StorageCheckedFirst",
			opts: LoadOptions{Space: Ptr(Cosine), NumDimensions: Ptr(8), StorageDataType: Ptr(Float8)},
			msg:  "Provided storage data type (Float8) does not match the data type used in this file (Float32).",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBuffer(buf, tt.opts)
			var mm *ErrMetadataMismatch
			require.ErrorAs(t, err, &mm)
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestCorruptInput(t *testing.T) {
	idx := populated(t, Euclidean, Float32)
	buf, err := idx.ToBuffer()
	require.NoError(t, err)

	t.Run("Truncated", func(t *testing.T) {
		opts := LoadOptions{NumDimensions: Ptr(4)}
		for n := 0; n < len(buf); n++ {
			_, err := FromBuffer(buf[:n], opts)
			require.ErrorIs(t, err, ErrCorruptData, "prefix %d", n)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := FromBuffer(nil, LoadOptions{})
		assert.Error(t, err)
	})

	le := binary.LittleEndian
	tests := []struct {
		name   string
		mutate func(b []byte)
	}{
		{"version", func(b []byte) { le.PutUint32(b[4:], 9) }},
		{"zero dimensions", func(b []byte) { le.PutUint32(b[8:], 0) }},
		{"space", func(b []byte) { b[12] = 7 }},
		{"storage", func(b []byte) { b[13] = 99 }},
		{"element count", func(b []byte) { le.PutUint64(b[metadataSize+16:], 1<<40) }},
		{"record size", func(b []byte) { le.PutUint64(b[metadataSize+24:], 3) }},
		{"entry point", func(b []byte) { le.PutUint32(b[metadataSize+52:], 1<<20) }},
		{"dimensions disagree with records", func(b []byte) { le.PutUint32(b[8:], 5) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bytes.Clone(buf)
			tt.mutate(b)
			_, err := FromBuffer(b, LoadOptions{})
			assert.ErrorIs(t, err, ErrCorruptData)
		})
	}
}

func TestSaveIndex_Faults(t *testing.T) {
	idx := populated(t, Euclidean, Float32)
	dir := t.TempDir()
	path := filepath.Join(dir, "idx.voy")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule("idx.voy", fs.Fault{FailAfterBytes: 10})
	err := idx.saveIndex(faulty, path)
	require.ErrorIs(t, err, ErrIOFailure)
	require.ErrorIs(t, err, fs.ErrInjected)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(got))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	faulty.AddRule("idx.voy", fs.Fault{FailAfterBytes: -1, FailOnRename: true})
	assert.ErrorIs(t, idx.saveIndex(faulty, path), ErrIOFailure)

	faulty.AddRule("idx.voy", fs.Fault{FailAfterBytes: -1, FailOnOpen: true})
	_, err = loadIndex(faulty, path, LoadOptions{})
	assert.ErrorIs(t, err, ErrIOFailure)

	_, err = LoadIndex(filepath.Join(dir, "missing.voy"), LoadOptions{})
	assert.ErrorIs(t, err, ErrIOFailure)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPersistMetrics(t *testing.T) {
	m := &BasicMetricsCollector{}
	idx := newTestIndex(t, Euclidean, 2, WithMetricsCollector(m))
	_, err := idx.AddItem([]float32{1, 2})
	require.NoError(t, err)

	buf, err := idx.ToBuffer()
	require.NoError(t, err)
	_, err = FromBuffer(buf, LoadOptions{Metrics: m})
	require.NoError(t, err)
	_, err = FromBuffer(buf[:10], LoadOptions{Metrics: m})
	require.Error(t, err)

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats.InsertCount)
	assert.Equal(t, int64(1), stats.SaveCount)
	assert.Equal(t, int64(len(buf)), stats.SaveBytes)
	assert.Equal(t, int64(2), stats.LoadCount)
	assert.Equal(t, int64(1), stats.LoadErrors)
	assert.Equal(t, int64(len(buf)), stats.LoadBytes)
}

func FuzzFromBuffer(f *testing.F) {
	idx, err := New(Cosine, 2, WithMaxElements(8))
	require.NoError(f, err)
	for i := range 8 {
		_, err := idx.AddItem([]float32{float32(i), 1})
		require.NoError(f, err)
	}
	buf, err := idx.ToBuffer()
	require.NoError(f, err)
	f.Add(buf)
	f.Add(buf[metadataSize:])
	f.Add([]byte{})
	f.Add([]byte("VOYA"))

	// Level multiplier far beyond 1/ln(2).
	bigMult := bytes.Clone(buf)
	binary.LittleEndian.PutUint64(bigMult[metadataSize+80:], math.Float64bits(1e300))
	f.Add(bigMult)

	f.Fuzz(func(t *testing.T, data []byte) {
		loaded, err := FromBuffer(data, LoadOptions{NumDimensions: Ptr(2)})
		if err != nil {
			return
		}
		_, _ = loaded.Query([]float32{1, 1}, 3)

		require.NoError(t, loaded.Resize(loaded.NumElements()+4))
		for i := range 4 {
			_, err := loaded.AddItem([]float32{float32(i), 1})
			require.NoError(t, err)
		}
		_, _ = loaded.QueryBatch([][]float32{{1, 1}, {0, 1}}, 3)
		_, _ = loaded.ToBuffer()
	})
}

func TestFromBuffer_RejectsHugeLevelMultiplier(t *testing.T) {
	idx := populated(t, Cosine, Float32)
	buf, err := idx.ToBuffer()
	require.NoError(t, err)

	binary.LittleEndian.PutUint64(buf[metadataSize+80:], math.Float64bits(1e300))
	_, err = FromBuffer(buf, LoadOptions{})
	assert.ErrorIs(t, err, ErrCorruptData)
}

func totalAlloc(fn func()) uint64 {
	runtime.GC()
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	fn()
	runtime.ReadMemStats(&after)
	return after.TotalAlloc - before.TotalAlloc
}

func TestWideVectors_AllocationBounded(t *testing.T) {
	const dims = 1 << 18 // 1 MiB per Float32 vector
	idx := newTestIndex(t, Euclidean, dims, WithMaxElements(1))

	v := make([]float32, dims)
	v[0] = 1
	var err error
	alloc := totalAlloc(func() { _, err = idx.AddItem(v) })
	require.NoError(t, err)
	assert.Less(t, alloc, uint64(32<<20))

	buf, err := idx.ToBuffer()
	require.NoError(t, err)

	var loaded *Index
	alloc = totalAlloc(func() { loaded, err = FromBuffer(buf, LoadOptions{}) })
	require.NoError(t, err)
	assert.Less(t, alloc, uint64(16*len(buf)))

	got, err := loaded.GetVector(0)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}
