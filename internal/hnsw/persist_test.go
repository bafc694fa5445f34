package hnsw

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canbakiskan/voyager-go/distance"
	"github.com/canbakiskan/voyager-go/internal/binio"
	"github.com/canbakiskan/voyager-go/internal/stream"
	"github.com/canbakiskan/voyager-go/quantization"
)

func saveBytes(t *testing.T, g *Graph) []byte {
	t.Helper()
	s := stream.NewMemoryStream(0)
	require.NoError(t, g.Save(binio.NewWriter(s)))
	return s.Bytes()
}

func loadBytes(data []byte, opts Options) (*Graph, error) {
	return Load(binio.NewReader(stream.NewMemoryReader(data)), opts)
}

func loadOpts(g *Graph) Options {
	return Options{
		Dimension:  g.Dimension(),
		Space:      g.Space(),
		DataType:   g.DataType(),
		RandomSeed: 1,
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	for _, dt := range []quantization.DataType{quantization.Float32, quantization.Float8, quantization.E4M3} {
		t.Run(dt.String(), func(t *testing.T) {
			vecs := randomVectors(120, 6, 5)
			g := buildGraph(t, vecs, func(o *Options) {
				o.DataType = dt
				o.Space = distance.InnerProduct
				o.Capacity = 150
			})
			_, err := g.MarkDeleted(7)
			require.NoError(t, err)

			data := saveBytes(t, g)
			loaded, err := loadBytes(data, loadOpts(g))
			require.NoError(t, err)

			assert.Equal(t, g.Len(), loaded.Len())
			assert.Equal(t, 150, loaded.Capacity())
			assert.Equal(t, g.M(), loaded.M())
			assert.Equal(t, g.EfConstruction(), loaded.EfConstruction())
			assert.True(t, loaded.IsDeleted(7))

			for i := range vecs {
				want, err := g.Vector(uint32(i))
				require.NoError(t, err)
				got, err := loaded.Vector(uint32(i))
				require.NoError(t, err)
				assert.Equal(t, want, got)

				wantRes, err := g.Search(vecs[i], 5, 20)
				require.NoError(t, err)
				gotRes, err := loaded.Search(vecs[i], 5, 20)
				require.NoError(t, err)
				assert.Equal(t, wantRes, gotRes)
			}

			assert.Equal(t, data, saveBytes(t, loaded))
		})
	}
}

func TestSave_Deterministic(t *testing.T) {
	vecs := randomVectors(64, 4, 2)
	a := saveBytes(t, buildGraph(t, vecs))
	b := saveBytes(t, buildGraph(t, vecs))
	assert.Equal(t, a, b)
}

func TestSave_Layout(t *testing.T) {
	g := buildGraph(t, [][]float32{{1, 2}}, func(o *Options) { o.M = 2 })
	data := saveBytes(t, g)

	le := binary.LittleEndian
	const headerSize = 96
	// record: u32 header + 4 links + 8 vector bytes + u64 label
	const recordSize = 4 + 4*4 + 8 + 8

	level := g.nodes.get(0).level
	upperSize := level * (4 + 4*2)

	require.Len(t, data, headerSize+recordSize+4+upperSize)
	assert.Equal(t, uint64(0), le.Uint64(data[0:]))           // offsetLevel0
	assert.Equal(t, uint64(1), le.Uint64(data[8:]))           // max_elements
	assert.Equal(t, uint64(1), le.Uint64(data[16:]))          // cur_element_count
	assert.Equal(t, uint64(recordSize), le.Uint64(data[24:])) // size_data_per_element
	assert.Equal(t, uint64(4+4*4+8), le.Uint64(data[32:]))    // label_offset
	assert.Equal(t, uint64(4+4*4), le.Uint64(data[40:]))      // offsetData
	assert.Equal(t, uint32(level), le.Uint32(data[48:]))      // maxlevel
	assert.Equal(t, uint32(0), le.Uint32(data[52:]))          // enterpoint_node
	assert.Equal(t, uint64(2), le.Uint64(data[56:]))          // maxM
	assert.Equal(t, uint64(4), le.Uint64(data[64:]))          // maxM0
	assert.Equal(t, uint64(2), le.Uint64(data[72:]))          // M
	assert.Equal(t, uint64(200), le.Uint64(data[88:]))        // ef_construction
	assert.Equal(t, uint32(upperSize), le.Uint32(data[headerSize+recordSize:]))

	rec := data[headerSize:]
	assert.Equal(t, uint32(0), le.Uint32(rec[0:]))
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f, 0, 0, 0, 0x40}, rec[20:28])
	assert.Equal(t, uint64(0), le.Uint64(rec[28:]))
}

func TestSave_Empty(t *testing.T) {
	g, err := New(func(o *Options) { o.Dimension = 3 })
	require.NoError(t, err)
	data := saveBytes(t, g)

	require.Len(t, data, 96)
	assert.Equal(t, uint32(0xFFFFFFFF), binary.LittleEndian.Uint32(data[48:]))
	assert.Equal(t, uint32(0xFFFFFFFF), binary.LittleEndian.Uint32(data[52:]))

	loaded, err := loadBytes(data, loadOpts(g))
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
	res, err := loaded.Search([]float32{1, 2, 3}, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestLoad_WrongDimensions(t *testing.T) {
	g := buildGraph(t, randomVectors(4, 4, 1))
	data := saveBytes(t, g)

	opts := loadOpts(g)
	opts.Dimension = 5
	_, err := loadBytes(data, opts)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoad_Truncated(t *testing.T) {
	g := buildGraph(t, randomVectors(20, 3, 4))
	data := saveBytes(t, g)

	for n := 0; n < len(data); n++ {
		_, err := loadBytes(data[:n], loadOpts(g))
		require.ErrorIs(t, err, ErrCorrupt, "prefix %d", n)
	}
}

func TestLoad_CorruptFields(t *testing.T) {
	g := buildGraph(t, randomVectors(20, 3, 4))
	data := saveBytes(t, g)
	le := binary.LittleEndian

	tests := []struct {
		name   string
		mutate func(b []byte)
	}{
		{"huge element count", func(b []byte) { le.PutUint64(b[16:], 1<<40) }},
		{"count overflow", func(b []byte) { le.PutUint64(b[16:], 0xFFFFFFFE); le.PutUint64(b[24:], 1<<62) }},
		{"record size", func(b []byte) { le.PutUint64(b[24:], 7) }},
		{"entry point", func(b []byte) { le.PutUint32(b[52:], 1000) }},
		{"max level", func(b []byte) { le.PutUint32(b[48:], 77) }},
		{"zero maxM", func(b []byte) { le.PutUint64(b[56:], 0) }},
		{"multiplier", func(b []byte) { le.PutUint64(b[80:], 0x7FF8000000000001) }},
		{"huge multiplier", func(b []byte) { le.PutUint64(b[80:], math.Float64bits(1e300)) }},
		{"infinite multiplier", func(b []byte) { le.PutUint64(b[80:], math.Float64bits(math.Inf(1))) }},
		{"negative multiplier", func(b []byte) { le.PutUint64(b[80:], math.Float64bits(-0.5)) }},
		{"multiplier above M=2", func(b []byte) { le.PutUint64(b[80:], math.Float64bits(1.5)) }},
		{"neighbor count", func(b []byte) { le.PutUint16(b[96:], 0xFFFF) }},
		{"neighbor id", func(b []byte) {
			le.PutUint16(b[96:], 1)
			le.PutUint32(b[100:], 5000)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := append([]byte(nil), data...)
			tt.mutate(b)
			_, err := loadBytes(b, loadOpts(g))
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func FuzzLoad(f *testing.F) {
	g, err := New(func(o *Options) {
		o.Dimension = 2
		o.Capacity = 8
	})
	require.NoError(f, err)
	for i, v := range randomVectors(8, 2, 3) {
		_, err := g.Insert(v, uint64(i))
		require.NoError(f, err)
	}
	s := stream.NewMemoryStream(0)
	require.NoError(f, g.Save(binio.NewWriter(s)))
	valid := s.Bytes()
	f.Add(valid)
	f.Add([]byte{})

	bigMult := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint64(bigMult[80:], math.Float64bits(1e300))
	f.Add(bigMult)

	opts := Options{Dimension: 2, Space: distance.Euclidean, DataType: quantization.Float32}
	f.Fuzz(func(t *testing.T, data []byte) {
		loaded, err := loadBytes(data, opts)
		if err != nil {
			return
		}
		_, _ = loaded.Search([]float32{0.5, 0.5}, 3, 10)

		require.NoError(t, loaded.Resize(loaded.Len()+4))
		for i := range 4 {
			_, err := loaded.Insert([]float32{float32(i), 1}, uint64(1000+i))
			require.NoError(t, err)
		}
		_, _ = loaded.Search([]float32{1, 1}, 5, 10)
		_ = saveBytes(t, loaded)
	})
}

func TestLoad_AcceptsLargestValidMultiplier(t *testing.T) {
	g, err := New(func(o *Options) {
		o.Dimension = 2
		o.M = 2
		o.Capacity = 8
	})
	require.NoError(t, err)
	for i, v := range randomVectors(8, 2, 5) {
		_, err := g.Insert(v, uint64(i))
		require.NoError(t, err)
	}

	loaded, err := loadBytes(saveBytes(t, g), loadOpts(g))
	require.NoError(t, err)
	assert.Equal(t, g.mult, loaded.mult)
}
