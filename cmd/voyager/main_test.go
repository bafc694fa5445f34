package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	voyager "github.com/canbakiskan/voyager-go"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

const vectorsCSV = `# label,x,y,z
10,1,0,0
20,0,1,0
30,0,0,1
40,1,1,0
`

func TestBuildInfoQuery(t *testing.T) {
	for _, compression := range []string{"none", "zstd"} {
		t.Run(compression, func(t *testing.T) {
			dir := t.TempDir()
			csvPath := writeFile(t, dir, "vectors.csv", vectorsCSV)
			cfgPath := writeFile(t, dir, "build.yaml", `
space: euclidean
m: 8
ef_construction: 50
label_column: true
compression: `+compression+"\n")
			out := filepath.Join(dir, "index.voy")

			stdout, err := run(t, "build", "--config", cfgPath, csvPath, out)
			require.NoError(t, err)
			assert.Contains(t, stdout, "numElements=4")

			stdout, err = run(t, "info", out)
			require.NoError(t, err)
			assert.Contains(t, stdout, "Index(space=l2, dimensions=3, storageDatatType=Float32, M=8, efConstruction=50, numElements=4, maxElements=4)")
			assert.Contains(t, stdout, "live")

			stdout, err = run(t, "query", out, "--k", "1", "0,0,0.9")
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(stdout, "30\t"), stdout)
		})
	}
}

func TestBuild_CompressedSnapshotIsSmaller(t *testing.T) {
	dir := t.TempDir()
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("0.5,0.5,0.5,0.5,0.5,0.5,0.5,0.5\n")
	}
	csvPath := writeFile(t, dir, "vectors.csv", sb.String())
	plain := filepath.Join(dir, "plain.voy")
	packed := filepath.Join(dir, "packed.voy")

	_, err := run(t, "build", csvPath, plain)
	require.NoError(t, err)
	_, err = run(t, "build", "--compression", "zstd", csvPath, packed)
	require.NoError(t, err)

	a, err := os.Stat(plain)
	require.NoError(t, err)
	b, err := os.Stat(packed)
	require.NoError(t, err)
	assert.Less(t, b.Size(), a.Size())

	// The plain file is a regular index file.
	idx, err := voyager.LoadIndex(plain, voyager.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 200, idx.Len())
}

func TestInfo_Mmap(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "vectors.csv", "1,2\n3,4\n")
	out := filepath.Join(dir, "index.voy")
	_, err := run(t, "build", "--space", "cosine", csvPath, out)
	require.NoError(t, err)

	stdout, err := run(t, "--mmap", "info", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "space=cosine")
}

func TestErrors(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "vectors.csv", "1,2\n3,4\n")

	_, err := run(t, "build", "--space", "manhattan", csvPath, filepath.Join(dir, "x.voy"))
	assert.Error(t, err)

	_, err = run(t, "build", "--compression", "brotli", csvPath, filepath.Join(dir, "x.voy"))
	assert.ErrorIs(t, err, voyager.ErrArgument)

	_, err = run(t, "info", filepath.Join(dir, "missing.voy"))
	assert.ErrorIs(t, err, voyager.ErrIOFailure)

	_, err = run(t, "info")
	assert.Error(t, err)

	out := filepath.Join(dir, "ok.voy")
	_, err = run(t, "build", csvPath, out)
	require.NoError(t, err)
	_, err = run(t, "query", out, "1,2,3")
	var dm *voyager.ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)
}
