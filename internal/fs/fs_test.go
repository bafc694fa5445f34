package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	f, err := lfs.CreateTemp(dir, "index.tmp-*")
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
	require.NoError(t, f.Close())

	final := filepath.Join(dir, "index.voy")
	require.NoError(t, lfs.Rename(f.Name(), final))
	SyncDir(lfs, dir)

	entries, err := lfs.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "index.voy", entries[0].Name())

	require.NoError(t, lfs.Remove(final))
	_, err = lfs.Stat(final)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS(t *testing.T) {
	tmp := t.TempDir()

	t.Run("fail after bytes", func(t *testing.T) {
		ffs := NewFaultyFS(nil)
		ffs.AddRule("limited", Fault{FailAfterBytes: 4})

		f, err := ffs.OpenFile(filepath.Join(tmp, "limited.bin"), os.O_CREATE|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		defer f.Close()

		_, err = f.Write([]byte("abcd"))
		require.NoError(t, err)
		_, err = f.Write([]byte("e"))
		assert.ErrorIs(t, err, ErrInjected)
	})

	t.Run("fail on sync with custom error", func(t *testing.T) {
		boom := errors.New("boom")
		ffs := NewFaultyFS(nil)
		ffs.AddRule("sync", Fault{FailAfterBytes: -1, FailOnSync: true, Err: boom})

		f, err := ffs.OpenFile(filepath.Join(tmp, "sync.bin"), os.O_CREATE|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		defer f.Close()
		assert.ErrorIs(t, f.Sync(), boom)
	})

	t.Run("fail on open and rename", func(t *testing.T) {
		ffs := NewFaultyFS(nil)
		ffs.AddRule("nope", Fault{FailAfterBytes: -1, FailOnOpen: true, FailOnRename: true})

		_, err := ffs.OpenFile(filepath.Join(tmp, "nope.bin"), os.O_CREATE|os.O_WRONLY, 0o644)
		assert.ErrorIs(t, err, ErrInjected)
		_, err = ffs.CreateTemp(tmp, "nope-*")
		assert.ErrorIs(t, err, ErrInjected)
		assert.ErrorIs(t, ffs.Rename(filepath.Join(tmp, "a"), filepath.Join(tmp, "nope")), ErrInjected)
	})
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.voy")
	write := func(data string) func(File) error {
		return func(f File) error {
			_, err := f.Write([]byte(data))
			return err
		}
	}

	require.NoError(t, WriteAtomic(Default, path, write("first")))
	require.NoError(t, WriteAtomic(Default, path, write("second")))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	t.Run("failed write keeps old file", func(t *testing.T) {
		ffs := NewFaultyFS(nil)
		ffs.AddRule("index.voy", Fault{FailAfterBytes: 2})
		err := WriteAtomic(ffs, path, write("third"))
		assert.ErrorIs(t, err, ErrInjected)

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temporary file is removed")
	})

	t.Run("failed sync and rename", func(t *testing.T) {
		for _, fault := range []Fault{
			{FailAfterBytes: -1, FailOnSync: true},
			{FailAfterBytes: -1, FailOnRename: true},
		} {
			ffs := NewFaultyFS(nil)
			ffs.AddRule("index.voy", fault)
			assert.ErrorIs(t, WriteAtomic(ffs, path, write("fourth")), ErrInjected)
		}
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}
