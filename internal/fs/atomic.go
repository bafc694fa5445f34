package fs

import (
	"path/filepath"
)

// WriteAtomic creates or replaces path with the output of write. The data
// goes to a temporary file in the same directory, which is synced and
// renamed into place, so path never holds a partial file.
func WriteAtomic(fsys FileSystem, path string, write func(f File) error) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	// Write to a temp file in the same directory to ensure rename is atomic.
	tmp, err := fsys.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = tmp.Close()
			_ = fsys.Remove(tmpName)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Atomically replace target.
	if err := fsys.Rename(tmpName, path); err != nil {
		return err
	}
	SyncDir(fsys, dir)

	// Success: prevent deferred cleanup from removing the final file.
	tmpName = ""
	return nil
}
