package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFunc persists data at path, replacing any previous content.
type WriteFunc func(path string, data []byte, perm os.FileMode) error

// AtomicWrite writes data to path using a tmp+rename strategy.
// The temp file lives in the same directory as path so the rename never
// crosses a filesystem boundary. If any step fails, the tmp file is removed
// and the previous content of path is left untouched.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	return atomicWrite(path, data, perm, os.Rename)
}

// AtomicWriter returns an AtomicWrite that moves the temp file into place
// with rename. Callers use it to observe or fail the final step.
func AtomicWriter(rename func(oldpath, newpath string) error) WriteFunc {
	return func(path string, data []byte, perm os.FileMode) error {
		return atomicWrite(path, data, perm, rename)
	}
}

func atomicWrite(path string, data []byte, perm os.FileMode, rename func(oldpath, newpath string) error) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	tmp := f.Name()
	cleanup := func() { _ = os.Remove(tmp) }

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		cleanup()
		return fmt.Errorf("sync tmp: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod tmp: %w", err)
	}
	if err := rename(tmp, path); err != nil {
		cleanup()
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}
