package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")

	require.NoError(t, AtomicWrite(path, []byte("hello"), 0o644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "tmp file should not exist after successful write")
}

func TestAtomicWrite_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")

	require.NoError(t, AtomicWrite(path, []byte("v1"), 0o644))
	require.NoError(t, AtomicWrite(path, []byte("v2"), 0o644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}

func TestAtomicWrite_BadDir(t *testing.T) {
	err := AtomicWrite("/nonexistent/dir/file.txt", []byte("data"), 0o644)
	assert.Error(t, err)
}

func TestAtomicWriter_RenameFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	require.NoError(t, AtomicWrite(path, []byte("old"), 0o644))

	var staged string
	write := AtomicWriter(func(oldpath, newpath string) error {
		staged = oldpath
		got, err := os.ReadFile(oldpath)
		require.NoError(t, err)
		assert.Equal(t, "new", string(got), "temp file holds the new content before rename")
		return os.ErrPermission
	})
	require.ErrorIs(t, write(path, []byte("new"), 0o644), os.ErrPermission)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))

	_, err = os.Stat(staged)
	assert.True(t, os.IsNotExist(err), "tmp file should be cleaned up")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
