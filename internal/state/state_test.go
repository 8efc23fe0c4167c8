package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillkit/internal/fsutil"
	"skillkit/internal/skillerr"
)

func writeState(t *testing.T, project, body string) {
	t.Helper()
	path := Path(project)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadMissingIsEmpty(t *testing.T) {
	st, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, st.Skills)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	project := t.TempDir()
	st := New()
	st.Put("pdf", Entry{Version: "1.0.0", Source: "github:acme/skills/pdf"})
	st.Put("ocr", Entry{Version: "2.0.0", InstalledBy: "pdf", DependedBy: []string{"pdf"}})
	require.NoError(t, Save(project, st))

	got, err := Load(project)
	require.NoError(t, err)
	assert.Equal(t, st.Skills, got.Skills)
	assert.Equal(t, InstalledByUser, got.Skills["pdf"].InstalledBy)
	assert.Equal(t, []string{}, got.Skills["pdf"].DependedBy)

	blob, err := os.ReadFile(Path(project))
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"installed_by": "pdf"`)
	assert.Contains(t, string(blob), `"depended_by": [`)
}

func TestLoadLegacyShapes(t *testing.T) {
	project := t.TempDir()
	writeState(t, project, `{"skills": {
		"old": "0.3.0",
		"camel": {"version": "1.0.0", "installedBy": "old", "dependedBy": ["old", "old"]},
		"bare": {"version": "2.0.0"},
		"gone": null
	}}`)

	st, err := Load(project)
	require.NoError(t, err)
	require.Len(t, st.Skills, 3)

	assert.Equal(t, Entry{Version: "0.3.0", InstalledBy: InstalledByUser, DependedBy: []string{}}, *st.Skills["old"])
	assert.Equal(t, "old", st.Skills["camel"].InstalledBy)
	assert.Equal(t, []string{"old"}, st.Skills["camel"].DependedBy)
	assert.Equal(t, InstalledByUser, st.Skills["bare"].InstalledBy)
	assert.Empty(t, st.Skills["bare"].DependedBy)
}

func TestLoadCorruptDegradesToEmpty(t *testing.T) {
	project := t.TempDir()
	writeState(t, project, `{"skills": [`)

	st, err := Load(project)
	require.Error(t, err)
	assert.True(t, skillerr.Is(err, skillerr.KindCorrupt))
	require.NotNil(t, st)
	assert.Empty(t, st.Skills)
}

func TestLoadRejectsUnknownEntryShape(t *testing.T) {
	project := t.TempDir()
	writeState(t, project, `{"skills": {"x": 42}}`)

	_, err := Load(project)
	assert.True(t, skillerr.Is(err, skillerr.KindCorrupt))
}

func TestDependents(t *testing.T) {
	st := New()
	st.Put("a", Entry{Version: "1.0.0"})
	st.Put("b", Entry{Version: "1.0.0"})
	st.Put("c", Entry{Version: "1.0.0", InstalledBy: "a"})

	assert.True(t, st.AddDependent("c", "b"))
	assert.True(t, st.AddDependent("c", "a"))
	assert.False(t, st.AddDependent("c", "a"), "already recorded")
	assert.False(t, st.AddDependent("missing", "a"))
	assert.Equal(t, []string{"a", "b"}, st.Dependents("c"))
	assert.Equal(t, []string{"c"}, st.DependenciesOf("a"))

	assert.True(t, st.RemoveDependent("c", "a"))
	assert.False(t, st.RemoveDependent("c", "a"))
	assert.False(t, st.IsOrphan("c"))

	assert.True(t, st.RemoveDependent("c", "b"))
	assert.True(t, st.IsOrphan("c"))
	assert.False(t, st.IsOrphan("a"), "user installs are never orphans")
	assert.Equal(t, []string{}, st.Dependents("missing"))
}

func TestDeleteAndNames(t *testing.T) {
	st := New()
	st.Put("z", Entry{Version: "1.0.0"})
	st.Put("a", Entry{Version: "1.0.0"})
	assert.Equal(t, []string{"a", "z"}, st.Names())
	assert.True(t, st.Delete("z"))
	assert.False(t, st.Delete("z"))
	_, ok := st.Get("z")
	assert.False(t, ok)
}

func TestSaveIsAtomic(t *testing.T) {
	project := t.TempDir()
	st := New()
	st.Put("a", Entry{Version: "1.0.0"})
	require.NoError(t, Save(project, st))

	writeFile = fsutil.AtomicWriter(func(string, string) error { return os.ErrPermission })
	t.Cleanup(func() { writeFile = fsutil.AtomicWrite })
	st.Put("b", Entry{Version: "1.0.0"})
	require.ErrorIs(t, Save(project, st), os.ErrPermission)

	got, err := Load(project)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Names())
}
