package skill

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFilePath(t *testing.T) {
	for _, rel := range []string{"scripts/main.py", "scripts/utils/helpers/formatter.py", "README.md"} {
		assert.NoError(t, ValidateFilePath(rel), rel)
	}
	for _, rel := range []string{"", "/etc/passwd", "../escape.sh", "..", "scripts/../../x", "a//b", `scripts\main.py`, "SKILL.md", "./main.py"} {
		assert.Error(t, ValidateFilePath(rel), rel)
	}
}

func TestAddFileEnforcesLimits(t *testing.T) {
	sk := &Skill{Name: "tools"}
	require.NoError(t, sk.AddFile("scripts/b.py", []byte("b")))
	require.NoError(t, sk.AddFile("scripts/a.py", []byte("a")))
	assert.Equal(t, []string{"scripts/a.py", "scripts/b.py"}, sk.FilePaths())
	assert.Equal(t, 2, sk.BundleSize())

	assert.Error(t, sk.AddFile("../x", nil))
	assert.Error(t, sk.AddFile("big.bin", bytes.Repeat([]byte{1}, MaxBundleBytes)))

	many := &Skill{Name: "many"}
	for i := 0; i < MaxBundleFiles; i++ {
		require.NoError(t, many.AddFile("f/"+string(rune('a'+i%26))+string(rune('a'+i/26)), nil))
	}
	assert.Error(t, many.AddFile("one-more", nil))
}

func TestLoadFilesWalksNestedTree(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, body string) {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	write("SKILL.md", "---\nname: complex\n---\n")
	write("skill.yaml", "name: complex\n")
	write("scripts/main.py", "print('main')\n")
	write("scripts/utils/helpers/formatter.py", "def fmt(x): return x\n")
	write(".git/config", "[core]\n")
	write("scripts/.cache", "x")

	sk := &Skill{Name: "complex"}
	require.NoError(t, sk.LoadFiles(dir, "skill.yaml"))
	assert.Equal(t, []string{"scripts/main.py", "scripts/utils/helpers/formatter.py"}, sk.FilePaths())
	assert.Equal(t, "print('main')\n", string(sk.Files["scripts/main.py"]))
}
