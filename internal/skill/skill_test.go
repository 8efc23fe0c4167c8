package skill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "pdf", false},
		{"kebab", "commit-helper", false},
		{"digits", "k8s-ops2", false},
		{"empty", "", true},
		{"uppercase", "Commit", true},
		{"underscore", "commit_helper", true},
		{"double hyphen", "commit--helper", true},
		{"leading hyphen", "-commit", true},
		{"path traversal", "../etc", true},
		{"separator", "a/b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, 0, CompareVersions("1.0.0", "v1.0.0"))
	assert.Equal(t, -1, CompareVersions("1.2.0", "1.10.0"))
	assert.Equal(t, 1, CompareVersions("2.0.0", "1.9.9"))
	assert.Equal(t, -1, CompareVersions("garbage", "0.0.1"))
	assert.Equal(t, 1, CompareVersions("0.0.1", "garbage"))
	assert.True(t, ValidVersion("1.2.3-beta.1"))
	assert.False(t, ValidVersion("latest"))
}

func TestParseFullManifest(t *testing.T) {
	doc := `---
name: commit-helper
version: 1.2.0
description: Writes conventional commit messages
author: acme
keywords: [git, commit]
triggers:
  - "write a commit"
capabilities: [read-diff]
platforms:
  claude:
    model: sonnet
dependencies:
  skills: [git-basics, github:acme/tools#skills/diff-reader]
  tools: [git]
---

# Commit helper

Use conventional commits.
`
	s, err := Parse([]byte(doc), "ignored")
	require.NoError(t, err)
	assert.Equal(t, "commit-helper", s.Name)
	assert.Equal(t, "1.2.0", s.Version)
	assert.Equal(t, "Writes conventional commit messages", s.Description)
	assert.Equal(t, "acme", s.Author)
	assert.Equal(t, []string{"git", "commit"}, s.Keywords)
	assert.Equal(t, []string{"write a commit"}, s.Triggers)
	assert.Equal(t, []string{"read-diff"}, s.Capabilities)
	assert.Contains(t, s.Platforms, "claude")
	assert.Equal(t, []string{"git-basics", "github:acme/tools#skills/diff-reader"}, s.Dependencies.Skills)
	assert.Equal(t, []string{"git"}, s.Dependencies.Tools)
	assert.Equal(t, "# Commit helper\n\nUse conventional commits.\n", s.Instructions)
}

func TestParseLegacyDependencyList(t *testing.T) {
	doc := "---\nname: a\nversion: 1.0.0\ndescription: x\ndependencies: [b, \"tool:jq\", b, \" c \"]\n---\nbody\n"
	s, err := Parse([]byte(doc), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, s.Dependencies.Skills)
	assert.Equal(t, []string{"jq"}, s.Dependencies.Tools)
}

func TestParseDefaultsNameAndVersion(t *testing.T) {
	doc := "---\ndescription: from directory\n---\nbody\n"
	s, err := Parse([]byte(doc), "dir-name")
	require.NoError(t, err)
	assert.Equal(t, "dir-name", s.Name)
	assert.Equal(t, DefaultVersion, s.Version)
	assert.True(t, s.Dependencies.IsZero())
}

func TestParseStripsVersionPrefix(t *testing.T) {
	s, err := Parse([]byte("---\nname: a\nversion: v2.0.1\n---\n"), "")
	require.NoError(t, err)
	assert.Equal(t, "2.0.1", s.Version)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := map[string]string{
		"no frontmatter":  "# just markdown\n",
		"unterminated":    "---\nname: a\n",
		"bad yaml":        "---\nname: [a\n---\n",
		"bad name":        "---\nname: Bad_Name\n---\n",
		"bad version":     "---\nname: a\nversion: latest\n---\n",
		"bad deps object": "---\nname: a\ndependencies:\n  skills: {x: 1}\n---\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), "")
			assert.Error(t, err)
		})
	}
}

func TestRenderThenParsePreservesFields(t *testing.T) {
	in := &Skill{
		Name:         "pdf",
		Version:      "1.0.0",
		Description:  "PDF tools",
		Instructions: "Read PDFs carefully.",
		Keywords:     []string{"pdf"},
		Dependencies: Dependencies{Skills: []string{"ocr"}, Tools: []string{"pdftotext"}},
	}
	blob, err := Render(in)
	require.NoError(t, err)
	assert.Contains(t, string(blob), "dependencies:")
	assert.Contains(t, string(blob), "pdftotext")

	out, err := Parse(blob, "")
	require.NoError(t, err)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Dependencies, out.Dependencies)
	assert.Equal(t, "Read PDFs carefully.\n", out.Instructions)
}

func TestRenderRejectsInvalidSkill(t *testing.T) {
	_, err := Render(&Skill{Name: "", Version: "1.0.0"})
	assert.Error(t, err)
}

func TestParseYAMLManifest(t *testing.T) {
	s, err := ParseYAML([]byte("version: 1.2.0\ndescription: OCR helper\ndependencies:\n  tools: [tesseract]\n"), "ocr")
	require.NoError(t, err)
	assert.Equal(t, "ocr", s.Name)
	assert.Equal(t, "1.2.0", s.Version)
	assert.Empty(t, s.Instructions)
	assert.Equal(t, []string{"tesseract"}, s.Dependencies.Tools)
}
