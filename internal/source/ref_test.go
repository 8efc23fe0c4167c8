package source

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillkit/internal/skillerr"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      Ref
		canonical string
	}{
		{
			name:      "github shorthand",
			in:        "github:acme/tools",
			want:      Ref{Scheme: SchemeGitHub, Owner: "acme", Repo: "tools"},
			canonical: "github:acme/tools",
		},
		{
			name:      "github subpath and branch",
			in:        "github:acme/tools#skills/x@v2",
			want:      Ref{Scheme: SchemeGitHub, Owner: "acme", Repo: "tools", Path: "skills/x", Branch: "v2"},
			canonical: "github:acme/tools#skills/x@v2",
		},
		{
			name:      "github subpath is cleaned",
			in:        "github:acme/tools#/skills//x/",
			want:      Ref{Scheme: SchemeGitHub, Owner: "acme", Repo: "tools", Path: "skills/x"},
			canonical: "github:acme/tools#skills/x",
		},
		{
			name:      "github tree URL",
			in:        "https://github.com/acme/tools/tree/main/skills/x",
			want:      Ref{Scheme: SchemeGitHub, Owner: "acme", Repo: "tools", Path: "skills/x", Branch: "main"},
			canonical: "github:acme/tools#skills/x@main",
		},
		{
			name:      "github blob URL to manifest",
			in:        "https://github.com/acme/tools/blob/dev/skills/x/SKILL.md",
			want:      Ref{Scheme: SchemeGitHub, Owner: "acme", Repo: "tools", Path: "skills/x", Branch: "dev"},
			canonical: "github:acme/tools#skills/x@dev",
		},
		{
			name:      "github repo URL",
			in:        "https://github.com/acme/tools.git",
			want:      Ref{Scheme: SchemeGitHub, Owner: "acme", Repo: "tools"},
			canonical: "github:acme/tools",
		},
		{
			name:      "local",
			in:        "local:pdf",
			want:      Ref{Scheme: SchemeLocal, Name: "pdf"},
			canonical: "local:pdf",
		},
		{
			name:      "default registry",
			in:        "registry:commit-helper",
			want:      Ref{Scheme: SchemeRegistry, Registry: "registry", Name: "commit-helper"},
			canonical: "registry:commit-helper",
		},
		{
			name:      "named registry",
			in:        " skillsmp:ocr ",
			want:      Ref{Scheme: SchemeRegistry, Registry: "skillsmp", Name: "ocr"},
			canonical: "skillsmp:ocr",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.canonical, got.String())
		})
	}
}

func TestParseDirectory(t *testing.T) {
	dir := t.TempDir()
	got, err := Parse(dir)
	require.NoError(t, err)
	assert.Equal(t, SchemePath, got.Scheme)
	assert.Equal(t, dir, got.Dir)
	assert.Equal(t, filepath.Base(dir), got.SkillName())

	rel, err := Parse("./skills/pdf")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(rel.Dir))
	assert.Equal(t, "pdf", rel.SkillName())
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"pdf",
		"github:acme",
		"github:/tools",
		"github:acme/tools/extra",
		"github:acme/tools@",
		"local:Not_Kebab",
		"local:",
		"Registry:pdf",
		"https://gitlab.com/acme/tools",
		"https://github.com/acme",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			require.Error(t, err)
			assert.True(t, skillerr.Is(err, skillerr.KindSourceInvalid), "got %v", err)
			assert.Equal(t, "SRC_INVALID", skillerr.CodeOf(err))
		})
	}
}

func TestSkillName(t *testing.T) {
	ref, err := Parse("github:acme/Tools")
	require.NoError(t, err)
	assert.Equal(t, "tools", ref.SkillName())

	ref, err = Parse("github:acme/tools#skills/pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf", ref.SkillName())

	ref, err = Parse("registry:ocr")
	require.NoError(t, err)
	assert.Equal(t, "ocr", ref.SkillName())
}

func TestSibling(t *testing.T) {
	tests := []struct {
		parent string
		want   string
	}{
		{"github:acme/tools#skills/pdf@v1", "github:acme/tools#skills/ocr@v1"},
		{"github:acme/tools#pdf", "github:acme/tools#ocr"},
		{"github:acme/tools", "github:acme/tools#ocr"},
		{"local:pdf", "local:ocr"},
		{"skillsmp:pdf", "skillsmp:ocr"},
	}
	for _, tt := range tests {
		t.Run(tt.parent, func(t *testing.T) {
			ref, err := Parse(tt.parent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref.Sibling("ocr").String())
		})
	}

	dir := t.TempDir()
	ref, err := Parse(filepath.Join(dir, "pdf"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ocr"), ref.Sibling("ocr").Dir)
}
