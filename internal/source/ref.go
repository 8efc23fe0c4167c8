package source

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mitchellh/go-homedir"

	"skillkit/internal/skill"
	"skillkit/internal/skillerr"
)

// Scheme identifies which backend serves a Ref.
type Scheme string

const (
	SchemeGitHub   Scheme = "github"
	SchemeLocal    Scheme = "local"
	SchemeRegistry Scheme = "registry"
	SchemePath     Scheme = "path"
)

// DefaultRegistry is the scheme prefix of the default remote catalog.
const DefaultRegistry = "registry"

// Ref is a parsed install source.
type Ref struct {
	Scheme Scheme
	// Owner, Repo, Path and Branch are set for github sources.
	Owner  string
	Repo   string
	Path   string
	Branch string
	// Registry is the catalog prefix for registry sources, e.g. "registry"
	// or "skillsmp".
	Registry string
	// Name is the skill name for local and registry sources.
	Name string
	// Dir is the directory for filesystem sources.
	Dir string
}

var registryScheme = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Parse parses an install source string. Accepted forms:
//
//	github:org/repo[#path][@branch]
//	https://github.com/org/repo[/tree/<branch>/<path>]
//	local:<name>
//	<registry>:<name>
//	./dir, ../dir, /abs/dir, ~/dir
func Parse(raw string) (Ref, error) {
	in := strings.TrimSpace(raw)
	if in == "" {
		return Ref{}, invalid(raw, "empty source")
	}
	switch {
	case strings.HasPrefix(in, "https://"), strings.HasPrefix(in, "http://"):
		return parseGitHubURL(raw, in)
	case in == "." || in == ".." || strings.HasPrefix(in, "./") || strings.HasPrefix(in, "../") ||
		strings.HasPrefix(in, "/") || strings.HasPrefix(in, "~"):
		dir, err := homedir.Expand(in)
		if err != nil {
			return Ref{}, invalid(raw, err.Error())
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return Ref{}, invalid(raw, err.Error())
		}
		return Ref{Scheme: SchemePath, Dir: abs}, nil
	}

	scheme, rest, ok := strings.Cut(in, ":")
	if !ok {
		return Ref{}, invalid(raw, "expected <scheme>:<name>, a GitHub URL or a directory path")
	}
	switch scheme {
	case string(SchemeGitHub):
		return parseGitHubShorthand(raw, rest)
	case string(SchemeLocal):
		if err := skill.ValidateName(rest); err != nil {
			return Ref{}, invalid(raw, err.Error())
		}
		return Ref{Scheme: SchemeLocal, Name: rest}, nil
	}
	if !registryScheme.MatchString(scheme) {
		return Ref{}, invalid(raw, fmt.Sprintf("unknown scheme %q", scheme))
	}
	if err := skill.ValidateName(rest); err != nil {
		return Ref{}, invalid(raw, err.Error())
	}
	return Ref{Scheme: SchemeRegistry, Registry: scheme, Name: rest}, nil
}

func parseGitHubShorthand(raw, rest string) (Ref, error) {
	ref := Ref{Scheme: SchemeGitHub}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		ref.Branch = strings.TrimSpace(rest[i+1:])
		rest = rest[:i]
		if ref.Branch == "" {
			return Ref{}, invalid(raw, "empty ref after @")
		}
	}
	repo, subpath, _ := strings.Cut(rest, "#")
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Ref{}, invalid(raw, "expected github:org/repo")
	}
	ref.Owner, ref.Repo = parts[0], strings.TrimSuffix(parts[1], ".git")
	ref.Path = cleanSubpath(subpath)
	return ref, nil
}

func parseGitHubURL(raw, in string) (Ref, error) {
	u, err := url.Parse(in)
	if err != nil {
		return Ref{}, invalid(raw, err.Error())
	}
	if u.Host != "github.com" && u.Host != "www.github.com" {
		return Ref{}, invalid(raw, fmt.Sprintf("unsupported host %q", u.Host))
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Ref{}, invalid(raw, "URL must have at least org/repo")
	}
	ref := Ref{Scheme: SchemeGitHub, Owner: parts[0], Repo: strings.TrimSuffix(parts[1], ".git")}
	if len(parts) > 3 && (parts[2] == "tree" || parts[2] == "blob") {
		ref.Branch = parts[3]
		ref.Path = cleanSubpath(stripTrailingFile(strings.Join(parts[4:], "/")))
	}
	return ref, nil
}

// stripTrailingFile removes a trailing file name such as SKILL.md.
func stripTrailingFile(p string) string {
	if p == "" {
		return ""
	}
	if strings.Contains(path.Base(p), ".") {
		p = path.Dir(p)
		if p == "." {
			return ""
		}
	}
	return p
}

func cleanSubpath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	return p
}

func invalid(raw, reason string) error {
	return skillerr.New(skillerr.KindSourceInvalid, "SRC_INVALID", "%q: %s", raw, reason)
}

// String returns the canonical source string.
func (r Ref) String() string {
	switch r.Scheme {
	case SchemeGitHub:
		out := "github:" + r.Owner + "/" + r.Repo
		if r.Path != "" {
			out += "#" + r.Path
		}
		if r.Branch != "" {
			out += "@" + r.Branch
		}
		return out
	case SchemeLocal:
		return "local:" + r.Name
	case SchemeRegistry:
		return r.Registry + ":" + r.Name
	case SchemePath:
		return r.Dir
	}
	return ""
}

// SkillName is the name a source is expected to install under when the
// manifest itself carries none.
func (r Ref) SkillName() string {
	switch r.Scheme {
	case SchemeGitHub:
		if r.Path != "" {
			return path.Base(r.Path)
		}
		return strings.ToLower(r.Repo)
	case SchemePath:
		return filepath.Base(r.Dir)
	}
	return r.Name
}

// Sibling returns the source of a skill named name published next to r:
// the neighbouring directory of a GitHub repository, or the same catalog
// for local and registry sources.
func (r Ref) Sibling(name string) Ref {
	out := r
	switch r.Scheme {
	case SchemeGitHub:
		dir := path.Dir(r.Path)
		if r.Path == "" || dir == "." {
			out.Path = name
		} else {
			out.Path = dir + "/" + name
		}
	case SchemePath:
		out.Dir = filepath.Join(filepath.Dir(r.Dir), name)
	default:
		out.Name = name
	}
	return out
}
