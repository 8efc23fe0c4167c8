package skill

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// Bundle limits. A skill ships scripts and templates, not datasets.
const (
	MaxBundleFiles = 256
	MaxBundleBytes = 8 << 20
)

// ValidateFilePath checks that rel names a file inside a skill directory:
// relative, slash-separated, without parent references, and not the
// manifest itself.
func ValidateFilePath(rel string) error {
	switch {
	case rel == "":
		return fmt.Errorf("bundle path cannot be empty")
	case strings.Contains(rel, `\`):
		return fmt.Errorf("bundle path must use forward slashes: %s", rel)
	case path.IsAbs(rel):
		return fmt.Errorf("bundle path must be relative: %s", rel)
	case path.Clean(rel) != rel:
		return fmt.Errorf("bundle path is not clean: %s", rel)
	case rel == ".." || strings.HasPrefix(rel, "../"):
		return fmt.Errorf("bundle path escapes the skill directory: %s", rel)
	case rel == FileName:
		return fmt.Errorf("bundle path collides with %s", FileName)
	}
	return nil
}

// AddFile stores a bundled file, enforcing the path rules and the bundle
// limits.
func (s *Skill) AddFile(rel string, data []byte) error {
	if err := ValidateFilePath(rel); err != nil {
		return err
	}
	if s.Files == nil {
		s.Files = map[string][]byte{}
	}
	if _, ok := s.Files[rel]; !ok && len(s.Files) >= MaxBundleFiles {
		return fmt.Errorf("skill %s bundles more than %d files", s.Name, MaxBundleFiles)
	}
	if s.BundleSize()-len(s.Files[rel])+len(data) > MaxBundleBytes {
		return fmt.Errorf("skill %s bundle exceeds %d bytes", s.Name, MaxBundleBytes)
	}
	s.Files[rel] = data
	return nil
}

// FilePaths returns the bundled file paths in sorted order.
func (s *Skill) FilePaths() []string {
	out := make([]string, 0, len(s.Files))
	for rel := range s.Files {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

// BundleSize is the total size of the bundled files in bytes.
func (s *Skill) BundleSize() int {
	n := 0
	for _, data := range s.Files {
		n += len(data)
	}
	return n
}

// LoadFiles adds every regular file under dir to the bundle. Hidden
// entries, symlinks and the top-level files named in skip are left out.
func (s *Skill) LoadFiles(dir string, skip ...string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == FileName || slices.Contains(skip, rel) {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return s.AddFile(rel, data)
	})
}
