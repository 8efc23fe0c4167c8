package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"skillkit/internal/fsutil"
)

const (
	projectManifestFile = "skills.toml"
	maxAncestorSearch   = 50
)

// DefaultProjectManifest returns an empty v1 project manifest.
func DefaultProjectManifest() ProjectManifest {
	return ProjectManifest{
		Version: SchemaVersion,
		Skills:  []ProjectSkillEntry{},
	}
}

// ProjectStateRoot returns the .skillkit directory for a project root.
func ProjectStateRoot(projectRoot string) string {
	return filepath.Join(projectRoot, StoreDirName)
}

// ProjectManifestPath returns the path to skills.toml for a project root.
func ProjectManifestPath(projectRoot string) string {
	return filepath.Join(ProjectStateRoot(projectRoot), projectManifestFile)
}

// FindProjectRoot walks up from startDir looking for .skillkit/skills.toml.
// Returns (projectRoot, true) if found, or ("", false) if not.
func FindProjectRoot(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	for i := 0; i < maxAncestorSearch; i++ {
		if _, err := os.Stat(ProjectManifestPath(dir)); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

// ResolveScope determines the effective scope based on an explicit flag and CWD.
// If explicit is non-empty, it is validated and returned.
// Otherwise, auto-detection walks up from cwd looking for a project manifest,
// and falls back to cwd itself as a fresh project root.
func ResolveScope(explicit string, cwd string) (Scope, string, error) {
	switch Scope(explicit) {
	case ScopeGlobal:
		return ScopeGlobal, "", nil
	case ScopeProject, "":
		if root, found := FindProjectRoot(cwd); found {
			return ScopeProject, root, nil
		}
		abs, err := filepath.Abs(cwd)
		if err != nil {
			return "", "", fmt.Errorf("PRJ_ROOT: %w", err)
		}
		return ScopeProject, abs, nil
	default:
		return "", "", fmt.Errorf("PRJ_INVALID_SCOPE: invalid scope %q; use 'global' or 'project'", explicit)
	}
}

// LoadProjectManifest loads .skillkit/skills.toml from the given project
// root. A missing manifest is an empty one.
func LoadProjectManifest(projectRoot string) (ProjectManifest, error) {
	data, err := os.ReadFile(ProjectManifestPath(projectRoot))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultProjectManifest(), nil
		}
		return ProjectManifest{}, fmt.Errorf("PRJ_MANIFEST_READ: %w", err)
	}
	var m ProjectManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return ProjectManifest{}, fmt.Errorf("PRJ_MANIFEST_PARSE: %w", err)
	}
	if m.Version == 0 {
		m.Version = SchemaVersion
	}
	if m.Skills == nil {
		m.Skills = []ProjectSkillEntry{}
	}
	for i, s := range m.Skills {
		if s.Source == "" {
			return ProjectManifest{}, fmt.Errorf("PRJ_MANIFEST_SCHEMA: skills[%d] missing source", i)
		}
	}
	return m, nil
}

// SaveProjectManifest writes .skillkit/skills.toml to the given project root.
func SaveProjectManifest(projectRoot string, m ProjectManifest) error {
	if m.Version == 0 {
		m.Version = SchemaVersion
	}
	if err := os.MkdirAll(ProjectStateRoot(projectRoot), 0o755); err != nil {
		return fmt.Errorf("PRJ_MANIFEST_DIR: %w", err)
	}
	blob, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("PRJ_MANIFEST_ENCODE: %w", err)
	}
	if err := fsutil.AtomicWrite(ProjectManifestPath(projectRoot), blob, 0o644); err != nil {
		return fmt.Errorf("PRJ_MANIFEST_WRITE: %w", err)
	}
	return nil
}

// UpsertManifestSkill adds or updates a skill entry in the manifest.
func UpsertManifestSkill(m *ProjectManifest, entry ProjectSkillEntry) {
	for i := range m.Skills {
		if m.Skills[i].Source == entry.Source {
			m.Skills[i] = entry
			return
		}
	}
	m.Skills = append(m.Skills, entry)
}

// RemoveManifestSkill removes a skill entry from the manifest by source.
// Returns true if the skill was found and removed.
func RemoveManifestSkill(m *ProjectManifest, source string) bool {
	for i := range m.Skills {
		if m.Skills[i].Source == source {
			m.Skills = append(m.Skills[:i], m.Skills[i+1:]...)
			return true
		}
	}
	return false
}

// InitProject creates a new project manifest at the given directory.
// Returns an error if a manifest already exists.
func InitProject(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("PRJ_INIT: %w", err)
	}
	path := ProjectManifestPath(abs)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("PRJ_INIT: project already initialized at %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("PRJ_INIT: %w", err)
	}
	if err := SaveProjectManifest(abs, DefaultProjectManifest()); err != nil {
		return "", err
	}
	return path, nil
}
