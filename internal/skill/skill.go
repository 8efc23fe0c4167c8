// Package skill defines the installable unit and its on-disk manifest.
package skill

import (
	"fmt"
	"regexp"
	"strings"
)

// FileName is the manifest file every skill directory carries.
const FileName = "SKILL.md"

// DefaultVersion is assigned to manifests that omit a version.
const DefaultVersion = "0.0.0"

// Skill is a named, versioned instruction bundle.
type Skill struct {
	Name         string         `json:"name" yaml:"name"`
	Version      string         `json:"version" yaml:"version"`
	Description  string         `json:"description" yaml:"description"`
	Instructions string         `json:"instructions,omitempty" yaml:"-"`
	Author       string         `json:"author,omitempty" yaml:"author,omitempty"`
	Keywords     []string       `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Triggers     []string       `json:"triggers,omitempty" yaml:"triggers,omitempty"`
	Capabilities []string       `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Platforms    map[string]any `json:"platforms,omitempty" yaml:"platforms,omitempty"`
	Dependencies Dependencies   `json:"dependencies,omitzero" yaml:"-"`
	// Files holds the bundled files shipped next to the manifest, keyed
	// by slash-separated path relative to the skill directory.
	Files map[string][]byte `json:"-" yaml:"-"`
}

// Dependencies is the normalized dependency declaration of a skill.
type Dependencies struct {
	// Skills names other skills, either bare names or full sources.
	Skills []string `json:"skills,omitempty" yaml:"skills,omitempty"`
	// Tools names external tools the skill expects on PATH.
	Tools []string `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// IsZero reports whether no dependencies are declared.
func (d Dependencies) IsZero() bool {
	return len(d.Skills) == 0 && len(d.Tools) == 0
}

var kebabName = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateName checks that name is a kebab-case identifier that is also
// safe to use as a single path segment.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("skill name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("skill name cannot contain path separators: %s", name)
	}
	if !kebabName.MatchString(name) {
		return fmt.Errorf("skill name must be kebab-case (lowercase letters, digits, single hyphens): %s", name)
	}
	return nil
}

// Validate checks the fields a store needs to persist the skill.
func (s *Skill) Validate() error {
	if s == nil {
		return fmt.Errorf("skill is nil")
	}
	if err := ValidateName(s.Name); err != nil {
		return err
	}
	if !ValidVersion(s.Version) {
		return fmt.Errorf("skill %s has invalid version %q", s.Name, s.Version)
	}
	return nil
}
