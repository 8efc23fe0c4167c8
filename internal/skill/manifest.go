package skill

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontMatterDelim = "---"

// frontMatter is the YAML header of SKILL.md.
type frontMatter struct {
	Name         string          `yaml:"name"`
	Version      string          `yaml:"version,omitempty"`
	Description  string          `yaml:"description"`
	Author       string          `yaml:"author,omitempty"`
	Keywords     []string        `yaml:"keywords,omitempty"`
	Triggers     []string        `yaml:"triggers,omitempty"`
	Capabilities []string        `yaml:"capabilities,omitempty"`
	Platforms    map[string]any  `yaml:"platforms,omitempty"`
	Dependencies RawDependencies `yaml:"dependencies,omitempty"`
}

// renderFrontMatter mirrors frontMatter with dependencies always written in
// the current object shape.
type renderFrontMatter struct {
	Name         string         `yaml:"name"`
	Version      string         `yaml:"version"`
	Description  string         `yaml:"description"`
	Author       string         `yaml:"author,omitempty"`
	Keywords     []string       `yaml:"keywords,omitempty"`
	Triggers     []string       `yaml:"triggers,omitempty"`
	Capabilities []string       `yaml:"capabilities,omitempty"`
	Platforms    map[string]any `yaml:"platforms,omitempty"`
	Dependencies *Dependencies  `yaml:"dependencies,omitempty"`
}

// Parse decodes a SKILL.md document. fallbackName is used when the front
// matter has no name (typically the directory the file was found in).
func Parse(content []byte, fallbackName string) (*Skill, error) {
	header, body, err := splitFrontMatter(content)
	if err != nil {
		return nil, err
	}
	var fm frontMatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return nil, fmt.Errorf("failed to parse YAML frontmatter: %w", err)
	}
	return fromFrontMatter(fm, strings.TrimLeft(string(body), "\r\n"), fallbackName)
}

// ParseYAML decodes a bare skill.yaml manifest. Such skills carry no
// instructions body.
func ParseYAML(content []byte, fallbackName string) (*Skill, error) {
	var fm frontMatter
	if err := yaml.Unmarshal(content, &fm); err != nil {
		return nil, fmt.Errorf("failed to parse skill.yaml: %w", err)
	}
	return fromFrontMatter(fm, "", fallbackName)
}

func fromFrontMatter(fm frontMatter, body, fallbackName string) (*Skill, error) {
	s := &Skill{
		Name:         strings.TrimSpace(fm.Name),
		Version:      strings.TrimPrefix(strings.TrimSpace(fm.Version), "v"),
		Description:  strings.TrimSpace(fm.Description),
		Instructions: body,
		Author:       fm.Author,
		Keywords:     fm.Keywords,
		Triggers:     fm.Triggers,
		Capabilities: fm.Capabilities,
		Platforms:    fm.Platforms,
		Dependencies: NormalizeDependencies(fm.Dependencies),
	}
	if s.Name == "" {
		s.Name = fallbackName
	}
	if s.Version == "" {
		s.Version = DefaultVersion
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Render encodes s as a SKILL.md document.
func Render(s *Skill) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	fm := renderFrontMatter{
		Name:         s.Name,
		Version:      s.Version,
		Description:  s.Description,
		Author:       s.Author,
		Keywords:     s.Keywords,
		Triggers:     s.Triggers,
		Capabilities: s.Capabilities,
		Platforms:    s.Platforms,
	}
	if !s.Dependencies.IsZero() {
		deps := s.Dependencies
		fm.Dependencies = &deps
	}
	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("failed to encode YAML frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(frontMatterDelim + "\n")
	buf.Write(header)
	buf.WriteString(frontMatterDelim + "\n")
	if s.Instructions != "" {
		buf.WriteString("\n")
		buf.WriteString(s.Instructions)
		if !strings.HasSuffix(s.Instructions, "\n") {
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}

func splitFrontMatter(content []byte) (header, body []byte, err error) {
	str := strings.TrimPrefix(string(content), "\ufeff")
	if !strings.HasPrefix(str, frontMatterDelim) {
		return nil, nil, fmt.Errorf("no frontmatter found")
	}
	rest := strings.TrimPrefix(str, frontMatterDelim)
	rest = strings.TrimLeft(rest, "\r\n")
	end := strings.Index(rest, "\n"+frontMatterDelim)
	if end == -1 {
		if strings.HasPrefix(rest, frontMatterDelim) {
			return nil, []byte(strings.TrimPrefix(rest, frontMatterDelim)), nil
		}
		return nil, nil, fmt.Errorf("no frontmatter found")
	}
	header = []byte(rest[:end+1])
	after := rest[end+1+len(frontMatterDelim):]
	return header, []byte(after), nil
}
