package projection

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Layout is how a target stores one skill.
type Layout int

const (
	// LayoutSkillDir writes <dir>/<name>/SKILL.md.
	LayoutSkillDir Layout = iota
	// LayoutRuleFile writes <dir>/<name>.mdc.
	LayoutRuleFile
)

// Target is a tool whose skill directory skills are projected into.
type Target struct {
	Name string
	// Base is the tool's root directory relative to the projection root,
	// e.g. ".claude".
	Base string
	// Dir is where skills live, relative to the projection root.
	Dir    string
	Layout Layout
}

var targets = map[string]Target{
	"claude": {Name: "claude", Base: ".claude", Dir: filepath.Join(".claude", "skills"), Layout: LayoutSkillDir},
	"codex":  {Name: "codex", Base: ".codex", Dir: filepath.Join(".codex", "skills"), Layout: LayoutSkillDir},
	"cursor": {Name: "cursor", Base: ".cursor", Dir: filepath.Join(".cursor", "rules"), Layout: LayoutRuleFile},
	"gemini": {Name: "gemini", Base: ".gemini", Dir: filepath.Join(".gemini", "skills"), Layout: LayoutSkillDir},
}

// Lookup returns the target called name.
func Lookup(name string) (Target, error) {
	t, ok := targets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Target{}, fmt.Errorf("PRJ_UNKNOWN_TARGET: unknown sync target %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return t, nil
}

// Names lists the known targets, sorted.
func Names() []string {
	out := make([]string, 0, len(targets))
	for name := range targets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Path is the file a skill is projected to under root.
func (t Target) Path(root, skill string) string {
	if t.Layout == LayoutRuleFile {
		return filepath.Join(root, t.Dir, skill+".mdc")
	}
	return filepath.Join(root, t.Dir, skill, "SKILL.md")
}

// Detection is a target whose tool directory exists.
type Detection struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Detect returns the targets whose tool directory exists under root.
func Detect(root string) []Detection {
	var out []Detection
	for _, name := range Names() {
		t := targets[name]
		p := filepath.Join(root, t.Base)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			out = append(out, Detection{Name: name, Path: p})
		}
	}
	return out
}
