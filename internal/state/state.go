// Package state records the project-level dependency graph: who installed
// each skill and which skills currently depend on it.
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"skillkit/internal/config"
	"skillkit/internal/fsutil"
	"skillkit/internal/skillerr"
)

// InstalledByUser marks a skill the user asked for directly.
const InstalledByUser = "user"

// Entry is the dependency bookkeeping for one skill.
type Entry struct {
	Version     string   `json:"version"`
	Source      string   `json:"source"`
	InstalledBy string   `json:"installed_by"`
	DependedBy  []string `json:"depended_by"`
}

// State is the whole state.json document.
type State struct {
	Skills map[string]*Entry `json:"skills"`
}

// New returns an empty state.
func New() *State {
	return &State{Skills: map[string]*Entry{}}
}

// Path returns the state.json location for a project.
func Path(projectPath string) string {
	return filepath.Join(config.ProjectStateRoot(projectPath), "state.json")
}

// Load reads a project's state. A missing file is an empty state. A
// corrupt file also yields an empty state, together with a KindCorrupt
// error the caller may log; the returned *State is never nil.
func Load(projectPath string) (*State, error) {
	path := Path(projectPath)
	blob, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return New(), skillerr.Wrap(err, skillerr.KindCorrupt, "STATE_READ", path)
	}
	st, err := decode(blob)
	if err != nil {
		return New(), skillerr.Wrap(err, skillerr.KindCorrupt, "STATE_PARSE", path)
	}
	return st, nil
}

// writeFile persists state.json.
var writeFile fsutil.WriteFunc = fsutil.AtomicWrite

// Save writes the state atomically.
func Save(projectPath string, st *State) error {
	if st == nil {
		st = New()
	}
	for _, e := range st.Skills {
		e.DependedBy = normalizeSet(e.DependedBy)
	}
	blob, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("STATE_ENCODE: %w", err)
	}
	path := Path(projectPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("STATE_WRITE: %w", err)
	}
	if err := writeFile(path, append(blob, '\n'), 0o644); err != nil {
		return fmt.Errorf("STATE_WRITE: %w", err)
	}
	return nil
}

// Get returns the entry for name.
func (s *State) Get(name string) (*Entry, bool) {
	e, ok := s.Skills[name]
	return e, ok
}

// Put stores e under name, replacing any previous entry.
func (s *State) Put(name string, e Entry) *Entry {
	e.DependedBy = normalizeSet(e.DependedBy)
	if e.InstalledBy == "" {
		e.InstalledBy = InstalledByUser
	}
	s.Skills[name] = &e
	return &e
}

// Delete removes name and reports whether it was present.
func (s *State) Delete(name string) bool {
	_, ok := s.Skills[name]
	delete(s.Skills, name)
	return ok
}

// AddDependent records that dependent requires name.
func (s *State) AddDependent(name, dependent string) bool {
	e, ok := s.Skills[name]
	if !ok || slices.Contains(e.DependedBy, dependent) {
		return false
	}
	e.DependedBy = normalizeSet(append(e.DependedBy, dependent))
	return true
}

// RemoveDependent drops dependent from name's dependents.
func (s *State) RemoveDependent(name, dependent string) bool {
	e, ok := s.Skills[name]
	if !ok {
		return false
	}
	i := slices.Index(e.DependedBy, dependent)
	if i < 0 {
		return false
	}
	e.DependedBy = slices.Delete(e.DependedBy, i, i+1)
	return true
}

// Dependents returns a sorted copy of the skills that require name.
func (s *State) Dependents(name string) []string {
	e, ok := s.Skills[name]
	if !ok || len(e.DependedBy) == 0 {
		return []string{}
	}
	return normalizeSet(slices.Clone(e.DependedBy))
}

// DependenciesOf returns the skills name currently depends on, that is,
// every entry listing name among its dependents.
func (s *State) DependenciesOf(name string) []string {
	var out []string
	for other, e := range s.Skills {
		if slices.Contains(e.DependedBy, name) {
			out = append(out, other)
		}
	}
	sort.Strings(out)
	return out
}

// IsOrphan reports whether name was installed transitively and nothing
// depends on it any more.
func (s *State) IsOrphan(name string) bool {
	e, ok := s.Skills[name]
	return ok && e.InstalledBy != InstalledByUser && len(e.DependedBy) == 0
}

// Names returns all recorded skill names, sorted.
func (s *State) Names() []string {
	out := make([]string, 0, len(s.Skills))
	for name := range s.Skills {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func normalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return slices.Compact(out)
}

var nullJSON = []byte("null")

func isNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), nullJSON)
}
