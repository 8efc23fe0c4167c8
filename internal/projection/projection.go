// Package projection copies installed skills into the directory layouts
// of individual tools (Claude, Codex, Cursor, Gemini). Only files carrying
// the skillkit managed marker are ever overwritten or removed.
package projection

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"skillkit/internal/audit"
	"skillkit/internal/fsutil"
	"skillkit/internal/logging"
	"skillkit/internal/skill"
	"skillkit/internal/store"
)

// Syncer projects the skills of one store into tool layouts under Root.
type Syncer struct {
	Store *store.Store
	// Root is the directory target layouts live in: the project root, or
	// the home directory for the global store.
	Root   string
	Audit  *audit.Logger
	Logger *slog.Logger
}

// Options controls Sync.
type Options struct {
	// Targets defaults to config.json defaultTargets.
	Targets []string
	// Skills restricts the run to these names; empty means all.
	Skills []string
	DryRun bool
	// Prune removes managed files of skills no longer installed.
	Prune bool
}

// TargetResult reports one target.
type TargetResult struct {
	Target    string   `json:"target"`
	Written   []string `json:"written"`
	Unchanged []string `json:"unchanged,omitempty"`
	// Conflicts are skills whose destination exists without the managed
	// marker and was left alone.
	Conflicts []string `json:"conflicts,omitempty"`
	Removed   []string `json:"removed,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Result reports a sync run.
type Result struct {
	Targets []TargetResult `json:"targets"`
	DryRun  bool           `json:"dryRun,omitempty"`
}

func (s *Syncer) logger() *slog.Logger {
	return logging.OrDiscard(s.Logger)
}

// Sync writes every selected skill to every selected target and records
// the targets in each skill's syncedPlatforms. One failing target does not
// stop the others.
func (s *Syncer) Sync(ctx context.Context, opts Options) (Result, error) {
	names := opts.Targets
	if len(names) == 0 {
		names = s.Store.LoadConfig().DefaultTargets
	}
	installed, err := s.Store.ListSkills()
	if err != nil {
		return Result{}, err
	}
	if len(opts.Skills) > 0 {
		want := map[string]bool{}
		for _, n := range opts.Skills {
			want[n] = true
		}
		kept := installed[:0]
		for _, it := range installed {
			if want[it.Skill.Name] {
				kept = append(kept, it)
			}
		}
		installed = kept
	}

	res := Result{DryRun: opts.DryRun}
	synced := map[string][]string{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		tr := TargetResult{Target: name, Written: []string{}}
		t, err := Lookup(name)
		if err != nil {
			tr.Error = err.Error()
			res.Targets = append(res.Targets, tr)
			continue
		}
		tr.Target = t.Name
		if err := s.syncTarget(t, installed, opts, &tr); err != nil {
			tr.Error = err.Error()
			s.logger().Warn("sync target failed", "target", t.Name, "error", err)
		} else {
			for _, n := range append(append([]string{}, tr.Written...), tr.Unchanged...) {
				synced[n] = append(synced[n], t.Name)
			}
		}
		res.Targets = append(res.Targets, tr)
	}

	if opts.DryRun {
		return res, nil
	}
	skills := make([]string, 0, len(synced))
	for n := range synced {
		skills = append(skills, n)
	}
	sort.Strings(skills)
	for _, n := range skills {
		if err := s.Store.MarkSynced(n, synced[n]); err != nil {
			return res, err
		}
		ev := audit.Event{Operation: audit.OpSync, Skill: n, Status: audit.StatusOK, Fields: map[string]string{"targets": strings.Join(synced[n], ",")}}
		if err := s.Audit.Log(ev); err != nil {
			s.logger().Warn("audit log write failed", "error", err)
		}
	}
	return res, nil
}

func (s *Syncer) syncTarget(t Target, installed []store.InstalledSkill, opts Options, tr *TargetResult) error {
	keep := map[string]bool{}
	for _, it := range installed {
		sk := it.Skill
		keep[sk.Name] = true
		blob, err := render(t, sk)
		if err != nil {
			return err
		}
		path := t.Path(s.Root, sk.Name)
		existing, readErr := os.ReadFile(path)
		if readErr != nil && !errors.Is(readErr, os.ErrNotExist) {
			return readErr
		}
		if readErr == nil && !fsutil.IsManagedFile(existing) {
			tr.Conflicts = append(tr.Conflicts, sk.Name)
			s.logger().Warn("leaving unmanaged file in place", "path", path)
			continue
		}
		var bundle map[string][]byte
		if t.Layout == LayoutSkillDir {
			if err := s.Store.LoadFiles(sk); err != nil {
				return err
			}
			bundle = sk.Files
		}
		if readErr == nil && bytes.Equal(existing, blob) && bundleInPlace(filepath.Dir(path), bundle) {
			tr.Unchanged = append(tr.Unchanged, sk.Name)
			continue
		}
		if !opts.DryRun {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := fsutil.AtomicWrite(path, blob, 0o644); err != nil {
				return err
			}
			if t.Layout == LayoutSkillDir {
				if err := writeBundle(filepath.Dir(path), bundle); err != nil {
					return err
				}
			}
		}
		tr.Written = append(tr.Written, sk.Name)
	}
	if !opts.Prune || len(opts.Skills) > 0 {
		return nil
	}
	managed, err := managedSkills(t, s.Root)
	if err != nil {
		return err
	}
	for _, name := range managed {
		if keep[name] {
			continue
		}
		if !opts.DryRun {
			if err := removeProjected(t, s.Root, name); err != nil {
				return err
			}
		}
		tr.Removed = append(tr.Removed, name)
	}
	return nil
}

// Remove deletes the managed projections of skillName from the given targets.
// Unmanaged files are kept. It returns the targets a file was removed from.
func (s *Syncer) Remove(skillName string, targetNames []string) ([]string, error) {
	if len(targetNames) == 0 {
		targetNames = Names()
	}
	var removed []string
	for _, name := range targetNames {
		t, err := Lookup(name)
		if err != nil {
			return removed, err
		}
		blob, err := os.ReadFile(t.Path(s.Root, skillName))
		if err != nil || !fsutil.IsManagedFile(blob) {
			continue
		}
		if err := removeProjected(t, s.Root, skillName); err != nil {
			return removed, err
		}
		removed = append(removed, t.Name)
	}
	return removed, nil
}

// Status lists, per target, the skills currently projected with the
// managed marker.
func (s *Syncer) Status(targetNames []string) (map[string][]string, error) {
	if len(targetNames) == 0 {
		targetNames = Names()
	}
	out := map[string][]string{}
	for _, name := range targetNames {
		t, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		managed, err := managedSkills(t, s.Root)
		if err != nil {
			return nil, err
		}
		out[t.Name] = managed
	}
	return out, nil
}

func managedSkills(t Target, root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, t.Dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		var name string
		switch {
		case t.Layout == LayoutSkillDir && e.IsDir():
			name = e.Name()
		case t.Layout == LayoutRuleFile && !e.IsDir() && strings.HasSuffix(e.Name(), ".mdc"):
			name = strings.TrimSuffix(e.Name(), ".mdc")
		default:
			continue
		}
		blob, err := os.ReadFile(t.Path(root, name))
		if err != nil || !fsutil.IsManagedFile(blob) {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// removeProjected deletes a managed projection. A managed skill directory
// belongs to skillkit as a whole, bundled files included.
func removeProjected(t Target, root, name string) error {
	path := t.Path(root, name)
	if t.Layout == LayoutSkillDir {
		return os.RemoveAll(filepath.Dir(path))
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// bundleInPlace reports whether dir holds exactly the bundled files.
func bundleInPlace(dir string, bundle map[string][]byte) bool {
	current := &skill.Skill{}
	if err := current.LoadFiles(dir); err != nil || len(current.Files) != len(bundle) {
		return false
	}
	for rel, data := range bundle {
		if !bytes.Equal(current.Files[rel], data) {
			return false
		}
	}
	return true
}

// writeBundle makes the bundled files of a managed skill directory match
// bundle, removing files a previous version shipped.
func writeBundle(dir string, bundle map[string][]byte) error {
	current := &skill.Skill{}
	if err := current.LoadFiles(dir); err == nil {
		for rel := range current.Files {
			if _, ok := bundle[rel]; ok {
				continue
			}
			if err := os.Remove(filepath.Join(dir, filepath.FromSlash(rel))); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
	}
	for rel, data := range bundle {
		dst := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := fsutil.AtomicWrite(dst, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
