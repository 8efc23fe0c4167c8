// Package store persists installed skills and the registry manifest for one
// scope (a project's .skillkit directory or the user-global ~/.skillkit).
//
// Every registry mutation rewrites registry.json as a whole through a
// same-directory temp file and rename. The store serializes mutations made
// through one *Store, but does not lock across processes: two CLI
// invocations writing the same scope can lose each other's update.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"skillkit/internal/config"
	"skillkit/internal/fsutil"
	"skillkit/internal/logging"
	"skillkit/internal/skill"
	"skillkit/internal/skillerr"
)

// Store is a skill store rooted at one directory.
type Store struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
	write  fsutil.WriteFunc
	mu     sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for soft failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = logging.OrDiscard(l) }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithWriter replaces the function used to persist registry.json.
func WithWriter(w fsutil.WriteFunc) Option {
	return func(s *Store) { s.write = w }
}

// New returns a store rooted at root.
func New(root string, opts ...Option) *Store {
	s := &Store{root: root, logger: logging.Discard(), now: time.Now, write: fsutil.AtomicWrite}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewLocal returns the project-scoped store for projectPath.
func NewLocal(projectPath string, opts ...Option) *Store {
	return New(config.ProjectStateRoot(projectPath), opts...)
}

// NewGlobal returns the user-global store.
func NewGlobal(opts ...Option) *Store {
	return New(config.GlobalRoot(), opts...)
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Init creates the skills directory, an empty registry and a default
// config when they are absent. It is safe to call repeatedly.
func (s *Store) Init() error {
	if err := os.MkdirAll(SkillsRoot(s.root), 0o755); err != nil {
		return fmt.Errorf("STO_INIT: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(RegistryPath(s.root)); errors.Is(err, os.ErrNotExist) {
		if err := s.saveRegistry(NewRegistry()); err != nil {
			return err
		}
	}
	if _, err := config.Ensure(ConfigPath(s.root)); err != nil {
		return fmt.Errorf("STO_INIT: %w", err)
	}
	return nil
}

// IsInitialized reports whether the root and skills directories exist.
func (s *Store) IsInitialized() bool {
	for _, dir := range []string{s.root, SkillsRoot(s.root)} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

// AddSkill writes the skill's content and upserts its registry entry. An
// existing skill with the same name is overwritten; deciding whether that
// is acceptable is the caller's job.
func (s *Store) AddSkill(sk *skill.Skill, opts AddOptions) error {
	blob, err := skill.Render(sk)
	if err != nil {
		return skillerr.Wrap(err, skillerr.KindSourceInvalid, "STO_SKILL_INVALID", "cannot store skill")
	}
	if opts.Source == "" {
		opts.Source = SourceLocal
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeContent(sk, blob); err != nil {
		return err
	}
	reg := s.LoadRegistry()
	reg.Skills[sk.Name] = SkillEntry{
		Name:            sk.Name,
		Version:         sk.Version,
		InstalledAt:     s.now().UTC(),
		Source:          opts.Source,
		SourceURL:       opts.SourceURL,
		SyncedPlatforms: []string{},
	}
	return s.saveRegistry(reg)
}

// GetSkill reads a skill's content. Missing or unparsable content yields
// (nil, false) rather than an error.
func (s *Store) GetSkill(name string) (*skill.Skill, bool) {
	if skill.ValidateName(name) != nil {
		return nil, false
	}
	blob, err := os.ReadFile(SkillFile(s.root, name))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("skill content unreadable", "skill", name, "error", err)
		}
		return nil, false
	}
	sk, err := skill.Parse(blob, name)
	if err != nil {
		s.logger.Warn("skill content unparsable", "skill", name, "error", err)
		return nil, false
	}
	return sk, true
}

// HasSkill reports whether readable content exists for name.
func (s *Store) HasSkill(name string) bool {
	_, ok := s.GetSkill(name)
	return ok
}

// UpdateSkill replaces the content of an existing skill, bundled files
// included. It fails with KindNotFound when the skill is absent so that
// installedAt and source are never reset by accident.
func (s *Store) UpdateSkill(name string, sk *skill.Skill) error {
	if sk == nil || sk.Name != name {
		return skillerr.New(skillerr.KindSourceInvalid, "STO_NAME_MISMATCH", "update of %q must carry the same name", name)
	}
	blob, err := skill.Render(sk)
	if err != nil {
		return skillerr.Wrap(err, skillerr.KindSourceInvalid, "STO_SKILL_INVALID", "cannot store skill")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.HasSkill(name) {
		return skillerr.New(skillerr.KindNotFound, "STO_NOT_FOUND", "skill %q is not installed", name)
	}
	if err := s.writeContent(sk, blob); err != nil {
		return err
	}
	reg := s.LoadRegistry()
	entry, ok := reg.Skills[name]
	if !ok {
		entry = SkillEntry{Name: name, InstalledAt: s.now().UTC(), Source: SourceLocal, SyncedPlatforms: []string{}}
	}
	entry.Version = sk.Version
	reg.Skills[name] = entry
	return s.saveRegistry(reg)
}

// RemoveSkill deletes a skill's content and registry entry. It returns
// false, not an error, when nothing was there to remove.
func (s *Store) RemoveSkill(name string) (bool, error) {
	if err := skill.ValidateName(name); err != nil {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := SkillDir(s.root, name)
	_, statErr := os.Stat(dir)
	hasDir := statErr == nil
	reg := s.LoadRegistry()
	_, hasEntry := reg.Skills[name]
	if !hasDir && !hasEntry {
		return false, nil
	}
	if hasDir {
		if err := os.RemoveAll(dir); err != nil {
			return false, fmt.Errorf("STO_REMOVE: %w", err)
		}
	}
	if hasEntry {
		delete(reg.Skills, name)
		if err := s.saveRegistry(reg); err != nil {
			return false, err
		}
	}
	return true, nil
}

// ListSkills returns every registry entry that still has readable content,
// sorted by name. Entries without content are left for CleanOrphans.
func (s *Store) ListSkills() ([]InstalledSkill, error) {
	reg := s.LoadRegistry()
	names := make([]string, 0, len(reg.Skills))
	for name := range reg.Skills {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]InstalledSkill, 0, len(names))
	for _, name := range names {
		sk, ok := s.GetSkill(name)
		if !ok {
			continue
		}
		out = append(out, InstalledSkill{Entry: reg.Skills[name], Skill: sk})
	}
	return out, nil
}

// CleanOrphans drops registry entries whose skill directory no longer
// exists and returns their names. It never touches skill content.
func (s *Store) CleanOrphans() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg := s.LoadRegistry()
	var removed []string
	for name := range reg.Skills {
		if info, err := os.Stat(SkillDir(s.root, name)); err == nil && info.IsDir() {
			continue
		}
		removed = append(removed, name)
	}
	if len(removed) == 0 {
		return nil, nil
	}
	for _, name := range removed {
		delete(reg.Skills, name)
	}
	if err := s.saveRegistry(reg); err != nil {
		return nil, err
	}
	sort.Strings(removed)
	return removed, nil
}

// MarkSynced records that a skill was projected to platforms.
func (s *Store) MarkSynced(name string, platforms []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg := s.LoadRegistry()
	entry, ok := reg.Skills[name]
	if !ok {
		return skillerr.New(skillerr.KindNotFound, "STO_NOT_FOUND", "skill %q is not installed", name)
	}
	set := map[string]struct{}{}
	for _, p := range entry.SyncedPlatforms {
		set[p] = struct{}{}
	}
	for _, p := range platforms {
		set[p] = struct{}{}
	}
	entry.SyncedPlatforms = make([]string, 0, len(set))
	for p := range set {
		entry.SyncedPlatforms = append(entry.SyncedPlatforms, p)
	}
	sort.Strings(entry.SyncedPlatforms)
	now := s.now().UTC()
	entry.LastSynced = &now
	reg.Skills[name] = entry
	return s.saveRegistry(reg)
}

// LoadConfig returns the store's config.json merged over defaults. A
// corrupt file is logged and replaced by defaults in memory.
func (s *Store) LoadConfig() config.Config {
	cfg, err := config.Load(ConfigPath(s.root))
	if err != nil {
		s.logger.Warn("config unreadable, using defaults", "path", ConfigPath(s.root), "error", err)
	}
	return cfg
}

// SaveConfig persists cfg as the store's config.json.
func (s *Store) SaveConfig(cfg config.Config) error {
	return config.Save(ConfigPath(s.root), cfg)
}

// LoadFiles reads the bundled files stored next to sk's manifest.
func (s *Store) LoadFiles(sk *skill.Skill) error {
	return sk.LoadFiles(SkillDir(s.root, sk.Name))
}

// writeContent stages the manifest and bundled files in a sibling
// directory and swaps it into place, so files dropped by a new version do
// not linger and a failed write leaves the previous content intact.
func (s *Store) writeContent(sk *skill.Skill, blob []byte) error {
	parent := SkillsRoot(s.root)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("STO_WRITE: %w", err)
	}
	staging, err := os.MkdirTemp(parent, "."+sk.Name+".tmp-*")
	if err != nil {
		return fmt.Errorf("STO_WRITE: %w", err)
	}
	defer os.RemoveAll(staging)
	if err := os.Chmod(staging, 0o755); err != nil {
		return fmt.Errorf("STO_WRITE: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, skill.FileName), blob, 0o644); err != nil {
		return fmt.Errorf("STO_WRITE: %w", err)
	}
	for _, rel := range sk.FilePaths() {
		if err := skill.ValidateFilePath(rel); err != nil {
			return skillerr.Wrap(err, skillerr.KindSourceInvalid, "STO_SKILL_INVALID", "cannot store skill")
		}
		dst := filepath.Join(staging, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("STO_WRITE: %w", err)
		}
		if err := os.WriteFile(dst, sk.Files[rel], 0o644); err != nil {
			return fmt.Errorf("STO_WRITE: %w", err)
		}
	}

	dir := SkillDir(s.root, sk.Name)
	old := staging + ".old"
	hadPrevious := false
	if _, err := os.Stat(dir); err == nil {
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("STO_WRITE: %w", err)
		}
		hadPrevious = true
	}
	if err := os.Rename(staging, dir); err != nil {
		if hadPrevious {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("STO_WRITE: %w", err)
	}
	if hadPrevious {
		if err := os.RemoveAll(old); err != nil {
			s.logger.Warn("previous skill content not cleaned up", "skill", sk.Name, "path", old, "error", err)
		}
	}
	return nil
}
