// Package doctor inspects one scope for damaged or inconsistent bookkeeping
// and optionally repairs what can be repaired without losing content.
package doctor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strings"

	"skillkit/internal/audit"
	"skillkit/internal/config"
	"skillkit/internal/logging"
	"skillkit/internal/projection"
	"skillkit/internal/state"
	"skillkit/internal/store"
)

const (
	LevelError = "error"
	LevelWarn  = "warn"
	LevelInfo  = "info"
)

type Finding struct {
	Code    string `json:"code"`
	Level   string `json:"level"`
	Skill   string `json:"skill,omitempty"`
	Message string `json:"message"`
	Fixed   bool   `json:"fixed,omitempty"`
}

type Report struct {
	Healthy         bool      `json:"healthy"`
	Findings        []Finding `json:"findings"`
	DetectedTargets []string  `json:"detectedTargets,omitempty"`
}

type Options struct {
	Fix bool
}

type Service struct {
	Store *store.Store
	// ProjectRoot is where state.json lives; TargetRoot is where tool
	// directories are detected. Both are the home directory for the global
	// scope.
	ProjectRoot string
	TargetRoot  string
	Audit       *audit.Logger
	Logger      *slog.Logger
}

func (s *Service) Run(ctx context.Context, opts Options) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	log := logging.OrDiscard(s.Logger)
	findings := []Finding{}
	add := func(f Finding) *Finding {
		findings = append(findings, f)
		return &findings[len(findings)-1]
	}

	if !s.Store.IsInitialized() {
		add(Finding{Code: "DOC_STORE_MISSING", Level: LevelWarn, Message: s.Store.Root() + " is not initialized; run skillkit init"})
	}

	cfg, err := config.Load(store.ConfigPath(s.Store.Root()))
	if err != nil {
		f := add(Finding{Code: "DOC_CONFIG_INVALID", Level: LevelError, Message: err.Error()})
		if opts.Fix {
			if err := s.Store.SaveConfig(cfg); err != nil {
				return Report{}, err
			}
			f.Fixed = true
		}
	}

	if _, err := s.Store.ReadRegistry(); err != nil {
		add(Finding{Code: "DOC_REGISTRY_INVALID", Level: LevelError, Message: err.Error()})
	} else {
		orphans := missingContent(s.Store)
		for _, name := range orphans {
			add(Finding{Code: "DOC_REGISTRY_ORPHAN", Level: LevelWarn, Skill: name, Message: "registry entry has no skill content"})
		}
		if opts.Fix && len(orphans) > 0 {
			if _, err := s.Store.CleanOrphans(); err != nil {
				return Report{}, err
			}
			markFixed(findings, "DOC_REGISTRY_ORPHAN")
		}
	}

	st, err := state.Load(s.ProjectRoot)
	stateDirty := false
	if err != nil {
		f := add(Finding{Code: "DOC_STATE_INVALID", Level: LevelError, Message: err.Error()})
		if opts.Fix {
			// The unreadable file is kept aside; every stored skill is
			// re-recorded as a direct install.
			path := state.Path(s.ProjectRoot)
			if err := os.Rename(path, path+".corrupt"); err != nil && !errors.Is(err, os.ErrNotExist) {
				return Report{}, err
			}
			stateDirty = true
			f.Fixed = true
		}
	}

	installed := map[string]bool{}
	if list, err := s.Store.ListSkills(); err == nil {
		for _, it := range list {
			installed[it.Skill.Name] = true
		}
	}
	for _, name := range st.Names() {
		if installed[name] {
			continue
		}
		f := add(Finding{Code: "DOC_STATE_STALE", Level: LevelWarn, Skill: name, Message: "state entry has no installed skill"})
		if opts.Fix {
			for _, dep := range st.DependenciesOf(name) {
				st.RemoveDependent(dep, name)
			}
			st.Delete(name)
			stateDirty = true
			f.Fixed = true
		}
	}
	for _, name := range st.Names() {
		e, _ := st.Get(name)
		for _, dependent := range slices.Clone(e.DependedBy) {
			if _, ok := st.Get(dependent); ok {
				continue
			}
			f := add(Finding{Code: "DOC_STATE_DANGLING", Level: LevelWarn, Skill: name, Message: "depended on by unknown skill " + dependent})
			if opts.Fix {
				st.RemoveDependent(name, dependent)
				stateDirty = true
				f.Fixed = true
			}
		}
	}
	untracked := make([]string, 0)
	for name := range installed {
		if _, ok := st.Get(name); !ok {
			untracked = append(untracked, name)
		}
	}
	sort.Strings(untracked)
	for _, name := range untracked {
		f := add(Finding{Code: "DOC_STATE_UNTRACKED", Level: LevelInfo, Skill: name, Message: "installed skill has no state entry; treated as a direct install"})
		if opts.Fix {
			st.Put(name, state.Entry{Version: versionOf(s.Store, name), InstalledBy: state.InstalledByUser})
			stateDirty = true
			f.Fixed = true
		}
	}
	for _, name := range st.Names() {
		if st.IsOrphan(name) {
			add(Finding{Code: "DOC_ORPHAN_DEPENDENCY", Level: LevelInfo, Skill: name, Message: "installed as a dependency but nothing depends on it; uninstall with --remove-orphans to clean up"})
		}
	}
	if stateDirty {
		if err := state.Save(s.ProjectRoot, st); err != nil {
			return Report{}, err
		}
	}

	detected := projection.Detect(s.TargetRoot)
	names := make([]string, 0, len(detected))
	for _, d := range detected {
		names = append(names, d.Name)
		if slices.Contains(cfg.DefaultTargets, d.Name) {
			continue
		}
		add(Finding{
			Code:    "DOC_TARGET_NOT_SYNCED",
			Level:   LevelWarn,
			Message: d.Name + " detected at " + d.Path + " but not in defaultTargets",
		})
	}

	report := Report{Healthy: true, Findings: findings, DetectedTargets: names}
	var fixed []string
	for _, f := range findings {
		if f.Fixed {
			fixed = append(fixed, f.Code)
			continue
		}
		if f.Level == LevelError {
			report.Healthy = false
		}
	}
	if len(fixed) > 0 {
		log.Info("doctor repaired findings", "count", len(fixed))
		_ = s.Audit.Log(audit.Event{
			Operation: audit.OpRepair,
			Status:    audit.StatusOK,
			Fields:    map[string]string{"fixed": strings.Join(slices.Compact(fixed), ",")},
		})
	}
	return report, nil
}

func missingContent(st *store.Store) []string {
	var out []string
	for name := range st.LoadRegistry().Skills {
		if info, err := os.Stat(store.SkillDir(st.Root(), name)); err == nil && info.IsDir() {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func markFixed(findings []Finding, code string) {
	for i := range findings {
		if findings[i].Code == code {
			findings[i].Fixed = true
		}
	}
}

func versionOf(st *store.Store, name string) string {
	if sk, ok := st.GetSkill(name); ok {
		return sk.Version
	}
	return ""
}
