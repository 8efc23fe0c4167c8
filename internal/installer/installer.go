// Package installer installs skills with their dependencies and keeps the
// project's dependency state (state.json) consistent across installs and
// uninstalls.
package installer

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"

	"skillkit/internal/audit"
	"skillkit/internal/logging"
	"skillkit/internal/security"
	"skillkit/internal/skill"
	"skillkit/internal/skillerr"
	"skillkit/internal/source"
	"skillkit/internal/state"
	"skillkit/internal/store"
)

// Service installs and removes skills for a project. The project's store
// lives at <project>/.skillkit; pass the home directory as projectPath to
// operate on the user-global store.
type Service struct {
	Fetcher source.Fetcher
	Audit   *audit.Logger
	Logger  *slog.Logger
	// StoreOptions are applied to every store the service opens.
	StoreOptions []store.Option
	// LookPath checks tool dependencies; defaults to exec.LookPath.
	LookPath func(string) (string, error)
	// Scanner vets fetched content before it is stored. Nil disables it.
	Scanner *security.Scanner
}

func (s *Service) logger() *slog.Logger {
	return logging.OrDiscard(s.Logger)
}

func (s *Service) openStore(projectPath string) (*store.Store, error) {
	opts := append([]store.Option{store.WithLogger(s.logger())}, s.StoreOptions...)
	st := store.NewLocal(projectPath, opts...)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

// loadState degrades a corrupt state.json to an empty graph.
func (s *Service) loadState(projectPath string) *state.State {
	g, err := state.Load(projectPath)
	if err != nil {
		s.logger().Warn("state unreadable, starting empty", "path", state.Path(projectPath), "error", err)
	}
	return g
}

// Install fetches src and installs it together with its skill
// dependencies. A malformed source fails immediately. Otherwise the
// returned Result lists every skill visited; failures of individual
// dependencies are reported there and do not abort the run. The error is
// non-nil only when the requested skill itself could not be installed.
func (s *Service) Install(ctx context.Context, projectPath, src string, opts Options) (Result, error) {
	if s.Fetcher == nil {
		return Result{}, errors.New("INS_NO_FETCHER: installer has no fetcher")
	}
	ref, err := source.Parse(src)
	if err != nil {
		return Result{}, err
	}
	st, err := s.openStore(projectPath)
	if err != nil {
		return Result{}, err
	}
	r := s.newRun(st, s.loadState(projectPath), opts)
	rootErr := r.installRequested(ctx, ref)
	if err := state.Save(projectPath, r.graph); err != nil {
		return r.result, skillerr.Wrap(err, skillerr.KindCorrupt, "INS_STATE_SAVE", "cannot persist dependency state")
	}
	return r.result, rootErr
}

type run struct {
	svc     *Service
	store   *store.Store
	graph   *state.State
	opts    Options
	visited map[string]bool
	result  Result
}

func (s *Service) newRun(st *store.Store, g *state.State, opts Options) *run {
	return &run{svc: s, store: st, graph: g, opts: opts, visited: map[string]bool{}}
}

// installRequested installs a skill the user asked for directly.
func (r *run) installRequested(ctx context.Context, ref source.Ref) error {
	item, sk, err := r.fetchAndStore(ctx, ref, r.opts.Force)
	if err != nil {
		r.report(item)
		return err
	}
	r.visited[sk.Name] = true
	r.record(sk, ref, state.InstalledByUser)
	item.InstalledBy = state.InstalledByUser
	r.report(item)
	r.resolveDependencies(ctx, ref, sk)
	return nil
}

// installDependency installs dependency dep of requester. dep is either a
// full source or a bare skill name published next to the requester.
func (r *run) installDependency(ctx context.Context, parent source.Ref, requester, dep string) {
	ref, bare, err := dependencyRef(parent, dep)
	if err != nil {
		r.report(ItemResult{Name: dep, Source: dep, Status: StatusFailed, InstalledBy: requester, Error: err.Error()})
		return
	}
	if bare && dep == requester {
		return
	}
	if bare && (r.visited[dep] || r.store.HasSkill(dep)) {
		r.satisfy(dep, ref, requester)
		return
	}

	item, sk, err := r.fetchAndStore(ctx, ref, false)
	if err != nil {
		item.InstalledBy = requester
		r.report(item)
		return
	}
	if sk.Name == requester {
		return
	}
	already := r.visited[sk.Name]
	r.visited[sk.Name] = true
	item.InstalledBy = r.record(sk, ref, requester)
	r.report(item)
	if !already {
		r.resolveDependencies(ctx, ref, sk)
	}
}

func (r *run) resolveDependencies(ctx context.Context, ref source.Ref, sk *skill.Skill) {
	if r.opts.NoDeps {
		return
	}
	for _, dep := range sk.Dependencies.Skills {
		if ctx.Err() != nil {
			r.report(ItemResult{Name: dep, Source: dep, Status: StatusFailed, InstalledBy: sk.Name, Error: ctx.Err().Error()})
			continue
		}
		r.installDependency(ctx, ref, sk.Name, dep)
	}
}

// satisfy records an already-installed dependency without fetching it.
func (r *run) satisfy(name string, ref source.Ref, requester string) {
	if _, ok := r.graph.Get(name); !ok {
		// Present in the store but never tracked: treat as user-owned so
		// an orphan cascade never removes it.
		version := ""
		if sk, ok := r.store.GetSkill(name); ok {
			version = sk.Version
		}
		r.graph.Put(name, state.Entry{Version: version, Source: ref.String(), InstalledBy: state.InstalledByUser})
	}
	r.graph.AddDependent(name, requester)
	if r.visited[name] {
		return
	}
	r.visited[name] = true
	e, _ := r.graph.Get(name)
	r.report(ItemResult{Name: name, Version: e.Version, Source: e.Source, Status: StatusSatisfied, InstalledBy: e.InstalledBy})
}

// fetchAndStore fetches ref and writes it to the store unless the same or
// a newer version is already there.
func (r *run) fetchAndStore(ctx context.Context, ref source.Ref, force bool) (ItemResult, *skill.Skill, error) {
	canonical := ref.String()
	item := ItemResult{Name: ref.SkillName(), Source: canonical}
	fail := func(err error) (ItemResult, *skill.Skill, error) {
		item.Status = StatusFailed
		item.Error = err.Error()
		r.svc.audit(audit.Event{Operation: audit.OpInstall, Skill: item.Name, Source: canonical, Status: audit.StatusFailed, Code: skillerr.CodeOf(err), Message: err.Error()})
		return item, nil, err
	}

	sk, err := r.svc.Fetcher.FetchSkill(ctx, canonical)
	if err != nil {
		if skillerr.KindOf(err) == skillerr.KindUnknown {
			err = skillerr.Wrap(err, skillerr.KindProviderFailure, "INS_FETCH", canonical)
		}
		return fail(err)
	}
	if sk == nil {
		return fail(skillerr.New(skillerr.KindNotFound, "INS_NOT_FOUND", "no skill found at %s", canonical))
	}
	item.Name = sk.Name
	item.Version = sk.Version

	existing, have := r.store.GetSkill(sk.Name)
	switch {
	case !have:
		item.Status = StatusInstalled
	case force || skill.CompareVersions(sk.Version, existing.Version) > 0:
		item.Status = StatusUpdated
	default:
		item.Status = StatusSatisfied
		item.Version = existing.Version
		sk = existing
	}
	if item.Status != StatusSatisfied {
		report, err := r.svc.Scanner.Check(sk, force)
		if len(report.Findings) > 0 {
			item.Findings = report.Findings
		}
		if err != nil {
			return fail(err)
		}
		for _, f := range report.Findings {
			r.svc.logger().Warn("content scan finding", "skill", sk.Name, "rule", f.RuleID, "severity", f.Severity.String(), "description", f.Description)
		}
		if item.Status == StatusInstalled {
			err = r.store.AddSkill(sk, store.AddOptions{Source: storeSource(ref), SourceURL: canonical})
		} else {
			err = r.store.UpdateSkill(sk.Name, sk)
		}
		if err != nil {
			return fail(err)
		}
		if item.Status == StatusUpdated {
			r.releaseDropped(sk)
		}
	}
	item.MissingTools = r.svc.missingTools(sk.Dependencies.Tools)
	for _, tool := range item.MissingTools {
		r.svc.logger().Warn("tool dependency not found on PATH", "skill", sk.Name, "tool", tool)
	}
	r.svc.logger().Info("skill "+string(item.Status), "skill", sk.Name, "version", item.Version, "source", canonical)
	return item, sk, nil
}

// record updates the dependency graph for sk and returns its installed_by.
// Direct requests always become user-owned; a dependency keeps whatever
// provenance it already had and gains requester as a dependent.
func (r *run) record(sk *skill.Skill, ref source.Ref, requester string) string {
	e, ok := r.graph.Get(sk.Name)
	if !ok {
		installedBy := requester
		var dependedBy []string
		if requester != state.InstalledByUser {
			dependedBy = []string{requester}
		}
		r.graph.Put(sk.Name, state.Entry{Version: sk.Version, Source: ref.String(), InstalledBy: installedBy, DependedBy: dependedBy})
	} else {
		e.Version = sk.Version
		if e.Source == "" || requester == state.InstalledByUser {
			e.Source = ref.String()
		}
		if requester == state.InstalledByUser {
			e.InstalledBy = state.InstalledByUser
		} else {
			r.graph.AddDependent(sk.Name, requester)
		}
	}
	e, _ = r.graph.Get(sk.Name)
	r.svc.audit(audit.Event{
		Operation: audit.OpInstall,
		Skill:     sk.Name,
		Version:   sk.Version,
		Source:    ref.String(),
		Status:    audit.StatusOK,
		Fields:    map[string]string{"installed_by": e.InstalledBy},
	})
	return e.InstalledBy
}

// releaseDropped removes sk from the dependents of every skill its
// previous version required and the new one no longer declares.
func (r *run) releaseDropped(sk *skill.Skill) {
	declared := map[string]bool{}
	for _, dep := range sk.Dependencies.Skills {
		if skill.ValidateName(dep) == nil {
			declared[dep] = true
		} else if ref, err := source.Parse(dep); err == nil {
			declared[ref.SkillName()] = true
		}
	}
	for _, dep := range r.graph.DependenciesOf(sk.Name) {
		if declared[dep] {
			continue
		}
		if r.graph.RemoveDependent(dep, sk.Name) {
			r.svc.logger().Info("dependency no longer required", "skill", sk.Name, "dependency", dep)
		}
	}
}

func (r *run) report(item ItemResult) {
	r.result.Items = append(r.result.Items, item)
}

// dependencyRef resolves a declared dependency. Bare names resolve as
// siblings of the parent source; anything else must be a full source.
func dependencyRef(parent source.Ref, dep string) (source.Ref, bool, error) {
	if skill.ValidateName(dep) == nil {
		return parent.Sibling(dep), true, nil
	}
	ref, err := source.Parse(dep)
	return ref, false, err
}

func storeSource(ref source.Ref) store.Source {
	switch ref.Scheme {
	case source.SchemeLocal, source.SchemePath:
		return store.SourceLocal
	}
	return store.SourceRegistry
}

func (s *Service) missingTools(tools []string) []string {
	lookPath := s.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	var out []string
	for _, tool := range tools {
		if _, err := lookPath(tool); err != nil {
			out = append(out, tool)
		}
	}
	return out
}

func (s *Service) audit(ev audit.Event) {
	if err := s.Audit.Log(ev); err != nil {
		s.logger().Warn("audit log write failed", "error", err)
	}
}
