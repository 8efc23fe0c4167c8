package installer

import (
	"context"
	"log/slog"

	"skillkit/internal/audit"
	"skillkit/internal/skill"
	"skillkit/internal/skillerr"
	"skillkit/internal/state"
	"skillkit/internal/store"
)

// CanUninstall reports whether name can be removed without force. It
// never writes.
func (s *Service) CanUninstall(projectPath, name string) (UninstallCheck, error) {
	if err := skill.ValidateName(name); err != nil {
		return UninstallCheck{}, skillerr.Wrap(err, skillerr.KindSourceInvalid, "INS_INVALID_NAME", name)
	}
	g := s.loadState(projectPath)
	st := store.NewLocal(projectPath, append([]store.Option{store.WithLogger(s.logger())}, s.StoreOptions...)...)
	_, tracked := g.Get(name)
	deps := g.Dependents(name)
	return UninstallCheck{
		Name:         name,
		Installed:    tracked || st.HasSkill(name),
		CanUninstall: len(deps) == 0,
		Dependents:   deps,
	}, nil
}

// Uninstall removes name from the store and the dependency graph. It is
// blocked with a Conflict error while other skills depend on name, unless
// opts.Force is set. Removing a skill always releases it from the
// dependents of what it depended on; those dependencies are only removed
// themselves when opts.RemoveOrphans is set. Uninstalling an absent skill
// succeeds with Removed false.
func (s *Service) Uninstall(ctx context.Context, projectPath, name string, opts UninstallOptions) (UninstallResult, error) {
	res := UninstallResult{Name: name}
	if err := skill.ValidateName(name); err != nil {
		return res, skillerr.Wrap(err, skillerr.KindSourceInvalid, "INS_INVALID_NAME", name)
	}
	st, err := s.openStore(projectPath)
	if err != nil {
		return res, err
	}
	g := s.loadState(projectPath)

	if deps := g.Dependents(name); len(deps) > 0 {
		res.Dependents = deps
		if !opts.Force {
			err := skillerr.New(skillerr.KindConflict, "INS_HAS_DEPENDENTS", "%s is required by %v; use force to remove it anyway", name, deps)
			s.audit(audit.Event{Operation: audit.OpUninstall, Skill: name, Status: audit.StatusBlocked, Code: skillerr.CodeOf(err), Message: err.Error()})
			return res, err
		}
		s.logger().Warn("removing skill that others depend on", "skill", name, "dependents", deps)
	}

	removed, released, err := s.remove(st, g, name)
	if err != nil {
		return res, err
	}
	res.Removed = removed

	if opts.RemoveOrphans {
		res.Orphans, err = s.cascade(ctx, st, g, released)
		if err != nil {
			_ = state.Save(projectPath, g)
			return res, err
		}
	}
	if err := state.Save(projectPath, g); err != nil {
		return res, skillerr.Wrap(err, skillerr.KindCorrupt, "INS_STATE_SAVE", "cannot persist dependency state")
	}
	return res, nil
}

// remove deletes one skill and returns the skills it was depending on.
func (s *Service) remove(st *store.Store, g *state.State, name string) (bool, []string, error) {
	released := g.DependenciesOf(name)
	for _, dep := range released {
		g.RemoveDependent(dep, name)
	}
	removedContent, err := st.RemoveSkill(name)
	if err != nil {
		return false, released, err
	}
	removedState := g.Delete(name)
	removed := removedContent || removedState
	if removed {
		s.audit(audit.Event{Operation: audit.OpUninstall, Skill: name, Status: audit.StatusOK})
		s.logger().Info("skill removed", "skill", name)
	} else {
		s.logger().Debug("skill already absent", "skill", name)
	}
	return removed, released, nil
}

// cascade removes transitively-installed skills left without dependents,
// following the released dependencies breadth first.
func (s *Service) cascade(ctx context.Context, st *store.Store, g *state.State, candidates []string) ([]string, error) {
	var orphans []string
	queue := append([]string(nil), candidates...)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return orphans, err
		}
		name := queue[0]
		queue = queue[1:]
		if !g.IsOrphan(name) {
			continue
		}
		removed, released, err := s.remove(st, g, name)
		if err != nil {
			return orphans, err
		}
		if removed {
			orphans = append(orphans, name)
		}
		queue = append(queue, released...)
	}
	if len(orphans) > 0 {
		s.logger().Info("orphaned dependencies removed", slog.Any("skills", orphans))
	}
	return orphans, nil
}
