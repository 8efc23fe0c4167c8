package installer

import (
	"context"

	"skillkit/internal/config"
	"skillkit/internal/skillerr"
	"skillkit/internal/source"
	"skillkit/internal/state"
)

// InstallFromConfig installs every skill declared in the project manifest
// that is not yet in the store. It never removes anything; declared
// skills already present are reported as satisfied without fetching.
func (s *Service) InstallFromConfig(ctx context.Context, projectPath string) (Result, error) {
	m, err := config.LoadProjectManifest(projectPath)
	if err != nil {
		return Result{}, err
	}
	st, err := s.openStore(projectPath)
	if err != nil {
		return Result{}, err
	}
	r := s.newRun(st, s.loadState(projectPath), Options{})
	for _, entry := range m.Skills {
		if err := ctx.Err(); err != nil {
			r.report(ItemResult{Source: entry.Source, Status: StatusFailed, Error: err.Error()})
			continue
		}
		ref, err := source.Parse(entry.Source)
		if err != nil {
			r.report(ItemResult{Source: entry.Source, Status: StatusFailed, Error: err.Error()})
			continue
		}
		name := ref.SkillName()
		if sk, ok := st.GetSkill(name); ok {
			if _, tracked := r.graph.Get(name); !tracked {
				r.graph.Put(name, state.Entry{Version: sk.Version, Source: ref.String(), InstalledBy: state.InstalledByUser})
			}
			if !r.visited[name] {
				r.visited[name] = true
				e, _ := r.graph.Get(name)
				r.report(ItemResult{Name: name, Version: sk.Version, Source: e.Source, Status: StatusSatisfied, InstalledBy: e.InstalledBy})
			}
			continue
		}
		_ = r.installRequested(ctx, ref)
	}
	if err := state.Save(projectPath, r.graph); err != nil {
		return r.result, skillerr.Wrap(err, skillerr.KindCorrupt, "INS_STATE_SAVE", "cannot persist dependency state")
	}
	return r.result, nil
}
