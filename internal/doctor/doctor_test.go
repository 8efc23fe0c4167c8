package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"skillkit/internal/audit"
	"skillkit/internal/skill"
	"skillkit/internal/state"
	"skillkit/internal/store"
)

func newService(t *testing.T) *Service {
	t.Helper()
	project := t.TempDir()
	st := store.NewLocal(project)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	return &Service{
		Store:       st,
		ProjectRoot: project,
		TargetRoot:  project,
		Audit:       audit.New(store.AuditPath(st.Root())),
	}
}

func addSkill(t *testing.T, s *Service, name string) {
	t.Helper()
	sk := &skill.Skill{Name: name, Version: "1.0.0", Description: name, Instructions: "body"}
	if err := s.Store.AddSkill(sk, store.AddOptions{}); err != nil {
		t.Fatalf("add %s failed: %v", name, err)
	}
}

func codes(r Report) map[string]Finding {
	out := map[string]Finding{}
	for _, f := range r.Findings {
		out[f.Code+"/"+f.Skill] = f
	}
	return out
}

func TestDoctorHealthyScope(t *testing.T) {
	s := newService(t)
	addSkill(t, s, "pdf")
	st := state.New()
	st.Put("pdf", state.Entry{Version: "1.0.0"})
	if err := state.Save(s.ProjectRoot, st); err != nil {
		t.Fatalf("save state failed: %v", err)
	}

	report, err := s.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !report.Healthy || len(report.Findings) != 0 {
		t.Fatalf("expected a clean report, got %+v", report)
	}
}

func TestDoctorReportsCorruptFiles(t *testing.T) {
	s := newService(t)
	if err := os.WriteFile(store.RegistryPath(s.Store.Root()), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(state.Path(s.ProjectRoot), []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := s.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.Healthy {
		t.Fatalf("expected unhealthy report")
	}
	got := codes(report)
	for _, want := range []string{"DOC_REGISTRY_INVALID/", "DOC_STATE_INVALID/"} {
		if _, ok := got[want]; !ok {
			t.Fatalf("expected %s, got %+v", want, report.Findings)
		}
	}
}

func TestDoctorFixRepairsBookkeeping(t *testing.T) {
	s := newService(t)
	addSkill(t, s, "pdf")
	addSkill(t, s, "ghost")
	addSkill(t, s, "lint")
	if err := os.RemoveAll(store.SkillDir(s.Store.Root(), "ghost")); err != nil {
		t.Fatal(err)
	}
	st := state.New()
	st.Put("pdf", state.Entry{Version: "1.0.0"})
	st.Put("ghost", state.Entry{Version: "1.0.0", InstalledBy: "pdf", DependedBy: []string{"pdf"}})
	st.Put("shared", state.Entry{Version: "1.0.0", InstalledBy: "pdf", DependedBy: []string{"ghost", "removed"}})
	if err := state.Save(s.ProjectRoot, st); err != nil {
		t.Fatal(err)
	}

	report, err := s.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	got := codes(report)
	for _, want := range []string{
		"DOC_REGISTRY_ORPHAN/ghost",
		"DOC_STATE_STALE/ghost",
		"DOC_STATE_STALE/shared",
		"DOC_STATE_DANGLING/shared",
		"DOC_STATE_UNTRACKED/lint",
	} {
		if _, ok := got[want]; !ok {
			t.Fatalf("expected %s, got %+v", want, report.Findings)
		}
	}
	if !report.Healthy {
		t.Fatalf("warnings alone must not make the scope unhealthy")
	}

	report, err = s.Run(context.Background(), Options{Fix: true})
	if err != nil {
		t.Fatalf("fix failed: %v", err)
	}
	for _, f := range report.Findings {
		if f.Level != LevelInfo && !f.Fixed {
			t.Fatalf("expected %s to be fixed", f.Code)
		}
	}
	if _, ok := s.Store.LoadRegistry().Skills["ghost"]; ok {
		t.Fatalf("orphan registry row survived the fix")
	}
	fixedState, err := state.Load(s.ProjectRoot)
	if err != nil {
		t.Fatal(err)
	}
	if got := fixedState.Names(); len(got) != 2 || got[0] != "lint" || got[1] != "pdf" {
		t.Fatalf("unexpected state after fix: %v", got)
	}

	events, _, err := audit.Read(store.AuditPath(s.Store.Root()))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) == 0 || events[len(events)-1].Operation != audit.OpRepair {
		t.Fatalf("expected a repair audit event, got %+v", events)
	}

	report, err = s.Run(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Findings) != 0 {
		t.Fatalf("expected clean report after fix, got %+v", report.Findings)
	}
}

func TestDoctorFixSetsAsideCorruptState(t *testing.T) {
	s := newService(t)
	addSkill(t, s, "pdf")
	path := state.Path(s.ProjectRoot)
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := s.Run(context.Background(), Options{Fix: true})
	if err != nil {
		t.Fatal(err)
	}
	if !report.Healthy {
		t.Fatalf("expected fixed report to be healthy: %+v", report.Findings)
	}
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Fatalf("corrupt state should be kept aside: %v", err)
	}
	st, err := state.Load(s.ProjectRoot)
	if err != nil {
		t.Fatal(err)
	}
	if e, ok := st.Get("pdf"); !ok || e.InstalledBy != state.InstalledByUser {
		t.Fatalf("expected pdf re-recorded as a direct install, got %+v", st.Skills)
	}
}

func TestDoctorReportsDetectedTargetNotConfigured(t *testing.T) {
	s := newService(t)
	if err := os.MkdirAll(filepath.Join(s.TargetRoot, ".cursor"), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	cfg := s.Store.LoadConfig()
	cfg.DefaultTargets = []string{"claude"}
	if err := s.Store.SaveConfig(cfg); err != nil {
		t.Fatal(err)
	}

	report, err := s.Run(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.DetectedTargets) != 1 || report.DetectedTargets[0] != "cursor" {
		t.Fatalf("unexpected detected targets: %v", report.DetectedTargets)
	}
	if _, ok := codes(report)["DOC_TARGET_NOT_SYNCED/"]; !ok {
		t.Fatalf("expected DOC_TARGET_NOT_SYNCED warning, got %+v", report.Findings)
	}
}
