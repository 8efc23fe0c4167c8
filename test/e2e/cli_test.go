package e2e

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const (
	reportSkill = `---
name: report
version: 1.0.0
description: Write weekly reports
dependencies:
  skills: [charts]
---

Collect the numbers, then draw them with the charts skill.
`
	chartsSkill = `---
name: charts
version: 2.1.0
description: Render charts
---

Render charts as SVG.
`
)

type listedSkill struct {
	Name        string   `json:"name"`
	InstalledBy string   `json:"installedBy"`
	DependedBy  []string `json:"dependedBy"`
}

func TestCLIEndToEndProjectFlow(t *testing.T) {
	work := t.TempDir()
	home := filepath.Join(work, "home")
	project := filepath.Join(work, "project")
	writeSkill(t, filepath.Join(work, "skills", "report"), reportSkill)
	writeSkill(t, filepath.Join(work, "skills", "charts"), chartsSkill)
	for _, dir := range []string{home, filepath.Join(project, ".claude")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
	}
	bin, env := buildCLI(t, home)

	out := runCLI(t, bin, project, env, "init")
	assertContains(t, out, "targets: claude")

	out = runCLI(t, bin, project, env, "install", "../skills/report")
	assertContains(t, out, "report@1.0.0")
	assertContains(t, out, "charts@2.1.0")

	var rows []listedSkill
	if err := json.Unmarshal([]byte(runCLI(t, bin, project, env, "--json", "list")), &rows); err != nil {
		t.Fatalf("list --json: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "charts" || rows[0].InstalledBy != "report" {
		t.Fatalf("unexpected list: %+v", rows)
	}

	out, code := runCLIExpectFail(t, bin, project, env, "uninstall", "charts")
	if code != 4 {
		t.Fatalf("expected conflict exit code 4, got %d\n%s", code, out)
	}
	assertContains(t, out, "INS_HAS_DEPENDENTS")

	runCLI(t, bin, project, env, "sync")
	if _, err := os.Stat(filepath.Join(project, ".claude", "skills", "report", "SKILL.md")); err != nil {
		t.Fatalf("expected projected skill: %v", err)
	}

	out = runCLI(t, bin, project, env, "uninstall", "report", "--remove-orphans")
	assertContains(t, out, "removed orphaned dependencies: charts")
	if _, err := os.Stat(filepath.Join(project, ".claude", "skills", "report")); !os.IsNotExist(err) {
		t.Fatalf("expected projection to be removed, got %v", err)
	}

	out = runCLI(t, bin, project, env, "doctor")
	assertContains(t, out, "healthy")
}

func TestCLIGlobalScope(t *testing.T) {
	work := t.TempDir()
	home := filepath.Join(work, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatal(err)
	}
	chartsDir := filepath.Join(work, "skills", "charts")
	writeSkill(t, chartsDir, chartsSkill)
	bin, env := buildCLI(t, home)

	runCLI(t, bin, work, env, "--scope", "global", "install", chartsDir)
	if _, err := os.Stat(filepath.Join(home, ".skillkit", "skills", "charts", "SKILL.md")); err != nil {
		t.Fatalf("expected global install under home: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".skillkit", "state.json")); err != nil {
		t.Fatalf("expected global state: %v", err)
	}
}

func TestCLIRejectsInvalidSource(t *testing.T) {
	home := t.TempDir()
	bin, env := buildCLI(t, home)
	out, code := runCLIExpectFail(t, bin, home, env, "install", "not a source")
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d\n%s", code, out)
	}
	assertContains(t, out, "SRC_INVALID")
}
