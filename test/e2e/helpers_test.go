package e2e

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func repoRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		t.Fatalf("resolve repo root failed: %v", err)
	}
	return root
}

func buildCLI(t *testing.T, home string) (string, []string) {
	t.Helper()
	if testing.Short() {
		t.Skip("e2e builds the CLI binary")
	}
	root := repoRoot(t)
	env := append(os.Environ(),
		"HOME="+home,
		"GITHUB_TOKEN=",
		"SKILLKIT_SKILLSMP_API_KEY=",
		"NO_COLOR=1",
	)
	bin := filepath.Join(home, "bin", "skillkit")
	cmd := exec.Command("go", "build", "-o", bin, "./cmd/skillkit")
	cmd.Dir = root
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build cli failed: %v\n%s", err, string(out))
	}
	return bin, env
}

func runCLI(t *testing.T, bin, dir string, env []string, args ...string) string {
	t.Helper()
	out, code := runCLIStatus(t, bin, dir, env, args...)
	if code != 0 {
		t.Fatalf("command failed with exit code %d\nargs=%v\noutput=%s", code, args, out)
	}
	return out
}

func runCLIExpectFail(t *testing.T, bin, dir string, env []string, args ...string) (string, int) {
	t.Helper()
	out, code := runCLIStatus(t, bin, dir, env, args...)
	if code == 0 {
		t.Fatalf("expected command to fail\nargs=%v\noutput=%s", args, out)
	}
	return out, code
}

func runCLIStatus(t *testing.T, bin, dir string, env []string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(out), exitErr.ExitCode()
	}
	if err != nil {
		t.Fatalf("run %v: %v", args, err)
	}
	return string(out), 0
}

func writeSkill(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(body), 0o644); err != nil {
		t.Fatalf("write skill failed: %v", err)
	}
}

func assertContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, out)
	}
}
