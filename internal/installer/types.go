package installer

import "skillkit/internal/security"

// Options controls Install.
type Options struct {
	// Force reinstalls the requested skill even when the same or a newer
	// version is already present. Dependencies are unaffected.
	Force bool
	// NoDeps skips dependency resolution.
	NoDeps bool
}

// Status is the outcome of one skill in an install run.
type Status string

const (
	StatusInstalled Status = "installed"
	StatusUpdated   Status = "updated"
	// StatusSatisfied means the skill was already present at the same or
	// a newer version.
	StatusSatisfied Status = "satisfied"
	StatusFailed    Status = "failed"
)

// ItemResult reports one skill touched by an install run.
type ItemResult struct {
	Name         string   `json:"name,omitempty"`
	Version      string   `json:"version,omitempty"`
	Source       string   `json:"source"`
	Status       Status   `json:"status"`
	InstalledBy  string   `json:"installedBy,omitempty"`
	MissingTools []string `json:"missingTools,omitempty"`
	// Findings are content scan results for newly written content.
	Findings []security.Finding `json:"findings,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// Result is the per-skill report of an install run, in the order skills
// were visited.
type Result struct {
	Items []ItemResult `json:"items"`
}

// Failed returns the items that did not install.
func (r Result) Failed() []ItemResult {
	var out []ItemResult
	for _, it := range r.Items {
		if it.Status == StatusFailed {
			out = append(out, it)
		}
	}
	return out
}

// OK reports whether every item succeeded.
func (r Result) OK() bool {
	return len(r.Failed()) == 0
}

// UninstallOptions controls Uninstall.
type UninstallOptions struct {
	// Force removes the skill even when other skills depend on it.
	Force bool
	// RemoveOrphans also removes dependencies left without dependents.
	RemoveOrphans bool
}

// UninstallCheck is the read-only verdict of CanUninstall.
type UninstallCheck struct {
	Name         string   `json:"name"`
	Installed    bool     `json:"installed"`
	CanUninstall bool     `json:"canUninstall"`
	Dependents   []string `json:"dependents"`
}

// UninstallResult reports what Uninstall removed.
type UninstallResult struct {
	Name    string `json:"name"`
	Removed bool   `json:"removed"`
	// Dependents lists skills that still depend on Name; non-empty only
	// when the removal was blocked or forced.
	Dependents []string `json:"dependents,omitempty"`
	// Orphans lists dependencies removed by the orphan cascade.
	Orphans []string `json:"orphans,omitempty"`
}
