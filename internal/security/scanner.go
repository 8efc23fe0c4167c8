// Package security scans fetched skills for content that should not be
// handed to an agent: destructive shell commands, prompt injection,
// obfuscated payloads and suspicious network indicators.
package security

import (
	"fmt"
	"sort"
	"strings"

	"skillkit/internal/config"
	"skillkit/internal/skill"
	"skillkit/internal/skillerr"
)

// Severity levels for scan findings, ordered by impact.
type Severity int

const (
	SeverityInfo     Severity = iota // Informational, never blocks
	SeverityLow                      // Minor concern
	SeverityMedium                   // Reported, blocks only when configured
	SeverityHigh                     // Blocks install unless forced
	SeverityCritical                 // Always blocks, even when forced
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSeverity converts a severity string to its typed value. Unknown
// values are treated as high.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	case "info":
		return SeverityInfo
	default:
		return SeverityHigh
	}
}

// Finding is a single issue detected by a rule.
type Finding struct {
	RuleID      string   `json:"ruleId"`
	Severity    Severity `json:"severity"`
	Field       string   `json:"field"`
	Line        int      `json:"line,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	Description string   `json:"description"`
}

// Report is the outcome of scanning one skill.
type Report struct {
	Skill    string    `json:"skill"`
	Findings []Finding `json:"findings"`
}

// MaxSeverity returns the highest severity across all findings.
func (r Report) MaxSeverity() Severity {
	max := SeverityInfo
	for _, f := range r.Findings {
		if f.Severity > max {
			max = f.Severity
		}
	}
	return max
}

// Rule is one content check.
type Rule interface {
	ID() string
	Scan(sk *skill.Skill) []Finding
}

// Scanner runs the built-in rules against fetched skills.
type Scanner struct {
	rules         []Rule
	disabledRules map[string]bool
	blockSeverity Severity
}

// NewScanner returns a scanner for cfg, or nil when scanning is disabled.
// A nil *Scanner accepts everything.
func NewScanner(cfg config.ScanConfig) *Scanner {
	if !cfg.Enabled {
		return nil
	}
	disabled := make(map[string]bool, len(cfg.DisabledRules))
	for _, id := range cfg.DisabledRules {
		disabled[strings.ToUpper(strings.TrimSpace(id))] = true
	}
	return &Scanner{
		rules:         builtinRules(),
		disabledRules: disabled,
		blockSeverity: ParseSeverity(cfg.BlockSeverity),
	}
}

// Scan runs every enabled rule against sk. Findings are ordered by
// descending severity.
func (s *Scanner) Scan(sk *skill.Skill) Report {
	report := Report{Skill: sk.Name, Findings: []Finding{}}
	if s == nil {
		return report
	}
	for _, rule := range s.rules {
		if s.disabledRules[rule.ID()] {
			continue
		}
		report.Findings = append(report.Findings, rule.Scan(sk)...)
	}
	sort.SliceStable(report.Findings, func(i, j int) bool {
		return report.Findings[i].Severity > report.Findings[j].Severity
	})
	return report
}

// Enforce returns an error when report must stop the install. force lets
// findings below critical through.
func (s *Scanner) Enforce(report Report, force bool) error {
	if s == nil {
		return nil
	}
	max := report.MaxSeverity()
	if max == SeverityCritical {
		return skillerr.New(skillerr.KindSourceInvalid, "SEC_SCAN_CRITICAL", "%s: %s", report.Skill, formatFindings(report, SeverityCritical))
	}
	if max >= s.blockSeverity && !force {
		return skillerr.New(skillerr.KindSourceInvalid, "SEC_SCAN_BLOCKED", "%s: %s; use --force to proceed", report.Skill, formatFindings(report, s.blockSeverity))
	}
	return nil
}

// Check scans sk and enforces the policy in one step. The report is
// returned even when the install is blocked.
func (s *Scanner) Check(sk *skill.Skill, force bool) (Report, error) {
	report := s.Scan(sk)
	return report, s.Enforce(report, force)
}

func formatFindings(report Report, minSeverity Severity) string {
	var parts []string
	for _, f := range report.Findings {
		if f.Severity < minSeverity {
			continue
		}
		desc := f.Description
		if f.Line > 0 {
			desc = fmt.Sprintf("%s line %d: %s", f.Field, f.Line, desc)
		}
		parts = append(parts, fmt.Sprintf("[%s] %s (%s)", strings.ToUpper(f.Severity.String()), f.RuleID, desc))
	}
	switch len(parts) {
	case 0:
		return "no findings"
	case 1:
		return parts[0]
	default:
		return fmt.Sprintf("%d findings: %s", len(parts), strings.Join(parts, "; "))
	}
}
