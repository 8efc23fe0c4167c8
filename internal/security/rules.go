package security

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"skillkit/internal/skill"
)

func builtinRules() []Rule {
	return []Rule{
		patternRule{id: "SCAN_DANGEROUS_PATTERN", patterns: dangerousPatterns},
		patternRule{id: "SCAN_PROMPT_INJECTION", patterns: promptInjectionPatterns},
		sizeRule{},
		entropyRule{},
		networkRule{},
	}
}

type patternDef struct {
	re          *regexp.Regexp
	severity    Severity
	description string
}

var dangerousPatterns = []patternDef{
	{regexp.MustCompile(`rm\s+-rf\s+/(?:\s|$)`), SeverityCritical, "Destructive file deletion (rm -rf /)"},
	{regexp.MustCompile(`rm\s+-rf\s+(?:~/|\$HOME)`), SeverityCritical, "Destructive home directory deletion"},
	{regexp.MustCompile(`(?:curl|wget)\s+[^|]*\|\s*(?:ba|z)?sh`), SeverityCritical, "Remote code execution pipe"},
	{regexp.MustCompile(`base64\s+(?:-d|--decode)[^|]*\|\s*(?:ba)?sh`), SeverityCritical, "Obfuscated code execution"},
	{regexp.MustCompile(`/etc/shadow`), SeverityCritical, "Access to /etc/shadow"},
	{regexp.MustCompile(`mkfifo\b.*\bnc\b|\bnc\b.*-e\s+/bin/`), SeverityCritical, "Reverse shell pattern"},
	{regexp.MustCompile(`(?:~|\$HOME)/\.ssh/id_(?:rsa|ed25519|ecdsa)`), SeverityCritical, "SSH private key access"},
	{regexp.MustCompile(`stratum\+tcp://|\bxmrig\b|\bminerd\b`), SeverityCritical, "Crypto mining indicator"},
	{regexp.MustCompile(`chmod\s+(?:-R\s+)?777\s+/`), SeverityCritical, "Dangerous permission change on system path"},

	{regexp.MustCompile(`/etc/passwd`), SeverityHigh, "Access to /etc/passwd"},
	{regexp.MustCompile(`curl\s+.*(?:-d|--data(?:-binary)?)\s+@`), SeverityHigh, "File upload via curl"},
	{regexp.MustCompile(`wget\s+--post-(?:data|file)`), SeverityHigh, "Data upload via wget"},
	{regexp.MustCompile(`\bprintenv\b.*\|\s*(?:curl|nc|wget)`), SeverityHigh, "Environment exfiltration"},
	{regexp.MustCompile(`git\s+config\s+--global`), SeverityHigh, "Global git config modification"},
	{regexp.MustCompile(`(?:~|\$HOME)/\.aws/credentials`), SeverityHigh, "Cloud credential file access"},

	{regexp.MustCompile(`\bsudo\b`), SeverityMedium, "Sudo usage"},
	{regexp.MustCompile(`\beval\b\s*[\("$]`), SeverityMedium, "Dynamic code evaluation"},
	{regexp.MustCompile(`(?:pip|npm)\s+install\s+(?:-g\s+)?https?://`), SeverityMedium, "Package install from a raw URL"},
}

var promptInjectionPatterns = []patternDef{
	{regexp.MustCompile(`(?i)(?:ignore|disregard|forget)\s+(?:all\s+)?(?:previous|prior|above)\s+(?:instructions|context)`), SeverityHigh, "Instruction override attempt"},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(?:a\s+)?(?:new|different)`), SeverityHigh, "Identity override attempt"},
	{regexp.MustCompile(`(?i)(?:do\s+not|don't|never)\s+(?:tell|inform)\s+the\s+user`), SeverityHigh, "Concealment instruction"},
	{regexp.MustCompile(`(?i)(?:do\s+not|don't|never)\s+reveal\s+(?:this|these)`), SeverityHigh, "Concealment instruction"},
	{regexp.MustCompile(`[\x{200B}\x{200C}\x{200D}\x{2060}]`), SeverityHigh, "Zero-width character (possible hidden instructions)"},
	{regexp.MustCompile(`[\x{202A}-\x{202E}\x{2066}-\x{2069}]`), SeverityHigh, "Bidirectional override character"},

	{regexp.MustCompile(`(?i)update\s+this\s+skill\s+to`), SeverityMedium, "Self-modifying instruction"},
	{regexp.MustCompile(`(?i)modify\s+(?:your|the)\s+(?:system\s+prompt|skill|config)`), SeverityMedium, "Configuration modification instruction"},
}

// scannedFields returns the parts of a skill that reach an agent: its
// text fields and every bundled text file, named by path.
func scannedFields(sk *skill.Skill) []struct{ name, text string } {
	fields := []struct{ name, text string }{
		{"description", sk.Description},
		{"instructions", sk.Instructions},
	}
	for _, rel := range sk.FilePaths() {
		data := sk.Files[rel]
		if bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data) {
			continue
		}
		fields = append(fields, struct{ name, text string }{rel, string(data)})
	}
	return fields
}

type patternRule struct {
	id       string
	patterns []patternDef
}

func (r patternRule) ID() string { return r.id }

// Scan reports at most one finding per pattern and field.
func (r patternRule) Scan(sk *skill.Skill) []Finding {
	var findings []Finding
	for _, field := range scannedFields(sk) {
		lines := strings.Split(field.text, "\n")
		for _, p := range r.patterns {
			for i, line := range lines {
				if !p.re.MatchString(line) {
					continue
				}
				findings = append(findings, Finding{
					RuleID:      r.id,
					Severity:    p.severity,
					Field:       field.name,
					Line:        i + 1,
					Pattern:     p.re.String(),
					Description: p.description,
				})
				break
			}
		}
	}
	return findings
}

const (
	maxInstructionsSize = 100 * 1024
	maxDescriptionSize  = 2 * 1024
)

type sizeRule struct{}

func (sizeRule) ID() string { return "SCAN_SIZE_ANOMALY" }

func (sizeRule) Scan(sk *skill.Skill) []Finding {
	var findings []Finding
	if n := len(sk.Instructions); n > maxInstructionsSize {
		findings = append(findings, Finding{
			RuleID:      "SCAN_SIZE_ANOMALY",
			Severity:    SeverityMedium,
			Field:       "instructions",
			Description: fmt.Sprintf("instructions are unusually large (%d bytes, limit %d)", n, maxInstructionsSize),
		})
	}
	if n := len(sk.Description); n > maxDescriptionSize {
		findings = append(findings, Finding{
			RuleID:      "SCAN_SIZE_ANOMALY",
			Severity:    SeverityLow,
			Field:       "description",
			Description: fmt.Sprintf("description is unusually long (%d bytes)", n),
		})
	}
	return findings
}

var (
	base64BlockPattern = regexp.MustCompile(`[A-Za-z0-9+/=]{300,}`)
	hexBlockPattern    = regexp.MustCompile(`(?:0x)?[0-9a-fA-F]{200,}`)
)

type entropyRule struct{}

func (entropyRule) ID() string { return "SCAN_ENTROPY" }

func (entropyRule) Scan(sk *skill.Skill) []Finding {
	var findings []Finding
	highEntropy := 0
	for i, line := range strings.Split(sk.Instructions, "\n") {
		switch {
		case base64BlockPattern.MatchString(line):
			findings = append(findings, Finding{
				RuleID:      "SCAN_ENTROPY",
				Severity:    SeverityHigh,
				Field:       "instructions",
				Line:        i + 1,
				Pattern:     "base64 block > 300 chars",
				Description: "Large base64-encoded block (possible obfuscated payload)",
			})
		case hexBlockPattern.MatchString(line):
			findings = append(findings, Finding{
				RuleID:      "SCAN_ENTROPY",
				Severity:    SeverityHigh,
				Field:       "instructions",
				Line:        i + 1,
				Pattern:     "hex block > 200 chars",
				Description: "Large hex-encoded block (possible obfuscated payload)",
			})
		case len(line) > 100 && shannonEntropy(line) > 5.5:
			highEntropy++
		}
	}
	if highEntropy > 3 {
		findings = append(findings, Finding{
			RuleID:      "SCAN_ENTROPY",
			Severity:    SeverityMedium,
			Field:       "instructions",
			Description: fmt.Sprintf("%d high-entropy lines (possible packed payload)", highEntropy),
		})
	}
	return findings
}

func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := map[rune]float64{}
	total := 0.0
	for _, c := range s {
		freq[c]++
		total++
	}
	entropy := 0.0
	for _, count := range freq {
		p := count / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

var (
	ipLiteralPattern  = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`)
	localIPs          = map[string]bool{"127.0.0.1": true, "0.0.0.0": true}
	nonStdPortPattern = regexp.MustCompile(`https?://[^/\s:]+:[0-9]{4,5}\b`)
	shortenerPattern  = regexp.MustCompile(`(?i)\b(?:bit\.ly|tinyurl\.com|t\.co|goo\.gl|is\.gd|ow\.ly|rb\.gy|cutt\.ly)/`)
)

type networkRule struct{}

func (networkRule) ID() string { return "SCAN_NETWORK_INDICATOR" }

func (networkRule) Scan(sk *skill.Skill) []Finding {
	var findings []Finding
	text := sk.Instructions
	for _, ip := range ipLiteralPattern.FindAllString(text, -1) {
		if localIPs[ip] || strings.HasPrefix(ip, "192.168.") || strings.HasPrefix(ip, "10.") {
			continue
		}
		findings = append(findings, Finding{
			RuleID:      "SCAN_NETWORK_INDICATOR",
			Severity:    SeverityMedium,
			Field:       "instructions",
			Pattern:     ip,
			Description: "Hardcoded public IP address",
		})
		break
	}
	if m := nonStdPortPattern.FindString(text); m != "" && !strings.Contains(m, "localhost") && !strings.Contains(m, "127.0.0.1") {
		findings = append(findings, Finding{
			RuleID:      "SCAN_NETWORK_INDICATOR",
			Severity:    SeverityLow,
			Field:       "instructions",
			Pattern:     m,
			Description: "URL with non-standard port",
		})
	}
	if shortenerPattern.MatchString(text) {
		findings = append(findings, Finding{
			RuleID:      "SCAN_NETWORK_INDICATOR",
			Severity:    SeverityMedium,
			Field:       "instructions",
			Pattern:     "URL shortener",
			Description: "URL shortener hides the real destination",
		})
	}
	return findings
}
