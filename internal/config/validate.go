package config

import (
	"fmt"
	"strings"
)

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

var allowedSeverities = map[string]struct{}{
	"low":      {},
	"medium":   {},
	"high":     {},
	"critical": {},
}

var allowedLogFormats = map[string]struct{}{
	"text": {},
	"json": {},
}

func Validate(cfg Config) error {
	if cfg.Version != SchemaVersion {
		return fmt.Errorf("CFG_VERSION: unsupported version %d", cfg.Version)
	}
	if _, ok := allowedLogLevels[strings.ToLower(cfg.Logging.Level)]; !ok {
		return fmt.Errorf("CFG_LOGGING: invalid level %q", cfg.Logging.Level)
	}
	if _, ok := allowedLogFormats[strings.ToLower(cfg.Logging.Format)]; !ok {
		return fmt.Errorf("CFG_LOGGING: invalid format %q", cfg.Logging.Format)
	}
	if _, ok := allowedSeverities[strings.ToLower(cfg.Scan.BlockSeverity)]; !ok {
		return fmt.Errorf("CFG_SCAN: invalid block severity %q", cfg.Scan.BlockSeverity)
	}
	seen := map[string]struct{}{}
	for _, t := range cfg.DefaultTargets {
		if t == "" {
			return fmt.Errorf("CFG_TARGETS: empty target name")
		}
		if _, ok := seen[t]; ok {
			return fmt.Errorf("CFG_TARGETS: duplicate target %q", t)
		}
		seen[t] = struct{}{}
	}
	names := map[string]struct{}{}
	for _, p := range cfg.Discovery.Priority {
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Source) == "" {
			return fmt.Errorf("CFG_PRIORITY: entries need name and source")
		}
		if _, ok := names[p.Name]; ok {
			return fmt.Errorf("CFG_PRIORITY: duplicate entry %q", p.Name)
		}
		names[p.Name] = struct{}{}
	}
	return nil
}
