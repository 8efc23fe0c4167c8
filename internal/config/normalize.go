package config

import "strings"

// Normalize fills zero values left by hand-edited or older documents.
func Normalize(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Version == 0 {
		cfg.Version = SchemaVersion
	}
	if strings.TrimSpace(cfg.RegistryURL) == "" {
		cfg.RegistryURL = def.RegistryURL
	}
	if cfg.Features == nil {
		cfg.Features = map[string]bool{}
	}
	if cfg.Discovery.SkillsMPURL == "" {
		cfg.Discovery.SkillsMPURL = def.Discovery.SkillsMPURL
	}
	if cfg.Discovery.GitHubAPIURL == "" {
		cfg.Discovery.GitHubAPIURL = def.Discovery.GitHubAPIURL
	}
	if cfg.Discovery.AwesomeListURL == "" {
		cfg.Discovery.AwesomeListURL = def.Discovery.AwesomeListURL
	}
	if cfg.Discovery.TimeoutSeconds <= 0 {
		cfg.Discovery.TimeoutSeconds = def.Discovery.TimeoutSeconds
	}
	if cfg.Discovery.CacheTTLSeconds < 0 {
		cfg.Discovery.CacheTTLSeconds = 0
	}
	if cfg.Discovery.DefaultLimit <= 0 {
		cfg.Discovery.DefaultLimit = def.Discovery.DefaultLimit
	}
	cfg.Scan.BlockSeverity = strings.ToLower(strings.TrimSpace(cfg.Scan.BlockSeverity))
	if cfg.Scan.BlockSeverity == "" {
		cfg.Scan.BlockSeverity = def.Scan.BlockSeverity
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	for i := range cfg.DefaultTargets {
		cfg.DefaultTargets[i] = strings.ToLower(strings.TrimSpace(cfg.DefaultTargets[i]))
	}
	return cfg
}
