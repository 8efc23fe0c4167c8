package config

const (
	SchemaVersion = 1

	DefaultRegistryURL    = "https://registry.skillkit.dev/"
	DefaultSkillsMPURL    = "https://skillsmp.com/"
	DefaultGitHubAPIURL   = "https://api.github.com/"
	DefaultAwesomeListURL = "https://raw.githubusercontent.com/travisvn/awesome-claude-skills/main/README.md"
)

// DefaultConfig returns a fully-populated v1 config document.
func DefaultConfig() Config {
	return Config{
		Version:        SchemaVersion,
		RegistryURL:    DefaultRegistryURL,
		DefaultTargets: []string{"claude"},
		Features: map[string]bool{
			FeatureAutoSync:        false,
			FeatureGitHubDiscovery: true,
		},
		Discovery: DiscoveryConfig{
			SkillsMPURL:     DefaultSkillsMPURL,
			GitHubAPIURL:    DefaultGitHubAPIURL,
			AwesomeListURL:  DefaultAwesomeListURL,
			TimeoutSeconds:  10,
			CacheTTLSeconds: 300,
			DefaultLimit:    10,
		},
		Scan: ScanConfig{
			Enabled:       true,
			BlockSeverity: "high",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}
