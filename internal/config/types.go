package config

// Config is the per-store config.json document.
type Config struct {
	Version        int             `json:"version"`
	RegistryURL    string          `json:"registryUrl"`
	DefaultTargets []string        `json:"defaultTargets"`
	Features       map[string]bool `json:"features"`
	Discovery      DiscoveryConfig `json:"discovery"`
	Scan           ScanConfig      `json:"scan"`
	Logging        LoggingConfig   `json:"logging"`
}

// DiscoveryConfig configures the search providers.
type DiscoveryConfig struct {
	SkillsMPURL     string          `json:"skillsmpUrl"`
	SkillsMPAPIKey  string          `json:"skillsmpApiKey,omitempty"`
	GitHubAPIURL    string          `json:"githubApiUrl"`
	GitHubToken     string          `json:"githubToken,omitempty"`
	AwesomeListURL  string          `json:"awesomeListUrl"`
	Priority        []PriorityEntry `json:"priority,omitempty"`
	TimeoutSeconds  int             `json:"timeoutSeconds"`
	CacheTTLSeconds int             `json:"cacheTtlSeconds"`
	DefaultLimit    int             `json:"defaultLimit"`
}

// PriorityEntry is one user-curated skill surfaced ahead of every other
// discovery provider.
type PriorityEntry struct {
	Name        string   `json:"name"`
	Source      string   `json:"source"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// ScanConfig controls the content scan run on every fetched skill.
type ScanConfig struct {
	Enabled bool `json:"enabled"`
	// BlockSeverity is the lowest severity that stops an install unless
	// it is forced. Critical findings always stop it.
	BlockSeverity string   `json:"blockSeverity"`
	DisabledRules []string `json:"disabledRules,omitempty"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Feature toggle names.
const (
	FeatureAutoSync        = "autoSync"
	FeatureGitHubDiscovery = "githubDiscovery"
)

// Enabled reports whether a feature toggle is on.
func (c Config) Enabled(feature string) bool {
	return c.Features[feature]
}

// Scope represents the installation scope: global or project.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeProject Scope = "project"
)

// ProjectManifest is the schema for .skillkit/skills.toml at a project root.
type ProjectManifest struct {
	Version int                 `toml:"version"`
	Skills  []ProjectSkillEntry `toml:"skills"`
}

// ProjectSkillEntry declares a skill the project wants installed.
type ProjectSkillEntry struct {
	Source  string `toml:"source"`
	Version string `toml:"version,omitempty"`
}
