package store

import (
	"time"

	"skillkit/internal/skill"
)

// RegistryVersion is written into every registry.json.
const RegistryVersion = "1.0.0"

// Source records how a skill entered the store.
type Source string

const (
	SourceRegistry Source = "registry"
	SourceLocal    Source = "local"
	SourceImport   Source = "import"
)

// SkillEntry is the bookkeeping row for one installed skill.
type SkillEntry struct {
	Name            string     `json:"name"`
	Version         string     `json:"version"`
	InstalledAt     time.Time  `json:"installedAt"`
	Source          Source     `json:"source"`
	SourceURL       string     `json:"sourceUrl,omitempty"`
	SyncedPlatforms []string   `json:"syncedPlatforms"`
	LastSynced      *time.Time `json:"lastSynced,omitempty"`
}

// Registry is the store's manifest, persisted as registry.json.
type Registry struct {
	Version     string                `json:"version"`
	Skills      map[string]SkillEntry `json:"skills"`
	LastUpdated time.Time             `json:"lastUpdated"`
}

// NewRegistry returns an empty registry.
func NewRegistry() Registry {
	return Registry{Version: RegistryVersion, Skills: map[string]SkillEntry{}}
}

// AddOptions describes where an added skill came from.
type AddOptions struct {
	Source    Source
	SourceURL string
}

// InstalledSkill joins a registry entry with its on-disk content.
type InstalledSkill struct {
	Entry SkillEntry   `json:"entry"`
	Skill *skill.Skill `json:"skill"`
}
