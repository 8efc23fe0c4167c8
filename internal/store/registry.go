package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"skillkit/internal/skillerr"
)

// ReadRegistry loads registry.json strictly. A missing file is an empty
// registry; an unreadable or unparsable one is a KindCorrupt error.
func (s *Store) ReadRegistry() (Registry, error) {
	path := RegistryPath(s.root)
	blob, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewRegistry(), nil
		}
		return NewRegistry(), skillerr.Wrap(err, skillerr.KindCorrupt, "STO_REGISTRY_READ", path)
	}
	var reg Registry
	if err := json.Unmarshal(blob, &reg); err != nil {
		return NewRegistry(), skillerr.Wrap(err, skillerr.KindCorrupt, "STO_REGISTRY_PARSE", path)
	}
	if reg.Version == "" {
		reg.Version = RegistryVersion
	}
	if reg.Skills == nil {
		reg.Skills = map[string]SkillEntry{}
	}
	for name, entry := range reg.Skills {
		if entry.Name == "" {
			entry.Name = name
		}
		if entry.SyncedPlatforms == nil {
			entry.SyncedPlatforms = []string{}
		}
		reg.Skills[name] = entry
	}
	return reg, nil
}

// LoadRegistry is ReadRegistry that treats corruption as "nothing recorded
// yet" so a damaged manifest never blocks the CLI.
func (s *Store) LoadRegistry() Registry {
	reg, err := s.ReadRegistry()
	if err != nil {
		s.logger.Warn("registry unreadable, treating as empty", "path", RegistryPath(s.root), "error", err)
	}
	return reg
}

// saveRegistry rewrites the whole manifest via temp file + rename.
func (s *Store) saveRegistry(reg Registry) error {
	reg.Version = RegistryVersion
	reg.LastUpdated = s.now().UTC()
	if reg.Skills == nil {
		reg.Skills = map[string]SkillEntry{}
	}
	for name, entry := range reg.Skills {
		sort.Strings(entry.SyncedPlatforms)
		reg.Skills[name] = entry
	}
	blob, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("STO_REGISTRY_ENCODE: %w", err)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("STO_REGISTRY_WRITE: %w", err)
	}
	if err := s.write(RegistryPath(s.root), append(blob, '\n'), 0o644); err != nil {
		return fmt.Errorf("STO_REGISTRY_WRITE: %w", err)
	}
	return nil
}
