package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"skillkit/internal/fsutil"
	"skillkit/internal/skillerr"
)

// Ensure loads path, writing the default document first when it is absent.
func Ensure(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	return Load(path)
}

// Load reads config.json. A missing file yields the defaults. An unreadable
// or invalid file also yields the defaults, together with a KindCorrupt
// error the caller may log; the returned Config is always usable.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return DefaultConfig(), skillerr.Wrap(err, skillerr.KindCorrupt, "CFG_READ", path)
	}
	return Decode(data)
}

// Decode deep-merges a JSON document over the defaults, so partial and
// older files stay valid.
func Decode(data []byte) (Config, error) {
	var override map[string]any
	if err := json.Unmarshal(data, &override); err != nil {
		return DefaultConfig(), skillerr.Wrap(err, skillerr.KindCorrupt, "CFG_PARSE", "config.json")
	}
	base, err := toMap(DefaultConfig())
	if err != nil {
		return DefaultConfig(), err
	}
	merged, err := json.Marshal(Merge(base, override))
	if err != nil {
		return DefaultConfig(), fmt.Errorf("CFG_ENCODE: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(merged, &cfg); err != nil {
		return DefaultConfig(), skillerr.Wrap(err, skillerr.KindCorrupt, "CFG_SCHEMA", "config.json")
	}
	cfg = Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return DefaultConfig(), skillerr.Wrap(err, skillerr.KindCorrupt, "CFG_INVALID", "config.json")
	}
	return cfg, nil
}

// Save writes cfg to path atomically.
func Save(path string, cfg Config) error {
	cfg = Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	blob, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("CFG_ENCODE: %w", err)
	}
	return fsutil.AtomicWrite(path, append(blob, '\n'), 0o644)
}

// Merge returns base with override applied recursively. Nested objects are
// merged key by key; every other value (including arrays) replaces the
// base value wholesale. Neither input is modified.
func Merge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if bv, ok := out[k].(map[string]any); ok {
			if ov, ok := v.(map[string]any); ok {
				out[k] = Merge(bv, ov)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// ApplyEnv overlays credentials and endpoints from the environment.
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) Config {
	if v, ok := lookup("SKILLKIT_REGISTRY_URL"); ok && v != "" {
		cfg.RegistryURL = v
	}
	if v, ok := lookup("SKILLKIT_SKILLSMP_API_KEY"); ok && v != "" {
		cfg.Discovery.SkillsMPAPIKey = v
	}
	if v, ok := lookup("GITHUB_TOKEN"); ok && v != "" && cfg.Discovery.GitHubToken == "" {
		cfg.Discovery.GitHubToken = v
	}
	return cfg
}

func toMap(cfg Config) (map[string]any, error) {
	blob, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("CFG_ENCODE: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(blob, &out); err != nil {
		return nil, fmt.Errorf("CFG_ENCODE: %w", err)
	}
	return out, nil
}
