package store

import (
	"path/filepath"

	"skillkit/internal/config"
	"skillkit/internal/skill"
)

func SkillsRoot(root string) string {
	return filepath.Join(root, "skills")
}

func SkillDir(root, name string) string {
	return filepath.Join(SkillsRoot(root), name)
}

func SkillFile(root, name string) string {
	return filepath.Join(SkillDir(root, name), skill.FileName)
}

func RegistryPath(root string) string {
	return filepath.Join(root, "registry.json")
}

func ConfigPath(root string) string {
	return config.ConfigPath(root)
}

func AuditPath(root string) string {
	return filepath.Join(root, "audit.log")
}
