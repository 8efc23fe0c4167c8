package config

import (
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

const (
	// StoreDirName is the directory holding a store, both per project and
	// under the user's home directory.
	StoreDirName = ".skillkit"

	ConfigFileName = "config.json"
)

// GlobalRoot returns the user-global store root (~/.skillkit).
func GlobalRoot() string {
	home, err := homedir.Dir()
	if err != nil {
		return StoreDirName
	}
	return filepath.Join(home, StoreDirName)
}

// ExpandPath expands a leading ~ and cleans the result.
func ExpandPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(expanded), nil
}

// ConfigPath returns the config.json path inside a store root.
func ConfigPath(root string) string {
	return filepath.Join(root, ConfigFileName)
}
