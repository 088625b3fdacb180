package util

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppConfigDir = ".config/nostrodon"

	// ConfigDirEnv replaces ~/.config/nostrodon when set.
	ConfigDirEnv = "NOSTRODON_CONFIG_DIR"
)

// GetConfigDir returns the nostrodon config directory, creating it if needed.
func GetConfigDir() (string, error) {
	dir := os.Getenv(ConfigDirEnv)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(home, AppConfigDir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// ResolveFilePath looks for name in the working directory, then in the config
// directory. When neither has it the config directory path is returned, so the
// file gets created there.
func ResolveFilePath(name string) string {
	return resolve(name)
}

// HostKeyPath is where the ssh server reads or generates its host key.
func HostKeyPath() string {
	return resolve(filepath.Join(".ssh", "hostkey"))
}

func resolve(rel string) string {
	if _, err := os.Stat(rel); err == nil {
		return rel
	}
	dir, err := GetConfigDir()
	if err != nil {
		return rel
	}
	path := filepath.Join(dir, rel)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	if sub := filepath.Dir(path); sub != dir {
		os.MkdirAll(sub, 0700)
	}
	return path
}
