//go:build !darwin

package config

import (
	"os"
	"path/filepath"
)

// xdgDir returns $env/vidqa, or ~/fallback/vidqa when env is unset.
func xdgDir(env, fallback string) string {
	dir := os.Getenv(env)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "vidqa-data"
		}
		dir = filepath.Join(home, fallback)
	}
	return filepath.Join(dir, "vidqa")
}

func configDir() string { return xdgDir("XDG_CONFIG_HOME", ".config") }

func defaultDataDir() string { return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")) }

func apiKeyHint() string {
	return " or `vidqa config set inference.api_key <key>` (stored in " + secretsFilePath() + ")"
}
