//go:build darwin

package config

import (
	"os"
	"path/filepath"
)

// appSupportDir is ~/Library/Application Support/vidqa; it holds both the
// config file and the SQLite database.
func appSupportDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vidqa-data"
	}
	return filepath.Join(home, "Library", "Application Support", "vidqa")
}

func configDir() string { return appSupportDir() }

func defaultDataDir() string { return appSupportDir() }

func apiKeyHint() string {
	return " or `vidqa config set inference.api_key <key>` (stored in the login Keychain, service " + keychainService + ")"
}
