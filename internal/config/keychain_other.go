//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// secretsFilePath is a flat {"account": "value"} JSON file next to the data.
func secretsFilePath() string {
	return filepath.Join(defaultDataDir(), "secrets.json")
}

// readSecrets refuses a secrets file that group or others can read.
func readSecrets(path string) (map[string]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("secrets file not available: %w", err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return nil, fmt.Errorf("secrets file %s has mode %v, want 0600", path, perm)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	secrets := map[string]string{}
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return secrets, nil
}

func keychainGet(account string) ([]byte, error) {
	secrets, err := readSecrets(secretsFilePath())
	if err != nil {
		return nil, err
	}
	val, ok := secrets[account]
	if !ok {
		return nil, fmt.Errorf("no secret stored for %q", account)
	}
	return []byte(val), nil
}

func keychainSet(account, value string) error {
	p := secretsFilePath()

	secrets, err := readSecrets(p)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		secrets = map[string]string{}
	}
	secrets[account] = value

	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, out, 0o600)
}
