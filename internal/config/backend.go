package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ConfigBackend abstracts persistent config storage.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}

// fileBackend keeps config.json grouped by section, mirroring Config:
//
//	{
//	  "server":    {"port": 5000},
//	  "storage":   {"driver": "postgres", "dsn": "postgres://..."},
//	  "inference": {"provider": "openai", "model": "gpt-4o-mini"}
//	}
//
// A key such as "storage.dsn" addresses field "dsn" of section "storage".
type fileBackend struct {
	path     string
	sections map[string]map[string]any
}

func newPlatformBackend() ConfigBackend {
	return openFileBackend(configFilePath())
}

func openFileBackend(path string) *fileBackend {
	b := &fileBackend{path: path, sections: make(map[string]map[string]any)}
	b.load()
	return b
}

func configFilePath() string {
	return filepath.Join(configDir(), "config.json")
}

func splitKey(key string) (section, field string, err error) {
	section, field, ok := strings.Cut(key, ".")
	if !ok || section == "" || field == "" {
		return "", "", fmt.Errorf("config key %q is not of the form section.field", key)
	}
	return section, field, nil
}

func (b *fileBackend) load() {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("could not read config file, using defaults", "path", b.path, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, &b.sections); err != nil {
		slog.Warn("could not parse config file, using defaults", "path", b.path, "error", err)
		b.sections = make(map[string]map[string]any)
	}
}

func (b *fileBackend) save() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(b.sections, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.path, data, 0o600)
}

func (b *fileBackend) lookup(key string) (any, bool) {
	section, field, err := splitKey(key)
	if err != nil {
		return nil, false
	}
	v, ok := b.sections[section][field]
	return v, ok
}

func (b *fileBackend) set(key string, v any) error {
	section, field, err := splitKey(key)
	if err != nil {
		return err
	}
	if b.sections[section] == nil {
		b.sections[section] = make(map[string]any)
	}
	b.sections[section][field] = v
	return b.save()
}

func (b *fileBackend) GetString(key string) (string, bool, error) {
	v, ok := b.lookup(key)
	if !ok {
		return "", false, nil
	}
	if s, ok := v.(string); ok {
		return s, true, nil
	}
	return fmt.Sprintf("%v", v), true, nil
}

func (b *fileBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.lookup(key)
	if !ok {
		return 0, false, nil
	}
	switch val := v.(type) {
	case float64:
		if val < math.MinInt || val > math.MaxInt || val != math.Trunc(val) {
			return 0, true, fmt.Errorf("value %v for %s is not a valid integer or is out of range", val, key)
		}
		return int(val), true, nil
	case int:
		return val, true, nil
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("invalid type for %s", key)
	}
}

func (b *fileBackend) SetString(key, val string) error { return b.set(key, val) }

func (b *fileBackend) SetInt(key string, val int) error { return b.set(key, val) }

// Delete removes key and drops its section once empty.
func (b *fileBackend) Delete(key string) error {
	section, field, err := splitKey(key)
	if err != nil {
		return err
	}
	delete(b.sections[section], field)
	if len(b.sections[section]) == 0 {
		delete(b.sections, section)
	}
	return b.save()
}
