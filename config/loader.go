package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Loader hydrates a Config respecting env > file > default precedence, in
// the same shape as l0p7-PassCtrl's loader but scoped to what a Manager
// needs at bootstrap: cache/promise DB paths, capacity, and the business
// endpoint list.
type Loader struct {
	envPrefix string
	filePath  string
}

// NewLoader prepares a Loader. filePath may be empty to skip the file
// layer entirely and rely on defaults plus environment overrides.
func NewLoader(envPrefix, filePath string) *Loader {
	return &Loader{envPrefix: envPrefix, filePath: filePath}
}

// Load assembles the effective Config.
func (l *Loader) Load() (Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := k.Load(confmap.Provider(map[string]any{
		"debug":         defaults.Debug,
		"cacheDbPath":   defaults.CacheDBPath,
		"promiseDbPath": defaults.PromiseDBPath,
		"cacheCapacity": defaults.CacheCapacity,
	}, "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	if l.filePath != "" {
		if _, err := os.Stat(l.filePath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config: file %s not found", l.filePath)
			}
			return Config{}, fmt.Errorf("config: stat %s: %w", l.filePath, err)
		}
		if err := k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load file %s: %w", l.filePath, err)
		}
	}

	if l.envPrefix != "" {
		// Map lower-cased env names back onto the camelCase keys already
		// loaded, so an override replaces that key instead of sitting beside
		// it under a lower-cased name that Unmarshal never prefers.
		known := make(map[string]string)
		for _, key := range k.Keys() {
			known[strings.ToLower(key)] = key
		}
		transform := func(s string) string {
			key := strings.TrimPrefix(s, l.envPrefix+"_")
			key = strings.ReplaceAll(key, "__", ".")
			key = strings.ToLower(key)
			if canonical, ok := known[key]; ok {
				return canonical
			}
			return key
		}
		if err := k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
			return Config{}, fmt.Errorf("config: load env: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = defaults.CacheCapacity
	}
	if cfg.CacheDBPath == "" {
		cfg.CacheDBPath = defaults.CacheDBPath
	}
	if cfg.PromiseDBPath == "" {
		cfg.PromiseDBPath = defaults.PromiseDBPath
	}
	return cfg, nil
}
