// Package config is the process-bootstrap configuration layer
// (SPEC_FULL.md §10.3): a Config struct plus a koanf-based Loader honoring
// env > file > default precedence, grounded on
// l0p7-PassCtrl/internal/config/loader.go's structToMap + env-transform
// shape. Programmatic construction via linkbridge.NewManager(opts...) and
// linkbridge.BusinessConfig remains fully supported without this package;
// it only exists to bootstrap those from a YAML file plus environment
// overrides.
package config

import "time"

// BusinessEndpoint is one business line's static wiring: identifier, base
// URL, optional mock base URL, and default per-call timeouts/retry
// interval, mirroring linkbridge.BusinessConfig's non-collaborator fields.
type BusinessEndpoint struct {
	Identifier      string        `koanf:"identifier"`
	BaseURL         string        `koanf:"baseUrl"`
	MockBaseURL     string        `koanf:"mockBaseUrl"`
	ConnectTimeout  time.Duration `koanf:"connectTimeout"`
	SendTimeout     time.Duration `koanf:"sendTimeout"`
	RecvTimeout     time.Duration `koanf:"recvTimeout"`
	RetryIntervalMs int64         `koanf:"retryIntervalMs"`
}

// Config is the top-level snapshot a Loader produces.
type Config struct {
	Debug         bool               `koanf:"debug"`
	CacheDBPath   string             `koanf:"cacheDbPath"`
	PromiseDBPath string             `koanf:"promiseDbPath"`
	CacheCapacity int                `koanf:"cacheCapacity"`
	Businesses    []BusinessEndpoint `koanf:"businesses"`
}

// DefaultConfig is the base layer every Loader starts from before files or
// environment overrides are applied.
func DefaultConfig() Config {
	return Config{
		Debug:         false,
		CacheDBPath:   "linkbridge_cache.db",
		PromiseDBPath: "linkbridge_promise.db",
		CacheCapacity: 100,
	}
}
