// Package config defines process configuration and the game tunables consumed
// by the calculation services.
//
// Conventions:
// - Process settings are layered: defaults, optional YAML file, environment.
// - Game tunables have no silent defaults; LoadGame validates them once.
// - External errors are wrapped with this package's sentinel errors.
package config

import "context"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CatalogDSN is the path of the SQLite static data store.
	CatalogDSN string `koanf:"catalog_dsn"`

	// CatalogFile optionally points at a YAML catalog. When set, static data is
	// served from the file instead of the SQLite tables.
	CatalogFile string `koanf:"catalog_file"`

	// GameConfigFile optionally points at a YAML file with game tunables.
	// When empty, tunables are read from the store's game_config table.
	GameConfigFile string `koanf:"game_config_file"`

	// MetricsNamespace prefixes all Prometheus metric names.
	MetricsNamespace string `koanf:"metrics_namespace"`
}

// New returns a Config populated with defaults. The context is reserved for
// future sources and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		CatalogDSN:       "data/game_data.sqlite",
		MetricsNamespace: "scenecalc",
	}
}
