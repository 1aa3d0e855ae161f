package service

import (
	"github.com/okian/scenecalc/internal/adapters/repository"
	"github.com/okian/scenecalc/internal/config"
	"github.com/okian/scenecalc/internal/domain/availability"
	"github.com/okian/scenecalc/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig takes the static data and game config locations from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		s.catalogDSN = cfg.CatalogDSN
		s.catalogFile = cfg.CatalogFile
		s.gameConfigFile = cfg.GameConfigFile
	}
}

// WithCatalogDSN sets the SQLite static data store path.
func WithCatalogDSN(dsn string) Option {
	return func(s *Service) {
		s.catalogDSN = dsn
	}
}

// WithCatalogFile serves static data from a YAML catalog instead of the store.
func WithCatalogFile(path string) Option {
	return func(s *Service) {
		s.catalogFile = path
	}
}

// WithGameConfigFile loads game tunables from a YAML file instead of the
// store's game_config table.
func WithGameConfigFile(path string) Option {
	return func(s *Service) {
		s.gameConfigFile = path
	}
}

// WithGameConfig uses already loaded game tunables.
func WithGameConfig(gc *config.GameConfig) Option {
	return func(s *Service) {
		s.game = gc
	}
}

// WithReader uses r as the static data source.
func WithReader(r repository.Reader) Option {
	return func(s *Service) {
		s.reader = r
	}
}

// WithRand sets the random source of the low-tier production check.
func WithRand(fn availability.RandFunc) Option {
	return func(s *Service) {
		s.rand = fn
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
