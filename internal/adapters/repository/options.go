package repository

import "github.com/okian/scenecalc/pkg/logger"

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPragmas replaces the query parameters appended to the dsn, for example
// "_pragma=busy_timeout(1000)". An empty value appends nothing.
func WithPragmas(pragmas string) Option {
	return func(s *SQLiteStore) {
		s.pragmas = pragmas
	}
}
