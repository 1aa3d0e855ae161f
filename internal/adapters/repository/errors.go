package repository

import "errors"

// Sentinel errors returned by the static data stores.
var (
	ErrNotFound    = errors.New("repository: not found")
	ErrInvalidData = errors.New("repository: invalid data")
	ErrEmptyDSN    = errors.New("repository: empty dsn")
)
