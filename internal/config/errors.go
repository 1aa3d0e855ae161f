package config

import (
	"errors"
)

// Sentinel errors returned by Load, LoadGame and LoadGameFile.
var (
	// ErrInvalidConfig reports values that fail validation, including
	// missing game tunables and malformed age rules.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig reports a source that could not be read or parsed.
	ErrLoadConfig = errors.New("load config failed")
)
