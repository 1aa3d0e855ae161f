package market

import "errors"

// Sentinel errors returned while resolving viewer groups.
var (
	ErrCircularInheritance = errors.New("market: circular inheritance")
	ErrUnknownParent       = errors.New("market: unknown parent group")
	ErrDuplicateGroup      = errors.New("market: duplicate group")
)
