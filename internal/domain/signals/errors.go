package signals

import "errors"

// Sentinel errors returned by the bus.
var (
	ErrClosed      = errors.New("signals: bus closed")
	ErrNilHandler  = errors.New("signals: nil handler")
	ErrUnknownKind = errors.New("signals: unknown event kind")
)
