package service

import "errors"

var (
	// ErrNotStarted is returned by calculation methods before Start succeeds.
	ErrNotStarted = errors.New("service: not started")
	// ErrStopped is returned by Start once Stop has been called.
	ErrStopped = errors.New("service: stopped")
	// ErrNoSource is returned by Start when no static data source is configured.
	ErrNoSource = errors.New("service: no static data source configured")
	// ErrUnknownTag is returned for tag names missing from the catalog.
	ErrUnknownTag = errors.New("service: unknown tag")
	// ErrUnknownRole is returned when a tag has no slot for the requested role.
	ErrUnknownRole = errors.New("service: unknown role")
	// ErrUnknownGroup is returned for unknown viewer group names.
	ErrUnknownGroup = errors.New("service: unknown viewer group")
)
