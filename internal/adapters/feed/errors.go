package feed

import "errors"

// Package-level errors.
var (
	// ErrAlreadyStarted is returned when Start is called on a running client.
	ErrAlreadyStarted = errors.New("feed client already started")

	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = errors.New("feed client not started")
)
