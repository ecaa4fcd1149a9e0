package winprob

import "errors"

// Package-level errors.
var (
	// ErrNoHistory is returned when a history query runs before any estimate.
	ErrNoHistory = errors.New("no probability history recorded")
)
