package repository

import "errors"

// Sentinel kinds for feature store errors.
var (
	ErrInvalidCapacity = errors.New("invalid feature store capacity")
)
