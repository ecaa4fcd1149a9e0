package stats

import "errors"

// Sentinel kinds for statistical input errors.
var (
	ErrInsufficientSample = errors.New("insufficient sample")
	ErrShapeMismatch      = errors.New("shape mismatch")
)
