package secrets

import "errors"

// Secret generation errors
var (
	ErrInsufficientEntropy = errors.New("entropy source could not produce the requested length")
	ErrInvalidLength       = errors.New("requested length must be positive")
	ErrNoSource            = errors.New("no entropy source available")
)
