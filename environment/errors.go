package environment

import "errors"

// Environment store errors
var (
	ErrNotFound          = errors.New("environment file not found")
	ErrMissingField      = errors.New("required field missing from environment file")
	ErrEmptyRequired     = errors.New("required field is empty")
	ErrPersistenceFailed = errors.New("failed to persist environment file")
)
