package lifecycle

import "errors"

// Lifecycle errors
var (
	ErrPullFailed       = errors.New("image pull failed")
	ErrStartFailed      = errors.New("service start failed")
	ErrReadinessTimeout = errors.New("services did not become ready in time")
	ErrInvalidState     = errors.New("operation not valid in current state")
)
