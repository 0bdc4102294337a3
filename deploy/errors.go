package deploy

import "errors"

// Deployment errors
var (
	ErrMissingDependency  = errors.New("required external tool is missing")
	ErrNetworkUnavailable = errors.New("network is unavailable")
	ErrDownloadFailed     = errors.New("download failed")
)
