package importer

import (
	"errors"
	"fmt"
)

// Importer errors
var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrNoToken       = errors.New("no token in login response")
	ErrNoFiles       = errors.New("no .json files found")
	ErrRequestFailed = errors.New("api request failed")
)

// UploadError reports a rejected upload with the server's response attached.
type UploadError struct {
	Status int
	Body   string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload rejected: status %d: %s", e.Status, e.Body)
}
