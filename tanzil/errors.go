package tanzil

import "errors"

// Conversion errors
var (
	ErrMalformedSource = errors.New("source is not a tanzil document")
	ErrBadFileName     = errors.New("file name does not carry language and author")
)
