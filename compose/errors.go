package compose

import "errors"

// Templating errors
var (
	ErrTemplateMalformed = errors.New("template is malformed")
	ErrEmptyOutput       = errors.New("rendered document is empty")
)
