package bootstrap

import "errors"

// Content seeding errors
var (
	ErrBadRef      = errors.New("reference is not in surah:ayah form")
	ErrRefNotFound = errors.New("reference does not exist in the database")
)
