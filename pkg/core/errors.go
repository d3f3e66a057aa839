package core

import "errors"

// Common errors.
var (
	ErrNotFound       = errors.New("document not found")
	ErrReadOnly       = errors.New("repository is in read-only mode")
	ErrMissingVersion = errors.New("document has no version tag")
	ErrInvalidID      = errors.New("invalid document id")
)
