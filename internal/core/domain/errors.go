package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownSource     = errors.New("unknown part source")
	ErrInvalidIdentifier = errors.New("invalid identifier")
)
