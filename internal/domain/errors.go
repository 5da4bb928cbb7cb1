package domain

import "errors"

// Sentinel errors shared across services. Controllers map these to HTTP
// status codes; anything else is treated as a store failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)
