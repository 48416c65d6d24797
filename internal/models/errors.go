package models

import "errors"

// Error kinds returned across the service boundary. Handlers match these
// with errors.Is and map them to HTTP statuses; wrapped messages stay
// human-readable without leaking upstream response bodies.
var (
	ErrInvalidIdentifier = errors.New("invalid story identifier")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrAlreadySubmitted  = errors.New("quiz already submitted")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrGenerationFailed  = errors.New("quiz generation failed")
)
