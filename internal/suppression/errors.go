package suppression

import "errors"

// Sentinel errors for the suppression gate.
var (
	ErrNotFound   = errors.New("suppression entry not found")
	ErrEmptyEmail = errors.New("email is required")
)
