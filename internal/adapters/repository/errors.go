package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidLimit   = errors.New("invalid limit")
	ErrMissingAthlete = errors.New("athlete id is required")
	ErrStoreClosed    = errors.New("store closed")
)
