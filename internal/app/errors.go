package service

import "errors"

// Sentinel errors returned by the service. Validation failures wrap one of the
// ErrInvalid* values with the offending field.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrStoreClosed    = errors.New("store was closed by an earlier Stop")
	ErrMissingAthlete = errors.New("athlete id is required")
	ErrInvalidLog     = errors.New("invalid daily log")
	ErrInvalidProfile = errors.New("invalid athlete profile")
	ErrInvalidMeet    = errors.New("invalid meet")
)
