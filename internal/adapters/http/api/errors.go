package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrBodyTooBig  = errors.New("request body too large")
	ErrInvalidJSON = errors.New("request body is not valid JSON")
)
