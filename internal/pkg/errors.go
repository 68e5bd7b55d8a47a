package pkg

import "errors"

// Service-level sentinel errors; handlers map them to HTTP status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("permission denied")
	ErrInvalidParam = errors.New("invalid params")
	ErrConflict     = errors.New("already exists")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBanned       = errors.New("account banned")
)
