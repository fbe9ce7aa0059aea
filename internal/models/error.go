package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// PIN gate errors
	ErrPinRequired      = errors.New("pin is required")
	ErrPinNotConfigured = errors.New("reference pin is not configured")
	ErrIncorrectPin     = errors.New("incorrect pin")

	// Identity provider errors
	ErrInvalidCredentials = errors.New("invalid login credentials")
)

// LockoutError is returned while an IP is locked out.
type LockoutError struct {
	RemainingMinutes int
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("ip locked out for %d more minute(s)", e.RemainingMinutes)
}
