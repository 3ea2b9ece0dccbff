package domain

import "errors"

// Sentinel errors for the client-visible failure taxonomy. Handlers map
// these to HTTP status codes with errors.Is; nothing below is retried
// internally.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountDeactivated  = errors.New("employee account is deactivated")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrEmployeeNotFound    = errors.New("employee not found")
	ErrDuplicateEmployeeID = errors.New("employee id already exists")
	ErrComplaintNotFound   = errors.New("complaint not found")
	ErrStoreUnavailable    = errors.New("store unavailable")

	// ErrInvalidStatusTransition is only returned when the strict
	// transition table is enabled via FLAG_STRICT_TRANSITIONS.
	ErrInvalidStatusTransition = errors.New("status transition not allowed")
)
