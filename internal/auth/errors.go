package auth

import "errors"

// Sentinel failures surfaced by token parsing and the RBAC middleware.
var (
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrForbidden    = errors.New("auth: forbidden")
	ErrInvalidToken = errors.New("auth: invalid token")
)
