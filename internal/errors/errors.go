package errors

import (
	"errors"
)

var (
	ErrInvalidEmail          = errors.New("invalid email format")
	ErrWeakPassword          = errors.New("password does not meet the strength policy")
	ErrEmailAlreadyInUse     = errors.New("email already in use")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountLocked         = errors.New("account temporarily locked")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrAccountNotActive      = errors.New("account not active")
	ErrInvalidToken          = errors.New("invalid refresh token")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	// ErrInfrastructure marks persistence failures (connectivity, timeouts).
	// Callers may retry; the domain sentinels above are terminal.
	ErrInfrastructure = errors.New("infrastructure failure")
)
