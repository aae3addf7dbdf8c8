package auth

import "errors"

// Authentication errors returned by the auth service.
var (
	// ErrInvalidToken is returned when a token is malformed, has an
	// invalid signature, or carries invalid claims.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when a token has expired.
	ErrExpiredToken = errors.New("token expired")

	// ErrInvalidCredentials is returned when the operator password does
	// not match the configured hash.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
