// Package common defines shared constants and sentinel errors used across
// the identity core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Startup errors.
	ErrConfig          = errors.New("configuration error")
	ErrBootstrapFailed = errors.New("database bootstrap failed")

	// Repository-level errors.
	ErrorNotFound          = errors.New("not found")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrAuthorAlreadyExists = errors.New("author account already exists")
	ErrPoolExhausted       = errors.New("connection pool exhausted")

	// Registration input errors.
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrWeakPassword     = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
	ErrDisplayNameLong  = errors.New("full name must be at most 255 characters")
	ErrInvalidResetLink = errors.New("invalid or expired token")

	// Authentication errors.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("author access required")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Serving state.
	ErrNotReady = errors.New("service not ready")
)
