// Package common defines the sentinel errors shared by the store, the session
// layer and the transports. Callers match them with errors.Is.
package common

import "errors"

var (
	// Store-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// ErrorInternal marks failures whose detail must not reach a client.
	ErrorInternal = errors.New("internal error")

	// Token verification failure: bad signature, malformed, expired or wrong kind.
	ErrInvalidToken = errors.New("invalid token")

	// Session-level taxonomy.
	ErrDuplicateUser       = errors.New("duplicate user")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrValidation          = errors.New("validation error")
)
