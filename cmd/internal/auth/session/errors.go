package session

import "errors"

var (
	// ErrValidation is returned when a handshake input is blank or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned by Login when no identity matches the supplied
	// username or email.
	ErrNotFound = errors.New("user not found")

	// ErrUnauthorized is the collapsed failure for every credential and token
	// problem: bad password, absent/invalid/expired token, slot mismatch.
	// Callers must not learn which check failed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict is returned by Register when the username or email is taken.
	ErrConflict = errors.New("already exists")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

var (
	// ErrTokenExpired is returned when a token's TTL has elapsed.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid is returned when the signature does not verify, which
	// includes tokens signed with the other class's secret, and when the
	// class claim does not match the expected class.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenMalformed is returned when the token is structurally not a JWT.
	ErrTokenMalformed = errors.New("token malformed")
)
