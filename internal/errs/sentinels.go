// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller lacks the admin flag.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrWindowClosed indicates a submit attempt outside the challenge window.
	ErrWindowClosed = errors.New("challenge window closed")

	// ErrAlreadySubmitted indicates a second submit attempt on the same day.
	ErrAlreadySubmitted = errors.New("already submitted today")

	// ErrNoChallenge indicates no challenge exists for today's date.
	ErrNoChallenge = errors.New("no challenge today")
)
