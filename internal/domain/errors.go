package domain

import "errors"

// Error categories shared by the services and the HTTP layer
var (
	ErrInvalidInput         = errors.New("invalid input")          // Malformed or missing fields
	ErrDuplicateIdentity    = errors.New("username already taken") // Username collision
	ErrAuthenticationFailed = errors.New("invalid credentials")    // Signin mismatch, never says which part
	ErrUnauthorized         = errors.New("unauthorized")           // Missing, malformed, invalid or expired token
	ErrNotFound             = errors.New("not found")              // Authenticated but the record is gone
	ErrStoreFailure         = errors.New("store failure")          // Datastore error, detail stays in the logs
	ErrInvalidToken         = errors.New("invalid token")          // Token signature, payload or expiry check failed
)
