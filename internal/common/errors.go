// Package common defines shared constants and sentinel errors used across
// the client and server halves of lexisync. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Merge errors reported per queued item.
	ErrOwnership        = errors.New("entity belongs to another account")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownTable     = errors.New("unknown table")
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrBatchRejected is returned when strict batches are enabled and at
	// least one queued item could not be applied.
	ErrBatchRejected = errors.New("batch rejected")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
