// Package common defines shared constants and sentinel errors used across
// the storage server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Request validation.
	ErrValidation = errors.New("validation failed")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")

	// Transfer errors. ErrDuplicateAction is returned when a second
	// upload/download/delete is requested for a file that already has one
	// in flight. ErrRetryExhausted and ErrPoolExhausted are terminal
	// pipeline failures.
	ErrDuplicateAction = errors.New("file action already occurring")
	ErrRetryExhausted  = errors.New("retry ceiling exceeded")
	ErrPoolExhausted   = errors.New("no pool workers left alive")

	// Codec errors.
	ErrDecryptionFailed = errors.New("decryption failed")
)
