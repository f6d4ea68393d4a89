// Package common defines shared constants and sentinel errors used across
// vormiaquery components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Storage-level errors.
	ErrNotFound = errors.New("not found")

	// Lifecycle errors of the process-wide client.
	ErrNotInitialized     = errors.New("client not initialized")
	ErrAlreadyInitialized = errors.New("client already initialized")

	// Configuration errors.
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrNoEncryptionKey = errors.New("encryption requested without key")

	// Auth errors.
	ErrNoToken      = errors.New("no token in login response")
	ErrInvalidToken = errors.New("invalid token")
)
