package types

import "errors"

// Store outcome errors. The effective store resolves every operation to one
// of these (or to a value); lower-level causes are wrapped with %w.
var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("entity not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNetwork            = errors.New("network error")
	ErrSerialization      = errors.New("serialization error")
	ErrStorageUnavailable = errors.New("local storage unavailable")
)

// Input validation errors.
var (
	ErrInvalidID    = errors.New("invalid entity ID")
	ErrInvalidData  = errors.New("invalid entity data")
	ErrInvalidPatch = errors.New("invalid patch field")
)
