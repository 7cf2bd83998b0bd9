package domain

import "errors"

// Sentinel errors - use with errors.Is()
var (
	// ErrNotFound indicates no record exists for the requested key
	ErrNotFound = errors.New("not found")

	// ErrNotInitialized indicates a storage handle was used before Initialize
	ErrNotInitialized = errors.New("storage not initialized")

	// ErrFinalized indicates a storage handle was used after Finalize
	ErrFinalized = errors.New("storage finalized")

	// ErrUnknownCollection indicates a resource collection name that does not exist
	ErrUnknownCollection = errors.New("unknown resource collection")
)
