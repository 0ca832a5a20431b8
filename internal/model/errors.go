package model

import "errors"

// Sentinel errors matched with errors.Is. Services wrap them with the
// operation name and the id involved; the HTTP layer maps them to status
// codes in api/respond.
var (
	// ErrValidation marks malformed input rejected before any write.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a reference to a session or message that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIndexUnavailable marks a vector index or embedding backend failure.
	// Relational data already written stays valid and listable.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrStoreUnavailable marks a relational store failure. Fatal to the
	// in-flight operation, never partial state.
	ErrStoreUnavailable = errors.New("store unavailable")
)
