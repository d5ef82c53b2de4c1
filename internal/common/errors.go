// Package common defines sentinel errors shared by the session, store and
// gateway layers of mediadrop. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrorUnauthorized is returned when an actor outside the allow-list
	// attempts a write.
	ErrorUnauthorized = errors.New("unauthorized")

	// Session errors.
	ErrorEmptySession = errors.New("empty session")

	// Batch errors.
	ErrorInvalidCode       = errors.New("invalid or expired code")
	ErrorExhaustedKeyspace = errors.New("exhausted keyspace")

	// ErrorPersistence wraps any failure of the durable backend.
	ErrorPersistence = errors.New("persistence failure")

	// ErrorCodeConflict signals that an insert hit an already used code.
	ErrorCodeConflict = errors.New("code conflict")
)
