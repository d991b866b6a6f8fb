package domain

import "errors"

var (
	// ErrValidation marks caller input that fails basic validation.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a lookup for an entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an operation rejected because of entity state.
	ErrConflict = errors.New("conflict")

	// ErrNoActiveProvider is returned when a channel has no active
	// provider configuration. Expected operational state, not a crash.
	ErrNoActiveProvider = errors.New("no active provider configured")

	// ErrCredential marks a stored credential blob that could not be
	// decrypted. Treated as configuration/data corruption.
	ErrCredential = errors.New("credential error")
)
