package domain

import "errors"

// Errors returned by the domain services. Callers match them with errors.Is;
// services wrap them with context using fmt.Errorf("...: %w").
var (
	// ErrUnauthorized is returned when a write has no acting user.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotAParticipant is returned for message operations by a user who is
	// not one of the conversation's participants.
	ErrNotAParticipant = errors.New("not a participant")

	// ErrNotFound is returned when a referenced post or conversation does not
	// exist, or is not visible to the acting user.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for self-follows, self-conversations,
	// empty content and malformed cursors.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict is returned by repositories when a uniqueness constraint
	// rejects a write. Services absorb it; it never reaches a caller.
	ErrConflict = errors.New("conflict")
)

// StorageError wraps a persistence failure that has no domain meaning. It is
// surfaced as-is and never retried by the services.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
