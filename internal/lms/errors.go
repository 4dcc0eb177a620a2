package lms

import "errors"

// Sentinel errors returned by the store and the services on top of it.
// Callers branch with errors.Is; the HTTP layer maps each to a status code.
var (
	// ErrNotFound: a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAttemptLimit: the user has no quiz attempts left. A business
	// rejection, never raised after a write.
	ErrAttemptLimit = errors.New("attempt limit exceeded")

	// ErrCourseIncomplete: certificate requested before every lesson of the
	// course is completed.
	ErrCourseIncomplete = errors.New("course incomplete")

	// ErrAccessDenied: the caller's role or ownership does not permit the
	// operation.
	ErrAccessDenied = errors.New("access denied")

	// ErrConflict: a concurrent writer won a check-then-insert race. Services
	// retry the unit once before surfacing this.
	ErrConflict = errors.New("conflicting concurrent write")
)
