package storage

import (
	"errors"
	"fmt"
)

// Error kinds. Every error a Store returns for a predictable condition
// matches exactly one of these with errors.Is.
var (
	// ErrNotFound is the kind of every "entity or relationship absent" error.
	ErrNotFound = errors.New("not found")

	// ErrReferenceNotFound is the kind of errors raised when a film names a
	// genre or rating that does not exist.
	ErrReferenceNotFound = errors.New("reference not found")

	// ErrDuplicateEmail indicates an email collision on create or update.
	ErrDuplicateEmail = errors.New("email already in use")
)

// Specific errors, each wrapping its kind.
var (
	ErrUserNotFound   = fmt.Errorf("user %w", ErrNotFound)
	ErrFilmNotFound   = fmt.Errorf("film %w", ErrNotFound)
	ErrLikeNotFound   = fmt.Errorf("like %w", ErrNotFound)
	ErrGenreNotFound  = fmt.Errorf("genre %w", ErrReferenceNotFound)
	ErrRatingNotFound = fmt.Errorf("rating %w", ErrReferenceNotFound)
)

// ErrDuplicateKey indicates that an idempotency record already exists for
// the given (scope, key).
var ErrDuplicateKey = errors.New("duplicate idempotency key")
