// Package services implements the relationship graph and popularity ranking
// on top of an injected storage.Store. This file centralizes service-level
// error values so they can be returned by service methods and checked by
// callers with errors.Is.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"

	"github.com/tbourn/go-filmorate-backend/internal/storage"
)

// Error kinds, re-exported from the storage contract so handlers depend on a
// single package.
var (
	ErrNotFound          = storage.ErrNotFound
	ErrReferenceNotFound = storage.ErrReferenceNotFound
	ErrDuplicateEmail    = storage.ErrDuplicateEmail
)

// Specific not-found errors.
var (
	ErrUserNotFound   = storage.ErrUserNotFound
	ErrFilmNotFound   = storage.ErrFilmNotFound
	ErrLikeNotFound   = storage.ErrLikeNotFound
	ErrGenreNotFound  = storage.ErrGenreNotFound
	ErrRatingNotFound = storage.ErrRatingNotFound
)

// ErrValidation is the kind of every domain-rule violation. Use errors.As
// with *ValidationError to get the offending field.
var ErrValidation = errors.New("validation failed")

// ValidationError reports which field broke which rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Reason
}

// Is makes errors.Is(err, ErrValidation) true for every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
