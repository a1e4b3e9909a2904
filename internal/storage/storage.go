// Package storage defines the persistence contract of the filmorate core.
//
// Two implementations satisfy it with identical semantics: memory.Store
// (process-local maps) and repo.Store (GORM over SQLite). The services
// package depends only on the interfaces declared here.
//
// Contract highlights:
//   - Create* assigns a fresh, never reused identifier. Reference checks run
//     before any write, so a failed create persists nothing.
//   - Both legs of a friendship are written and removed in one atomic step.
//   - Id lists are returned ascending; maps returned by batch readers hold a
//     non-nil (possibly empty) slice for every requested id.
//   - Errors for predictable conditions are the sentinels in errors.go.
package storage

import (
	"context"
	"time"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
)

// UserStore persists users. Email uniqueness is enforced here.
type UserStore interface {
	// CreateUser inserts u and returns it with its assigned ID.
	// Returns ErrDuplicateEmail when the email is taken.
	CreateUser(ctx context.Context, u domain.User) (*domain.User, error)
	// UpdateUser overwrites the mutable fields of the user with u.ID.
	// Returns ErrUserNotFound or ErrDuplicateEmail.
	UpdateUser(ctx context.Context, u domain.User) (*domain.User, error)
	// GetUser returns the user or ErrUserNotFound.
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	// GetUsers returns the users with the given ids, ascending by id.
	// Unknown ids are skipped.
	GetUsers(ctx context.Context, ids []int64) ([]domain.User, error)
	// ListUsers returns every user, ascending by id.
	ListUsers(ctx context.Context) ([]domain.User, error)
	// DeleteUser removes the user and all of its friendships and likes.
	DeleteUser(ctx context.Context, id int64) error
}

// FilmStore persists films together with their genre associations.
type FilmStore interface {
	// CreateFilm validates the rating and genre references and inserts f.
	// Returns ErrRatingNotFound or ErrGenreNotFound without writing.
	CreateFilm(ctx context.Context, f domain.Film) (*domain.Film, error)
	// UpdateFilm overwrites the film with f.ID, replacing its genre set.
	// Returns ErrFilmNotFound or a reference error without writing.
	UpdateFilm(ctx context.Context, f domain.Film) (*domain.Film, error)
	// GetFilm returns the film (with GenreIDs) or ErrFilmNotFound.
	GetFilm(ctx context.Context, id int64) (*domain.Film, error)
	// GetFilms returns the films with the given ids in the order requested.
	// Unknown ids are skipped.
	GetFilms(ctx context.Context, ids []int64) ([]domain.Film, error)
	// ListFilms returns every film, ascending by id.
	ListFilms(ctx context.Context) ([]domain.Film, error)
	// DeleteFilm removes the film, its likes and its genre associations.
	DeleteFilm(ctx context.Context, id int64) error
}

// ReferenceStore serves the seeded genre and rating catalogues.
type ReferenceStore interface {
	ListGenres(ctx context.Context) ([]domain.Genre, error)
	// GetGenre returns the genre or ErrGenreNotFound.
	GetGenre(ctx context.Context, id int64) (*domain.Genre, error)
	ListRatings(ctx context.Context) ([]domain.Rating, error)
	// GetRating returns the rating or ErrRatingNotFound.
	GetRating(ctx context.Context, id int64) (*domain.Rating, error)
}

// RelationStore manages friendship and like memberships.
type RelationStore interface {
	// AddFriend makes a and b friends of each other. Idempotent.
	// Returns ErrUserNotFound when either user is missing.
	AddFriend(ctx context.Context, a, b int64) error
	// RemoveFriend drops both legs of the friendship. Removing an absent
	// friendship is a no-op; missing users yield ErrUserNotFound.
	RemoveFriend(ctx context.Context, a, b int64) error
	// FriendIDs returns the friend ids of each requested user.
	FriendIDs(ctx context.Context, userIDs ...int64) (map[int64][]int64, error)
	// CommonFriendIDs returns the ids present in both friend sets.
	CommonFriendIDs(ctx context.Context, a, b int64) ([]int64, error)

	// AddLike records that userID likes filmID. Idempotent.
	// Returns ErrFilmNotFound or ErrUserNotFound.
	AddLike(ctx context.Context, filmID, userID int64) error
	// RemoveLike deletes the like, returning ErrLikeNotFound when absent.
	RemoveLike(ctx context.Context, filmID, userID int64) error
	// LikeIDs returns, per film, the ids of users who liked it.
	LikeIDs(ctx context.Context, filmIDs ...int64) (map[int64][]int64, error)
	// LikedFilmIDs returns, per user, the ids of films the user liked.
	LikedFilmIDs(ctx context.Context, userIDs ...int64) (map[int64][]int64, error)
	// TopFilmIDs returns up to n film ids ordered by like count descending,
	// ties broken by ascending film id.
	TopFilmIDs(ctx context.Context, n int) ([]int64, error)
}

// IdempotencyStore keeps the (scope, key) → resource records used to make
// creates safely retryable.
type IdempotencyStore interface {
	// GetIdempotency returns a record that has not expired at now, or
	// ErrNotFound.
	GetIdempotency(ctx context.Context, scope, key string, now time.Time) (*domain.Idempotency, error)
	// SaveIdempotency stores a record valid for ttl. Returns ErrDuplicateKey
	// when a live record for (scope, key) already exists.
	SaveIdempotency(ctx context.Context, scope, key string, resourceID int64, status int, ttl time.Duration) (*domain.Idempotency, error)
	// PurgeExpiredIdempotency drops records that expired at or before now
	// and returns how many were removed.
	PurgeExpiredIdempotency(ctx context.Context, now time.Time) (int64, error)
}

// Store is the full persistence contract consumed by the services.
type Store interface {
	UserStore
	FilmStore
	ReferenceStore
	RelationStore
	IdempotencyStore

	// Close releases the underlying resources.
	Close() error
}
