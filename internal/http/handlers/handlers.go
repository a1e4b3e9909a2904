// Package handlers exposes the users, films and reference-data endpoints.
//
// Handlers are transport-thin: they parse path and query parameters, bind
// JSON bodies into request DTOs, call application services and translate
// results and service errors into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/http/middleware"
	"github.com/tbourn/go-filmorate-backend/internal/services"
	"github.com/tbourn/go-filmorate-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// UserService defines user lifecycle and friendship operations consumed by
// HTTP handlers. Implementations must be safe for concurrent use.
type UserService interface {
	CreateUser(ctx context.Context, u domain.User) (*domain.UserView, error)
	UpdateUser(ctx context.Context, u domain.User) (*domain.UserView, error)
	GetUser(ctx context.Context, id int64) (*domain.UserView, error)
	ListUsers(ctx context.Context) ([]domain.UserView, error)
	DeleteUser(ctx context.Context, id int64) error

	AddFriend(ctx context.Context, id, friendID int64) error
	RemoveFriend(ctx context.Context, id, friendID int64) error
	ListFriends(ctx context.Context, id int64) ([]domain.UserView, error)
	CommonFriends(ctx context.Context, id, otherID int64) ([]domain.UserView, error)
}

// FilmService defines film lifecycle, like and ranking operations.
// Implementations must be safe for concurrent use.
type FilmService interface {
	CreateFilm(ctx context.Context, f domain.Film) (*domain.FilmView, error)
	UpdateFilm(ctx context.Context, f domain.Film) (*domain.FilmView, error)
	GetFilm(ctx context.Context, id int64) (*domain.FilmView, error)
	ListFilms(ctx context.Context) ([]domain.FilmView, error)
	DeleteFilm(ctx context.Context, id int64) error

	AddLike(ctx context.Context, filmID, userID int64) error
	RemoveLike(ctx context.Context, filmID, userID int64) error
	// TopFilms returns at most n films by descending like count.
	TopFilms(ctx context.Context, n int) ([]domain.FilmView, error)
}

// ReferenceService serves the read-only genre and MPA catalogues.
type ReferenceService interface {
	ListGenres(ctx context.Context) ([]domain.Genre, error)
	GetGenre(ctx context.Context, id int64) (*domain.Genre, error)
	ListRatings(ctx context.Context) ([]domain.Rating, error)
	GetRating(ctx context.Context, id int64) (*domain.Rating, error)
}

// IdempotencyRecorder remembers which resource a keyed create produced.
type IdempotencyRecorder interface {
	Remember(ctx context.Context, scope, key string, resourceID int64, status int) error
}

//
// Handler wiring
//

// DefaultPopularCount is the page size of GET /films/popular without ?count.
const DefaultPopularCount = 10

// Handlers groups the HTTP endpoints. It depends on service interfaces only.
type Handlers struct {
	users UserService
	films FilmService
	refs  ReferenceService
	idem  IdempotencyRecorder

	popularDefault int
}

// Option customizes Handlers.
type Option func(*Handlers)

// WithIdempotency records keyed creates in rec so retries can be replayed.
func WithIdempotency(rec IdempotencyRecorder) Option {
	return func(h *Handlers) { h.idem = rec }
}

// WithPopularDefault sets the count used by GET /films/popular when the
// query parameter is absent. Values < 1 are ignored.
func WithPopularDefault(n int) Option {
	return func(h *Handlers) {
		if n > 0 {
			h.popularDefault = n
		}
	}
}

// New constructs Handlers bound to the given services.
func New(users UserService, films FilmService, refs ReferenceService, opts ...Option) *Handlers {
	h := &Handlers{users: users, films: films, refs: refs, popularDefault: DefaultPopularCount}
	for _, o := range opts {
		o(h)
	}
	return h
}

//
// Helpers
//

// pathID parses the positive int64 path parameter name. On failure it writes
// a 400 and returns false.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := utils.ParseID(c.Param(name))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// writeError maps a service error onto the error envelope.
//
//	ValidationError            → 400 bad_request
//	ErrNotFound / reference    → 404 not_found
//	ErrDuplicateEmail          → 409 conflict
//	anything else              → 500 internal_error
func writeError(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, ve.Error())
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrReferenceNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrDuplicateEmail):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled service error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}

// remember records a keyed create. Failures are logged, never surfaced: the
// resource already exists and the client gets its 201.
func (h *Handlers) remember(c *gin.Context, resourceID int64) {
	if h.idem == nil {
		return
	}
	key, ok := middleware.GetIdempotencyKey(c)
	if !ok {
		return
	}
	scope := middleware.IdempotencyScope(c)
	if err := h.idem.Remember(c.Request.Context(), scope, key, resourceID, http.StatusCreated); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency record not saved")
	}
}
