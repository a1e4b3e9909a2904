// Package services – FilmService
//
// This file implements FilmService, which owns the film lifecycle, likes and
// the popularity ranking. Films are validated and normalized here; reference
// checks (rating, genres) run inside the store's create/update so a failed
// check persists nothing.
package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/storage"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FilmService coordinates film persistence, likes and ranking.
type FilmService struct {
	Store    storage.Store
	Assemble *Assembler
}

// NewFilmService constructs a FilmService over store.
func NewFilmService(store storage.Store) *FilmService {
	return &FilmService{Store: store, Assemble: &Assembler{Store: store}}
}

func (s *FilmService) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("services/FilmService").Start(ctx, name, trace.WithAttributes(attrs...))
}

// CreateFilm validates f and stores it with a fresh id.
func (s *FilmService) CreateFilm(ctx context.Context, f domain.Film) (*domain.FilmView, error) {
	ctx, span := s.span(ctx, "CreateFilm")
	defer span.End()

	if err := prepareFilm(&f); err != nil {
		return nil, err
	}
	created, err := s.Store.CreateFilm(ctx, f)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("film.id", created.ID))
	return s.Assemble.Film(ctx, *created)
}

// UpdateFilm overwrites the film f.ID, including its rating and genre set.
func (s *FilmService) UpdateFilm(ctx context.Context, f domain.Film) (*domain.FilmView, error) {
	ctx, span := s.span(ctx, "UpdateFilm", attribute.Int64("film.id", f.ID))
	defer span.End()

	if f.ID <= 0 {
		return nil, invalid("id", "must be positive")
	}
	if err := prepareFilm(&f); err != nil {
		return nil, err
	}
	updated, err := s.Store.UpdateFilm(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.Assemble.Film(ctx, *updated)
}

// GetFilm returns the assembled film or ErrFilmNotFound.
func (s *FilmService) GetFilm(ctx context.Context, id int64) (*domain.FilmView, error) {
	ctx, span := s.span(ctx, "GetFilm", attribute.Int64("film.id", id))
	defer span.End()

	f, err := s.Store.GetFilm(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Assemble.Film(ctx, *f)
}

// ListFilms returns every film ascending by id.
func (s *FilmService) ListFilms(ctx context.Context) ([]domain.FilmView, error) {
	ctx, span := s.span(ctx, "ListFilms")
	defer span.End()

	films, err := s.Store.ListFilms(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("films.count", len(films)))
	return s.Assemble.Films(ctx, films)
}

// DeleteFilm removes the film with its likes and genre associations.
func (s *FilmService) DeleteFilm(ctx context.Context, id int64) error {
	ctx, span := s.span(ctx, "DeleteFilm", attribute.Int64("film.id", id))
	defer span.End()

	if err := s.Store.DeleteFilm(ctx, id); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Int64("film_id", id).Msg("film deleted")
	return nil
}

// AddLike records that userID likes filmID. Repeating it is a no-op.
func (s *FilmService) AddLike(ctx context.Context, filmID, userID int64) error {
	ctx, span := s.span(ctx, "AddLike",
		attribute.Int64("film.id", filmID),
		attribute.Int64("user.id", userID),
	)
	defer span.End()

	if err := s.Store.AddLike(ctx, filmID, userID); err != nil {
		return err
	}
	relationMutations.WithLabelValues("like", "add").Inc()
	zerolog.Ctx(ctx).Debug().Int64("film_id", filmID).Int64("user_id", userID).Msg("like added")
	return nil
}

// RemoveLike deletes the like of userID on filmID, or returns
// ErrLikeNotFound when there is none.
func (s *FilmService) RemoveLike(ctx context.Context, filmID, userID int64) error {
	ctx, span := s.span(ctx, "RemoveLike",
		attribute.Int64("film.id", filmID),
		attribute.Int64("user.id", userID),
	)
	defer span.End()

	if err := s.Store.RemoveLike(ctx, filmID, userID); err != nil {
		return err
	}
	relationMutations.WithLabelValues("like", "remove").Inc()
	zerolog.Ctx(ctx).Debug().Int64("film_id", filmID).Int64("user_id", userID).Msg("like removed")
	return nil
}

// TopFilms returns up to n films ordered by like count descending, ties
// broken by ascending film id.
func (s *FilmService) TopFilms(ctx context.Context, n int) ([]domain.FilmView, error) {
	ctx, span := s.span(ctx, "TopFilms", attribute.Int("count", n))
	defer span.End()

	if n < 1 {
		return nil, invalid("count", "must be positive")
	}
	popularQueries.Observe(float64(n))

	ids, err := s.Store.TopFilmIDs(ctx, n)
	if err != nil {
		return nil, err
	}
	films, err := s.Store.GetFilms(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.Assemble.Films(ctx, films)
}
