package services

import (
	"context"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/storage"
)

// ReferenceService exposes the read-only genre and MPA rating catalogues.
type ReferenceService struct {
	Store storage.ReferenceStore
}

func (s *ReferenceService) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	return s.Store.ListGenres(ctx)
}

func (s *ReferenceService) GetGenre(ctx context.Context, id int64) (*domain.Genre, error) {
	return s.Store.GetGenre(ctx, id)
}

func (s *ReferenceService) ListRatings(ctx context.Context) ([]domain.Rating, error) {
	return s.Store.ListRatings(ctx)
}

func (s *ReferenceService) GetRating(ctx context.Context, id int64) (*domain.Rating, error) {
	return s.Store.GetRating(ctx, id)
}
