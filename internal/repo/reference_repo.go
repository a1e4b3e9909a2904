package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/storage"
)

// ListGenres returns the genre catalogue ascending by id.
func ListGenres(ctx context.Context, db *gorm.DB) ([]domain.Genre, error) {
	out := []domain.Genre{}
	err := db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

// GetGenre fetches one genre or storage.ErrGenreNotFound.
func GetGenre(ctx context.Context, db *gorm.DB, id int64) (*domain.Genre, error) {
	var g domain.Genre
	err := db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrGenreNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListRatings returns the MPA rating catalogue ascending by id.
func ListRatings(ctx context.Context, db *gorm.DB) ([]domain.Rating, error) {
	out := []domain.Rating{}
	err := db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

// GetRating fetches one rating or storage.ErrRatingNotFound.
func GetRating(ctx context.Context, db *gorm.DB, id int64) (*domain.Rating, error) {
	var r domain.Rating
	err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrRatingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
