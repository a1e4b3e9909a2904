// Package repo implements the SQLite-backed storage.Store on top of GORM.
// This file provides repository functions for the Film model and its genre
// associations.
//
// Rating and genre references are verified inside the same transaction as
// the write; a failed check rolls the whole operation back, so a film never
// points at a missing reference row.
package repo

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/storage"
)

// CreateFilm inserts f and its genre associations.
func CreateFilm(ctx context.Context, db *gorm.DB, f domain.Film) (*domain.Film, error) {
	now := time.Now().UTC()
	f.ID = 0
	f.Rating = nil
	f.GenreIDs = uniqueSorted(f.GenreIDs)
	f.CreatedAt, f.UpdatedAt = now, now

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkFilmReferences(tx, f); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&f).Error; err != nil {
			return err
		}
		return insertFilmGenres(tx, f.ID, f.GenreIDs)
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateFilm overwrites the film f.ID and replaces its genre set.
func UpdateFilm(ctx context.Context, db *gorm.DB, f domain.Film) (*domain.Film, error) {
	f.GenreIDs = uniqueSorted(f.GenreIDs)

	var out *domain.Film
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Film{}).Where("id = ?", f.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return storage.ErrFilmNotFound
		}
		if err := checkFilmReferences(tx, f); err != nil {
			return err
		}
		res := tx.Model(&domain.Film{}).
			Where("id = ?", f.ID).
			Updates(map[string]any{
				"name":         f.Name,
				"description":  f.Description,
				"release_date": f.ReleaseDate,
				"duration":     f.Duration,
				"rating_id":    f.RatingID,
				"updated_at":   time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Where("film_id = ?", f.ID).Delete(&domain.FilmGenre{}).Error; err != nil {
			return err
		}
		if err := insertFilmGenres(tx, f.ID, f.GenreIDs); err != nil {
			return err
		}
		var err error
		out, err = GetFilm(ctx, tx, f.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetFilm fetches a film by id with its GenreIDs populated.
func GetFilm(ctx context.Context, db *gorm.DB, id int64) (*domain.Film, error) {
	var f domain.Film
	err := db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrFilmNotFound
	}
	if err != nil {
		return nil, err
	}
	genres, err := filmGenreIDs(ctx, db, id)
	if err != nil {
		return nil, err
	}
	f.GenreIDs = genres[id]
	return &f, nil
}

// GetFilms returns the films whose id is in ids, in the order requested.
// Unknown ids are skipped.
func GetFilms(ctx context.Context, db *gorm.DB, ids []int64) ([]domain.Film, error) {
	if len(ids) == 0 {
		return []domain.Film{}, nil
	}
	var rows []domain.Film
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	if err := attachGenres(ctx, db, rows); err != nil {
		return nil, err
	}

	byID := make(map[int64]domain.Film, len(rows))
	for _, f := range rows {
		byID[f.ID] = f
	}
	out := make([]domain.Film, 0, len(rows))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// ListFilms returns every film, ascending by id.
func ListFilms(ctx context.Context, db *gorm.DB) ([]domain.Film, error) {
	out := []domain.Film{}
	if err := db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	if err := attachGenres(ctx, db, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteFilm removes the film, its likes and its genre associations.
func DeleteFilm(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("film_id = ?", id).Delete(&domain.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("film_id = ?", id).Delete(&domain.FilmGenre{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Film{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrFilmNotFound
		}
		return nil
	})
}

// checkFilmReferences verifies that the rating and every genre of f exist.
func checkFilmReferences(tx *gorm.DB, f domain.Film) error {
	if f.RatingID != nil {
		var n int64
		if err := tx.Model(&domain.Rating{}).Where("id = ?", *f.RatingID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return storage.ErrRatingNotFound
		}
	}
	if len(f.GenreIDs) > 0 {
		var n int64
		if err := tx.Model(&domain.Genre{}).Where("id IN ?", f.GenreIDs).Count(&n).Error; err != nil {
			return err
		}
		// GenreIDs is de-duplicated by the callers.
		if n != int64(len(f.GenreIDs)) {
			return storage.ErrGenreNotFound
		}
	}
	return nil
}

func insertFilmGenres(tx *gorm.DB, filmID int64, genreIDs []int64) error {
	if len(genreIDs) == 0 {
		return nil
	}
	rows := make([]domain.FilmGenre, 0, len(genreIDs))
	for _, gid := range genreIDs {
		rows = append(rows, domain.FilmGenre{FilmID: filmID, GenreID: gid})
	}
	return tx.Omit(clause.Associations).Create(&rows).Error
}

// filmGenreIDs returns, for each requested film, its genre ids ascending.
// Every requested id gets a non-nil slice.
func filmGenreIDs(ctx context.Context, db *gorm.DB, filmIDs ...int64) (map[int64][]int64, error) {
	out := make(map[int64][]int64, len(filmIDs))
	for _, id := range filmIDs {
		out[id] = []int64{}
	}
	if len(filmIDs) == 0 {
		return out, nil
	}
	var rows []domain.FilmGenre
	err := db.WithContext(ctx).
		Select("film_id", "genre_id").
		Where("film_id IN ?", filmIDs).
		Order("film_id, genre_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.FilmID] = append(out[r.FilmID], r.GenreID)
	}
	return out, nil
}

func attachGenres(ctx context.Context, db *gorm.DB, films []domain.Film) error {
	ids := make([]int64, len(films))
	for i := range films {
		ids[i] = films[i].ID
	}
	genres, err := filmGenreIDs(ctx, db, ids...)
	if err != nil {
		return err
	}
	for i := range films {
		films[i].GenreIDs = genres[films[i].ID]
	}
	return nil
}

// uniqueSorted returns a sorted copy of ids without duplicates. It never
// returns nil.
func uniqueSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
