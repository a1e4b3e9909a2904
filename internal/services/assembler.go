// Package services – Assembler
//
// Assembler joins stored rows with their relationship sets and reference
// rows to produce the domain.UserView and domain.FilmView resources. Batch
// readers are used so a listing costs a fixed number of store calls however
// many rows it holds. Every collection in a view is non-nil.
package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/storage"
)

// Assembler builds views from a storage.Store.
type Assembler struct {
	Store storage.Store
}

// User assembles a single user view.
func (a *Assembler) User(ctx context.Context, u domain.User) (*domain.UserView, error) {
	views, err := a.Users(ctx, []domain.User{u})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Users assembles user views, preserving the order of users.
func (a *Assembler) Users(ctx context.Context, users []domain.User) ([]domain.UserView, error) {
	out := make([]domain.UserView, 0, len(users))
	if len(users) == 0 {
		return out, nil
	}
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	friends, err := a.Store.FriendIDs(ctx, ids...)
	if err != nil {
		return nil, err
	}
	liked, err := a.Store.LikedFilmIDs(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out = append(out, domain.UserView{
			ID:         u.ID,
			Email:      u.Email,
			Login:      u.Login,
			Name:       u.Name,
			Birthday:   u.Birthday,
			Friends:    nonNil(friends[u.ID]),
			LikedFilms: nonNil(liked[u.ID]),
		})
	}
	return out, nil
}

// Film assembles a single film view.
func (a *Assembler) Film(ctx context.Context, f domain.Film) (*domain.FilmView, error) {
	views, err := a.Films(ctx, []domain.Film{f})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Films assembles film views, preserving the order of films. A rating or
// genre id that does not resolve fails the whole assembly.
func (a *Assembler) Films(ctx context.Context, films []domain.Film) ([]domain.FilmView, error) {
	out := make([]domain.FilmView, 0, len(films))
	if len(films) == 0 {
		return out, nil
	}

	ratings, err := a.ratingIndex(ctx)
	if err != nil {
		return nil, err
	}
	genres, err := a.genreIndex(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(films))
	for i, f := range films {
		ids[i] = f.ID
	}
	likes, err := a.Store.LikeIDs(ctx, ids...)
	if err != nil {
		return nil, err
	}

	for _, f := range films {
		v := domain.FilmView{
			ID:          f.ID,
			Name:        f.Name,
			Description: f.Description,
			ReleaseDate: f.ReleaseDate,
			Duration:    f.Duration,
			Genres:      make([]domain.Genre, 0, len(f.GenreIDs)),
			Likes:       nonNil(likes[f.ID]),
		}
		if f.RatingID != nil {
			r, ok := ratings[*f.RatingID]
			if !ok {
				return nil, fmt.Errorf("film %d: %w", f.ID, ErrRatingNotFound)
			}
			v.Mpa = &r
		}
		for _, gid := range f.GenreIDs {
			g, ok := genres[gid]
			if !ok {
				return nil, fmt.Errorf("film %d: %w", f.ID, ErrGenreNotFound)
			}
			v.Genres = append(v.Genres, g)
		}
		sort.Slice(v.Genres, func(i, j int) bool { return v.Genres[i].ID < v.Genres[j].ID })
		out = append(out, v)
	}
	return out, nil
}

// The reference catalogues are small and immutable, so they are read whole.
func (a *Assembler) ratingIndex(ctx context.Context) (map[int64]domain.Rating, error) {
	rows, err := a.Store.ListRatings(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[int64]domain.Rating, len(rows))
	for _, r := range rows {
		idx[r.ID] = r
	}
	return idx, nil
}

func (a *Assembler) genreIndex(ctx context.Context) (map[int64]domain.Genre, error) {
	rows, err := a.Store.ListGenres(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[int64]domain.Genre, len(rows))
	for _, g := range rows {
		idx[g.ID] = g
	}
	return idx, nil
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
