// Package repo implements the SQLite-backed storage.Store on top of GORM.
// This file provides repository functions for the friendship and like
// relations and the popularity ranking built on them.
//
// A friendship is stored as two rows, (a,b) and (b,a), which are always
// inserted and deleted in the same transaction. Inserts use ON CONFLICT DO
// NOTHING so that repeating an add is a no-op.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/storage"
)

// AddFriend makes a and b friends of each other.
func AddFriend(ctx context.Context, db *gorm.DB, a, b int64) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUsers(tx, a, b); err != nil {
			return err
		}
		if a == b {
			return nil
		}
		now := time.Now().UTC()
		rows := []domain.Friendship{
			{UserID: a, FriendID: b, CreatedAt: now},
			{UserID: b, FriendID: a, CreatedAt: now},
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Omit(clause.Associations).
			Create(&rows).Error
	})
}

// RemoveFriend deletes both legs of the friendship between a and b.
func RemoveFriend(ctx context.Context, db *gorm.DB, a, b int64) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUsers(tx, a, b); err != nil {
			return err
		}
		return tx.
			Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", a, b, b, a).
			Delete(&domain.Friendship{}).Error
	})
}

// FriendIDs returns the friend ids of each requested user, ascending.
func FriendIDs(ctx context.Context, db *gorm.DB, userIDs ...int64) (map[int64][]int64, error) {
	out := emptyIndex(userIDs)
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []domain.Friendship
	err := db.WithContext(ctx).
		Select("user_id", "friend_id").
		Where("user_id IN ?", userIDs).
		Order("user_id, friend_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.UserID] = append(out[r.UserID], r.FriendID)
	}
	return out, nil
}

// CommonFriendIDs returns the users befriended by both a and b, ascending.
// Neither a nor b is ever part of the result.
func CommonFriendIDs(ctx context.Context, db *gorm.DB, a, b int64) ([]int64, error) {
	out := []int64{}
	err := db.WithContext(ctx).
		Table("friendships AS f1").
		Joins("JOIN friendships AS f2 ON f2.friend_id = f1.friend_id").
		Where("f1.user_id = ? AND f2.user_id = ?", a, b).
		Where("f1.friend_id NOT IN ?", []int64{a, b}).
		Order("f1.friend_id").
		Pluck("f1.friend_id", &out).Error
	return out, err
}

// AddLike records that userID likes filmID.
func AddLike(ctx context.Context, db *gorm.DB, filmID, userID int64) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireLikeParties(tx, filmID, userID); err != nil {
			return err
		}
		like := domain.Like{FilmID: filmID, UserID: userID, CreatedAt: time.Now().UTC()}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Omit(clause.Associations).
			Create(&like).Error
	})
}

// RemoveLike deletes the like of userID on filmID.
func RemoveLike(ctx context.Context, db *gorm.DB, filmID, userID int64) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireLikeParties(tx, filmID, userID); err != nil {
			return err
		}
		res := tx.Where("film_id = ? AND user_id = ?", filmID, userID).Delete(&domain.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrLikeNotFound
		}
		return nil
	})
}

// LikeIDs returns, per film, the ids of the users who liked it.
func LikeIDs(ctx context.Context, db *gorm.DB, filmIDs ...int64) (map[int64][]int64, error) {
	out := emptyIndex(filmIDs)
	if len(filmIDs) == 0 {
		return out, nil
	}
	var rows []domain.Like
	err := db.WithContext(ctx).
		Select("film_id", "user_id").
		Where("film_id IN ?", filmIDs).
		Order("film_id, user_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.FilmID] = append(out[r.FilmID], r.UserID)
	}
	return out, nil
}

// LikedFilmIDs returns, per user, the ids of the films the user liked.
func LikedFilmIDs(ctx context.Context, db *gorm.DB, userIDs ...int64) (map[int64][]int64, error) {
	out := emptyIndex(userIDs)
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []domain.Like
	err := db.WithContext(ctx).
		Select("film_id", "user_id").
		Where("user_id IN ?", userIDs).
		Order("user_id, film_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.UserID] = append(out[r.UserID], r.FilmID)
	}
	return out, nil
}

// TopFilmIDs returns up to n film ids ordered by like count descending, ties
// broken by ascending id. Films without likes rank last.
func TopFilmIDs(ctx context.Context, db *gorm.DB, n int) ([]int64, error) {
	out := []int64{}
	if n < 1 {
		return out, nil
	}
	err := db.WithContext(ctx).
		Model(&domain.Film{}).
		Joins("LEFT JOIN likes ON likes.film_id = films.id").
		Group("films.id").
		Order("COUNT(likes.user_id) DESC, films.id ASC").
		Limit(n).
		Pluck("films.id", &out).Error
	return out, err
}

func requireLikeParties(tx *gorm.DB, filmID, userID int64) error {
	var n int64
	if err := tx.Model(&domain.Film{}).Where("id = ?", filmID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrFilmNotFound
	}
	return requireUsers(tx, userID)
}

func emptyIndex(ids []int64) map[int64][]int64 {
	out := make(map[int64][]int64, len(ids))
	for _, id := range ids {
		out[id] = []int64{}
	}
	return out
}
