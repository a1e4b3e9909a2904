// Package repo implements the SQLite-backed storage.Store on top of GORM.
// This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business rules, only persistence and query composition.
//
// Error semantics:
//   - A missing user yields storage.ErrUserNotFound.
//   - A UNIQUE violation on email yields storage.ErrDuplicateEmail.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/storage"
)

// CreateUser inserts u with a freshly assigned ID. The email uniqueness check
// and the insert are a single statement, so concurrent creates with the same
// email cannot both succeed.
func CreateUser(ctx context.Context, db *gorm.DB, u domain.User) (*domain.User, error) {
	now := time.Now().UTC()
	u.ID = 0
	u.CreatedAt, u.UpdatedAt = now, now
	if err := db.WithContext(ctx).Create(&u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrDuplicateEmail
		}
		return nil, err
	}
	return &u, nil
}

// UpdateUser overwrites email, login, name and birthday of the user u.ID.
func UpdateUser(ctx context.Context, db *gorm.DB, u domain.User) (*domain.User, error) {
	var out *domain.User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.User{}).
			Where("id = ?", u.ID).
			Updates(map[string]any{
				"email":      u.Email,
				"login":      u.Login,
				"name":       u.Name,
				"birthday":   u.Birthday,
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			if isUniqueViolation(res.Error) {
				return storage.ErrDuplicateEmail
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrUserNotFound
		}
		var err error
		out, err = GetUser(ctx, tx, u.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetUser fetches a single user by id.
func GetUser(ctx context.Context, db *gorm.DB, id int64) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUsers returns the users whose id is in ids, ascending by id.
func GetUsers(ctx context.Context, db *gorm.DB, ids []int64) ([]domain.User, error) {
	out := []domain.User{}
	if len(ids) == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id").
		Find(&out).Error
	return out, err
}

// ListUsers returns every user, ascending by id.
func ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	out := []domain.User{}
	err := db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

// DeleteUser removes the user together with both legs of each of its
// friendships and all of its likes. The cascade is explicit so it does not
// depend on the foreign_keys PRAGMA of the connection.
func DeleteUser(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? OR friend_id = ?", id, id).Delete(&domain.Friendship{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&domain.Like{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrUserNotFound
		}
		return nil
	})
}

// userCount returns how many of ids exist.
func userCount(tx *gorm.DB, ids ...int64) (int64, error) {
	var n int64
	err := tx.Model(&domain.User{}).Where("id IN ?", ids).Count(&n).Error
	return n, err
}

// requireUsers returns storage.ErrUserNotFound unless every id exists.
func requireUsers(tx *gorm.DB, ids ...int64) error {
	distinct := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		distinct[id] = struct{}{}
	}
	n, err := userCount(tx, ids...)
	if err != nil {
		return err
	}
	if n != int64(len(distinct)) {
		return storage.ErrUserNotFound
	}
	return nil
}
