package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/storage"
)

// Store adapts the repository functions to storage.Store.
type Store struct {
	DB *gorm.DB
}

var _ storage.Store = (*Store)(nil)

// NewStore wraps an already migrated and seeded database handle.
func NewStore(db *gorm.DB) *Store { return &Store{DB: db} }

// Open opens the SQLite database at path, migrates the schema and seeds the
// reference catalogues.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, err
	}
	if err := Seed(ctx, db); err != nil {
		closeDB(db)
		return nil, err
	}
	return NewStore(db), nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	return CreateUser(ctx, s.DB, u)
}

func (s *Store) UpdateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	return UpdateUser(ctx, s.DB, u)
}

func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return GetUser(ctx, s.DB, id)
}

func (s *Store) GetUsers(ctx context.Context, ids []int64) ([]domain.User, error) {
	return GetUsers(ctx, s.DB, ids)
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	return ListUsers(ctx, s.DB)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return DeleteUser(ctx, s.DB, id)
}

func (s *Store) CreateFilm(ctx context.Context, f domain.Film) (*domain.Film, error) {
	return CreateFilm(ctx, s.DB, f)
}

func (s *Store) UpdateFilm(ctx context.Context, f domain.Film) (*domain.Film, error) {
	return UpdateFilm(ctx, s.DB, f)
}

func (s *Store) GetFilm(ctx context.Context, id int64) (*domain.Film, error) {
	return GetFilm(ctx, s.DB, id)
}

func (s *Store) GetFilms(ctx context.Context, ids []int64) ([]domain.Film, error) {
	return GetFilms(ctx, s.DB, ids)
}

func (s *Store) ListFilms(ctx context.Context) ([]domain.Film, error) {
	return ListFilms(ctx, s.DB)
}

func (s *Store) DeleteFilm(ctx context.Context, id int64) error {
	return DeleteFilm(ctx, s.DB, id)
}

func (s *Store) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	return ListGenres(ctx, s.DB)
}

func (s *Store) GetGenre(ctx context.Context, id int64) (*domain.Genre, error) {
	return GetGenre(ctx, s.DB, id)
}

func (s *Store) ListRatings(ctx context.Context) ([]domain.Rating, error) {
	return ListRatings(ctx, s.DB)
}

func (s *Store) GetRating(ctx context.Context, id int64) (*domain.Rating, error) {
	return GetRating(ctx, s.DB, id)
}

func (s *Store) AddFriend(ctx context.Context, a, b int64) error {
	return AddFriend(ctx, s.DB, a, b)
}

func (s *Store) RemoveFriend(ctx context.Context, a, b int64) error {
	return RemoveFriend(ctx, s.DB, a, b)
}

func (s *Store) FriendIDs(ctx context.Context, userIDs ...int64) (map[int64][]int64, error) {
	return FriendIDs(ctx, s.DB, userIDs...)
}

func (s *Store) CommonFriendIDs(ctx context.Context, a, b int64) ([]int64, error) {
	return CommonFriendIDs(ctx, s.DB, a, b)
}

func (s *Store) AddLike(ctx context.Context, filmID, userID int64) error {
	return AddLike(ctx, s.DB, filmID, userID)
}

func (s *Store) RemoveLike(ctx context.Context, filmID, userID int64) error {
	return RemoveLike(ctx, s.DB, filmID, userID)
}

func (s *Store) LikeIDs(ctx context.Context, filmIDs ...int64) (map[int64][]int64, error) {
	return LikeIDs(ctx, s.DB, filmIDs...)
}

func (s *Store) LikedFilmIDs(ctx context.Context, userIDs ...int64) (map[int64][]int64, error) {
	return LikedFilmIDs(ctx, s.DB, userIDs...)
}

func (s *Store) TopFilmIDs(ctx context.Context, n int) ([]int64, error) {
	return TopFilmIDs(ctx, s.DB, n)
}

func (s *Store) GetIdempotency(ctx context.Context, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return GetIdempotency(ctx, s.DB, scope, key, now)
}

func (s *Store) SaveIdempotency(ctx context.Context, scope, key string, resourceID int64, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return CreateIdempotency(ctx, s.DB, scope, key, resourceID, status, ttl)
}

func (s *Store) PurgeExpiredIdempotency(ctx context.Context, now time.Time) (int64, error) {
	return PurgeExpiredIdempotency(ctx, s.DB, now)
}
