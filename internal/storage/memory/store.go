// Package memory implements storage.Store on process-local maps.
//
// A single RWMutex guards every table, so each operation (including both
// legs of a friendship and identifier assignment) is atomic with respect to
// concurrent readers. Identifiers come from monotonic counters and are never
// reused, even after deletes. Nothing survives a process restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/storage"
)

type set map[int64]struct{}

// Store is the in-memory storage backend. The zero value is not usable;
// construct it with New.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	lastUserID int64
	lastFilmID int64

	users   map[int64]domain.User
	emails  map[string]int64
	films   map[int64]domain.Film
	genres  map[int64]domain.Genre
	ratings map[int64]domain.Rating

	friends map[int64]set // user -> friends
	likes   map[int64]set // film -> users
	liked   map[int64]set // user -> films

	idem map[idemKey]domain.Idempotency
}

type idemKey struct{ scope, key string }

var _ storage.Store = (*Store)(nil)

// New returns an empty store seeded with the default genre and rating
// catalogues.
func New() *Store {
	s := &Store{
		now:     func() time.Time { return time.Now().UTC() },
		users:   make(map[int64]domain.User),
		emails:  make(map[string]int64),
		films:   make(map[int64]domain.Film),
		genres:  make(map[int64]domain.Genre),
		ratings: make(map[int64]domain.Rating),
		friends: make(map[int64]set),
		likes:   make(map[int64]set),
		liked:   make(map[int64]set),
		idem:    make(map[idemKey]domain.Idempotency),
	}
	for _, g := range domain.DefaultGenres() {
		s.genres[g.ID] = g
	}
	for _, r := range domain.DefaultRatings() {
		s.ratings[r.ID] = r
	}
	return s
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

//
// Users
//

// CreateUser implements storage.UserStore.
func (s *Store) CreateUser(_ context.Context, u domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[u.Email]; taken {
		return nil, storage.ErrDuplicateEmail
	}
	s.lastUserID++
	now := s.now()
	u.ID = s.lastUserID
	u.CreatedAt, u.UpdatedAt = now, now

	s.users[u.ID] = u
	s.emails[u.Email] = u.ID
	return &u, nil
}

// UpdateUser implements storage.UserStore.
func (s *Store) UpdateUser(_ context.Context, u domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[u.ID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	if u.Email != cur.Email {
		if owner, taken := s.emails[u.Email]; taken && owner != u.ID {
			return nil, storage.ErrDuplicateEmail
		}
		delete(s.emails, cur.Email)
		s.emails[u.Email] = u.ID
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = s.now()
	s.users[u.ID] = u
	return &u, nil
}

// GetUser implements storage.UserStore.
func (s *Store) GetUser(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &u, nil
}

// GetUsers implements storage.UserStore.
func (s *Store) GetUsers(_ context.Context, ids []int64) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.User, 0, len(ids))
	for _, id := range uniqueSorted(ids) {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// ListUsers implements storage.UserStore.
func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteUser implements storage.UserStore.
func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	for friend := range s.friends[id] {
		delete(s.friends[friend], id)
	}
	for film := range s.liked[id] {
		delete(s.likes[film], id)
	}
	delete(s.friends, id)
	delete(s.liked, id)
	delete(s.emails, u.Email)
	delete(s.users, id)
	return nil
}

//
// Films
//

// CreateFilm implements storage.FilmStore.
func (s *Store) CreateFilm(_ context.Context, f domain.Film) (*domain.Film, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReferences(f); err != nil {
		return nil, err
	}
	s.lastFilmID++
	now := s.now()
	f.ID = s.lastFilmID
	f.GenreIDs = uniqueSorted(f.GenreIDs)
	f.Rating = nil
	f.CreatedAt, f.UpdatedAt = now, now

	s.films[f.ID] = *cloneFilm(f)
	return cloneFilm(f), nil
}

// UpdateFilm implements storage.FilmStore.
func (s *Store) UpdateFilm(_ context.Context, f domain.Film) (*domain.Film, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.films[f.ID]
	if !ok {
		return nil, storage.ErrFilmNotFound
	}
	if err := s.checkReferences(f); err != nil {
		return nil, err
	}
	f.GenreIDs = uniqueSorted(f.GenreIDs)
	f.Rating = nil
	f.CreatedAt = cur.CreatedAt
	f.UpdatedAt = s.now()

	s.films[f.ID] = *cloneFilm(f)
	return cloneFilm(f), nil
}

// GetFilm implements storage.FilmStore.
func (s *Store) GetFilm(_ context.Context, id int64) (*domain.Film, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.films[id]
	if !ok {
		return nil, storage.ErrFilmNotFound
	}
	return cloneFilm(f), nil
}

// GetFilms implements storage.FilmStore.
func (s *Store) GetFilms(_ context.Context, ids []int64) ([]domain.Film, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Film, 0, len(ids))
	for _, id := range ids {
		if f, ok := s.films[id]; ok {
			out = append(out, *cloneFilm(f))
		}
	}
	return out, nil
}

// ListFilms implements storage.FilmStore.
func (s *Store) ListFilms(_ context.Context) ([]domain.Film, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Film, 0, len(s.films))
	for _, f := range s.films {
		out = append(out, *cloneFilm(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteFilm implements storage.FilmStore.
func (s *Store) DeleteFilm(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.films[id]; !ok {
		return storage.ErrFilmNotFound
	}
	for user := range s.likes[id] {
		delete(s.liked[user], id)
	}
	delete(s.likes, id)
	delete(s.films, id)
	return nil
}

// checkReferences must be called with mu held.
func (s *Store) checkReferences(f domain.Film) error {
	if f.RatingID != nil {
		if _, ok := s.ratings[*f.RatingID]; !ok {
			return storage.ErrRatingNotFound
		}
	}
	for _, gid := range f.GenreIDs {
		if _, ok := s.genres[gid]; !ok {
			return storage.ErrGenreNotFound
		}
	}
	return nil
}

//
// Reference data
//

// ListGenres implements storage.ReferenceStore.
func (s *Store) ListGenres(_ context.Context) ([]domain.Genre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Genre, 0, len(s.genres))
	for _, g := range s.genres {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetGenre implements storage.ReferenceStore.
func (s *Store) GetGenre(_ context.Context, id int64) (*domain.Genre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.genres[id]
	if !ok {
		return nil, storage.ErrGenreNotFound
	}
	return &g, nil
}

// ListRatings implements storage.ReferenceStore.
func (s *Store) ListRatings(_ context.Context) ([]domain.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Rating, 0, len(s.ratings))
	for _, r := range s.ratings {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetRating implements storage.ReferenceStore.
func (s *Store) GetRating(_ context.Context, id int64) (*domain.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.ratings[id]
	if !ok {
		return nil, storage.ErrRatingNotFound
	}
	return &r, nil
}

//
// Relationships
//

// AddFriend implements storage.RelationStore.
func (s *Store) AddFriend(_ context.Context, a, b int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUsers(a, b); err != nil {
		return err
	}
	if a == b {
		return nil
	}
	link(s.friends, a, b)
	link(s.friends, b, a)
	return nil
}

// RemoveFriend implements storage.RelationStore.
func (s *Store) RemoveFriend(_ context.Context, a, b int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUsers(a, b); err != nil {
		return err
	}
	delete(s.friends[a], b)
	delete(s.friends[b], a)
	return nil
}

// FriendIDs implements storage.RelationStore.
func (s *Store) FriendIDs(_ context.Context, userIDs ...int64) (map[int64][]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.friends, userIDs), nil
}

// CommonFriendIDs implements storage.RelationStore.
func (s *Store) CommonFriendIDs(_ context.Context, a, b int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []int64{}
	for id := range s.friends[a] {
		if id == a || id == b {
			continue
		}
		if _, ok := s.friends[b][id]; ok {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// AddLike implements storage.RelationStore.
func (s *Store) AddLike(_ context.Context, filmID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.films[filmID]; !ok {
		return storage.ErrFilmNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return storage.ErrUserNotFound
	}
	link(s.likes, filmID, userID)
	link(s.liked, userID, filmID)
	return nil
}

// RemoveLike implements storage.RelationStore.
func (s *Store) RemoveLike(_ context.Context, filmID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.films[filmID]; !ok {
		return storage.ErrFilmNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return storage.ErrUserNotFound
	}
	if _, ok := s.likes[filmID][userID]; !ok {
		return storage.ErrLikeNotFound
	}
	delete(s.likes[filmID], userID)
	delete(s.liked[userID], filmID)
	return nil
}

// LikeIDs implements storage.RelationStore.
func (s *Store) LikeIDs(_ context.Context, filmIDs ...int64) (map[int64][]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.likes, filmIDs), nil
}

// LikedFilmIDs implements storage.RelationStore.
func (s *Store) LikedFilmIDs(_ context.Context, userIDs ...int64) (map[int64][]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.liked, userIDs), nil
}

// TopFilmIDs implements storage.RelationStore.
func (s *Store) TopFilmIDs(_ context.Context, n int) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n < 1 {
		return []int64{}, nil
	}
	ids := make([]int64, 0, len(s.films))
	for id := range s.films {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		li, lj := len(s.likes[ids[i]]), len(s.likes[ids[j]])
		if li != lj {
			return li > lj
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids, nil
}

// requireUsers must be called with mu held.
func (s *Store) requireUsers(ids ...int64) error {
	for _, id := range ids {
		if _, ok := s.users[id]; !ok {
			return storage.ErrUserNotFound
		}
	}
	return nil
}

//
// Idempotency
//

// GetIdempotency implements storage.IdempotencyStore.
func (s *Store) GetIdempotency(_ context.Context, scope, key string, now time.Time) (*domain.Idempotency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.idem[idemKey{scope, key}]
	if !ok || !rec.ExpiresAt.After(now) {
		return nil, storage.ErrNotFound
	}
	return &rec, nil
}

// SaveIdempotency implements storage.IdempotencyStore.
func (s *Store) SaveIdempotency(_ context.Context, scope, key string, resourceID int64, status int, ttl time.Duration) (*domain.Idempotency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	k := idemKey{scope, key}
	if rec, ok := s.idem[k]; ok && rec.ExpiresAt.After(now) {
		return nil, storage.ErrDuplicateKey
	}
	rec := domain.Idempotency{
		ID:         uuid.NewString(),
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	s.idem[k] = rec
	return &rec, nil
}

// PurgeExpiredIdempotency implements storage.IdempotencyStore.
func (s *Store) PurgeExpiredIdempotency(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, rec := range s.idem {
		if !rec.ExpiresAt.After(now) {
			delete(s.idem, k)
			n++
		}
	}
	return n, nil
}

//
// helpers
//

func link(m map[int64]set, from, to int64) {
	members, ok := m[from]
	if !ok {
		members = make(set)
		m[from] = members
	}
	members[to] = struct{}{}
}

func collect(m map[int64]set, ids []int64) map[int64][]int64 {
	out := make(map[int64][]int64, len(ids))
	for _, id := range ids {
		members := make([]int64, 0, len(m[id]))
		for member := range m[id] {
			members = append(members, member)
		}
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		out[id] = members
	}
	return out
}

// uniqueSorted returns a sorted copy of ids without duplicates. It never
// returns nil.
func uniqueSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(set, len(ids))
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

func cloneFilm(f domain.Film) *domain.Film {
	f.GenreIDs = append([]int64{}, f.GenreIDs...)
	if f.RatingID != nil {
		id := *f.RatingID
		f.RatingID = &id
	}
	return &f
}
