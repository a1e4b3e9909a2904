// Package storagetest holds the behavioural contract every storage.Store
// implementation must pass. Backends call Run from their own tests.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/storage"
)

// Factory returns a fresh, seeded, empty store for one subtest.
type Factory func(t *testing.T) storage.Store

// Run executes the whole contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"UserIDsAreMonotonic", testUserIDsAreMonotonic},
		{"EmailIsUnique", testEmailIsUnique},
		{"UpdateUser", testUpdateUser},
		{"GetUsersSkipsUnknown", testGetUsersSkipsUnknown},
		{"DeleteUserCascades", testDeleteUserCascades},
		{"FilmReferencesCheckedBeforeWrite", testFilmReferencesCheckedBeforeWrite},
		{"FilmGenresRoundTrip", testFilmGenresRoundTrip},
		{"UpdateFilm", testUpdateFilm},
		{"GetFilmsKeepsOrder", testGetFilmsKeepsOrder},
		{"DeleteFilmCascades", testDeleteFilmCascades},
		{"ReferenceCatalogues", testReferenceCatalogues},
		{"FriendshipIsSymmetric", testFriendshipIsSymmetric},
		{"FriendshipRequiresUsers", testFriendshipRequiresUsers},
		{"CommonFriends", testCommonFriends},
		{"LikesAreIdempotent", testLikesAreIdempotent},
		{"RemoveLike", testRemoveLike},
		{"TopFilmsRanking", testTopFilmsRanking},
		{"Idempotency", testIdempotency},
		{"PurgeExpiredIdempotency", testPurgeExpiredIdempotency},
		{"ConcurrentFriendships", testConcurrentFriendships},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

//
// fixtures
//

func mkUser(t *testing.T, s storage.Store, email string) *domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), domain.User{
		Email:    email,
		Login:    "login",
		Name:     "Name",
		Birthday: domain.NewDate(1990, time.May, 17),
	})
	require.NoError(t, err)
	return u
}

func mkFilm(t *testing.T, s storage.Store, name string, genres ...int64) *domain.Film {
	t.Helper()
	rating := int64(1)
	f, err := s.CreateFilm(context.Background(), domain.Film{
		Name:        name,
		Description: "desc",
		ReleaseDate: domain.NewDate(2000, time.January, 1),
		Duration:    100,
		RatingID:    &rating,
		GenreIDs:    genres,
	})
	require.NoError(t, err)
	return f
}

//
// users
//

func testUserIDsAreMonotonic(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mkUser(t, s, "a@x.io")
	b := mkUser(t, s, "b@x.io")
	require.Greater(t, a.ID, int64(0))
	require.Greater(t, b.ID, a.ID)

	require.NoError(t, s.DeleteUser(ctx, b.ID))
	c := mkUser(t, s, "c@x.io")
	require.Greater(t, c.ID, b.ID, "ids must not be reused after delete")
}

func testEmailIsUnique(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mkUser(t, s, "a@x.io")

	_, err := s.CreateUser(ctx, domain.User{Email: "a@x.io", Login: "other", Name: "o"})
	require.ErrorIs(t, err, storage.ErrDuplicateEmail)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, a.ID, users[0].ID)

	// Case-sensitive comparison.
	_, err = s.CreateUser(ctx, domain.User{Email: "A@x.io", Login: "upper", Name: "u"})
	require.NoError(t, err)
}

func testUpdateUser(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mkUser(t, s, "a@x.io")
	b := mkUser(t, s, "b@x.io")

	// Same email on the same user is not a collision.
	a.Name = "Renamed"
	got, err := s.UpdateUser(ctx, *a)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Name)

	a.Email = b.Email
	_, err = s.UpdateUser(ctx, *a)
	require.ErrorIs(t, err, storage.ErrDuplicateEmail)

	a.Email = "new@x.io"
	_, err = s.UpdateUser(ctx, *a)
	require.NoError(t, err)

	// The old address is free again.
	_, err = s.CreateUser(ctx, domain.User{Email: "a@x.io", Login: "again", Name: "again"})
	require.NoError(t, err)

	_, err = s.UpdateUser(ctx, domain.User{ID: 9999, Email: "z@x.io", Login: "z", Name: "z"})
	require.ErrorIs(t, err, storage.ErrUserNotFound)
	require.ErrorIs(t, err, storage.ErrNotFound)

	stored, err := s.GetUser(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "new@x.io", stored.Email)
	require.Equal(t, "1990-05-17", stored.Birthday.String())
}

func testGetUsersSkipsUnknown(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mkUser(t, s, "a@x.io")
	b := mkUser(t, s, "b@x.io")

	got, err := s.GetUsers(ctx, []int64{b.ID, 777, a.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, a.ID, got[0].ID)
	require.Equal(t, b.ID, got[1].ID)

	got, err = s.GetUsers(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = s.GetUser(ctx, 777)
	require.ErrorIs(t, err, storage.ErrUserNotFound)
}

func testDeleteUserCascades(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mkUser(t, s, "a@x.io")
	b := mkUser(t, s, "b@x.io")
	f := mkFilm(t, s, "F")

	require.NoError(t, s.AddFriend(ctx, a.ID, b.ID))
	require.NoError(t, s.AddLike(ctx, f.ID, a.ID))

	require.NoError(t, s.DeleteUser(ctx, a.ID))
	require.ErrorIs(t, s.DeleteUser(ctx, a.ID), storage.ErrUserNotFound)

	friends, err := s.FriendIDs(ctx, b.ID)
	require.NoError(t, err)
	require.Empty(t, friends[b.ID])

	likes, err := s.LikeIDs(ctx, f.ID)
	require.NoError(t, err)
	require.Empty(t, likes[f.ID])

	// The email is released.
	mkUser(t, s, "a@x.io")
}

//
// films
//

func testFilmReferencesCheckedBeforeWrite(t *testing.T, s storage.Store) {
	ctx := context.Background()
	bad := int64(99)
	film := domain.Film{
		Name:        "F",
		ReleaseDate: domain.NewDate(2000, time.January, 1),
		Duration:    90,
		RatingID:    &bad,
	}
	_, err := s.CreateFilm(ctx, film)
	require.ErrorIs(t, err, storage.ErrRatingNotFound)
	require.ErrorIs(t, err, storage.ErrReferenceNotFound)

	film.RatingID = nil
	film.GenreIDs = []int64{1, 42}
	_, err = s.CreateFilm(ctx, film)
	require.ErrorIs(t, err, storage.ErrGenreNotFound)

	films, err := s.ListFilms(ctx)
	require.NoError(t, err)
	require.Empty(t, films, "failed creates must not persist")

	// A film without a rating is allowed.
	film.GenreIDs = nil
	created, err := s.CreateFilm(ctx, film)
	require.NoError(t, err)
	require.Nil(t, created.RatingID)
	require.NotNil(t, created.GenreIDs)
}

func testFilmGenresRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := mkFilm(t, s, "F", 3, 1, 3)
	require.Equal(t, []int64{1, 3}, f.GenreIDs)

	got, err := s.GetFilm(ctx, f.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3}, got.GenreIDs)
	require.NotNil(t, got.RatingID)
	require.Equal(t, int64(1), *got.RatingID)
	require.Equal(t, "2000-01-01", got.ReleaseDate.String())

	_, err = s.GetFilm(ctx, f.ID+100)
	require.ErrorIs(t, err, storage.ErrFilmNotFound)
}

func testUpdateFilm(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := mkFilm(t, s, "F", 1, 2)

	upd := *f
	upd.Name = "G"
	upd.GenreIDs = []int64{6}
	got, err := s.UpdateFilm(ctx, upd)
	require.NoError(t, err)
	require.Equal(t, "G", got.Name)
	require.Equal(t, []int64{6}, got.GenreIDs)

	bad := upd
	bad.GenreIDs = []int64{77}
	_, err = s.UpdateFilm(ctx, bad)
	require.ErrorIs(t, err, storage.ErrGenreNotFound)

	stored, err := s.GetFilm(ctx, f.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{6}, stored.GenreIDs, "failed update must not touch genres")

	missing := upd
	missing.ID = 12345
	_, err = s.UpdateFilm(ctx, missing)
	require.ErrorIs(t, err, storage.ErrFilmNotFound)
}

func testGetFilmsKeepsOrder(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mkFilm(t, s, "A")
	b := mkFilm(t, s, "B", 2)
	c := mkFilm(t, s, "C")

	got, err := s.GetFilms(ctx, []int64{c.ID, 999, a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []int64{c.ID, a.ID, b.ID}, []int64{got[0].ID, got[1].ID, got[2].ID})
	require.Equal(t, []int64{2}, got[2].GenreIDs)
}

func testDeleteFilmCascades(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := mkUser(t, s, "a@x.io")
	f := mkFilm(t, s, "F", 1)
	require.NoError(t, s.AddLike(ctx, f.ID, u.ID))

	require.NoError(t, s.DeleteFilm(ctx, f.ID))
	require.ErrorIs(t, s.DeleteFilm(ctx, f.ID), storage.ErrFilmNotFound)

	liked, err := s.LikedFilmIDs(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, liked[u.ID])

	g := mkFilm(t, s, "G")
	require.Greater(t, g.ID, f.ID)
}

//
// reference data
//

func testReferenceCatalogues(t *testing.T, s storage.Store) {
	ctx := context.Background()

	genres, err := s.ListGenres(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultGenres(), genres)

	ratings, err := s.ListRatings(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultRatings(), ratings)

	g, err := s.GetGenre(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "Drama", g.Name)
	_, err = s.GetGenre(ctx, 100)
	require.ErrorIs(t, err, storage.ErrGenreNotFound)

	r, err := s.GetRating(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, "PG-13", r.Name)
	_, err = s.GetRating(ctx, 100)
	require.ErrorIs(t, err, storage.ErrRatingNotFound)
}

//
// relationships
//

func testFriendshipIsSymmetric(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mkUser(t, s, "a@x.io")
	b := mkUser(t, s, "b@x.io")
	c := mkUser(t, s, "c@x.io")

	require.NoError(t, s.AddFriend(ctx, a.ID, b.ID))
	require.NoError(t, s.AddFriend(ctx, a.ID, b.ID))
	require.NoError(t, s.AddFriend(ctx, b.ID, a.ID))
	require.NoError(t, s.AddFriend(ctx, c.ID, a.ID))

	got, err := s.FriendIDs(ctx, a.ID, b.ID, c.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{b.ID, c.ID}, got[a.ID])
	require.Equal(t, []int64{a.ID}, got[b.ID])
	require.Equal(t, []int64{a.ID}, got[c.ID])

	require.NoError(t, s.RemoveFriend(ctx, b.ID, a.ID))
	got, err = s.FriendIDs(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{c.ID}, got[a.ID])
	require.NotNil(t, got[b.ID])
	require.Empty(t, got[b.ID])

	// Removing an absent friendship is a no-op.
	require.NoError(t, s.RemoveFriend(ctx, a.ID, b.ID))
}

func testFriendshipRequiresUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mkUser(t, s, "a@x.io")

	require.ErrorIs(t, s.AddFriend(ctx, a.ID, 404), storage.ErrUserNotFound)
	require.ErrorIs(t, s.AddFriend(ctx, 404, a.ID), storage.ErrUserNotFound)
	require.ErrorIs(t, s.RemoveFriend(ctx, a.ID, 404), storage.ErrUserNotFound)

	got, err := s.FriendIDs(ctx, a.ID)
	require.NoError(t, err)
	require.Empty(t, got[a.ID])
}

func testCommonFriends(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mkUser(t, s, "a@x.io")
	b := mkUser(t, s, "b@x.io")
	c := mkUser(t, s, "c@x.io")
	d := mkUser(t, s, "d@x.io")

	require.NoError(t, s.AddFriend(ctx, a.ID, c.ID))
	require.NoError(t, s.AddFriend(ctx, b.ID, c.ID))
	require.NoError(t, s.AddFriend(ctx, a.ID, d.ID))
	require.NoError(t, s.AddFriend(ctx, a.ID, b.ID))

	common, err := s.CommonFriendIDs(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{c.ID}, common, "a and b must not appear in their own intersection")

	common, err = s.CommonFriendIDs(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{c.ID}, common)

	common, err = s.CommonFriendIDs(ctx, c.ID, d.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{a.ID}, common)
}

func testLikesAreIdempotent(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := mkUser(t, s, "a@x.io")
	v := mkUser(t, s, "b@x.io")
	f := mkFilm(t, s, "F")

	require.NoError(t, s.AddLike(ctx, f.ID, u.ID))
	require.NoError(t, s.AddLike(ctx, f.ID, u.ID))
	require.NoError(t, s.AddLike(ctx, f.ID, v.ID))

	likes, err := s.LikeIDs(ctx, f.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{u.ID, v.ID}, likes[f.ID])

	liked, err := s.LikedFilmIDs(ctx, u.ID, v.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{f.ID}, liked[u.ID])
	require.Equal(t, []int64{f.ID}, liked[v.ID])

	require.ErrorIs(t, s.AddLike(ctx, 999, u.ID), storage.ErrFilmNotFound)
	require.ErrorIs(t, s.AddLike(ctx, f.ID, 999), storage.ErrUserNotFound)
}

func testRemoveLike(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := mkUser(t, s, "a@x.io")
	f := mkFilm(t, s, "F")

	require.ErrorIs(t, s.RemoveLike(ctx, f.ID, u.ID), storage.ErrLikeNotFound)
	require.NoError(t, s.AddLike(ctx, f.ID, u.ID))
	require.NoError(t, s.RemoveLike(ctx, f.ID, u.ID))
	require.ErrorIs(t, s.RemoveLike(ctx, f.ID, u.ID), storage.ErrLikeNotFound)

	require.ErrorIs(t, s.RemoveLike(ctx, 999, u.ID), storage.ErrFilmNotFound)
	require.ErrorIs(t, s.RemoveLike(ctx, f.ID, 999), storage.ErrUserNotFound)
}

func testTopFilmsRanking(t *testing.T, s storage.Store) {
	ctx := context.Background()

	top, err := s.TopFilmIDs(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, top)

	u1 := mkUser(t, s, "1@x.io")
	u2 := mkUser(t, s, "2@x.io")
	f1 := mkFilm(t, s, "F1")
	f2 := mkFilm(t, s, "F2")
	f3 := mkFilm(t, s, "F3")
	f4 := mkFilm(t, s, "F4")

	require.NoError(t, s.AddLike(ctx, f3.ID, u1.ID))
	require.NoError(t, s.AddLike(ctx, f3.ID, u2.ID))
	require.NoError(t, s.AddLike(ctx, f2.ID, u1.ID))
	require.NoError(t, s.AddLike(ctx, f4.ID, u2.ID))

	top, err = s.TopFilmIDs(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []int64{f3.ID, f2.ID, f4.ID, f1.ID}, top)

	top, err = s.TopFilmIDs(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []int64{f3.ID, f2.ID}, top)

	// Deterministic across calls.
	again, err := s.TopFilmIDs(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, top, again)
}

//
// idempotency
//

func testIdempotency(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.GetIdempotency(ctx, "users", "k1", time.Now().UTC())
	require.ErrorIs(t, err, storage.ErrNotFound)

	rec, err := s.SaveIdempotency(ctx, "users", "k1", 7, 201, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)

	got, err := s.GetIdempotency(ctx, "users", "k1", time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, int64(7), got.ResourceID)
	require.Equal(t, 201, got.Status)

	_, err = s.SaveIdempotency(ctx, "users", "k1", 8, 201, time.Hour)
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Scopes are independent.
	_, err = s.GetIdempotency(ctx, "films", "k1", time.Now().UTC())
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Expired records are invisible.
	_, err = s.GetIdempotency(ctx, "users", "k1", time.Now().UTC().Add(2*time.Hour))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func testPurgeExpiredIdempotency(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.SaveIdempotency(ctx, "users", "short", 1, 201, time.Minute)
	require.NoError(t, err)
	_, err = s.SaveIdempotency(ctx, "users", "long", 2, 201, 24*time.Hour)
	require.NoError(t, err)

	n, err := s.PurgeExpiredIdempotency(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = s.GetIdempotency(ctx, "users", "long", time.Now().UTC())
	require.NoError(t, err)
	_, err = s.GetIdempotency(ctx, "users", "short", time.Now().UTC())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func testConcurrentFriendships(t *testing.T, s storage.Store) {
	ctx := context.Background()
	hub := mkUser(t, s, "hub@x.io")

	const n = 8
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = mkUser(t, s, fmt.Sprintf("u%d@x.io", i)).ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for _, id := range ids {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			errs <- s.AddFriend(ctx, hub.ID, id)
		}(id)
		go func(id int64) {
			defer wg.Done()
			errs <- s.AddFriend(ctx, id, hub.ID)
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.FriendIDs(ctx, append([]int64{hub.ID}, ids...)...)
	require.NoError(t, err)
	require.Equal(t, ids, got[hub.ID])
	for _, id := range ids {
		require.Equal(t, []int64{hub.ID}, got[id])
	}
}
