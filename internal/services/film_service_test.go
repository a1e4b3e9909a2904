package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/storage/memory"
)

func newFilmSvc(t *testing.T) (*FilmService, *UserService, *memory.Store) {
	t.Helper()
	st := memory.New()
	us := NewUserService(st)
	us.Now = func() time.Time { return fixedNow }
	return NewFilmService(st), us, st
}

func ratingID(id int64) *int64 { return &id }

func validFilm(name string) domain.Film {
	return domain.Film{
		Name:        name,
		Description: "A film.",
		ReleaseDate: domain.NewDate(1999, time.March, 31),
		Duration:    120,
		RatingID:    ratingID(3),
	}
}

func mustCreateFilm(t *testing.T, s *FilmService, f domain.Film) *domain.FilmView {
	t.Helper()
	v, err := s.CreateFilm(context.Background(), f)
	if err != nil {
		t.Fatalf("CreateFilm(%s): %v", f.Name, err)
	}
	return v
}

func filmIDs(views []domain.FilmView) []int64 {
	out := make([]int64, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}

func TestCreateFilm_DurationScenario(t *testing.T) {
	s, _, st := newFilmSvc(t)

	zero := validFilm("Zero")
	zero.Duration = 0
	if _, err := s.CreateFilm(context.Background(), zero); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for duration 0, got %v", err)
	}

	v := mustCreateFilm(t, s, validFilm("Matrix"))
	if v.Duration != 120 {
		t.Fatalf("duration echoed as %d, want 120", v.Duration)
	}
	films, _ := st.ListFilms(context.Background())
	if len(films) != 1 {
		t.Fatalf("expected exactly one stored film, got %d", len(films))
	}
}

func TestCreateFilm_Validation(t *testing.T) {
	s, _, _ := newFilmSvc(t)

	cases := []struct {
		name  string
		edit  func(f *domain.Film)
		field string
	}{
		{"blank name", func(f *domain.Film) { f.Name = "   " }, "name"},
		{"long description", func(f *domain.Film) { f.Description = strings.Repeat("x", 201) }, "description"},
		{"missing release date", func(f *domain.Film) { f.ReleaseDate = domain.Date{} }, "releaseDate"},
		{"before first screening", func(f *domain.Film) { f.ReleaseDate = domain.NewDate(1895, time.December, 27) }, "releaseDate"},
		{"negative duration", func(f *domain.Film) { f.Duration = -5 }, "duration"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := validFilm("F")
			tc.edit(&f)
			_, err := s.CreateFilm(context.Background(), f)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("expected validation error on %q, got %v", tc.field, err)
			}
		})
	}
}

func TestCreateFilm_Boundaries(t *testing.T) {
	s, _, _ := newFilmSvc(t)

	f := validFilm("First")
	f.ReleaseDate = EarliestReleaseDate
	f.Description = strings.Repeat("ж", MaxDescriptionRunes)
	if _, err := s.CreateFilm(context.Background(), f); err != nil {
		t.Fatalf("boundary film rejected: %v", err)
	}

	// 200 decomposed "e" + combining acute become 200 runes after NFC.
	g := validFilm("Accents")
	g.Description = strings.Repeat("e\u0301", MaxDescriptionRunes)
	v, err := s.CreateFilm(context.Background(), g)
	if err != nil {
		t.Fatalf("NFC description rejected: %v", err)
	}
	if v.Description != strings.Repeat("\u00e9", MaxDescriptionRunes) {
		t.Fatalf("description not normalized")
	}
}

func TestCreateFilm_MissingReferencePersistsNothing(t *testing.T) {
	s, _, st := newFilmSvc(t)
	ctx := context.Background()

	f := validFilm("Ghost")
	f.RatingID = ratingID(42)
	if _, err := s.CreateFilm(ctx, f); !errors.Is(err, ErrReferenceNotFound) || !errors.Is(err, ErrRatingNotFound) {
		t.Fatalf("expected ErrRatingNotFound, got %v", err)
	}

	f = validFilm("Ghost")
	f.GenreIDs = []int64{1, 99}
	if _, err := s.CreateFilm(ctx, f); !errors.Is(err, ErrGenreNotFound) {
		t.Fatalf("expected ErrGenreNotFound, got %v", err)
	}

	films, _ := st.ListFilms(ctx)
	if len(films) != 0 {
		t.Fatalf("failed creates persisted %d films", len(films))
	}
}

func TestFilmView_ResolvesReferences(t *testing.T) {
	s, _, _ := newFilmSvc(t)
	f := validFilm("Genres")
	f.GenreIDs = []int64{4, 1, 4}
	v := mustCreateFilm(t, s, f)

	if v.Mpa == nil || v.Mpa.Name != "PG-13" {
		t.Fatalf("unexpected mpa %+v", v.Mpa)
	}
	want := []domain.Genre{{ID: 1, Name: "Comedy"}, {ID: 4, Name: "Thriller"}}
	if !reflect.DeepEqual(v.Genres, want) {
		t.Fatalf("genres = %+v, want %+v", v.Genres, want)
	}
	if v.Likes == nil || len(v.Likes) != 0 {
		t.Fatalf("likes must be empty and non-nil, got %v", v.Likes)
	}

	noRating := validFilm("Unrated")
	noRating.RatingID = nil
	u := mustCreateFilm(t, s, noRating)
	if u.Mpa != nil || u.Genres == nil {
		t.Fatalf("unexpected view %+v", u)
	}
}

func TestUpdateFilm(t *testing.T) {
	s, _, _ := newFilmSvc(t)
	ctx := context.Background()
	v := mustCreateFilm(t, s, validFilm("Old"))

	upd := validFilm("New")
	upd.ID = v.ID
	upd.GenreIDs = []int64{2}
	got, err := s.UpdateFilm(ctx, upd)
	if err != nil {
		t.Fatalf("UpdateFilm: %v", err)
	}
	if got.Name != "New" || len(got.Genres) != 1 || got.Genres[0].ID != 2 {
		t.Fatalf("unexpected update result %+v", got)
	}

	upd.ID = 999
	if _, err := s.UpdateFilm(ctx, upd); !errors.Is(err, ErrFilmNotFound) {
		t.Fatalf("expected ErrFilmNotFound, got %v", err)
	}
	upd.ID = 0
	if _, err := s.UpdateFilm(ctx, upd); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestLikes(t *testing.T) {
	s, us, _ := newFilmSvc(t)
	ctx := context.Background()
	u := mustCreateUser(t, us, "u@example.com", "u")
	f := mustCreateFilm(t, s, validFilm("Liked"))

	for i := 0; i < 2; i++ {
		if err := s.AddLike(ctx, f.ID, u.ID); err != nil {
			t.Fatalf("AddLike: %v", err)
		}
	}
	got, _ := s.GetFilm(ctx, f.ID)
	if !reflect.DeepEqual(got.Likes, []int64{u.ID}) {
		t.Fatalf("likes = %v", got.Likes)
	}
	uv, _ := us.GetUser(ctx, u.ID)
	if !reflect.DeepEqual(uv.LikedFilms, []int64{f.ID}) {
		t.Fatalf("likedFilms = %v", uv.LikedFilms)
	}

	if err := s.AddLike(ctx, 999, u.ID); !errors.Is(err, ErrFilmNotFound) {
		t.Fatalf("expected ErrFilmNotFound, got %v", err)
	}
	if err := s.AddLike(ctx, f.ID, 999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := s.RemoveLike(ctx, f.ID, u.ID); err != nil {
		t.Fatalf("RemoveLike: %v", err)
	}
	if err := s.RemoveLike(ctx, f.ID, u.ID); !errors.Is(err, ErrLikeNotFound) {
		t.Fatalf("expected ErrLikeNotFound, got %v", err)
	}
}

func TestTopFilms_RankingDeterminism(t *testing.T) {
	s, us, _ := newFilmSvc(t)
	ctx := context.Background()

	users := make([]int64, 3)
	for i := range users {
		users[i] = mustCreateUser(t, us, string(rune('a'+i))+"@example.com", "u"+string(rune('a'+i))).ID
	}
	f1 := mustCreateFilm(t, s, validFilm("F1"))
	f2 := mustCreateFilm(t, s, validFilm("F2"))
	f3 := mustCreateFilm(t, s, validFilm("F3"))

	like := func(film int64, who ...int64) {
		for _, u := range who {
			if err := s.AddLike(ctx, film, u); err != nil {
				t.Fatalf("AddLike: %v", err)
			}
		}
	}
	// Liked in an order that differs from id order.
	like(f2.ID, users...)
	like(f3.ID, users[0])
	like(f1.ID, users...)

	for i := 0; i < 3; i++ {
		top, err := s.TopFilms(ctx, 2)
		if err != nil {
			t.Fatalf("TopFilms: %v", err)
		}
		if want := []int64{f1.ID, f2.ID}; !reflect.DeepEqual(filmIDs(top), want) {
			t.Fatalf("top(2) = %v, want %v", filmIDs(top), want)
		}
	}

	all, err := s.TopFilms(ctx, 10)
	if err != nil {
		t.Fatalf("TopFilms(10): %v", err)
	}
	if want := []int64{f1.ID, f2.ID, f3.ID}; !reflect.DeepEqual(filmIDs(all), want) {
		t.Fatalf("top(10) = %v, want %v", filmIDs(all), want)
	}
	if len(all[0].Likes) != 3 {
		t.Fatalf("expected assembled likes, got %v", all[0].Likes)
	}

	if _, err := s.TopFilms(ctx, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for n=0, got %v", err)
	}
}

func TestDeleteFilm(t *testing.T) {
	s, us, _ := newFilmSvc(t)
	ctx := context.Background()
	u := mustCreateUser(t, us, "u@example.com", "u")
	f := mustCreateFilm(t, s, validFilm("Gone"))
	if err := s.AddLike(ctx, f.ID, u.ID); err != nil {
		t.Fatalf("AddLike: %v", err)
	}
	if err := s.DeleteFilm(ctx, f.ID); err != nil {
		t.Fatalf("DeleteFilm: %v", err)
	}
	if _, err := s.GetFilm(ctx, f.ID); !errors.Is(err, ErrFilmNotFound) {
		t.Fatalf("expected ErrFilmNotFound, got %v", err)
	}
	uv, _ := us.GetUser(ctx, u.ID)
	if len(uv.LikedFilms) != 0 {
		t.Fatalf("deleted film still liked: %v", uv.LikedFilms)
	}
}

// ratinglessStore hides the rating catalogue to simulate a dangling rating.
type ratinglessStore struct {
	*memory.Store
}

func (ratinglessStore) ListRatings(context.Context) ([]domain.Rating, error) {
	return []domain.Rating{}, nil
}

func TestAssembler_MissingRatingFailsWholeAssembly(t *testing.T) {
	st := memory.New()
	created, err := st.CreateFilm(context.Background(), validFilm("Dangling"))
	if err != nil {
		t.Fatalf("CreateFilm: %v", err)
	}
	plain, err := st.CreateFilm(context.Background(), domain.Film{Name: "Plain", ReleaseDate: domain.NewDate(2000, 1, 1), Duration: 1})
	if err != nil {
		t.Fatalf("CreateFilm: %v", err)
	}

	a := &Assembler{Store: ratinglessStore{st}}
	views, err := a.Films(context.Background(), []domain.Film{*plain, *created})
	if !errors.Is(err, ErrRatingNotFound) {
		t.Fatalf("expected ErrRatingNotFound, got %v", err)
	}
	if views != nil {
		t.Fatalf("expected no partial result, got %v", views)
	}
}
