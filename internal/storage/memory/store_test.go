package memory

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/storage"
	"github.com/tbourn/go-filmorate-backend/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}

func TestReturnedFilmsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	f, err := s.CreateFilm(ctx, domain.Film{
		Name:        "F",
		ReleaseDate: domain.NewDate(2001, time.March, 3),
		Duration:    10,
		GenreIDs:    []int64{1, 2},
	})
	if err != nil {
		t.Fatalf("CreateFilm: %v", err)
	}
	f.GenreIDs[0] = 6

	got, err := s.GetFilm(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetFilm: %v", err)
	}
	if got.GenreIDs[0] != 1 {
		t.Fatalf("store mutated through returned slice: %v", got.GenreIDs)
	}
}

func TestStoredFilmsDoNotAliasInput(t *testing.T) {
	s := New()
	ctx := context.Background()
	rating := int64(2)
	in := domain.Film{
		Name:        "F",
		ReleaseDate: domain.NewDate(2001, time.March, 3),
		Duration:    10,
		RatingID:    &rating,
	}
	f, err := s.CreateFilm(ctx, in)
	if err != nil {
		t.Fatalf("CreateFilm: %v", err)
	}
	rating = 5

	got, err := s.GetFilm(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetFilm: %v", err)
	}
	if got.RatingID == nil || *got.RatingID != 2 {
		t.Fatalf("create kept the caller's rating pointer: %v", got.RatingID)
	}

	update := int64(3)
	in.ID, in.RatingID = f.ID, &update
	if _, err := s.UpdateFilm(ctx, in); err != nil {
		t.Fatalf("UpdateFilm: %v", err)
	}
	update = 1

	got, err = s.GetFilm(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetFilm: %v", err)
	}
	if got.RatingID == nil || *got.RatingID != 3 {
		t.Fatalf("update kept the caller's rating pointer: %v", got.RatingID)
	}
}

func TestSelfFriendshipIsIgnored(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, domain.User{Email: "a@x.io", Login: "a", Name: "a"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.AddFriend(ctx, u.ID, u.ID); err != nil {
		t.Fatalf("AddFriend: %v", err)
	}
	got, _ := s.FriendIDs(ctx, u.ID)
	if len(got[u.ID]) != 0 {
		t.Fatalf("self must never be a friend, got %v", got[u.ID])
	}
}

func TestIdempotencyExpiredSlotCanBeReused(t *testing.T) {
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	ctx := context.Background()

	if _, err := s.SaveIdempotency(ctx, "films", "k", 1, 201, time.Minute); err != nil {
		t.Fatalf("first save: %v", err)
	}
	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	rec, err := s.SaveIdempotency(ctx, "films", "k", 2, 201, time.Minute)
	if err != nil {
		t.Fatalf("save over expired record: %v", err)
	}
	if rec.ResourceID != 2 {
		t.Fatalf("ResourceID = %d, want 2", rec.ResourceID)
	}
}
