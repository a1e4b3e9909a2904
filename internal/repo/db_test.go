package repo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
)

func openTempDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { closeDB(db) })
	return db
}

func TestOpenSQLite_MissingDirectory(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "absent", "filmorate.db")

	db, err := OpenSQLite(bad)
	if db != nil || !os.IsNotExist(err) {
		t.Fatalf("OpenSQLite(%q) = %v, %v; want a not-exist error", bad, db, err)
	}
}

func TestOpenSQLite_ConnectionSettings(t *testing.T) {
	db := openTempDB(t, "pragmas.db")

	pragmas := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"foreign_keys", "1"},
		{"busy_timeout", "5000"},
	}
	for _, p := range pragmas {
		var got string
		if err := db.Raw("PRAGMA " + p.name).Row().Scan(&got); err != nil {
			t.Fatalf("PRAGMA %s: %v", p.name, err)
		}
		if strings.ToLower(got) != p.want {
			t.Errorf("PRAGMA %s = %q, want %q", p.name, got, p.want)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	if n := sqlDB.Stats().MaxOpenConnections; n != 10 {
		t.Fatalf("MaxOpenConnections = %d, want 10", n)
	}
}

func TestAutoMigrate_Schema(t *testing.T) {
	db := openTempDB(t, "schema.db")
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	// A second run on an existing schema is a no-op.
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate again: %v", err)
	}

	m := db.Migrator()
	for _, model := range []any{
		&domain.Genre{}, &domain.Rating{}, &domain.User{}, &domain.Film{},
		&domain.FilmGenre{}, &domain.Friendship{}, &domain.Like{}, &domain.Idempotency{},
	} {
		if !m.HasTable(model) {
			t.Errorf("no table for %T", model)
		}
	}
	if !m.HasIndex(&domain.User{}, "ux_users_email") {
		t.Errorf("missing unique email index")
	}

	in := &domain.User{Email: "mia@example.com", Login: "mia", Name: "Mia", Birthday: domain.NewDate(1990, time.March, 4)}
	if err := db.Create(in).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}
	var out domain.User
	if err := db.First(&out, in.ID).Error; err != nil {
		t.Fatalf("read user: %v", err)
	}
	if out.Birthday.String() != "1990-03-04" {
		t.Fatalf("birthday round trip = %q", out.Birthday.String())
	}
}

func TestSeed_IsIdempotent(t *testing.T) {
	db := openTempDB(t, "seed.db")
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := Seed(ctx, db); err != nil {
			t.Fatalf("Seed #%d: %v", i+1, err)
		}
	}

	var genres, ratings int64
	db.Model(&domain.Genre{}).Count(&genres)
	db.Model(&domain.Rating{}).Count(&ratings)
	if genres != int64(len(domain.DefaultGenres())) || ratings != int64(len(domain.DefaultRatings())) {
		t.Fatalf("unexpected catalogue sizes: genres=%d ratings=%d", genres, ratings)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{gorm.ErrDuplicatedKey, true},
		{errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"), true},
		{errors.New("ERROR: duplicate key value violates unique constraint"), true},
		{errors.New("no such table: users"), false},
	}
	for _, tc := range cases {
		if got := isUniqueViolation(tc.err); got != tc.want {
			t.Errorf("isUniqueViolation(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestWithConnParams(t *testing.T) {
	if got := withConnParams("app.db"); !strings.HasPrefix(got, "app.db?_pragma=") {
		t.Fatalf("unexpected dsn %q", got)
	}
	if got := withConnParams("file:x?mode=memory"); !strings.HasPrefix(got, "file:x?mode=memory&_pragma=") {
		t.Fatalf("unexpected dsn %q", got)
	}
}
