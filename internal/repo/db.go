// Package repo implements the SQLite-backed storage.Store on top of GORM.
// This file contains database bootstrapping helpers for SQLite (pure Go
// driver), schema migrations and reference-data seeding.
package repo

import (
	"context"
	"errors"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	zlog "github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
)

// OpenSQLite opens (or creates) a SQLite database, applies PRAGMAs and
// installs the OpenTelemetry tracing plugin.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(withConnParams(path)), &gorm.Config{Logger: newGormLogger()})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	return db, nil
}

// withConnParams appends per-connection settings to the DSN. PRAGMAs run
// through db.Exec only reach one pooled connection; these reach all of them.
// Transactions start IMMEDIATE so concurrent writers queue on busy_timeout
// instead of failing on a read-to-write lock upgrade.
func withConnParams(path string) string {
	params := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

// newGormLogger routes GORM's warnings (slow queries, SQL errors) through the
// global zerolog logger. Missing rows are an expected outcome here and are
// not logged.
func newGormLogger() logger.Interface {
	return logger.New(
		stdlog.New(zlog.Logger, "", 0),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// AutoMigrate creates or updates every table of the schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Genre{},
		&domain.Rating{},
		&domain.User{},
		&domain.Film{},
		&domain.FilmGenre{},
		&domain.Friendship{},
		&domain.Like{},
		&domain.Idempotency{},
	)
}

// Seed inserts the default genre and rating catalogues. Rows that already
// exist are left untouched, so Seed is safe to run on every start.
func Seed(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		genres := domain.DefaultGenres()
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&genres).Error; err != nil {
			return err
		}
		ratings := domain.DefaultRatings()
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ratings).Error
	})
}

// isUniqueViolation reports whether err is a UNIQUE/PRIMARY KEY constraint
// failure. glebarez/sqlite often returns plain-text errors for those.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
