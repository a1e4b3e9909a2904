// Package services – IdempotencyService
//
// IdempotencyService backs the Idempotency-Key support of the create
// endpoints. A successful keyed create is remembered as (scope, key) →
// resource id for TTL; a retry with the same key inside that window is
// answered with the original resource instead of creating another one.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-filmorate-backend/internal/storage"
)

// DefaultIdempotencyTTL applies when IdempotencyService.TTL is not set.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyService remembers keyed creates.
type IdempotencyService struct {
	Store storage.IdempotencyStore
	TTL   time.Duration
}

func (s *IdempotencyService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultIdempotencyTTL
}

// Lookup reports the resource id remembered for (scope, key) at now.
// Its signature matches middleware.IdempotencyLookup.
func (s *IdempotencyService) Lookup(ctx context.Context, scope, key string, now time.Time) (int64, bool, error) {
	rec, err := s.Store.GetIdempotency(ctx, scope, key, now)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rec.ResourceID, true, nil
}

// Remember records that the keyed request in scope produced resourceID.
// Losing a race against a concurrent request with the same key is not an
// error: that request's record wins.
func (s *IdempotencyService) Remember(ctx context.Context, scope, key string, resourceID int64, status int) error {
	_, err := s.Store.SaveIdempotency(ctx, scope, key, resourceID, status, s.ttl())
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	return err
}

// RunJanitor purges expired records every interval until ctx is done.
// It always returns nil once ctx is cancelled.
func (s *IdempotencyService) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			n, err := s.Store.PurgeExpiredIdempotency(ctx, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("expired idempotency records removed")
			}
		}
	}
}
