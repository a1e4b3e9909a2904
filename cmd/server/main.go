// Command server runs the filmorate HTTP API.
//
// @title           Filmorate API
// @version         1.0
// @description     Users, friendships, films, likes and the popularity ranking.
// @BasePath        /
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-filmorate-backend/internal/config"
	httpapi "github.com/tbourn/go-filmorate-backend/internal/http"
	"github.com/tbourn/go-filmorate-backend/internal/observability"
	"github.com/tbourn/go-filmorate-backend/internal/repo"
	"github.com/tbourn/go-filmorate-backend/internal/storage"
	"github.com/tbourn/go-filmorate-backend/internal/storage/memory"
	"github.com/tbourn/go-filmorate-backend/internal/sysutil"
)

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

// run serves until ctx is cancelled, then drains in-flight requests within
// cfg.ShutdownTimeout.
func run(ctx context.Context, cfg config.Config) error {
	gin.SetMode(cfg.GinMode)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, observability.Version(),
		observability.StorageBackend(cfg.Storage.Backend))
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("store close")
		}
	}()

	svc := httpapi.NewServices(store, cfg)
	r := gin.New()
	httpapi.RegisterRoutes(r, svc, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage.Backend).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return svc.Idempotency.RunJanitor(gctx, cfg.IdempotencyPurgeInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return errors.Join(srv.Shutdown(sctx), shutdownOTel(sctx))
	})

	return g.Wait()
}

// openStore opens the configured backend.
func openStore(ctx context.Context, sc config.StorageConfig) (storage.Store, error) {
	switch sc.Backend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendSQLite:
		s, err := repo.Open(ctx, sc.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %q: %w", sc.DBPath, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}
