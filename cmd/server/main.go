package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Simplici0/margingate/internal/cache"
	"github.com/Simplici0/margingate/internal/config"
	"github.com/Simplici0/margingate/internal/db"
	"github.com/Simplici0/margingate/internal/engine"
	"github.com/Simplici0/margingate/internal/logx"
	"github.com/Simplici0/margingate/internal/migrations"
	"github.com/Simplici0/margingate/internal/seed"
	"github.com/Simplici0/margingate/internal/store"
)

type server struct {
	engine *engine.Service
	store  *store.Store
}

func main() {
	if err := run(); err != nil {
		logx.Fatal().Err(err).Msg("server stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Env})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := prepare(ctx, database, cfg); err != nil {
		return err
	}

	opts := []engine.Option{}
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cache.Config{URL: cfg.RedisURL})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		opts = append(opts, engine.WithCache(cache.NewRedis(client, cfg.SnapshotTTL)))
		logx.Info().Dur("ttl", cfg.SnapshotTTL).Msg("rate snapshot cache enabled")
	}

	st := store.New(database)
	srv := &server{engine: engine.New(st, st, opts...), store: st}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(srv),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          log.New(logx.Logger(), "", 0),
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", httpServer.Addr).Str("env", cfg.Env.String()).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logx.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// prepare migrates and seeds the database according to cfg.
func prepare(ctx context.Context, database *sql.DB, cfg config.Config) error {
	if cfg.AutoMigrate {
		if err := migrations.Up(ctx, database, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("run database migrations: %w", err)
		}
	}
	if cfg.SeedOnStart {
		stats, err := seed.Run(ctx, database, seed.DefaultConfig())
		if err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
		logx.Info().Int("inserts", stats.Inserts).Int("updates", stats.Updates).Msg("seed complete")
	}
	return nil
}
