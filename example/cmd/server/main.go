// Command server runs a small user API whose database traffic goes through
// the tracing driver, with a background workload to generate telemetry.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kroma-labs/sentinel-tracing/example/internal/api"
	"github.com/kroma-labs/sentinel-tracing/example/internal/config"
	"github.com/kroma-labs/sentinel-tracing/example/internal/database"
	"github.com/kroma-labs/sentinel-tracing/example/internal/telemetry"
	sentinelsql "github.com/kroma-labs/sentinel-tracing/sql"
	"github.com/kroma-labs/sentinel-tracing/sql/drivers"
)

func main() {
	cfg := config.Load()

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "sentinel-demo").Logger()

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg, reg)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	if err := drivers.RegisterAll(sentinelsql.DefaultRegistry); err != nil {
		return fmt.Errorf("register drivers: %w", err)
	}

	store, err := database.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()
	reg.MustRegister(store.Collector())

	if err := store.CreateTable(ctx); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(store, reg, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return workload(ctx, store, rate.NewLimiter(rate.Limit(cfg.OpsPerSecond), 1), logger)
	})

	return g.Wait()
}

// workload creates and reads users until ctx is done.
func workload(ctx context.Context, store *database.Store, limiter *rate.Limiter, logger zerolog.Logger) error {
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}

		id := uuid.NewString()
		user, err := store.CreateUser(ctx, "user-"+id[:8], id+"@example.com")
		if err != nil {
			logger.Warn().Err(err).Msg("create user failed")
			continue
		}
		if _, err := store.GetUser(ctx, user.ID); err != nil {
			logger.Warn().Err(err).Int64("user_id", user.ID).Msg("get user failed")
		}
		users, err := store.ListUsers(ctx, 10)
		if err != nil {
			logger.Warn().Err(err).Msg("list users failed")
			continue
		}
		logger.Debug().Int("users", len(users)).Msg("workload iteration done")
	}
}
