// Package database is the demo's user store, opened through the tracing driver.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"

	"github.com/kroma-labs/sentinel-tracing/example/internal/config"
	sentinelsql "github.com/kroma-labs/sentinel-tracing/sql"
	sentinelsqlx "github.com/kroma-labs/sentinel-tracing/sqlx"
)

// ErrUnavailable is returned while the read breaker is open.
var ErrUnavailable = errors.New("database unavailable")

// Store wraps the sqlx database with a circuit breaker on reads.
type Store struct {
	db      *sqlx.DB
	dbName  string
	breaker *gobreaker.CircuitBreaker[any]
	logger  zerolog.Logger
}

// New connects to cfg.URL, retrying transient failures with exponential backoff.
// URL and registry errors are not retried.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger, opts ...sentinelsql.Option) (*Store, error) {
	props := sentinelsql.Properties{}
	if cfg.User != "" {
		props[sentinelsql.PropertyUser] = cfg.User
	}
	if cfg.Password != "" {
		props[sentinelsql.PropertyPassword] = cfg.Password
	}

	opts = append([]sentinelsql.Option{
		sentinelsql.WithDBName(cfg.DBName),
		sentinelsql.WithInstanceName(cfg.Instance),
		sentinelsql.WithLogger(logger),
		sentinelsql.WithDialectQuerySanitizer(),
	}, opts...)

	db, err := backoff.Retry(ctx, func() (*sqlx.DB, error) {
		db, err := sentinelsqlx.Connect(ctx, cfg.URL, props, opts...)
		if err != nil && isPermanent(err) {
			return nil, backoff.Permanent(err)
		}
		return db, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(cfg.ConnectTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn().Err(err).Dur("retry_in", next).Msg("database not ready")
		}),
	)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(config.DefaultMaxOpen)
	db.SetMaxIdleConns(config.DefaultMaxIdle)
	db.SetConnMaxLifetime(config.DefaultMaxLifetime)
	db.SetConnMaxIdleTime(config.DefaultMaxIdleTime)

	// Attributes (db.name, db.instance) are taken from the tracing driver.
	if err := sentinelsql.RecordPoolMetrics(db.DB, otel.GetMeterProvider().Meter("sentinel-demo")); err != nil {
		logger.Warn().Err(err).Msg("pool metrics not registered")
	}

	s := &Store{db: db, dbName: cfg.DBName, logger: logger}
	s.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "database-reads",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("breaker state changed")
		},
	})
	return s, nil
}

func isPermanent(err error) bool {
	return errors.Is(err, sentinelsql.ErrURLRequired) ||
		errors.Is(err, sentinelsql.ErrNotAccepted) ||
		errors.Is(err, sentinelsql.ErrMalformedURL) ||
		errors.Is(err, sentinelsql.ErrNoDriver)
}

// DB returns the underlying sqlx database.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Collector exports database/sql pool statistics to Prometheus.
func (s *Store) Collector() prometheus.Collector {
	return collectors.NewDBStatsCollector(s.db.DB, s.dbName)
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// read runs fn through the breaker.
func (s *Store) read(fn func() (any, error)) (any, error) {
	v, err := s.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrUnavailable
	}
	return v, err
}
