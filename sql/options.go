package sql

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// scope names this package as the instrumentation library on spans and metrics.
const scope = "github.com/kroma-labs/sentinel-tracing/sql"

// config is shared by a TracingDriver and every connection it opens.
// It is built once by newConfig and never mutated afterwards.
type config struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	// Tracer, Meter and Metrics are derived from the providers in newConfig.
	Tracer  trace.Tracer
	Meter   metric.Meter
	Metrics *metrics

	// Registry resolves the real driver behind a stripped URL.
	Registry Registry

	Logger zerolog.Logger

	// DBName and InstanceName become db.name and db.instance.
	// db.system is never configured here; it comes from the URL.
	DBName       string
	InstanceName string

	// Attributes are appended to every span and measurement.
	Attributes []attribute.KeyValue

	// QuerySanitizer rewrites db.statement. Nil records queries verbatim.
	QuerySanitizer func(query string) string

	// DialectSanitizer picks the sanitizer from each connection's database
	// type with QuerySanitizerFor. QuerySanitizer is then ignored.
	DialectSanitizer bool

	// DisableQuery drops db.statement. db.operation is kept.
	DisableQuery bool
}

// Option configures a TracingDriver.
type Option func(*config)

func newConfig(opts ...Option) *config {
	cfg := &config{
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
		Registry:       DefaultRegistry,
		Logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)

	// A meter that refuses the instruments leaves Metrics nil; recording is then skipped.
	if m, err := newMetrics(cfg.Meter); err == nil {
		cfg.Metrics = m
	} else {
		cfg.Logger.Warn().Err(err).Msg("sentinel: metrics disabled")
	}

	return cfg
}

// baseAttributes returns the attributes that do not depend on a connection.
func (cfg *config) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2+len(cfg.Attributes))
	if cfg.DBName != "" {
		attrs = append(attrs, attribute.String("db.name", cfg.DBName))
	}
	if cfg.InstanceName != "" {
		attrs = append(attrs, attribute.String("db.instance", cfg.InstanceName))
	}
	return append(attrs, cfg.Attributes...)
}

// statement returns the db.statement value for a query sent to a database of
// type dbType and whether to record it.
func (cfg *config) statement(dbType, query string) (string, bool) {
	if cfg.DisableQuery || query == "" {
		return "", false
	}
	if cfg.DialectSanitizer {
		return QuerySanitizerFor(dbType)(query), true
	}
	if cfg.QuerySanitizer != nil {
		return cfg.QuerySanitizer(query), true
	}
	return query, true
}

// WithTracerProvider overrides the global tracer provider.
//
// Example:
//
//	tp := sdktrace.NewTracerProvider(...)
//	db, _ := sentinelsql.Open(url, nil, sentinelsql.WithTracerProvider(tp))
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		if tp != nil {
			cfg.TracerProvider = tp
		}
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *config) {
		if mp != nil {
			cfg.MeterProvider = mp
		}
	}
}

// WithRegistry resolves real drivers from reg instead of DefaultRegistry.
// A nil reg is ignored.
//
// Example:
//
//	reg := sentinelsql.NewRegistry()
//	_ = drivers.RegisterAll(reg)
//	db, _ := sentinelsql.Open(url, nil, sentinelsql.WithRegistry(reg))
func WithRegistry(reg Registry) Option {
	return func(cfg *config) {
		if reg != nil {
			cfg.Registry = reg
		}
	}
}

// WithLogger logs resolution misses and connect failures to l.
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.Logger = l
	}
}

// WithDBName records name as db.name.
func WithDBName(name string) Option {
	return func(cfg *config) {
		cfg.DBName = name
	}
}

// WithInstanceName records name as db.instance, to tell apart several
// connections to one database ("primary" and "replica-1", or "shard-0").
func WithInstanceName(name string) Option {
	return func(cfg *config) {
		cfg.InstanceName = name
	}
}

// WithAttributes adds static attributes to every span and measurement.
//
// Example:
//
//	sentinelsql.WithAttributes(attribute.String("service.tier", "batch"))
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(cfg *config) {
		cfg.Attributes = append(cfg.Attributes, attrs...)
	}
}

// WithQuerySanitizer rewrites queries before they are recorded as db.statement.
// DefaultQuerySanitizer replaces literals with placeholders.
func WithQuerySanitizer(fn func(string) string) Option {
	return func(cfg *config) {
		cfg.QuerySanitizer = fn
	}
}

// WithDialectQuerySanitizer sanitizes db.statement with the quoting rules of
// each connection's database type: backslash escapes for mysql and mariadb,
// standard SQL quoting otherwise. It takes precedence over WithQuerySanitizer.
func WithDialectQuerySanitizer() Option {
	return func(cfg *config) {
		cfg.DialectSanitizer = true
	}
}

// WithDisableQuery stops recording db.statement.
func WithDisableQuery() Option {
	return func(cfg *config) {
		cfg.DisableQuery = true
	}
}
