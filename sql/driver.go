package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DriverName is the name the tracing driver is registered under in database/sql.
const DriverName = "tracing"

const (
	majorVersion = 1
	minorVersion = 0
)

// Errors returned by the tracing driver and registries.
var (
	ErrURLRequired  = errors.New("url is required")
	ErrNoDriver     = errors.New("unable to find a driver that accepts")
	ErrMalformedURL = errors.New("malformed connection url")
	ErrNilDriver    = errors.New("driver is nil")
	ErrNotAccepted  = errors.New("url not accepted by tracing driver")
)

// Compile-time interface checks.
var (
	_ Driver               = (*TracingDriver)(nil)
	_ PropertyInfoer       = (*TracingDriver)(nil)
	_ driver.Driver        = (*TracingDriver)(nil)
	_ driver.DriverContext = (*TracingDriver)(nil)
	_ driver.Connector     = (*connector)(nil)
)

var defaultDriver *TracingDriver

func init() {
	defaultDriver = NewDriver()
	if err := DefaultRegistry.Register(defaultDriver); err != nil {
		panic("sentinelsql: could not register tracing driver: " + err.Error())
	}
	sql.Register(DriverName, defaultDriver)
}

// TracingDriver intercepts "jdbc:tracing:" URLs, resolves the real driver from its
// registry and returns connections decorated with tracing metadata.
//
// A TracingDriver holds only immutable configuration and is safe for concurrent use.
type TracingDriver struct {
	cfg *config
}

// NewDriver creates a TracingDriver. It is not registered anywhere; use it with
// NewConnector-style plumbing or register it with a Registry yourself.
//
// Example:
//
//	reg := sentinelsql.NewRegistry()
//	drivers.RegisterAll(reg)
//	d := sentinelsql.NewDriver(sentinelsql.WithRegistry(reg))
func NewDriver(opts ...Option) *TracingDriver {
	return &TracingDriver{cfg: newConfig(opts...)}
}

// Default returns the driver registered at init in DefaultRegistry and database/sql.
func Default() *TracingDriver {
	return defaultDriver
}

// AcceptsURL reports whether url carries URLPrefix. It never returns an error.
func (d *TracingDriver) AcceptsURL(url string) (bool, error) {
	return url != "" && strings.HasPrefix(url, URLPrefix), nil
}

// Connect opens a traced connection for a "jdbc:tracing:" URL.
//
// It returns ErrURLRequired for an empty url and (nil, nil) for a url without
// URLPrefix, so that a caller probing several drivers can move on to the next one.
// Errors from the underlying driver's Connect are returned as-is.
func (d *TracingDriver) Connect(ctx context.Context, url string, props Properties) (driver.Conn, error) {
	if url == "" {
		return nil, ErrURLRequired
	}
	if ok, _ := d.AcceptsURL(url); !ok {
		return nil, nil
	}

	realURL := ExtractRealURL(url)
	dbType, err := ExtractDBType(realURL)
	if err != nil {
		return nil, err
	}

	user := props.Get(PropertyUser)
	if user == "" {
		user = userFromURL(realURL)
	}

	start := time.Now()
	attrs := d.connectAttributes(dbType, user)
	ctx, span := d.cfg.Tracer.Start(ctx, "CONNECT",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	conn, err := d.openReal(ctx, realURL, props)
	d.cfg.Metrics.recordConnectDuration(ctx, time.Since(start), attrs, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.cfg.Logger.Error().
			Err(err).
			Str("db_type", dbType).
			Msg("connect failed")
		return nil, err
	}

	c := newConn(conn, d.cfg, dbType, user)
	span.SetAttributes(attribute.String("db.connection.id", c.ID()))
	return c, nil
}

// openReal resolves the driver for realURL and connects through it.
func (d *TracingDriver) openReal(ctx context.Context, realURL string, props Properties) (driver.Conn, error) {
	wrapped, err := d.cfg.Registry.FindMatching(realURL)
	if err != nil {
		return nil, err
	}
	return wrapped.Connect(ctx, realURL, props)
}

// PropertyInfo delegates to the driver resolved for url.
// A prefixed url is rewritten first, so resolution never lands on the tracing driver itself.
// Drivers that do not implement PropertyInfoer describe no properties.
func (d *TracingDriver) PropertyInfo(url string, props Properties) ([]PropertyInfo, error) {
	realURL := ExtractRealURL(url)
	wrapped, err := d.cfg.Registry.FindMatching(realURL)
	if err != nil {
		return nil, err
	}
	if pi, ok := wrapped.(PropertyInfoer); ok {
		return pi.PropertyInfo(realURL, props)
	}
	return nil, nil
}

// MajorVersion returns 1. The wrapped driver's version is not reachable.
func (d *TracingDriver) MajorVersion() int {
	return majorVersion
}

// MinorVersion returns 0.
func (d *TracingDriver) MinorVersion() int {
	return minorVersion
}

// Compliant always reports true.
func (d *TracingDriver) Compliant() bool {
	return true
}

// ParentLogger returns nil; the wrapped driver's logger is not reachable.
func (d *TracingDriver) ParentLogger() *zerolog.Logger {
	return nil
}

// Open implements driver.Driver.
func (d *TracingDriver) Open(name string) (driver.Conn, error) {
	return d.connect(context.Background(), name, nil)
}

// OpenConnector implements driver.DriverContext.
func (d *TracingDriver) OpenConnector(name string) (driver.Connector, error) {
	if name == "" {
		return nil, ErrURLRequired
	}
	return &connector{driver: d, url: name}, nil
}

// connect is Connect for database/sql, which cannot carry a nil connection.
func (d *TracingDriver) connect(ctx context.Context, url string, props Properties) (driver.Conn, error) {
	conn, err := d.Connect(ctx, url, props)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, ErrNotAccepted
	}
	return conn, nil
}

func (d *TracingDriver) connectAttributes(dbType, user string) []attribute.KeyValue {
	attrs := d.cfg.baseAttributes()
	attrs = append(attrs, attribute.String("db.system", dbType))
	if user != "" {
		attrs = append(attrs, attribute.String("db.user", user))
	}
	return attrs
}

// connector binds a tracing driver to a URL and its properties.
type connector struct {
	driver *TracingDriver
	url    string
	props  Properties
}

// NewConnector returns a driver.Connector for url, for use with sql.OpenDB.
// Properties are passed to the underlying driver on every connect.
//
// Example:
//
//	c := sentinelsql.NewConnector("jdbc:tracing:mysql:tcp(localhost:3306)/app",
//	    sentinelsql.Properties{"user": "app", "password": secret},
//	)
//	db := sql.OpenDB(c)
func NewConnector(url string, props Properties, opts ...Option) driver.Connector {
	d := defaultDriver
	if len(opts) > 0 {
		d = NewDriver(opts...)
	}
	return &connector{driver: d, url: url, props: props.Clone()}
}

// Connect implements driver.Connector.
func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	return c.driver.connect(ctx, c.url, c.props)
}

// Driver implements driver.Connector.
func (c *connector) Driver() driver.Driver {
	return c.driver
}

// Open opens a *sql.DB whose connections go through the tracing driver.
// The url must carry URLPrefix. As with sql.Open, no connection is made until first use.
//
// Example:
//
//	db, err := sentinelsql.Open("jdbc:tracing:postgres://localhost:5432/app?sslmode=disable",
//	    sentinelsql.Properties{"user": "app"},
//	    sentinelsql.WithDBName("app"),
//	)
func Open(url string, props Properties, opts ...Option) (*sql.DB, error) {
	if url == "" {
		return nil, ErrURLRequired
	}
	if !strings.HasPrefix(url, URLPrefix) {
		return nil, ErrNotAccepted
	}
	if _, err := ExtractDBType(ExtractRealURL(url)); err != nil {
		return nil, err
	}
	return sql.OpenDB(NewConnector(url, props, opts...)), nil
}
