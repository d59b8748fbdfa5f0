package sql

import (
	"context"
	"database/sql/driver"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Compile-time interface checks.
var (
	_ driver.Conn               = (*Conn)(nil)
	_ driver.ConnPrepareContext = (*Conn)(nil)
	_ driver.ConnBeginTx        = (*Conn)(nil)
	_ driver.ExecerContext      = (*Conn)(nil)
	_ driver.QueryerContext     = (*Conn)(nil)
	_ driver.Pinger             = (*Conn)(nil)
	_ driver.SessionResetter    = (*Conn)(nil)
	_ driver.Validator          = (*Conn)(nil)
)

// Conn is a connection returned by TracingDriver. It wraps the real connection
// and the metadata extracted at connect time, and traces every operation.
type Conn struct {
	conn   driver.Conn
	cfg    *config
	dbType string
	user   string
	id     string
	attrs  []attribute.KeyValue
}

// newConn creates a new instrumented connection.
func newConn(conn driver.Conn, cfg *config, dbType, user string) *Conn {
	c := &Conn{
		conn:   conn,
		cfg:    cfg,
		dbType: dbType,
		user:   user,
		id:     uuid.NewString(),
	}
	c.attrs = c.buildAttributes()
	return c
}

// DBType returns the database type tag taken from the connection URL.
func (c *Conn) DBType() string { return c.dbType }

// User returns the database user, or "" when unknown.
func (c *Conn) User() string { return c.user }

// ID returns a unique identifier for this connection.
func (c *Conn) ID() string { return c.id }

// Raw returns the underlying driver connection.
func (c *Conn) Raw() driver.Conn { return c.conn }

// Prepare implements driver.Conn.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return newStmt(stmt, c, query), nil
}

// Close implements driver.Conn.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Begin implements driver.Conn.
// Deprecated: Use BeginTx instead. This exists for driver.Conn interface compatibility.
func (c *Conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// PrepareContext implements driver.ConnPrepareContext.
func (c *Conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var stmt driver.Stmt
	var err error

	if preparer, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err = preparer.PrepareContext(ctx, query)
	} else {
		stmt, err = c.conn.Prepare(query)
	}

	if err != nil {
		return nil, err
	}
	return newStmt(stmt, c, query), nil
}

// BeginTx implements driver.ConnBeginTx.
// The returned transaction parents COMMIT and ROLLBACK spans to the BEGIN span.
func (c *Conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	var wrapped driver.Tx
	err := c.observe(ctx, "BEGIN", "BEGIN", c.attrs, func(ctx context.Context) error {
		var (
			inner driver.Tx
			err   error
		)
		if beginner, ok := c.conn.(driver.ConnBeginTx); ok {
			inner, err = beginner.BeginTx(ctx, opts)
		} else {
			inner, err = c.conn.Begin() //nolint:staticcheck // drivers without BeginTx
		}
		if err != nil {
			return err
		}
		wrapped = newTx(ctx, inner, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wrapped, nil
}

// ExecContext implements driver.ExecerContext.
// It returns driver.ErrSkip when the real connection cannot execute directly,
// so database/sql falls back to PrepareContext.
func (c *Conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	execer, ok := c.conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}

	var res driver.Result
	err := c.observeQuery(ctx, query, func(ctx context.Context) (err error) {
		res, err = execer.ExecContext(ctx, query, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// QueryContext implements driver.QueryerContext.
func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	queryer, ok := c.conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}

	var rows driver.Rows
	err := c.observeQuery(ctx, query, func(ctx context.Context) (err error) {
		rows, err = queryer.QueryContext(ctx, query, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Ping implements driver.Pinger. Connections whose driver cannot ping are
// reported healthy without a span.
func (c *Conn) Ping(ctx context.Context) error {
	pinger, ok := c.conn.(driver.Pinger)
	if !ok {
		return nil
	}
	return c.observe(ctx, "PING", "PING", c.attrs, pinger.Ping)
}

// observeQuery runs fn in a span named after the operation of query.
func (c *Conn) observeQuery(ctx context.Context, query string, fn func(context.Context) error) error {
	return c.observe(ctx, spanName(query), extractOperation(query), c.queryAttributes(query), fn)
}

// observe runs fn inside a client span and records its duration under operation.
// driver.ErrSkip is passed through without marking the span failed or recording
// a measurement, because database/sql retries the call another way.
func (c *Conn) observe(
	ctx context.Context,
	name, operation string,
	attrs []attribute.KeyValue,
	fn func(context.Context) error,
) error {
	start := time.Now()
	ctx, span := c.cfg.Tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	err := fn(ctx)
	if errors.Is(err, driver.ErrSkip) {
		return err
	}

	c.cfg.Metrics.recordQueryDuration(ctx, time.Since(start), operation, c.attrs, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// ResetSession implements driver.SessionResetter.
func (c *Conn) ResetSession(ctx context.Context) error {
	if resetter, ok := c.conn.(driver.SessionResetter); ok {
		return resetter.ResetSession(ctx)
	}
	return nil
}

// IsValid implements driver.Validator.
func (c *Conn) IsValid() bool {
	if validator, ok := c.conn.(driver.Validator); ok {
		return validator.IsValid()
	}
	return true
}

// CheckNamedValue implements driver.NamedValueChecker when the real connection does.
func (c *Conn) CheckNamedValue(nv *driver.NamedValue) error {
	if checker, ok := c.conn.(driver.NamedValueChecker); ok {
		return checker.CheckNamedValue(nv)
	}
	return driver.ErrSkip
}

// buildAttributes returns the attributes shared by every span on this connection.
func (c *Conn) buildAttributes() []attribute.KeyValue {
	attrs := c.cfg.baseAttributes()
	attrs = append(attrs, attribute.String("db.system", c.dbType))
	if c.user != "" {
		attrs = append(attrs, attribute.String("db.user", c.user))
	}
	attrs = append(attrs, attribute.String("db.connection.id", c.id))
	return attrs
}

// queryAttributes returns attributes for query spans.
func (c *Conn) queryAttributes(query string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(c.attrs)+2)
	attrs = append(attrs, c.attrs...)

	if stmt, ok := c.cfg.statement(c.dbType, query); ok {
		attrs = append(attrs, attribute.String("db.statement", stmt))
	}

	if op := extractOperation(query); op != "" {
		attrs = append(attrs, attribute.String("db.operation", op))
	}

	return attrs
}
