package drivers

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	sentinelsql "github.com/kroma-labs/sentinel-tracing/sql"
)

// Compile-time interface checks.
var (
	_ sentinelsql.Driver         = (*SQLDriver)(nil)
	_ sentinelsql.PropertyInfoer = (*SQLDriver)(nil)
)

// ErrNoSchemes is returned when a SQLDriver has nothing to accept.
var ErrNoSchemes = errors.New("sql driver has no schemes")

// DSNFunc turns a real URL and its properties into a driver-specific DSN.
type DSNFunc func(realURL string, props sentinelsql.Properties) (string, error)

// SQLDriver adapts a database/sql driver into a registry candidate.
//
// Example:
//
//	reg.Register(&drivers.SQLDriver{
//	    Schemes: []string{"clickhouse"},
//	    Driver:  clickhouse.Driver{},
//	})
type SQLDriver struct {
	// Schemes are the database types this driver serves, matched as "jdbc:<scheme>:".
	Schemes []string

	// Driver opens the real connections.
	Driver driver.Driver

	// DSN builds the driver DSN. Defaults to StripScheme.
	DSN DSNFunc

	// Properties describes the connection properties the driver understands.
	Properties []sentinelsql.PropertyInfo
}

// AcceptsURL reports whether realURL starts with "jdbc:<scheme>:" for one of the schemes.
func (d *SQLDriver) AcceptsURL(realURL string) (bool, error) {
	if len(d.Schemes) == 0 {
		return false, ErrNoSchemes
	}
	_, ok := d.match(realURL)
	return ok, nil
}

// Connect opens a connection for realURL. Drivers that implement
// driver.DriverContext are opened through their connector so ctx is honored.
func (d *SQLDriver) Connect(
	ctx context.Context,
	realURL string,
	props sentinelsql.Properties,
) (driver.Conn, error) {
	dsnFn := d.DSN
	if dsnFn == nil {
		dsnFn = StripScheme
	}
	dsn, err := dsnFn(realURL, props)
	if err != nil {
		return nil, err
	}

	if dc, ok := d.Driver.(driver.DriverContext); ok {
		connector, err := dc.OpenConnector(dsn)
		if err != nil {
			return nil, err
		}
		return connector.Connect(ctx)
	}
	return d.Driver.Open(dsn)
}

// PropertyInfo returns the driver's properties with values taken from props.
func (d *SQLDriver) PropertyInfo(_ string, props sentinelsql.Properties) ([]sentinelsql.PropertyInfo, error) {
	if len(d.Properties) == 0 {
		return nil, nil
	}
	out := make([]sentinelsql.PropertyInfo, len(d.Properties))
	for i, p := range d.Properties {
		if v := props.Get(p.Name); v != "" {
			p.Value = v
		}
		out[i] = p
	}
	return out, nil
}

// match returns the "jdbc:<scheme>:" prefix realURL starts with.
func (d *SQLDriver) match(realURL string) (string, bool) {
	for _, scheme := range d.Schemes {
		prefix := "jdbc:" + scheme + ":"
		if strings.HasPrefix(realURL, prefix) {
			return prefix, true
		}
	}
	return "", false
}

// StripScheme is the default DSNFunc: it removes the leading "jdbc:<scheme>:".
//
// Example:
//
//	StripScheme("jdbc:sqlite:/tmp/app.db", nil) // returns "/tmp/app.db"
func StripScheme(realURL string, _ sentinelsql.Properties) (string, error) {
	rest := strings.TrimPrefix(realURL, "jdbc:")
	i := strings.IndexByte(rest, ':')
	if i < 0 {
		return "", sentinelsql.ErrMalformedURL
	}
	return rest[i+1:], nil
}

// RegisterAll registers the PostgreSQL, MySQL and SQLite candidates in that order.
func RegisterAll(reg sentinelsql.Registry) error {
	for _, d := range []sentinelsql.Driver{Postgres(), MySQL(), SQLite()} {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}
