package sqlx

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"

	sentinelsql "github.com/kroma-labs/sentinel-tracing/sql"
)

// bindNames maps database types to the driver names sqlx knows the bind style of.
var bindNames = map[string]string{
	"postgres":   "postgres",
	"postgresql": "postgres",
	"pgx":        "pgx",
	"cockroach":  "cockroach",
	"mysql":      "mysql",
	"mariadb":    "mysql",
	"sqlite":     "sqlite3",
	"sqlite3":    "sqlite3",
	"sqlserver":  "sqlserver",
	"mssql":      "sqlserver",
	"oracle":     "godror",
}

// DriverName returns the sqlx driver name for a database type, so that
// sqlx.BindType resolves the right placeholder style. Unknown types are
// returned lowercased and bind as sqlx.UNKNOWN until registered with sqlx.BindDriver.
//
// Example:
//
//	DriverName("postgresql") // "postgres", binds as $1
//	DriverName("sqlite")     // "sqlite3", binds as ?
func DriverName(dbType string) string {
	dbType = strings.ToLower(dbType)
	if name, ok := bindNames[dbType]; ok {
		return name
	}
	return dbType
}

// driverNameFor extracts the database type of a "jdbc:tracing:" url.
func driverNameFor(url string) (string, error) {
	dbType, err := sentinelsql.ExtractDBType(sentinelsql.ExtractRealURL(url))
	if err != nil {
		return "", err
	}
	return DriverName(dbType), nil
}

// Open opens a *sqlx.DB whose connections go through the tracing driver.
// No connection is made until first use.
//
// Example:
//
//	db, err := sentinelsqlx.Open("jdbc:tracing:postgres://localhost:5432/app?sslmode=disable",
//	    sentinelsql.Properties{"user": "app"},
//	    sentinelsql.WithDBName("app"),
//	)
func Open(url string, props sentinelsql.Properties, opts ...sentinelsql.Option) (*sqlx.DB, error) {
	db, err := sentinelsql.Open(url, props, opts...)
	if err != nil {
		return nil, err
	}
	name, err := driverNameFor(url)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return sqlx.NewDb(db, name), nil
}

// Connect opens and verifies a database connection.
// It is equivalent to Open followed by PingContext.
func Connect(
	ctx context.Context,
	url string,
	props sentinelsql.Properties,
	opts ...sentinelsql.Option,
) (*sqlx.DB, error) {
	db, err := Open(url, props, opts...)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// MustOpen is like Open but panics on error.
func MustOpen(url string, props sentinelsql.Properties, opts ...sentinelsql.Option) *sqlx.DB {
	db, err := Open(url, props, opts...)
	if err != nil {
		panic(err)
	}
	return db
}

// MustConnect is like Connect but panics on error.
func MustConnect(
	ctx context.Context,
	url string,
	props sentinelsql.Properties,
	opts ...sentinelsql.Option,
) *sqlx.DB {
	db, err := Connect(ctx, url, props, opts...)
	if err != nil {
		panic(err)
	}
	return db
}

// NewDB wraps an existing *sql.DB opened through the tracing driver, for
// example with sql.Open("tracing", url). The url only selects the bind style.
//
// Example:
//
//	sqlDB, _ := sql.Open("tracing", url)
//	db, err := sentinelsqlx.NewDB(sqlDB, url)
func NewDB(db *sql.DB, url string) (*sqlx.DB, error) {
	if url == "" {
		return nil, sentinelsql.ErrURLRequired
	}
	name, err := driverNameFor(url)
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(db, name), nil
}
