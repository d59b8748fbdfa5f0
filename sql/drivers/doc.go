// Package drivers provides registry candidates for real database backends.
//
// Each candidate accepts the real URL left after the tracing prefix is removed
// ("jdbc:<scheme>:...") and opens a connection with the corresponding
// database/sql driver.
//
//	import (
//	    sentinelsql "github.com/kroma-labs/sentinel-tracing/sql"
//	    "github.com/kroma-labs/sentinel-tracing/sql/drivers"
//	)
//
//	if err := drivers.RegisterAll(sentinelsql.DefaultRegistry); err != nil {
//	    log.Fatal(err)
//	}
//
// Supported schemes:
//   - PostgreSQL (lib/pq): jdbc:postgres:, jdbc:postgresql:
//   - MySQL (go-sql-driver/mysql): jdbc:mysql:
//   - SQLite (mattn/go-sqlite3): jdbc:sqlite:, jdbc:sqlite3:
//
// Any other database/sql driver can be adapted with SQLDriver.
package drivers
