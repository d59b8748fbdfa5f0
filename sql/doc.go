// Package sql provides a tracing interception driver for database/sql
// with automatic OpenTelemetry tracing and metrics.
//
// # Features
//
//   - Transparent interception of "jdbc:tracing:" connection strings
//   - Ordered driver registry with first-match resolution
//   - OpenTelemetry span per query, BEGIN/COMMIT/ROLLBACK, PING and CONNECT
//   - Database type and user attached to every span of a connection
//   - Query sanitization for secure logging
//   - Full compatibility with database/sql interface
//
// # Quick Start
//
// Register the real backends once, then open through the tracing driver:
//
//	import (
//	    sentinelsql "github.com/kroma-labs/sentinel-tracing/sql"
//	    "github.com/kroma-labs/sentinel-tracing/sql/drivers"
//	)
//
//	drivers.RegisterAll(sentinelsql.DefaultRegistry)
//
//	db, err := sql.Open("tracing", "jdbc:tracing:postgres://localhost:5432/app?sslmode=disable")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
// # Connection Strings
//
// A traced connection string is any real connection string prefixed with
// "jdbc:tracing:". The prefix is removed, the second colon-delimited segment
// becomes the database type, and the first registered driver that accepts the
// remainder opens the real connection:
//
//	jdbc:tracing:postgres://alice@db/app  ->  jdbc:postgres://alice@db/app   (db.system=postgres)
//	jdbc:tracing:mysql:tcp(db:3306)/app   ->  jdbc:mysql:tcp(db:3306)/app    (db.system=mysql)
//	jdbc:tracing:sqlite::memory:          ->  jdbc:sqlite::memory:           (db.system=sqlite)
//
// # Driver Registry
//
// DefaultRegistry is process-wide. The package's own TracingDriver registers
// itself there at init, so registries are scanned the same way a database/sql
// caller would scan them: in registration order, first match wins. Use
// NewRegistry and WithRegistry to isolate resolution, for example in tests.
//
// # Properties
//
// Properties travel with the URL to the real driver. The "user" property is
// recorded as db.user; when absent, the userinfo of a URL-form connection
// string is used instead.
//
//	db, _ := sentinelsql.Open("jdbc:tracing:mysql:tcp(localhost:3306)/app",
//	    sentinelsql.Properties{"user": "app", "password": secret},
//	    sentinelsql.WithDBName("app"),
//	    sentinelsql.WithQuerySanitizer(sentinelsql.DefaultQuerySanitizer),
//	)
//
// # Observability
//
// Traces:
//   - CONNECT span per new connection
//   - Span per query named after the operation (SELECT, INSERT, ...)
//   - Attributes: db.system, db.user, db.connection.id, db.name, db.instance,
//     db.statement, db.operation
//
// Metrics:
//   - db.client.operation.duration (histogram by operation)
//   - db.client.connection.create_time (histogram)
//   - db.client.connections.* pool gauges via RecordPoolMetrics
package sql
