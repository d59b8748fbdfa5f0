// Package sqlx opens jmoiron/sqlx databases through the tracing driver.
//
// Connections are traced by the sql package; this package only picks the sqlx
// driver name from the database type in the url so that Rebind, Named queries
// and In expansion use the right placeholder style.
//
// # Quick Start
//
//	import (
//	    sentinelsql "github.com/kroma-labs/sentinel-tracing/sql"
//	    "github.com/kroma-labs/sentinel-tracing/sql/drivers"
//	    sentinelsqlx "github.com/kroma-labs/sentinel-tracing/sqlx"
//	)
//
//	drivers.RegisterAll(sentinelsql.DefaultRegistry)
//
//	db, err := sentinelsqlx.Connect(ctx, "jdbc:tracing:postgres://localhost:5432/app",
//	    sentinelsql.Properties{"user": "app", "password": secret},
//	    sentinelsql.WithDBName("app"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
// # Struct Scanning
//
//	type User struct {
//	    ID   int    `db:"id"`
//	    Name string `db:"name"`
//	}
//
//	var user User
//	err := db.GetContext(ctx, &user, db.Rebind("SELECT id, name FROM users WHERE id = ?"), 1)
//
// # Bind Styles
//
// The database type (the segment after "jdbc:tracing:") maps to a sqlx driver name:
//
//	postgres, postgresql  ->  postgres  ($1)
//	mysql, mariadb        ->  mysql     (?)
//	sqlite, sqlite3       ->  sqlite3   (?)
//	sqlserver, mssql      ->  sqlserver (@p1)
//	oracle                ->  godror    (:arg1)
//
// Other types keep their own name; register a bind style for them with sqlx.BindDriver.
package sqlx
