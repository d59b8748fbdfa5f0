package drivers

import (
	"github.com/mattn/go-sqlite3"
)

// SQLite returns a candidate for "jdbc:sqlite:" and "jdbc:sqlite3:" URLs backed
// by mattn/go-sqlite3. Everything after the scheme is passed through as the
// file name, so "jdbc:sqlite::memory:" opens an in-memory database.
//
// Building this driver requires cgo.
func SQLite() *SQLDriver {
	return &SQLDriver{
		Schemes: []string{"sqlite", "sqlite3"},
		Driver:  &sqlite3.SQLiteDriver{},
	}
}
