package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpanName(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "given SELECT query, then returns SELECT", query: "SELECT * FROM users WHERE id = 1", want: "SELECT"},
		{name: "given lowercase query, then returns uppercase operation", query: "delete from users", want: "DELETE"},
		{name: "given empty query, then returns SQL", query: "", want: "SQL"},
		{name: "given whitespace only, then returns SQL", query: " \n\t ", want: "SQL"},
		{name: "given comment only, then returns SQL", query: "-- nothing here", want: "SQL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, spanName(tt.query))
		})
	}
}

func TestExtractOperation(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "given INSERT statement, then returns INSERT", query: "INSERT INTO users (name) VALUES ($1)", want: "INSERT"},
		{name: "given leading whitespace, then returns operation", query: "\n\t  UPDATE users SET name = $1", want: "UPDATE"},
		{name: "given CREATE statement, then returns CREATE", query: "CREATE TABLE t (id INT)", want: "CREATE"},
		{name: "given single word, then returns it uppercased", query: "commit", want: "COMMIT"},
		{name: "given trailing semicolon, then drops it", query: "BEGIN;", want: "BEGIN"},
		{name: "given CTE, then returns WITH", query: "WITH x AS (SELECT 1) SELECT * FROM x", want: "WITH"},
		{name: "given parenthesized union, then returns inner operation", query: "(select 1) union (select 2)", want: "SELECT"},
		{name: "given function call form, then stops at parenthesis", query: "VALUES(1, 2)", want: "VALUES"},
		{name: "given leading block comment, then skips it", query: "/* app=api,route=/users */ SELECT 1", want: "SELECT"},
		{name: "given leading line comments, then skips them", query: "-- first\n-- second\ninsert into t values (1)", want: "INSERT"},
		{name: "given unterminated comment, then returns empty", query: "/* never closed SELECT 1", want: ""},
		{name: "given empty string, then returns empty", query: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractOperation(tt.query))
		})
	}
}

func TestDefaultQuerySanitizer(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "given string literal, then replaces it",
			query: "SELECT * FROM users WHERE name = 'john'",
			want:  "SELECT * FROM users WHERE name = '?'",
		},
		{
			name:  "given doubled quote escape, then treats literal as one",
			query: "SELECT * FROM t WHERE s = 'it''s' AND x = 1",
			want:  "SELECT * FROM t WHERE s = '?' AND x = ?",
		},
		{
			name:  "given literal ending in backslash, then next literal is still replaced",
			query: `SELECT * FROM f WHERE path = 'C:\' AND secret = 'hunter2'`,
			want:  "SELECT * FROM f WHERE path = '?' AND secret = '?'",
		},
		{
			name:  "given backslash before doubled quote, then keeps one literal",
			query: `SELECT * FROM t WHERE s = 'a\''b' AND x = 1`,
			want:  "SELECT * FROM t WHERE s = '?' AND x = ?",
		},
		{
			name:  "given unterminated literal, then replaces to end",
			query: "SELECT 'oops",
			want:  "SELECT '?'",
		},
		{
			name:  "given integer, float and exponent, then replaces each",
			query: "UPDATE t SET a = 123, b = 45.67, c = 1e9, d = 2.5E-3",
			want:  "UPDATE t SET a = ?, b = ?, c = ?, d = ?",
		},
		{
			name:  "given hex literal, then replaces it",
			query: "SELECT * FROM t WHERE flags = 0xDEADBEEF",
			want:  "SELECT * FROM t WHERE flags = ?",
		},
		{
			name:  "given IN list of literals, then collapses it",
			query: "SELECT * FROM t WHERE id IN (1, 2, 3) AND s in ('a','b')",
			want:  "SELECT * FROM t WHERE id IN (?) AND s IN (?)",
		},
		{
			name:  "given bind placeholders, then keeps them",
			query: "SELECT * FROM t WHERE a = $1 AND b = :name AND c = @p2 AND d = ?",
			want:  "SELECT * FROM t WHERE a = $1 AND b = :name AND c = @p2 AND d = ?",
		},
		{
			name:  "given digits in identifiers, then keeps them",
			query: "SELECT t1.id, col_2 FROM users2 t1 LIMIT 10",
			want:  "SELECT t1.id, col_2 FROM users2 t1 LIMIT ?",
		},
		{
			name:  "given query without literals, then returns unchanged",
			query: "SELECT id, name FROM users",
			want:  "SELECT id, name FROM users",
		},
		{
			name:  "given empty query, then returns empty",
			query: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultQuerySanitizer(tt.query))
		})
	}
}

func TestMySQLQuerySanitizer(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "given backslash escaped quote, then treats literal as one",
			query: `SELECT * FROM t WHERE s = 'a\'b' AND secret = 'hunter2'`,
			want:  "SELECT * FROM t WHERE s = '?' AND secret = '?'",
		},
		{
			name:  "given escaped backslash at end of literal, then closes literal",
			query: `SELECT * FROM f WHERE path = 'C:\\' AND secret = 'hunter2'`,
			want:  "SELECT * FROM f WHERE path = '?' AND secret = '?'",
		},
		{
			name:  "given doubled quote, then treats literal as one",
			query: "SELECT * FROM t WHERE s = 'it''s' AND x = 1",
			want:  "SELECT * FROM t WHERE s = '?' AND x = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MySQLQuerySanitizer(tt.query))
		})
	}
}

func TestQuerySanitizerFor(t *testing.T) {
	const query = `SELECT * FROM t WHERE s = 'a\'b' AND secret = 'hunter2'`

	tests := []struct {
		name   string
		dbType string
		want   string
	}{
		{name: "given mysql, then uses backslash escapes", dbType: "mysql", want: MySQLQuerySanitizer(query)},
		{name: "given uppercase mariadb, then uses backslash escapes", dbType: "MariaDB", want: MySQLQuerySanitizer(query)},
		{name: "given postgres, then uses standard quoting", dbType: "postgres", want: DefaultQuerySanitizer(query)},
		{name: "given sqlite, then uses standard quoting", dbType: "sqlite", want: DefaultQuerySanitizer(query)},
		{name: "given unknown type, then uses standard quoting", dbType: "mydb", want: DefaultQuerySanitizer(query)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuerySanitizerFor(tt.dbType)(query))
		})
	}
}
