package sql

import (
	"regexp"
	"strings"
)

// inListRegex matches an IN list made only of placeholders left by the sanitizer.
var inListRegex = regexp.MustCompile(`(?i)\bIN\s*\(\s*'?\?'?(?:\s*,\s*'?\?'?)*\s*\)`)

// spanName returns the operation of query, or "SQL" when there is none.
// Span names must not be empty.
func spanName(query string) string {
	if op := extractOperation(query); op != "" {
		return op
	}
	return "SQL"
}

// extractOperation returns the uppercased first keyword of query.
// Leading "--" and "/* */" comments and opening parentheses are skipped, so
// driver hints, sqlcommenter tags and parenthesized unions do not become the operation.
//
// Example:
//
//	extractOperation("SELECT * FROM users")          // returns "SELECT"
//	extractOperation("/* app=api */ insert into t") // returns "INSERT"
//	extractOperation("(select 1) union (select 2)")  // returns "SELECT"
//	extractOperation("")                             // returns ""
func extractOperation(query string) string {
	query = skipLeadingComments(query)
	query = strings.TrimLeft(query, "( \t\r\n")

	end := strings.IndexAny(query, " \t\r\n(;")
	if end == -1 {
		end = len(query)
	}
	return strings.ToUpper(query[:end])
}

// skipLeadingComments trims whitespace and any leading SQL comments.
func skipLeadingComments(query string) string {
	for {
		query = strings.TrimSpace(query)
		switch {
		case strings.HasPrefix(query, "--"):
			end := strings.IndexByte(query, '\n')
			if end == -1 {
				return ""
			}
			query = query[end+1:]
		case strings.HasPrefix(query, "/*"):
			end := strings.Index(query, "*/")
			if end == -1 {
				return ""
			}
			query = query[end+2:]
		default:
			return query
		}
	}
}

// DefaultQuerySanitizer replaces literal values with placeholders so that
// user data does not reach span attributes. String literals follow standard
// SQL quoting, as PostgreSQL and SQLite do: only a doubled quote escapes a
// quote and a backslash is an ordinary character.
//
//	'john'  'it''s'  'C:\'    become '?'
//	123  45.67  1e9  0xFF     become ?
//	IN (1, 2, 3)              becomes IN (?)
//
// Bind placeholders ($1, :name, @p1, ?) and digits inside identifiers
// (users2, t1.id) are kept.
//
// Example:
//
//	DefaultQuerySanitizer("SELECT * FROM users WHERE id = 123")
//	// returns "SELECT * FROM users WHERE id = ?"
//
//	DefaultQuerySanitizer("SELECT * FROM t WHERE id IN (1, 2, 3) AND name = $1")
//	// returns "SELECT * FROM t WHERE id IN (?) AND name = $1"
func DefaultQuerySanitizer(query string) string {
	return sanitizeQuery(query, false)
}

// MySQLQuerySanitizer is DefaultQuerySanitizer for databases where a
// backslash escapes the next character inside a string literal, such as
// MySQL and MariaDB in their default SQL mode.
//
//	'a\'b'  becomes '?'
func MySQLQuerySanitizer(query string) string {
	return sanitizeQuery(query, true)
}

// QuerySanitizerFor returns the sanitizer matching the string quoting rules
// of a database type tag.
func QuerySanitizerFor(dbType string) func(string) string {
	switch strings.ToLower(dbType) {
	case "mysql", "mariadb":
		return MySQLQuerySanitizer
	default:
		return DefaultQuerySanitizer
	}
}

func sanitizeQuery(query string, backslashEscapes bool) string {
	var b strings.Builder
	b.Grow(len(query))

	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'':
			i = skipStringLiteral(query, i, backslashEscapes)
			b.WriteString("'?'")
		case isDigit(c) && (i == 0 || !isWordByte(query[i-1])):
			i = skipNumber(query, i)
			b.WriteByte('?')
		default:
			b.WriteByte(c)
			i++
		}
	}

	return inListRegex.ReplaceAllString(b.String(), "IN (?)")
}

// skipStringLiteral returns the index just past the literal opening at start.
// A doubled quote never ends the literal. A backslash escapes the next byte
// only when backslashEscapes is set. An unterminated literal runs to the end.
func skipStringLiteral(query string, start int, backslashEscapes bool) int {
	for i := start + 1; i < len(query); i++ {
		switch query[i] {
		case '\\':
			if backslashEscapes {
				i++
			}
		case '\'':
			if i+1 < len(query) && query[i+1] == '\'' {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(query)
}

// skipNumber returns the index just past the numeric literal at start.
func skipNumber(query string, start int) int {
	i := start
	if query[i] == '0' && i+1 < len(query) && (query[i+1] == 'x' || query[i+1] == 'X') {
		i += 2
		for i < len(query) && isHexDigit(query[i]) {
			i++
		}
		return i
	}

	for i < len(query) && isDigit(query[i]) {
		i++
	}
	if i < len(query) && query[i] == '.' {
		i++
		for i < len(query) && isDigit(query[i]) {
			i++
		}
	}
	if i < len(query) && (query[i] == 'e' || query[i] == 'E') {
		j := i + 1
		if j < len(query) && (query[j] == '+' || query[j] == '-') {
			j++
		}
		if j < len(query) && isDigit(query[j]) {
			i = j
			for i < len(query) && isDigit(query[i]) {
				i++
			}
		}
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// isWordByte reports whether c continues an identifier or bind placeholder.
func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c == ':' || c == '@' ||
		isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}
