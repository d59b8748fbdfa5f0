package sql

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// URLPrefix is the prefix that routes a connection string through the tracing driver.
	//
	// Example:
	//
	//	jdbc:tracing:postgres://localhost:5432/app  ->  jdbc:postgres://localhost:5432/app
	URLPrefix = "jdbc:tracing:"

	// tracingToken is removed from a prefixed URL to obtain the real URL.
	tracingToken = "tracing:"

	// realURLScheme precedes the database type in a real URL.
	realURLScheme = "jdbc:"
)

// ExtractRealURL strips the tracing token from a prefixed URL.
// URLs without URLPrefix are returned unchanged.
//
// Only the first occurrence of "tracing:" is removed. Because URLPrefix is
// anchored at the start, that occurrence is always the prefix itself, so a
// "tracing:" later in the URL survives.
//
// Example:
//
//	ExtractRealURL("jdbc:tracing:mysql://db/app") // returns "jdbc:mysql://db/app"
func ExtractRealURL(u string) string {
	if !strings.HasPrefix(u, URLPrefix) {
		return u
	}
	return strings.Replace(u, tracingToken, "", 1)
}

// ExtractDBType returns the database type tag of a real URL: its second
// colon-delimited segment. Trailing empty segments do not count, so "jdbc:"
// has a single segment.
//
// Example:
//
//	ExtractDBType("jdbc:mydb:host/db") // returns "mydb", nil
//	ExtractDBType("nocolon")           // returns ErrMalformedURL
//	ExtractDBType("jdbc:")             // returns ErrMalformedURL
func ExtractDBType(realURL string) (string, error) {
	parts := strings.Split(realURL, ":")
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: %q: index 1 out of range [%d]", ErrMalformedURL, realURL, len(parts))
	}
	return parts[1], nil
}

// userFromURL returns the userinfo name of a URL-form real URL such as
// "jdbc:postgres://alice@host/db". It returns "" when there is none.
func userFromURL(realURL string) string {
	rest := strings.TrimPrefix(realURL, realURLScheme)
	if !strings.Contains(rest, "://") {
		return ""
	}
	parsed, err := url.Parse(rest)
	if err != nil || parsed.User == nil {
		return ""
	}
	return parsed.User.Username()
}
