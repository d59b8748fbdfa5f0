package drivers

import (
	"net/url"
	"strings"

	"github.com/lib/pq"

	sentinelsql "github.com/kroma-labs/sentinel-tracing/sql"
)

// Postgres returns a candidate for "jdbc:postgres:" and "jdbc:postgresql:" URLs
// backed by lib/pq.
//
// Both pq connection string forms are understood:
//
//	jdbc:postgres://localhost:5432/app?sslmode=disable
//	jdbc:postgresql:host=localhost dbname=app sslmode=disable
//
// The user and password properties override those embedded in the URL.
func Postgres() *SQLDriver {
	return &SQLDriver{
		Schemes: []string{"postgres", "postgresql"},
		Driver:  &pq.Driver{},
		DSN:     postgresDSN,
		Properties: []sentinelsql.PropertyInfo{
			{Name: sentinelsql.PropertyUser, Description: "database user", Required: true},
			{Name: sentinelsql.PropertyPassword, Description: "database password"},
			{
				Name:        "sslmode",
				Description: "SSL negotiation mode",
				Choices:     []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"},
			},
		},
	}
}

func postgresDSN(realURL string, props sentinelsql.Properties) (string, error) {
	rest := strings.TrimPrefix(realURL, "jdbc:")
	if strings.HasPrefix(rest, "postgres://") || strings.HasPrefix(rest, "postgresql://") {
		return postgresURLDSN(rest, props)
	}

	dsn, err := StripScheme(realURL, props)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(dsn)
	for _, key := range []string{sentinelsql.PropertyUser, sentinelsql.PropertyPassword} {
		v := props.Get(key)
		if v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(quotePostgresValue(v))
	}
	return b.String(), nil
}

func postgresURLDSN(raw string, props sentinelsql.Properties) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	user := props.Get(sentinelsql.PropertyUser)
	password := props.Get(sentinelsql.PropertyPassword)
	if user == "" && password == "" {
		return u.String(), nil
	}

	if u.User != nil {
		if user == "" {
			user = u.User.Username()
		}
		if p, ok := u.User.Password(); ok && password == "" {
			password = p
		}
	}
	if password != "" {
		u.User = url.UserPassword(user, password)
	} else {
		u.User = url.User(user)
	}
	return u.String(), nil
}

// quotePostgresValue quotes v for a key=value connection string.
func quotePostgresValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
