package drivers

import (
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"

	sentinelsql "github.com/kroma-labs/sentinel-tracing/sql"
)

// MySQL returns a candidate for "jdbc:mysql:" URLs backed by go-sql-driver/mysql.
//
// Both the driver's own DSN and the URL form are understood:
//
//	jdbc:mysql:app:secret@tcp(localhost:3306)/app?parseTime=true
//	jdbc:mysql://app@localhost:3306/app?parseTime=true
//
// The user and password properties override those embedded in the URL.
func MySQL() *SQLDriver {
	return &SQLDriver{
		Schemes: []string{"mysql"},
		Driver:  &mysql.MySQLDriver{},
		DSN:     mysqlDSN,
		Properties: []sentinelsql.PropertyInfo{
			{Name: sentinelsql.PropertyUser, Description: "database user", Required: true},
			{Name: sentinelsql.PropertyPassword, Description: "database password"},
		},
	}
}

func mysqlDSN(realURL string, props sentinelsql.Properties) (string, error) {
	dsn, err := StripScheme(realURL, props)
	if err != nil {
		return "", err
	}

	var cfg *mysql.Config
	if strings.HasPrefix(dsn, "//") {
		cfg, err = mysqlConfigFromURL(dsn)
	} else {
		cfg, err = mysql.ParseDSN(dsn)
	}
	if err != nil {
		return "", err
	}

	if user := props.Get(sentinelsql.PropertyUser); user != "" {
		cfg.User = user
	}
	if password := props.Get(sentinelsql.PropertyPassword); password != "" {
		cfg.Passwd = password
	}
	return cfg.FormatDSN(), nil
}

// mysqlConfigFromURL reads "//user:pass@host:port/db?params" into a driver config.
func mysqlConfigFromURL(raw string) (*mysql.Config, error) {
	u, err := url.Parse("mysql:" + raw)
	if err != nil {
		return nil, err
	}

	cfg := mysql.NewConfig()
	if u.Host != "" {
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		if u.Port() == "" {
			cfg.Addr += ":3306"
		}
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")

	// Round-trip the query through ParseDSN so known params land in their fields.
	if u.RawQuery != "" {
		parsed, err := mysql.ParseDSN("/?" + u.RawQuery)
		if err != nil {
			return nil, err
		}
		parsed.User, parsed.Passwd = cfg.User, cfg.Passwd
		parsed.Net, parsed.Addr, parsed.DBName = cfg.Net, cfg.Addr, cfg.DBName
		cfg = parsed
	}
	return cfg, nil
}
