package storage

import (
	"fmt"
	"net/url"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Dialect captures what differs between the supported SQL backends.
type Dialect struct {
	Name        string
	DriverName  string
	Placeholder sq.PlaceholderFormat
}

var (
	// Postgres is served by lib/pq.
	Postgres = Dialect{Name: "postgres", DriverName: "postgres", Placeholder: sq.Dollar}
	// SQLite is served by modernc.org/sqlite.
	SQLite = Dialect{Name: "sqlite", DriverName: "sqlite", Placeholder: sq.Question}
)

// ParseDSN picks the dialect from the DSN scheme and returns the
// connection string the driver expects.
func ParseDSN(dsn string) (Dialect, string, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return Dialect{}, "", fmt.Errorf("database dsn is empty")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		conn, err := withPostgresSSL(dsn)
		return Postgres, conn, err
	case strings.HasPrefix(dsn, "sqlite://"):
		return SQLite, withSQLiteOptions(strings.TrimPrefix(dsn, "sqlite://")), nil
	case strings.HasPrefix(dsn, "file:"):
		return SQLite, withSQLiteOptions(dsn), nil
	default:
		return Dialect{}, "", fmt.Errorf("unsupported database dsn scheme in %q", redact(dsn))
	}
}

// withPostgresSSL requires TLS unless the DSN already chose an sslmode.
func withPostgresSSL(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse postgres dsn: %w", err)
	}
	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "require")
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func withSQLiteOptions(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
