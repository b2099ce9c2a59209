package database

import (
	"strconv"
	"strings"
)

// Driver names a SQL backend for the inbox store.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

func (d Driver) String() string { return string(d) }

// IsValid reports whether d is a backend this package can open.
func (d Driver) IsValid() bool {
	return d == DriverPostgres || d == DriverSQLite
}

// DetectDriver picks PostgreSQL for postgres:// URLs and SQLite for
// everything else, including an empty URL.
func DetectDriver(url string) Driver {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(url, scheme) {
			return DriverPostgres
		}
	}
	return DriverSQLite
}

// Rebind turns ? placeholders into $1, $2, ... for PostgreSQL. A ? inside
// a single-quoted literal is kept.
func Rebind(d Driver, query string) string {
	if d != DriverPostgres || !strings.Contains(query, "?") {
		return query
	}
	var (
		b       strings.Builder
		n       int
		literal bool
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		switch {
		case r == '\'':
			literal = !literal
		case r == '?' && !literal:
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
