package sqlbase

import (
	"strconv"
	"strings"
)

// Dialect captures what differs between the supported SQL engines. Queries in this package are written
// with '?' placeholders and rebound per dialect.
type Dialect interface {
	Name() string

	// Rebind rewrites '?' placeholders into the engine's native form.
	Rebind(query string) string

	// MigrationsTableDDL creates the schema_migrations table if it does not exist.
	MigrationsTableDDL() string

	// TranslateError maps a unique-constraint violation to the matching persistence sentinel and returns
	// every other error unchanged.
	TranslateError(err error) error
}

// RebindDollar rewrites '?' placeholders as $1, $2, ... Quoted literals are left untouched.
func RebindDollar(query string) string {
	var (
		b       strings.Builder
		n       int
		inQuote bool
	)

	b.Grow(len(query) + 8)

	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}
