// pkg/connector/dialect.go
package connector

import (
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// Dialect identifies the SQL flavour a connector speaks
type Dialect string

const (
	DialectPostgres  Dialect = "postgres"
	DialectSnowflake Dialect = "snowflake"
	DialectSQLite    Dialect = "sqlite"
)

// ParseDialect maps a configuration value onto a Dialect
func ParseDialect(value string) (Dialect, error) {
	switch Dialect(value) {
	case DialectPostgres, DialectSnowflake, DialectSQLite:
		return Dialect(value), nil
	default:
		return "", fmt.Errorf("unknown dialect %q", value)
	}
}

// DriverName returns the database/sql driver registered for the dialect
func (d Dialect) DriverName() string {
	switch d {
	case DialectPostgres:
		return "pgx"
	case DialectSnowflake:
		return "snowflake"
	default:
		return "sqlite"
	}
}

// Placeholder returns the bind parameter style for generated statements
func (d Dialect) Placeholder() squirrel.PlaceholderFormat {
	if d == DialectPostgres {
		return squirrel.Dollar
	}
	return squirrel.Question
}

// QuoteIdentifier quotes a table or column name. All three dialects accept
// ANSI double-quoted identifiers.
func QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// QualifiedName quotes a table name, prefixing the schema when one is set
func QualifiedName(schema, table string) string {
	if schema == "" {
		return QuoteIdentifier(table)
	}
	return QuoteIdentifier(schema) + "." + QuoteIdentifier(table)
}
