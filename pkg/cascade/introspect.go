// pkg/cascade/introspect.go
package cascade

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/connector"
	"github.com/RichardHenryJames/nexhire-sub010/pkg/model"
)

// SchemaIntrospector reads foreign keys from the live catalog
type SchemaIntrospector interface {
	// ReferencingForeignKeys returns the edges whose parent is one of parents
	ReferencingForeignKeys(ctx context.Context, q sqlx.QueryerContext, parents []string) ([]model.ForeignKeyEdge, error)

	// ForeignKeys returns every foreign key edge in the schema
	ForeignKeys(ctx context.Context, q sqlx.QueryerContext) ([]model.ForeignKeyEdge, error)
}

// NewIntrospector returns the introspector for a dialect
func NewIntrospector(dialect connector.Dialect, schema string) (SchemaIntrospector, error) {
	switch dialect {
	case connector.DialectPostgres:
		return &PostgresIntrospector{Schema: schema}, nil
	case connector.DialectSQLite:
		return &SQLiteIntrospector{}, nil
	default:
		return nil, fmt.Errorf("foreign key introspection is not supported for %s", dialect)
	}
}

// PostgresIntrospector reads foreign keys from pg_catalog. Composite keys
// produce one edge per column.
type PostgresIntrospector struct {
	Schema string
}

func (i *PostgresIntrospector) schema() string {
	if i.Schema == "" {
		return "public"
	}
	return i.Schema
}

func (i *PostgresIntrospector) baseQuery() squirrel.SelectBuilder {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(
			"child.relname AS child_table",
			"att.attname AS child_column",
			"parent.relname AS parent_table",
		).
		From("pg_constraint con").
		Join("pg_class child ON child.oid = con.conrelid").
		Join("pg_namespace ns ON ns.oid = child.relnamespace").
		Join("pg_class parent ON parent.oid = con.confrelid").
		Join("pg_namespace pns ON pns.oid = parent.relnamespace").
		Join("LATERAL unnest(con.conkey) AS k(attnum) ON true").
		Join("pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = k.attnum").
		Where("con.contype = 'f'").
		Where(squirrel.Eq{"ns.nspname": i.schema()}).
		Where(squirrel.Eq{"pns.nspname": i.schema()}).
		OrderBy("child.relname", "att.attname", "parent.relname")
}

// ReferencingForeignKeys implements SchemaIntrospector
func (i *PostgresIntrospector) ReferencingForeignKeys(
	ctx context.Context,
	q sqlx.QueryerContext,
	parents []string,
) ([]model.ForeignKeyEdge, error) {
	if len(parents) == 0 {
		return nil, nil
	}
	return selectEdges(ctx, q, i.baseQuery().Where(squirrel.Eq{"parent.relname": parents}))
}

// ForeignKeys implements SchemaIntrospector
func (i *PostgresIntrospector) ForeignKeys(ctx context.Context, q sqlx.QueryerContext) ([]model.ForeignKeyEdge, error) {
	return selectEdges(ctx, q, i.baseQuery())
}

// SQLiteIntrospector reads foreign keys with pragma_foreign_key_list
type SQLiteIntrospector struct{}

func (SQLiteIntrospector) baseQuery() squirrel.SelectBuilder {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question).
		Select(
			"m.name AS child_table",
			`p."from" AS child_column`,
			`p."table" AS parent_table`,
		).
		From("sqlite_master AS m").
		Join("pragma_foreign_key_list(m.name) AS p").
		Where("m.type = 'table'").
		OrderBy("m.name", `p."from"`, `p."table"`)
}

// ReferencingForeignKeys implements SchemaIntrospector
func (i SQLiteIntrospector) ReferencingForeignKeys(
	ctx context.Context,
	q sqlx.QueryerContext,
	parents []string,
) ([]model.ForeignKeyEdge, error) {
	if len(parents) == 0 {
		return nil, nil
	}
	return selectEdges(ctx, q, i.baseQuery().Where(squirrel.Eq{`p."table"`: parents}))
}

// ForeignKeys implements SchemaIntrospector
func (i SQLiteIntrospector) ForeignKeys(ctx context.Context, q sqlx.QueryerContext) ([]model.ForeignKeyEdge, error) {
	return selectEdges(ctx, q, i.baseQuery())
}

func selectEdges(ctx context.Context, q sqlx.QueryerContext, query squirrel.SelectBuilder) ([]model.ForeignKeyEdge, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build foreign key query: %w", err)
	}

	var edges []model.ForeignKeyEdge
	if err := sqlx.SelectContext(ctx, q, &edges, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("failed to read foreign keys: %w", err)
	}
	return edges, nil
}
