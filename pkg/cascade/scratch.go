// pkg/cascade/scratch.go
package cascade

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/connector"
)

const scratchDropTimeout = 5 * time.Second

// scratchSet is a temporary single-column table holding the target ids.
// It lives on the cascade's dedicated connection and is dropped once the
// transaction has ended, whatever the outcome.
type scratchSet struct {
	name    string
	builder squirrel.StatementBuilderType
}

func newScratchSet(dialect connector.Dialect) *scratchSet {
	return &scratchSet{
		name:    "cascade_targets_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		builder: squirrel.StatementBuilder.PlaceholderFormat(dialect.Placeholder()),
	}
}

func (s *scratchSet) create(ctx context.Context, tx *sqlx.Tx, ids []string, batchSize int) error {
	ddl := fmt.Sprintf("CREATE TEMP TABLE %s (id TEXT PRIMARY KEY)", connector.QuoteIdentifier(s.name))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create scratch table: %w", err)
	}

	if batchSize <= 0 {
		batchSize = 500
	}
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}

		insert := s.builder.Insert(connector.QuoteIdentifier(s.name)).Columns("id")
		for _, id := range ids[start:end] {
			insert = insert.Values(id)
		}

		sqlStr, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build scratch insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("failed to load target ids: %w", err)
		}
	}
	return nil
}

// matchAny returns a predicate that holds when any of columns, compared as
// text, equals a target id.
func (s *scratchSet) matchAny(columns ...string) squirrel.Sqlizer {
	subquery := fmt.Sprintf("(SELECT id FROM %s)", connector.QuoteIdentifier(s.name))
	or := make(squirrel.Or, 0, len(columns))
	for _, col := range columns {
		or = append(or, squirrel.Expr(fmt.Sprintf("CAST(%s AS TEXT) IN %s", connector.QuoteIdentifier(col), subquery)))
	}
	return or
}

// drop removes the scratch table. It runs after commit or rollback, so the
// caller's context may already be done.
func (s *scratchSet) drop(ctx context.Context, conn *sqlx.Conn, logger *zap.Logger) {
	dropCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), scratchDropTimeout)
	defer cancel()

	stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s", connector.QuoteIdentifier(s.name))
	if _, err := conn.ExecContext(dropCtx, stmt); err != nil {
		logger.Warn("Failed to drop scratch table",
			zap.String("table", s.name),
			zap.Error(err))
	}
}
