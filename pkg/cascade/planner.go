// pkg/cascade/planner.go
package cascade

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/connector"
	"github.com/RichardHenryJames/nexhire-sub010/pkg/model"
)

const defaultInsertBatch = 500

// Planner deletes a set of entities from anchor tables together with every
// row that references them, inside a single transaction.
type Planner struct {
	db           *sqlx.DB
	dialect      connector.Dialect
	introspector SchemaIntrospector
	logger       *zap.Logger
	schema       string
	insertBatch  int
}

// NewPlanner creates a new cascade planner
func NewPlanner(db *sqlx.DB, dialect connector.Dialect, introspector SchemaIntrospector, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.L()
	}
	return &Planner{
		db:           db,
		dialect:      dialect,
		introspector: introspector,
		logger:       logger.Named("cascade-planner"),
		insertBatch:  defaultInsertBatch,
	}
}

// WithSchema qualifies generated DELETE and SELECT statements with schema
func (p *Planner) WithSchema(schema string) *Planner {
	p.schema = schema
	return p
}

// WithInsertBatch sets how many target ids are loaded per INSERT
func (p *Planner) WithInsertBatch(n int) *Planner {
	if n > 0 {
		p.insertBatch = n
	}
	return p
}

func (p *Planner) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(p.dialect.Placeholder())
}

func (p *Planner) table(name string) string {
	return connector.QualifiedName(p.schema, name)
}

// PlanAndExecute deletes targetIDs from the anchors and every row in every
// table that references an anchor through a foreign key. Anchors are given
// child anchor first. Either everything is deleted and committed, or the
// transaction is rolled back and a *RollbackError is returned.
func (p *Planner) PlanAndExecute(
	ctx context.Context,
	targetIDs []string,
	anchors []model.Anchor,
) (*model.DeletionReport, error) {
	if len(anchors) == 0 {
		return nil, ErrNoAnchors
	}

	ids := matchKeys(targetIDs)
	start := time.Now()
	p.logger.Info("Starting cascade delete",
		zap.Int("target_ids", len(ids)),
		zap.Strings("anchors", anchorTables(anchors)))

	conn, err := p.db.Connx(ctx)
	if err != nil {
		return nil, rollbackErr(StageConnect, "", fmt.Errorf("failed to acquire connection: %w", err))
	}
	defer conn.Close()

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, rollbackErr(StageConnect, "", fmt.Errorf("failed to begin transaction: %w", err))
	}

	scratch := newScratchSet(p.dialect)
	defer scratch.drop(ctx, conn, p.logger)

	report, err := p.execute(ctx, tx, scratch, ids, anchors)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			p.logger.Error("Rollback failed", zap.Error(rbErr))
		}
		p.logger.Error("Cascade delete rolled back", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, rollbackErr(StageCommit, "", fmt.Errorf("failed to commit: %w", err))
	}

	p.logger.Info("Cascade delete committed",
		zap.Int("tables", len(report.Order)),
		zap.Int64("rows", report.Total()),
		zap.Duration("duration", time.Since(start)))
	return report, nil
}

func (p *Planner) execute(
	ctx context.Context,
	tx *sqlx.Tx,
	scratch *scratchSet,
	ids []string,
	anchors []model.Anchor,
) (*model.DeletionReport, error) {
	if err := scratch.create(ctx, tx, ids, p.insertBatch); err != nil {
		return nil, rollbackErr(StageScratch, "", err)
	}

	plan, err := p.plan(ctx, tx, anchors)
	if err != nil {
		return nil, rollbackErr(StageIntrospection, "", err)
	}

	report := &model.DeletionReport{
		DeletedCounts: make(map[string]int64, len(plan.Steps)+len(anchors)),
		Plan:          plan,
		Order:         make([]string, 0, len(plan.Steps)+len(anchors)),
	}

	for _, step := range plan.Steps {
		n, err := p.deleteMatching(ctx, tx, step.Table, scratch.matchAny(step.Columns...))
		if err != nil {
			return nil, rollbackErr(StageDelete, step.Table, err)
		}
		p.record(report, step.Table, n)
	}

	for _, anchor := range anchors {
		n, err := p.deleteMatching(ctx, tx, anchor.Table, scratch.matchAny(anchor.KeyColumn))
		if err != nil {
			return nil, rollbackErr(StageDelete, anchor.Table, err)
		}
		p.record(report, anchor.Table, n)
	}

	for _, anchor := range anchors {
		remaining, err := p.countMatching(ctx, tx, anchor.Table, scratch.matchAny(anchor.KeyColumn))
		if err != nil {
			return nil, rollbackErr(StageVerify, anchor.Table, err)
		}
		report.Verify.AnchorRemaining += remaining
	}
	if report.Verify.AnchorRemaining > 0 {
		return nil, rollbackErr(StageVerify, "",
			fmt.Errorf("%w: %d rows", ErrVerificationFailed, report.Verify.AnchorRemaining))
	}

	return report, nil
}

func (p *Planner) record(report *model.DeletionReport, table string, n int64) {
	if _, seen := report.DeletedCounts[table]; !seen {
		report.Order = append(report.Order, table)
	}
	report.DeletedCounts[table] += n
	p.logger.Debug("Deleted rows", zap.String("table", table), zap.Int64("rows", n))
}

// plan introspects the schema through q and builds the deletion order
func (p *Planner) plan(ctx context.Context, q sqlx.QueryerContext, anchors []model.Anchor) (model.DeletionPlan, error) {
	referencing, err := p.introspector.ReferencingForeignKeys(ctx, q, anchorTables(anchors))
	if err != nil {
		return model.DeletionPlan{}, err
	}

	all, err := p.introspector.ForeignKeys(ctx, q)
	if err != nil {
		return model.DeletionPlan{}, err
	}

	plan := BuildDeletionPlan(anchors, referencing, all)
	if plan.Cyclic {
		p.logger.Warn("Foreign key cycle among dependent tables, using fallback order",
			zap.Strings("cycle_tables", plan.CycleTables),
			zap.Strings("order", plan.Tables()))
	}
	return plan, nil
}

func (p *Planner) deleteMatching(ctx context.Context, tx *sqlx.Tx, table string, pred squirrel.Sqlizer) (int64, error) {
	sqlStr, args, err := p.builder().Delete(p.table(table)).Where(pred).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete: %w", err)
	}

	res, err := tx.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *Planner) countMatching(ctx context.Context, q sqlx.QueryerContext, table string, pred squirrel.Sqlizer) (int64, error) {
	sqlStr, args, err := p.builder().Select("COUNT(*)").From(p.table(table)).Where(pred).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count: %w", err)
	}

	var n int64
	if err := sqlx.GetContext(ctx, q, &n, sqlStr, args...); err != nil {
		return 0, err
	}
	return n, nil
}

// Preview reports how many rows a cascade would delete per table without
// changing anything. Tables that disappear between introspection and
// counting are skipped.
func (p *Planner) Preview(
	ctx context.Context,
	targetIDs []string,
	anchors []model.Anchor,
) (*model.DeletionPreview, error) {
	if len(anchors) == 0 {
		return nil, ErrNoAnchors
	}

	plan, err := p.plan(ctx, p.db, anchors)
	if err != nil {
		return nil, fmt.Errorf("failed to plan cascade: %w", err)
	}

	ids := matchKeys(targetIDs)
	preview := &model.DeletionPreview{
		Plan:          plan,
		MatchedCounts: make(map[string]int64),
	}

	count := func(table string, columns []string) error {
		if _, seen := preview.MatchedCounts[table]; seen {
			return nil
		}

		or := make(squirrel.Or, 0, len(columns))
		for _, col := range columns {
			key := fmt.Sprintf("CAST(%s AS TEXT)", connector.QuoteIdentifier(col))
			for _, chunk := range chunks(ids, p.insertBatch) {
				or = append(or, squirrel.Eq{key: chunk})
			}
		}

		total, err := p.countMatching(ctx, p.db, table, or)
		if err != nil {
			return err
		}

		preview.MatchedCounts[table] = total
		preview.Order = append(preview.Order, table)
		return nil
	}

	visit := func(table string, columns []string) error {
		err := count(table, columns)
		if err != nil && IsUndefinedTable(err) {
			p.logger.Warn("Skipping missing table", zap.String("table", table), zap.Error(err))
			preview.SkippedTables = append(preview.SkippedTables, table)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to count rows in %s: %w", table, err)
		}
		return nil
	}

	for _, step := range plan.Steps {
		if err := visit(step.Table, step.Columns); err != nil {
			return nil, err
		}
	}
	for _, anchor := range anchors {
		if err := visit(anchor.Table, []string{anchor.KeyColumn}); err != nil {
			return nil, err
		}
	}

	return preview, nil
}

func anchorTables(anchors []model.Anchor) []string {
	tables := make([]string, len(anchors))
	for i, a := range anchors {
		tables[i] = a.Table
	}
	return tables
}

// matchKeys dedupes the target ids into the text keys compared against
// CAST(col AS TEXT). Ids are matched exactly, except that an id parsing as a
// UUID also matches its canonical lower and upper case renderings, since
// Postgres prints uuid columns in lower case and GUID sources often do not.
func matchKeys(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	add := func(key string) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}

	for _, id := range ids {
		add(id)
		if u, err := uuid.Parse(id); err == nil {
			add(u.String())
			add(strings.ToUpper(u.String()))
		}
	}
	return out
}

func chunks(ids []string, size int) [][]string {
	if size <= 0 {
		size = defaultInsertBatch
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
