// pkg/ingest/ingestor.go

// Package ingest moves scraped employer names from a staging source into the
// companies table, keeping a record of every name the normalizer rejected.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/company"
	"github.com/RichardHenryJames/nexhire-sub010/pkg/connector"
	"github.com/RichardHenryJames/nexhire-sub010/pkg/model"
)

const (
	CompaniesTable  = "companies"
	RejectionsTable = "company_name_rejections"

	// keeps bind parameters per statement under the SQLite and Postgres limits
	maxRowsPerInsert = 1000
)

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS companies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS company_name_rejections (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	raw_value TEXT NOT NULL,
	sanitized_name TEXT NOT NULL,
	reason TEXT NOT NULL,
	rejected_at TIMESTAMP NOT NULL
)`,
}

// Ingestor normalizes employer names read from a source and writes the
// results to the target database, one transaction per page.
type Ingestor struct {
	source       connector.DatabaseConnector
	target       *sqlx.DB
	dialect      connector.Dialect
	normalizer   *company.Normalizer
	logger       *zap.Logger
	sourceName   string
	batchSize    int
	queryTimeout time.Duration
	maxRetries   int
	retryDelay   time.Duration
}

// NewIngestor creates a new ingestor
func NewIngestor(
	source connector.DatabaseConnector,
	target connector.DatabaseConnector,
	normalizer *company.Normalizer,
	logger *zap.Logger,
) *Ingestor {
	if normalizer == nil {
		normalizer = company.NewNormalizer(company.DefaultRules())
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Ingestor{
		source:       source,
		target:       sqlx.NewDb(target.DB(), target.Dialect().DriverName()),
		dialect:      target.Dialect(),
		normalizer:   normalizer,
		logger:       logger.Named("company-ingest"),
		sourceName:   "scraper",
		batchSize:    5000,
		queryTimeout: 5 * time.Minute,
		maxRetries:   3,
		retryDelay:   time.Second,
	}
}

// WithBatchSize sets how many names are read per page
func (i *Ingestor) WithBatchSize(batchSize int) *Ingestor {
	if batchSize > 0 {
		i.batchSize = batchSize
	}
	return i
}

// WithSourceName sets the source label stored on rejection rows
func (i *Ingestor) WithSourceName(name string) *Ingestor {
	if name != "" {
		i.sourceName = name
	}
	return i
}

// WithQueryTimeout sets the timeout for each page read
func (i *Ingestor) WithQueryTimeout(timeout time.Duration) *Ingestor {
	if timeout > 0 {
		i.queryTimeout = timeout
	}
	return i
}

// WithRetry sets how often and how far apart a failed page write is retried
func (i *Ingestor) WithRetry(maxRetries int, delay time.Duration) *Ingestor {
	i.maxRetries = maxRetries
	i.retryDelay = delay
	return i
}

// EnsureTables creates the companies and rejection tables when missing
func (i *Ingestor) EnsureTables(ctx context.Context) error {
	for _, stmt := range ddl {
		if _, err := i.target.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create ingestion tables: %w", err)
		}
	}
	return nil
}

type page struct {
	companies  []model.Company
	rejections []model.NameRejection
}

// Run pages through query on the source. The query must select a single
// text column of raw employer names with a stable ORDER BY.
func (i *Ingestor) Run(ctx context.Context, query string) (*Summary, error) {
	summary := NewSummary(i.sourceName)
	i.logger.Info("Starting company ingestion",
		zap.String("source", i.sourceName),
		zap.String("dialect", string(i.source.Dialect())),
		zap.Int("batchSize", i.batchSize))

	var current page

	scan := func(rows *sql.Rows) error {
		var raw sql.NullString
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("failed to scan company name: %w", err)
		}

		sanitized, verdict := i.normalizer.Normalize(raw.String)
		summary.Record(verdict)

		now := time.Now().UTC()
		if verdict.Valid {
			current.companies = append(current.companies, model.Company{
				ID:        uuid.NewString(),
				Name:      sanitized,
				CreatedAt: now,
			})
			return nil
		}

		current.rejections = append(current.rejections, model.NameRejection{
			ID:            uuid.NewString(),
			Source:        i.sourceName,
			RawValue:      raw.String,
			SanitizedName: sanitized,
			Reason:        verdict.Reason,
			RejectedAt:    now,
		})
		return nil
	}

	flush := func() error {
		inserted, err := i.writePageWithRetry(ctx, current)
		if err != nil {
			return err
		}

		summary.Pages++
		summary.Inserted += inserted
		i.logger.Debug("Page written",
			zap.Int("page", summary.Pages),
			zap.Int("accepted", len(current.companies)),
			zap.Int("rejected", len(current.rejections)),
			zap.Int64("inserted", inserted))

		current = page{}
		return nil
	}

	err := connector.BatchQuery(ctx, i.source, query, i.batchSize, i.queryTimeout, scan, flush)
	if err != nil {
		return nil, fmt.Errorf("company ingestion failed after %d names: %w", summary.Read, err)
	}

	summary.Complete(i.logger)
	return summary, nil
}

func (i *Ingestor) writePageWithRetry(ctx context.Context, p page) (int64, error) {
	for attempt := 0; ; attempt++ {
		inserted, err := i.writePage(ctx, p)
		if err == nil {
			return inserted, nil
		}
		if attempt >= i.maxRetries || !IsRetryableError(err) {
			return 0, err
		}

		i.logger.Warn("Retrying page write",
			zap.Int("retry", attempt+1),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(i.retryDelay * time.Duration(attempt+1)):
		}
	}
}

// writePage stores one page of accepted and rejected names atomically and
// returns how many companies were new.
func (i *Ingestor) writePage(ctx context.Context, p page) (inserted int64, err error) {
	tx, err := i.target.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	builder := squirrel.StatementBuilder.PlaceholderFormat(i.dialect.Placeholder())

	for start := 0; start < len(p.companies); start += maxRowsPerInsert {
		chunk := p.companies[start:min(start+maxRowsPerInsert, len(p.companies))]

		insert := builder.Insert(CompaniesTable).
			Columns("id", "name", "created_at").
			Suffix("ON CONFLICT (name) DO NOTHING")
		for _, c := range chunk {
			insert = insert.Values(c.ID, c.Name, c.CreatedAt)
		}

		n, err := execCount(ctx, tx, insert)
		if err != nil {
			return 0, fmt.Errorf("failed to insert companies: %w", err)
		}
		inserted += n
	}

	for start := 0; start < len(p.rejections); start += maxRowsPerInsert {
		chunk := p.rejections[start:min(start+maxRowsPerInsert, len(p.rejections))]

		insert := builder.Insert(RejectionsTable).
			Columns("id", "source", "raw_value", "sanitized_name", "reason", "rejected_at")
		for _, r := range chunk {
			insert = insert.Values(r.ID, r.Source, r.RawValue, r.SanitizedName, string(r.Reason), r.RejectedAt)
		}

		if _, err := execCount(ctx, tx, insert); err != nil {
			return 0, fmt.Errorf("failed to record rejections: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

func execCount(ctx context.Context, tx *sqlx.Tx, insert squirrel.InsertBuilder) (int64, error) {
	sqlStr, args, err := insert.ToSql()
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
