// pkg/connector/connector.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DatabaseConnector defines the interface for database connectors
type DatabaseConnector interface {
	// DB returns the underlying database connection
	DB() *sql.DB

	// Dialect reports the SQL flavour of the connection
	Dialect() Dialect

	// Validate verifies the connection and permissions
	Validate(ctx context.Context) error

	// Close closes the connection and releases resources
	Close() error

	// QueryEach runs a query under a timeout and calls fn for every row
	// before the timeout context is released.
	QueryEach(ctx context.Context, query string, timeout time.Duration, fn func(*sql.Rows) error, args ...interface{}) error

	// ExecWithTimeout executes a statement with a timeout
	ExecWithTimeout(ctx context.Context, query string, timeout time.Duration, args ...interface{}) (sql.Result, error)
}

// ConnStats contains standardized connection statistics
type ConnStats struct {
	OpenConnections int
	InUse           int
	Idle            int
	MaxOpenConns    int
	WaitCount       int64
	WaitDuration    time.Duration
}

// GetConnectionStats returns connection pool statistics for logging
func GetConnectionStats(db *sql.DB) ConnStats {
	stats := db.Stats()
	return ConnStats{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		MaxOpenConns:    stats.MaxOpenConnections,
		WaitCount:       stats.WaitCount,
		WaitDuration:    stats.WaitDuration,
	}
}

// LogConnectionStats logs connection pool statistics
func LogConnectionStats(logger *zap.Logger, name string, db *sql.DB) {
	stats := GetConnectionStats(db)
	logger.Debug("Connection pool stats",
		zap.String("database", name),
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Int("max_open", stats.MaxOpenConns),
		zap.Int64("wait_count", stats.WaitCount),
		zap.Duration("wait_duration", stats.WaitDuration),
	)
}

// PingWithTimeout attempts to ping a database with a timeout
func PingWithTimeout(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if pingCtx.Err() != nil {
			return fmt.Errorf("ping timed out after %v: %w", timeout, err)
		}
		return err
	}
	return nil
}

// ApplyConnectionSettings configures database connection pool settings
func ApplyConnectionSettings(db *sql.DB, maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) {
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime > 0 {
		db.SetConnMaxLifetime(maxLifetime)
	}
	if maxIdleTime > 0 {
		db.SetConnMaxIdleTime(maxIdleTime)
	}
}

// queryEach is shared by the connector implementations
func queryEach(
	ctx context.Context,
	db *sql.DB,
	query string,
	timeout time.Duration,
	fn func(*sql.Rows) error,
	args ...interface{},
) error {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func execWithTimeout(
	ctx context.Context,
	db *sql.DB,
	query string,
	timeout time.Duration,
	args ...interface{},
) (sql.Result, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return db.ExecContext(queryCtx, query, args...)
}

// BatchQuery pages through a query with LIMIT/OFFSET and calls scan for each
// row. afterPage, when set, runs once per page after the page's rows are
// released, so it may use the same connection pool. The query must have a
// stable ORDER BY for paging to be meaningful.
func BatchQuery(
	ctx context.Context,
	c DatabaseConnector,
	query string,
	batchSize int,
	timeout time.Duration,
	scan func(*sql.Rows) error,
	afterPage func() error,
) error {
	if batchSize <= 0 {
		batchSize = 5000
	}

	offset := 0
	for {
		batchQuery := fmt.Sprintf("%s LIMIT %d OFFSET %d", query, batchSize, offset)

		rowCount := 0
		err := c.QueryEach(ctx, batchQuery, timeout, func(rows *sql.Rows) error {
			rowCount++
			return scan(rows)
		})
		if err != nil {
			return fmt.Errorf("batch query failed at offset %d: %w", offset, err)
		}

		if afterPage != nil && rowCount > 0 {
			if err := afterPage(); err != nil {
				return fmt.Errorf("page processing failed at offset %d: %w", offset, err)
			}
		}

		// If fewer rows than batch size were returned, we're done
		if rowCount < batchSize {
			return nil
		}

		offset += batchSize
	}
}
