// pkg/connector/sqlite.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/config"
)

// SQLiteConnector implements the DatabaseConnector interface for a local
// SQLite file, used for offline maintenance runs and tests.
type SQLiteConnector struct {
	db     *sql.DB
	logger *zap.Logger
	cfg    *config.SQLiteConfig
}

// NewSQLiteConnector opens the SQLite database described by cfg
func NewSQLiteConnector(ctx context.Context, cfg *config.SQLiteConfig) (*SQLiteConnector, error) {
	logger := zap.L().Named("sqlite-connector")
	logger.Info("Opening SQLite database", zap.String("path", cfg.Path))

	db, err := sql.Open(DialectSQLite.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite serializes writers; a single connection also keeps temporary
	// tables visible to every statement.
	ApplyConnectionSettings(db, 1, 1, 0, 0)

	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	return &SQLiteConnector{db: db, logger: logger, cfg: cfg}, nil
}

// DB returns the underlying database connection
func (c *SQLiteConnector) DB() *sql.DB {
	return c.db
}

// Dialect reports DialectSQLite
func (c *SQLiteConnector) Dialect() Dialect {
	return DialectSQLite
}

// Validate checks that foreign key enforcement is switched on
func (c *SQLiteConnector) Validate(ctx context.Context) error {
	var enabled int
	if err := c.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("failed to read foreign_keys pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("foreign key enforcement is disabled for %s", c.cfg.Path)
	}
	return nil
}

// Close closes the database connection
func (c *SQLiteConnector) Close() error {
	c.logger.Info("Closing SQLite database", zap.String("path", c.cfg.Path))
	return c.db.Close()
}

// QueryEach executes a query with a timeout and hands every row to fn
func (c *SQLiteConnector) QueryEach(
	ctx context.Context,
	query string,
	timeout time.Duration,
	fn func(*sql.Rows) error,
	args ...interface{},
) error {
	return queryEach(ctx, c.db, query, timeout, fn, args...)
}

// ExecWithTimeout executes a statement with a timeout
func (c *SQLiteConnector) ExecWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (sql.Result, error) {
	return execWithTimeout(ctx, c.db, query, timeout, args...)
}
