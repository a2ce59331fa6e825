// pkg/connector/postgres.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"go.uber.org/zap"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/config"
)

// PostgresConnector implements the DatabaseConnector interface for PostgreSQL
type PostgresConnector struct {
	db     *sql.DB
	logger *zap.Logger
	cfg    *config.PostgresConfig
}

// NewPostgresConnector creates and initializes a new PostgreSQL connector
func NewPostgresConnector(ctx context.Context, cfg *config.PostgresConfig) (*PostgresConnector, error) {
	logger := zap.L().Named("postgres-connector")

	// Log connection attempt
	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	// statement_timeout is passed as a runtime parameter so every pooled
	// connection gets it, not only the first one.
	connStr := cfg.ConnectionString()
	if cfg.StatementTimeout > 0 {
		connStr += fmt.Sprintf(" statement_timeout=%d", cfg.StatementTimeout.Milliseconds())
	}

	db, err := sql.Open(DialectPostgres.DriverName(), connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	// Configure connection pool
	ApplyConnectionSettings(
		db,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	// Verify connection
	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	connector := &PostgresConnector{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}

	LogConnectionStats(logger, cfg.Database, db)
	return connector, nil
}

// DB returns the underlying database connection
func (c *PostgresConnector) DB() *sql.DB {
	return c.db
}

// Dialect reports DialectPostgres
func (c *PostgresConnector) Dialect() Dialect {
	return DialectPostgres
}

// Validate verifies the PostgreSQL connection and the permissions the
// maintenance jobs rely on: reading the constraint catalog and creating
// temporary tables.
func (c *PostgresConnector) Validate(ctx context.Context) error {
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	c.logger.Info("Connected to PostgreSQL", zap.String("version", version))

	var fkCount int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pg_catalog.pg_constraint WHERE contype = 'f'",
	).Scan(&fkCount)
	if err != nil {
		return fmt.Errorf("failed to read foreign key catalog: %w", err)
	}

	// Check permissions by creating a temp table
	_, err = c.db.ExecContext(ctx, `
		DO $$
		BEGIN
			CREATE TEMP TABLE _permission_check (id text);
			DROP TABLE _permission_check;
		EXCEPTION WHEN OTHERS THEN
			RAISE EXCEPTION 'Permission check failed: %', SQLERRM;
		END $$;
	`)
	if err != nil {
		return fmt.Errorf("permission validation failed: %w", err)
	}

	c.logger.Info("PostgreSQL connection validated",
		zap.String("database", c.cfg.Database),
		zap.String("host", c.cfg.Host),
		zap.Int("port", c.cfg.Port),
		zap.Int("foreign_keys", fkCount))

	return nil
}

// Close closes the database connection
func (c *PostgresConnector) Close() error {
	c.logger.Info("Closing PostgreSQL connection")
	LogConnectionStats(c.logger, c.cfg.Database, c.db)
	return c.db.Close()
}

// ExecWithTimeout executes a statement with a timeout
func (c *PostgresConnector) ExecWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (sql.Result, error) {
	return execWithTimeout(ctx, c.db, query, timeout, args...)
}

// QueryEach executes a query with a timeout and hands every row to fn
func (c *PostgresConnector) QueryEach(
	ctx context.Context,
	query string,
	timeout time.Duration,
	fn func(*sql.Rows) error,
	args ...interface{},
) error {
	return queryEach(ctx, c.db, query, timeout, fn, args...)
}
