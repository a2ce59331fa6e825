// pkg/connector/snowflake.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/config"
)

// SnowflakeConnector reads scraped job postings from the staging warehouse
type SnowflakeConnector struct {
	db     *sql.DB
	logger *zap.Logger
	cfg    *config.SnowflakeConfig
}

// NewSnowflakeConnector creates a new Snowflake connection
func NewSnowflakeConnector(ctx context.Context, cfg *config.SnowflakeConfig) (*SnowflakeConnector, error) {
	logger := zap.L().Named("snowflake-connector")

	sfConfig := &sf.Config{
		Account:       cfg.Account,
		User:          cfg.User,
		Password:      cfg.Password,
		Database:      cfg.Database,
		Schema:        cfg.Schema,
		Warehouse:     cfg.Warehouse,
		Role:          cfg.Role,
		Authenticator: cfg.Authenticator,
	}

	// Log connection attempt (without credentials)
	logger.Info("Connecting to Snowflake",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema),
		zap.String("warehouse", cfg.Warehouse),
		zap.String("role", cfg.Role))

	dsn, err := sf.DSN(sfConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}

	db, err := sql.Open(DialectSnowflake.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Snowflake connection: %w", err)
	}

	ApplyConnectionSettings(
		db,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	if err := PingWithTimeout(ctx, db, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Snowflake: %w", err)
	}

	connector := &SnowflakeConnector{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}

	LogConnectionStats(logger, cfg.Database, db)
	return connector, nil
}

// DB returns the underlying database connection
func (c *SnowflakeConnector) DB() *sql.DB {
	return c.db
}

// Dialect reports DialectSnowflake
func (c *SnowflakeConnector) Dialect() Dialect {
	return DialectSnowflake
}

// Validate verifies the Snowflake session points at the staging database
// and that the scraper schema is visible to the role.
func (c *SnowflakeConnector) Validate(ctx context.Context) error {
	var role, database, warehouse sql.NullString
	err := c.db.QueryRowContext(ctx, "SELECT CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_WAREHOUSE()").Scan(
		&role, &database, &warehouse)
	if err != nil {
		return fmt.Errorf("failed to verify Snowflake access: %w", err)
	}

	c.logger.Info("Connected to Snowflake",
		zap.String("role", role.String),
		zap.String("database", database.String),
		zap.String("warehouse", warehouse.String))

	if !strings.EqualFold(database.String, c.cfg.Database) {
		return fmt.Errorf("connected to wrong database: %s (expected: %s)",
			database.String, c.cfg.Database)
	}

	var schemaCount int
	err = c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?",
		strings.ToUpper(c.cfg.Schema),
	).Scan(&schemaCount)
	if err != nil {
		return fmt.Errorf("failed to verify schema %s: %w", c.cfg.Schema, err)
	}
	if schemaCount == 0 {
		return fmt.Errorf("schema %s not found in %s", c.cfg.Schema, c.cfg.Database)
	}

	return nil
}

// Close closes the database connection
func (c *SnowflakeConnector) Close() error {
	c.logger.Info("Closing Snowflake connection")
	LogConnectionStats(c.logger, c.cfg.Database, c.db)
	return c.db.Close()
}

// QueryEach executes a query with a timeout and hands every row to fn
func (c *SnowflakeConnector) QueryEach(
	ctx context.Context,
	query string,
	timeout time.Duration,
	fn func(*sql.Rows) error,
	args ...interface{},
) error {
	if timeout <= 0 {
		timeout = c.cfg.QueryTimeout
	}
	return queryEach(ctx, c.db, query, timeout, fn, args...)
}

// ExecWithTimeout executes a statement with a timeout
func (c *SnowflakeConnector) ExecWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (sql.Result, error) {
	return execWithTimeout(ctx, c.db, query, timeout, args...)
}
