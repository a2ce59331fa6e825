// pkg/connector/factory.go
package connector

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/config"
)

// ConnectorFactory creates database connectors
type ConnectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.Config, logger *zap.Logger) *ConnectorFactory {
	return &ConnectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSnowflakeConnector creates a new Snowflake connector
func (f *ConnectorFactory) CreateSnowflakeConnector(ctx context.Context) (*SnowflakeConnector, error) {
	if f.cfg.Snowflake == nil {
		return nil, errors.New("snowflake is not configured (set SNOWFLAKE_ACCOUNT)")
	}
	f.logger.Info("Creating Snowflake connector")

	connector, err := NewSnowflakeConnector(ctx, f.cfg.Snowflake)
	if err != nil {
		return nil, fmt.Errorf("failed to create Snowflake connector: %w", err)
	}

	return connector, nil
}

// CreatePostgresConnector creates a new PostgreSQL connector
func (f *ConnectorFactory) CreatePostgresConnector(ctx context.Context) (*PostgresConnector, error) {
	if f.cfg.Postgres == nil {
		return nil, errors.New("postgres is not configured (set POSTGRES_DB and POSTGRES_USER)")
	}
	f.logger.Info("Creating PostgreSQL connector")

	connector, err := NewPostgresConnector(ctx, f.cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connector: %w", err)
	}

	return connector, nil
}

// CreateSQLiteConnector creates a new SQLite connector
func (f *ConnectorFactory) CreateSQLiteConnector(ctx context.Context) (*SQLiteConnector, error) {
	if f.cfg.SQLite == nil {
		return nil, errors.New("sqlite is not configured (set SQLITE_PATH)")
	}
	f.logger.Info("Creating SQLite connector")

	connector, err := NewSQLiteConnector(ctx, f.cfg.SQLite)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite connector: %w", err)
	}

	return connector, nil
}

// CreateConnector creates a connector for the given dialect
func (f *ConnectorFactory) CreateConnector(ctx context.Context, dialect Dialect) (DatabaseConnector, error) {
	var (
		conn DatabaseConnector
		err  error
	)

	// Assign through typed locals so a failed constructor never yields a
	// non-nil interface holding a nil pointer.
	switch dialect {
	case DialectPostgres:
		var pg *PostgresConnector
		if pg, err = f.CreatePostgresConnector(ctx); err == nil {
			conn = pg
		}
	case DialectSnowflake:
		var snow *SnowflakeConnector
		if snow, err = f.CreateSnowflakeConnector(ctx); err == nil {
			conn = snow
		}
	case DialectSQLite:
		var lite *SQLiteConnector
		if lite, err = f.CreateSQLiteConnector(ctx); err == nil {
			conn = lite
		}
	default:
		err = fmt.Errorf("unsupported dialect %q", dialect)
	}

	if err != nil {
		return nil, err
	}
	return conn, nil
}

// CreateMaintenanceConnector returns the database the maintenance jobs write
// to: PostgreSQL when configured, otherwise the local SQLite file.
func (f *ConnectorFactory) CreateMaintenanceConnector(ctx context.Context) (DatabaseConnector, error) {
	if f.cfg.Postgres != nil {
		return f.CreateConnector(ctx, DialectPostgres)
	}
	if f.cfg.SQLite != nil {
		return f.CreateConnector(ctx, DialectSQLite)
	}
	return nil, errors.New("no maintenance database configured (set POSTGRES_DB or SQLITE_PATH)")
}
