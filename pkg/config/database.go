// pkg/config/database.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/snowflakedb/gosnowflake"
)

// SnowflakeConfig holds connection parameters for the scraper staging warehouse
type SnowflakeConfig struct {
	User          string
	Password      string
	Account       string
	Warehouse     string
	Database      string // Default: REFOPEN_STAGING
	Schema        string // Default: SCRAPER
	Role          string
	Authenticator gosnowflake.AuthType

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Query timeout
	QueryTimeout time.Duration
}

// PostgresConfig holds PostgreSQL connection parameters
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Statement timeout
	StatementTimeout time.Duration
}

// SQLiteConfig holds parameters for a local SQLite database file
type SQLiteConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// LoadSnowflakeConfig loads Snowflake configuration from environment variables
func LoadSnowflakeConfig() (*SnowflakeConfig, error) {
	user := os.Getenv("SNOWFLAKE_USER")
	if user == "" {
		return nil, errors.New("SNOWFLAKE_USER environment variable is required")
	}

	account := os.Getenv("SNOWFLAKE_ACCOUNT")
	if account == "" {
		return nil, errors.New("SNOWFLAKE_ACCOUNT environment variable is required")
	}

	warehouse := os.Getenv("SNOWFLAKE_WAREHOUSE")
	if warehouse == "" {
		return nil, errors.New("SNOWFLAKE_WAREHOUSE environment variable is required")
	}

	authenticator := parseAuthenticator(getEnv("SNOWFLAKE_AUTHENTICATOR", "snowflake"))

	password := os.Getenv("SNOWFLAKE_PASSWORD")
	if password == "" && authenticator == gosnowflake.AuthTypeSnowflake {
		return nil, errors.New("SNOWFLAKE_PASSWORD environment variable is required")
	}

	cfg := &SnowflakeConfig{
		User:          user,
		Password:      password,
		Account:       account,
		Warehouse:     warehouse,
		Database:      getEnv("SNOWFLAKE_DATABASE", "REFOPEN_STAGING"),
		Schema:        getEnv("SNOWFLAKE_SCHEMA", "SCRAPER"),
		Role:          getEnv("SNOWFLAKE_ROLE", ""),
		Authenticator: authenticator,

		MaxOpenConns:    getEnvAsInt("SNOWFLAKE_MAX_OPEN_CONNS", 4),
		MaxIdleConns:    getEnvAsInt("SNOWFLAKE_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: time.Duration(getEnvAsInt("SNOWFLAKE_CONN_MAX_LIFETIME_SECONDS", 600)) * time.Second,
		ConnMaxIdleTime: time.Duration(getEnvAsInt("SNOWFLAKE_CONN_MAX_IDLE_TIME_SECONDS", 300)) * time.Second,
		QueryTimeout:    time.Duration(getEnvAsInt("SNOWFLAKE_QUERY_TIMEOUT_SECONDS", 300)) * time.Second,
	}

	return cfg, nil
}

// LoadPostgresConfig loads PostgreSQL configuration from environment variables
func LoadPostgresConfig() (*PostgresConfig, error) {
	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		return nil, errors.New("POSTGRES_USER environment variable is required")
	}

	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		return nil, errors.New("POSTGRES_PASSWORD environment variable is required")
	}

	database := os.Getenv("POSTGRES_DB")
	if database == "" {
		return nil, errors.New("POSTGRES_DB environment variable is required")
	}

	cfg := &PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnvAsInt("POSTGRES_PORT", 5432),
		User:     user,
		Password: password,
		Database: database,
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxOpenConns:     getEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 10),
		MaxIdleConns:     getEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:  time.Duration(getEnvAsInt("POSTGRES_CONN_MAX_LIFETIME_SECONDS", 1800)) * time.Second,
		ConnMaxIdleTime:  time.Duration(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_TIME_SECONDS", 600)) * time.Second,
		StatementTimeout: time.Duration(getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_SECONDS", 300)) * time.Second,
	}

	return cfg, nil
}

// LoadSQLiteConfig builds a SQLite configuration for the given file path
func LoadSQLiteConfig(path string) *SQLiteConfig {
	return &SQLiteConfig{
		Path:        path,
		BusyTimeout: time.Duration(getEnvAsInt("SQLITE_BUSY_TIMEOUT_MS", 5000)) * time.Millisecond,
	}
}

func parseAuthenticator(value string) gosnowflake.AuthType {
	switch value {
	case "oauth":
		return gosnowflake.AuthTypeOAuth
	case "externalbrowser":
		return gosnowflake.AuthTypeExternalBrowser
	case "username_password_mfa":
		return gosnowflake.AuthTypeUsernamePasswordMFA
	case "jwt":
		return gosnowflake.AuthTypeJwt
	case "okta":
		return gosnowflake.AuthTypeOkta
	default:
		return gosnowflake.AuthTypeSnowflake
	}
}

// ConnectionString returns a formatted PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

// DSN returns the modernc SQLite DSN with foreign keys enforced
func (c *SQLiteConfig) DSN() string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		c.Path,
		c.BusyTimeout.Milliseconds(),
	)
}
