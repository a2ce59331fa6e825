// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/model"
)

// Config represents the application configuration
type Config struct {
	// Database connections. Each one is optional and only populated when its
	// environment variables are present.
	Postgres  *PostgresConfig
	Snowflake *SnowflakeConfig
	SQLite    *SQLiteConfig

	Cascade CascadeConfig
	Company CompanyConfig
	Ingest  IngestConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// CascadeConfig holds settings for the referential cascade planner
type CascadeConfig struct {
	// Anchors are ordered child anchor first, owning anchor last
	Anchors     []model.Anchor
	Schema      string
	Timeout     time.Duration
	InsertBatch int
}

// CompanyConfig holds settings for the company name normalizer
type CompanyConfig struct {
	// RulesFile optionally points at a YAML file with extra allow-list entries
	RulesFile string
}

// IngestConfig holds settings for company name ingestion
type IngestConfig struct {
	Source     string // snowflake, postgres or sqlite
	BatchSize  int
	SourceName string // recorded on every rejection row
}

// LoadConfig loads configuration from environment variables. Any env files
// given are loaded first; without arguments a ".env" in the working directory
// is used when present. Variables already set in the environment win.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	anchors, err := ParseAnchors(getEnv("CASCADE_ANCHORS", "applicants:user_id,users:user_id"))
	if err != nil {
		return nil, fmt.Errorf("invalid CASCADE_ANCHORS: %w", err)
	}

	cfg := &Config{
		Cascade: CascadeConfig{
			Anchors:     anchors,
			Schema:      getEnv("CASCADE_SCHEMA", "public"),
			Timeout:     time.Duration(getEnvAsInt("CASCADE_TIMEOUT_SECONDS", 300)) * time.Second,
			InsertBatch: getEnvAsInt("CASCADE_INSERT_BATCH", 500),
		},
		Company: CompanyConfig{
			RulesFile: getEnv("COMPANY_RULES_FILE", ""),
		},
		Ingest: IngestConfig{
			Source:     getEnv("INGEST_SOURCE", "snowflake"),
			BatchSize:  getEnvAsInt("INGEST_BATCH_SIZE", 5000),
			SourceName: getEnv("INGEST_SOURCE_NAME", "scraper"),
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Load database configurations
	if os.Getenv("POSTGRES_DB") != "" || os.Getenv("POSTGRES_USER") != "" {
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load PostgreSQL configuration: %w", err)
		}
		cfg.Postgres = pgConfig
	}

	if os.Getenv("SNOWFLAKE_ACCOUNT") != "" {
		snowConfig, err := LoadSnowflakeConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load Snowflake configuration: %w", err)
		}
		cfg.Snowflake = snowConfig
	}

	if path := os.Getenv("SQLITE_PATH"); path != "" {
		cfg.SQLite = LoadSQLiteConfig(path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures the loaded configuration is consistent
func (c *Config) Validate() error {
	if len(c.Cascade.Anchors) == 0 {
		return errors.New("at least one cascade anchor is required")
	}

	if c.Cascade.InsertBatch <= 0 {
		return errors.New("cascade insert batch must be positive")
	}

	if c.Cascade.Timeout < 0 {
		return errors.New("cascade timeout cannot be negative")
	}

	if c.Ingest.BatchSize <= 0 {
		return errors.New("ingest batch size must be positive")
	}

	switch c.Ingest.Source {
	case "snowflake", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown ingest source %q", c.Ingest.Source)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}

	return nil
}

// ParseAnchors parses a comma separated "table:key_column" list. The key
// column defaults to "id" when omitted.
func ParseAnchors(value string) ([]model.Anchor, error) {
	var anchors []model.Anchor
	for _, part := range splitCommaDelimited(value) {
		table, key, found := strings.Cut(part, ":")
		table = strings.TrimSpace(table)
		key = strings.TrimSpace(key)
		if table == "" {
			return nil, fmt.Errorf("empty table name in %q", part)
		}
		if !found || key == "" {
			key = "id"
		}
		anchors = append(anchors, model.Anchor{Table: table, KeyColumn: key})
	}
	return anchors, nil
}

func loadEnvFiles(files []string) error {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return fmt.Errorf("failed to load env files: %w", err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// Split comma-delimited string, trim whitespace and drop empty entries
func splitCommaDelimited(s string) []string {
	var result []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			result = append(result, v)
		}
	}
	return result
}
