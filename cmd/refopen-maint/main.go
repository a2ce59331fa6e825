package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/config"
)

var (
	// Global flags
	envFile   string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "refopen-maint",
	Short: "RefOpen data maintenance jobs",
	Long: `Maintenance jobs for the RefOpen database:

  normalize         clean and classify scraped company names
  ingest-companies  load scraped employer names into the companies table
  plan-purge        show what purging a set of users would delete
  purge-users       delete users and every row that references them`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default .env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or console (overrides LOG_FORMAT)")

	rootCmd.AddCommand(normalizeCmd, ingestCompaniesCmd, planPurgeCmd, purgeUsersCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}

	loaded, err := config.LoadConfig(envFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}
	if logFormat != "" {
		loaded.LogFormat = logFormat
	}
	cfg = loaded

	logger, err = newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	return nil
}

func newLogger(level, format string) (*zap.Logger, error) {
	var zcfg zap.Config
	switch format {
	case "console":
		zcfg = zap.NewDevelopmentConfig()
	case "json", "":
		zcfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	built, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return built, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
