package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/cascade"
	"github.com/RichardHenryJames/nexhire-sub010/pkg/config"
	"github.com/RichardHenryJames/nexhire-sub010/pkg/connector"
)

var (
	purgeIDs     []string
	purgeIDsFile string
	purgeTimeout time.Duration
	purgeConfirm bool
)

var planPurgeCmd = &cobra.Command{
	Use:   "plan-purge",
	Short: "Show how many rows a user purge would delete, per table",
	RunE:  runPlanPurge,
}

var purgeUsersCmd = &cobra.Command{
	Use:   "purge-users",
	Short: "Delete users and every row that references them",
	Long: `Deletes the given user ids from the anchor tables (CASCADE_ANCHORS) and
every row in any table with a foreign key to an anchor, in one transaction.
Nothing is deleted unless every step succeeds.`,
	RunE: runPurgeUsers,
}

func init() {
	for _, cmd := range []*cobra.Command{planPurgeCmd, purgeUsersCmd} {
		cmd.Flags().StringSliceVar(&purgeIDs, "ids", nil, "comma separated user ids")
		cmd.Flags().StringVar(&purgeIDsFile, "ids-file", "", "file with one user id per line, - for stdin")
	}
	purgeUsersCmd.Flags().DurationVar(&purgeTimeout, "timeout", 0, "deadline for the whole purge (default CASCADE_TIMEOUT_SECONDS)")
	purgeUsersCmd.Flags().BoolVar(&purgeConfirm, "confirm", false, "required to actually delete")
}

func runPlanPurge(cmd *cobra.Command, args []string) error {
	ids, err := readIDs(purgeIDs, purgeIDsFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	planner, closeFn, err := openPlanner(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	preview, err := planner.Preview(cmd.Context(), ids, cfg.Cascade.Anchors)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, table := range preview.Order {
		fmt.Fprintf(out, "%s\t%d\n", table, preview.MatchedCounts[table])
	}
	for _, table := range preview.SkippedTables {
		fmt.Fprintf(out, "%s\tmissing\n", table)
	}
	if preview.Plan.Cyclic {
		fmt.Fprintf(out, "warning: foreign key cycle among %s\n", strings.Join(preview.Plan.CycleTables, ", "))
	}
	return nil
}

func runPurgeUsers(cmd *cobra.Command, args []string) error {
	ids, err := readIDs(purgeIDs, purgeIDsFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if !purgeConfirm {
		return errors.New("refusing to delete without --confirm; run plan-purge to preview")
	}

	timeout := cfg.Cascade.Timeout
	if purgeTimeout > 0 {
		timeout = purgeTimeout
	}
	ctx := cmd.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	planner, closeFn, err := openPlanner(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := planner.PlanAndExecute(ctx, ids, cfg.Cascade.Anchors)
	if err != nil {
		var rbErr *cascade.RollbackError
		if errors.As(err, &rbErr) {
			logger.Error("Purge rolled back",
				zap.String("stage", rbErr.Stage.String()),
				zap.String("table", rbErr.Table),
				zap.Error(rbErr.Err))
		}
		return err
	}

	out := cmd.OutOrStdout()
	for _, table := range report.Order {
		fmt.Fprintf(out, "%s\t%d\n", table, report.DeletedCounts[table])
	}
	fmt.Fprintf(out, "total\t%d\n", report.Total())
	return nil
}

// openPlanner connects to the maintenance database and builds a planner for it
func openPlanner(ctx context.Context, appCfg *config.Config) (*cascade.Planner, func(), error) {
	factory := connector.NewConnectorFactory(appCfg, logger)

	conn, err := factory.CreateMaintenanceConnector(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := conn.Validate(ctx); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("maintenance database check failed: %w", err)
	}

	schema := ""
	if conn.Dialect() == connector.DialectPostgres {
		schema = appCfg.Cascade.Schema
	}

	introspector, err := cascade.NewIntrospector(conn.Dialect(), schema)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	db := sqlx.NewDb(conn.DB(), conn.Dialect().DriverName())
	planner := cascade.NewPlanner(db, conn.Dialect(), introspector, logger).
		WithSchema(schema).
		WithInsertBatch(appCfg.Cascade.InsertBatch)

	return planner, func() { conn.Close() }, nil
}

// readIDs merges ids given on the command line with ids read from a file.
// Blank lines and lines starting with # are ignored.
func readIDs(ids []string, path string, stdin io.Reader) ([]string, error) {
	var out []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}

	if path != "" {
		r := stdin
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("failed to open ids file: %w", err)
			}
			defer f.Close()
			r = f
		}

		lines, err := readLines(r)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "#") {
				continue
			}
			out = append(out, line)
		}
	}

	if len(out) == 0 {
		return nil, errors.New("no user ids given; use --ids or --ids-file")
	}
	return out, nil
}
