package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/connector"
	"github.com/RichardHenryJames/nexhire-sub010/pkg/ingest"
	"github.com/RichardHenryJames/nexhire-sub010/pkg/model"
)

var (
	ingestQuery     string
	ingestSource    string
	ingestBatchSize int
	ingestNoCreate  bool
)

var ingestCompaniesCmd = &cobra.Command{
	Use:   "ingest-companies",
	Short: "Normalize scraped employer names into the companies table",
	Long: `Reads raw employer names from the staging source page by page, stores
accepted names as companies and records every rejected name with its reason.
The query must select one column of names with a stable ORDER BY.`,
	RunE: runIngestCompanies,
}

func init() {
	ingestCompaniesCmd.Flags().StringVar(&ingestQuery, "query",
		"SELECT company_name FROM scraped_jobs ORDER BY id", "source query returning raw names")
	ingestCompaniesCmd.Flags().StringVar(&ingestSource, "source", "", "snowflake, postgres or sqlite (overrides INGEST_SOURCE)")
	ingestCompaniesCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 0, "names per page (overrides INGEST_BATCH_SIZE)")
	ingestCompaniesCmd.Flags().BoolVar(&ingestNoCreate, "no-create", false, "do not create the target tables when missing")
}

func runIngestCompanies(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sourceName := cfg.Ingest.Source
	if ingestSource != "" {
		sourceName = ingestSource
	}
	dialect, err := connector.ParseDialect(sourceName)
	if err != nil {
		return err
	}

	batchSize := cfg.Ingest.BatchSize
	if ingestBatchSize > 0 {
		batchSize = ingestBatchSize
	}

	normalizer, err := loadNormalizer(cfg.Company.RulesFile)
	if err != nil {
		return err
	}

	factory := connector.NewConnectorFactory(cfg, logger)

	source, err := factory.CreateConnector(ctx, dialect)
	if err != nil {
		return err
	}
	defer source.Close()

	target, err := factory.CreateMaintenanceConnector(ctx)
	if err != nil {
		return err
	}
	defer target.Close()

	ingestor := ingest.NewIngestor(source, target, normalizer, logger).
		WithBatchSize(batchSize).
		WithSourceName(cfg.Ingest.SourceName)

	if !ingestNoCreate {
		if err := ingestor.EnsureTables(ctx); err != nil {
			return err
		}
	}

	summary, err := ingestor.Run(ctx, ingestQuery)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "read\t%d\naccepted\t%d\ninserted\t%d\nrejected\t%d\n",
		summary.Read, summary.Accepted, summary.Inserted, summary.Rejected)

	reasons := make([]string, 0, len(summary.ByReason))
	for reason := range summary.ByReason {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(out, "  %s\t%d\n", reason, summary.ByReason[model.RejectReason(reason)])
	}
	return nil
}
