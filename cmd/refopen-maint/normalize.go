package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/company"
)

var (
	normalizeRulesFile string
	normalizeOnlyValid bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [names...]",
	Short: "Sanitize and validate company names",
	Long: `Prints the raw name, the sanitized name and the verdict for every name,
tab separated. Names are read from stdin, one per line, when none are given.`,
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeRulesFile, "rules", "", "YAML file with extra allow-list entries (overrides COMPANY_RULES_FILE)")
	normalizeCmd.Flags().BoolVar(&normalizeOnlyValid, "only-valid", false, "print accepted names only")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	rulesFile := cfg.Company.RulesFile
	if normalizeRulesFile != "" {
		rulesFile = normalizeRulesFile
	}
	normalizer, err := loadNormalizer(rulesFile)
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		if names, err = readLines(cmd.InOrStdin()); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	for _, raw := range names {
		sanitized, verdict := normalizer.Normalize(raw)
		if normalizeOnlyValid {
			if verdict.Valid {
				fmt.Fprintln(out, sanitized)
			}
			continue
		}
		fmt.Fprintf(out, "%q\t%q\t%s\n", raw, sanitized, verdict)
	}
	return nil
}

func loadNormalizer(rulesFile string) (*company.Normalizer, error) {
	if rulesFile == "" {
		return company.NewNormalizer(company.DefaultRules()), nil
	}

	rules, err := company.LoadRulesFile(rulesFile)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded company rules", zap.String("path", rulesFile))
	return company.NewNormalizer(rules), nil
}

// readLines returns the non-blank lines of r
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return lines, nil
}
