package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/slotflow"
	"github.com/aretw0/slotflow/internal/expr"
	"github.com/aretw0/slotflow/internal/validator"
	"github.com/aretw0/slotflow/pkg/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate [graph]",
	Short: "Check the graph for consistency",
	Long: `Loads the graph and reports unresolvable jumps, invalid expressions,
unknown entities and training data problems. Warnings do not fail the check.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(args) > 0 && !cmd.Flags().Changed("graph") {
			cfg.Graph = args[0]
		}

		g, err := loadGraph(cmd, cfg.Graph, cfg.Source)
		if err != nil {
			return err
		}
		eval, err := expr.New(expr.WithLogger(logger))
		if err != nil {
			return err
		}

		report := validator.Validate(g, eval)
		out := cmd.OutOrStdout()
		for _, issue := range report.Warnings {
			fmt.Fprintln(out, "warning:", issue.String())
		}
		for _, issue := range report.Errors {
			fmt.Fprintln(out, "error:", issue.String())
		}
		if !report.OK() {
			return fmt.Errorf("validation failed with %d error(s)", len(report.Errors))
		}
		fmt.Fprintf(out, "Graph is valid: %d intent group(s), %d warning(s)\n", len(g.Groups), len(report.Warnings))
		return nil
	},
}

// loadGraph reads the graph without building an engine, so invalid graphs
// can still be inspected.
func loadGraph(cmd *cobra.Command, path, kind string) (*domain.Graph, error) {
	src, err := slotflow.OpenSource(path, kind, nil)
	if err != nil {
		return nil, err
	}
	g, err := src.Load(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to load graph %s: %w", path, err)
	}
	return g, nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
