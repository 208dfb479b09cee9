package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/slotflow/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph [graph]",
	Short: "Export the flow graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the intent groups, their slots
and jumps. With --session the answered and current slots of a stored session
are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
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

		var overlay *graph.GraphOverlay
		if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
			st, err := openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeAll(st.closers)
			c, err := st.store.Load(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("failed to load session %q: %w", sessionID, err)
			}
			overlay = graph.OverlayFromContext(g, c)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the progress of a stored session")
}
