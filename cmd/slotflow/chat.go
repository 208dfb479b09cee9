package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/slotflow"
	"github.com/aretw0/slotflow/internal/presentation/tui"
	"github.com/aretw0/slotflow/pkg/runner"
)

var chatCmd = &cobra.Command{
	Use:   "chat [graph]",
	Short: "Chat with the bot in the terminal",
	Long: `Starts an interactive conversation. When stdin is not a terminal, or
with --json, input and output are newline-delimited JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(args) > 0 && !cmd.Flags().Changed("graph") {
			cfg.Graph = args[0]
		}
		sessionID, _ := cmd.Flags().GetString("session")
		jsonMode, _ := cmd.Flags().GetBool("json")
		interactive := !jsonMode && term.IsTerminal(int(os.Stdin.Fd()))

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		var handler runner.IOHandler
		if interactive {
			tui.PrintBanner(os.Stdout, slotflow.Version, a.engine.Name)
			handler = runner.NewTextHandler(os.Stdin, os.Stdout,
				runner.WithTextHandlerRenderer(tui.NewRenderer(terminalWidth())))
		} else {
			handler = runner.NewJSONHandler(os.Stdin, os.Stdout)
		}

		if cfg.Watch {
			if err := a.engine.Watch(ctx); err != nil {
				return err
			}
			reloads, cancel := a.engine.SubscribeReloads()
			defer cancel()
			go reportReloads(logger, handler, reloads)
		}

		r := runner.NewRunner(
			runner.WithInputHandler(handler),
			runner.WithLogger(logger),
			runner.WithSessionID(sessionID),
			runner.WithMaxInputBytes(cfg.MaxInputBytes),
		)
		return r.Run(ctx, a.engine)
	},
}

// reportReloads tells the user when the graph changed under the conversation.
func reportReloads(logger *slog.Logger, out runner.IOHandler, events <-chan slotflow.ReloadEvent) {
	for ev := range events {
		msg := "graph reloaded"
		if ev.Error != "" {
			msg = "graph reload refused: " + ev.Error
		}
		if err := out.SystemOutput(context.Background(), msg); err != nil {
			logger.Debug("failed to report reload", "error", err)
			return
		}
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("session", "", "Session id to resume (a new one is generated otherwise)")
	chatCmd.Flags().Bool("json", false, "Use newline-delimited JSON input and output")
	chatCmd.Flags().BoolP("watch", "w", false, "Reload the graph when it changes (SLOTFLOW_WATCH)")
}
