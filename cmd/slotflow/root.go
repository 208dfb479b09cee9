package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/slotflow/internal/config"
	"github.com/aretw0/slotflow/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "slotflow",
	Short: "Slotflow is a config-driven slot-filling dialogue engine",
	Long: `Slotflow classifies each utterance into an intent, walks the intent's
slots asking for the data it still needs and answers with templates filled
from the conversation context.

Settings come from SLOTFLOW_* environment variables (and a .env file);
flags override them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("graph", "g", "", "Graph file, directory or Loam repository (SLOTFLOW_GRAPH)")
	flags.String("source", "", "Graph source kind: auto, file or loam (SLOTFLOW_SOURCE)")
	flags.StringSlice("env-file", nil, "Env files to load before the environment (default .env)")
	flags.String("log-level", "", "Log level: debug, info, warn or error (SLOTFLOW_LOG_LEVEL)")
	flags.String("log-format", "", "Log format: text or json (SLOTFLOW_LOG_FORMAT)")
}

// loadConfig reads the environment and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return config.Config{}, nil, err
	}

	override := func(name string, target *string) {
		if cmd.Flags().Changed(name) {
			*target, _ = cmd.Flags().GetString(name)
		}
	}
	override("graph", &cfg.Graph)
	override("source", &cfg.Source)
	override("log-level", &cfg.LogLevel)
	override("log-format", &cfg.LogFormat)
	if cmd.Flags().Lookup("addr") != nil {
		override("addr", &cfg.Addr)
	}
	if cmd.Flags().Lookup("watch") != nil && cmd.Flags().Changed("watch") {
		cfg.Watch, _ = cmd.Flags().GetBool("watch")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat), nil
}
