package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored conversation contexts",
	Long:  `List, inspect and remove the sessions of the configured store (SLOTFLOW_STORE).`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := sessionStorage(cmd)
		if err != nil {
			return err
		}
		defer closeAll(st.closers)

		sessions, err := st.store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing sessions: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		for _, s := range sessions {
			fmt.Fprintln(out, s)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print the context of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := sessionStorage(cmd)
		if err != nil {
			return err
		}
		defer closeAll(st.closers)

		c, err := st.store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading session %q: %w", args[0], err)
		}
		data, err := json.MarshalIndent(c.Snapshot(), "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling context: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := sessionStorage(cmd)
		if err != nil {
			return err
		}
		defer closeAll(st.closers)

		if all, _ := cmd.Flags().GetBool("all"); all {
			if args, err = st.store.List(cmd.Context()); err != nil {
				return fmt.Errorf("error listing sessions: %w", err)
			}
		}

		var errs []error
		for _, id := range args {
			if err := st.store.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("error removing %q: %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session %q\n", id)
		}
		return errors.Join(errs...)
	},
}

func sessionStorage(cmd *cobra.Command) (*storage, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openStorage(cmd.Context(), cfg)
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionRmCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every stored session")
}
