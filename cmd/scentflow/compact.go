package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banghyang/scentflow/pkg/flowgraph/config"
	"github.com/banghyang/scentflow/pkg/flowgraph/observability"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Summarize a user's older chat history",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		if user == "" {
			return errors.New("--user is required")
		}

		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		allowLocal, _ := cmd.Flags().GetBool("local-lock")
		if err := checkCompactLock(settings.History, allowLocal); err != nil {
			return err
		}
		logger, err := newLogger(settings.Log)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), settings, logger, observability.NoopMetrics{})
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.compactor.Compact(cmd.Context(), user)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !res.Compacted {
			fmt.Fprintf(out, "history for %s is below the threshold (%d turns)\n", user, settings.History.Threshold)
			return nil
		}
		fmt.Fprintf(out, "removed %d turns\nsummary: %s\n", res.Removed, res.Summary)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compactCmd)
	compactCmd.Flags().String("user", "", "User whose history is compacted")
	compactCmd.Flags().Bool("local-lock", false, "Allow an in-process lock; only safe when no server shares the history store")
}

// checkCompactLock refuses to compact a shared store under an in-process
// lock, which a running server would not see.
func checkCompactLock(s config.HistorySettings, allowLocal bool) error {
	if s.Backend == "memory" || s.Lock != "local" || allowLocal {
		return nil
	}
	return fmt.Errorf("history.lock is local: a running server cannot see this process's lock on the %s store; use history.lock: redis or pass --local-lock", s.Backend)
}
