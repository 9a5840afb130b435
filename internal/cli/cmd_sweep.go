package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/dossier/internal/escalation"
)

// newSweepCmd creates the sweep command
func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one escalation pass",
		Long: `Escalate every in-review workflow that is past its due date, once.

Workflows escalated within the configured reescalate_after window, and
workflows already at max_level, are skipped. Useful from cron when the
server's built-in sweeper is disabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			database, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			logger := newLogger(cfg)
			engine, err := newEngine(cfg, database, logger)
			if err != nil {
				return err
			}
			sweeper := escalation.NewSweeper(escalation.Config{
				Engine: engine,
				Policy: cfg.EscalationPolicy(),
				Logger: logger,
			})

			res, err := sweeper.SweepOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printSweep(cmd, res)
		},
	}
}

func printSweep(cmd *cobra.Command, res escalation.SweepResult) error {
	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, res)
	}
	if res.Candidates == 0 {
		fmt.Fprintln(out, "No overdue workflows.")
		return nil
	}
	fmt.Fprintf(out, "Escalated %d of %d overdue workflow(s) (%d skipped, %d failed)\n",
		res.Escalated, res.Candidates, res.Skipped, res.Failed)
	for _, id := range res.IDs {
		fmt.Fprintf(out, "  %s\n", id)
	}
	return nil
}
