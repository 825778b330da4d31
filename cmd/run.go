package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

// newRunCmd creates the 'run' subcommand: one full pipeline pass, then exit.
// The exit code mirrors the run status so schedulers can branch on it.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one extraction, translation and persistence pass",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Orchestrator.Trigger(cmd.Context())
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			a.Logger.Info("run complete",
				zap.String("run_id", report.ID),
				zap.String("status", string(report.Status)))
			for source, counters := range report.Sources {
				a.Logger.Info("source totals",
					zap.String("source", string(source)),
					zap.Int("attempted", counters.Attempted),
					zap.Int("extracted", counters.Extracted),
					zap.Int("deduplicated", counters.Deduplicated),
					zap.Int("failed", counters.Failed))
			}

			if report.Status == ingest.RunStatusFailed {
				return fmt.Errorf("run %s failed", report.ID)
			}
			return nil
		},
	}
}
