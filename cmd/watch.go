// File: cmd/watch.go
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halcyonix/claimsweep/api/schemas"
	"github.com/halcyonix/claimsweep/internal/observability"
	"github.com/halcyonix/claimsweep/internal/scheduler"
)

// newWatchCmd creates and configures the `watch` command: batches run on the
// configured cron schedule until interrupted.
func newWatchCmd() *cobra.Command {
	var (
		schedule     string
		accountsFile string
		outputDir    string
	)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Runs claim batches on the configured schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			if schedule != "" {
				cfg.Batch.Schedule = schedule
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			batch, err := resolveAccounts(nil, accountsFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			components, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer components.Shutdown()

			trigger := scheduler.NewCronTrigger(cfg.Batch.Schedule)
			logger.Info("Watching",
				zap.String("schedule", cfg.Batch.Schedule),
				zap.Int("accounts", len(batch)))

			onResult := func(result schemas.BatchResult) {
				if outputDir == "" {
					return
				}
				path := reportPath(outputDir, result.StartedAt)
				if err := writeResult(path, result); err != nil {
					logger.Warn("Failed to persist batch report", zap.Error(err))
					return
				}
				logger.Info("Batch report written", zap.String("path", path))
			}

			return components.Scheduler.Watch(ctx, trigger, batch, onResult)
		},
	}

	watchCmd.Flags().StringVar(&schedule, "schedule", "", "cron expression for batch firing (overrides config)")
	watchCmd.Flags().StringVar(&accountsFile, "accounts-file", "", "file with one account per line")
	watchCmd.Flags().StringVar(&outputDir, "output-dir", "", "directory to write per-batch JSON reports into")
	return watchCmd
}
