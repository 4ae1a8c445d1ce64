// File: cmd/run.go
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halcyonix/claimsweep/api/schemas"
	"github.com/halcyonix/claimsweep/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newRunCmd creates and configures the `run` command: a single on-demand
// batch over the configured accounts.
func newRunCmd() *cobra.Command {
	var (
		accounts     []string
		accountsFile string
		output       string
		targetURL    string
		bonusURL     string
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs one claim batch over the configured accounts and exits",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			// Flag overrides on top of the resolved config.
			if targetURL != "" {
				cfg.Target.URL = targetURL
			}
			if bonusURL != "" {
				cfg.Target.BonusURL = bonusURL
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			batch, err := resolveAccounts(accounts, accountsFile)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				logger.Warn("No accounts configured; the batch will be empty")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			components, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer components.Shutdown()

			result := components.Scheduler.RunBatch(ctx, batch)

			if output != "" {
				if err := writeResult(output, result); err != nil {
					return err
				}
				logger.Info("Batch report written", zap.String("path", output))
			}

			logger.Info("Batch complete",
				zap.Int("accounts", len(result.Reports)),
				zap.Int("succeeded", result.SuccessCount),
				zap.Int("failed", result.FailureCount))

			if len(result.Reports) > 0 && result.SuccessCount == 0 {
				return fmt.Errorf("all %d account runs failed", len(result.Reports))
			}
			return nil
		},
	}

	runCmd.Flags().StringSliceVar(&accounts, "accounts", nil, "accounts to process (overrides config)")
	runCmd.Flags().StringVar(&accountsFile, "accounts-file", "", "file with one account per line")
	runCmd.Flags().StringVarP(&output, "output", "o", "", "write the batch report as JSON to this path")
	runCmd.Flags().StringVar(&targetURL, "url", "", "primary reward surface URL (overrides config)")
	runCmd.Flags().StringVar(&bonusURL, "bonus-url", "", "secondary reward surface URL (overrides config)")
	return runCmd
}

// resolveAccounts applies the precedence: --accounts flag, then
// --accounts-file, then the config file's account list.
func resolveAccounts(flagAccounts []string, file string) ([]string, error) {
	if len(flagAccounts) > 0 {
		return flagAccounts, nil
	}
	if file != "" {
		return readAccountsFile(file)
	}
	return cfg.Accounts, nil
}

// readAccountsFile parses one account per line, skipping blanks and
// #-comments.
func readAccountsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts file: %w", err)
	}
	defer f.Close()

	var accounts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		accounts = append(accounts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}
	return accounts, nil
}

// writeResult persists a batch result as indented JSON.
func writeResult(path string, result schemas.BatchResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode batch report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write batch report: %w", err)
	}
	return nil
}
