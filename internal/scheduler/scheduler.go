// File: internal/scheduler/scheduler.go

// Package scheduler runs account batches strictly sequentially, paces them to
// avoid abuse-like access patterns, and hosts the recurring trigger loop.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/halcyonix/claimsweep/api/schemas"
	"github.com/halcyonix/claimsweep/internal/poll"
)

// AccountRunner executes one account's claim workflow. The production
// implementation is the orchestrator.
type AccountRunner interface {
	RunAccount(ctx context.Context, account string) schemas.AccountReport
}

// Scheduler iterates accounts sequentially and aggregates their reports.
// A weight-1 semaphore serializes RunBatch across the on-demand and
// recurring entry points: a run in progress always completes before the next
// one starts.
type Scheduler struct {
	logger  *zap.Logger
	runner  AccountRunner
	clock   poll.Clock
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// New creates a Scheduler. interAccountDelay is the minimum spacing between
// two account runs; zero disables pacing.
func New(logger *zap.Logger, runner AccountRunner, clock poll.Clock, interAccountDelay time.Duration) (*Scheduler, error) {
	if logger == nil || runner == nil || clock == nil {
		return nil, fmt.Errorf("cannot initialize scheduler with nil dependencies")
	}
	return &Scheduler{
		logger:  logger.Named("scheduler"),
		runner:  runner,
		clock:   clock,
		limiter: rate.NewLimiter(rate.Every(interAccountDelay), 1),
		sem:     semaphore.NewWeighted(1),
	}, nil
}

// RunBatch processes every account in order and returns one report per
// submitted account, no matter how many individual runs fail. An empty list
// yields an empty result, not an error.
func (s *Scheduler) RunBatch(ctx context.Context, accounts []string) schemas.BatchResult {
	result := schemas.BatchResult{StartedAt: s.clock.Now()}

	// Serialize against any concurrently firing trigger.
	if err := s.sem.Acquire(ctx, 1); err != nil {
		for _, account := range accounts {
			result.Reports = append(result.Reports, cancelledReport(account, err))
		}
		result.FinishedAt = s.clock.Now()
		result.Tally()
		return result
	}
	defer s.sem.Release(1)

	s.logger.Info("Batch started", zap.Int("accounts", len(accounts)))

	for i, account := range accounts {
		// Cancellation is cooperative and only honored between accounts; a
		// run that has started always finishes. Accounts not reached still
		// get a report so the batch shape stays invariant.
		if err := ctx.Err(); err != nil {
			result.Reports = append(result.Reports, cancelledReport(account, err))
			continue
		}

		if i > 0 {
			if err := s.limiter.Wait(ctx); err != nil {
				result.Reports = append(result.Reports, cancelledReport(account, err))
				continue
			}
		}

		report := s.runAccountSafely(ctx, account)
		result.Reports = append(result.Reports, report)
	}

	result.FinishedAt = s.clock.Now()
	result.Tally()
	s.logger.Info("Batch finished",
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", result.FailureCount))
	return result
}

// runAccountSafely is the second line of defense: nothing escaping a single
// account run may abort the batch, including panics.
func (s *Scheduler) runAccountSafely(ctx context.Context, account string) (report schemas.AccountReport) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Account run panicked", zap.String("account", account), zap.Any("panic", r))
			report = schemas.AccountReport{
				Account:    account,
				FatalError: fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return s.runner.RunAccount(ctx, account)
}

func cancelledReport(account string, err error) schemas.AccountReport {
	return schemas.AccountReport{
		Account:    account,
		FatalError: fmt.Sprintf("batch cancelled: %v", err),
	}
}

// Watch invokes RunBatch once per trigger firing until the context is done.
// Firings arriving while a batch is running are dropped by the trigger's
// buffer and the semaphore, never queued up into overlapping runs.
func (s *Scheduler) Watch(ctx context.Context, trigger Trigger, accounts []string, onResult func(schemas.BatchResult)) error {
	fires, err := trigger.Start()
	if err != nil {
		return fmt.Errorf("failed to start trigger: %w", err)
	}
	defer trigger.Stop()

	s.logger.Info("Recurring schedule armed", zap.Int("accounts", len(accounts)))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Recurring schedule stopped", zap.Error(ctx.Err()))
			return nil
		case at := <-fires:
			s.logger.Info("Trigger fired", zap.Time("at", at))
			result := s.RunBatch(ctx, accounts)
			if onResult != nil {
				onResult(result)
			}
		}
	}
}
