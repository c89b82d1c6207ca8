package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BudgetSweeper runs one sweep over all project budgets and returns the
// number of alerts sent. The per-budget cooldown lives in the sweep itself;
// the scheduler only decides when to run.
type BudgetSweeper interface {
	Run(ctx context.Context) (alertsSent int, err error)
}

// BudgetSweepSchedulerConfig holds configuration for the budget sweep scheduler
type BudgetSweepSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// Interval is the time between sweep runs
	Interval time.Duration

	// RunTimeout is the maximum time for a single sweep run
	RunTimeout time.Duration
}

// DefaultBudgetSweepSchedulerConfig returns default configuration
func DefaultBudgetSweepSchedulerConfig() BudgetSweepSchedulerConfig {
	return BudgetSweepSchedulerConfig{
		Enabled:    true,
		Interval:   time.Hour,
		RunTimeout: 5 * time.Minute,
	}
}

// BudgetSweepScheduler runs the budget threshold sweep on a fixed interval.
// Sweeping more often than the alert cooldown is safe: a project alerted in
// the last 24 hours is skipped by the sweep.
type BudgetSweepScheduler struct {
	sweeper   BudgetSweeper
	logger    *zap.Logger
	config    BudgetSweepSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewBudgetSweepScheduler creates a new budget sweep scheduler
func NewBudgetSweepScheduler(
	sweeper BudgetSweeper,
	logger *zap.Logger,
	config BudgetSweepSchedulerConfig,
) *BudgetSweepScheduler {
	return &BudgetSweepScheduler{
		sweeper: sweeper,
		logger:  logger,
		config:  config,
	}
}

// Start starts the sweep loop
func (s *BudgetSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Budget sweep scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Budget sweep scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("run_timeout", s.config.RunTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *BudgetSweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Budget sweep scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Budget sweep scheduler stop timed out")
		return ctx.Err()
	}
}

// runLoop executes the sweep at every interval tick until the context ends
func (s *BudgetSweepScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Budget sweep loop stopping")
			return
		case <-ticker.C:
			s.executeSweep(ctx)
		}
	}
}

// executeSweep runs one bounded sweep
func (s *BudgetSweepScheduler) executeSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	startTime := time.Now()
	alertsSent, err := s.sweeper.Run(sweepCtx)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Budget sweep failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Budget sweep completed",
		zap.Duration("duration", duration),
		zap.Int("alerts_sent", alertsSent),
	)
}

// TriggerImmediateSweep runs one sweep now without waiting for the ticker
func (s *BudgetSweepScheduler) TriggerImmediateSweep(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate budget sweep")

	go func() {
		defer s.wg.Done()
		s.executeSweep(ctx)
	}()

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *BudgetSweepScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
