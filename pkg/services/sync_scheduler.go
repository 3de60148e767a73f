package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SyncScheduler runs a full sync pass on a cron schedule.
type SyncScheduler struct {
	cron     *cron.Cron
	sync     RateSyncService
	schedule string
	timeout  time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewSyncScheduler creates a scheduler. The schedule is a six-field cron
// expression (seconds first).
func NewSyncScheduler(syncService RateSyncService, schedule string, timeout time.Duration, logger *zap.Logger) *SyncScheduler {
	return &SyncScheduler{
		cron:     cron.New(cron.WithSeconds()),
		sync:     syncService,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger.Named("sync-scheduler"),
	}
}

// Start registers the sync job and starts the cron loop. ctx bounds every run.
func (s *SyncScheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sync %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("Sync scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// RunOnce executes one full sync pass unless one is already in progress.
func (s *SyncScheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Previous sync still running, skipping")
		return
	}
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.wg.Done()
	}()

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	results, err := s.sync.SyncAll(runCtx)
	if err != nil {
		s.logger.Error("Scheduled sync failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}

	var writes int64
	var skipped int
	for _, r := range results {
		writes += r.Writes()
		if r.Skipped {
			skipped++
		}
	}
	s.logger.Info("Scheduled sync completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("passes", len(results)),
		zap.Int("skipped", skipped),
		zap.Int64("writes", writes))
}

// Stop stops scheduling and waits for a running pass to finish.
func (s *SyncScheduler) Stop() {
	ctx := s.cron.Stop()
	s.wg.Wait()
	<-ctx.Done()
	s.logger.Info("Sync scheduler stopped")
}
