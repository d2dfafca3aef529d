package backup

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler takes a scheduled backup every interval and prunes old ones.
type Scheduler struct {
	service  *Service
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler creates a scheduler. An interval of zero disables it.
func NewScheduler(service *Service, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{service: service, interval: interval, logger: logger.Named("backup.scheduler")}
}

// Run loops until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("scheduled backups disabled")
		return
	}
	s.logger.Info("starting backup scheduler", zap.Duration("interval", s.interval))

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("backup scheduler shutting down")
			return
		case <-timer.C:
			s.RunOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// RunOnce creates one scheduled backup and prunes the ones past retention.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if _, err := s.service.Create(ctx, TriggerScheduled, nil); err != nil {
		s.logger.Error("scheduled backup failed", zap.Error(err))
		return
	}
	removed, err := s.service.Prune(ctx)
	if err != nil {
		s.logger.Error("failed to prune backups", zap.Error(err))
	}
	if removed > 0 {
		s.logger.Info("pruned old backups", zap.Int("removed", removed))
	}
}
