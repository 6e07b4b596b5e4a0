package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// MaintenanceService runs the periodic housekeeping jobs.
type MaintenanceService struct {
	Assignments   *GiftAssignmentService
	Ledger        *LedgerService
	Notifications *NotificationService
	Retention     time.Duration
	Logger        *zap.Logger
}

func NewMaintenanceService(assignments *GiftAssignmentService, ledger *LedgerService, notifications *NotificationService, retention time.Duration, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{
		Assignments:   assignments,
		Ledger:        ledger,
		Notifications: notifications,
		Retention:     retention,
		Logger:        logger,
	}
}

func (s *MaintenanceService) ExpireGiftAssignments(ctx context.Context) error {
	n, err := s.Assignments.ExpireDue(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.Logger.Info("gift assignments expired", zap.Int64("count", n))
	}
	return nil
}

func (s *MaintenanceService) ReconcileBalances(ctx context.Context) error {
	n, err := s.Ledger.Reconcile(ctx)
	if err != nil {
		return err
	}
	s.Logger.Info("balances reconciled", zap.Int("repaired", n))
	return nil
}

func (s *MaintenanceService) PurgeNotifications(ctx context.Context) error {
	if s.Retention <= 0 {
		return nil
	}
	n, err := s.Notifications.PurgeRead(ctx, s.Retention)
	if err != nil {
		return err
	}
	if n > 0 {
		s.Logger.Info("read notifications purged", zap.Int64("count", n))
	}
	return nil
}

type Schedule struct {
	ExpireAssignments  string
	ReconcileBalances  string
	PurgeNotifications string
}

// StartScheduler registers the jobs (six-field cron specs, seconds first)
// and starts the cron runner. Empty specs disable a job. The caller stops
// the returned cron on shutdown.
func (s *MaintenanceService) StartScheduler(schedule Schedule) (*cron.Cron, error) {
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"expire_gift_assignments", schedule.ExpireAssignments, s.ExpireGiftAssignments},
		{"reconcile_balances", schedule.ReconcileBalances, s.ReconcileBalances},
		{"purge_notifications", schedule.PurgeNotifications, s.PurgeNotifications},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		job := job
		_, err := c.AddFunc(job.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			start := time.Now()
			if err := job.run(ctx); err != nil {
				s.Logger.Error("scheduled job failed", zap.String("job", job.name), zap.Error(err))
				return
			}
			s.Logger.Debug("scheduled job finished", zap.String("job", job.name), zap.Duration("took", time.Since(start)))
		})
		if err != nil {
			return nil, errors.Wrapf(err, "schedule %s", job.name)
		}
	}

	c.Start()
	s.Logger.Info("maintenance scheduler started",
		zap.String("expire_assignments", schedule.ExpireAssignments),
		zap.String("reconcile_balances", schedule.ReconcileBalances),
		zap.String("purge_notifications", schedule.PurgeNotifications),
	)
	return c, nil
}
