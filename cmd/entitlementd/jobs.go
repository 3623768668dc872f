package main

import (
	"context"
	"log/slog"

	"github.com/techizeBuilder/admin-task-manager/pkg/logger"
	"github.com/techizeBuilder/admin-task-manager/pkg/scheduler"
	"github.com/techizeBuilder/admin-task-manager/pkg/trial"
)

func registerJobs(s *scheduler.Scheduler, cfg appConfig, trials trial.Service, notifier trial.Notifier, log *slog.Logger) error {
	err := s.Add("trial-sweep", scheduler.DailyAt(cfg.TrialSweepHour, 0), func(ctx context.Context) error {
		_, err := trials.ProcessExpired(ctx)
		return err
	}, scheduler.RunImmediately(), scheduler.WithTimeout(cfg.JobTimeout))
	if err != nil {
		return err
	}

	return s.Add("trial-expiry-notices", scheduler.DailyAt(cfg.NoticeHour, 0), func(ctx context.Context) error {
		notices, err := trials.ExpiryNotifications(ctx, cfg.NoticeDays)
		if err != nil {
			return err
		}
		report := trial.Deliver(ctx, notifier, notices, log)
		log.InfoContext(ctx, "expiry notices delivered",
			logger.Component("jobs"),
			logger.Event("trial_expiry_notices"),
			slog.Int("sent", report.Sent),
			slog.Int("skipped", report.Skipped),
			slog.Int("failed", len(report.Failed)),
		)
		return nil
	}, scheduler.WithTimeout(cfg.JobTimeout))
}
