// Command entitlementd serves the subscription and feature entitlement API
// and runs the trial expiry jobs.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/techizeBuilder/admin-task-manager/modules/billing"
	"github.com/techizeBuilder/admin-task-manager/pkg/config"
	"github.com/techizeBuilder/admin-task-manager/pkg/email"
	"github.com/techizeBuilder/admin-task-manager/pkg/environment"
	"github.com/techizeBuilder/admin-task-manager/pkg/httpserver"
	"github.com/techizeBuilder/admin-task-manager/pkg/licensegate"
	"github.com/techizeBuilder/admin-task-manager/pkg/logger"
	"github.com/techizeBuilder/admin-task-manager/pkg/requestid"
	"github.com/techizeBuilder/admin-task-manager/pkg/scheduler"
	"github.com/techizeBuilder/admin-task-manager/pkg/subscription"
	"github.com/techizeBuilder/admin-task-manager/pkg/tenant"
	"github.com/techizeBuilder/admin-task-manager/pkg/trial"
	"github.com/techizeBuilder/admin-task-manager/svc/features"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("entitlementd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	env := environment.Parse(cfg.Env)
	log := logger.New(
		logger.WithEnvironment(env, cfg.ServiceName),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithContextExtractors(requestid.LoggerExtractor(), tenant.LoggerExtractor()),
	)

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close(context.WithoutCancel(ctx), log)

	var mailCfg email.Config
	if err := config.Load(&mailCfg); err != nil {
		return err
	}
	sender, err := email.NewSender(mailCfg)
	if err != nil {
		return err
	}
	notifier := trial.NewMailNotifier(sender, cfg.UpgradeURL)

	subOpts := []subscription.ServiceOption{subscription.WithLogger(log)}
	if b.cache != nil {
		subOpts = append(subOpts, subscription.WithPlanCache(b.cache))
	}
	subs := subscription.NewService(b.store, subOpts...)
	trials := trial.NewService(b.store, trial.WithLogger(log))
	gate := licensegate.New(subs, trials,
		licensegate.WithLogger(log),
		licensegate.WithTrackTimeout(cfg.TrackTimeout),
	)
	feats := features.NewService(subs, trials, b.store, features.WithLogger(log))

	module := billing.New(subs, trials, feats, gate,
		billing.WithLogger(log),
		billing.WithNotifier(notifier),
		billing.WithNoticeDays(cfg.NoticeDays),
		billing.WithTenantProvider(b.store),
	)

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(environment.Middleware(env))
	r.Get("/health/live", httpserver.Liveness())
	r.Get("/health/ready", httpserver.Readiness(log, cfg.ReadinessTimeout, b.checks...))
	r.Mount(cfg.APIPrefix, module.Handle())

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}
	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStopHook(func(context.Context) { gate.Wait() }),
	)

	jobs := scheduler.New(scheduler.WithLogger(log))
	if err := registerJobs(jobs, cfg, trials, notifier, log); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, r) })
	g.Go(func() error {
		if err := jobs.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	log.InfoContext(ctx, "entitlementd started",
		slog.String("addr", httpCfg.Addr),
		slog.String("store", cfg.StoreDriver),
		slog.Bool("plan_cache", b.cache != nil),
	)
	return g.Wait()
}
