package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/techizeBuilder/admin-task-manager/pkg/config"
	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
	"github.com/techizeBuilder/admin-task-manager/pkg/httpserver"
	"github.com/techizeBuilder/admin-task-manager/pkg/logger"
	"github.com/techizeBuilder/admin-task-manager/pkg/mongo"
	"github.com/techizeBuilder/admin-task-manager/pkg/mongostore"
	"github.com/techizeBuilder/admin-task-manager/pkg/redis"
	"github.com/techizeBuilder/admin-task-manager/pkg/subscription"
)

type seedableStore interface {
	entitlement.Store
	entitlement.Seeder
}

// backend is the opened storage with its readiness probes and cleanup.
type backend struct {
	store   entitlement.Store
	cache   subscription.PlanCache
	checks  []httpserver.Check
	closers []func(context.Context) error
}

func (b *backend) close(ctx context.Context, log *slog.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			log.WarnContext(ctx, "close backend", logger.Error(err))
		}
	}
}

func openBackend(ctx context.Context, cfg appConfig, log *slog.Logger) (*backend, error) {
	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	b := &backend{}
	var store seedableStore
	switch cfg.StoreDriver {
	case driverMongo:
		var mcfg mongo.Config
		if err := config.Load(&mcfg); err != nil {
			return nil, fmt.Errorf("mongo config: %w", err)
		}
		db, err := mongo.Open(ctx, mcfg)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Client().Disconnect)
		b.checks = append(b.checks, httpserver.Check{Name: "mongo", Probe: mongo.Healthcheck(db.Client())})

		ms := mongostore.New(db)
		if err := ms.EnsureIndexes(ctx); err != nil {
			b.close(ctx, log)
			return nil, err
		}
		store = ms
	default:
		store = entitlement.NewMemoryStore()
	}

	if err := store.SeedCatalog(ctx, catalog); err != nil {
		b.close(ctx, log)
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	b.store = store
	log.InfoContext(ctx, "catalog seeded",
		logger.Component("store"),
		slog.String("driver", cfg.StoreDriver),
		slog.Int("licenses", len(catalog.Licenses)),
		slog.Int("features", len(catalog.Features)),
	)

	if cfg.PlanCacheEnabled {
		var rcfg redis.Config
		if err := config.Load(&rcfg); err != nil {
			b.close(ctx, log)
			return nil, fmt.Errorf("redis config: %w", err)
		}
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			b.close(ctx, log)
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return client.Close() })
		b.checks = append(b.checks, httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)})

		cache := redis.NewPlanCache(client, rcfg.KeyPrefix, rcfg.PlanCacheTTL)
		if err := cache.Invalidate(ctx); err != nil {
			log.WarnContext(ctx, "plan cache not invalidated", logger.Component("store"), logger.Error(err))
		}
		b.cache = cache
	}
	return b, nil
}

func loadCatalog(path string) (*entitlement.Catalog, error) {
	if path == "" {
		return entitlement.DefaultCatalog()
	}
	return entitlement.LoadCatalog(path)
}
