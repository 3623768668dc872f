// Package redis connects to Redis and caches the plan catalog there.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	cache := redis.NewPlanCache(client, cfg.KeyPrefix, cfg.PlanCacheTTL)
//	subs := subscription.NewService(store, subscription.WithPlanCache(cache))
//
// Connect retries until the server answers a ping or the connect timeout
// passes. Errors wrap the package sentinels with errors.Join, so callers can
// match ErrRedisNotReady or ErrCacheRead with errors.Is.
package redis
