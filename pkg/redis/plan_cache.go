package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
	"github.com/techizeBuilder/admin-task-manager/pkg/subscription"
)

const plansKey = "plans"

var _ subscription.PlanCache = (*PlanCache)(nil)

// PlanCache keeps the plan list in Redis as JSON with a TTL.
type PlanCache struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewPlanCache returns a PlanCache that stores under prefix+"plans".
// Panics if client is nil.
func NewPlanCache(client redis.UniversalClient, prefix string, ttl time.Duration) *PlanCache {
	if client == nil {
		panic("redis: client is required")
	}
	return &PlanCache{client: client, key: prefix + plansKey, ttl: ttl}
}

// LoadPlans returns the cached plans, or false when the key is missing.
func (c *PlanCache) LoadPlans(ctx context.Context) ([]entitlement.Plan, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, errors.Join(ErrCacheRead, err)
	}
	var plans []entitlement.Plan
	if err := json.Unmarshal(raw, &plans); err != nil {
		return nil, false, errors.Join(ErrCacheDecode, err)
	}
	return plans, true, nil
}

// StorePlans replaces the cached plans.
func (c *PlanCache) StorePlans(ctx context.Context, plans []entitlement.Plan) error {
	raw, err := json.Marshal(plans)
	if err != nil {
		return errors.Join(ErrCacheDecode, err)
	}
	if err := c.client.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		return errors.Join(ErrCacheWrite, err)
	}
	return nil
}

// Invalidate drops the cached plans.
func (c *PlanCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return errors.Join(ErrCacheWrite, err)
	}
	return nil
}
