package subscription

import (
	"log/slog"
	"time"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithClock overrides the time source. Period windows are computed in the
// location of the returned times.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for cache and history failures.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithKeyFeatures replaces the headline features reported by GetSubscriptionSummary.
func WithKeyFeatures(features ...entitlement.FeatureCode) ServiceOption {
	return func(s *service) {
		if len(features) > 0 {
			s.keyFeatures = features
		}
	}
}

// WithPlanCache serves ListPlans from cache. Cache failures are logged
// and fall through to the store.
func WithPlanCache(c PlanCache) ServiceOption {
	return func(s *service) {
		s.cache = c
	}
}
