package licensegate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/techizeBuilder/admin-task-manager/handler"
	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
	"github.com/techizeBuilder/admin-task-manager/pkg/logger"
	"github.com/techizeBuilder/admin-task-manager/pkg/subscription"
	"github.com/techizeBuilder/admin-task-manager/pkg/trial"
)

const defaultTrackTimeout = 5 * time.Second

// Response error keys.
const (
	KeyOrganizationRequired = "organization_required"
	KeyUpgradeRequired      = "upgrade_required"
	KeyLimitExceeded        = "limit_exceeded"
	KeySubscriptionRequired = "subscription_required"
)

// Gate builds HTTP middleware that enforces an organization's license.
type Gate struct {
	subs         subscription.Service
	trials       trial.Service
	resolve      OrganizationResolver
	logger       *slog.Logger
	trackTimeout time.Duration
	wg           sync.WaitGroup
}

// New creates a Gate. Panics if either service is nil.
func New(subs subscription.Service, trials trial.Service, opts ...Option) *Gate {
	if subs == nil {
		panic("licensegate: subscription service is required")
	}
	if trials == nil {
		panic("licensegate: trial service is required")
	}
	g := &Gate{
		subs:         subs,
		trials:       trials,
		resolve:      fromTenant,
		logger:       slog.New(slog.DiscardHandler),
		trackTimeout: defaultTrackTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequireFeature lets the request through only when the organization's
// license grants feature. A lapsed trial is downgraded before the check.
func (g *Gate) RequireFeature(feature entitlement.FeatureCode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID, ok := g.organization(w, r)
			if !ok {
				return
			}
			ctx := r.Context()

			if err := g.settleTrial(ctx, orgID); err != nil {
				g.fail(w, r, err)
				return
			}

			access, err := g.subs.HasFeatureAccess(ctx, orgID, feature)
			if err != nil {
				g.fail(w, r, err)
				return
			}
			if !access.HasAccess {
				g.deny(w, r, access)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, accessKey{}, access)))
		})
	}
}

// EnforceLimit rejects the request when the organization has used up its
// allowance of feature for the current period. The check does not reserve
// capacity, so concurrent requests may overshoot a limit slightly.
func (g *Gate) EnforceLimit(feature entitlement.FeatureCode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID, ok := g.organization(w, r)
			if !ok {
				return
			}
			ctx := r.Context()

			limit, err := g.subs.CheckFeatureLimit(ctx, orgID, feature)
			if err != nil {
				g.fail(w, r, err)
				return
			}
			switch {
			case !limit.HasAccess:
				g.deny(w, r, &subscription.Access{Feature: feature, Reason: limit.Reason})
				return
			case limit.IsOverLimit:
				g.overLimit(w, r, limit)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, limitKey{}, limit)))
		})
	}
}

// TrackUsage increments feature by amount after the handler responds with a
// 2xx status. The increment runs in the background; failures are logged and
// never reach the client.
func (g *Gate) TrackUsage(feature entitlement.FeatureCode, amount int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID, ok := g.resolve(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			if !sw.succeeded() {
				return
			}

			ctx := context.WithoutCancel(r.Context())
			g.wg.Add(1)
			go func() {
				defer g.wg.Done()
				ctx, cancel := context.WithTimeout(ctx, g.trackTimeout)
				defer cancel()
				if _, err := g.subs.IncrementFeatureUsage(ctx, orgID, feature, amount); err != nil {
					g.logger.ErrorContext(ctx, "usage tracking failed",
						logger.Component("licensegate"),
						logger.OrganizationID(orgID),
						logger.FeatureCode(feature),
						logger.Error(err),
					)
				}
			}()
		})
	}
}

// RequireActiveSubscription rejects expired and cancelled organizations.
// Trials and paid terms past their end date are expired first. Suspended
// organizations pass and are stopped by the feature checks.
func (g *Gate) RequireActiveSubscription() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID, ok := g.organization(w, r)
			if !ok {
				return
			}

			org, _, err := g.subs.RefreshSubscription(r.Context(), orgID)
			if err != nil {
				g.fail(w, r, err)
				return
			}
			if org.Status == entitlement.StatusExpired || org.Status == entitlement.StatusCancelled {
				g.render(w, r, handler.ErrPaymentRequired.
					WithKey(KeySubscriptionRequired).
					WithMessage("An active subscription is required"),
					map[string]any{
						"current_license": org.License,
						"status":          org.Status,
					})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Feature chains RequireFeature, EnforceLimit and TrackUsage with an amount
// of one.
func (g *Gate) Feature(feature entitlement.FeatureCode) func(http.Handler) http.Handler {
	access := g.RequireFeature(feature)
	limit := g.EnforceLimit(feature)
	track := g.TrackUsage(feature, 1)
	return func(next http.Handler) http.Handler {
		return access(limit(track(next)))
	}
}

// Wait blocks until every pending usage increment has finished.
func (g *Gate) Wait() {
	g.wg.Wait()
}

func (g *Gate) organization(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orgID, ok := g.resolve(r)
	if !ok || orgID == uuid.Nil {
		g.render(w, r, handler.ErrBadRequest.
			WithKey(KeyOrganizationRequired).
			WithMessage("Organization ID is required"), nil)
		return uuid.Nil, false
	}
	return orgID, true
}

func (g *Gate) settleTrial(ctx context.Context, orgID uuid.UUID) error {
	st, err := g.trials.CheckStatus(ctx, orgID)
	if err != nil {
		return err
	}
	if !st.RequiresDowngrade {
		return nil
	}
	_, err = g.trials.DowngradeExpired(ctx, orgID)
	return err
}

func (g *Gate) deny(w http.ResponseWriter, r *http.Request, access *subscription.Access) {
	msg := "Your current plan does not include this feature"
	if access.Reason == entitlement.ReasonSubscriptionInactive {
		msg = "Your subscription is not active"
	}
	meta := map[string]any{
		"feature":          access.Feature,
		"reason":           access.Reason,
		"upgrade_required": true,
	}
	if access.Organization != nil {
		meta["current_license"] = access.Organization.License
	}
	g.logger.InfoContext(r.Context(), "feature access denied",
		logger.Component("licensegate"),
		logger.FeatureCode(access.Feature),
		slog.String("reason", string(access.Reason)),
	)
	g.render(w, r, handler.ErrForbidden.WithKey(KeyUpgradeRequired).WithMessage(msg), meta)
}

func (g *Gate) overLimit(w http.ResponseWriter, r *http.Request, limit *subscription.Limit) {
	meta := map[string]any{
		"feature":          limit.Feature,
		"usage":            limit.Usage,
		"limit":            limit.Limit,
		"upgrade_required": true,
	}
	if limit.Period != nil {
		meta["period"] = *limit.Period
	}
	if limit.ResetDate != nil {
		meta["reset_date"] = *limit.ResetDate
	}
	g.render(w, r, handler.ErrTooManyRequests.
		WithKey(KeyLimitExceeded).
		WithMessage("Usage limit reached for this feature"), meta)
}

func (g *Gate) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entitlement.ErrNotFound):
		g.render(w, r, handler.ErrNotFound.WithMessage("Organization not found"), nil)
	case errors.Is(err, entitlement.ErrInvalidArgument):
		g.render(w, r, handler.ErrBadRequest.WithMessage(err.Error()), nil)
	default:
		g.logger.ErrorContext(r.Context(), "license check failed",
			logger.Component("licensegate"),
			logger.Error(err),
		)
		g.render(w, r, handler.ErrInternalServerError, nil)
	}
}

func (g *Gate) render(w http.ResponseWriter, r *http.Request, err error, meta map[string]any) {
	var opts []handler.JSONOption
	if meta != nil {
		opts = append(opts, handler.WithJSONMeta(meta))
	}
	if rerr := handler.JSONError(err, opts...).Render(w, r); rerr != nil {
		g.logger.ErrorContext(r.Context(), "render response failed",
			logger.Component("licensegate"),
			logger.Error(rerr),
		)
	}
}
