package subscription

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
	"github.com/techizeBuilder/admin-task-manager/pkg/logger"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// DefaultKeyFeatures are the headline features in a subscription summary.
var DefaultKeyFeatures = []entitlement.FeatureCode{
	entitlement.FeatureTaskBasic,
	entitlement.FeatureFormCreate,
	entitlement.FeatureReportGenerate,
	entitlement.FeatureAPICalls,
}

// Service answers whether an organization may use a feature right now and
// how much of it has been used.
type Service interface {
	// Plans
	ListPlans(ctx context.Context) ([]entitlement.Plan, error)
	GetPlan(ctx context.Context, code entitlement.LicenseCode) (*entitlement.Plan, error)

	// Access and usage
	RefreshSubscription(ctx context.Context, orgID uuid.UUID) (*entitlement.Organization, bool, error)
	HasFeatureAccess(ctx context.Context, orgID uuid.UUID, feature entitlement.FeatureCode) (*Access, error)
	GetFeatureUsage(ctx context.Context, orgID uuid.UUID, feature entitlement.FeatureCode, period entitlement.Period) (int64, error)
	CheckFeatureLimit(ctx context.Context, orgID uuid.UUID, feature entitlement.FeatureCode) (*Limit, error)
	IncrementFeatureUsage(ctx context.Context, orgID uuid.UUID, feature entitlement.FeatureCode, by int64) (*Increment, error)

	// Subscription management
	UpgradeSubscription(ctx context.Context, params UpgradeParams) (*UpgradeResult, error)
	GetSubscriptionSummary(ctx context.Context, orgID uuid.UUID) (*Summary, error)
	GetSubscriptionHistory(ctx context.Context, orgID uuid.UUID, page, perPage int) (*HistoryPage, error)
}

type service struct {
	store       entitlement.Store
	cache       PlanCache
	now         func() time.Time
	logger      *slog.Logger
	keyFeatures []entitlement.FeatureCode
}

// NewService creates a subscription Service backed by store.
// Panics if store is nil.
func NewService(store entitlement.Store, opts ...ServiceOption) Service {
	if store == nil {
		panic("subscription: store is required")
	}
	s := &service{
		store:       store,
		now:         time.Now,
		logger:      slog.New(slog.DiscardHandler),
		keyFeatures: DefaultKeyFeatures,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPlans returns every active license with its enabled features,
// cheapest first.
func (s *service) ListPlans(ctx context.Context) ([]entitlement.Plan, error) {
	if s.cache != nil {
		plans, ok, err := s.cache.LoadPlans(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "plan cache read failed", logger.Component("subscription"), logger.Error(err))
		} else if ok {
			return plans, nil
		}
	}

	licenses, err := s.store.ListLicenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	features, err := s.featureIndex(ctx)
	if err != nil {
		return nil, err
	}

	plans := make([]entitlement.Plan, 0, len(licenses))
	for _, l := range licenses {
		if !l.Active {
			continue
		}
		plan, err := s.buildPlan(ctx, l, features)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	slices.SortStableFunc(plans, func(a, b entitlement.Plan) int {
		return cmp.Compare(a.MonthlyPrice, b.MonthlyPrice)
	})

	if s.cache != nil {
		if err := s.cache.StorePlans(ctx, plans); err != nil {
			s.logger.WarnContext(ctx, "plan cache write failed", logger.Component("subscription"), logger.Error(err))
		}
	}
	return plans, nil
}

// GetPlan returns one active license with its enabled features.
func (s *service) GetPlan(ctx context.Context, code entitlement.LicenseCode) (*entitlement.Plan, error) {
	license, err := s.store.GetLicense(ctx, code)
	if err != nil {
		return nil, err
	}
	if !license.Active {
		return nil, entitlement.ErrLicenseNotFound
	}
	features, err := s.featureIndex(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildPlan(ctx, *license, features)
}

// HasFeatureAccess checks whether the organization's current tier grants
// feature. A trialing organization past its trial end date is moved to the
// expired tier before the check; Access.Downgraded reports when that happened.
func (s *service) HasFeatureAccess(ctx context.Context, orgID uuid.UUID, feature entitlement.FeatureCode) (*Access, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	access := &Access{Feature: feature, Organization: org}

	now := s.now()
	if org.TrialLapsed(now) {
		expired, changed, err := entitlement.Expire(ctx, s.store, orgID, now, entitlement.SystemActor, "trial expired on access check")
		if err != nil {
			return nil, fmt.Errorf("expire lapsed trial: %w", err)
		}
		if changed {
			s.logger.InfoContext(ctx, "trial expired on access check",
				logger.Component("subscription"),
				logger.OrganizationID(orgID),
				logger.FeatureCode(feature),
			)
		}
		access.Organization = expired
		access.Downgraded = changed
		org = expired
	}

	if org.Status.Inactive() {
		access.Reason = entitlement.ReasonSubscriptionInactive
		return access, nil
	}

	lf, err := s.store.GetLicenseFeature(ctx, org.License, feature)
	switch {
	case errors.Is(err, entitlement.ErrNotFound):
		access.Reason = entitlement.ReasonFeatureNotAvailable
		return access, nil
	case err != nil:
		return nil, fmt.Errorf("get license feature: %w", err)
	}
	if !lf.Enabled {
		access.Reason = entitlement.ReasonFeatureNotAvailable
		return access, nil
	}

	access.HasAccess = true
	access.Reason = entitlement.ReasonGranted
	access.LicenseFeature = lf
	return access, nil
}

// RefreshSubscription expires the organization when its trial or paid term
// has lapsed and returns its current state. The flag reports whether this
// call performed the downgrade.
func (s *service) RefreshSubscription(ctx context.Context, orgID uuid.UUID) (*entitlement.Organization, bool, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, false, err
	}
	now := s.now()
	if !org.TrialLapsed(now) && !org.TermLapsed(now) {
		return org, false, nil
	}
	expired, changed, err := entitlement.Expire(ctx, s.store, orgID, now, entitlement.SystemActor, "subscription lapsed")
	if err != nil {
		return nil, false, fmt.Errorf("expire lapsed subscription: %w", err)
	}
	if changed {
		s.logger.InfoContext(ctx, "subscription expired",
			logger.Component("subscription"),
			logger.OrganizationID(orgID),
			logger.LicenseCode(org.License),
		)
	}
	return expired, changed, nil
}

// GetFeatureUsage returns the usage counted in the current window of period.
func (s *service) GetFeatureUsage(ctx context.Context, orgID uuid.UUID, feature entitlement.FeatureCode, period entitlement.Period) (int64, error) {
	w, err := entitlement.PeriodWindow(period, s.now())
	if err != nil {
		return 0, err
	}
	count, err := s.store.UsageCount(ctx, w.Key(orgID, feature))
	if err != nil {
		return 0, fmt.Errorf("read usage: %w", err)
	}
	return count, nil
}

// CheckFeatureLimit composes the access check with the usage of the
// feature's limit period. It never writes usage.
func (s *service) CheckFeatureLimit(ctx context.Context, orgID uuid.UUID, feature entitlement.FeatureCode) (*Limit, error) {
	access, err := s.HasFeatureAccess(ctx, orgID, feature)
	if err != nil {
		return nil, err
	}
	if !access.HasAccess {
		return noAccessLimit(feature, access.Reason), nil
	}
	return s.limitFor(ctx, orgID, access.LicenseFeature, s.now())
}

// IncrementFeatureUsage adds by to the current window of a limited feature.
// Unlimited and ungranted features are not tracked.
func (s *service) IncrementFeatureUsage(ctx context.Context, orgID uuid.UUID, feature entitlement.FeatureCode, by int64) (*Increment, error) {
	if by <= 0 {
		return nil, entitlement.ErrInvalidAmount
	}
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	inc := &Increment{Feature: feature}

	lf, err := s.store.GetLicenseFeature(ctx, org.License, feature)
	switch {
	case errors.Is(err, entitlement.ErrNotFound):
		return inc, nil
	case err != nil:
		return nil, fmt.Errorf("get license feature: %w", err)
	}
	if !lf.Enabled || lf.IsUnlimited() {
		return inc, nil
	}

	now := s.now()
	w, err := entitlement.PeriodWindow(*lf.LimitPeriod, now)
	if err != nil {
		return nil, err
	}
	usage, err := s.store.IncrementUsage(ctx, w.Key(orgID, feature), by, w.ResetDate(), now)
	if err != nil {
		return nil, fmt.Errorf("increment usage: %w", err)
	}

	inc.Tracked = true
	inc.Usage = usage.Count
	inc.Limit = lf.LimitValue
	inc.Period = lf.LimitPeriod
	inc.ResetDate = w.ResetDate()
	return inc, nil
}

// UpgradeSubscription activates a paid tier for one billing cycle and
// records the change. Re-activating the current tier is a renewal.
func (s *service) UpgradeSubscription(ctx context.Context, params UpgradeParams) (*UpgradeResult, error) {
	if params.OrganizationID == uuid.Nil {
		return nil, entitlement.ErrMissingOrganizationID
	}
	cycle, err := entitlement.ParseBillingCycle(string(params.BillingCycle))
	if err != nil {
		return nil, err
	}

	license, err := s.store.GetLicense(ctx, params.License)
	if err != nil {
		return nil, err
	}
	if !license.Active {
		return nil, entitlement.ErrLicenseNotFound
	}

	org, err := s.store.GetOrganization(ctx, params.OrganizationID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	end := now.AddDate(0, 1, 0)
	if cycle == entitlement.BillingYearly {
		end = now.AddDate(1, 0, 0)
	}

	action := entitlement.ActionUpgraded
	if org.License == license.Code {
		action = entitlement.ActionRenewed
	}

	updated, err := s.store.ApplySubscription(ctx, org.ID, entitlement.SubscriptionChange{
		License:      license.Code,
		Status:       entitlement.StatusActive,
		Start:        now,
		End:          end,
		BillingCycle: cycle,
		AutoRenew:    true,
	}, now)
	if err != nil {
		return nil, fmt.Errorf("apply subscription: %w", err)
	}

	price := license.Price(cycle)
	entry := &entitlement.HistoryEntry{
		ID:             uuid.New(),
		OrganizationID: org.ID,
		License:        license.Code,
		Action:         action,
		BillingCycle:   &cycle,
		AmountPaid:     price.Amount,
		Currency:       price.Currency,
		PaymentStatus:  entitlement.PaymentCompleted,
		PeriodStart:    &now,
		PeriodEnd:      &end,
		CreatedBy:      params.UserID,
		Notes:          fmt.Sprintf("%s from %s to %s", action, org.License, license.Code),
		CreatedAt:      now,
	}
	if err := s.store.AppendHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("record subscription history: %w", err)
	}

	features, err := s.featureIndex(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := s.buildPlan(ctx, *license, features)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "subscription updated",
		logger.Component("subscription"),
		logger.Event(string(action)),
		logger.OrganizationID(org.ID),
		logger.LicenseCode(license.Code),
		slog.String("billing_cycle", string(cycle)),
	)

	return &UpgradeResult{Organization: updated, Plan: plan, History: entry}, nil
}

// GetSubscriptionSummary returns the current plan, expiry countdown and
// usage of the headline features. It does not expire lapsed trials.
func (s *service) GetSubscriptionSummary(ctx context.Context, orgID uuid.UUID) (*Summary, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	license, err := s.store.GetLicense(ctx, org.License)
	if err != nil {
		return nil, err
	}
	features, err := s.featureIndex(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := s.buildPlan(ctx, *license, features)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summary := &Summary{
		Organization:    org,
		Plan:            plan,
		DaysUntilExpiry: org.DaysUntilExpiry(now),
		Usage:           make(map[entitlement.FeatureCode]UsageSnapshot, len(s.keyFeatures)),
	}

	granted := make(map[entitlement.FeatureCode]entitlement.LicenseFeature, len(plan.Features))
	for _, pf := range plan.Features {
		granted[pf.Feature] = pf.LicenseFeature
	}

	for _, code := range s.keyFeatures {
		lf, ok := granted[code]
		if !ok || org.Status.Inactive() {
			zero := int64(0)
			summary.Usage[code] = UsageSnapshot{Limit: &zero, IsOverLimit: true}
			continue
		}
		limit, err := s.limitFor(ctx, orgID, &lf, now)
		if err != nil {
			return nil, err
		}
		summary.Usage[code] = UsageSnapshot{
			Usage:       limit.Usage,
			Limit:       limit.Limit,
			IsOverLimit: limit.IsOverLimit,
			HasAccess:   true,
			Period:      limit.Period,
		}
	}
	return summary, nil
}

// GetSubscriptionHistory returns a page of history entries, newest first.
// Pages start at 1.
func (s *service) GetSubscriptionHistory(ctx context.Context, orgID uuid.UUID, page, perPage int) (*HistoryPage, error) {
	if _, err := s.store.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, maxPerPage)

	entries, total, err := s.store.ListHistory(ctx, orgID, (page-1)*perPage, perPage)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	if entries == nil {
		entries = []entitlement.HistoryEntry{}
	}
	return &HistoryPage{Entries: entries, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *service) limitFor(ctx context.Context, orgID uuid.UUID, lf *entitlement.LicenseFeature, now time.Time) (*Limit, error) {
	if lf.IsUnlimited() {
		return &Limit{
			Feature:     lf.Feature,
			HasAccess:   true,
			IsUnlimited: true,
			Reason:      entitlement.ReasonGranted,
		}, nil
	}

	w, err := entitlement.PeriodWindow(*lf.LimitPeriod, now)
	if err != nil {
		return nil, err
	}
	usage, err := s.store.UsageCount(ctx, w.Key(orgID, lf.Feature))
	if err != nil {
		return nil, fmt.Errorf("read usage: %w", err)
	}
	limit, period := *lf.LimitValue, *lf.LimitPeriod
	return &Limit{
		Feature:     lf.Feature,
		HasAccess:   true,
		IsOverLimit: usage >= limit,
		Usage:       usage,
		Limit:       &limit,
		Period:      &period,
		ResetDate:   w.ResetDate(),
		Reason:      entitlement.ReasonGranted,
	}, nil
}

func noAccessLimit(feature entitlement.FeatureCode, reason entitlement.Reason) *Limit {
	zero := int64(0)
	return &Limit{
		Feature:     feature,
		HasAccess:   false,
		IsOverLimit: true,
		Limit:       &zero,
		Reason:      reason,
	}
}

func (s *service) featureIndex(ctx context.Context) (map[entitlement.FeatureCode]entitlement.Feature, error) {
	features, err := s.store.ListFeatures(ctx)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	idx := make(map[entitlement.FeatureCode]entitlement.Feature, len(features))
	for _, f := range features {
		idx[f.Code] = f
	}
	return idx, nil
}

func (s *service) buildPlan(ctx context.Context, license entitlement.License, features map[entitlement.FeatureCode]entitlement.Feature) (*entitlement.Plan, error) {
	grants, err := s.store.ListLicenseFeatures(ctx, license.Code)
	if err != nil {
		return nil, fmt.Errorf("list license features: %w", err)
	}
	plan := &entitlement.Plan{License: license, Features: make([]entitlement.PlanFeature, 0, len(grants))}
	for _, g := range grants {
		if !g.Enabled {
			continue
		}
		f := features[g.Feature]
		plan.Features = append(plan.Features, entitlement.PlanFeature{
			LicenseFeature: g,
			Name:           f.Name,
			Description:    f.Description,
			Category:       f.Category,
			IsUnlimited:    g.IsUnlimited(),
		})
	}
	return plan, nil
}
