package features

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/google/uuid"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
	"github.com/techizeBuilder/admin-task-manager/pkg/logger"
	"github.com/techizeBuilder/admin-task-manager/pkg/subscription"
	"github.com/techizeBuilder/admin-task-manager/pkg/trial"
)

// Service runs task manager operations behind license checks.
type Service struct {
	subs      subscription.Service
	trials    trial.Service
	catalog   entitlement.PlanStore
	logger    *slog.Logger
	threshold float64
}

// NewService creates a Service. Panics if any dependency is nil.
func NewService(subs subscription.Service, trials trial.Service, catalog entitlement.PlanStore, opts ...Option) *Service {
	if subs == nil {
		panic("features: subscription service is required")
	}
	if trials == nil {
		panic("features: trial service is required")
	}
	if catalog == nil {
		panic("features: plan store is required")
	}
	s := &Service{
		subs:      subs,
		trials:    trials,
		catalog:   catalog,
		logger:    slog.New(slog.DiscardHandler),
		threshold: defaultSuggestionThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrganizationFeatures returns the organization's position on every
// active catalog feature. A lapsed trial is downgraded first.
func (s *Service) GetOrganizationFeatures(ctx context.Context, orgID uuid.UUID) (*Overview, error) {
	st, err := s.settleTrial(ctx, orgID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.activeFeatures(ctx)
	if err != nil {
		return nil, err
	}
	tiers, err := s.tiers(ctx)
	if err != nil {
		return nil, err
	}

	ov := &Overview{
		OrganizationID: orgID,
		License:        st.License,
		Status:         st.Status,
		Trial:          st,
		Categories:     make(map[string][]FeatureStatus),
	}
	for _, f := range catalog {
		limit, err := s.subs.CheckFeatureLimit(ctx, orgID, f.Code)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", f.Code, err)
		}
		ov.Categories[f.Category] = append(ov.Categories[f.Category], FeatureStatus{
			Code:            f.Code,
			Name:            f.Name,
			Description:     f.Description,
			Category:        f.Category,
			HasAccess:       limit.HasAccess,
			IsUnlimited:     limit.IsUnlimited,
			Usage:           limit.Usage,
			Limit:           limit.Limit,
			Period:          limit.Period,
			IsOverLimit:     limit.IsOverLimit,
			UpgradeRequired: !limit.HasAccess || limit.IsOverLimit,
			CheapestLicense: cheapestOffering(tiers, f.Code),
		})
	}
	return ov, nil
}

// GetUpgradeSuggestions suggests a tier for every feature the organization
// cannot use and for every limited feature whose usage is above the
// suggestion threshold.
func (s *Service) GetUpgradeSuggestions(ctx context.Context, orgID uuid.UUID) ([]Suggestion, error) {
	st, err := s.settleTrial(ctx, orgID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.activeFeatures(ctx)
	if err != nil {
		return nil, err
	}
	tiers, err := s.tiers(ctx)
	if err != nil {
		return nil, err
	}
	var currentPrice int64
	if current, err := s.catalog.GetLicense(ctx, st.License); err == nil {
		currentPrice = current.MonthlyPrice
	}

	out := []Suggestion{}
	for _, f := range catalog {
		limit, err := s.subs.CheckFeatureLimit(ctx, orgID, f.Code)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", f.Code, err)
		}

		if !limit.HasAccess {
			rec := cheapestOffering(tiers, f.Code)
			msg := fmt.Sprintf("%s is not included in your current plan.", f.Name)
			if rec != nil {
				msg += fmt.Sprintf(" Upgrade to %s to unlock it.", *rec)
			}
			out = append(out, Suggestion{
				Type:               SuggestionLocked,
				Feature:            f.Code,
				FeatureName:        f.Name,
				Message:            msg,
				RecommendedLicense: rec,
			})
			continue
		}

		if limit.Limit == nil || *limit.Limit <= 0 {
			continue
		}
		ratio := float64(limit.Usage) / float64(*limit.Limit)
		if ratio <= s.threshold {
			continue
		}
		rec := higherCap(tiers, currentPrice, f.Code, *limit.Limit)
		msg := fmt.Sprintf("You have used %d of %d %s.", limit.Usage, *limit.Limit, f.Name)
		if rec != nil {
			msg += fmt.Sprintf(" Upgrade to %s for a higher limit.", *rec)
		}
		out = append(out, Suggestion{
			Type:               SuggestionApproachingCap,
			Feature:            f.Code,
			FeatureName:        f.Name,
			Message:            msg,
			Usage:              limit.Usage,
			Limit:              limit.Limit,
			UsagePercent:       math.Round(ratio*1000) / 10,
			RecommendedLicense: rec,
		})
	}
	return out, nil
}

// CreateTask runs op when every task feature selected by opts is within
// its limit, then counts one use of each.
func (s *Service) CreateTask(ctx context.Context, orgID uuid.UUID, opts TaskOptions, op Operation) (*OperationResult, error) {
	exercised := []entitlement.FeatureCode{entitlement.FeatureTaskBasic}
	if opts.Subtask {
		exercised = append(exercised, entitlement.FeatureTaskSub)
	}
	if opts.Recurring {
		exercised = append(exercised, entitlement.FeatureTaskRecurring)
	}
	if opts.RequiresApproval {
		exercised = append(exercised, entitlement.FeatureTaskApproval)
	}
	return s.guard(ctx, orgID, exercised, op)
}

// CreateForm runs op behind the FORM_CREATE limit.
func (s *Service) CreateForm(ctx context.Context, orgID uuid.UUID, op Operation) (*OperationResult, error) {
	return s.guard(ctx, orgID, []entitlement.FeatureCode{entitlement.FeatureFormCreate}, op)
}

// GenerateReport runs op behind the REPORT_GENERATE limit.
func (s *Service) GenerateReport(ctx context.Context, orgID uuid.UUID, op Operation) (*OperationResult, error) {
	return s.guard(ctx, orgID, []entitlement.FeatureCode{entitlement.FeatureReportGenerate}, op)
}

// RecordAPICall runs op behind the API_CALLS limit.
func (s *Service) RecordAPICall(ctx context.Context, orgID uuid.UUID, op Operation) (*OperationResult, error) {
	return s.guard(ctx, orgID, []entitlement.FeatureCode{entitlement.FeatureAPICalls}, op)
}

func (s *Service) guard(ctx context.Context, orgID uuid.UUID, exercised []entitlement.FeatureCode, op Operation) (*OperationResult, error) {
	for _, f := range exercised {
		limit, err := s.subs.CheckFeatureLimit(ctx, orgID, f)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", f, err)
		}
		if blocked := blockedResult(limit); blocked != nil {
			s.logger.InfoContext(ctx, "operation blocked",
				logger.Component("features"),
				logger.OrganizationID(orgID),
				logger.FeatureCode(f),
				slog.String("reason", blocked.Error),
			)
			return blocked, nil
		}
	}

	res := &OperationResult{Success: true, Tracked: make(map[entitlement.FeatureCode]int64, len(exercised))}
	if op != nil {
		data, err := op(ctx)
		if err != nil {
			return nil, err
		}
		res.Data = data
	}

	for _, f := range exercised {
		inc, err := s.subs.IncrementFeatureUsage(ctx, orgID, f, 1)
		if err != nil {
			s.logger.ErrorContext(ctx, "usage tracking failed",
				logger.Component("features"),
				logger.OrganizationID(orgID),
				logger.FeatureCode(f),
				logger.Error(err),
			)
			continue
		}
		if inc.Tracked {
			res.Tracked[f] = inc.Usage
		}
	}
	return res, nil
}

func blockedResult(limit *subscription.Limit) *OperationResult {
	switch {
	case !limit.HasAccess:
		return &OperationResult{
			Error:           ErrorUpgradeRequired,
			Message:         fmt.Sprintf("Feature %s is not available on your current plan", limit.Feature),
			UpgradeRequired: true,
			Feature:         limit.Feature,
		}
	case limit.IsOverLimit:
		return &OperationResult{
			Error:           ErrorLimitExceeded,
			Message:         fmt.Sprintf("Usage limit reached for %s", limit.Feature),
			UpgradeRequired: true,
			Feature:         limit.Feature,
			Usage:           limit.Usage,
			Limit:           limit.Limit,
			ResetDate:       limit.ResetDate,
		}
	}
	return nil
}

func (s *Service) settleTrial(ctx context.Context, orgID uuid.UUID) (*trial.Status, error) {
	st, err := s.trials.CheckStatus(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !st.RequiresDowngrade {
		return st, nil
	}
	if _, err := s.trials.DowngradeExpired(ctx, orgID); err != nil {
		return nil, err
	}
	return s.trials.CheckStatus(ctx, orgID)
}

func (s *Service) activeFeatures(ctx context.Context) ([]entitlement.Feature, error) {
	all, err := s.catalog.ListFeatures(ctx)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	return slices.DeleteFunc(all, func(f entitlement.Feature) bool { return !f.Active }), nil
}

// tier is a purchasable license and its enabled grants.
type tier struct {
	license entitlement.License
	grants  map[entitlement.FeatureCode]entitlement.LicenseFeature
}

// tiers returns the active licenses other than the trial tier, cheapest first.
func (s *Service) tiers(ctx context.Context) ([]tier, error) {
	licenses, err := s.catalog.ListLicenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	slices.SortStableFunc(licenses, func(a, b entitlement.License) int {
		return cmp.Compare(a.MonthlyPrice, b.MonthlyPrice)
	})

	out := make([]tier, 0, len(licenses))
	for _, l := range licenses {
		if !l.Active || l.Code == entitlement.TrialLicense {
			continue
		}
		rows, err := s.catalog.ListLicenseFeatures(ctx, l.Code)
		if err != nil {
			return nil, fmt.Errorf("list %s features: %w", l.Code, err)
		}
		t := tier{license: l, grants: make(map[entitlement.FeatureCode]entitlement.LicenseFeature, len(rows))}
		for _, row := range rows {
			if row.Enabled {
				t.grants[row.Feature] = row
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func cheapestOffering(tiers []tier, feature entitlement.FeatureCode) *entitlement.LicenseCode {
	for _, t := range tiers {
		if _, ok := t.grants[feature]; ok {
			code := t.license.Code
			return &code
		}
	}
	return nil
}

// higherCap returns the cheapest tier priced above currentPrice whose
// allowance for feature exceeds current.
func higherCap(tiers []tier, currentPrice int64, feature entitlement.FeatureCode, current int64) *entitlement.LicenseCode {
	for _, t := range tiers {
		if t.license.MonthlyPrice <= currentPrice {
			continue
		}
		g, ok := t.grants[feature]
		if !ok {
			continue
		}
		if g.LimitValue == nil || *g.LimitValue > current {
			code := t.license.Code
			return &code
		}
	}
	return nil
}
