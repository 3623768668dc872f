package billing

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/techizeBuilder/admin-task-manager/handler"
	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
	"github.com/techizeBuilder/admin-task-manager/pkg/subscription"
	"github.com/techizeBuilder/admin-task-manager/pkg/trial"
)

func (m *Module) listPlans(ctx handler.Context, _ struct{}) handler.Response {
	plans, err := m.subs.ListPlans(ctx)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(plans, handler.WithJSONMeta(map[string]any{"count": len(plans)}))
}

func (m *Module) getPlan(ctx handler.Context, req planRequest) handler.Response {
	code, err := entitlement.ParseLicenseCode(req.Code)
	if err != nil {
		return m.fail(ctx, entitlement.ErrLicenseNotFound)
	}
	plan, err := m.subs.GetPlan(ctx, code)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(plan)
}

func (m *Module) startTrial(ctx handler.Context, req startTrialRequest) handler.Response {
	org, err := m.trials.StartTrial(ctx, trial.StartParams{Name: req.Name, ContactEmail: req.ContactEmail})
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(org, handler.WithJSONStatus(http.StatusCreated))
}

func (m *Module) summary(ctx handler.Context, req organizationRequest) handler.Response {
	s, err := m.subs.GetSubscriptionSummary(ctx, req.OrganizationID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(s)
}

func (m *Module) history(ctx handler.Context, req historyRequest) handler.Response {
	page, err := m.subs.GetSubscriptionHistory(ctx, req.OrganizationID, req.Page, req.Limit)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(page.Entries, handler.WithJSONMeta(map[string]any{
		"total":    page.Total,
		"page":     page.Page,
		"per_page": page.PerPage,
	}))
}

func (m *Module) upgrade(ctx handler.Context, req upgradeRequest) handler.Response {
	if req.License == "" {
		return m.fail(ctx, fmt.Errorf("%w: license_code is required", entitlement.ErrInvalidArgument))
	}
	code, err := entitlement.ParseLicenseCode(req.License)
	if err != nil {
		return m.fail(ctx, entitlement.ErrLicenseNotFound)
	}
	res, err := m.subs.UpgradeSubscription(ctx, subscription.UpgradeParams{
		OrganizationID: req.OrganizationID,
		License:        code,
		BillingCycle:   entitlement.BillingCycle(req.BillingCycle),
		UserID:         req.UserID,
	})
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(res)
}

func (m *Module) organizationFeatures(ctx handler.Context, req organizationRequest) handler.Response {
	overview, err := m.features.GetOrganizationFeatures(ctx, req.OrganizationID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(overview)
}

func (m *Module) checkFeature(ctx handler.Context, req featureRequest) handler.Response {
	feature, err := parseFeature(req.Feature)
	if err != nil {
		return m.fail(ctx, err)
	}
	limit, err := m.subs.CheckFeatureLimit(ctx, req.OrganizationID, feature)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(limit, handler.WithJSONMeta(map[string]any{"remaining": limit.Remaining()}))
}

// incrementUsage counts uses of a feature. It refuses when the feature is
// not granted or the current window is already used up.
func (m *Module) incrementUsage(ctx handler.Context, req usageRequest) handler.Response {
	feature, err := parseFeature(req.Feature)
	if err != nil {
		return m.fail(ctx, err)
	}
	amount := req.Amount
	if amount == 0 {
		amount = 1
	}
	if amount < 0 {
		return m.fail(ctx, entitlement.ErrInvalidAmount)
	}

	access, err := m.subs.HasFeatureAccess(ctx, req.OrganizationID, feature)
	if err != nil {
		return m.fail(ctx, err)
	}
	var license entitlement.LicenseCode
	if access.Organization != nil {
		license = access.Organization.License
	}
	if !access.HasAccess {
		return m.fail(ctx, &entitlement.AccessError{Feature: feature, License: license, Reason: access.Reason})
	}

	limit, err := m.subs.CheckFeatureLimit(ctx, req.OrganizationID, feature)
	if err != nil {
		return m.fail(ctx, err)
	}
	if err := limit.Err(license); err != nil {
		return m.fail(ctx, err)
	}

	inc, err := m.subs.IncrementFeatureUsage(ctx, req.OrganizationID, feature, amount)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(inc)
}

func (m *Module) upgradeSuggestions(ctx handler.Context, req organizationRequest) handler.Response {
	suggestions, err := m.features.GetUpgradeSuggestions(ctx, req.OrganizationID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(suggestions, handler.WithJSONMeta(map[string]any{"count": len(suggestions)}))
}

func (m *Module) trialStatus(ctx handler.Context, req organizationRequest) handler.Response {
	st, err := m.trials.CheckStatus(ctx, req.OrganizationID)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(st)
}

func (m *Module) extendTrial(ctx handler.Context, req extendRequest) handler.Response {
	if req.OrganizationID == uuid.Nil {
		return m.fail(ctx, entitlement.ErrMissingOrganizationID)
	}
	org, err := m.trials.Extend(ctx, req.OrganizationID, req.AdditionalDays)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(org)
}

func (m *Module) processExpired(ctx handler.Context, _ struct{}) handler.Response {
	report, err := m.trials.ProcessExpired(ctx)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(report)
}

func (m *Module) statistics(ctx handler.Context, _ struct{}) handler.Response {
	stats, err := m.trials.Statistics(ctx)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(stats)
}

func (m *Module) notifications(ctx handler.Context, req notificationsRequest) handler.Response {
	days := m.days(req.Days)
	notices, err := m.trials.ExpiryNotifications(ctx, days)
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(notices, handler.WithJSONMeta(map[string]any{
		"count": len(notices),
		"days":  days,
	}))
}

func (m *Module) sendNotifications(ctx handler.Context, req notificationsRequest) handler.Response {
	if m.notifier == nil {
		return m.fail(ctx, handler.ErrServiceUnavailable.WithMessage("expiry notices are not configured"))
	}
	notices, err := m.trials.ExpiryNotifications(ctx, m.days(req.Days))
	if err != nil {
		return m.fail(ctx, err)
	}
	return handler.JSON(trial.Deliver(ctx, m.notifier, notices, m.logger))
}

func (m *Module) days(requested int) int {
	if requested > 0 {
		return requested
	}
	return m.noticeDays
}

func parseFeature(s string) (entitlement.FeatureCode, error) {
	code, err := entitlement.ParseFeatureCode(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", entitlement.ErrFeatureNotFound, s)
	}
	return code, nil
}
