package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
)

// Access is the outcome of a feature access check. Downgraded is set when
// the check itself moved a lapsed trial to the expired tier.
type Access struct {
	HasAccess      bool                        `json:"has_access"`
	Reason         entitlement.Reason          `json:"reason"`
	Feature        entitlement.FeatureCode     `json:"feature_code"`
	LicenseFeature *entitlement.LicenseFeature `json:"license_feature,omitempty"`
	Organization   *entitlement.Organization   `json:"-"`
	Downgraded     bool                        `json:"downgraded"`
}

// Limit is the read-only usage position of an organization for one feature.
// Limit is nil for unlimited features.
type Limit struct {
	Feature     entitlement.FeatureCode `json:"feature_code"`
	HasAccess   bool                    `json:"has_access"`
	IsOverLimit bool                    `json:"is_over_limit"`
	IsUnlimited bool                    `json:"is_unlimited"`
	Usage       int64                   `json:"usage"`
	Limit       *int64                  `json:"limit"`
	Period      *entitlement.Period     `json:"period,omitempty"`
	ResetDate   *time.Time              `json:"reset_date,omitempty"`
	Reason      entitlement.Reason      `json:"reason"`
}

// Remaining returns the allowance left in the current period, or nil when unlimited.
func (l *Limit) Remaining() *int64 {
	if l.Limit == nil {
		return nil
	}
	r := max(*l.Limit-l.Usage, 0)
	return &r
}

// Err converts a blocked limit into an AccessError or LimitError.
// It returns nil when the limit allows another use.
func (l *Limit) Err(license entitlement.LicenseCode) error {
	switch {
	case !l.HasAccess:
		return &entitlement.AccessError{Feature: l.Feature, License: license, Reason: l.Reason}
	case l.IsOverLimit:
		var limit int64
		if l.Limit != nil {
			limit = *l.Limit
		}
		var period entitlement.Period
		if l.Period != nil {
			period = *l.Period
		}
		return &entitlement.LimitError{Feature: l.Feature, Usage: l.Usage, Limit: limit, Period: period, ResetDate: l.ResetDate}
	}
	return nil
}

// Increment reports the effect of a usage increment. Tracked is false when
// the feature is unlimited or not granted, in which case nothing was written.
type Increment struct {
	Feature   entitlement.FeatureCode `json:"feature_code"`
	Tracked   bool                    `json:"tracked"`
	Usage     int64                   `json:"usage"`
	Limit     *int64                  `json:"limit"`
	Period    *entitlement.Period     `json:"period,omitempty"`
	ResetDate *time.Time              `json:"reset_date,omitempty"`
}

// UpgradeParams describes a paid tier activation confirmed by billing.
type UpgradeParams struct {
	OrganizationID uuid.UUID
	License        entitlement.LicenseCode
	BillingCycle   entitlement.BillingCycle
	UserID         string
}

// UpgradeResult is the state after an upgrade.
type UpgradeResult struct {
	Organization *entitlement.Organization `json:"organization"`
	Plan         *entitlement.Plan         `json:"plan"`
	History      *entitlement.HistoryEntry `json:"history"`
}

// UsageSnapshot is the usage of one headline feature.
type UsageSnapshot struct {
	Usage       int64               `json:"usage"`
	Limit       *int64              `json:"limit"`
	IsOverLimit bool                `json:"is_over_limit"`
	HasAccess   bool                `json:"has_access"`
	Period      *entitlement.Period `json:"period,omitempty"`
}

// Summary is the subscription overview of an organization.
type Summary struct {
	Organization    *entitlement.Organization                 `json:"organization"`
	Plan            *entitlement.Plan                         `json:"plan"`
	DaysUntilExpiry *int                                      `json:"days_until_expiry"`
	Usage           map[entitlement.FeatureCode]UsageSnapshot `json:"usage"`
}

// HistoryPage is one page of subscription history, newest first.
type HistoryPage struct {
	Entries []entitlement.HistoryEntry `json:"entries"`
	Total   int64                      `json:"total"`
	Page    int                        `json:"page"`
	PerPage int                        `json:"per_page"`
}
