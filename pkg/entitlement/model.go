package entitlement

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// TrialDuration is the length of the trial granted at signup.
const TrialDuration = 15 * 24 * time.Hour

// Reason explains an access decision.
type Reason string

const (
	ReasonGranted              Reason = "access_granted"
	ReasonFeatureNotAvailable  Reason = "feature_not_available"
	ReasonSubscriptionInactive Reason = "subscription_inactive"
)

// Money represents a price in the smallest currency unit.
type Money struct {
	Amount   int64  `json:"amount" yaml:"amount"`
	Currency string `json:"currency" yaml:"currency"`
}

// License is a purchasable (or terminal) tier.
type License struct {
	Code         LicenseCode `json:"code"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	MonthlyPrice int64       `json:"monthly_price"`
	YearlyPrice  int64       `json:"yearly_price"`
	Currency     string      `json:"currency"`
	Active       bool        `json:"active"`
}

// Price returns the price of the license for the given billing cycle.
func (l License) Price(cycle BillingCycle) Money {
	amount := l.MonthlyPrice
	if cycle == BillingYearly {
		amount = l.YearlyPrice
	}
	return Money{Amount: amount, Currency: l.Currency}
}

// Feature is a gated capability.
type Feature struct {
	Code        FeatureCode `json:"code"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category"`
	Active      bool        `json:"active"`
}

// LicenseFeature grants a feature to a license, optionally capped.
// A nil LimitValue means unlimited; LimitPeriod is nil exactly when LimitValue is nil.
type LicenseFeature struct {
	License     LicenseCode `json:"license_code"`
	Feature     FeatureCode `json:"feature_code"`
	Enabled     bool        `json:"is_enabled"`
	LimitValue  *int64      `json:"limit_value"`
	LimitPeriod *Period     `json:"limit_period"`
}

// IsUnlimited reports whether the grant has no cap.
func (lf LicenseFeature) IsUnlimited() bool {
	return lf.LimitValue == nil
}

// PlanFeature is a license feature joined with its feature metadata.
type PlanFeature struct {
	LicenseFeature
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	IsUnlimited bool   `json:"is_unlimited"`
}

// Plan is a license with the features it enables.
type Plan struct {
	License
	Features []PlanFeature `json:"features"`
}

// Organization is a tenant and the current state of its subscription.
type Organization struct {
	ID                uuid.UUID          `json:"id"`
	Name              string             `json:"name"`
	ContactEmail      string             `json:"contact_email,omitempty"`
	License           LicenseCode        `json:"license_code"`
	Status            SubscriptionStatus `json:"subscription_status"`
	TrialEndDate      *time.Time         `json:"trial_end_date,omitempty"`
	SubscriptionStart *time.Time         `json:"subscription_start_date,omitempty"`
	SubscriptionEnd   *time.Time         `json:"subscription_end_date,omitempty"`
	BillingCycle      *BillingCycle      `json:"billing_cycle,omitempty"`
	AutoRenew         bool               `json:"auto_renew"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// NewTrialOrganization returns an organization starting its trial at now.
func NewTrialOrganization(name string, now time.Time) *Organization {
	end := now.Add(TrialDuration)
	return &Organization{
		ID:           uuid.New(),
		Name:         name,
		License:      TrialLicense,
		Status:       StatusTrial,
		TrialEndDate: &end,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ExpiryDate is the trial end while trialing and the subscription end otherwise.
func (o *Organization) ExpiryDate() *time.Time {
	if o.Status == StatusTrial {
		return o.TrialEndDate
	}
	return o.SubscriptionEnd
}

// DaysUntilExpiry returns the whole days, rounded up, between now and the
// expiry date. The result is negative once the date has passed.
func (o *Organization) DaysUntilExpiry(now time.Time) *int {
	end := o.ExpiryDate()
	if end == nil {
		return nil
	}
	d := DaysBetween(now, *end)
	return &d
}

// TrialLapsed reports whether the organization is trialing past its end date.
func (o *Organization) TrialLapsed(now time.Time) bool {
	return o.Status == StatusTrial && o.TrialEndDate != nil && o.TrialEndDate.Before(now)
}

// TermLapsed reports whether a paid term ended before now.
func (o *Organization) TermLapsed(now time.Time) bool {
	return o.Status == StatusActive && o.SubscriptionEnd != nil && o.SubscriptionEnd.Before(now)
}

// DaysBetween returns ceil((to - from) / 24h).
func DaysBetween(from, to time.Time) int {
	return int(math.Ceil(to.Sub(from).Hours() / 24))
}

// UsageKey addresses one usage counter row.
type UsageKey struct {
	OrganizationID uuid.UUID
	Feature        FeatureCode
	Period         Period
	Start          time.Time
	End            time.Time
}

// Usage is a per-period usage counter.
type Usage struct {
	OrganizationID uuid.UUID   `json:"organization_id"`
	Feature        FeatureCode `json:"feature_code"`
	Period         Period      `json:"usage_period"`
	PeriodStart    time.Time   `json:"period_start"`
	PeriodEnd      time.Time   `json:"period_end"`
	Count          int64       `json:"usage_count"`
	ResetDate      *time.Time  `json:"reset_date,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// HistoryEntry is an append-only record of a tier transition.
type HistoryEntry struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"organization_id"`
	License        LicenseCode   `json:"license_code"`
	Action         HistoryAction `json:"action"`
	BillingCycle   *BillingCycle `json:"billing_cycle,omitempty"`
	AmountPaid     int64         `json:"amount_paid"`
	Currency       string        `json:"currency,omitempty"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	PeriodStart    *time.Time    `json:"start_date,omitempty"`
	PeriodEnd      *time.Time    `json:"end_date,omitempty"`
	CreatedBy      string        `json:"created_by,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
