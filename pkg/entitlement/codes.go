package entitlement

import (
	"fmt"
	"strings"
)

// LicenseCode identifies a license tier.
type LicenseCode string

const (
	LicenseExplore  LicenseCode = "EXPLORE"
	LicensePlan     LicenseCode = "PLAN"
	LicenseExecute  LicenseCode = "EXECUTE"
	LicenseOptimize LicenseCode = "OPTIMIZE"
	// LicenseExpired is the tier an organization lands on when its trial or
	// paid term lapses. It is never offered as a plan.
	LicenseExpired LicenseCode = "EXPIRED"
)

// TrialLicense is the tier assigned to every new organization.
const TrialLicense = LicenseExplore

var licenseCodes = []LicenseCode{LicenseExplore, LicensePlan, LicenseExecute, LicenseOptimize, LicenseExpired}

// ParseLicenseCode validates s against the known license tiers.
// Matching is case-insensitive.
func ParseLicenseCode(s string) (LicenseCode, error) {
	c := LicenseCode(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range licenseCodes {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLicense, s)
}

func (c LicenseCode) String() string { return string(c) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *LicenseCode) UnmarshalText(b []byte) error {
	v, err := ParseLicenseCode(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// FeatureCode identifies a gated capability.
type FeatureCode string

const (
	FeatureTaskBasic      FeatureCode = "TASK_BASIC"
	FeatureTaskSub        FeatureCode = "TASK_SUB"
	FeatureTaskRecurring  FeatureCode = "TASK_RECURRING"
	FeatureTaskApproval   FeatureCode = "TASK_APPROVAL"
	FeatureFormCreate     FeatureCode = "FORM_CREATE"
	FeatureReportGenerate FeatureCode = "REPORT_GENERATE"
	FeatureAPICalls       FeatureCode = "API_CALLS"
	FeatureKanbanView     FeatureCode = "KANBAN_VIEW"
	FeatureTeamMembers    FeatureCode = "TEAM_MEMBERS"
)

var featureCodes = []FeatureCode{
	FeatureTaskBasic,
	FeatureTaskSub,
	FeatureTaskRecurring,
	FeatureTaskApproval,
	FeatureFormCreate,
	FeatureReportGenerate,
	FeatureAPICalls,
	FeatureKanbanView,
	FeatureTeamMembers,
}

// FeatureCodes returns every known feature code.
func FeatureCodes() []FeatureCode {
	out := make([]FeatureCode, len(featureCodes))
	copy(out, featureCodes)
	return out
}

// ParseFeatureCode validates s against the known feature codes.
func ParseFeatureCode(s string) (FeatureCode, error) {
	c := FeatureCode(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range featureCodes {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFeature, s)
}

func (c FeatureCode) String() string { return string(c) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *FeatureCode) UnmarshalText(b []byte) error {
	v, err := ParseFeatureCode(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Period is the window over which a feature limit is counted.
type Period string

const (
	PeriodDay      Period = "DAY"
	PeriodMonth    Period = "MONTH"
	PeriodYear     Period = "YEAR"
	PeriodLifetime Period = "LIFETIME"
)

// ParsePeriod validates s against the supported periods.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PeriodDay, PeriodMonth, PeriodYear, PeriodLifetime:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

func (p Period) String() string { return string(p) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(b []byte) error {
	v, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// SubscriptionStatus is the lifecycle state of an organization's subscription.
type SubscriptionStatus string

const (
	StatusTrial     SubscriptionStatus = "trial"
	StatusActive    SubscriptionStatus = "active"
	StatusExpired   SubscriptionStatus = "expired"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusSuspended SubscriptionStatus = "suspended"
)

// Statuses returns every subscription status.
func Statuses() []SubscriptionStatus {
	return []SubscriptionStatus{StatusTrial, StatusActive, StatusExpired, StatusCancelled, StatusSuspended}
}

// ParseStatus validates s against the known statuses.
func ParseStatus(s string) (SubscriptionStatus, error) {
	st := SubscriptionStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Statuses() {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown subscription status %q", ErrInvalidArgument, s)
}

// Inactive reports whether the status blocks every feature regardless of tier.
func (s SubscriptionStatus) Inactive() bool {
	return s == StatusCancelled || s == StatusSuspended
}

// BillingCycle is the renewal cadence of a paid subscription.
type BillingCycle string

const (
	BillingMonthly BillingCycle = "MONTHLY"
	BillingYearly  BillingCycle = "YEARLY"
)

// ParseBillingCycle validates s against the supported cycles.
func ParseBillingCycle(s string) (BillingCycle, error) {
	c := BillingCycle(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case BillingMonthly, BillingYearly:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBillingCycle, s)
}

func (c BillingCycle) String() string { return string(c) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *BillingCycle) UnmarshalText(b []byte) error {
	v, err := ParseBillingCycle(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// HistoryAction labels a subscription history entry.
type HistoryAction string

const (
	ActionTrialStarted  HistoryAction = "TRIAL_STARTED"
	ActionTrialExtended HistoryAction = "TRIAL_EXTENDED"
	ActionUpgraded      HistoryAction = "UPGRADED"
	ActionRenewed       HistoryAction = "RENEWED"
	ActionExpired       HistoryAction = "EXPIRED"
)

// PaymentStatus records the settlement state reported by the billing collaborator.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentPending   PaymentStatus = "pending"
	PaymentNone      PaymentStatus = "none"
)
