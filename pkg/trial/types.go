package trial

import (
	"time"

	"github.com/google/uuid"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
)

// StartParams describes a new trialing organization.
type StartParams struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email,omitempty"`
}

// Status is the trial state of an organization at a point in time.
// DaysRemaining is negative once the trial end date has passed.
type Status struct {
	OrganizationID    uuid.UUID                      `json:"organization_id"`
	License           entitlement.LicenseCode        `json:"license_code"`
	Status            entitlement.SubscriptionStatus `json:"subscription_status"`
	IsTrialActive     bool                           `json:"is_trial_active"`
	IsTrialExpired    bool                           `json:"is_trial_expired"`
	DaysRemaining     int                            `json:"days_remaining"`
	RequiresDowngrade bool                           `json:"requires_downgrade"`
	TrialEndDate      *time.Time                     `json:"trial_end_date,omitempty"`
}

// State is the tier an organization is on.
type State struct {
	License entitlement.LicenseCode        `json:"license_code"`
	Status  entitlement.SubscriptionStatus `json:"subscription_status"`
}

// DowngradeResult reports a single downgrade attempt. After is nil when
// nothing changed.
type DowngradeResult struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	Before         State     `json:"before"`
	After          *State    `json:"after,omitempty"`
}

// SweepError records why one organization could not be processed.
type SweepError struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	Error          string    `json:"error"`
}

// SweepReport summarizes a ProcessExpired run. Processed counts the
// organizations handled without error, including lost races.
type SweepReport struct {
	Total      int          `json:"total"`
	Processed  int          `json:"processed"`
	Errors     []SweepError `json:"errors"`
	Downgraded []uuid.UUID  `json:"downgraded"`
	StartedAt  time.Time    `json:"started_at"`
}

// Statistics is a snapshot of organizations by subscription status.
type Statistics struct {
	Total        int64                                    `json:"total"`
	ByStatus     map[entitlement.SubscriptionStatus]int64 `json:"by_status"`
	ActiveTrials int64                                    `json:"active_trials"`
	ExpiringSoon int64                                    `json:"expiring_soon"`
	GeneratedAt  time.Time                                `json:"generated_at"`
}

// Urgency ranks an expiry notice.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// UrgencyFor maps the days left in a trial to a notice urgency.
func UrgencyFor(daysRemaining int) Urgency {
	switch {
	case daysRemaining <= 1:
		return UrgencyHigh
	case daysRemaining <= 3:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// Notice tells an organization that its trial is about to end.
type Notice struct {
	OrganizationID   uuid.UUID `json:"organization_id"`
	OrganizationName string    `json:"organization_name"`
	ContactEmail     string    `json:"contact_email,omitempty"`
	TrialEndDate     time.Time `json:"trial_end_date"`
	DaysRemaining    int       `json:"days_remaining"`
	Urgency          Urgency   `json:"urgency"`
}
