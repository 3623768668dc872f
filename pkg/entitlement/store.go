package entitlement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlanStore reads the license and feature reference data.
type PlanStore interface {
	ListLicenses(ctx context.Context) ([]License, error)
	// GetLicense returns ErrLicenseNotFound for unknown codes.
	GetLicense(ctx context.Context, code LicenseCode) (*License, error)
	ListFeatures(ctx context.Context) ([]Feature, error)
	ListLicenseFeatures(ctx context.Context, code LicenseCode) ([]LicenseFeature, error)
	// GetLicenseFeature returns ErrFeatureNotFound when the pair has no row.
	GetLicenseFeature(ctx context.Context, code LicenseCode, feature FeatureCode) (*LicenseFeature, error)
}

// SubscriptionChange describes a paid tier activation.
type SubscriptionChange struct {
	License      LicenseCode
	Status       SubscriptionStatus
	Start        time.Time
	End          time.Time
	BillingCycle BillingCycle
	AutoRenew    bool
}

// OrganizationFilter narrows ListOrganizations. Nil fields match everything.
type OrganizationFilter struct {
	Status *SubscriptionStatus
	// TrialEndFrom matches trial_end_date >= TrialEndFrom.
	TrialEndFrom *time.Time
	// TrialEndBefore matches trial_end_date < TrialEndBefore.
	TrialEndBefore *time.Time
	// TrialEndThrough matches trial_end_date <= TrialEndThrough.
	TrialEndThrough *time.Time
}

// OrganizationStore persists organizations. Tier changes go through
// ApplySubscription and ExpireOrganization only.
type OrganizationStore interface {
	// CreateOrganization returns ErrOrganizationExists on id collision.
	CreateOrganization(ctx context.Context, org *Organization) error
	// GetOrganization returns ErrOrganizationNotFound for unknown ids.
	GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error)
	ListOrganizations(ctx context.Context, filter OrganizationFilter) ([]Organization, error)
	CountByStatus(ctx context.Context) (map[SubscriptionStatus]int64, error)

	ApplySubscription(ctx context.Context, id uuid.UUID, change SubscriptionChange, now time.Time) (*Organization, error)
	// ExpireOrganization moves a lapsed organization to the expired tier in a
	// single conditional write. An organization is lapsed when it is trialing
	// with trial_end_date < now, or active with subscription_end_date < now.
	// The flag reports whether this call performed the transition.
	ExpireOrganization(ctx context.Context, id uuid.UUID, now time.Time) (*Organization, bool, error)
	// ExtendTrial sets a new trial end date. It returns ErrNotOnTrial unless
	// the organization is trialing.
	ExtendTrial(ctx context.Context, id uuid.UUID, end time.Time, now time.Time) (*Organization, error)
}

// UsageStore persists per-period usage counters.
type UsageStore interface {
	// UsageCount returns 0 when no row exists for key.
	UsageCount(ctx context.Context, key UsageKey) (int64, error)
	// IncrementUsage atomically adds by to the row for key, creating it when
	// absent, and returns the row after the update.
	IncrementUsage(ctx context.Context, key UsageKey, by int64, resetDate *time.Time, now time.Time) (*Usage, error)
}

// HistoryStore persists the append-only subscription history.
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry *HistoryEntry) error
	// ListHistory returns entries newest first along with the total count.
	ListHistory(ctx context.Context, orgID uuid.UUID, offset, limit int) ([]HistoryEntry, int64, error)
}

// Store is the full persistence contract of the entitlement engine.
type Store interface {
	PlanStore
	OrganizationStore
	UsageStore
	HistoryStore
}

// Seeder loads reference data.
type Seeder interface {
	SeedCatalog(ctx context.Context, c *Catalog) error
}
