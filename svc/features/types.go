package features

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
	"github.com/techizeBuilder/admin-task-manager/pkg/trial"
)

// FeatureStatus is one catalog feature as seen by an organization.
type FeatureStatus struct {
	Code            entitlement.FeatureCode  `json:"code"`
	Name            string                   `json:"name"`
	Description     string                   `json:"description,omitempty"`
	Category        string                   `json:"category"`
	HasAccess       bool                     `json:"has_access"`
	IsUnlimited     bool                     `json:"is_unlimited"`
	Usage           int64                    `json:"usage"`
	Limit           *int64                   `json:"limit"`
	Period          *entitlement.Period      `json:"period,omitempty"`
	IsOverLimit     bool                     `json:"is_over_limit"`
	UpgradeRequired bool                     `json:"upgrade_required"`
	CheapestLicense *entitlement.LicenseCode `json:"cheapest_license,omitempty"`
}

// Overview lists every active feature grouped by category.
type Overview struct {
	OrganizationID uuid.UUID                      `json:"organization_id"`
	License        entitlement.LicenseCode        `json:"license_code"`
	Status         entitlement.SubscriptionStatus `json:"subscription_status"`
	Trial          *trial.Status                  `json:"trial"`
	Categories     map[string][]FeatureStatus     `json:"categories"`
}

// SuggestionType classifies an upgrade suggestion.
type SuggestionType string

const (
	SuggestionLocked         SuggestionType = "feature_locked"
	SuggestionApproachingCap SuggestionType = "approaching_limit"
)

// Suggestion recommends a tier change for one feature.
type Suggestion struct {
	Type               SuggestionType           `json:"type"`
	Feature            entitlement.FeatureCode  `json:"feature_code"`
	FeatureName        string                   `json:"feature_name"`
	Message            string                   `json:"message"`
	Usage              int64                    `json:"usage,omitempty"`
	Limit              *int64                   `json:"limit,omitempty"`
	UsagePercent       float64                  `json:"usage_percent,omitempty"`
	RecommendedLicense *entitlement.LicenseCode `json:"recommended_license,omitempty"`
}

// TaskOptions selects the task features a CreateTask call exercises.
// TASK_BASIC is always exercised.
type TaskOptions struct {
	Subtask          bool `json:"is_subtask"`
	Recurring        bool `json:"is_recurring"`
	RequiresApproval bool `json:"requires_approval"`
}

// Operation is the work guarded by a feature check. Its result is returned
// as OperationResult.Data.
type Operation func(ctx context.Context) (any, error)

// OperationResult reports a guarded operation. A blocked operation has
// Success false and Error set to the rejection key; op did not run.
type OperationResult struct {
	Success         bool                              `json:"success"`
	Data            any                               `json:"data,omitempty"`
	Error           string                            `json:"error,omitempty"`
	Message         string                            `json:"message,omitempty"`
	UpgradeRequired bool                              `json:"upgrade_required"`
	Feature         entitlement.FeatureCode           `json:"feature_code,omitempty"`
	Usage           int64                             `json:"usage,omitempty"`
	Limit           *int64                            `json:"limit,omitempty"`
	ResetDate       *time.Time                        `json:"reset_date,omitempty"`
	Tracked         map[entitlement.FeatureCode]int64 `json:"tracked,omitempty"`
}

// Rejection keys reported in OperationResult.Error.
const (
	ErrorUpgradeRequired = "upgrade_required"
	ErrorLimitExceeded   = "limit_exceeded"
)
