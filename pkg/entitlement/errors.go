package entitlement

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. Every error returned by this module matches exactly one of
// them with errors.Is; transport layers map kinds to status codes.
var (
	ErrNotFound        = errors.New("entitlement: not found")
	ErrInvalidArgument = errors.New("entitlement: invalid argument")
	ErrAccessDenied    = errors.New("entitlement: access denied")
	ErrLimitExceeded   = errors.New("entitlement: limit exceeded")
	ErrPaymentRequired = errors.New("entitlement: payment required")
)

var (
	ErrOrganizationNotFound  = fmt.Errorf("%w: organization", ErrNotFound)
	ErrLicenseNotFound       = fmt.Errorf("%w: license", ErrNotFound)
	ErrFeatureNotFound       = fmt.Errorf("%w: feature", ErrNotFound)
	ErrUnknownLicense        = fmt.Errorf("%w: unknown license code", ErrInvalidArgument)
	ErrUnknownFeature        = fmt.Errorf("%w: unknown feature code", ErrInvalidArgument)
	ErrInvalidPeriod         = fmt.Errorf("%w: invalid limit period", ErrInvalidArgument)
	ErrInvalidBillingCycle   = fmt.Errorf("%w: invalid billing cycle", ErrInvalidArgument)
	ErrMissingOrganizationID = fmt.Errorf("%w: organization id is required", ErrInvalidArgument)
	ErrInvalidAmount         = fmt.Errorf("%w: increment must be positive", ErrInvalidArgument)
	ErrNotOnTrial            = fmt.Errorf("%w: organization is not on trial", ErrInvalidArgument)
	ErrOrganizationExists    = fmt.Errorf("%w: organization already exists", ErrInvalidArgument)
	ErrInvalidCatalog        = errors.New("entitlement: invalid catalog")
)

// AccessError is returned when a feature is not available to an organization.
type AccessError struct {
	Feature FeatureCode
	License LicenseCode
	Reason  Reason
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("feature %s not available on %s: %s", e.Feature, e.License, e.Reason)
}

func (e *AccessError) Unwrap() error { return ErrAccessDenied }

// LimitError is returned when an organization has used up a feature's allowance
// for the current period.
type LimitError struct {
	Feature   FeatureCode
	Usage     int64
	Limit     int64
	Period    Period
	ResetDate *time.Time
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("feature %s limit reached: %d of %d per %s", e.Feature, e.Usage, e.Limit, e.Period)
}

func (e *LimitError) Unwrap() error { return ErrLimitExceeded }
