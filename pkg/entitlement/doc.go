// Package entitlement defines the data model of the feature-entitlement engine:
// license tiers, the feature catalog, tier-to-feature grants with optional
// usage limits, organizations and their subscription state, per-period usage
// counters and the subscription history.
//
// It also defines the persistence contract (Store) used by the subscription
// and trial services, an in-memory implementation for development and tests,
// and the built-in YAML catalog.
//
// # Usage windows
//
// Limits are counted in calendar-aligned windows computed by PeriodWindow:
//
//	w, err := entitlement.PeriodWindow(entitlement.PeriodMonth, now)
//	// w.Start is the 1st of the month at midnight, w.End the 1st of the next month.
//
// Every read and increment of a usage counter goes through this function,
// so a counter written for a window is always found again by a check inside
// the same window.
//
// # Errors
//
// Errors match one of the kind sentinels with errors.Is: ErrNotFound,
// ErrInvalidArgument, ErrAccessDenied, ErrLimitExceeded and ErrPaymentRequired.
package entitlement
