package entitlement

import (
	"time"

	"github.com/google/uuid"
)

// Lifetime window bounds.
var (
	LifetimeStart = time.Unix(0, 0).UTC()
	LifetimeEnd   = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// Window is a half-open usage counting interval [Start, End).
type Window struct {
	Period Period
	Start  time.Time
	End    time.Time
}

// PeriodWindow returns the calendar-aligned window containing now.
// Boundaries are computed in now's location.
func PeriodWindow(p Period, now time.Time) (Window, error) {
	loc := now.Location()
	y, m, d := now.Date()

	var start, end time.Time
	switch p {
	case PeriodDay:
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 1)
	case PeriodMonth:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	case PeriodYear:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(1, 0, 0)
	case PeriodLifetime:
		start, end = LifetimeStart, LifetimeEnd
	default:
		return Window{}, ErrInvalidPeriod
	}
	return Window{Period: p, Start: start, End: end}, nil
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ResetDate is when the counter starts over, or nil for lifetime limits.
func (w Window) ResetDate() *time.Time {
	if w.Period == PeriodLifetime {
		return nil
	}
	end := w.End
	return &end
}

// Key builds the usage row key for an organization feature in this window.
func (w Window) Key(orgID uuid.UUID, feature FeatureCode) UsageKey {
	return UsageKey{OrganizationID: orgID, Feature: feature, Period: w.Period, Start: w.Start, End: w.End}
}
