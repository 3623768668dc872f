package trial

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/techizeBuilder/admin-task-manager/pkg/email"
	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
	"github.com/techizeBuilder/admin-task-manager/pkg/logger"
)

const (
	// DefaultExtensionDays is used by Extend when no day count is given.
	DefaultExtensionDays = 15
	// DefaultNoticeDays is used by ExpiryNotifications when no window is given.
	DefaultNoticeDays = 3
	// expiringSoonDays bounds the ExpiringSoon statistic.
	expiringSoonDays = 3
)

// Service manages the free trial lifecycle of organizations.
type Service interface {
	StartTrial(ctx context.Context, params StartParams) (*entitlement.Organization, error)
	CheckStatus(ctx context.Context, orgID uuid.UUID) (*Status, error)
	DowngradeExpired(ctx context.Context, orgID uuid.UUID) (*DowngradeResult, error)
	ProcessExpired(ctx context.Context) (*SweepReport, error)
	Statistics(ctx context.Context) (*Statistics, error)
	ExpiryNotifications(ctx context.Context, daysBefore int) ([]Notice, error)
	Extend(ctx context.Context, orgID uuid.UUID, additionalDays int) (*entitlement.Organization, error)
}

type service struct {
	store         entitlement.Store
	now           func() time.Time
	logger        *slog.Logger
	trialDuration time.Duration
}

// NewService creates a trial Service backed by store.
// Panics if store is nil.
func NewService(store entitlement.Store, opts ...Option) Service {
	if store == nil {
		panic("trial: store is required")
	}
	s := &service{
		store:         store,
		now:           time.Now,
		logger:        slog.New(slog.DiscardHandler),
		trialDuration: entitlement.TrialDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartTrial creates an organization on the trial tier and records the start.
func (s *service) StartTrial(ctx context.Context, params StartParams) (*entitlement.Organization, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrMissingName
	}
	contact := strings.TrimSpace(params.ContactEmail)
	if contact != "" && !email.ValidAddress(contact) {
		return nil, ErrInvalidEmail
	}

	now := s.now()
	org := entitlement.NewTrialOrganization(name, now)
	end := now.Add(s.trialDuration)
	org.TrialEndDate = &end
	org.ContactEmail = contact

	if err := s.store.CreateOrganization(ctx, org); err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	if err := s.store.AppendHistory(ctx, &entitlement.HistoryEntry{
		ID:             uuid.New(),
		OrganizationID: org.ID,
		License:        org.License,
		Action:         entitlement.ActionTrialStarted,
		PaymentStatus:  entitlement.PaymentNone,
		PeriodStart:    &now,
		PeriodEnd:      &end,
		CreatedBy:      entitlement.SystemActor,
		Notes:          "trial started",
		CreatedAt:      now,
	}); err != nil {
		return nil, fmt.Errorf("record trial start: %w", err)
	}

	s.logger.InfoContext(ctx, "trial started",
		logger.Component("trial"),
		logger.OrganizationID(org.ID),
		slog.Time("trial_end_date", end),
	)
	return org, nil
}

// CheckStatus reports where the organization is in its trial. It never
// writes.
func (s *service) CheckStatus(ctx context.Context, orgID uuid.UUID) (*Status, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return statusOf(org, s.now()), nil
}

func statusOf(org *entitlement.Organization, now time.Time) *Status {
	st := &Status{
		OrganizationID: org.ID,
		License:        org.License,
		Status:         org.Status,
		TrialEndDate:   org.TrialEndDate,
	}
	st.IsTrialActive = org.Status == entitlement.StatusTrial
	if org.TrialEndDate != nil {
		st.IsTrialExpired = now.After(*org.TrialEndDate)
		st.DaysRemaining = entitlement.DaysBetween(now, *org.TrialEndDate)
	}
	st.RequiresDowngrade = st.IsTrialActive && st.IsTrialExpired
	return st
}

// DowngradeExpired moves a lapsed trial to the expired tier. Organizations
// that are not eligible, or that another caller already downgraded, are
// reported with Success false.
func (s *service) DowngradeExpired(ctx context.Context, orgID uuid.UUID) (*DowngradeResult, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	res := &DowngradeResult{
		OrganizationID: orgID,
		Before:         State{License: org.License, Status: org.Status},
	}
	if !statusOf(org, now).RequiresDowngrade {
		res.Message = "organization does not require downgrade"
		return res, nil
	}

	expired, changed, err := entitlement.Expire(ctx, s.store, orgID, now, entitlement.SystemActor, "trial expired")
	if err != nil {
		return nil, fmt.Errorf("expire trial: %w", err)
	}
	if !changed {
		res.Message = "organization was already downgraded"
		return res, nil
	}

	res.Success = true
	res.Message = "trial expired, organization downgraded"
	res.After = &State{License: expired.License, Status: expired.Status}

	s.logger.InfoContext(ctx, "trial downgraded",
		logger.Component("trial"),
		logger.OrganizationID(orgID),
		logger.LicenseCode(res.Before.License),
	)
	return res, nil
}

// ProcessExpired downgrades every trialing organization whose trial end date
// has passed. A failure on one organization is recorded and does not stop the
// sweep; only a cancelled context does.
func (s *service) ProcessExpired(ctx context.Context) (*SweepReport, error) {
	started := time.Now()
	now := s.now()
	status := entitlement.StatusTrial
	orgs, err := s.store.ListOrganizations(ctx, entitlement.OrganizationFilter{
		Status:         &status,
		TrialEndBefore: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("list lapsed trials: %w", err)
	}

	report := &SweepReport{
		Total:      len(orgs),
		Errors:     []SweepError{},
		Downgraded: []uuid.UUID{},
		StartedAt:  now,
	}
	for _, org := range orgs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := s.DowngradeExpired(ctx, org.ID)
		if err != nil {
			report.Errors = append(report.Errors, SweepError{OrganizationID: org.ID, Error: err.Error()})
			s.logger.ErrorContext(ctx, "trial downgrade failed",
				logger.Component("trial"),
				logger.OrganizationID(org.ID),
				logger.Error(err),
			)
			continue
		}
		report.Processed++
		if res.Success {
			report.Downgraded = append(report.Downgraded, org.ID)
		}
	}

	s.logger.InfoContext(ctx, "expired trials processed",
		logger.Component("trial"),
		logger.Event("trial_sweep"),
		slog.Int("total", report.Total),
		slog.Int("downgraded", len(report.Downgraded)),
		slog.Int("errors", len(report.Errors)),
		logger.Duration(time.Since(started)),
	)
	return report, nil
}

// Statistics counts organizations by status and the trials ending within
// the next three days.
func (s *service) Statistics(ctx context.Context) (*Statistics, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count organizations: %w", err)
	}

	now := s.now()
	soon, err := s.trialsEndingBetween(ctx, now, now.AddDate(0, 0, expiringSoonDays))
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		ByStatus:     make(map[entitlement.SubscriptionStatus]int64, len(entitlement.Statuses())),
		ExpiringSoon: int64(len(soon)),
		GeneratedAt:  now,
	}
	for _, st := range entitlement.Statuses() {
		stats.ByStatus[st] = counts[st]
		stats.Total += counts[st]
	}
	stats.ActiveTrials = counts[entitlement.StatusTrial]
	return stats, nil
}

// ExpiryNotifications lists the trials ending within daysBefore days,
// soonest first. A non-positive daysBefore uses DefaultNoticeDays.
func (s *service) ExpiryNotifications(ctx context.Context, daysBefore int) ([]Notice, error) {
	if daysBefore <= 0 {
		daysBefore = DefaultNoticeDays
	}

	now := s.now()
	orgs, err := s.trialsEndingBetween(ctx, now, now.AddDate(0, 0, daysBefore))
	if err != nil {
		return nil, err
	}

	notices := make([]Notice, 0, len(orgs))
	for _, org := range orgs {
		days := entitlement.DaysBetween(now, *org.TrialEndDate)
		notices = append(notices, Notice{
			OrganizationID:   org.ID,
			OrganizationName: org.Name,
			ContactEmail:     org.ContactEmail,
			TrialEndDate:     *org.TrialEndDate,
			DaysRemaining:    days,
			Urgency:          UrgencyFor(days),
		})
	}
	slices.SortFunc(notices, func(a, b Notice) int {
		return a.TrialEndDate.Compare(b.TrialEndDate)
	})
	return notices, nil
}

// Extend pushes the trial end date back by additionalDays, counted from the
// current end date or from now when none is set. Zero uses
// DefaultExtensionDays.
func (s *service) Extend(ctx context.Context, orgID uuid.UUID, additionalDays int) (*entitlement.Organization, error) {
	if additionalDays == 0 {
		additionalDays = DefaultExtensionDays
	}
	if additionalDays < 0 {
		return nil, ErrInvalidExtension
	}

	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org.Status != entitlement.StatusTrial {
		return nil, entitlement.ErrNotOnTrial
	}

	now := s.now()
	base := now
	if org.TrialEndDate != nil {
		base = *org.TrialEndDate
	}
	end := base.AddDate(0, 0, additionalDays)

	updated, err := s.store.ExtendTrial(ctx, orgID, end, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendHistory(ctx, &entitlement.HistoryEntry{
		ID:             uuid.New(),
		OrganizationID: orgID,
		License:        updated.License,
		Action:         entitlement.ActionTrialExtended,
		PaymentStatus:  entitlement.PaymentNone,
		PeriodStart:    &base,
		PeriodEnd:      &end,
		CreatedBy:      entitlement.SystemActor,
		Notes:          fmt.Sprintf("trial extended by %d days", additionalDays),
		CreatedAt:      now,
	}); err != nil {
		return nil, fmt.Errorf("record trial extension: %w", err)
	}

	s.logger.InfoContext(ctx, "trial extended",
		logger.Component("trial"),
		logger.OrganizationID(orgID),
		slog.Int("days", additionalDays),
		slog.Time("trial_end_date", end),
	)
	return updated, nil
}

// trialsEndingBetween lists trials ending in [from, through].
func (s *service) trialsEndingBetween(ctx context.Context, from, through time.Time) ([]entitlement.Organization, error) {
	status := entitlement.StatusTrial
	orgs, err := s.store.ListOrganizations(ctx, entitlement.OrganizationFilter{
		Status:          &status,
		TrialEndFrom:    &from,
		TrialEndThrough: &through,
	})
	if err != nil {
		return nil, fmt.Errorf("list trials: %w", err)
	}
	return slices.DeleteFunc(orgs, func(o entitlement.Organization) bool { return o.TrialEndDate == nil }), nil
}
