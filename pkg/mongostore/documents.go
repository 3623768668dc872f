package mongostore

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
)

type licenseDoc struct {
	Code         string `bson:"_id"`
	Name         string `bson:"name"`
	Description  string `bson:"description,omitempty"`
	MonthlyPrice int64  `bson:"monthly_price"`
	YearlyPrice  int64  `bson:"yearly_price"`
	Currency     string `bson:"currency"`
	Active       bool   `bson:"is_active"`
}

func newLicenseDoc(l entitlement.License) licenseDoc {
	return licenseDoc{
		Code:         string(l.Code),
		Name:         l.Name,
		Description:  l.Description,
		MonthlyPrice: l.MonthlyPrice,
		YearlyPrice:  l.YearlyPrice,
		Currency:     l.Currency,
		Active:       l.Active,
	}
}

func (d licenseDoc) model() entitlement.License {
	return entitlement.License{
		Code:         entitlement.LicenseCode(d.Code),
		Name:         d.Name,
		Description:  d.Description,
		MonthlyPrice: d.MonthlyPrice,
		YearlyPrice:  d.YearlyPrice,
		Currency:     d.Currency,
		Active:       d.Active,
	}
}

type featureDoc struct {
	Code        string `bson:"_id"`
	Name        string `bson:"name"`
	Description string `bson:"description,omitempty"`
	Category    string `bson:"category"`
	Active      bool   `bson:"is_active"`
}

func newFeatureDoc(f entitlement.Feature) featureDoc {
	return featureDoc{
		Code:        string(f.Code),
		Name:        f.Name,
		Description: f.Description,
		Category:    f.Category,
		Active:      f.Active,
	}
}

func (d featureDoc) model() entitlement.Feature {
	return entitlement.Feature{
		Code:        entitlement.FeatureCode(d.Code),
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Active:      d.Active,
	}
}

type grantDoc struct {
	License     string  `bson:"license_code"`
	Feature     string  `bson:"feature_code"`
	Enabled     bool    `bson:"is_enabled"`
	LimitValue  *int64  `bson:"limit_value"`
	LimitPeriod *string `bson:"limit_period"`
}

func newGrantDoc(g entitlement.LicenseFeature) grantDoc {
	d := grantDoc{
		License:    string(g.License),
		Feature:    string(g.Feature),
		Enabled:    g.Enabled,
		LimitValue: g.LimitValue,
	}
	if g.LimitPeriod != nil {
		p := string(*g.LimitPeriod)
		d.LimitPeriod = &p
	}
	return d
}

func (d grantDoc) model() (entitlement.LicenseFeature, error) {
	lf := entitlement.LicenseFeature{
		License:    entitlement.LicenseCode(d.License),
		Feature:    entitlement.FeatureCode(d.Feature),
		Enabled:    d.Enabled,
		LimitValue: d.LimitValue,
	}
	if d.LimitPeriod != nil {
		p, err := entitlement.ParsePeriod(*d.LimitPeriod)
		if err != nil {
			return lf, fmt.Errorf("grant %s/%s: %w", d.License, d.Feature, err)
		}
		lf.LimitPeriod = &p
	}
	return lf, nil
}

type organizationDoc struct {
	ID                string     `bson:"_id"`
	Name              string     `bson:"name"`
	ContactEmail      string     `bson:"contact_email,omitempty"`
	License           string     `bson:"license_code"`
	Status            string     `bson:"subscription_status"`
	TrialEndDate      *time.Time `bson:"trial_end_date"`
	SubscriptionStart *time.Time `bson:"subscription_start_date"`
	SubscriptionEnd   *time.Time `bson:"subscription_end_date"`
	BillingCycle      *string    `bson:"billing_cycle"`
	AutoRenew         bool       `bson:"auto_renew"`
	CreatedAt         time.Time  `bson:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at"`
}

func newOrganizationDoc(o *entitlement.Organization) organizationDoc {
	d := organizationDoc{
		ID:                o.ID.String(),
		Name:              o.Name,
		ContactEmail:      o.ContactEmail,
		License:           string(o.License),
		Status:            string(o.Status),
		TrialEndDate:      o.TrialEndDate,
		SubscriptionStart: o.SubscriptionStart,
		SubscriptionEnd:   o.SubscriptionEnd,
		AutoRenew:         o.AutoRenew,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	if o.BillingCycle != nil {
		c := string(*o.BillingCycle)
		d.BillingCycle = &c
	}
	return d
}

func (d organizationDoc) model() (*entitlement.Organization, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("organization id %q: %w", d.ID, err)
	}
	o := &entitlement.Organization{
		ID:                id,
		Name:              d.Name,
		ContactEmail:      d.ContactEmail,
		License:           entitlement.LicenseCode(d.License),
		Status:            entitlement.SubscriptionStatus(d.Status),
		TrialEndDate:      d.TrialEndDate,
		SubscriptionStart: d.SubscriptionStart,
		SubscriptionEnd:   d.SubscriptionEnd,
		AutoRenew:         d.AutoRenew,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	if d.BillingCycle != nil {
		c := entitlement.BillingCycle(*d.BillingCycle)
		o.BillingCycle = &c
	}
	return o, nil
}

type usageDoc struct {
	OrganizationID string     `bson:"organization_id"`
	Feature        string     `bson:"feature_code"`
	Period         string     `bson:"usage_period"`
	PeriodStart    time.Time  `bson:"period_start"`
	PeriodEnd      time.Time  `bson:"period_end"`
	Count          int64      `bson:"usage_count"`
	ResetDate      *time.Time `bson:"reset_date"`
	CreatedAt      time.Time  `bson:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
}

func (d usageDoc) model() (*entitlement.Usage, error) {
	id, err := uuid.Parse(d.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("usage organization id %q: %w", d.OrganizationID, err)
	}
	return &entitlement.Usage{
		OrganizationID: id,
		Feature:        entitlement.FeatureCode(d.Feature),
		Period:         entitlement.Period(d.Period),
		PeriodStart:    d.PeriodStart,
		PeriodEnd:      d.PeriodEnd,
		Count:          d.Count,
		ResetDate:      d.ResetDate,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}, nil
}

type historyDoc struct {
	ID             string     `bson:"_id"`
	OrganizationID string     `bson:"organization_id"`
	License        string     `bson:"license_code"`
	Action         string     `bson:"action"`
	BillingCycle   *string    `bson:"billing_cycle"`
	AmountPaid     int64      `bson:"amount_paid"`
	Currency       string     `bson:"currency,omitempty"`
	PaymentStatus  string     `bson:"payment_status"`
	PeriodStart    *time.Time `bson:"start_date"`
	PeriodEnd      *time.Time `bson:"end_date"`
	CreatedBy      string     `bson:"created_by,omitempty"`
	Notes          string     `bson:"notes,omitempty"`
	CreatedAt      time.Time  `bson:"created_at"`
}

func newHistoryDoc(e *entitlement.HistoryEntry) historyDoc {
	d := historyDoc{
		ID:             e.ID.String(),
		OrganizationID: e.OrganizationID.String(),
		License:        string(e.License),
		Action:         string(e.Action),
		AmountPaid:     e.AmountPaid,
		Currency:       e.Currency,
		PaymentStatus:  string(e.PaymentStatus),
		PeriodStart:    e.PeriodStart,
		PeriodEnd:      e.PeriodEnd,
		CreatedBy:      e.CreatedBy,
		Notes:          e.Notes,
		CreatedAt:      e.CreatedAt,
	}
	if e.BillingCycle != nil {
		c := string(*e.BillingCycle)
		d.BillingCycle = &c
	}
	return d
}

func (d historyDoc) model() (entitlement.HistoryEntry, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return entitlement.HistoryEntry{}, fmt.Errorf("history id %q: %w", d.ID, err)
	}
	orgID, err := uuid.Parse(d.OrganizationID)
	if err != nil {
		return entitlement.HistoryEntry{}, fmt.Errorf("history organization id %q: %w", d.OrganizationID, err)
	}
	e := entitlement.HistoryEntry{
		ID:             id,
		OrganizationID: orgID,
		License:        entitlement.LicenseCode(d.License),
		Action:         entitlement.HistoryAction(d.Action),
		AmountPaid:     d.AmountPaid,
		Currency:       d.Currency,
		PaymentStatus:  entitlement.PaymentStatus(d.PaymentStatus),
		PeriodStart:    d.PeriodStart,
		PeriodEnd:      d.PeriodEnd,
		CreatedBy:      d.CreatedBy,
		Notes:          d.Notes,
		CreatedAt:      d.CreatedAt,
	}
	if d.BillingCycle != nil {
		c := entitlement.BillingCycle(*d.BillingCycle)
		e.BillingCycle = &c
	}
	return e, nil
}
