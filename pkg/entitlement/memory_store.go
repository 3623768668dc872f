package entitlement

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a Store kept in process memory. It is safe for concurrent
// use and is intended for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	licenses map[LicenseCode]License
	features map[FeatureCode]Feature
	grants   map[LicenseCode]map[FeatureCode]LicenseFeature
	orgs     map[uuid.UUID]*Organization
	usage    map[string]*Usage
	history  map[uuid.UUID][]HistoryEntry
}

// NewMemoryStore returns an empty store. Load reference data with SeedCatalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		licenses: make(map[LicenseCode]License),
		features: make(map[FeatureCode]Feature),
		grants:   make(map[LicenseCode]map[FeatureCode]LicenseFeature),
		orgs:     make(map[uuid.UUID]*Organization),
		usage:    make(map[string]*Usage),
		history:  make(map[uuid.UUID][]HistoryEntry),
	}
}

// SeedCatalog replaces all reference data with the catalog contents.
func (s *MemoryStore) SeedCatalog(_ context.Context, c *Catalog) error {
	if c == nil {
		return ErrInvalidCatalog
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.licenses = make(map[LicenseCode]License, len(c.Licenses))
	for _, l := range c.Licenses {
		s.licenses[l.Code] = l
	}
	s.features = make(map[FeatureCode]Feature, len(c.Features))
	for _, f := range c.Features {
		s.features[f.Code] = f
	}
	s.grants = make(map[LicenseCode]map[FeatureCode]LicenseFeature)
	for _, g := range c.Grants {
		if s.grants[g.License] == nil {
			s.grants[g.License] = make(map[FeatureCode]LicenseFeature)
		}
		s.grants[g.License][g.Feature] = cloneGrant(g)
	}
	return nil
}

func (s *MemoryStore) ListLicenses(_ context.Context) ([]License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]License, 0, len(s.licenses))
	for _, l := range s.licenses {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b License) int {
		return cmp.Or(cmp.Compare(a.MonthlyPrice, b.MonthlyPrice), cmp.Compare(a.Code, b.Code))
	})
	return out, nil
}

func (s *MemoryStore) GetLicense(_ context.Context, code LicenseCode) (*License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.licenses[code]
	if !ok {
		return nil, ErrLicenseNotFound
	}
	return &l, nil
}

func (s *MemoryStore) ListFeatures(_ context.Context) ([]Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Feature, 0, len(s.features))
	for _, f := range s.features {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b Feature) int {
		return cmp.Or(cmp.Compare(a.Category, b.Category), cmp.Compare(a.Code, b.Code))
	})
	return out, nil
}

func (s *MemoryStore) ListLicenseFeatures(_ context.Context, code LicenseCode) ([]LicenseFeature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]LicenseFeature, 0, len(s.grants[code]))
	for _, g := range s.grants[code] {
		out = append(out, cloneGrant(g))
	}
	slices.SortFunc(out, func(a, b LicenseFeature) int { return cmp.Compare(a.Feature, b.Feature) })
	return out, nil
}

func (s *MemoryStore) GetLicenseFeature(_ context.Context, code LicenseCode, feature FeatureCode) (*LicenseFeature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.grants[code][feature]
	if !ok {
		return nil, ErrFeatureNotFound
	}
	g = cloneGrant(g)
	return &g, nil
}

func (s *MemoryStore) CreateOrganization(_ context.Context, org *Organization) error {
	if org == nil || org.ID == uuid.Nil {
		return ErrMissingOrganizationID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orgs[org.ID]; exists {
		return ErrOrganizationExists
	}
	s.orgs[org.ID] = cloneOrg(org)
	return nil
}

func (s *MemoryStore) GetOrganization(_ context.Context, id uuid.UUID) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrOrganizationNotFound
	}
	return cloneOrg(org), nil
}

func (s *MemoryStore) ListOrganizations(_ context.Context, filter OrganizationFilter) ([]Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Organization, 0)
	for _, org := range s.orgs {
		if filter.Status != nil && org.Status != *filter.Status {
			continue
		}
		if filter.TrialEndFrom != nil || filter.TrialEndBefore != nil || filter.TrialEndThrough != nil {
			if org.TrialEndDate == nil {
				continue
			}
			if filter.TrialEndFrom != nil && org.TrialEndDate.Before(*filter.TrialEndFrom) {
				continue
			}
			if filter.TrialEndBefore != nil && !org.TrialEndDate.Before(*filter.TrialEndBefore) {
				continue
			}
			if filter.TrialEndThrough != nil && org.TrialEndDate.After(*filter.TrialEndThrough) {
				continue
			}
		}
		out = append(out, *cloneOrg(org))
	}
	slices.SortFunc(out, func(a, b Organization) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	return out, nil
}

func (s *MemoryStore) CountByStatus(_ context.Context) (map[SubscriptionStatus]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[SubscriptionStatus]int64)
	for _, org := range s.orgs {
		counts[org.Status]++
	}
	return counts, nil
}

func (s *MemoryStore) ApplySubscription(_ context.Context, id uuid.UUID, change SubscriptionChange, now time.Time) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrOrganizationNotFound
	}
	start, end, cycle := change.Start, change.End, change.BillingCycle
	org.License = change.License
	org.Status = change.Status
	org.SubscriptionStart = &start
	org.SubscriptionEnd = &end
	org.BillingCycle = &cycle
	org.AutoRenew = change.AutoRenew
	org.UpdatedAt = now
	return cloneOrg(org), nil
}

func (s *MemoryStore) ExpireOrganization(_ context.Context, id uuid.UUID, now time.Time) (*Organization, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, false, ErrOrganizationNotFound
	}
	if !org.TrialLapsed(now) && !org.TermLapsed(now) {
		return cloneOrg(org), false, nil
	}
	end := now
	org.License = LicenseExpired
	org.Status = StatusExpired
	org.SubscriptionEnd = &end
	org.UpdatedAt = now
	return cloneOrg(org), true, nil
}

func (s *MemoryStore) ExtendTrial(_ context.Context, id uuid.UUID, end time.Time, now time.Time) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrOrganizationNotFound
	}
	if org.Status != StatusTrial {
		return nil, ErrNotOnTrial
	}
	org.TrialEndDate = &end
	org.UpdatedAt = now
	return cloneOrg(org), nil
}

func (s *MemoryStore) UsageCount(_ context.Context, key UsageKey) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.usage[usageKeyString(key)]; ok {
		return u.Count, nil
	}
	return 0, nil
}

func (s *MemoryStore) IncrementUsage(_ context.Context, key UsageKey, by int64, resetDate *time.Time, now time.Time) (*Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := usageKeyString(key)
	u, ok := s.usage[k]
	if !ok {
		u = &Usage{
			OrganizationID: key.OrganizationID,
			Feature:        key.Feature,
			Period:         key.Period,
			PeriodStart:    key.Start,
			PeriodEnd:      key.End,
			ResetDate:      cloneTime(resetDate),
			CreatedAt:      now,
		}
		s.usage[k] = u
	}
	u.Count += by
	u.UpdatedAt = now

	cp := *u
	cp.ResetDate = cloneTime(u.ResetDate)
	return &cp, nil
}

func (s *MemoryStore) AppendHistory(_ context.Context, entry *HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: nil history entry", ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e := *entry
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	s.history[e.OrganizationID] = append(s.history[e.OrganizationID], e)
	return nil
}

func (s *MemoryStore) ListHistory(_ context.Context, orgID uuid.UUID, offset, limit int) ([]HistoryEntry, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.history[orgID]
	total := int64(len(all))

	// Append order is chronological; walk it backwards for newest first.
	out := make([]HistoryEntry, 0, max(0, min(limit, len(all)-offset)))
	for i := len(all) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, total, nil
}

func usageKeyString(k UsageKey) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", k.OrganizationID, k.Feature, k.Period, k.Start.Unix(), k.End.Unix())
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneGrant(g LicenseFeature) LicenseFeature {
	if g.LimitValue != nil {
		v := *g.LimitValue
		g.LimitValue = &v
	}
	if g.LimitPeriod != nil {
		p := *g.LimitPeriod
		g.LimitPeriod = &p
	}
	return g
}

func cloneOrg(o *Organization) *Organization {
	c := *o
	c.TrialEndDate = cloneTime(o.TrialEndDate)
	c.SubscriptionStart = cloneTime(o.SubscriptionStart)
	c.SubscriptionEnd = cloneTime(o.SubscriptionEnd)
	if o.BillingCycle != nil {
		bc := *o.BillingCycle
		c.BillingCycle = &bc
	}
	return &c
}
