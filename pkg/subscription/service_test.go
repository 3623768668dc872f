package subscription_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
	"github.com/techizeBuilder/admin-task-manager/pkg/subscription"
)

// fixedClock is a mutable clock shared by a service and its test.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type mockPlanCache struct {
	mock.Mock
}

func (m *mockPlanCache) LoadPlans(ctx context.Context) ([]entitlement.Plan, bool, error) {
	args := m.Called(ctx)
	plans, _ := args.Get(0).([]entitlement.Plan)
	return plans, args.Bool(1), args.Error(2)
}

func (m *mockPlanCache) StorePlans(ctx context.Context, plans []entitlement.Plan) error {
	args := m.Called(ctx, plans)
	return args.Error(0)
}

func setup(t *testing.T, opts ...subscription.ServiceOption) (subscription.Service, *entitlement.MemoryStore, *fixedClock) {
	t.Helper()

	c, err := entitlement.DefaultCatalog()
	require.NoError(t, err)
	store := entitlement.NewMemoryStore()
	require.NoError(t, store.SeedCatalog(context.Background(), c))

	clock := &fixedClock{now: time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)}
	opts = append([]subscription.ServiceOption{subscription.WithClock(clock.Now)}, opts...)
	return subscription.NewService(store, opts...), store, clock
}

func createOrg(t *testing.T, store *entitlement.MemoryStore, signup time.Time) *entitlement.Organization {
	t.Helper()
	org := entitlement.NewTrialOrganization("acme", signup)
	require.NoError(t, store.CreateOrganization(context.Background(), org))
	return org
}

func TestNewService_PanicsWithoutStore(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { subscription.NewService(nil) })
}

func TestListPlans(t *testing.T) {
	t.Parallel()

	svc, _, _ := setup(t)
	plans, err := svc.ListPlans(context.Background())
	require.NoError(t, err)

	codes := make([]entitlement.LicenseCode, 0, len(plans))
	for _, p := range plans {
		codes = append(codes, p.Code)
		assert.True(t, p.Active)
		for _, f := range p.Features {
			assert.Equal(t, f.LimitValue == nil, f.IsUnlimited)
			assert.NotEmpty(t, f.Name)
		}
	}
	assert.Equal(t, []entitlement.LicenseCode{
		entitlement.LicenseExplore,
		entitlement.LicensePlan,
		entitlement.LicenseExecute,
		entitlement.LicenseOptimize,
	}, codes)
}

func TestListPlans_Cache(t *testing.T) {
	t.Parallel()

	t.Run("hit skips the store", func(t *testing.T) {
		t.Parallel()
		cached := []entitlement.Plan{{License: entitlement.License{Code: entitlement.LicensePlan}}}
		cache := &mockPlanCache{}
		cache.On("LoadPlans", mock.Anything).Return(cached, true, nil).Once()

		svc, _, _ := setup(t, subscription.WithPlanCache(cache))
		plans, err := svc.ListPlans(context.Background())
		require.NoError(t, err)
		assert.Equal(t, cached, plans)
		cache.AssertExpectations(t)
	})

	t.Run("miss populates the cache", func(t *testing.T) {
		t.Parallel()
		cache := &mockPlanCache{}
		cache.On("LoadPlans", mock.Anything).Return(nil, false, nil).Once()
		cache.On("StorePlans", mock.Anything, mock.MatchedBy(func(p []entitlement.Plan) bool { return len(p) == 4 })).Return(nil).Once()

		svc, _, _ := setup(t, subscription.WithPlanCache(cache))
		plans, err := svc.ListPlans(context.Background())
		require.NoError(t, err)
		assert.Len(t, plans, 4)
		cache.AssertExpectations(t)
	})

	t.Run("cache errors fall through", func(t *testing.T) {
		t.Parallel()
		cache := &mockPlanCache{}
		cache.On("LoadPlans", mock.Anything).Return(nil, false, errors.New("redis down")).Once()
		cache.On("StorePlans", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

		svc, _, _ := setup(t, subscription.WithPlanCache(cache))
		plans, err := svc.ListPlans(context.Background())
		require.NoError(t, err)
		assert.Len(t, plans, 4)
	})
}

func TestGetPlan(t *testing.T) {
	t.Parallel()

	svc, _, _ := setup(t)
	ctx := context.Background()

	plan, err := svc.GetPlan(ctx, entitlement.LicenseExecute)
	require.NoError(t, err)
	assert.Equal(t, entitlement.LicenseExecute, plan.Code)
	assert.NotEmpty(t, plan.Features)

	_, err = svc.GetPlan(ctx, entitlement.LicenseExpired)
	assert.ErrorIs(t, err, entitlement.ErrNotFound, "inactive tiers are not offered")

	_, err = svc.GetPlan(ctx, entitlement.LicenseCode("GOLD"))
	assert.ErrorIs(t, err, entitlement.ErrLicenseNotFound)
}

func TestHasFeatureAccess(t *testing.T) {
	t.Parallel()

	svc, store, clock := setup(t)
	ctx := context.Background()
	org := createOrg(t, store, clock.Now())

	t.Run("granted", func(t *testing.T) {
		access, err := svc.HasFeatureAccess(ctx, org.ID, entitlement.FeatureTaskBasic)
		require.NoError(t, err)
		assert.True(t, access.HasAccess)
		assert.Equal(t, entitlement.ReasonGranted, access.Reason)
		require.NotNil(t, access.LicenseFeature)
		assert.Equal(t, int64(50), *access.LicenseFeature.LimitValue)
		assert.False(t, access.Downgraded)
	})

	t.Run("absent mapping", func(t *testing.T) {
		access, err := svc.HasFeatureAccess(ctx, org.ID, entitlement.FeatureTaskApproval)
		require.NoError(t, err)
		assert.False(t, access.HasAccess)
		assert.Equal(t, entitlement.ReasonFeatureNotAvailable, access.Reason)
		assert.Nil(t, access.LicenseFeature)
	})

	t.Run("unknown organization", func(t *testing.T) {
		_, err := svc.HasFeatureAccess(ctx, uuid.New(), entitlement.FeatureTaskBasic)
		assert.ErrorIs(t, err, entitlement.ErrOrganizationNotFound)
		assert.ErrorIs(t, err, entitlement.ErrNotFound)
	})
}

func TestHasFeatureAccess_InactiveSubscription(t *testing.T) {
	t.Parallel()

	for _, status := range []entitlement.SubscriptionStatus{entitlement.StatusCancelled, entitlement.StatusSuspended} {
		t.Run(string(status), func(t *testing.T) {
			t.Parallel()
			svc, store, clock := setup(t)
			org := entitlement.NewTrialOrganization("acme", clock.Now())
			org.License = entitlement.LicenseOptimize
			org.Status = status
			require.NoError(t, store.CreateOrganization(context.Background(), org))

			access, err := svc.HasFeatureAccess(context.Background(), org.ID, entitlement.FeatureTaskBasic)
			require.NoError(t, err)
			assert.False(t, access.HasAccess)
			assert.Equal(t, entitlement.ReasonSubscriptionInactive, access.Reason)
		})
	}
}

func TestHasFeatureAccess_LazyExpiryIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, store, clock := setup(t)
	ctx := context.Background()
	now := clock.Now()
	org := createOrg(t, store, now.Add(-entitlement.TrialDuration).Add(-24*time.Hour))

	first, err := svc.HasFeatureAccess(ctx, org.ID, entitlement.FeatureTaskBasic)
	require.NoError(t, err)
	assert.True(t, first.Downgraded)
	assert.False(t, first.HasAccess)
	assert.Equal(t, entitlement.ReasonFeatureNotAvailable, first.Reason)

	afterFirst, err := store.GetOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.LicenseExpired, afterFirst.License)
	assert.Equal(t, entitlement.StatusExpired, afterFirst.Status)
	require.NotNil(t, afterFirst.SubscriptionEnd)
	assert.True(t, now.Equal(*afterFirst.SubscriptionEnd))

	clock.Set(now.Add(time.Hour))
	second, err := svc.HasFeatureAccess(ctx, org.ID, entitlement.FeatureTaskBasic)
	require.NoError(t, err)
	assert.False(t, second.Downgraded)
	assert.False(t, second.HasAccess)

	afterSecond, err := store.GetOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, afterFirst, afterSecond)

	history, total, err := store.ListHistory(ctx, org.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, entitlement.ActionExpired, history[0].Action)
}

// An organization on EXPLORE whose trial ended yesterday loses TASK_BASIC,
// while KANBAN_VIEW, which the expired tier grants, stays available.
func TestExpiredTrialScenario(t *testing.T) {
	t.Parallel()

	svc, store, clock := setup(t)
	ctx := context.Background()
	now := clock.Now()

	org := entitlement.NewTrialOrganization("acme", now)
	trialEnd := now.Add(-24 * time.Hour)
	org.TrialEndDate = &trialEnd
	require.NoError(t, store.CreateOrganization(ctx, org))

	access, err := svc.HasFeatureAccess(ctx, org.ID, entitlement.FeatureTaskBasic)
	require.NoError(t, err)
	assert.False(t, access.HasAccess)
	assert.True(t, access.Downgraded)
	assert.Equal(t, entitlement.LicenseExpired, access.Organization.License)
	assert.Equal(t, entitlement.StatusExpired, access.Organization.Status)

	kanban, err := svc.HasFeatureAccess(ctx, org.ID, entitlement.FeatureKanbanView)
	require.NoError(t, err)
	assert.True(t, kanban.HasAccess)
}

func TestCheckFeatureLimit(t *testing.T) {
	t.Parallel()

	svc, store, clock := setup(t)
	ctx := context.Background()
	org := createOrg(t, store, clock.Now())

	t.Run("absent mapping is over limit", func(t *testing.T) {
		limit, err := svc.CheckFeatureLimit(ctx, org.ID, entitlement.FeatureTaskRecurring)
		require.NoError(t, err)
		assert.False(t, limit.HasAccess)
		assert.True(t, limit.IsOverLimit)
		assert.Zero(t, limit.Usage)
		require.NotNil(t, limit.Limit)
		assert.Zero(t, *limit.Limit)
		assert.ErrorIs(t, limit.Err(org.License), entitlement.ErrAccessDenied)
	})

	t.Run("limited feature reaches cap", func(t *testing.T) {
		for range 2 {
			_, err := svc.IncrementFeatureUsage(ctx, org.ID, entitlement.FeatureFormCreate, 1)
			require.NoError(t, err)
		}
		limit, err := svc.CheckFeatureLimit(ctx, org.ID, entitlement.FeatureFormCreate)
		require.NoError(t, err)
		assert.True(t, limit.HasAccess)
		assert.False(t, limit.IsOverLimit)
		assert.Equal(t, int64(2), limit.Usage)
		assert.Equal(t, int64(1), *limit.Remaining())
		assert.Nil(t, limit.ResetDate, "lifetime limits never reset")

		_, err = svc.IncrementFeatureUsage(ctx, org.ID, entitlement.FeatureFormCreate, 1)
		require.NoError(t, err)
		limit, err = svc.CheckFeatureLimit(ctx, org.ID, entitlement.FeatureFormCreate)
		require.NoError(t, err)
		assert.True(t, limit.IsOverLimit)

		var limitErr *entitlement.LimitError
		require.ErrorAs(t, limit.Err(org.License), &limitErr)
		assert.Equal(t, int64(3), limitErr.Usage)
		assert.Equal(t, int64(3), limitErr.Limit)
		assert.Equal(t, entitlement.PeriodLifetime, limitErr.Period)
	})
}

func TestUnlimitedFeatureNeverBlocks(t *testing.T) {
	t.Parallel()

	svc, store, clock := setup(t)
	ctx := context.Background()
	org := createOrg(t, store, clock.Now())
	_, err := svc.UpgradeSubscription(ctx, subscription.UpgradeParams{
		OrganizationID: org.ID,
		License:        entitlement.LicenseOptimize,
		BillingCycle:   entitlement.BillingMonthly,
	})
	require.NoError(t, err)

	for range 1000 {
		inc, err := svc.IncrementFeatureUsage(ctx, org.ID, entitlement.FeatureTaskBasic, 1)
		require.NoError(t, err)
		assert.False(t, inc.Tracked)
	}

	limit, err := svc.CheckFeatureLimit(ctx, org.ID, entitlement.FeatureTaskBasic)
	require.NoError(t, err)
	assert.True(t, limit.HasAccess)
	assert.True(t, limit.IsUnlimited)
	assert.False(t, limit.IsOverLimit)
	assert.Nil(t, limit.Limit)
	assert.NoError(t, limit.Err(entitlement.LicenseOptimize))
}

func TestIncrementFeatureUsage_Concurrent(t *testing.T) {
	t.Parallel()

	svc, store, clock := setup(t)
	ctx := context.Background()
	org := createOrg(t, store, clock.Now())

	const n = 40
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.IncrementFeatureUsage(ctx, org.ID, entitlement.FeatureAPICalls, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	usage, err := svc.GetFeatureUsage(ctx, org.ID, entitlement.FeatureAPICalls, entitlement.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, int64(n), usage)
}

func TestIncrementFeatureUsage_PeriodBoundary(t *testing.T) {
	t.Parallel()

	svc, store, clock := setup(t)
	ctx := context.Background()
	org := createOrg(t, store, clock.Now())

	clock.Set(time.Date(2024, time.June, 30, 23, 59, 59, 0, time.UTC))
	_, err := svc.IncrementFeatureUsage(ctx, org.ID, entitlement.FeatureTaskBasic, 5)
	require.NoError(t, err)

	clock.Set(time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
	usage, err := svc.GetFeatureUsage(ctx, org.ID, entitlement.FeatureTaskBasic, entitlement.PeriodMonth)
	require.NoError(t, err)
	assert.Zero(t, usage)

	inc, err := svc.IncrementFeatureUsage(ctx, org.ID, entitlement.FeatureTaskBasic, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inc.Usage)
	require.NotNil(t, inc.ResetDate)
	assert.True(t, time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC).Equal(*inc.ResetDate))
}

func TestIncrementFeatureUsage_Validation(t *testing.T) {
	t.Parallel()

	svc, store, clock := setup(t)
	ctx := context.Background()
	org := createOrg(t, store, clock.Now())

	_, err := svc.IncrementFeatureUsage(ctx, org.ID, entitlement.FeatureTaskBasic, 0)
	assert.ErrorIs(t, err, entitlement.ErrInvalidArgument)

	inc, err := svc.IncrementFeatureUsage(ctx, org.ID, entitlement.FeatureTaskApproval, 1)
	require.NoError(t, err)
	assert.False(t, inc.Tracked, "ungranted features are not tracked")

	_, err = svc.GetFeatureUsage(ctx, org.ID, entitlement.FeatureTaskBasic, entitlement.Period("HOUR"))
	assert.ErrorIs(t, err, entitlement.ErrInvalidArgument)
}

func TestUpgradeSubscription(t *testing.T) {
	t.Parallel()

	svc, store, clock := setup(t)
	ctx := context.Background()
	now := clock.Now()
	org := createOrg(t, store, now)

	res, err := svc.UpgradeSubscription(ctx, subscription.UpgradeParams{
		OrganizationID: org.ID,
		License:        entitlement.LicenseExecute,
		BillingCycle:   entitlement.BillingYearly,
		UserID:         "user-1",
	})
	require.NoError(t, err)

	updated := res.Organization
	assert.Equal(t, entitlement.LicenseExecute, updated.License)
	assert.Equal(t, entitlement.StatusActive, updated.Status)
	assert.True(t, updated.AutoRenew)
	require.NotNil(t, updated.SubscriptionStart)
	require.NotNil(t, updated.SubscriptionEnd)
	assert.True(t, updated.SubscriptionEnd.Equal(updated.SubscriptionStart.AddDate(1, 0, 0)))

	history, total, err := store.ListHistory(ctx, org.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, entitlement.ActionUpgraded, history[0].Action)
	assert.Equal(t, int64(19000), history[0].AmountPaid)
	assert.Equal(t, "user-1", history[0].CreatedBy)

	clock.Set(now.Add(24 * time.Hour))
	res, err = svc.UpgradeSubscription(ctx, subscription.UpgradeParams{
		OrganizationID: org.ID,
		License:        entitlement.LicenseExecute,
		BillingCycle:   entitlement.BillingMonthly,
	})
	require.NoError(t, err)
	assert.Equal(t, entitlement.ActionRenewed, res.History.Action)
	assert.Equal(t, int64(1900), res.History.AmountPaid)
	assert.True(t, res.Organization.SubscriptionEnd.Equal(now.Add(24*time.Hour).AddDate(0, 1, 0)))
}

func TestUpgradeSubscription_Validation(t *testing.T) {
	t.Parallel()

	svc, store, clock := setup(t)
	ctx := context.Background()
	org := createOrg(t, store, clock.Now())

	tests := []struct {
		name   string
		params subscription.UpgradeParams
		want   error
	}{
		{
			name:   "missing organization",
			params: subscription.UpgradeParams{License: entitlement.LicensePlan, BillingCycle: entitlement.BillingMonthly},
			want:   entitlement.ErrMissingOrganizationID,
		},
		{
			name:   "missing billing cycle",
			params: subscription.UpgradeParams{OrganizationID: org.ID, License: entitlement.LicensePlan},
			want:   entitlement.ErrInvalidBillingCycle,
		},
		{
			name:   "inactive license",
			params: subscription.UpgradeParams{OrganizationID: org.ID, License: entitlement.LicenseExpired, BillingCycle: entitlement.BillingMonthly},
			want:   entitlement.ErrLicenseNotFound,
		},
		{
			name:   "unknown organization",
			params: subscription.UpgradeParams{OrganizationID: uuid.New(), License: entitlement.LicensePlan, BillingCycle: entitlement.BillingMonthly},
			want:   entitlement.ErrOrganizationNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpgradeSubscription(ctx, tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, total, err := store.ListHistory(ctx, org.ID, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestGetSubscriptionSummary(t *testing.T) {
	t.Parallel()

	svc, store, clock := setup(t)
	ctx := context.Background()
	org := createOrg(t, store, clock.Now().Add(-10*24*time.Hour))

	_, err := svc.IncrementFeatureUsage(ctx, org.ID, entitlement.FeatureReportGenerate, 5)
	require.NoError(t, err)

	summary, err := svc.GetSubscriptionSummary(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.LicenseExplore, summary.Plan.Code)
	require.NotNil(t, summary.DaysUntilExpiry)
	assert.Equal(t, 5, *summary.DaysUntilExpiry)

	require.Len(t, summary.Usage, len(subscription.DefaultKeyFeatures))
	reports := summary.Usage[entitlement.FeatureReportGenerate]
	assert.Equal(t, int64(5), reports.Usage)
	assert.True(t, reports.IsOverLimit)
	assert.False(t, summary.Usage[entitlement.FeatureTaskBasic].IsOverLimit)

	_, err = svc.GetSubscriptionSummary(ctx, uuid.New())
	assert.ErrorIs(t, err, entitlement.ErrNotFound)
}

func TestGetSubscriptionSummary_KeyFeatures(t *testing.T) {
	t.Parallel()

	svc, store, clock := setup(t, subscription.WithKeyFeatures(entitlement.FeatureFormCreate))
	org := createOrg(t, store, clock.Now())

	summary, err := svc.GetSubscriptionSummary(context.Background(), org.ID)
	require.NoError(t, err)
	require.Len(t, summary.Usage, 1)
	assert.Contains(t, summary.Usage, entitlement.FeatureFormCreate)
}

func TestGetSubscriptionHistory(t *testing.T) {
	t.Parallel()

	svc, store, clock := setup(t)
	ctx := context.Background()
	start := clock.Now()
	org := createOrg(t, store, start)

	cycles := []entitlement.LicenseCode{entitlement.LicensePlan, entitlement.LicenseExecute, entitlement.LicenseOptimize}
	for i, code := range cycles {
		clock.Set(start.Add(time.Duration(i) * time.Hour))
		_, err := svc.UpgradeSubscription(ctx, subscription.UpgradeParams{
			OrganizationID: org.ID,
			License:        code,
			BillingCycle:   entitlement.BillingMonthly,
		})
		require.NoError(t, err)
	}

	page, err := svc.GetSubscriptionHistory(ctx, org.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, entitlement.LicenseOptimize, page.Entries[0].License)
	assert.Equal(t, entitlement.LicenseExecute, page.Entries[1].License)

	page, err = svc.GetSubscriptionHistory(ctx, org.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, entitlement.LicensePlan, page.Entries[0].License)

	page, err = svc.GetSubscriptionHistory(ctx, org.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PerPage)
}

func TestRefreshSubscription(t *testing.T) {
	t.Parallel()

	svc, store, clock := setup(t)
	ctx := context.Background()
	now := clock.Now()
	org := createOrg(t, store, now)

	_, err := svc.UpgradeSubscription(ctx, subscription.UpgradeParams{
		OrganizationID: org.ID,
		License:        entitlement.LicensePlan,
		BillingCycle:   entitlement.BillingMonthly,
	})
	require.NoError(t, err)

	current, changed, err := svc.RefreshSubscription(ctx, org.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, entitlement.StatusActive, current.Status)

	clock.Set(now.AddDate(0, 2, 0))
	current, changed, err = svc.RefreshSubscription(ctx, org.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, entitlement.StatusExpired, current.Status)
	assert.Equal(t, entitlement.LicenseExpired, current.License)

	_, changed, err = svc.RefreshSubscription(ctx, org.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	page, err := svc.GetSubscriptionHistory(ctx, org.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, entitlement.ActionExpired, page.Entries[0].Action)
}
