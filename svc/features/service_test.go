package features_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
	"github.com/techizeBuilder/admin-task-manager/pkg/subscription"
	"github.com/techizeBuilder/admin-task-manager/pkg/trial"
	"github.com/techizeBuilder/admin-task-manager/svc/features"
)

var now = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type env struct {
	svc   *features.Service
	subs  subscription.Service
	store *entitlement.MemoryStore
}

func setup(t *testing.T, opts ...features.Option) *env {
	t.Helper()
	c, err := entitlement.DefaultCatalog()
	require.NoError(t, err)
	store := entitlement.NewMemoryStore()
	require.NoError(t, store.SeedCatalog(context.Background(), c))

	subs := subscription.NewService(store, subscription.WithClock(clock))
	trials := trial.NewService(store, trial.WithClock(clock))
	return &env{svc: features.NewService(subs, trials, store, opts...), subs: subs, store: store}
}

func (e *env) org(t *testing.T, signup time.Time) uuid.UUID {
	t.Helper()
	org := entitlement.NewTrialOrganization("acme", signup)
	require.NoError(t, e.store.CreateOrganization(context.Background(), org))
	return org.ID
}

func (e *env) use(t *testing.T, orgID uuid.UUID, f entitlement.FeatureCode, n int64) {
	t.Helper()
	_, err := e.subs.IncrementFeatureUsage(context.Background(), orgID, f, n)
	require.NoError(t, err)
}

func find(t *testing.T, ov *features.Overview, code entitlement.FeatureCode) features.FeatureStatus {
	t.Helper()
	for _, list := range ov.Categories {
		for _, fs := range list {
			if fs.Code == code {
				return fs
			}
		}
	}
	t.Fatalf("feature %s not in overview", code)
	return features.FeatureStatus{}
}

func noop(context.Context) (any, error) { return "ok", nil }

func TestNewService_PanicsOnNilDependency(t *testing.T) {
	t.Parallel()
	e := setup(t)
	trials := trial.NewService(e.store)
	assert.Panics(t, func() { features.NewService(nil, trials, e.store) })
	assert.Panics(t, func() { features.NewService(e.subs, nil, e.store) })
	assert.Panics(t, func() { features.NewService(e.subs, trials, nil) })
}

func TestGetOrganizationFeatures(t *testing.T) {
	t.Parallel()
	e := setup(t)
	orgID := e.org(t, now.AddDate(0, 0, -2))
	e.use(t, orgID, entitlement.FeatureFormCreate, 3)

	ov, err := e.svc.GetOrganizationFeatures(context.Background(), orgID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.LicenseExplore, ov.License)
	require.NotNil(t, ov.Trial)
	assert.True(t, ov.Trial.IsTrialActive)
	assert.Equal(t, 13, ov.Trial.DaysRemaining)
	assert.Len(t, ov.Categories["tasks"], 4)

	kanban := find(t, ov, entitlement.FeatureKanbanView)
	assert.True(t, kanban.HasAccess)
	assert.True(t, kanban.IsUnlimited)
	assert.False(t, kanban.UpgradeRequired)

	forms := find(t, ov, entitlement.FeatureFormCreate)
	assert.True(t, forms.HasAccess)
	assert.True(t, forms.IsOverLimit)
	assert.True(t, forms.UpgradeRequired)
	assert.Equal(t, int64(3), forms.Usage)

	approval := find(t, ov, entitlement.FeatureTaskApproval)
	assert.False(t, approval.HasAccess)
	assert.True(t, approval.UpgradeRequired)
	require.NotNil(t, approval.CheapestLicense)
	assert.Equal(t, entitlement.LicenseExecute, *approval.CheapestLicense)

	recurring := find(t, ov, entitlement.FeatureTaskRecurring)
	require.NotNil(t, recurring.CheapestLicense)
	assert.Equal(t, entitlement.LicensePlan, *recurring.CheapestLicense)
}

func TestGetOrganizationFeatures_DowngradesLapsedTrial(t *testing.T) {
	t.Parallel()
	e := setup(t)
	orgID := e.org(t, now.AddDate(0, 0, -30))

	ov, err := e.svc.GetOrganizationFeatures(context.Background(), orgID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.LicenseExpired, ov.License)
	assert.Equal(t, entitlement.StatusExpired, ov.Status)
	assert.False(t, find(t, ov, entitlement.FeatureTaskBasic).HasAccess)
	assert.True(t, find(t, ov, entitlement.FeatureKanbanView).HasAccess)
}

func TestGetOrganizationFeatures_UnknownOrganization(t *testing.T) {
	t.Parallel()
	e := setup(t)
	_, err := e.svc.GetOrganizationFeatures(context.Background(), uuid.New())
	assert.ErrorIs(t, err, entitlement.ErrNotFound)
}

func TestGetUpgradeSuggestions(t *testing.T) {
	t.Parallel()
	e := setup(t)
	orgID := e.org(t, now)
	e.use(t, orgID, entitlement.FeatureTaskBasic, 45)
	e.use(t, orgID, entitlement.FeatureReportGenerate, 4)

	got, err := e.svc.GetUpgradeSuggestions(context.Background(), orgID)
	require.NoError(t, err)

	byFeature := make(map[entitlement.FeatureCode]features.Suggestion, len(got))
	for _, s := range got {
		byFeature[s.Feature] = s
	}
	require.Len(t, byFeature, 3)

	tasks := byFeature[entitlement.FeatureTaskBasic]
	assert.Equal(t, features.SuggestionApproachingCap, tasks.Type)
	assert.InDelta(t, 90.0, tasks.UsagePercent, 0.01)
	require.NotNil(t, tasks.RecommendedLicense)
	assert.Equal(t, entitlement.LicensePlan, *tasks.RecommendedLicense)

	assert.Equal(t, features.SuggestionLocked, byFeature[entitlement.FeatureTaskRecurring].Type)
	assert.Equal(t, features.SuggestionLocked, byFeature[entitlement.FeatureTaskApproval].Type)
	assert.NotContains(t, byFeature, entitlement.FeatureReportGenerate, "80% is not above the threshold")
}

func TestGetUpgradeSuggestions_CustomThreshold(t *testing.T) {
	t.Parallel()
	e := setup(t, features.WithSuggestionThreshold(0.5))
	orgID := e.org(t, now)
	e.use(t, orgID, entitlement.FeatureReportGenerate, 3)

	got, err := e.svc.GetUpgradeSuggestions(context.Background(), orgID)
	require.NoError(t, err)
	var found bool
	for _, s := range got {
		if s.Feature == entitlement.FeatureReportGenerate {
			found = true
			assert.Equal(t, features.SuggestionApproachingCap, s.Type)
		}
	}
	assert.True(t, found)
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	t.Run("tracks every exercised feature", func(t *testing.T) {
		t.Parallel()
		e := setup(t)
		orgID := e.org(t, now)

		res, err := e.svc.CreateTask(context.Background(), orgID, features.TaskOptions{Subtask: true}, noop)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "ok", res.Data)
		assert.Equal(t, map[entitlement.FeatureCode]int64{
			entitlement.FeatureTaskBasic: 1,
			entitlement.FeatureTaskSub:   1,
		}, res.Tracked)
	})

	t.Run("feature outside plan blocks", func(t *testing.T) {
		t.Parallel()
		e := setup(t)
		orgID := e.org(t, now)

		ran := false
		res, err := e.svc.CreateTask(context.Background(), orgID, features.TaskOptions{Recurring: true}, func(context.Context) (any, error) {
			ran = true
			return nil, nil
		})
		require.NoError(t, err)
		assert.False(t, ran)
		assert.False(t, res.Success)
		assert.Equal(t, features.ErrorUpgradeRequired, res.Error)
		assert.Equal(t, entitlement.FeatureTaskRecurring, res.Feature)
		assert.True(t, res.UpgradeRequired)

		n, err := e.subs.GetFeatureUsage(context.Background(), orgID, entitlement.FeatureTaskBasic, entitlement.PeriodMonth)
		require.NoError(t, err)
		assert.Zero(t, n, "blocked operation must not count usage")
	})

	t.Run("operation error propagates without tracking", func(t *testing.T) {
		t.Parallel()
		e := setup(t)
		orgID := e.org(t, now)
		boom := errors.New("boom")

		_, err := e.svc.CreateTask(context.Background(), orgID, features.TaskOptions{}, func(context.Context) (any, error) {
			return nil, boom
		})
		require.ErrorIs(t, err, boom)

		n, err := e.subs.GetFeatureUsage(context.Background(), orgID, entitlement.FeatureTaskBasic, entitlement.PeriodMonth)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("unlimited tier is not tracked", func(t *testing.T) {
		t.Parallel()
		e := setup(t)
		orgID := e.org(t, now)
		_, err := e.subs.UpgradeSubscription(context.Background(), subscription.UpgradeParams{
			OrganizationID: orgID,
			License:        entitlement.LicenseOptimize,
			BillingCycle:   entitlement.BillingYearly,
		})
		require.NoError(t, err)

		res, err := e.svc.CreateTask(context.Background(), orgID, features.TaskOptions{Subtask: true, Recurring: true, RequiresApproval: true}, noop)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Empty(t, res.Tracked)
	})
}

func TestCreateForm_LimitExceeded(t *testing.T) {
	t.Parallel()
	e := setup(t)
	orgID := e.org(t, now)

	for range 3 {
		res, err := e.svc.CreateForm(context.Background(), orgID, noop)
		require.NoError(t, err)
		require.True(t, res.Success)
	}

	res, err := e.svc.CreateForm(context.Background(), orgID, noop)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, features.ErrorLimitExceeded, res.Error)
	assert.Equal(t, int64(3), res.Usage)
	require.NotNil(t, res.Limit)
	assert.Equal(t, int64(3), *res.Limit)
	assert.Nil(t, res.ResetDate, "lifetime limits never reset")
}

func TestGenerateReport_ResetDate(t *testing.T) {
	t.Parallel()
	e := setup(t)
	orgID := e.org(t, now)
	e.use(t, orgID, entitlement.FeatureReportGenerate, 5)

	res, err := e.svc.GenerateReport(context.Background(), orgID, noop)
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.NotNil(t, res.ResetDate)
	assert.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), *res.ResetDate)
}

func TestRecordAPICall(t *testing.T) {
	t.Parallel()
	e := setup(t)
	orgID := e.org(t, now)

	res, err := e.svc.RecordAPICall(context.Background(), orgID, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(1), res.Tracked[entitlement.FeatureAPICalls])
}

func TestGuard_ExpiredTrialBlocks(t *testing.T) {
	t.Parallel()
	e := setup(t)
	orgID := e.org(t, now.AddDate(0, 0, -16))

	res, err := e.svc.CreateTask(context.Background(), orgID, features.TaskOptions{}, noop)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, features.ErrorUpgradeRequired, res.Error)
}
