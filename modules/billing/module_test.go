package billing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techizeBuilder/admin-task-manager/modules/billing"
	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
	"github.com/techizeBuilder/admin-task-manager/pkg/licensegate"
	"github.com/techizeBuilder/admin-task-manager/pkg/subscription"
	"github.com/techizeBuilder/admin-task-manager/pkg/tenant"
	"github.com/techizeBuilder/admin-task-manager/pkg/trial"
	"github.com/techizeBuilder/admin-task-manager/svc/features"
)

var now = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type recordingNotifier struct {
	mu      sync.Mutex
	notices []trial.Notice
}

func (n *recordingNotifier) Notify(_ context.Context, notice trial.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

type env struct {
	h      http.Handler
	store  *entitlement.MemoryStore
	trials trial.Service
	gate   *licensegate.Gate
}

func setup(t *testing.T, opts ...billing.Option) *env {
	t.Helper()
	c, err := entitlement.DefaultCatalog()
	require.NoError(t, err)
	store := entitlement.NewMemoryStore()
	require.NoError(t, store.SeedCatalog(context.Background(), c))

	subs := subscription.NewService(store, subscription.WithClock(clock))
	trials := trial.NewService(store, trial.WithClock(clock))
	gate := licensegate.New(subs, trials)
	feats := features.NewService(subs, trials, store)

	opts = append([]billing.Option{billing.WithClock(clock), billing.WithTenantProvider(store)}, opts...)
	m := billing.New(subs, trials, feats, gate, opts...)
	return &env{h: m.Handle(), store: store, trials: trials, gate: gate}
}

func (e *env) startTrial(t *testing.T) uuid.UUID {
	t.Helper()
	org, err := e.trials.StartTrial(context.Background(), trial.StartParams{Name: "Acme", ContactEmail: "ops@acme.test"})
	require.NoError(t, err)
	return org.ID
}

func (e *env) lapsedTrial(t *testing.T) uuid.UUID {
	t.Helper()
	org := entitlement.NewTrialOrganization("Lapsed", now.AddDate(0, 0, -30))
	require.NoError(t, e.store.CreateOrganization(context.Background(), org))
	return org.ID
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *env) do(t *testing.T, method, path, body string, orgID uuid.UUID) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if orgID != uuid.Nil {
		req.Header.Set(tenant.DefaultHeader, orgID.String())
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)

	var out envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestNew_PanicsWithoutDependencies(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { billing.New(nil, nil, nil, nil) })
}

func TestPlans(t *testing.T) {
	t.Parallel()
	e := setup(t)

	code, body := e.do(t, http.MethodGet, "/plans", "", uuid.Nil)
	require.Equal(t, http.StatusOK, code)
	plans := decode[[]entitlement.Plan](t, body.Data)
	assert.NotEmpty(t, plans)
	assert.EqualValues(t, len(plans), body.Meta["count"])

	code, body = e.do(t, http.MethodGet, "/plans/plan", "", uuid.Nil)
	require.Equal(t, http.StatusOK, code)
	plan := decode[entitlement.Plan](t, body.Data)
	assert.Equal(t, entitlement.LicensePlan, plan.Code)
	assert.NotEmpty(t, plan.Features)

	code, body = e.do(t, http.MethodGet, "/plans/GOLD", "", uuid.Nil)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "not_found", body.Error.Code)
}

func TestStartTrial(t *testing.T) {
	t.Parallel()
	e := setup(t)

	code, body := e.do(t, http.MethodPost, "/organizations", `{"name":"Acme","contact_email":"ops@acme.test"}`, uuid.Nil)
	require.Equal(t, http.StatusCreated, code)
	org := decode[entitlement.Organization](t, body.Data)
	assert.Equal(t, entitlement.TrialLicense, org.License)
	assert.Equal(t, entitlement.StatusTrial, org.Status)
	require.NotNil(t, org.TrialEndDate)
	assert.Equal(t, now.Add(entitlement.TrialDuration), *org.TrialEndDate)

	code, body = e.do(t, http.MethodPost, "/organizations", `{"name":"  "}`, uuid.Nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "bad_request", body.Error.Code)

	code, _ = e.do(t, http.MethodPost, "/organizations", `{"name":"Acme","plan":"x"}`, uuid.Nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSummary(t *testing.T) {
	t.Parallel()
	e := setup(t)
	orgID := e.startTrial(t)

	code, body := e.do(t, http.MethodGet, "/organizations/"+orgID.String()+"/subscription", "", uuid.Nil)
	require.Equal(t, http.StatusOK, code)
	summary := decode[subscription.Summary](t, body.Data)
	assert.Equal(t, orgID, summary.Organization.ID)

	code, _ = e.do(t, http.MethodGet, "/organizations/"+uuid.NewString()+"/subscription", "", uuid.Nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = e.do(t, http.MethodGet, "/organizations/not-a-uuid/subscription", "", uuid.Nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUpgradeAndHistory(t *testing.T) {
	t.Parallel()
	e := setup(t)
	orgID := e.startTrial(t)

	t.Run("rejects missing billing cycle", func(t *testing.T) {
		code, body := e.do(t, http.MethodPost, "/subscriptions/upgrade",
			`{"organization_id":"`+orgID.String()+`","license_code":"PLAN"}`, uuid.Nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, body.Error.Message, "billing cycle")
	})

	t.Run("rejects unsupported billing cycle", func(t *testing.T) {
		code, _ := e.do(t, http.MethodPost, "/subscriptions/upgrade",
			`{"organization_id":"`+orgID.String()+`","license_code":"PLAN","billing_cycle":"WEEKLY"}`, uuid.Nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("rejects missing license", func(t *testing.T) {
		code, _ := e.do(t, http.MethodPost, "/subscriptions/upgrade",
			`{"organization_id":"`+orgID.String()+`","billing_cycle":"YEARLY"}`, uuid.Nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("unknown license", func(t *testing.T) {
		code, _ := e.do(t, http.MethodPost, "/subscriptions/upgrade",
			`{"organization_id":"`+orgID.String()+`","license_code":"PLATINUM","billing_cycle":"YEARLY"}`, uuid.Nil)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("upgrades", func(t *testing.T) {
		code, body := e.do(t, http.MethodPost, "/subscriptions/upgrade",
			`{"organization_id":"`+orgID.String()+`","license_code":"PLAN","billing_cycle":"YEARLY","user_id":"u-1"}`, uuid.Nil)
		require.Equal(t, http.StatusOK, code)
		res := decode[subscription.UpgradeResult](t, body.Data)
		assert.Equal(t, entitlement.LicensePlan, res.Organization.License)
		assert.Equal(t, entitlement.StatusActive, res.Organization.Status)
		require.NotNil(t, res.Organization.SubscriptionEnd)
		assert.Equal(t, now.AddDate(1, 0, 0), *res.Organization.SubscriptionEnd)
	})

	t.Run("history is paginated newest first", func(t *testing.T) {
		code, body := e.do(t, http.MethodGet, "/organizations/"+orgID.String()+"/subscription/history?limit=1", "", uuid.Nil)
		require.Equal(t, http.StatusOK, code)
		entries := decode[[]entitlement.HistoryEntry](t, body.Data)
		require.Len(t, entries, 1)
		assert.Equal(t, entitlement.ActionUpgraded, entries[0].Action)
		assert.EqualValues(t, 2, body.Meta["total"])
		assert.EqualValues(t, 1, body.Meta["per_page"])
	})

	t.Run("extend refuses active subscriptions", func(t *testing.T) {
		code, _ := e.do(t, http.MethodPost, "/trials/extend",
			`{"organization_id":"`+orgID.String()+`","additional_days":7}`, uuid.Nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestFeatureEndpoints(t *testing.T) {
	t.Parallel()
	e := setup(t)
	orgID := e.startTrial(t)
	base := "/organizations/" + orgID.String()

	code, body := e.do(t, http.MethodGet, base+"/features", "", uuid.Nil)
	require.Equal(t, http.StatusOK, code)
	overview := decode[features.Overview](t, body.Data)
	assert.Equal(t, entitlement.TrialLicense, overview.License)
	assert.NotEmpty(t, overview.Categories)

	code, body = e.do(t, http.MethodGet, base+"/features/FORM_CREATE", "", uuid.Nil)
	require.Equal(t, http.StatusOK, code)
	limit := decode[subscription.Limit](t, body.Data)
	assert.True(t, limit.HasAccess)
	require.NotNil(t, limit.Limit)
	assert.EqualValues(t, 3, *limit.Limit)
	assert.EqualValues(t, 3, body.Meta["remaining"])

	code, _ = e.do(t, http.MethodGet, base+"/features/TELEPORT", "", uuid.Nil)
	assert.Equal(t, http.StatusNotFound, code)

	for i := range 3 {
		code, body = e.do(t, http.MethodPost, base+"/features/FORM_CREATE/usage", "", uuid.Nil)
		require.Equal(t, http.StatusOK, code)
		inc := decode[subscription.Increment](t, body.Data)
		assert.True(t, inc.Tracked)
		assert.EqualValues(t, i+1, inc.Usage)
	}

	code, body = e.do(t, http.MethodPost, base+"/features/FORM_CREATE/usage", "", uuid.Nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "limit_exceeded", body.Error.Code)
	assert.EqualValues(t, 3, body.Meta["usage"])
	assert.EqualValues(t, 3, body.Meta["limit"])
	assert.Equal(t, "LIFETIME", body.Meta["period"])

	code, body = e.do(t, http.MethodPost, base+"/features/TASK_APPROVAL/usage", `{"amount":1}`, uuid.Nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "upgrade_required", body.Error.Code)
	assert.Equal(t, true, body.Meta["upgrade_required"])

	code, body = e.do(t, http.MethodGet, base+"/upgrade-suggestions", "", uuid.Nil)
	require.Equal(t, http.StatusOK, code)
	suggestions := decode[[]features.Suggestion](t, body.Data)
	assert.NotEmpty(t, suggestions)
}

func TestTrialEndpoints(t *testing.T) {
	t.Parallel()
	e := setup(t)
	orgID := e.startTrial(t)
	lapsedID := e.lapsedTrial(t)

	code, body := e.do(t, http.MethodGet, "/organizations/"+orgID.String()+"/trial", "", uuid.Nil)
	require.Equal(t, http.StatusOK, code)
	st := decode[trial.Status](t, body.Data)
	assert.True(t, st.IsTrialActive)
	assert.Equal(t, 15, st.DaysRemaining)

	code, body = e.do(t, http.MethodPost, "/trials/extend", `{"organization_id":"`+orgID.String()+`","additional_days":5}`, uuid.Nil)
	require.Equal(t, http.StatusOK, code)
	org := decode[entitlement.Organization](t, body.Data)
	assert.Equal(t, now.Add(entitlement.TrialDuration).AddDate(0, 0, 5), *org.TrialEndDate)

	code, _ = e.do(t, http.MethodPost, "/trials/extend", `{"additional_days":5}`, uuid.Nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = e.do(t, http.MethodGet, "/trials/notifications?days=30", "", uuid.Nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body.Meta["count"])
	assert.EqualValues(t, 30, body.Meta["days"])

	code, body = e.do(t, http.MethodPost, "/trials/process-expired", "", uuid.Nil)
	require.Equal(t, http.StatusOK, code)
	report := decode[trial.SweepReport](t, body.Data)
	assert.Equal(t, []uuid.UUID{lapsedID}, report.Downgraded)
	assert.Empty(t, report.Errors)

	code, body = e.do(t, http.MethodGet, "/trials/statistics", "", uuid.Nil)
	require.Equal(t, http.StatusOK, code)
	stats := decode[trial.Statistics](t, body.Data)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.ActiveTrials)
	assert.EqualValues(t, 1, stats.ByStatus[entitlement.StatusExpired])
}

func TestSendNotifications(t *testing.T) {
	t.Parallel()

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		e := setup(t)
		code, body := e.do(t, http.MethodPost, "/trials/notifications/send", "", uuid.Nil)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "service_unavailable", body.Error.Code)
	})

	t.Run("delivers notices", func(t *testing.T) {
		t.Parallel()
		n := &recordingNotifier{}
		e := setup(t, billing.WithNotifier(n), billing.WithNoticeDays(20))
		orgID := e.startTrial(t)

		code, body := e.do(t, http.MethodPost, "/trials/notifications/send", "", uuid.Nil)
		require.Equal(t, http.StatusOK, code)
		report := decode[trial.DeliveryReport](t, body.Data)
		assert.Equal(t, 1, report.Sent)
		require.Len(t, n.notices, 1)
		assert.Equal(t, orgID, n.notices[0].OrganizationID)
	})
}

func TestAppRoutes(t *testing.T) {
	t.Parallel()

	t.Run("requires an organization", func(t *testing.T) {
		t.Parallel()
		e := setup(t)
		code, body := e.do(t, http.MethodPost, "/app/tasks", `{"title":"Plan sprint"}`, uuid.Nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, licensegate.KeyOrganizationRequired, body.Error.Code)

		code, _ = e.do(t, http.MethodPost, "/app/tasks", `{"title":"Plan sprint"}`, uuid.New())
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("creates tasks and tracks usage", func(t *testing.T) {
		t.Parallel()
		e := setup(t)
		orgID := e.startTrial(t)

		code, body := e.do(t, http.MethodPost, "/app/tasks", `{"title":"Plan sprint","is_subtask":true}`, orgID)
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, "Plan sprint", decode[map[string]any](t, body.Data)["title"])

		code, body = e.do(t, http.MethodGet, "/organizations/"+orgID.String()+"/features/TASK_SUB", "", uuid.Nil)
		require.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 1, decode[subscription.Limit](t, body.Data).Usage)
	})

	t.Run("validates the title", func(t *testing.T) {
		t.Parallel()
		e := setup(t)
		code, body := e.do(t, http.MethodPost, "/app/tasks", `{"title":""}`, e.startTrial(t))
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, "validation_error", body.Error.Code)
	})

	t.Run("blocks features outside the plan", func(t *testing.T) {
		t.Parallel()
		e := setup(t)
		code, body := e.do(t, http.MethodPost, "/app/tasks", `{"title":"Sign off","requires_approval":true}`, e.startTrial(t))
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, features.ErrorUpgradeRequired, body.Error.Code)
		assert.Equal(t, string(entitlement.FeatureTaskApproval), body.Meta["feature"])
	})

	t.Run("lapsed trial requires payment", func(t *testing.T) {
		t.Parallel()
		e := setup(t)
		code, body := e.do(t, http.MethodPost, "/app/tasks", `{"title":"Plan sprint"}`, e.lapsedTrial(t))
		assert.Equal(t, http.StatusPaymentRequired, code)
		assert.Equal(t, licensegate.KeySubscriptionRequired, body.Error.Code)
	})

	t.Run("reports stop at the monthly cap", func(t *testing.T) {
		t.Parallel()
		e := setup(t)
		orgID := e.startTrial(t)
		for range 5 {
			code, _ := e.do(t, http.MethodPost, "/app/reports", `{"kind":"weekly"}`, orgID)
			require.Equal(t, http.StatusCreated, code)
			e.gate.Wait()
		}
		code, body := e.do(t, http.MethodPost, "/app/reports", "", orgID)
		assert.Equal(t, http.StatusTooManyRequests, code)
		assert.Equal(t, licensegate.KeyLimitExceeded, body.Error.Code)
		assert.Equal(t, "2024-07-01T00:00:00Z", body.Meta["reset_date"])
	})

	t.Run("kanban requires the feature", func(t *testing.T) {
		t.Parallel()
		e := setup(t)
		code, _ := e.do(t, http.MethodGet, "/app/kanban", "", e.startTrial(t))
		assert.Equal(t, http.StatusOK, code)
	})
}
