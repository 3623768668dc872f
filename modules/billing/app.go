package billing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/techizeBuilder/admin-task-manager/handler"
	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
	"github.com/techizeBuilder/admin-task-manager/pkg/licensegate"
	"github.com/techizeBuilder/admin-task-manager/pkg/logger"
	"github.com/techizeBuilder/admin-task-manager/pkg/tenant"
	"github.com/techizeBuilder/admin-task-manager/svc/features"
)

type task struct {
	ID               uuid.UUID `json:"id"`
	OrganizationID   uuid.UUID `json:"organization_id"`
	Title            string    `json:"title"`
	Subtask          bool      `json:"is_subtask"`
	Recurring        bool      `json:"is_recurring"`
	RequiresApproval bool      `json:"requires_approval"`
	CreatedAt        time.Time `json:"created_at"`
}

type report struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Kind           string    `json:"kind"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// appRoutes mounts tenant-scoped resources behind the license gate. The
// organization comes from the X-Organization-ID header.
func (m *Module) appRoutes(r chi.Router) {
	opts := []tenant.Option{tenant.WithErrorHandler(m.tenantError)}
	if m.orgs != nil {
		opts = append(opts, tenant.WithProvider(m.orgs))
	}
	r.Use(tenant.Middleware(tenant.NewHeaderResolver(tenant.DefaultHeader), opts...))
	r.Use(tenant.RequireOrganization(m.tenantError))

	r.With(m.gate.RequireActiveSubscription()).Post("/tasks", wrap(m, m.createTask))
	r.With(m.gate.Feature(entitlement.FeatureReportGenerate)).Post("/reports", wrap(m, m.generateReport))
	r.With(m.gate.RequireFeature(entitlement.FeatureKanbanView)).Get("/kanban", wrap(m, m.kanban))
}

func (m *Module) tenantError(w http.ResponseWriter, r *http.Request, err error) {
	var resp handler.Response
	switch {
	case errors.Is(err, tenant.ErrOrganizationNotFound):
		resp = handler.JSONError(handler.ErrNotFound.WithMessage("Organization not found"))
	case errors.Is(err, tenant.ErrInvalidIdentifier), errors.Is(err, tenant.ErrNoOrganization):
		resp = handler.JSONError(handler.ErrBadRequest.
			WithKey(licensegate.KeyOrganizationRequired).
			WithMessage("Organization ID is required"))
	default:
		m.logger.ErrorContext(r.Context(), "tenant resolution failed",
			logger.Component("billing"),
			logger.Error(err),
		)
		resp = handler.JSONError(handler.ErrInternalServerError)
	}
	if rerr := resp.Render(w, r); rerr != nil {
		m.logger.ErrorContext(r.Context(), "render response failed", logger.Error(rerr))
	}
}

// createTask goes through the feature controller so that every task
// feature the request selects is checked and counted together.
func (m *Module) createTask(ctx handler.Context, req createTaskRequest) handler.Response {
	orgID, _ := tenant.IDFromContext(ctx)
	title := strings.TrimSpace(req.Title)
	if title == "" {
		v := handler.NewValidationError()
		v.Add("title", "is required")
		return handler.JSONError(v)
	}

	res, err := m.features.CreateTask(ctx, orgID, features.TaskOptions{
		Subtask:          req.Subtask,
		Recurring:        req.Recurring,
		RequiresApproval: req.RequiresApproval,
	}, func(context.Context) (any, error) {
		return task{
			ID:               uuid.New(),
			OrganizationID:   orgID,
			Title:            title,
			Subtask:          req.Subtask,
			Recurring:        req.Recurring,
			RequiresApproval: req.RequiresApproval,
			CreatedAt:        m.now().UTC(),
		}, nil
	})
	if err != nil {
		return m.fail(ctx, err)
	}
	if !res.Success {
		return blocked(res)
	}
	return handler.JSON(res.Data,
		handler.WithJSONStatus(http.StatusCreated),
		handler.WithJSONMeta(map[string]any{"tracked": res.Tracked}),
	)
}

func blocked(res *features.OperationResult) handler.Response {
	base := handler.ErrForbidden
	if res.Error == features.ErrorLimitExceeded {
		base = handler.ErrTooManyRequests
	}
	meta := map[string]any{
		"feature":          res.Feature,
		"upgrade_required": res.UpgradeRequired,
	}
	if res.Error == features.ErrorLimitExceeded {
		meta["usage"] = res.Usage
		meta["limit"] = res.Limit
		if res.ResetDate != nil {
			meta["reset_date"] = *res.ResetDate
		}
	}
	return handler.JSONError(base.WithKey(res.Error).WithMessage(res.Message), handler.WithJSONMeta(meta))
}

// generateReport runs behind the gate's access, limit and tracking chain.
func (m *Module) generateReport(ctx handler.Context, req generateReportRequest) handler.Response {
	orgID, _ := tenant.IDFromContext(ctx)
	kind := strings.TrimSpace(req.Kind)
	if kind == "" {
		kind = "productivity"
	}
	meta := map[string]any{}
	if limit, ok := licensegate.LimitFromContext(ctx); ok && limit.Limit != nil {
		meta["remaining"] = max(*limit.Limit-limit.Usage-1, 0)
	}
	return handler.JSON(report{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Kind:           kind,
		GeneratedAt:    m.now().UTC(),
	}, handler.WithJSONStatus(http.StatusCreated), handler.WithJSONMeta(meta))
}

func (m *Module) kanban(ctx handler.Context, _ struct{}) handler.Response {
	orgID, _ := tenant.IDFromContext(ctx)
	return handler.JSON(map[string]any{
		"organization_id": orgID,
		"columns":         []string{"todo", "in_progress", "review", "done"},
	})
}
