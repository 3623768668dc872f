package licensegate

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/techizeBuilder/admin-task-manager/pkg/tenant"
)

// OrganizationResolver returns the organization a request acts on.
type OrganizationResolver func(r *http.Request) (uuid.UUID, bool)

// Option configures a Gate.
type Option func(*Gate)

// WithResolver replaces the tenant context lookup.
func WithResolver(fn OrganizationResolver) Option {
	return func(g *Gate) {
		if fn != nil {
			g.resolve = fn
		}
	}
}

// WithLogger sets the logger for denials and tracking failures.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithTrackTimeout bounds each asynchronous usage increment.
func WithTrackTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.trackTimeout = d
		}
	}
}

func fromTenant(r *http.Request) (uuid.UUID, bool) {
	return tenant.IDFromContext(r.Context())
}
