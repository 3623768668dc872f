package billing

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/techizeBuilder/admin-task-manager/binder"
	"github.com/techizeBuilder/admin-task-manager/handler"
	"github.com/techizeBuilder/admin-task-manager/pkg/licensegate"
	"github.com/techizeBuilder/admin-task-manager/pkg/logger"
	"github.com/techizeBuilder/admin-task-manager/pkg/subscription"
	"github.com/techizeBuilder/admin-task-manager/pkg/tenant"
	"github.com/techizeBuilder/admin-task-manager/pkg/trial"
	"github.com/techizeBuilder/admin-task-manager/svc/features"
)

// Module serves the subscription, trial and feature endpoints.
type Module struct {
	subs     subscription.Service
	trials   trial.Service
	features *features.Service
	gate     *licensegate.Gate

	notifier   trial.Notifier
	orgs       tenant.Provider
	logger     *slog.Logger
	now        func() time.Time
	noticeDays int

	onError handler.ErrorHandler[handler.Context]
}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the module logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithNotifier enables POST /trials/notifications/send.
func WithNotifier(n trial.Notifier) Option {
	return func(m *Module) {
		m.notifier = n
	}
}

// WithNoticeDays sets the default window of the notification endpoints.
func WithNoticeDays(days int) Option {
	return func(m *Module) {
		if days > 0 {
			m.noticeDays = days
		}
	}
}

// WithTenantProvider makes the /app routes reject unknown organizations.
func WithTenantProvider(p tenant.Provider) Option {
	return func(m *Module) {
		m.orgs = p
	}
}

// WithClock replaces time.Now for timestamps of demo resources.
func WithClock(now func() time.Time) Option {
	return func(m *Module) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates the billing module. Panics if a dependency is nil.
func New(subs subscription.Service, trials trial.Service, feats *features.Service, gate *licensegate.Gate, opts ...Option) *Module {
	if subs == nil || trials == nil || feats == nil || gate == nil {
		panic("billing: subscription, trial, features and gate are required")
	}
	m := &Module{
		subs:       subs,
		trials:     trials,
		features:   feats,
		gate:       gate,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
		noticeDays: trial.DefaultNoticeDays,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.onError = handler.NewJSONErrorHandler(m.logger, mapError)
	return m
}

// Handle returns the module router.
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/plans", wrap(m, m.listPlans))
	r.Get("/plans/{code}", wrap(m, m.getPlan))

	r.Post("/organizations", wrap(m, m.startTrial))
	r.Route("/organizations/{id}", func(r chi.Router) {
		r.Get("/subscription", wrap(m, m.summary))
		r.Get("/subscription/history", wrap(m, m.history))
		r.Get("/features", wrap(m, m.organizationFeatures))
		r.Get("/features/{code}", wrap(m, m.checkFeature))
		r.Post("/features/{code}/usage", wrap(m, m.incrementUsage))
		r.Get("/upgrade-suggestions", wrap(m, m.upgradeSuggestions))
		r.Get("/trial", wrap(m, m.trialStatus))
	})

	r.Post("/subscriptions/upgrade", wrap(m, m.upgrade))

	r.Route("/trials", func(r chi.Router) {
		r.Post("/extend", wrap(m, m.extendTrial))
		r.Post("/process-expired", wrap(m, m.processExpired))
		r.Get("/statistics", wrap(m, m.statistics))
		r.Get("/notifications", wrap(m, m.notifications))
		r.Post("/notifications/send", wrap(m, m.sendNotifications))
	})

	r.Route("/app", m.appRoutes)
	return r
}

func wrap[R any](m *Module, h handler.HandlerFunc[handler.Context, R]) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](
			binder.Path(chi.URLParam),
			binder.BindQuery(),
			binder.BindJSON(),
		),
		handler.WithErrorHandler[handler.Context, R](m.onError),
	)
}

// fail renders err in the JSON error envelope. Errors without an HTTP
// mapping are logged.
func (m *Module) fail(ctx handler.Context, err error) handler.Response {
	mapped := mapError(err)

	var httpErr handler.HTTPError
	if !errors.As(mapped, &httpErr) {
		m.logger.ErrorContext(ctx, "billing request failed",
			logger.Component("billing"),
			logger.Error(err),
			slog.String("path", ctx.Request().URL.Path),
		)
	}

	var opts []handler.JSONOption
	if meta := errorMeta(err); meta != nil {
		opts = append(opts, handler.WithJSONMeta(meta))
	}
	return handler.JSONError(mapped, opts...)
}
