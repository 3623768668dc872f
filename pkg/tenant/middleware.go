package tenant

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
)

// Middleware resolves the organization id of each request and stores it in
// the request context. Requests that name no organization continue without
// one.
func Middleware(resolver Resolver, opts ...Option) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant: resolver is required")
	}
	cfg := &config{errorHandler: defaultErrorHandler}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			raw, err := resolver.Resolve(r)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := uuid.Parse(raw)
			if err != nil || id == uuid.Nil {
				cfg.errorHandler(w, r, ErrInvalidIdentifier)
				return
			}

			if cfg.provider != nil {
				if _, err := cfg.provider.GetOrganization(r.Context(), id); err != nil {
					if errors.Is(err, entitlement.ErrNotFound) {
						err = ErrOrganizationNotFound
					} else {
						err = fmt.Errorf("load organization: %w", err)
					}
					cfg.errorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithOrganizationID(r.Context(), id)))
		})
	}
}

// RequireOrganization rejects requests whose context carries no organization.
func RequireOrganization(h ErrorHandler) func(http.Handler) http.Handler {
	if h == nil {
		h = defaultErrorHandler
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IDFromContext(r.Context()); !ok {
				h(w, r, ErrNoOrganization)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
