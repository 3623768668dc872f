package tenant

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
)

// Provider confirms that an organization exists.
type Provider interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (*entitlement.Organization, error)
}

// ErrorHandler writes the response for a failed resolution.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type config struct {
	provider     Provider
	errorHandler ErrorHandler
	skipPaths    []string
}

// Option configures Middleware.
type Option func(*config)

// WithProvider rejects identifiers of organizations that do not exist.
func WithProvider(p Provider) Option {
	return func(c *config) {
		c.provider = p
	}
}

// WithErrorHandler replaces the plain-text error responses.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *config) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithSkipPaths lists path prefixes that bypass resolution.
func WithSkipPaths(paths ...string) Option {
	return func(c *config) {
		c.skipPaths = append(c.skipPaths, paths...)
	}
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, ErrOrganizationNotFound):
		http.Error(w, "Organization not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidIdentifier), errors.Is(err, ErrNoOrganization):
		http.Error(w, "Organization ID is required", http.StatusBadRequest)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
