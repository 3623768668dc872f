package tenant

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultHeader carries the organization id when no header name is given.
const DefaultHeader = "X-Organization-ID"

// Resolver extracts the raw organization identifier from a request.
// An empty string means the request names no organization.
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(r *http.Request) (string, error)

func (f ResolverFunc) Resolve(r *http.Request) (string, error) {
	return f(r)
}

// HeaderResolver reads the identifier from a request header.
type HeaderResolver struct {
	Header string
}

// NewHeaderResolver creates a HeaderResolver. An empty name uses DefaultHeader.
func NewHeaderResolver(header string) *HeaderResolver {
	if header == "" {
		header = DefaultHeader
	}
	return &HeaderResolver{Header: header}
}

func (h *HeaderResolver) Resolve(r *http.Request) (string, error) {
	return strings.TrimSpace(r.Header.Get(h.Header)), nil
}

// QueryResolver reads the identifier from a query parameter.
type QueryResolver struct {
	Param string
}

// NewQueryResolver creates a QueryResolver.
func NewQueryResolver(param string) *QueryResolver {
	return &QueryResolver{Param: param}
}

func (q *QueryResolver) Resolve(r *http.Request) (string, error) {
	return strings.TrimSpace(r.URL.Query().Get(q.Param)), nil
}

// PathResolver reads the identifier from a 1-based path segment, so
// Position 2 picks "id" out of /organizations/id/features.
type PathResolver struct {
	Position int
}

// NewPathResolver creates a PathResolver.
func NewPathResolver(position int) *PathResolver {
	return &PathResolver{Position: position}
}

func (p *PathResolver) Resolve(r *http.Request) (string, error) {
	if p.Position < 1 {
		return "", errors.New("tenant: path position must be positive")
	}
	path := strings.Trim(r.URL.Path, "/")
	if path == "" {
		return "", nil
	}
	parts := strings.Split(path, "/")
	if p.Position > len(parts) {
		return "", nil
	}
	return parts[p.Position-1], nil
}

// CompositeResolver returns the first non-empty identifier of its resolvers.
type CompositeResolver struct {
	Resolvers []Resolver
}

// NewCompositeResolver creates a CompositeResolver trying resolvers in order.
func NewCompositeResolver(resolvers ...Resolver) *CompositeResolver {
	return &CompositeResolver{Resolvers: resolvers}
}

func (c *CompositeResolver) Resolve(r *http.Request) (string, error) {
	var errs []error
	for _, res := range c.Resolvers {
		id, err := res.Resolve(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if id != "" {
			return id, nil
		}
	}
	if len(errs) > 0 {
		return "", fmt.Errorf("resolve organization: %w", errors.Join(errs...))
	}
	return "", nil
}
