// Package tenant resolves the organization a request acts on and stores its
// id in the request context.
//
// A Resolver pulls the raw identifier from the request (a header, a path
// segment or a query parameter). Middleware parses it as a UUID, optionally
// confirms the organization exists through a Provider, and exposes it with
// IDFromContext. Requests without an identifier pass through untouched;
// RequireOrganization rejects them.
//
//	r.Use(tenant.Middleware(
//		tenant.NewCompositeResolver(
//			tenant.NewHeaderResolver(""),
//			tenant.NewQueryResolver("organization_id"),
//		),
//		tenant.WithProvider(store),
//	))
package tenant
