// Package billing exposes plans, subscriptions, trials and feature usage
// over HTTP.
//
// Handle returns a chi router meant to be mounted under an API prefix:
//
//	m := billing.New(subs, trials, feats, gate, billing.WithLogger(log))
//	r.Mount("/api/v1", m.Handle())
//
// Responses use the handler package JSON envelope. Entitlement error kinds
// map to status codes: not found 404, invalid argument 400, access denied
// 403, limit exceeded 429 and payment required 402. Denials carry the
// feature, usage and reset date in the envelope meta.
//
// Routes under /app are tenant scoped: the organization is read from the
// X-Organization-ID header and the licensegate middleware guards each
// resource.
package billing
