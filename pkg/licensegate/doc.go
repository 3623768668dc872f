// Package licensegate provides HTTP middleware that enforces an
// organization's license before a handler runs.
//
// A Gate resolves the organization of each request (by default from the
// pkg/tenant context) and consults the subscription and trial services:
//
//	gate := licensegate.New(subs, trials, licensegate.WithLogger(log))
//	r.With(gate.Feature(entitlement.FeatureFormCreate)).Post("/forms", createForm)
//	r.With(
//		gate.RequireFeature(entitlement.FeatureReportGenerate),
//		gate.EnforceLimit(entitlement.FeatureReportGenerate),
//		gate.TrackUsage(entitlement.FeatureReportGenerate, 1),
//	).Post("/reports", generateReport)
//
// Rejections use the JSON error envelope of the handler package: 400 when
// no organization is known, 403 with key upgrade_required when the plan
// lacks the feature, 429 with key limit_exceeded when the period allowance
// is spent, and 402 from RequireActiveSubscription.
//
// Usage is counted after the handler writes a 2xx status, in a background
// goroutine. Call Wait during shutdown to flush pending increments.
package licensegate
