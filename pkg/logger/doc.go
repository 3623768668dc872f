// Package logger builds *slog.Logger instances with environment presets and
// context-aware attribute injection.
//
// New applies Option functions, picks a text or JSON handler and wraps it in a
// ContextHandler that runs every registered ContextExtractor on each record.
// Extractors let request-scoped values such as the request id or the
// organization id appear in logs without being passed around explicitly.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Production, "entitlementd"),
//		logger.WithContextExtractors(
//			requestid.LoggerExtractor(),
//			tenant.LoggerExtractor(),
//		),
//	)
//	log.InfoContext(ctx, "subscription updated",
//		logger.OrganizationID(orgID),
//		logger.LicenseCode(code),
//	)
//
// Attribute helpers in attr.go keep key names consistent across packages.
package logger
