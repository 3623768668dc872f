// Package features runs task manager operations behind the organization's
// license.
//
// Each operation checks the limit of every feature it exercises, runs the
// supplied Operation only when all of them allow another use, and then
// counts one use of each. A blocked operation is not an error: it is
// reported through OperationResult with Success false and an Error key of
// upgrade_required or limit_exceeded.
//
//	res, err := svc.CreateTask(ctx, orgID, features.TaskOptions{Recurring: true},
//		func(ctx context.Context) (any, error) { return tasks.Create(ctx, input) })
//
// GetOrganizationFeatures and GetUpgradeSuggestions describe the catalog from
// the organization's point of view, naming the cheapest tier that would
// unlock each feature.
package features
