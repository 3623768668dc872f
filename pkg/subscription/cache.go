package subscription

import (
	"context"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
)

// PlanCache stores the plan list between requests. Plans are reference data
// that change only on deploys, so a short TTL is enough.
type PlanCache interface {
	// LoadPlans reports false on a miss.
	LoadPlans(ctx context.Context) ([]entitlement.Plan, bool, error)
	StorePlans(ctx context.Context, plans []entitlement.Plan) error
}
