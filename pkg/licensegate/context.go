package licensegate

import (
	"context"

	"github.com/techizeBuilder/admin-task-manager/pkg/subscription"
)

type accessKey struct{}
type limitKey struct{}

// AccessFromContext returns the access decision RequireFeature made for the
// request.
func AccessFromContext(ctx context.Context) (*subscription.Access, bool) {
	a, ok := ctx.Value(accessKey{}).(*subscription.Access)
	return a, ok
}

// LimitFromContext returns the limit EnforceLimit checked for the request.
func LimitFromContext(ctx context.Context) (*subscription.Limit, bool) {
	l, ok := ctx.Value(limitKey{}).(*subscription.Limit)
	return l, ok
}
