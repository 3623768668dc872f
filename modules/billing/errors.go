package billing

import (
	"errors"
	"net/http"
	"strings"

	"github.com/techizeBuilder/admin-task-manager/binder"
	"github.com/techizeBuilder/admin-task-manager/handler"
	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
)

var errUnsupportedMediaType = handler.NewHTTPError(http.StatusUnsupportedMediaType, "unsupported_media_type")

// mapError translates binder and entitlement errors into HTTP errors.
// Errors of unknown kind are returned unchanged and render as 500.
func mapError(err error) error {
	var httpErr handler.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}
	var valErr handler.ValidationError
	if errors.As(err, &valErr) {
		return err
	}

	switch {
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		return errUnsupportedMediaType.WithMessage(err.Error())
	case errors.Is(err, binder.ErrInvalidJSON),
		errors.Is(err, binder.ErrInvalidQuery),
		errors.Is(err, binder.ErrInvalidPath):
		return handler.ErrBadRequest.WithMessage(err.Error())
	case errors.Is(err, entitlement.ErrNotFound):
		return handler.ErrNotFound.WithMessage(message(err))
	case errors.Is(err, entitlement.ErrInvalidArgument):
		return handler.ErrBadRequest.WithMessage(message(err))
	case errors.Is(err, entitlement.ErrAccessDenied):
		return handler.ErrForbidden.WithKey("upgrade_required").WithMessage(message(err))
	case errors.Is(err, entitlement.ErrLimitExceeded):
		return handler.ErrTooManyRequests.WithKey("limit_exceeded").WithMessage(message(err))
	case errors.Is(err, entitlement.ErrPaymentRequired):
		return handler.ErrPaymentRequired.WithKey("subscription_required").WithMessage(message(err))
	}
	return err
}

// errorMeta exposes the details a client needs to render a denial.
func errorMeta(err error) map[string]any {
	var accessErr *entitlement.AccessError
	if errors.As(err, &accessErr) {
		return map[string]any{
			"feature":          accessErr.Feature,
			"reason":           accessErr.Reason,
			"current_license":  accessErr.License,
			"upgrade_required": true,
		}
	}
	var limitErr *entitlement.LimitError
	if errors.As(err, &limitErr) {
		meta := map[string]any{
			"feature":          limitErr.Feature,
			"usage":            limitErr.Usage,
			"limit":            limitErr.Limit,
			"period":           limitErr.Period,
			"upgrade_required": true,
		}
		if limitErr.ResetDate != nil {
			meta["reset_date"] = *limitErr.ResetDate
		}
		return meta
	}
	return nil
}

func message(err error) string {
	return strings.TrimPrefix(err.Error(), "entitlement: ")
}
