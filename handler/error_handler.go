package handler

import (
	"log/slog"
	"net/http"

	"github.com/techizeBuilder/admin-task-manager/pkg/logger"
	"github.com/techizeBuilder/admin-task-manager/pkg/requestid"
)

// ErrorMapper translates domain errors into HTTP errors. It returns err
// unchanged when it has no mapping.
type ErrorMapper func(err error) error

// NewJSONErrorHandler logs err and writes it in the JSON error envelope.
// Client errors are logged at warn level, server errors at error level.
func NewJSONErrorHandler(log *slog.Logger, mapErr ErrorMapper) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx Context, err error) {
		if mapErr != nil {
			err = mapErr(err)
		}
		resp := JSONError(err)
		status := resp.(*jsonResponse).status

		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		r := ctx.Request()
		log.LogAttrs(r.Context(), level, "request error",
			logger.Component("http"),
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		if renderErr := resp.Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "render error response", logger.Error(renderErr))
		}
	}
}
