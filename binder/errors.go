package binder

import "errors"

var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrMissingContentType   = errors.New("missing content type")
	ErrInvalidJSON          = errors.New("invalid JSON")
	ErrInvalidQuery         = errors.New("invalid query parameter")
	ErrInvalidPath          = errors.New("invalid path parameter")

	// ErrBinderNotApplicable is returned when a binder has nothing to read
	// from the request. handler.Wrap skips such binders.
	ErrBinderNotApplicable = errors.New("binder not applicable")
)
