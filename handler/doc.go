// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a Context and a request value filled by binders
// (see package binder) and returns a Response. Wrap turns it into an
// http.HandlerFunc. JSON and JSONError render the {data, meta, error}
// envelope; HTTPError values pick the status code of error responses.
//
//	r.Post("/subscriptions/upgrade", handler.Wrap(upgrade,
//		handler.WithBinders[handler.Context, upgradeRequest](binder.BindJSON()),
//		handler.WithErrorHandler[handler.Context, upgradeRequest](onError),
//	))
package handler
