package binder

import "net/http"

// Path fills fields tagged `path:"name"` using extractor, typically
// chi.URLParam.
//
//	r.Get("/organizations/{id}/features/{code}", handler.Wrap(h,
//		handler.WithBinders[handler.Context, featureRequest](binder.Path(chi.URLParam)),
//	))
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return ErrInvalidPath
		}
		return bindFields(v, "path", ErrInvalidPath, func(name string) []string {
			if val := extractor(r, name); val != "" {
				return []string{val}
			}
			return nil
		})
	}
}
