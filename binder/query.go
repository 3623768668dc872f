package binder

import "net/http"

// BindQuery fills fields tagged `query:"name"` from the URL query string.
// Slices accept repeated or comma separated values.
//
//	type HistoryRequest struct {
//		Page  int `query:"page"`
//		Limit int `query:"limit"`
//	}
func BindQuery() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		q := r.URL.Query()
		return bindFields(v, "query", ErrInvalidQuery, func(name string) []string {
			return q[name]
		})
	}
}
