package handler

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError maps field names to their error messages.
type ValidationError url.Values

// NewValidationError creates an empty ValidationError.
func NewValidationError() ValidationError {
	return make(ValidationError)
}

func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for field, msgs := range e {
		if len(msgs) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", field, msgs[0]))
		}
	}
	slices.Sort(parts)
	return "validation failed: " + strings.Join(parts, ", ")
}

// Add records msg for field.
func (e ValidationError) Add(field, msg string) {
	url.Values(e).Add(field, msg)
}

// Has reports whether field has an error.
func (e ValidationError) Has(field string) bool {
	return len(e[field]) > 0
}

// Err returns e when it holds errors and nil otherwise.
func (e ValidationError) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
