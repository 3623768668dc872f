package tenant

import "errors"

var (
	ErrOrganizationNotFound = errors.New("tenant: organization not found")
	ErrInvalidIdentifier    = errors.New("tenant: invalid organization identifier")
	ErrNoOrganization       = errors.New("tenant: no organization in context")
)
