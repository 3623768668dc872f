package trial

import (
	"errors"
	"fmt"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
)

var (
	ErrMissingName      = fmt.Errorf("%w: organization name is required", entitlement.ErrInvalidArgument)
	ErrInvalidEmail     = fmt.Errorf("%w: contact email is invalid", entitlement.ErrInvalidArgument)
	ErrInvalidExtension = fmt.Errorf("%w: additional days must be positive", entitlement.ErrInvalidArgument)
	ErrNoRecipient      = errors.New("trial: organization has no contact email")
)
