package notification

import "github.com/pkg/errors"

// ErrValidation marks a dispatch intent rejected before any write. Callers
// match it with errors.Is.
var ErrValidation = errors.New("invalid notification intent")

func validationError(field string) error {
	return errors.Wrapf(ErrValidation, "%s is required", field)
}
