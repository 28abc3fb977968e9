package loadtest

import (
	"github.com/pkg/errors"
)

// InvalidInputError reports a load test configuration that cannot be run.
// It is raised before any network activity.
type InvalidInputError struct {
	msg string
}

func (e *InvalidInputError) Error() string {
	return e.msg
}

func invalidInput(msg string) error {
	return &InvalidInputError{msg: msg}
}

// IsInvalidInput reports whether err, or any error it wraps, is an InvalidInputError
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}
