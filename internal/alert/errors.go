package alert

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an alert does not exist.
var ErrNotFound = errors.New("alert not found")

// InvalidTransitionError is returned when an action is not allowed from
// the alert's current status.
type InvalidTransitionError struct {
	Current string
	Action  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s alert in status %q", e.Action, e.Current)
}
