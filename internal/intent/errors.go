package intent

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when an intent does not exist.
var ErrNotFound = errors.New("intent not found")

// ErrConflict is returned when a transition loses a concurrent race: the
// intent was in the right state when read but changed before the update
// landed. Callers may re-read and retry.
var ErrConflict = errors.New("intent was modified concurrently")

// InvalidTransitionError is returned when an event is not allowed from the
// intent's current status.
type InvalidTransitionError struct {
	Current Status
	Event   Event
}

func (e *InvalidTransitionError) Error() string {
	allowed := AllowedEvents(e.Current)
	if len(allowed) == 0 {
		return fmt.Sprintf("cannot %s intent in terminal status %q", e.Event, e.Current)
	}
	names := make([]string, len(allowed))
	for i, ev := range allowed {
		names[i] = string(ev)
	}
	return fmt.Sprintf("cannot %s intent in status %q (allowed: %s)",
		e.Event, e.Current, strings.Join(names, ", "))
}

// ValidationError is returned when request input fails domain validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
