package quote

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLineNotFound is returned when an edit names a line the quote does not have.
var ErrLineNotFound = errors.New("quote line not found")

// StaleStateError reports an action whose state precondition does not hold,
// usually because a concurrent change got there first. Current is the
// authoritative quote; nothing was applied.
type StaleStateError struct {
	Action   string
	Expected []State
	Current  Quote
}

func (e *StaleStateError) Error() string {
	msg := fmt.Sprintf("%s not allowed: quote %d is %s", e.Action, e.Current.ID, e.Current.State())
	if len(e.Expected) == 0 {
		return msg
	}
	expected := make([]string, 0, len(e.Expected))
	for _, s := range e.Expected {
		expected = append(expected, s.String())
	}
	return msg + ", expected " + strings.Join(expected, " or ")
}
