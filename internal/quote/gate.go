package quote

import (
	"fmt"

	"github.com/Simplici0/margingate/internal/pricing"
)

// Event names a gate action.
type Event string

const (
	EventSend          Event = "send"
	EventAdminApprove  Event = "admin_approve"
	EventAdminReject   Event = "admin_reject"
	EventClientApprove Event = "client_approve"
	EventClientReject  Event = "client_reject"
	EventConvert       Event = "convert"
)

// ParseEvent validates an event name.
func ParseEvent(s string) (Event, error) {
	switch e := Event(s); e {
	case EventSend, EventAdminApprove, EventAdminReject, EventClientApprove, EventClientReject, EventConvert:
		return e, nil
	}
	return "", fmt.Errorf("unknown gate event %q", s)
}

// Command is one request to the gate. Reason is only read by admin_reject.
type Command struct {
	Event  Event
	Reason string
}

// Outcome describes what Apply did.
type Outcome struct {
	Event   Event
	From    State
	To      State
	Changed bool
}

// Audited reports whether the outcome belongs on the authorization history.
func (o Outcome) Audited() bool {
	if !o.Changed {
		return false
	}
	switch o.Event {
	case EventAdminApprove, EventAdminReject:
		return true
	}
	return o.To.Lifecycle == AwaitingAuthorization
}

type guard func(Quote) bool

func belowMinimum(q Quote) bool  { return q.BelowMinimum() }
func withinMinimum(q Quote) bool { return !q.BelowMinimum() }

type rule struct {
	event    Event
	from     Lifecycle
	fromAuth []Authorization
	guard    guard
	to       Lifecycle
	// keepAuth leaves the authorization status untouched; otherwise toAuth is set.
	keepAuth bool
	toAuth   Authorization
	effect   func(q *Quote, cmd Command)
}

var clientAuth = []Authorization{AuthNone, AuthApproved}

// transitions is the whole gate. A (state, event) pair not matched here is
// refused.
var transitions = []rule{
	{event: EventSend, from: Draft, fromAuth: []Authorization{AuthNone}, guard: withinMinimum, to: Sent, toAuth: AuthNone},
	{event: EventSend, from: Draft, fromAuth: []Authorization{AuthApproved}, to: Sent, toAuth: AuthApproved},
	{event: EventSend, from: Draft, fromAuth: []Authorization{AuthNone}, guard: belowMinimum, to: AwaitingAuthorization, toAuth: AuthAwaiting},
	{event: EventAdminApprove, from: AwaitingAuthorization, fromAuth: []Authorization{AuthAwaiting}, to: Sent, toAuth: AuthApproved},
	{
		event: EventAdminReject, from: AwaitingAuthorization, fromAuth: []Authorization{AuthAwaiting}, to: Draft, toAuth: AuthNone,
		effect: func(q *Quote, cmd Command) {
			q.Revision++
			q.RejectionReason = cmd.Reason
		},
	},
	{event: EventClientApprove, from: Sent, fromAuth: clientAuth, to: Approved, keepAuth: true},
	{event: EventClientReject, from: Sent, fromAuth: clientAuth, to: Rejected, keepAuth: true},
	{event: EventConvert, from: Approved, fromAuth: clientAuth, to: Converted, keepAuth: true},
}

func (r rule) matches(q Quote, e Event) bool {
	if r.event != e || r.from != q.Lifecycle {
		return false
	}
	for _, a := range r.fromAuth {
		if a == q.Authorization {
			return true
		}
	}
	return false
}

// Expected lists the states from which e can fire.
func Expected(e Event) []State {
	var out []State
	seen := map[State]bool{}
	for _, r := range transitions {
		if r.event != e {
			continue
		}
		for _, a := range r.fromAuth {
			s := State{Lifecycle: r.from, Authorization: a}
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// Reached reports whether q already sits where e would have taken it. A
// repeated client or admin decision looks like this once the first request
// has been applied. An admin rejection lands on a plain draft, so the quote
// alone cannot tell; see RepeatsReject.
func Reached(e Event, q Quote) bool {
	if e == EventAdminReject {
		return false
	}
	for _, r := range transitions {
		if r.event != e || r.to != q.Lifecycle {
			continue
		}
		if r.keepAuth || r.toAuth == q.Authorization {
			return true
		}
	}
	return false
}

// Apply runs cmd against q and returns the resulting quote. q is not
// modified. Approving a quote whose authorization is already approved is a
// no-op with Changed false. Any other event that has no matching row fails
// with *StaleStateError carrying q.
func Apply(q Quote, cmd Command) (Quote, Outcome, error) {
	out := Outcome{Event: cmd.Event, From: q.State(), To: q.State()}

	if cmd.Event == EventAdminApprove && q.Authorization == AuthApproved {
		return q.Clone(), out, nil
	}

	var candidates []rule
	for _, r := range transitions {
		if r.matches(q, cmd.Event) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return q, out, &StaleStateError{Action: string(cmd.Event), Expected: Expected(cmd.Event), Current: q.Clone()}
	}

	if cmd.Event == EventSend {
		if err := checkSendable(q); err != nil {
			return q, out, err
		}
	}

	for _, r := range candidates {
		if r.guard != nil && !r.guard(q) {
			continue
		}
		next := q.Clone()
		next.Lifecycle = r.to
		if !r.keepAuth {
			next.Authorization = r.toAuth
		}
		if r.effect != nil {
			r.effect(&next, cmd)
		}
		out.To = next.State()
		out.Changed = true
		return next, out, nil
	}

	// Guards on a shared (event, state) pair are complementary, so this is
	// only reachable if the table is edited inconsistently.
	return q, out, &StaleStateError{Action: string(cmd.Event), Expected: Expected(cmd.Event), Current: q.Clone()}
}

func checkSendable(q Quote) error {
	if len(q.Lines) == 0 {
		return &pricing.ValidationError{Field: "lines", Message: "must contain at least one line item"}
	}
	_, err := Aggregate(q)
	return err
}
