package quote

import (
	"errors"
	"testing"
	"time"

	"github.com/Simplici0/margingate/internal/pricing"
)

func TestApplyTransitions(t *testing.T) {
	compliant := line(1, "12", "10", 1)
	below := line(1, "8", "10", 1)

	tests := []struct {
		name     string
		line     LineItem
		from     State
		event    Event
		want     State
		revision int
	}{
		{"send compliant", compliant, State{Draft, AuthNone}, EventSend, State{Sent, AuthNone}, 0},
		{"send below minimum redirects", below, State{Draft, AuthNone}, EventSend, State{AwaitingAuthorization, AuthAwaiting}, 0},
		{"send pre-approved", below, State{Draft, AuthApproved}, EventSend, State{Sent, AuthApproved}, 0},
		{"admin approve", below, State{AwaitingAuthorization, AuthAwaiting}, EventAdminApprove, State{Sent, AuthApproved}, 0},
		{"admin reject", below, State{AwaitingAuthorization, AuthAwaiting}, EventAdminReject, State{Draft, AuthNone}, 1},
		{"client approve", compliant, State{Sent, AuthNone}, EventClientApprove, State{Approved, AuthNone}, 0},
		{"client approve after authorization", below, State{Sent, AuthApproved}, EventClientApprove, State{Approved, AuthApproved}, 0},
		{"client reject", compliant, State{Sent, AuthNone}, EventClientReject, State{Rejected, AuthNone}, 0},
		{"convert", compliant, State{Approved, AuthNone}, EventConvert, State{Converted, AuthNone}, 0},
		{"convert authorized", below, State{Approved, AuthApproved}, EventConvert, State{Converted, AuthApproved}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := draftWith(tt.line)
			q.Lifecycle, q.Authorization = tt.from.Lifecycle, tt.from.Authorization

			next, out, err := Apply(q, Command{Event: tt.event, Reason: "too cheap"})
			if err != nil {
				t.Fatalf("Apply returned error: %v", err)
			}
			if next.State() != tt.want {
				t.Fatalf("state = %s, want %s", next.State(), tt.want)
			}
			if !out.Changed || out.From != tt.from || out.To != tt.want {
				t.Fatalf("unexpected outcome: %+v", out)
			}
			if next.Revision != tt.revision {
				t.Fatalf("revision = %d, want %d", next.Revision, tt.revision)
			}
			if q.State() != tt.from {
				t.Fatalf("Apply mutated its input: %s", q.State())
			}
		})
	}
}

func TestApplyRefusesUnlistedTransitions(t *testing.T) {
	lifecycles := []Lifecycle{Draft, Sent, AwaitingAuthorization, Approved, Rejected, Converted}
	auths := []Authorization{AuthNone, AuthAwaiting, AuthApproved}
	events := []Event{EventSend, EventAdminApprove, EventAdminReject, EventClientApprove, EventClientReject, EventConvert}

	for _, lc := range lifecycles {
		for _, a := range auths {
			for _, e := range events {
				q := draftWith(line(1, "12", "10", 1))
				q.Lifecycle, q.Authorization = lc, a

				allowed := false
				for _, s := range Expected(e) {
					if s == q.State() {
						allowed = true
					}
				}
				if e == EventAdminApprove && a == AuthApproved {
					allowed = true
				}

				next, out, err := Apply(q, Command{Event: e})
				if allowed {
					if err != nil {
						t.Fatalf("%s from %s: unexpected error %v", e, q.State(), err)
					}
					continue
				}

				var stale *StaleStateError
				if !errors.As(err, &stale) {
					t.Fatalf("%s from %s: expected StaleStateError, got %v", e, q.State(), err)
				}
				if stale.Current.State() != q.State() || next.State() != q.State() || out.Changed {
					t.Fatalf("%s from %s: refused transition changed state", e, q.State())
				}
			}
		}
	}
}

func TestTerminalStatesAcceptNothing(t *testing.T) {
	for _, lc := range []Lifecycle{Rejected, Converted} {
		for _, e := range []Event{EventSend, EventAdminReject, EventClientApprove, EventClientReject, EventConvert} {
			q := draftWith(line(1, "12", "10", 1))
			q.Lifecycle = lc
			if _, _, err := Apply(q, Command{Event: e}); err == nil {
				t.Fatalf("%s accepted %s", lc, e)
			}
		}
	}
}

func TestSendBelowMinimumGoesToAwaiting(t *testing.T) {
	q := draftWith(line(1, "12", "10", 3), line(2, "8", "10", 1))

	next, out, err := Apply(q, Command{Event: EventSend})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if next.Lifecycle != AwaitingAuthorization {
		t.Fatalf("lifecycle = %s, want awaiting_authorization", next.Lifecycle)
	}
	if !out.Audited() {
		t.Fatal("redirect to awaiting_authorization should be audited")
	}
}

func TestSendEmptyQuote(t *testing.T) {
	_, _, err := Apply(draftWith(), Command{Event: EventSend})
	var vErr *pricing.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Field != "lines" {
		t.Fatalf("field = %q, want lines", vErr.Field)
	}
}

func TestSendNegativeTotal(t *testing.T) {
	q := draftWith(line(1, "12", "10", 1))
	q.DiscountKind = DiscountFlat
	q.DiscountValue = dec("50")

	_, _, err := Apply(q, Command{Event: EventSend})
	var vErr *pricing.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAdminApproveIsIdempotent(t *testing.T) {
	q := draftWith(line(1, "8", "10", 1))
	q.Lifecycle, q.Authorization = AwaitingAuthorization, AuthAwaiting

	approved, out, err := Apply(q, Command{Event: EventAdminApprove})
	if err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if !out.Changed || !out.Audited() {
		t.Fatalf("first approve outcome: %+v", out)
	}

	again, out, err := Apply(approved, Command{Event: EventAdminApprove})
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if out.Changed || out.Audited() {
		t.Fatalf("second approve should be a no-op: %+v", out)
	}
	if again.State() != approved.State() || again.Version != approved.Version {
		t.Fatalf("second approve changed state: %s", again.State())
	}
}

func TestAdminRejectThenResend(t *testing.T) {
	q := draftWith(line(1, "8", "10", 1))

	sent, _, err := Apply(q, Command{Event: EventSend})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	rejected, out, err := Apply(sent, Command{Event: EventAdminReject, Reason: "margin too thin"})
	if err != nil {
		t.Fatalf("admin reject: %v", err)
	}
	if rejected.State() != (State{Draft, AuthNone}) {
		t.Fatalf("state after reject = %s", rejected.State())
	}
	if rejected.Revision != 1 || rejected.RejectionReason != "margin too thin" {
		t.Fatalf("reject effect missing: revision=%d reason=%q", rejected.Revision, rejected.RejectionReason)
	}
	if !out.Audited() {
		t.Fatal("admin reject should be audited")
	}

	resent, _, err := Apply(rejected, Command{Event: EventSend})
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if resent.Lifecycle != AwaitingAuthorization {
		t.Fatalf("lifecycle after resend = %s, want awaiting_authorization", resent.Lifecycle)
	}
}

func TestReached(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		revision int
		event    Event
		want     bool
	}{
		{"client approve repeated", State{Approved, AuthNone}, 0, EventClientApprove, true},
		{"client approve after conversion", State{Converted, AuthNone}, 0, EventClientApprove, false},
		{"client reject repeated", State{Rejected, AuthApproved}, 0, EventClientReject, true},
		{"admin approve repeated", State{Sent, AuthApproved}, 0, EventAdminApprove, true},
		{"admin reject needs history", State{Draft, AuthNone}, 1, EventAdminReject, false},
		{"fresh draft was never rejected", State{Draft, AuthNone}, 0, EventAdminReject, false},
		{"client approve on draft", State{Draft, AuthNone}, 0, EventClientApprove, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := draftWith(line(1, "12", "10", 1))
			q.Lifecycle, q.Authorization = tt.state.Lifecycle, tt.state.Authorization
			q.Revision = tt.revision
			if got := Reached(tt.event, q); got != tt.want {
				t.Fatalf("Reached = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRepeatsReject(t *testing.T) {
	rejectedAt := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	rejected := draftWith(line(1, "8", "10", 1))
	rejected.ID = 7
	rejected.Revision = 1
	rejected.UpdatedAt = rejectedAt

	out := Outcome{
		Event:   EventAdminReject,
		From:    State{AwaitingAuthorization, AuthAwaiting},
		To:      State{Draft, AuthNone},
		Changed: true,
	}
	last := NewAuthorizationEvent(rejected, out, "admin-1", "too cheap", rejectedAt)

	edited := rejected.Clone()
	edited.UpdatedAt = rejectedAt.Add(time.Minute)

	resent := rejected.Clone()
	resent.Lifecycle, resent.Authorization = AwaitingAuthorization, AuthAwaiting

	approval := last
	approval.Action = EventAdminApprove

	other := rejected.Clone()
	other.ID = 8

	tests := []struct {
		name string
		q    Quote
		last AuthorizationEvent
		want bool
	}{
		{"untouched since the rejection", rejected, last, true},
		{"edited after the rejection", edited, last, false},
		{"sent again", resent, last, false},
		{"last event was an approval", rejected, approval, false},
		{"event of another quote", other, last, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RepeatsReject(tt.q, tt.last); got != tt.want {
				t.Fatalf("RepeatsReject = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutcomeAudited(t *testing.T) {
	tests := []struct {
		name string
		out  Outcome
		want bool
	}{
		{"plain send", Outcome{Event: EventSend, To: State{Sent, AuthNone}, Changed: true}, false},
		{"redirected send", Outcome{Event: EventSend, To: State{AwaitingAuthorization, AuthAwaiting}, Changed: true}, true},
		{"admin approve", Outcome{Event: EventAdminApprove, To: State{Sent, AuthApproved}, Changed: true}, true},
		{"no-op approve", Outcome{Event: EventAdminApprove, Changed: false}, false},
		{"client approve", Outcome{Event: EventClientApprove, To: State{Approved, AuthNone}, Changed: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.out.Audited(); got != tt.want {
				t.Fatalf("Audited = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewAuthorizationEvent(t *testing.T) {
	q := draftWith(line(1, "8", "10", 1))
	q.Lifecycle, q.Authorization = AwaitingAuthorization, AuthAwaiting
	now := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)

	next, out, err := Apply(q, Command{Event: EventAdminReject, Reason: "no"})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	ev := NewAuthorizationEvent(next, out, "admin-1", "no", now)

	if ev.Decision != AuthRejected {
		t.Fatalf("decision = %s, want rejected", ev.Decision)
	}
	if ev.Before != (State{AwaitingAuthorization, AuthAwaiting}) || ev.After != (State{Draft, AuthNone}) {
		t.Fatalf("unexpected before/after: %s -> %s", ev.Before, ev.After)
	}
	if ev.Revision != 1 || ev.QuoteID != 7 || ev.Actor != "admin-1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.ID.String() == "" || ev.ID.Version() != 4 {
		t.Fatalf("expected random uuid, got %s", ev.ID)
	}
}
