package quote

import (
	"time"

	"github.com/google/uuid"
)

// AuthorizationEvent is an immutable entry on a quote's authorization
// history.
type AuthorizationEvent struct {
	ID        uuid.UUID     `json:"id"`
	QuoteID   int64         `json:"quote_id"`
	Action    Event         `json:"action"`
	Decision  Authorization `json:"decision"`
	Actor     string        `json:"actor"`
	Reason    string        `json:"reason,omitempty"`
	Before    State         `json:"before"`
	After     State         `json:"after"`
	Revision  int           `json:"revision"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewAuthorizationEvent records an audited outcome for q, which must be the
// quote after the transition.
func NewAuthorizationEvent(q Quote, out Outcome, actor, reason string, now time.Time) AuthorizationEvent {
	decision := out.To.Authorization
	if out.Event == EventAdminReject {
		decision = AuthRejected
	}
	return AuthorizationEvent{
		ID:        uuid.New(),
		QuoteID:   q.ID,
		Action:    out.Event,
		Decision:  decision,
		Actor:     actor,
		Reason:    reason,
		Before:    out.From,
		After:     out.To,
		Revision:  q.Revision,
		CreatedAt: now,
	}
}

// RepeatsReject reports whether last is an admin rejection that left q exactly
// as it is now. Any edit after the rejection touches UpdatedAt, so a draft
// that was rejected and then reworked is not a repeat.
func RepeatsReject(q Quote, last AuthorizationEvent) bool {
	return last.Action == EventAdminReject &&
		last.QuoteID == q.ID &&
		last.Revision == q.Revision &&
		last.After == q.State() &&
		q.UpdatedAt.Equal(last.CreatedAt)
}
