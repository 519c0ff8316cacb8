package quote

import "fmt"

// Lifecycle is the position of a quote in the vendor → admin → client flow.
type Lifecycle string

const (
	Draft                 Lifecycle = "draft"
	Sent                  Lifecycle = "sent"
	AwaitingAuthorization Lifecycle = "awaiting_authorization"
	Approved              Lifecycle = "approved"
	Rejected              Lifecycle = "rejected"
	Converted             Lifecycle = "converted"
)

// ParseLifecycle validates a stored or submitted lifecycle value.
func ParseLifecycle(s string) (Lifecycle, error) {
	switch l := Lifecycle(s); l {
	case Draft, Sent, AwaitingAuthorization, Approved, Rejected, Converted:
		return l, nil
	}
	return "", fmt.Errorf("unknown lifecycle status %q", s)
}

// Terminal reports whether no further transition can leave l.
func (l Lifecycle) Terminal() bool {
	return l == Rejected || l == Converted
}

// ClientVisible reports whether a client may see a quote in l. Quotes that
// are still being edited or wait for an admin stay hidden.
func (l Lifecycle) ClientVisible() bool {
	switch l {
	case Sent, Approved, Rejected, Converted:
		return true
	}
	return false
}

// Authorization tracks the admin approval of below-minimum pricing.
type Authorization string

const (
	AuthNone     Authorization = "none"
	AuthAwaiting Authorization = "awaiting"
	AuthApproved Authorization = "approved"
	// AuthRejected is recorded on the authorization history; a rejected
	// quote itself goes back to AuthNone.
	AuthRejected Authorization = "rejected"
)

// ParseAuthorization validates a stored authorization value.
func ParseAuthorization(s string) (Authorization, error) {
	switch a := Authorization(s); a {
	case AuthNone, AuthAwaiting, AuthApproved, AuthRejected:
		return a, nil
	}
	return "", fmt.Errorf("unknown authorization status %q", s)
}

// State is the pair every gate precondition is written against.
type State struct {
	Lifecycle     Lifecycle     `json:"lifecycle_status"`
	Authorization Authorization `json:"authorization_status"`
}

func (s State) String() string {
	return string(s.Lifecycle) + "/" + string(s.Authorization)
}
