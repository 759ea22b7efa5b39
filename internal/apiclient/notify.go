package apiclient

import "time"

// Reason identifies why the client is signalling the UI layer.
type Reason string

const (
	// ReasonSessionExpired: the stored token expired before a request was sent.
	ReasonSessionExpired Reason = "session_expired"
	// ReasonUnauthorized: the backend answered 401 and the session was purged.
	ReasonUnauthorized Reason = "unauthorized"
	// ReasonRedirectLogin: the UI should navigate to the login page now.
	ReasonRedirectLogin Reason = "redirect_login"
	// ReasonReload: the backend answered 419; client state is stale and the
	// UI should fully reload.
	ReasonReload Reason = "reload"
)

// Event is delivered to a Notifier.
type Event struct {
	Reason     Reason
	StatusCode int
	Path       string
	At         time.Time
}

// Notifier receives session lifecycle events. Implementations must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

// Notify calls f(ev).
func (f NotifierFunc) Notify(ev Event) { f(ev) }

// ChanNotifier delivers events on a channel, dropping them when it is full.
type ChanNotifier chan Event

// Notify sends ev without blocking.
func (ch ChanNotifier) Notify(ev Event) {
	select {
	case ch <- ev:
	default:
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}
