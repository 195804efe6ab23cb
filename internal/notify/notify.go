// Package notify pushes "something changed, refetch" signals to clients.
// Events carry a scope name only, never authoritative state; the session and
// pool rows in the database stay the single source of truth.
package notify

import "time"

// Event is one change signal.
type Event struct {
	UserID string    `json:"-"`
	Scope  string    `json:"scope"`
	At     time.Time `json:"at"`
}

// Notifier delivers change signals to one transport.
type Notifier interface {
	Notify(userID, scope string)
}

// Fanout delivers each signal to every configured transport.
type Fanout struct {
	targets []Notifier
}

// NewFanout builds a fan-out over the given transports. Nil entries are
// skipped so callers can pass optional notifiers unconditionally.
func NewFanout(targets ...Notifier) *Fanout {
	f := &Fanout{}
	for _, t := range targets {
		if t != nil {
			f.targets = append(f.targets, t)
		}
	}
	return f
}

func (f *Fanout) Notify(userID, scope string) {
	for _, t := range f.targets {
		t.Notify(userID, scope)
	}
}
