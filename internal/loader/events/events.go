// Package events publishes load-lifecycle notifications for operator
// monitoring. Publishing is best-effort: a monitoring outage must never
// block or fail a load.
package events

import (
	"context"
	"time"

	"sstload/internal/loader/models"
)

// Event is one load-lifecycle notification.
type Event struct {
	State       string               `json:"state"`
	Kind        string               `json:"kind"`
	Label       string               `json:"label"`
	Fingerprint string               `json:"fingerprint"`
	Status      models.AttemptStatus `json:"status"`
	Error       string               `json:"error,omitempty"`
	Accepted    int                  `json:"accepted"`
	Rejected    int                  `json:"rejected"`
	At          time.Time            `json:"at"`
}

// FromAttempt builds an Event snapshot of an attempt's current state.
func FromAttempt(attempt *models.LoadAttempt, at time.Time) Event {
	return Event{
		State:       attempt.Key.State.String(),
		Kind:        attempt.Key.Kind.String(),
		Label:       attempt.Key.Label.String(),
		Fingerprint: attempt.Key.Fingerprint,
		Status:      attempt.Status,
		Error:       attempt.Error,
		Accepted:    attempt.Accepted,
		Rejected:    attempt.Rejected,
		At:          at,
	}
}

// Publisher delivers events to whatever is watching loads.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events; used when no monitoring backend is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
