// Package status records per-attempt lifecycle state keyed by content
// fingerprint. Consulting it before a load is what makes bulk re-runs over
// the same inputs safe.
package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sstload/internal/loader/models"
	"sstload/internal/loader/store"
	"sstload/pkg/platform/sentinel"
)

// Tracker manages load-attempt status records and enforces the attempt
// state machine.
type Tracker struct {
	store store.StatusStore
	now   func() time.Time
}

// New constructs a Tracker.
func New(s store.StatusStore) (*Tracker, error) {
	if s == nil {
		return nil, fmt.Errorf("status store is required")
	}
	return &Tracker{store: s, now: time.Now}, nil
}

// Begin consults prior attempts for the key and, unless one already
// completed, records a new attempt in StatusStarted. The second return is
// true when the load should be skipped as an already-loaded no-op.
func (t *Tracker) Begin(ctx context.Context, key models.AttemptKey) (*models.LoadAttempt, bool, error) {
	prior, err := t.store.FindAttempt(ctx, key)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, fmt.Errorf("consult prior attempts: %w", err)
	}
	if prior != nil && prior.Status == models.StatusCompleted {
		return prior, true, nil
	}

	attempt := &models.LoadAttempt{
		ID:        uuid.New(),
		Key:       key,
		Status:    models.StatusStarted,
		StartedAt: t.now(),
	}
	if err := t.store.CreateAttempt(ctx, attempt); err != nil {
		return nil, false, fmt.Errorf("record attempt start: %w", err)
	}
	return attempt, false, nil
}

// Transition moves the attempt to the next lifecycle state, rejecting
// illegal transitions.
func (t *Tracker) Transition(ctx context.Context, attempt *models.LoadAttempt, next models.AttemptStatus) error {
	if !attempt.Status.CanTransition(next) {
		return fmt.Errorf("illegal attempt transition %s -> %s: %w",
			attempt.Status, next, sentinel.ErrInvalidState)
	}
	attempt.Status = next
	if next.Terminal() {
		finished := t.now()
		attempt.FinishedAt = &finished
	}
	if err := t.store.UpdateAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("record attempt transition: %w", err)
	}
	return nil
}

// Complete marks the attempt terminal-successful with its row counts.
func (t *Tracker) Complete(ctx context.Context, attempt *models.LoadAttempt, accepted, rejected int) error {
	attempt.Accepted = accepted
	attempt.Rejected = rejected
	return t.Transition(ctx, attempt, models.StatusCompleted)
}

// Fail marks the attempt terminal-failed with a human-readable cause. Safe
// to call from any non-terminal state.
func (t *Tracker) Fail(ctx context.Context, attempt *models.LoadAttempt, cause error) error {
	if attempt == nil || attempt.Status.Terminal() {
		return nil
	}
	if cause != nil {
		attempt.Error = cause.Error()
	}
	return t.Transition(ctx, attempt, models.StatusFailed)
}
