// Package resolve decides how an incoming document version relates to the
// state's current version: first load, duplicate, supersession, or
// out-of-order conflict. The decision is always made against a fresh store
// read, never cached state.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sstload/internal/loader/models"
	"sstload/internal/loader/store"
	"sstload/pkg/domain"
	"sstload/pkg/platform/sentinel"
)

// Decision tags a write plan.
type Decision string

const (
	// DecisionFresh inserts the first version; nothing to close.
	DecisionFresh Decision = "fresh"
	// DecisionSupersede closes the current version at the incoming
	// effective date and installs the incoming version as current.
	DecisionSupersede Decision = "supersede"
	// DecisionDuplicateNoop means the label and effective date match the
	// current version exactly: already loaded, nothing to do.
	DecisionDuplicateNoop Decision = "duplicate_noop"
	// DecisionBackfill inserts into a historical gap, closed at the next
	// later version's effective date. Only taken on explicit request; the
	// store's non-overlap constraint is the final arbiter.
	DecisionBackfill Decision = "backfill"
)

// Plan is the resolver's output: what the Temporal Writer should do.
type Plan struct {
	Decision Decision
	// Prior is the version being superseded, for change detection.
	Prior *models.DocumentVersion
	// CloseID and CloseAt identify the supersession: close Prior at the
	// incoming effective date.
	CloseID uuid.UUID
	CloseAt time.Time
	// ValidTo closes a backfilled version at the next version's effective
	// date; nil for all other decisions.
	ValidTo *time.Time
}

// Request is the incoming version identity to resolve.
type Request struct {
	State         domain.StateCode
	Kind          domain.DocumentKind
	Label         domain.VersionLabel
	EffectiveDate time.Time
	AllowBackfill bool
}

// Resolver reads current-version state and produces write plans.
type Resolver struct {
	store store.Store
}

// New constructs a Resolver.
func New(s store.Store) (*Resolver, error) {
	if s == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Resolver{store: s}, nil
}

// Resolve applies the decision table. Ambiguous reloads and temporal
// conflicts come back as *models.TemporalConflictError; everything else
// yields a plan.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Plan, error) {
	current, err := r.store.CurrentVersion(ctx, req.State, req.Kind)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Plan{Decision: DecisionFresh}, nil
		}
		return Plan{}, fmt.Errorf("resolve current version: %w", err)
	}

	if current.Label == req.Label {
		if sameDate(current.EffectiveDate, req.EffectiveDate) {
			return Plan{Decision: DecisionDuplicateNoop, Prior: current}, nil
		}
		// A label denotes one immutable content set; reloading it with a
		// different effective date is ambiguous, never a silent bump.
		return Plan{}, &models.TemporalConflictError{
			State: req.State, Kind: req.Kind, Label: req.Label,
			Reason: fmt.Sprintf("label already loaded with effective date %s, incoming %s",
				current.EffectiveDate.Format("2006-01-02"), req.EffectiveDate.Format("2006-01-02")),
		}
	}

	if req.EffectiveDate.After(current.EffectiveDate) {
		return Plan{
			Decision: DecisionSupersede,
			Prior:    current,
			CloseID:  current.ID,
			CloseAt:  req.EffectiveDate,
		}, nil
	}

	if !req.AllowBackfill {
		return Plan{}, &models.TemporalConflictError{
			State: req.State, Kind: req.Kind, Label: req.Label,
			Reason: fmt.Sprintf("effective date %s is not after current version %s (%s); backfill not requested",
				req.EffectiveDate.Format("2006-01-02"), current.Label,
				current.EffectiveDate.Format("2006-01-02")),
		}
	}

	next, err := r.store.FirstVersionAfter(ctx, req.State, req.Kind, req.EffectiveDate)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Unreachable while a current version exists, but the store is
			// the authority; surface it rather than guess.
			return Plan{}, fmt.Errorf("resolve backfill window: no later version found")
		}
		return Plan{}, fmt.Errorf("resolve backfill window: %w", err)
	}
	validTo := next.EffectiveDate
	return Plan{Decision: DecisionBackfill, ValidTo: &validTo}, nil
}

// sameDate compares calendar dates, ignoring time-of-day and zone drift from
// transport encodings.
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
