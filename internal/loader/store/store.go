// Package store persists document versions, their items, and load-attempt
// status records. The PostgreSQL implementation is authoritative; the
// in-memory implementation mirrors its invariants for unit tests.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sstload/internal/loader/models"
	"sstload/pkg/domain"
)

// Store is the temporal document store. CommitFresh and CommitSupersede are
// the Temporal Writer: each executes as one atomic unit, and the store-level
// non-overlap constraint is the final correctness backstop against races.
type Store interface {
	// CurrentVersion returns the version with no close date for the pair,
	// or sentinel.ErrNotFound. Callers must re-read immediately before
	// deciding a write plan; no cached copy is authoritative.
	CurrentVersion(ctx context.Context, state domain.StateCode, kind domain.DocumentKind) (*models.DocumentVersion, error)

	// ListVersions returns all versions for the pair in effective-date
	// order.
	ListVersions(ctx context.Context, state domain.StateCode, kind domain.DocumentKind) ([]*models.DocumentVersion, error)

	// FirstVersionAfter returns the earliest version whose effective date is
	// strictly later than after, or sentinel.ErrNotFound.
	FirstVersionAfter(ctx context.Context, state domain.StateCode, kind domain.DocumentKind, after time.Time) (*models.DocumentVersion, error)

	// ItemsForVersion returns the version's items.
	ItemsForVersion(ctx context.Context, versionID uuid.UUID) ([]models.Item, error)

	// CommitFresh inserts a first version and its items in one transaction.
	CommitFresh(ctx context.Context, version *models.DocumentVersion, items []models.Item) error

	// CommitSupersede closes the prior current version at closeAt and
	// inserts the new version and its items, all in one transaction. If the
	// version to close is no longer open, the commit fails with a temporal
	// conflict: the caller lost a supersession race and must re-resolve.
	CommitSupersede(ctx context.Context, closeID uuid.UUID, closeAt time.Time, version *models.DocumentVersion, items []models.Item) error
}

// StatusStore persists load-attempt lifecycle records.
type StatusStore interface {
	// FindAttempt returns the most recent attempt for the key, or
	// sentinel.ErrNotFound.
	FindAttempt(ctx context.Context, key models.AttemptKey) (*models.LoadAttempt, error)

	// CreateAttempt records a newly started attempt.
	CreateAttempt(ctx context.Context, attempt *models.LoadAttempt) error

	// UpdateAttempt persists a status transition for an existing attempt.
	UpdateAttempt(ctx context.Context, attempt *models.LoadAttempt) error

	// RecentAttempts returns the latest attempts across all keys, newest
	// first.
	RecentAttempts(ctx context.Context, limit int) ([]*models.LoadAttempt, error)
}
