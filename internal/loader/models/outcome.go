package models

import (
	"time"

	"github.com/google/uuid"

	"sstload/pkg/domain"
)

// ChangeType classifies an item's fate between two consecutive versions.
type ChangeType string

const (
	ChangeAdded     ChangeType = "added"
	ChangeModified  ChangeType = "modified"
	ChangeRemoved   ChangeType = "removed"
	ChangeUnchanged ChangeType = "unchanged"
)

// ItemChange is one classified entry of a version diff.
type ItemChange struct {
	Key    string
	Change ChangeType
	// Fields lists the typed fields that differ, for modified items.
	Fields []string
}

// ChangeSummary is the semantic diff between a newly accepted batch and the
// version it supersedes. Informational and audit-only: it never blocks a
// commit.
type ChangeSummary struct {
	Added     int
	Modified  int
	Removed   int
	Unchanged int
	Changes   []ItemChange
}

// Total returns the number of classified keys.
func (s *ChangeSummary) Total() int {
	return s.Added + s.Modified + s.Removed + s.Unchanged
}

// OutcomeStatus is the terminal disposition of a load request.
type OutcomeStatus string

const (
	// OutcomeLoaded means a new version was committed.
	OutcomeLoaded OutcomeStatus = "loaded"
	// OutcomeAlreadyLoaded means a completed attempt with the same content
	// fingerprint exists; the load was skipped as a no-op.
	OutcomeAlreadyLoaded OutcomeStatus = "already_loaded"
	// OutcomeDuplicate means the incoming label and effective date match the
	// current version exactly; nothing to do.
	OutcomeDuplicate OutcomeStatus = "duplicate"
	// OutcomeFailed means the attempt ended in a fatal error or retry
	// exhaustion.
	OutcomeFailed OutcomeStatus = "failed"
)

// LoadRequest is the engine's entry-point input: already-parsed records for
// one version of one document.
type LoadRequest struct {
	State         domain.StateCode
	Kind          domain.DocumentKind
	Label         domain.VersionLabel
	EffectiveDate time.Time
	Metadata      map[string]string
	Records       []RawRecord
	// AllowBackfill permits insertion into a historical gap when the
	// incoming effective date is not later than the current version's. The
	// store's non-overlap constraint remains the final arbiter.
	AllowBackfill bool
	LoadedBy      string
}

// Outcome is what the caller gets back from a load.
type Outcome struct {
	Status    OutcomeStatus
	VersionID uuid.UUID
	Accepted  int
	Rejected  int
	// RejectedRecords is retained below the failure threshold for operator
	// follow-up; rejection is graceful degradation, not silent loss.
	RejectedRecords []RecordValidationError
	Changes         *ChangeSummary
	Error           string
}
