package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"sstload/pkg/domain"
)

// AttemptStatus is a load attempt's lifecycle state.
type AttemptStatus string

const (
	StatusStarted    AttemptStatus = "started"
	StatusValidating AttemptStatus = "validating"
	StatusDiffing    AttemptStatus = "diffing"
	StatusCommitting AttemptStatus = "committing"
	StatusCompleted  AttemptStatus = "completed"
	StatusFailed     AttemptStatus = "failed"
)

// attemptTransitions is the single source of truth for the status machine.
// Failed is reachable from every non-terminal state; Completed and Failed
// are terminal.
var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	StatusStarted:    {StatusValidating, StatusFailed},
	StatusValidating: {StatusDiffing, StatusCompleted, StatusFailed},
	StatusDiffing:    {StatusCommitting, StatusFailed},
	StatusCommitting: {StatusCompleted, StatusFailed},
}

// Terminal reports whether no further transitions are allowed.
func (s AttemptStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is legal.
func (s AttemptStatus) CanTransition(next AttemptStatus) bool {
	for _, allowed := range attemptTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AttemptKey identifies a load attempt's input: the same parsed content for
// the same version of the same document yields the same key, which is what
// makes bulk re-runs safe.
type AttemptKey struct {
	State       domain.StateCode
	Kind        domain.DocumentKind
	Label       domain.VersionLabel
	Fingerprint string
}

func (k AttemptKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.State, k.Kind.ShortCode(), k.Label, k.Fingerprint)
}

// LoadAttempt is the status record for one load attempt. It is created when
// the attempt starts and mutated only by the attempt that created it, moving
// to a terminal state exactly once.
type LoadAttempt struct {
	ID         uuid.UUID
	Key        AttemptKey
	Status     AttemptStatus
	Error      string
	Accepted   int
	Rejected   int
	StartedAt  time.Time
	FinishedAt *time.Time
}
