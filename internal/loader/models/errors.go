package models

import (
	"errors"
	"fmt"
	"strings"

	"sstload/pkg/domain"
)

// RecordValidationError describes one rejected record. Individual record
// failures are absorbed up to the batch threshold; they become batch-fatal
// only in aggregate.
type RecordValidationError struct {
	Line   int
	Field  string
	Reason string
}

func (e RecordValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("record %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("record %d: field %q: %s", e.Line, e.Field, e.Reason)
}

// BatchValidationError means the rejected share of a batch exceeded the
// failure-tolerance threshold. Nothing is committed.
type BatchValidationError struct {
	Accepted  int
	Rejected  int
	Threshold float64
	Reasons   []RecordValidationError
}

func (e *BatchValidationError) Error() string {
	total := e.Accepted + e.Rejected
	msg := fmt.Sprintf("batch rejected: %d of %d records failed validation (threshold %.0f%%)",
		e.Rejected, total, e.Threshold*100)
	if len(e.Reasons) == 0 {
		return msg
	}
	reasons := make([]string, 0, len(e.Reasons))
	for _, r := range e.Reasons {
		reasons = append(reasons, r.Error())
	}
	return msg + ": " + strings.Join(reasons, "; ")
}

// TemporalConflictError is an ambiguous reload of an existing version label
// or a write that would violate range non-overlap. Fatal: retrying without
// re-resolving the version plan would fail identically.
type TemporalConflictError struct {
	State  domain.StateCode
	Kind   domain.DocumentKind
	Label  domain.VersionLabel
	Reason string
}

func (e *TemporalConflictError) Error() string {
	return fmt.Sprintf("temporal conflict for %s %s %s: %s",
		e.State, e.Kind.ShortCode(), e.Label, e.Reason)
}

// StructuralMismatchError means the parsed shape does not match the document
// kind's expected fields at all: an upstream contract break, not dirty data.
type StructuralMismatchError struct {
	Kind    domain.DocumentKind
	Missing []string
}

func (e *StructuralMismatchError) Error() string {
	return fmt.Sprintf("parsed records do not match %s shape: no record carries any of the required fields %v",
		e.Kind, e.Missing)
}

// TransientStoreError wraps a store failure that is safe to retry unchanged:
// connection loss, timeout, serialization failure.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store failure in %s: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// IsTransient reports whether the error is safe to retry unchanged.
func IsTransient(err error) bool {
	var t *TransientStoreError
	return errors.As(err, &t)
}

// IsTemporalConflict reports whether the error is a fatal temporal conflict.
func IsTemporalConflict(err error) bool {
	var t *TemporalConflictError
	return errors.As(err, &t)
}
