package models

import (
	"time"

	"github.com/google/uuid"

	"sstload/pkg/domain"
	"sstload/pkg/fieldmap"
)

// Jurisdiction is static reference data seeded with the schema.
type Jurisdiction struct {
	Code domain.StateCode
	Name string
}

// DocumentVersion is the temporal anchor: one immutable, dated snapshot of a
// document kind's content for one state.
//
// Invariant: across all versions for a (state, kind) pair, the
// [EffectiveDate, ValidTo) intervals never overlap, and at most one version
// has a nil ValidTo. The only mutation permitted after creation is setting
// ValidTo when a later version supersedes this one; corrections require a
// new version, never an in-place edit.
type DocumentVersion struct {
	ID            uuid.UUID
	State         domain.StateCode
	Kind          domain.DocumentKind
	Label         domain.VersionLabel
	EffectiveDate time.Time
	ValidTo       *time.Time
	Metadata      map[string]string
	LoadedAt      time.Time
	LoadedBy      string
}

// Lifecycle is the in-process view of a version's validity window, always
// derived from a fresh store read and never cached across attempts.
type Lifecycle struct {
	Active       bool
	SupersededAt time.Time
}

// LifecycleOf derives the two-state lifecycle tag from the stored nullable
// close date.
func (v *DocumentVersion) LifecycleOf() Lifecycle {
	if v.ValidTo == nil {
		return Lifecycle{Active: true}
	}
	return Lifecycle{SupersededAt: *v.ValidTo}
}

// Contains reports whether the version's validity window covers the date.
func (v *DocumentVersion) Contains(at time.Time) bool {
	if at.Before(v.EffectiveDate) {
		return false
	}
	return v.ValidTo == nil || at.Before(*v.ValidTo)
}

// Item is one normalized row of a document version. The shape is shared
// across the three document kinds; fields a kind does not use stay at their
// zero values. Items are immutable: a semantic change to a code shows up as
// a different row under a newer version.
//
// Invariant: State and EffectiveDate always equal the owning version's
// values (denormalized for query locality).
type Item struct {
	Code    string
	Subtype domain.ItemSubtype

	Taxable   *bool
	Exempt    *bool
	Rate      *float64
	Threshold *float64

	Answer       string
	QuestionText string
	GroupName    string

	SSTDefinition   string
	StateDefinition string

	Citation string
	Notes    string

	// Extra carries source attributes not promoted to typed fields. It is
	// excluded from the semantic diff.
	Extra *fieldmap.Map

	State         domain.StateCode
	EffectiveDate time.Time
}

// NaturalKey identifies the item within its version: the code, qualified by
// subtype where the document kind has subtypes.
func (it Item) NaturalKey() string {
	if it.Subtype == domain.SubtypeNone {
		return it.Code
	}
	return string(it.Subtype) + "/" + it.Code
}

// RawRecord is one parsed field-value record as produced by the upstream
// parser, before validation or coercion. Field order is preserved so
// unpromoted attributes keep a stable order in the extension map.
type RawRecord struct {
	// Line is the record's position in the source document, for operator
	// follow-up on rejections.
	Line   int
	Fields *fieldmap.Map
}

// Get returns the named field rendered as text, with presence.
func (r RawRecord) Get(name string) (string, bool) {
	v, ok := r.Fields.Get(name)
	if !ok {
		return "", false
	}
	return v.Render(), true
}
