package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sstload/internal/loader/models"
	"sstload/pkg/domain"
	"sstload/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store and StatusStore for unit tests. It
// enforces the same invariants the PostgreSQL constraints do (non-overlap,
// at most one current version, unique labels) so services can be tested
// against realistic failure behavior without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	versions map[uuid.UUID]*models.DocumentVersion
	items    map[uuid.UUID][]models.Item
	attempts []*models.LoadAttempt
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		versions: make(map[uuid.UUID]*models.DocumentVersion),
		items:    make(map[uuid.UUID][]models.Item),
	}
}

func (s *MemoryStore) CurrentVersion(_ context.Context, state domain.StateCode, kind domain.DocumentKind) (*models.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.versions {
		if v.State == state && v.Kind == kind && v.ValidTo == nil {
			return copyVersion(v), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListVersions(_ context.Context, state domain.StateCode, kind domain.DocumentKind) ([]*models.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var versions []*models.DocumentVersion
	for _, v := range s.versions {
		if v.State == state && v.Kind == kind {
			versions = append(versions, copyVersion(v))
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].EffectiveDate.Before(versions[j].EffectiveDate)
	})
	return versions, nil
}

func (s *MemoryStore) FirstVersionAfter(_ context.Context, state domain.StateCode, kind domain.DocumentKind, after time.Time) (*models.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var next *models.DocumentVersion
	for _, v := range s.versions {
		if v.State != state || v.Kind != kind || !v.EffectiveDate.After(after) {
			continue
		}
		if next == nil || v.EffectiveDate.Before(next.EffectiveDate) {
			next = v
		}
	}
	if next == nil {
		return nil, sentinel.ErrNotFound
	}
	return copyVersion(next), nil
}

func (s *MemoryStore) ItemsForVersion(_ context.Context, versionID uuid.UUID) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, ok := s.items[versionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := make([]models.Item, len(items))
	copy(out, items)
	return out, nil
}

func (s *MemoryStore) CommitFresh(_ context.Context, version *models.DocumentVersion, items []models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(version, items)
}

func (s *MemoryStore) CommitSupersede(_ context.Context, closeID uuid.UUID, closeAt time.Time, version *models.DocumentVersion, items []models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, ok := s.versions[closeID]
	if !ok || prior.ValidTo != nil {
		return &models.TemporalConflictError{
			State: version.State, Kind: version.Kind, Label: version.Label,
			Reason: "version to supersede is no longer current",
		}
	}

	// Close, then insert; restore the prior window if the insert fails so
	// the commit stays atomic.
	closed := closeAt
	prior.ValidTo = &closed
	if err := s.insertLocked(version, items); err != nil {
		prior.ValidTo = nil
		return err
	}
	return nil
}

// insertLocked checks the store-level constraints and writes the version and
// its items. Callers hold the write lock.
func (s *MemoryStore) insertLocked(version *models.DocumentVersion, items []models.Item) error {
	for _, v := range s.versions {
		if v.State != version.State || v.Kind != version.Kind {
			continue
		}
		if v.Label == version.Label {
			return &models.TemporalConflictError{
				State: version.State, Kind: version.Kind, Label: version.Label,
				Reason: "version label already exists",
			}
		}
		if overlaps(v, version) {
			return &models.TemporalConflictError{
				State: version.State, Kind: version.Kind, Label: version.Label,
				Reason: "validity window overlaps version " + v.Label.String(),
			}
		}
		if v.ValidTo == nil && version.ValidTo == nil {
			return &models.TemporalConflictError{
				State: version.State, Kind: version.Kind, Label: version.Label,
				Reason: "another current version already exists",
			}
		}
	}

	stored := copyVersion(version)
	s.versions[stored.ID] = stored
	copied := make([]models.Item, len(items))
	copy(copied, items)
	for i := range copied {
		copied[i].State = version.State
		copied[i].EffectiveDate = version.EffectiveDate
	}
	s.items[stored.ID] = copied
	return nil
}

// overlaps mirrors the daterange && semantics of the PostgreSQL exclusion
// constraint: [effective, validTo) with a nil validTo unbounded above.
func overlaps(a, b *models.DocumentVersion) bool {
	aOpen := a.ValidTo == nil
	bOpen := b.ValidTo == nil
	if aOpen && bOpen {
		return true
	}
	if aOpen {
		return b.ValidTo.After(a.EffectiveDate)
	}
	if bOpen {
		return a.ValidTo.After(b.EffectiveDate)
	}
	return a.EffectiveDate.Before(*b.ValidTo) && b.EffectiveDate.Before(*a.ValidTo)
}

func copyVersion(v *models.DocumentVersion) *models.DocumentVersion {
	out := *v
	if v.ValidTo != nil {
		t := *v.ValidTo
		out.ValidTo = &t
	}
	if v.Metadata != nil {
		out.Metadata = make(map[string]string, len(v.Metadata))
		for k, val := range v.Metadata {
			out.Metadata[k] = val
		}
	}
	return &out
}
