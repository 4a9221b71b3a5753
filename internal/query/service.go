// Package query serves the read-only derived views over the temporal store:
// current documents and items, point-in-time lookups, and compliance-state
// change history between two dates.
package query

import (
	"context"
	"fmt"
	"time"

	"sstload/internal/loader/diff"
	"sstload/internal/loader/models"
	"sstload/internal/loader/store"
	"sstload/pkg/domain"
	"sstload/pkg/platform/sentinel"
)

// ItemState is an item's value under the version whose validity window
// contains the requested date.
type ItemState struct {
	Version *models.DocumentVersion
	Item    models.Item
}

// ChangeEvent is one transition in an item's history: what happened to the
// key when toLabel took effect.
type ChangeEvent struct {
	FromLabel     domain.VersionLabel
	ToLabel       domain.VersionLabel
	EffectiveDate time.Time
	Change        models.ChangeType
	Fields        []string
}

// Service answers temporal queries from the store.
type Service struct {
	store store.Store
}

// New constructs a query Service.
func New(s store.Store) (*Service, error) {
	if s == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Service{store: s}, nil
}

// Current returns the active version and its items for a state and kind.
func (s *Service) Current(ctx context.Context, state domain.StateCode, kind domain.DocumentKind) (*models.DocumentVersion, []models.Item, error) {
	version, err := s.store.CurrentVersion(ctx, state, kind)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.store.ItemsForVersion(ctx, version.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("read current items: %w", err)
	}
	return version, items, nil
}

// ItemAsOf returns an item's state as of an arbitrary date: the version
// whose [effective, valid-to) interval contains the date, and the item's
// value under it. sentinel.ErrNotFound means no version covered the date or
// the key did not exist in the covering version.
func (s *Service) ItemAsOf(ctx context.Context, state domain.StateCode, kind domain.DocumentKind, subtype domain.ItemSubtype, code string, at time.Time) (*ItemState, error) {
	versions, err := s.store.ListVersions(ctx, state, kind)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	for _, v := range versions {
		if !v.Contains(at) {
			continue
		}
		items, err := s.store.ItemsForVersion(ctx, v.ID)
		if err != nil {
			return nil, fmt.Errorf("read items: %w", err)
		}
		key := itemKey(subtype, code)
		for _, it := range items {
			if it.NaturalKey() == key {
				return &ItemState{Version: v, Item: it}, nil
			}
		}
		return nil, sentinel.ErrNotFound
	}
	return nil, sentinel.ErrNotFound
}

// History reports how an item's value changed across consecutive versions
// whose effective dates fall within [from, to]. The first version in range
// reports the item as added if present.
func (s *Service) History(ctx context.Context, state domain.StateCode, kind domain.DocumentKind, subtype domain.ItemSubtype, code string, from, to time.Time) ([]ChangeEvent, error) {
	versions, err := s.store.ListVersions(ctx, state, kind)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}

	key := itemKey(subtype, code)
	var events []ChangeEvent
	var prev *models.DocumentVersion
	var prevItem *models.Item

	for _, v := range versions {
		item, err := s.findItem(ctx, v, key)
		if err != nil {
			return nil, err
		}
		inRange := !v.EffectiveDate.Before(from) && !v.EffectiveDate.After(to)
		if inRange {
			if event := classify(prev, v, prevItem, item); event != nil {
				events = append(events, *event)
			}
		}
		prev = v
		prevItem = item
	}
	return events, nil
}

func (s *Service) findItem(ctx context.Context, v *models.DocumentVersion, key string) (*models.Item, error) {
	items, err := s.store.ItemsForVersion(ctx, v.ID)
	if err != nil {
		return nil, fmt.Errorf("read items for %s: %w", v.Label, err)
	}
	for _, it := range items {
		if it.NaturalKey() == key {
			found := it
			return &found, nil
		}
	}
	return nil, nil
}

// classify compares an item's presence and value across one version
// transition, returning nil for no-change steps.
func classify(prev, cur *models.DocumentVersion, prevItem, curItem *models.Item) *ChangeEvent {
	event := ChangeEvent{ToLabel: cur.Label, EffectiveDate: cur.EffectiveDate}
	if prev != nil {
		event.FromLabel = prev.Label
	}
	switch {
	case prevItem == nil && curItem != nil:
		event.Change = models.ChangeAdded
	case prevItem != nil && curItem == nil:
		event.Change = models.ChangeRemoved
	case prevItem != nil && curItem != nil:
		fields := diff.ChangedFields(*prevItem, *curItem)
		if len(fields) == 0 {
			return nil
		}
		event.Change = models.ChangeModified
		event.Fields = fields
	default:
		return nil
	}
	return &event
}

func itemKey(subtype domain.ItemSubtype, code string) string {
	if subtype == domain.SubtypeNone {
		return code
	}
	return subtype.String() + "/" + code
}
