package store

import (
	"context"
	"sort"

	"sstload/internal/loader/models"
	"sstload/pkg/platform/sentinel"
)

func (s *MemoryStore) FindAttempt(_ context.Context, key models.AttemptKey) (*models.LoadAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.LoadAttempt
	for _, a := range s.attempts {
		if a.Key != key {
			continue
		}
		if latest == nil || a.StartedAt.After(latest.StartedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return copyAttempt(latest), nil
}

func (s *MemoryStore) CreateAttempt(_ context.Context, attempt *models.LoadAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, copyAttempt(attempt))
	return nil
}

func (s *MemoryStore) UpdateAttempt(_ context.Context, attempt *models.LoadAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.attempts {
		if a.ID == attempt.ID {
			s.attempts[i] = copyAttempt(attempt)
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *MemoryStore) RecentAttempts(_ context.Context, limit int) ([]*models.LoadAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	attempts := make([]*models.LoadAttempt, 0, len(s.attempts))
	for _, a := range s.attempts {
		attempts = append(attempts, copyAttempt(a))
	}
	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].StartedAt.After(attempts[j].StartedAt)
	})
	if len(attempts) > limit {
		attempts = attempts[:limit]
	}
	return attempts, nil
}

func copyAttempt(a *models.LoadAttempt) *models.LoadAttempt {
	out := *a
	if a.FinishedAt != nil {
		t := *a.FinishedAt
		out.FinishedAt = &t
	}
	return &out
}
