package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"sstload/internal/loader/models"
)

// BulkResult pairs one request with its outcome.
type BulkResult struct {
	Request models.LoadRequest
	Outcome *models.Outcome
	Err     error
}

// LoadAll runs independent load requests through a bounded worker pool.
// Attempts for different (state, kind) pairs proceed in parallel; failures
// are collected per request rather than aborting the batch, since each
// attempt is independently atomic and status-tracked.
func (s *Service) LoadAll(ctx context.Context, reqs []models.LoadRequest) []BulkResult {
	results := make([]BulkResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			outcome, err := s.Load(gctx, req)
			results[i] = BulkResult{Request: req, Outcome: outcome, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
