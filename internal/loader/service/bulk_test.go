package service

import (
	"fmt"
	"time"

	"sstload/internal/loader/models"
	"sstload/pkg/domain"
)

func (s *ServiceSuite) TestLoadAll() {
	s.Run("loads independent pairs in parallel", func() {
		states := []string{"OH", "MI", "IN", "WI", "MN", "IA", "KS", "NE"}
		reqs := make([]models.LoadRequest, 0, len(states))
		for _, state := range states {
			req := request("2024.1", date(2024, 6, 1), defRecord(1, "A", "Item A"))
			req.State = domain.StateCode(state)
			reqs = append(reqs, req)
		}

		results := s.service.LoadAll(s.ctx, reqs)
		s.Require().Len(results, len(states))
		for _, res := range results {
			s.Require().NoError(res.Err, "state %s", res.Request.State)
			s.Equal(models.OutcomeLoaded, res.Outcome.Status)
		}

		for _, state := range states {
			_, err := s.store.CurrentVersion(s.ctx, domain.StateCode(state), domain.KindDefinitions)
			s.NoError(err)
		}
	})

	s.Run("one failing request does not abort the batch", func() {
		good := request("2025.1", date(2025, 6, 1), defRecord(1, "A", "Item A"))
		good.State = "TN"

		conflicting := request("2020.1", date(2020, 1, 1), defRecord(1, "A", "Item A"))
		conflicting.State = "OH" // earlier than OH's current version

		results := s.service.LoadAll(s.ctx, []models.LoadRequest{good, conflicting})
		s.Require().Len(results, 2)

		byState := map[domain.StateCode]BulkResult{}
		for _, res := range results {
			byState[res.Request.State] = res
		}
		s.NoError(byState["TN"].Err)
		s.Equal(models.OutcomeLoaded, byState["TN"].Outcome.Status)

		s.Error(byState["OH"].Err)
		s.True(models.IsTemporalConflict(byState["OH"].Err))
		s.Equal(models.OutcomeFailed, byState["OH"].Outcome.Status)
	})

	s.Run("results keep request order", func() {
		var reqs []models.LoadRequest
		for i := 0; i < 6; i++ {
			req := request(fmt.Sprintf("2026.%d", i), date(2026, time.Month(i+1), 1), defRecord(1, "A", "Item A"))
			req.State = "KY"
			reqs = append(reqs, req)
		}
		results := s.service.LoadAll(s.ctx, reqs)
		s.Require().Len(results, len(reqs))
		for i, res := range results {
			s.Equal(reqs[i].Label, res.Request.Label)
		}
	})
}
