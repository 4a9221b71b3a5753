package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"sstload/internal/loader/models"
	"sstload/internal/loader/store"
	"sstload/pkg/domain"
)

type ResolverSuite struct {
	suite.Suite
	store    *store.MemoryStore
	resolver *Resolver
	ctx      context.Context
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.store = store.NewMemory()
	var err error
	s.resolver, err = New(s.store)
	s.Require().NoError(err)
	s.ctx = context.Background()
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *ResolverSuite) commitVersion(label string, effective time.Time) *models.DocumentVersion {
	current, err := s.store.CurrentVersion(s.ctx, "OH", domain.KindDefinitions)
	version := &models.DocumentVersion{
		ID:            uuid.New(),
		State:         "OH",
		Kind:          domain.KindDefinitions,
		Label:         domain.VersionLabel(label),
		EffectiveDate: effective,
		LoadedAt:      time.Now(),
	}
	if err != nil {
		s.Require().NoError(s.store.CommitFresh(s.ctx, version, nil))
	} else {
		s.Require().NoError(s.store.CommitSupersede(s.ctx, current.ID, effective, version, nil))
	}
	return version
}

func (s *ResolverSuite) request(label string, effective time.Time) Request {
	return Request{
		State: "OH", Kind: domain.KindDefinitions,
		Label: domain.VersionLabel(label), EffectiveDate: effective,
	}
}

func (s *ResolverSuite) TestNew() {
	_, err := New(nil)
	s.Error(err)
}

// TestDecisionTable exercises every row of the version decision table.
func (s *ResolverSuite) TestDecisionTable() {
	s.Run("no current version resolves fresh", func() {
		plan, err := s.resolver.Resolve(s.ctx, s.request("2024.1", date(2024, 6, 1)))
		s.Require().NoError(err)
		s.Equal(DecisionFresh, plan.Decision)
		s.Nil(plan.Prior)
	})

	s.Run("same label and date is a duplicate no-op", func() {
		v := s.commitVersion("2024.1", date(2024, 6, 1))

		plan, err := s.resolver.Resolve(s.ctx, s.request("2024.1", date(2024, 6, 1)))
		s.Require().NoError(err)
		s.Equal(DecisionDuplicateNoop, plan.Decision)
		s.Require().NotNil(plan.Prior)
		s.Equal(v.ID, plan.Prior.ID)
	})

	s.Run("same label with a different date is a conflict", func() {
		_, err := s.resolver.Resolve(s.ctx, s.request("2024.1", date(2024, 7, 1)))
		s.Require().Error(err)
		s.True(models.IsTemporalConflict(err))
	})

	s.Run("later date supersedes the current version", func() {
		plan, err := s.resolver.Resolve(s.ctx, s.request("2025.1", date(2025, 1, 1)))
		s.Require().NoError(err)
		s.Equal(DecisionSupersede, plan.Decision)
		s.Require().NotNil(plan.Prior)
		s.Equal(domain.VersionLabel("2024.1"), plan.Prior.Label)
		s.Equal(plan.Prior.ID, plan.CloseID)
		s.Equal(date(2025, 1, 1), plan.CloseAt)
	})

	s.Run("earlier date without backfill is a conflict", func() {
		_, err := s.resolver.Resolve(s.ctx, s.request("2023.1", date(2023, 6, 1)))
		s.Require().Error(err)
		s.True(models.IsTemporalConflict(err))
	})

	s.Run("equal date without backfill is a conflict", func() {
		_, err := s.resolver.Resolve(s.ctx, s.request("2024.other", date(2024, 6, 1)))
		s.Require().Error(err)
		s.True(models.IsTemporalConflict(err))
	})
}

// TestBackfill verifies gap insertion closes the new version at the next
// later version's effective date.
func (s *ResolverSuite) TestBackfill() {
	s.commitVersion("2023.1", date(2023, 6, 1))
	s.commitVersion("2024.1", date(2024, 6, 1))

	req := s.request("2022.1", date(2022, 1, 1))
	req.AllowBackfill = true

	plan, err := s.resolver.Resolve(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(DecisionBackfill, plan.Decision)
	s.Require().NotNil(plan.ValidTo)
	s.Equal(date(2023, 6, 1), *plan.ValidTo)
}

// TestFreshReadPerDecision verifies the resolver never caches current-version
// state across calls.
func (s *ResolverSuite) TestFreshReadPerDecision() {
	s.commitVersion("2023.1", date(2023, 6, 1))
	plan, err := s.resolver.Resolve(s.ctx, s.request("2024.1", date(2024, 6, 1)))
	s.Require().NoError(err)
	s.Equal(DecisionSupersede, plan.Decision)

	// A competing load lands first; the stale plan's close target is no
	// longer current and a new resolution must reflect that.
	s.commitVersion("2024.0", date(2024, 3, 1))

	plan, err = s.resolver.Resolve(s.ctx, s.request("2024.1", date(2024, 6, 1)))
	s.Require().NoError(err)
	s.Equal(DecisionSupersede, plan.Decision)
	s.Equal(domain.VersionLabel("2024.0"), plan.Prior.Label)
}
