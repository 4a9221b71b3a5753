// Package service orchestrates one load attempt end to end: fingerprint,
// status consult, validation, version resolution, change detection, and the
// retried atomic commit.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sstload/internal/loader/diff"
	"sstload/internal/loader/events"
	"sstload/internal/loader/fingerprint"
	"sstload/internal/loader/models"
	"sstload/internal/loader/resolve"
	"sstload/internal/loader/status"
	"sstload/internal/loader/store"
	"sstload/internal/loader/validate"
	"sstload/internal/platform/metrics"
	"sstload/pkg/platform/retry"
)

// Config tunes the loader's policies.
type Config struct {
	// Threshold is the batch failure tolerance; zero means the 10% default.
	Threshold float64
	// CommitAttempts bounds the retried commit; zero means three.
	CommitAttempts int
	// CommitBackoff seeds the exponential backoff; zero means one second.
	CommitBackoff time.Duration
	// Workers bounds the bulk runner's concurrency; zero means four.
	Workers int
	// Identity is stamped as loaded_by on versions whose request does not
	// name a loader.
	Identity string
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = validate.DefaultThreshold
	}
	if c.CommitAttempts <= 0 {
		c.CommitAttempts = 3
	}
	if c.CommitBackoff <= 0 {
		c.CommitBackoff = time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Identity == "" {
		c.Identity = "sstload"
	}
	return c
}

// Service is the load entry point exposed to external orchestration.
type Service struct {
	cfg       Config
	store     store.Store
	validator *validate.Validator
	resolver  *resolve.Resolver
	tracker   *status.Tracker
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// New constructs the loader service.
func New(cfg Config, s store.Store, tracker *status.Tracker, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) (*Service, error) {
	if s == nil {
		return nil, fmt.Errorf("store is required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("status tracker is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	cfg = cfg.withDefaults()
	resolver, err := resolve.New(s)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:       cfg,
		store:     s,
		validator: validate.New(cfg.Threshold),
		resolver:  resolver,
		tracker:   tracker,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Load runs one attempt for an already-parsed document. On fatal failure it
// returns both a failed Outcome and the underlying error; the attempt's
// terminal state is always recorded in the status tracker first.
func (s *Service) Load(ctx context.Context, req models.LoadRequest) (*models.Outcome, error) {
	start := s.now()
	if err := checkRequest(req); err != nil {
		return &models.Outcome{Status: models.OutcomeFailed, Error: err.Error()}, err
	}
	req.EffectiveDate = truncateDate(req.EffectiveDate)
	if req.LoadedBy == "" {
		req.LoadedBy = s.cfg.Identity
	}

	key := models.AttemptKey{
		State: req.State, Kind: req.Kind, Label: req.Label,
		Fingerprint: fingerprint.Of(req.Records),
	}
	log := s.logger.With(
		"state", req.State.String(),
		"kind", req.Kind.ShortCode(),
		"label", req.Label.String(),
		"fingerprint", key.Fingerprint[:12],
	)

	attempt, alreadyLoaded, err := s.tracker.Begin(ctx, key)
	if err != nil {
		return &models.Outcome{Status: models.OutcomeFailed, Error: err.Error()}, err
	}
	if alreadyLoaded {
		log.InfoContext(ctx, "load skipped, content already loaded")
		s.metrics.ObserveLoad(req.Kind.String(), string(models.OutcomeAlreadyLoaded), s.since(start))
		return &models.Outcome{
			Status:   models.OutcomeAlreadyLoaded,
			Accepted: attempt.Accepted,
			Rejected: attempt.Rejected,
		}, nil
	}

	outcome, err := s.run(ctx, log, attempt, req)
	if err != nil {
		if ferr := s.tracker.Fail(ctx, attempt, err); ferr != nil {
			log.ErrorContext(ctx, "failed to record attempt failure", "error", ferr)
		}
		s.publish(ctx, log, attempt)
		s.metrics.ObserveLoad(req.Kind.String(), string(models.OutcomeFailed), s.since(start))
		log.ErrorContext(ctx, "load failed", "error", err)
		if outcome == nil {
			outcome = &models.Outcome{}
		}
		outcome.Status = models.OutcomeFailed
		outcome.Error = err.Error()
		return outcome, err
	}

	s.publish(ctx, log, attempt)
	s.metrics.ObserveLoad(req.Kind.String(), string(outcome.Status), s.since(start))
	log.InfoContext(ctx, "load finished",
		"status", string(outcome.Status),
		"accepted", outcome.Accepted,
		"rejected", outcome.Rejected,
	)
	return outcome, nil
}

// run executes the attempt pipeline. Any returned error is fatal for this
// attempt; transient store failures have already been retried inside the
// commit step.
func (s *Service) run(ctx context.Context, log *slog.Logger, attempt *models.LoadAttempt, req models.LoadRequest) (*models.Outcome, error) {
	if err := s.tracker.Transition(ctx, attempt, models.StatusValidating); err != nil {
		return nil, err
	}
	result, err := s.validator.Validate(req.Kind, req.Records)
	if err != nil {
		return nil, err
	}
	attempt.Accepted = len(result.Accepted)
	attempt.Rejected = len(result.Rejected)
	s.metrics.ObserveRows(req.Kind.String(), len(result.Accepted), len(result.Rejected))
	if n := len(result.Rejected); n > 0 {
		log.WarnContext(ctx, "records rejected below threshold", "rejected", n)
	}

	plan, err := s.resolver.Resolve(ctx, resolve.Request{
		State: req.State, Kind: req.Kind, Label: req.Label,
		EffectiveDate: req.EffectiveDate, AllowBackfill: req.AllowBackfill,
	})
	if err != nil {
		return nil, err
	}

	if plan.Decision == resolve.DecisionDuplicateNoop {
		if err := s.tracker.Complete(ctx, attempt, len(result.Accepted), len(result.Rejected)); err != nil {
			return nil, err
		}
		return &models.Outcome{
			Status:          models.OutcomeDuplicate,
			VersionID:       plan.Prior.ID,
			Accepted:        len(result.Accepted),
			Rejected:        len(result.Rejected),
			RejectedRecords: result.Reasons(),
		}, nil
	}

	if err := s.tracker.Transition(ctx, attempt, models.StatusDiffing); err != nil {
		return nil, err
	}
	changes, err := s.detectChanges(ctx, plan, result.Accepted)
	if err != nil {
		return nil, err
	}
	if changes != nil {
		s.metrics.ObserveChanges(req.Kind.String(), metrics.ChangeCounts{
			Added: changes.Added, Modified: changes.Modified,
			Removed: changes.Removed, Unchanged: changes.Unchanged,
		})
	}

	if err := s.tracker.Transition(ctx, attempt, models.StatusCommitting); err != nil {
		return nil, err
	}
	version := &models.DocumentVersion{
		ID:            uuid.New(),
		State:         req.State,
		Kind:          req.Kind,
		Label:         req.Label,
		EffectiveDate: req.EffectiveDate,
		ValidTo:       plan.ValidTo,
		Metadata:      req.Metadata,
		LoadedAt:      s.now(),
		LoadedBy:      req.LoadedBy,
	}
	if err := s.commit(ctx, plan, version, result.Accepted); err != nil {
		return nil, err
	}

	if err := s.tracker.Complete(ctx, attempt, len(result.Accepted), len(result.Rejected)); err != nil {
		return nil, err
	}
	return &models.Outcome{
		Status:          models.OutcomeLoaded,
		VersionID:       version.ID,
		Accepted:        len(result.Accepted),
		Rejected:        len(result.Rejected),
		RejectedRecords: result.Reasons(),
		Changes:         changes,
	}, nil
}

// detectChanges diffs the accepted batch against the version being
// superseded. Fresh and backfill loads have nothing to compare against.
func (s *Service) detectChanges(ctx context.Context, plan resolve.Plan, accepted []models.Item) (*models.ChangeSummary, error) {
	if plan.Decision != resolve.DecisionSupersede {
		return nil, nil
	}
	oldItems, err := s.store.ItemsForVersion(ctx, plan.Prior.ID)
	if err != nil {
		return nil, fmt.Errorf("read superseded items: %w", err)
	}
	return diff.Compute(oldItems, accepted), nil
}

// commit executes the write plan under the retry policy. Each attempt is
// independently atomic, so retries never compound partial writes.
func (s *Service) commit(ctx context.Context, plan resolve.Plan, version *models.DocumentVersion, items []models.Item) error {
	policy := retry.Policy{
		MaxAttempts:     s.cfg.CommitAttempts,
		InitialInterval: s.cfg.CommitBackoff,
		Classify: func(err error) retry.Class {
			if models.IsTransient(err) {
				s.metrics.ObserveRetry()
				return retry.ClassTransient
			}
			return retry.ClassFatal
		},
	}
	return retry.Do(ctx, policy, func(ctx context.Context) error {
		switch plan.Decision {
		case resolve.DecisionSupersede:
			return s.store.CommitSupersede(ctx, plan.CloseID, plan.CloseAt, version, items)
		default:
			return s.store.CommitFresh(ctx, version, items)
		}
	})
}

// publish sends the attempt's current state to monitoring, best-effort.
func (s *Service) publish(ctx context.Context, log *slog.Logger, attempt *models.LoadAttempt) {
	if err := s.publisher.Publish(ctx, events.FromAttempt(attempt, s.now())); err != nil {
		log.WarnContext(ctx, "failed to publish load event", "error", err)
	}
}

func (s *Service) since(start time.Time) float64 {
	return s.now().Sub(start).Seconds()
}

func checkRequest(req models.LoadRequest) error {
	if !req.Kind.IsValid() {
		return fmt.Errorf("unsupported document kind %q", req.Kind)
	}
	if req.State == "" {
		return fmt.Errorf("state code is required")
	}
	if req.Label == "" {
		return fmt.Errorf("version label is required")
	}
	if req.EffectiveDate.IsZero() {
		return fmt.Errorf("effective date is required")
	}
	return nil
}

// truncateDate drops time-of-day so validity windows align on calendar
// dates, matching the store's DATE columns.
func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
