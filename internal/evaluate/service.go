// Package evaluate ties the threshold rule engine and the conflict detector
// together into the single evaluation entry point used by the HTTP API and
// the async worker.
package evaluate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/conflict"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/repository"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/rules"
)

// Service runs the full evaluation pipeline for a submitted disclosure:
// threshold rules and conflict detection in parallel, alert and trigger-log
// persistence, then event emission.
type Service struct {
	repo     domain.Repository
	orch     *rules.Orchestrator
	detector *conflict.Detector
	bus      domain.EventBus // optional
	cache    domain.Cache    // optional; per-org evaluation counters
	match    domain.MatchConfig
}

// New creates the evaluation service. bus and cache may be nil.
func New(repo domain.Repository, orch *rules.Orchestrator, detector *conflict.Detector, bus domain.EventBus, cache domain.Cache, match domain.MatchConfig) *Service {
	return &Service{
		repo:     repo,
		orch:     orch,
		detector: detector,
		bus:      bus,
		cache:    cache,
		match:    match.Normalize(),
	}
}

// EvaluateDisclosure persists the disclosure (when it is new) and runs both
// evaluation stages. Strategy and rule failures inside the stages degrade
// the result; only being unable to run a whole stage is an error here.
func (s *Service) EvaluateDisclosure(ctx context.Context, d *domain.Disclosure) (*domain.EvaluationResult, error) {
	start := time.Now()

	if d.OrgID == "" || d.PersonID == "" || d.Type == "" {
		return nil, fmt.Errorf("org id, person id and disclosure type are required")
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if d.SubmittedAt.IsZero() {
		d.SubmittedAt = now
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}

	// The worker may evaluate a disclosure the API already stored.
	if _, err := s.repo.GetDisclosure(ctx, d.OrgID, d.ID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("load disclosure: %w", err)
		}
		if err := s.repo.SaveDisclosure(ctx, d.OrgID, d); err != nil {
			return nil, fmt.Errorf("save disclosure: %w", err)
		}
	}

	var (
		wg           sync.WaitGroup
		threshold    *domain.ThresholdResult
		thresholdErr error
		conflicts    *domain.ConflictResult
		conflictsErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		threshold, thresholdErr = s.orch.Evaluate(ctx, d, s.match.Limits)
	}()
	go func() {
		defer wg.Done()
		conflicts, conflictsErr = s.detector.Detect(ctx, conflict.DetectInput{
			OrgID:        d.OrgID,
			PersonID:     d.PersonID,
			DisclosureID: d.ID,
			Entities:     d.EntityNames(),
			Config:       s.match,
		})
	}()
	wg.Wait()

	if thresholdErr != nil {
		return nil, fmt.Errorf("threshold evaluation: %w", thresholdErr)
	}
	if conflictsErr != nil {
		return nil, fmt.Errorf("conflict detection: %w", conflictsErr)
	}

	for _, alert := range conflicts.Conflicts {
		if err := s.repo.SaveAlert(ctx, d.OrgID, alert); err != nil {
			slog.Error("failed to save conflict alert",
				"alert_id", alert.ID,
				"disclosure_id", d.ID,
				"org_id", d.OrgID,
				"error", err,
			)
		}
	}

	s.countEvaluation(ctx, d.OrgID)
	s.emitEvents(ctx, d, threshold, conflicts)

	return &domain.EvaluationResult{
		DisclosureID: d.ID,
		OrgID:        d.OrgID,
		PersonID:     d.PersonID,
		Threshold:    *threshold,
		Conflicts:    *conflicts,
		EvaluatedAt:  now,
		ElapsedMs:    time.Since(start).Milliseconds(),
	}, nil
}

// DetectConflicts runs conflict detection alone for an already stored
// disclosure and persists any resulting alerts.
func (s *Service) DetectConflicts(ctx context.Context, orgID, disclosureID string) (*domain.ConflictResult, error) {
	d, err := s.repo.GetDisclosure(ctx, orgID, disclosureID)
	if err != nil {
		return nil, fmt.Errorf("load disclosure: %w", err)
	}

	result, err := s.detector.Detect(ctx, conflict.DetectInput{
		OrgID:        d.OrgID,
		PersonID:     d.PersonID,
		DisclosureID: d.ID,
		Entities:     d.EntityNames(),
		Config:       s.match,
	})
	if err != nil {
		return nil, err
	}

	for _, alert := range result.Conflicts {
		if err := s.repo.SaveAlert(ctx, orgID, alert); err != nil {
			slog.Error("failed to save conflict alert",
				"alert_id", alert.ID,
				"disclosure_id", disclosureID,
				"error", err,
			)
		}
	}
	return result, nil
}

// countEvaluation bumps the per-org rolling evaluation counter. Best
// effort; a cache outage never affects the evaluation.
func (s *Service) countEvaluation(ctx context.Context, orgID string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.IncrementCounter(ctx, orgID, "evaluations", time.Hour); err != nil {
		slog.Debug("failed to bump evaluation counter", "org_id", orgID, "error", err)
	}
}

// emitEvents publishes the pipeline outcomes. Publishing is best effort;
// the evaluation result stands regardless.
func (s *Service) emitEvents(ctx context.Context, d *domain.Disclosure, threshold *domain.ThresholdResult, conflicts *domain.ConflictResult) {
	if s.bus == nil {
		return
	}

	if conflicts.ConflictCount > 0 {
		payload, err := json.Marshal(domain.ConflictDetectedEvent{
			OrgID:         d.OrgID,
			DisclosureID:  d.ID,
			PersonID:      d.PersonID,
			ConflictCount: conflicts.ConflictCount,
			Conflicts:     conflicts.Conflicts,
		})
		if err == nil {
			if err := s.bus.Publish(ctx, d.OrgID, domain.TopicConflictDetected, payload); err != nil {
				slog.Error("failed to publish conflict event",
					"disclosure_id", d.ID, "error", err)
			}
		}
	}

	if threshold.Triggered {
		payload, err := json.Marshal(domain.ThresholdTriggeredEvent{
			OrgID:             d.OrgID,
			DisclosureID:      d.ID,
			PersonID:          d.PersonID,
			TriggeredRules:    threshold.TriggeredRules,
			RecommendedAction: threshold.RecommendedAction,
		})
		if err == nil {
			if err := s.bus.Publish(ctx, d.OrgID, domain.TopicThresholdTriggered, payload); err != nil {
				slog.Error("failed to publish threshold event",
					"disclosure_id", d.ID, "error", err)
			}
		}
	}
}
