package conflict

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
)

// Detector fans a disclosure out to every strategy, filters the candidates
// through the exclusion registry and assembles alerts. Strategies only read
// during detection, so they run concurrently; exclusion checks run after
// collection because a one-time exclusion deactivates itself when it fires.
type Detector struct {
	strategies []Strategy
	exclusions ExclusionChecker
}

// NewDetector creates a detector over the given strategies. exclusions may
// be nil, in which case no candidate is suppressed.
func NewDetector(exclusions ExclusionChecker, strategies ...Strategy) *Detector {
	return &Detector{
		strategies: strategies,
		exclusions: exclusions,
	}
}

// DefaultStrategies wires the four standard strategies against a
// repository. cache may be nil.
func DefaultStrategies(repo domain.Repository, cache domain.Cache) []Strategy {
	return []Strategy{
		NewSelfDealingStrategy(repo),
		NewHRISStrategy(repo, cache),
		NewPriorCaseStrategy(repo),
		NewRelationshipStrategy(repo),
	}
}

// Detect runs every strategy for the disclosure and returns unpersisted
// alerts alongside the exclusion tally. A failing strategy is logged and
// skipped; it never fails the whole detection.
func (d *Detector) Detect(ctx context.Context, in DetectInput) (*domain.ConflictResult, error) {
	in.Config = in.Config.Normalize()

	// One slot per strategy keeps result ordering deterministic.
	collected := make([][]Candidate, len(d.strategies))
	var wg sync.WaitGroup

	for i, strat := range d.strategies {
		wg.Add(1)
		go func(idx int, s Strategy) {
			defer wg.Done()
			cands, err := s.Detect(ctx, in)
			if err != nil {
				slog.Error("conflict strategy failed",
					"strategy", s.Type(),
					"disclosure_id", in.DisclosureID,
					"org_id", in.OrgID,
					"error", err,
				)
				return
			}
			collected[idx] = cands
		}(i, strat)
	}
	wg.Wait()

	result := &domain.ConflictResult{}
	appliedExclusions := make(map[string]bool)
	now := time.Now().UTC()

	for _, cands := range collected {
		for _, c := range cands {
			if d.exclusions != nil {
				decision, err := d.exclusions.IsExcluded(ctx, in.OrgID, in.PersonID, c.MatchedEntity, c.Type)
				if err != nil {
					slog.Error("exclusion check failed",
						"disclosure_id", in.DisclosureID,
						"entity", c.MatchedEntity,
						"error", err,
					)
				} else if decision.Excluded {
					result.ExcludedConflictCount++
					if decision.ExclusionID != "" && !appliedExclusions[decision.ExclusionID] {
						appliedExclusions[decision.ExclusionID] = true
						result.AppliedExclusionIDs = append(result.AppliedExclusionIDs, decision.ExclusionID)
					}
					continue
				}
			}

			result.Conflicts = append(result.Conflicts, &domain.ConflictAlert{
				ID:              uuid.New().String(),
				OrgID:           in.OrgID,
				DisclosureID:    in.DisclosureID,
				PersonID:        in.PersonID,
				Type:            c.Type,
				Severity:        c.Severity,
				Status:          domain.AlertOpen,
				MatchedEntity:   c.MatchedEntity,
				Confidence:      c.Confidence,
				Summary:         c.Summary,
				Context:         c.Context,
				SeverityFactors: c.SeverityFactors,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
		}
	}

	result.ConflictCount = len(result.Conflicts)
	return result, nil
}
