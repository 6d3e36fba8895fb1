package conflict

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/match"
)

// SelfDealingStrategy scans the person's own prior disclosures for the
// currently disclosed entity. A person repeatedly disclosing relationships
// with the same counterparty is a self-dealing signal.
type SelfDealingStrategy struct {
	repo domain.Repository
}

// NewSelfDealingStrategy creates the strategy.
func NewSelfDealingStrategy(repo domain.Repository) *SelfDealingStrategy {
	return &SelfDealingStrategy{repo: repo}
}

func (s *SelfDealingStrategy) Type() domain.ConflictType {
	return domain.ConflictSelfDealing
}

// Detect returns one candidate per disclosed entity that matches any of the
// person's prior disclosures.
func (s *SelfDealingStrategy) Detect(ctx context.Context, in DetectInput) ([]Candidate, error) {
	limit := in.Config.Limits.OwnDisclosures
	prior, err := s.repo.ListDisclosuresByPerson(ctx, in.OrgID, in.PersonID, limit)
	if err != nil {
		return nil, fmt.Errorf("self-dealing: list prior disclosures: %w", err)
	}
	if len(prior) >= limit {
		slog.Warn("prior-disclosure scan cap reached",
			"org_id", in.OrgID,
			"person_id", in.PersonID,
			"limit", limit,
		)
	}

	var candidates []Candidate
	for _, entity := range in.Entities {
		best := 0
		var matchedIDs []string

		for _, d := range prior {
			if d.ID == in.DisclosureID {
				continue
			}
			score := 0
			for _, name := range d.EntityNames() {
				if sc, ok := match.Match(entity, name, in.Config.Thresholds); ok && sc > score {
					score = sc
				}
			}
			if score > 0 {
				matchedIDs = append(matchedIDs, d.ID)
				if score > best {
					best = score
				}
			}
		}

		if len(matchedIDs) == 0 {
			continue
		}

		var factors []string
		if best == 100 {
			factors = append(factors, "exact entity name match")
		}
		if len(matchedIDs) >= 2 {
			factors = append(factors, fmt.Sprintf("entity appears in %d prior disclosures", len(matchedIDs)))
		}

		candidates = append(candidates, Candidate{
			Type:            domain.ConflictSelfDealing,
			Severity:        ClassifySeverity(best, factors),
			Summary:         fmt.Sprintf("Disclosed entity %q matches %d of the person's prior disclosures", entity, len(matchedIDs)),
			MatchedEntity:   entity,
			Confidence:      best,
			SeverityFactors: factors,
			Context: domain.MatchContext{
				Kind:       domain.ContextDisclosure,
				Disclosure: &domain.DisclosureContext{DisclosureIDs: matchedIDs},
			},
		})
	}

	return candidates, nil
}
