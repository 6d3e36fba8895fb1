package conflict

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/match"
)

// RelationshipStrategy scans other people's disclosures for the same
// entity. When two or more other people have also disclosed a relationship
// with the matched entity, a pattern conflict is raised.
type RelationshipStrategy struct {
	repo domain.Repository
}

// NewRelationshipStrategy creates the strategy.
func NewRelationshipStrategy(repo domain.Repository) *RelationshipStrategy {
	return &RelationshipStrategy{repo: repo}
}

func (s *RelationshipStrategy) Type() domain.ConflictType {
	return domain.ConflictRelationship
}

// patternMinPeople is the number of distinct other people required before a
// shared-entity pattern is reportable; patternHighPeople raises severity.
const (
	patternMinPeople  = 2
	patternHighPeople = 5
)

// Detect returns one candidate per disclosed entity that at least two other
// people have also disclosed.
func (s *RelationshipStrategy) Detect(ctx context.Context, in DetectInput) ([]Candidate, error) {
	limit := in.Config.Limits.PeerDisclosures
	peers, err := s.repo.ListDisclosuresByOrg(ctx, in.OrgID, limit)
	if err != nil {
		return nil, fmt.Errorf("relationship: list org disclosures: %w", err)
	}
	if len(peers) >= limit {
		slog.Warn("peer-disclosure scan cap reached",
			"org_id", in.OrgID,
			"limit", limit,
		)
	}

	var candidates []Candidate
	for _, entity := range in.Entities {
		best := 0
		people := make(map[string]bool)
		var matchedIDs []string

		for _, d := range peers {
			if d.PersonID == in.PersonID || d.ID == in.DisclosureID {
				continue
			}
			score := 0
			for _, name := range d.EntityNames() {
				if sc, ok := match.Match(entity, name, in.Config.Thresholds); ok && sc > score {
					score = sc
				}
			}
			if score == 0 {
				continue
			}
			people[d.PersonID] = true
			matchedIDs = append(matchedIDs, d.ID)
			if score > best {
				best = score
			}
		}

		if len(people) < patternMinPeople {
			continue
		}

		severity := domain.SeverityMedium
		if len(people) >= patternHighPeople {
			severity = domain.SeverityHigh
		}

		candidates = append(candidates, Candidate{
			Type:          domain.ConflictRelationship,
			Severity:      severity,
			Summary:       fmt.Sprintf("%d other people have disclosed relationships with %q", len(people), entity),
			MatchedEntity: entity,
			Confidence:    best,
			Context: domain.MatchContext{
				Kind: domain.ContextDisclosure,
				Disclosure: &domain.DisclosureContext{
					DisclosureIDs:  matchedIDs,
					DistinctPeople: len(people),
				},
			},
		})
	}

	return candidates, nil
}
