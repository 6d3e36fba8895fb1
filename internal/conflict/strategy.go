// Package conflict implements the multi-strategy conflict-of-interest
// detector: four independent strategies fuzzy-match disclosed entity names
// against separate data sources, and a detector fans them out, applies
// exclusions and assembles alerts.
package conflict

import (
	"context"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
)

// DetectInput carries everything a strategy needs for one disclosure.
type DetectInput struct {
	OrgID        string
	PersonID     string
	DisclosureID string

	// Entities are the disclosed counterparty names to check.
	Entities []string

	// Config holds match thresholds and scan caps. Zero fields are filled
	// with defaults before strategies run.
	Config domain.MatchConfig
}

// Candidate is a raw detected conflict before exclusion filtering.
type Candidate struct {
	Type            domain.ConflictType
	Severity        domain.Severity
	Summary         string
	MatchedEntity   string
	Confidence      int
	SeverityFactors []string
	Context         domain.MatchContext
}

// Strategy is one independent conflict detection source. Strategies only
// read during evaluation and can run in parallel.
type Strategy interface {
	Type() domain.ConflictType
	Detect(ctx context.Context, in DetectInput) ([]Candidate, error)
}

// ExclusionChecker decides whether a candidate conflict is suppressed by a
// standing exclusion. Checking may deactivate a one-time exclusion as a
// side effect.
type ExclusionChecker interface {
	IsExcluded(ctx context.Context, orgID, personID, entity string, ct domain.ConflictType) (domain.ExclusionDecision, error)
}
