// Package exclusion implements the standing "do not flag" registry
// consulted before a detected conflict becomes an alert.
package exclusion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/match"
)

// Registry stores and evaluates conflict exclusions.
type Registry struct {
	repo domain.Repository
}

// NewRegistry creates a registry over the given repository.
func NewRegistry(repo domain.Repository) *Registry {
	return &Registry{repo: repo}
}

// IsExcluded reports whether a candidate conflict is suppressed by an
// active, non-expired exclusion for the (person, conflict type) pair.
//
// The stored entity name is fuzzy-matched against the candidate at a fixed
// high bar, coarser than detection itself, so near-miss conflicts are not
// suppressed too aggressively. A matching one-time exclusion deactivates
// itself as a side effect of this call.
func (r *Registry) IsExcluded(ctx context.Context, orgID, personID, entity string, ct domain.ConflictType) (domain.ExclusionDecision, error) {
	exclusions, err := r.repo.FindActiveExclusions(ctx, orgID, personID, ct)
	if err != nil {
		return domain.ExclusionDecision{}, fmt.Errorf("find active exclusions: %w", err)
	}

	now := time.Now().UTC()
	for _, excl := range exclusions {
		if !excl.InForce(now) {
			continue
		}
		if match.BestScore(excl.MatchedEntity, entity) < domain.ExclusionMatchBar {
			continue
		}

		if excl.Scope == domain.ScopeOneTime {
			if err := r.repo.DeactivateExclusion(ctx, orgID, excl.ID); err != nil {
				slog.Error("failed to deactivate one-time exclusion",
					"exclusion_id", excl.ID,
					"org_id", orgID,
					"error", err,
				)
			}
		}

		return domain.ExclusionDecision{Excluded: true, ExclusionID: excl.ID}, nil
	}

	return domain.ExclusionDecision{}, nil
}

// CreateInput describes a new exclusion.
type CreateInput struct {
	OrgID         string
	PersonID      string
	MatchedEntity string
	Type          domain.ConflictType
	Scope         domain.ExclusionScope
	ExpiresAt     *time.Time
	SourceAlertID string
	CreatedBy     string
}

// Create registers a new exclusion. The repository enforces the at most one
// active exclusion per (org, person, entity, type) invariant; a duplicate
// surfaces as the repository's duplicate error.
func (r *Registry) Create(ctx context.Context, in CreateInput) (*domain.ConflictExclusion, error) {
	if in.PersonID == "" || in.MatchedEntity == "" {
		return nil, fmt.Errorf("person id and matched entity are required")
	}
	switch in.Scope {
	case domain.ScopePermanent, domain.ScopeOneTime:
	case domain.ScopeTimeLimited:
		if in.ExpiresAt == nil {
			return nil, fmt.Errorf("time-limited exclusion requires an expiry")
		}
	default:
		return nil, fmt.Errorf("unknown exclusion scope %q", in.Scope)
	}

	now := time.Now().UTC()
	excl := &domain.ConflictExclusion{
		ID:            uuid.New().String(),
		OrgID:         in.OrgID,
		PersonID:      in.PersonID,
		MatchedEntity: in.MatchedEntity,
		Type:          in.Type,
		Scope:         in.Scope,
		ExpiresAt:     in.ExpiresAt,
		Active:        true,
		SourceAlertID: in.SourceAlertID,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := r.repo.SaveExclusion(ctx, in.OrgID, excl); err != nil {
		return nil, err
	}

	return excl, nil
}

// Deactivate turns off an exclusion by id.
func (r *Registry) Deactivate(ctx context.Context, orgID, exclusionID string) error {
	return r.repo.DeactivateExclusion(ctx, orgID, exclusionID)
}
