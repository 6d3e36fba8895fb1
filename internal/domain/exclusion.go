package domain

import "time"

// ExclusionScope controls how long a suppression rule stays in force.
type ExclusionScope string

const (
	// ScopePermanent suppresses matches indefinitely.
	ScopePermanent ExclusionScope = "PERMANENT"

	// ScopeTimeLimited suppresses matches until ExpiresAt, after which the
	// exclusion is inert even if the active flag was never cleared.
	ScopeTimeLimited ExclusionScope = "TIME_LIMITED"

	// ScopeOneTime suppresses exactly one match and deactivates itself the
	// instant it does so.
	ScopeOneTime ExclusionScope = "ONE_TIME"
)

// ConflictExclusion is a standing "do not flag" rule for one
// (person, entity, conflict type) combination. At most one active exclusion
// may exist per (org, person, entity, type) tuple.
type ConflictExclusion struct {
	ID            string         `json:"id"`
	OrgID         string         `json:"orgId"`
	PersonID      string         `json:"personId"`
	MatchedEntity string         `json:"matchedEntity"`
	Type          ConflictType   `json:"type"`
	Scope         ExclusionScope `json:"scope"`
	ExpiresAt     *time.Time     `json:"expiresAt,omitempty"`
	Active        bool           `json:"active"`

	// SourceAlertID links the alert whose dismissal created this exclusion.
	SourceAlertID string `json:"sourceAlertId,omitempty"`

	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ExclusionDecision is the outcome of an exclusion-registry check for one
// candidate conflict.
type ExclusionDecision struct {
	Excluded    bool   `json:"excluded"`
	ExclusionID string `json:"exclusionId,omitempty"`
}

// InForce reports whether the exclusion can suppress a match at the given
// instant. Time-limited exclusions stop suppressing at expiry regardless of
// the active flag.
func (e *ConflictExclusion) InForce(now time.Time) bool {
	if !e.Active {
		return false
	}
	if e.Scope == ScopeTimeLimited && e.ExpiresAt != nil && !now.Before(*e.ExpiresAt) {
		return false
	}
	return true
}
