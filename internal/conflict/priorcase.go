package conflict

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/match"
)

// PriorCaseStrategy scans subjects of historical cases for names matching
// the disclosed entity. Matches are aggregated per disclosure: one
// candidate covering N matched cases, not N candidates.
type PriorCaseStrategy struct {
	repo domain.Repository
}

// NewPriorCaseStrategy creates the strategy.
func NewPriorCaseStrategy(repo domain.Repository) *PriorCaseStrategy {
	return &PriorCaseStrategy{repo: repo}
}

func (s *PriorCaseStrategy) Type() domain.ConflictType {
	return domain.ConflictPriorCaseHistory
}

// Detect returns at most one candidate covering every matched case.
func (s *PriorCaseStrategy) Detect(ctx context.Context, in DetectInput) ([]Candidate, error) {
	limit := in.Config.Limits.CaseSubjects
	subjects, err := s.repo.ListCaseSubjects(ctx, in.OrgID, limit)
	if err != nil {
		return nil, fmt.Errorf("prior-case: list case subjects: %w", err)
	}
	if len(subjects) >= limit {
		slog.Warn("case-subject scan cap reached",
			"org_id", in.OrgID,
			"limit", limit,
		)
	}

	best := 0
	bestEntity := ""
	caseIDs := make(map[string]bool)
	var orderedCaseIDs []string
	var subjectNames []string
	seenSubject := make(map[string]bool)

	for _, entity := range in.Entities {
		for _, subj := range subjects {
			score, ok := match.Match(entity, subj.Name, in.Config.Thresholds)
			if !ok {
				continue
			}
			if !caseIDs[subj.CaseID] {
				caseIDs[subj.CaseID] = true
				orderedCaseIDs = append(orderedCaseIDs, subj.CaseID)
			}
			if !seenSubject[subj.Name] {
				seenSubject[subj.Name] = true
				subjectNames = append(subjectNames, subj.Name)
			}
			if score > best {
				best = score
				bestEntity = entity
			}
		}
	}

	if len(orderedCaseIDs) == 0 {
		return nil, nil
	}

	severity := domain.SeverityMedium
	if len(orderedCaseIDs) > 2 {
		severity = domain.SeverityHigh
	}

	return []Candidate{{
		Type:          domain.ConflictPriorCaseHistory,
		Severity:      severity,
		Summary:       fmt.Sprintf("Disclosed entity %q matches subjects of %d prior cases", bestEntity, len(orderedCaseIDs)),
		MatchedEntity: bestEntity,
		Confidence:    best,
		Context: domain.MatchContext{
			Kind: domain.ContextCase,
			Case: &domain.CaseContext{
				CaseIDs:      orderedCaseIDs,
				SubjectNames: subjectNames,
			},
		},
	}}, nil
}
