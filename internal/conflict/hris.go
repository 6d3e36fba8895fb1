package conflict

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/match"
)

// directoryCacheTTL bounds how stale a cached directory page may be.
const directoryCacheTTL = 5 * time.Minute

// HRISStrategy scans active employee directory records for names matching
// the disclosed entity. A hit surfaces a potential nepotism conflict.
//
// The scan is bounded by the configured directory cap; exceeding it is a
// scale limitation logged for operators, not an error.
type HRISStrategy struct {
	repo  domain.Repository
	cache domain.Cache // optional; avoids rescanning the directory per evaluation
}

// NewHRISStrategy creates the strategy. cache may be nil.
func NewHRISStrategy(repo domain.Repository, cache domain.Cache) *HRISStrategy {
	return &HRISStrategy{repo: repo, cache: cache}
}

func (s *HRISStrategy) Type() domain.ConflictType {
	return domain.ConflictHRISMatch
}

// Detect returns one candidate per (entity, matching employee) pair.
func (s *HRISStrategy) Detect(ctx context.Context, in DetectInput) ([]Candidate, error) {
	employees, err := s.loadDirectory(ctx, in.OrgID, in.Config.Limits.Directory)
	if err != nil {
		return nil, fmt.Errorf("hris: load directory: %w", err)
	}

	var candidates []Candidate
	for _, entity := range in.Entities {
		for _, emp := range employees {
			score, ok := match.Match(entity, emp.FullName, in.Config.Thresholds)
			if !ok {
				continue
			}

			var factors []string
			if score == 100 {
				factors = append(factors, "exact employee name match")
			}
			if emp.ManagerID != "" {
				factors = append(factors, "employee reports into active management chain")
			}

			candidates = append(candidates, Candidate{
				Type:            domain.ConflictHRISMatch,
				Severity:        ClassifySeverity(score, factors),
				Summary:         fmt.Sprintf("Disclosed entity %q matches employee %q (%s)", entity, emp.FullName, emp.Department),
				MatchedEntity:   entity,
				Confidence:      score,
				SeverityFactors: factors,
				Context: domain.MatchContext{
					Kind: domain.ContextEmployee,
					Employee: &domain.EmployeeContext{
						EmployeeID: emp.ID,
						FullName:   emp.FullName,
						Department: emp.Department,
						Title:      emp.Title,
						ManagerID:  emp.ManagerID,
					},
				},
			})
		}
	}

	return candidates, nil
}

func (s *HRISStrategy) loadDirectory(ctx context.Context, orgID string, limit int) ([]*domain.Employee, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetDirectory(ctx, orgID); err == nil && cached != nil {
			return capDirectory(orgID, cached, limit), nil
		}
	}

	employees, err := s.repo.ListActiveEmployees(ctx, orgID, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetDirectory(ctx, orgID, employees, directoryCacheTTL); err != nil {
			slog.Debug("failed to cache directory page", "org_id", orgID, "error", err)
		}
	}

	return capDirectory(orgID, employees, limit), nil
}

// capDirectory enforces the directory scan cap on every load path. A cached
// page may have been read under a looser cap than the caller's.
func capDirectory(orgID string, employees []*domain.Employee, limit int) []*domain.Employee {
	if len(employees) >= limit {
		slog.Warn("directory scan cap reached",
			"org_id", orgID,
			"limit", limit,
		)
	}
	if len(employees) > limit {
		employees = employees[:limit]
	}
	return employees
}
