package conflict

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/cache"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/exclusion"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/repository"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "conflict-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func testInput(entities ...string) DetectInput {
	return DetectInput{
		OrgID:        "org-001",
		PersonID:     "person-001",
		DisclosureID: "disc-current",
		Entities:     entities,
		Config:       domain.DefaultMatchConfig(),
	}
}

func savePriorDisclosure(t *testing.T, repo domain.Repository, id, personID, company string, ago time.Duration) {
	t.Helper()
	d := &domain.Disclosure{
		ID:             id,
		PersonID:       personID,
		Type:           "gift",
		RelatedCompany: company,
		SubmittedAt:    time.Now().UTC().Add(-ago),
		CreatedAt:      time.Now().UTC(),
	}
	if err := repo.SaveDisclosure(context.Background(), "org-001", d); err != nil {
		t.Fatalf("SaveDisclosure failed: %v", err)
	}
}

func TestSelfDealingStrategy(t *testing.T) {
	repo := newTestRepo(t)
	strat := NewSelfDealingStrategy(repo)
	ctx := context.Background()

	savePriorDisclosure(t, repo, "disc-1", "person-001", "Acme Corp", 72*time.Hour)
	savePriorDisclosure(t, repo, "disc-2", "person-001", "ACME CORP.", 48*time.Hour)
	savePriorDisclosure(t, repo, "disc-3", "person-001", "Acme Corp", 24*time.Hour)
	// Other person's disclosure is not this strategy's business.
	savePriorDisclosure(t, repo, "disc-peer", "person-002", "Acme Corp", 24*time.Hour)

	t.Run("RepeatedEntity", func(t *testing.T) {
		cands, err := strat.Detect(ctx, testInput("Acme Corp"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(cands) != 1 {
			t.Fatalf("expected 1 candidate, got %d", len(cands))
		}

		c := cands[0]
		if c.Type != domain.ConflictSelfDealing {
			t.Errorf("expected SELF_DEALING, got %s", c.Type)
		}
		if c.Confidence < 90 {
			t.Errorf("expected confidence >= 90 for near-identical names, got %d", c.Confidence)
		}
		if c.Context.Disclosure == nil || len(c.Context.Disclosure.DisclosureIDs) != 3 {
			t.Fatalf("expected 3 matched prior disclosures, got %+v", c.Context.Disclosure)
		}
		// Exact match plus repeat appearances push severity to CRITICAL.
		if c.Severity != domain.SeverityCritical {
			t.Errorf("expected CRITICAL, got %s", c.Severity)
		}
		if len(c.SeverityFactors) != 2 {
			t.Errorf("expected 2 severity factors, got %v", c.SeverityFactors)
		}
	})

	t.Run("CurrentDisclosureSkipped", func(t *testing.T) {
		savePriorDisclosure(t, repo, "disc-current", "person-001", "Lone Vendor", time.Hour)

		cands, err := strat.Detect(ctx, testInput("Lone Vendor"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(cands) != 0 {
			t.Errorf("expected the submission itself not to match, got %d candidates", len(cands))
		}
	})

	t.Run("NoMatch", func(t *testing.T) {
		cands, err := strat.Detect(ctx, testInput("Completely Different LLC"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(cands) != 0 {
			t.Errorf("expected no candidates, got %d", len(cands))
		}
	})
}

func TestHRISStrategy(t *testing.T) {
	repo := newTestRepo(t)
	strat := NewHRISStrategy(repo, nil)
	ctx := context.Background()

	employees := []*domain.Employee{
		{ID: "emp-1", FullName: "Jane Smith", Department: "Finance", ManagerID: "emp-9", Active: true},
		{ID: "emp-2", FullName: "John Doe", Department: "Sales", Active: true},
	}
	for _, e := range employees {
		if err := repo.SaveEmployee(ctx, "org-001", e); err != nil {
			t.Fatalf("SaveEmployee failed: %v", err)
		}
	}

	t.Run("EmployeeMatch", func(t *testing.T) {
		cands, err := strat.Detect(ctx, testInput("jane smith"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(cands) != 1 {
			t.Fatalf("expected 1 candidate, got %d", len(cands))
		}

		c := cands[0]
		if c.Type != domain.ConflictHRISMatch {
			t.Errorf("expected HRIS_MATCH, got %s", c.Type)
		}
		if c.Confidence != 100 {
			t.Errorf("expected case-insensitive exact match at 100, got %d", c.Confidence)
		}
		if c.Context.Employee == nil || c.Context.Employee.EmployeeID != "emp-1" {
			t.Errorf("expected employee context for emp-1, got %+v", c.Context.Employee)
		}
		// Exact match plus management chain gives two factors.
		if c.Severity != domain.SeverityCritical {
			t.Errorf("expected CRITICAL, got %s", c.Severity)
		}
	})

	t.Run("NoMatch", func(t *testing.T) {
		cands, err := strat.Detect(ctx, testInput("Acme Corp"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(cands) != 0 {
			t.Errorf("expected no candidates, got %d", len(cands))
		}
	})
}

func TestHRISDirectoryCapAppliesToCachedPage(t *testing.T) {
	repo := newTestRepo(t)
	c := cache.NewLRUCache(10)
	strat := NewHRISStrategy(repo, c)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		e := &domain.Employee{
			ID:         fmt.Sprintf("emp-%d", i),
			FullName:   "Jane Smith",
			Department: "Finance",
			Active:     true,
		}
		if err := repo.SaveEmployee(ctx, "org-001", e); err != nil {
			t.Fatalf("SaveEmployee failed: %v", err)
		}
	}

	// Cold load under the default cap caches the full page.
	cands, err := strat.Detect(ctx, testInput("Jane Smith"))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(cands) != 4 {
		t.Fatalf("expected 4 candidates on the cold load, got %d", len(cands))
	}

	// A tightened cap bounds the cached page too, not just fresh reads.
	in := testInput("Jane Smith")
	in.Config.Limits.Directory = 2
	cands, err = strat.Detect(ctx, in)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(cands) != 2 {
		t.Errorf("expected the cached directory capped at 2, got %d candidates", len(cands))
	}
}

func TestPriorCaseStrategy(t *testing.T) {
	repo := newTestRepo(t)
	strat := NewPriorCaseStrategy(repo)
	ctx := context.Background()

	subjects := []*domain.CaseSubject{
		{ID: "subj-1", CaseID: "case-1", Name: "Acme Corp", Role: "respondent"},
		{ID: "subj-2", CaseID: "case-1", Name: "Acme Corporation"},
		{ID: "subj-3", CaseID: "case-2", Name: "ACME CORP"},
		{ID: "subj-4", CaseID: "case-3", Name: "acme corp"},
	}
	for _, s := range subjects {
		if err := repo.SaveCaseSubject(ctx, "org-001", s); err != nil {
			t.Fatalf("SaveCaseSubject failed: %v", err)
		}
	}

	t.Run("AggregatedPerDisclosure", func(t *testing.T) {
		cands, err := strat.Detect(ctx, testInput("Acme Corp"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		// All matched cases fold into a single candidate.
		if len(cands) != 1 {
			t.Fatalf("expected 1 aggregated candidate, got %d", len(cands))
		}

		c := cands[0]
		if c.Type != domain.ConflictPriorCaseHistory {
			t.Errorf("expected PRIOR_CASE_HISTORY, got %s", c.Type)
		}
		if c.Context.Case == nil || len(c.Context.Case.CaseIDs) != 3 {
			t.Fatalf("expected 3 distinct cases, got %+v", c.Context.Case)
		}
		// More than two matched cases raises severity.
		if c.Severity != domain.SeverityHigh {
			t.Errorf("expected HIGH for 3 cases, got %s", c.Severity)
		}
	})

	t.Run("NoMatch", func(t *testing.T) {
		cands, err := strat.Detect(ctx, testInput("Globex"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(cands) != 0 {
			t.Errorf("expected no candidates, got %d", len(cands))
		}
	})
}

func TestRelationshipStrategy(t *testing.T) {
	repo := newTestRepo(t)
	strat := NewRelationshipStrategy(repo)
	ctx := context.Background()

	t.Run("BelowPatternMinimum", func(t *testing.T) {
		savePriorDisclosure(t, repo, "disc-p2", "person-002", "Vendor X", 24*time.Hour)

		cands, err := strat.Detect(ctx, testInput("Vendor X"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(cands) != 0 {
			t.Errorf("expected no pattern below 2 other people, got %d", len(cands))
		}
	})

	t.Run("PatternDetected", func(t *testing.T) {
		savePriorDisclosure(t, repo, "disc-p3", "person-003", "Vendor X", 48*time.Hour)
		// Own disclosures never count toward the pattern.
		savePriorDisclosure(t, repo, "disc-own", "person-001", "Vendor X", 12*time.Hour)

		cands, err := strat.Detect(ctx, testInput("Vendor X"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(cands) != 1 {
			t.Fatalf("expected 1 candidate, got %d", len(cands))
		}

		c := cands[0]
		if c.Type != domain.ConflictRelationship {
			t.Errorf("expected RELATIONSHIP_PATTERN, got %s", c.Type)
		}
		if c.Context.Disclosure == nil || c.Context.Disclosure.DistinctPeople != 2 {
			t.Errorf("expected 2 distinct people, got %+v", c.Context.Disclosure)
		}
		if c.Severity != domain.SeverityMedium {
			t.Errorf("expected MEDIUM for 2 people, got %s", c.Severity)
		}
	})

	t.Run("HighSeverityAtFivePeople", func(t *testing.T) {
		for i := 4; i <= 7; i++ {
			savePriorDisclosure(t, repo,
				fmt.Sprintf("disc-p%d", i), fmt.Sprintf("person-%03d", i),
				"Vendor X", time.Duration(i)*time.Hour)
		}

		cands, err := strat.Detect(ctx, testInput("Vendor X"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(cands) != 1 {
			t.Fatalf("expected 1 candidate, got %d", len(cands))
		}
		if cands[0].Context.Disclosure.DistinctPeople != 6 {
			t.Errorf("expected 6 distinct people, got %d", cands[0].Context.Disclosure.DistinctPeople)
		}
		if cands[0].Severity != domain.SeverityHigh {
			t.Errorf("expected HIGH at >= 5 people, got %s", cands[0].Severity)
		}
	})
}

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		confidence int
		factors    int
		want       domain.Severity
	}{
		{100, 0, domain.SeverityCritical},
		{95, 0, domain.SeverityCritical},
		{70, 3, domain.SeverityCritical},
		{90, 0, domain.SeverityHigh},
		{85, 0, domain.SeverityHigh},
		{70, 2, domain.SeverityHigh},
		{80, 0, domain.SeverityMedium},
		{75, 0, domain.SeverityMedium},
		{70, 1, domain.SeverityLow},
		{60, 0, domain.SeverityLow},
	}

	for _, tt := range tests {
		factors := make([]string, tt.factors)
		if got := ClassifySeverity(tt.confidence, factors); got != tt.want {
			t.Errorf("ClassifySeverity(%d, %d factors) = %s, want %s",
				tt.confidence, tt.factors, got, tt.want)
		}
	}
}

func TestDetector(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	savePriorDisclosure(t, repo, "disc-1", "person-001", "Acme Corp", 48*time.Hour)
	savePriorDisclosure(t, repo, "disc-2", "person-001", "Acme Corp", 24*time.Hour)

	registry := exclusion.NewRegistry(repo)
	detector := NewDetector(registry, DefaultStrategies(repo, nil)...)

	t.Run("DetectsAndAssemblesAlerts", func(t *testing.T) {
		result, err := detector.Detect(ctx, testInput("Acme Corp"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if result.ConflictCount != 1 {
			t.Fatalf("expected 1 conflict, got %d", result.ConflictCount)
		}

		alert := result.Conflicts[0]
		if alert.ID == "" {
			t.Error("expected generated alert ID")
		}
		if alert.Status != domain.AlertOpen {
			t.Errorf("expected OPEN status, got %s", alert.Status)
		}
		if alert.OrgID != "org-001" || alert.DisclosureID != "disc-current" {
			t.Errorf("unexpected alert identity: %+v", alert)
		}
	})

	t.Run("ExclusionSuppresses", func(t *testing.T) {
		_, err := registry.Create(ctx, exclusion.CreateInput{
			OrgID:         "org-001",
			PersonID:      "person-001",
			MatchedEntity: "Acme Corp",
			Type:          domain.ConflictSelfDealing,
			Scope:         domain.ScopePermanent,
			CreatedBy:     "reviewer-1",
		})
		if err != nil {
			t.Fatalf("Create exclusion failed: %v", err)
		}

		result, err := detector.Detect(ctx, testInput("Acme Corp"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if result.ConflictCount != 0 {
			t.Errorf("expected 0 conflicts after exclusion, got %d", result.ConflictCount)
		}
		if result.ExcludedConflictCount != 1 {
			t.Errorf("expected 1 excluded conflict, got %d", result.ExcludedConflictCount)
		}
		if len(result.AppliedExclusionIDs) != 1 {
			t.Errorf("expected 1 applied exclusion id, got %v", result.AppliedExclusionIDs)
		}
	})

	t.Run("OneTimeExclusionSingleUse", func(t *testing.T) {
		savePriorDisclosure(t, repo, "disc-g1", "person-001", "Globex", 48*time.Hour)

		excl, err := registry.Create(ctx, exclusion.CreateInput{
			OrgID:         "org-001",
			PersonID:      "person-001",
			MatchedEntity: "Globex",
			Type:          domain.ConflictSelfDealing,
			Scope:         domain.ScopeOneTime,
			CreatedBy:     "reviewer-1",
		})
		if err != nil {
			t.Fatalf("Create exclusion failed: %v", err)
		}

		// First detection consumes the exclusion.
		result, err := detector.Detect(ctx, testInput("Globex"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if result.ConflictCount != 0 || result.ExcludedConflictCount != 1 {
			t.Fatalf("expected first detection suppressed, got %+v", result)
		}

		stored, err := repo.GetExclusion(ctx, "org-001", excl.ID)
		if err != nil {
			t.Fatalf("GetExclusion failed: %v", err)
		}
		if stored.Active {
			t.Error("expected one-time exclusion deactivated after use")
		}

		// Second detection flags normally.
		result, err = detector.Detect(ctx, testInput("Globex"))
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if result.ConflictCount != 1 {
			t.Errorf("expected 1 conflict on second detection, got %d", result.ConflictCount)
		}
	})
}
