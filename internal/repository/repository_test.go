package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "riskintel-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestDisclosures(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	orgID := "org-001"

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGet", func(t *testing.T) {
		d := &domain.Disclosure{
			ID:             "disc-001",
			PersonID:       "person-001",
			Type:           "gift",
			RelatedCompany: "Acme Corp",
			Value:          250.00,
			FactData:       map[string]any{"giftType": "tickets"},
			SubmittedAt:    time.Now().UTC(),
			CreatedAt:      time.Now().UTC(),
		}

		if err := repo.SaveDisclosure(ctx, orgID, d); err != nil {
			t.Fatalf("SaveDisclosure failed: %v", err)
		}

		retrieved, err := repo.GetDisclosure(ctx, orgID, d.ID)
		if err != nil {
			t.Fatalf("GetDisclosure failed: %v", err)
		}
		if retrieved.RelatedCompany != "Acme Corp" {
			t.Errorf("expected RelatedCompany Acme Corp, got %s", retrieved.RelatedCompany)
		}
		if retrieved.Value != 250.00 {
			t.Errorf("expected Value 250.00, got %.2f", retrieved.Value)
		}
		if retrieved.FactData["giftType"] != "tickets" {
			t.Errorf("expected fact data round trip, got %v", retrieved.FactData)
		}
	})

	t.Run("DuplicateID", func(t *testing.T) {
		d := &domain.Disclosure{
			ID:          "disc-001",
			PersonID:    "person-001",
			Type:        "gift",
			SubmittedAt: time.Now().UTC(),
			CreatedAt:   time.Now().UTC(),
		}
		if err := repo.SaveDisclosure(ctx, orgID, d); !errors.Is(err, ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got: %v", err)
		}
	})

	t.Run("OrgIsolation", func(t *testing.T) {
		_, err := repo.GetDisclosure(ctx, "org-002", "disc-001")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound for different org, got: %v", err)
		}
	})

	t.Run("RequiresOrgID", func(t *testing.T) {
		if err := repo.SaveDisclosure(ctx, "", &domain.Disclosure{ID: "x"}); err == nil {
			t.Error("expected error for empty orgID")
		}
		if _, err := repo.GetDisclosure(ctx, "", "disc-001"); err == nil {
			t.Error("expected error for empty orgID")
		}
	})

	t.Run("ListByPerson", func(t *testing.T) {
		for i, ts := range []time.Time{
			time.Now().UTC().Add(-48 * time.Hour),
			time.Now().UTC().Add(-24 * time.Hour),
		} {
			d := &domain.Disclosure{
				ID:             "disc-person-" + string(rune('a'+i)),
				PersonID:       "person-002",
				Type:           "gift",
				RelatedCompany: "Globex",
				Value:          100,
				SubmittedAt:    ts,
				CreatedAt:      time.Now().UTC(),
			}
			if err := repo.SaveDisclosure(ctx, orgID, d); err != nil {
				t.Fatalf("SaveDisclosure failed: %v", err)
			}
		}

		list, err := repo.ListDisclosuresByPerson(ctx, orgID, "person-002", 10)
		if err != nil {
			t.Fatalf("ListDisclosuresByPerson failed: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 disclosures, got %d", len(list))
		}
		if list[0].SubmittedAt.Before(list[1].SubmittedAt) {
			t.Error("expected most recent first")
		}
	})

	t.Run("ListInWindow", func(t *testing.T) {
		now := time.Now().UTC()

		list, err := repo.ListDisclosuresInWindow(ctx, orgID, "person-002", "", now.Add(-72*time.Hour), now, 10)
		if err != nil {
			t.Fatalf("ListDisclosuresInWindow failed: %v", err)
		}
		if len(list) != 2 {
			t.Errorf("expected 2 disclosures in window, got %d", len(list))
		}

		// Entity filter
		list, err = repo.ListDisclosuresInWindow(ctx, orgID, "", "Globex", now.Add(-72*time.Hour), now, 10)
		if err != nil {
			t.Fatalf("ListDisclosuresInWindow failed: %v", err)
		}
		if len(list) != 2 {
			t.Errorf("expected 2 Globex disclosures, got %d", len(list))
		}

		// Narrow window excludes both
		list, err = repo.ListDisclosuresInWindow(ctx, orgID, "person-002", "", now.Add(-1*time.Hour), now, 10)
		if err != nil {
			t.Fatalf("ListDisclosuresInWindow failed: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("expected 0 disclosures in narrow window, got %d", len(list))
		}
	})
}

func TestDirectoryAndCases(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	orgID := "org-001"

	t.Run("EmployeeUpsert", func(t *testing.T) {
		e := &domain.Employee{ID: "emp-001", FullName: "Jane Smith", Department: "Finance", Active: true}
		if err := repo.SaveEmployee(ctx, orgID, e); err != nil {
			t.Fatalf("SaveEmployee failed: %v", err)
		}

		e.Title = "Controller"
		if err := repo.SaveEmployee(ctx, orgID, e); err != nil {
			t.Fatalf("SaveEmployee upsert failed: %v", err)
		}

		list, err := repo.ListActiveEmployees(ctx, orgID, 10)
		if err != nil {
			t.Fatalf("ListActiveEmployees failed: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("expected 1 employee, got %d", len(list))
		}
		if list[0].Title != "Controller" {
			t.Errorf("expected upserted title Controller, got %s", list[0].Title)
		}
	})

	t.Run("InactiveExcluded", func(t *testing.T) {
		e := &domain.Employee{ID: "emp-002", FullName: "Former Employee", Active: false}
		if err := repo.SaveEmployee(ctx, orgID, e); err != nil {
			t.Fatalf("SaveEmployee failed: %v", err)
		}

		list, err := repo.ListActiveEmployees(ctx, orgID, 10)
		if err != nil {
			t.Fatalf("ListActiveEmployees failed: %v", err)
		}
		if len(list) != 1 {
			t.Errorf("expected inactive employee filtered out, got %d", len(list))
		}
	})

	t.Run("CaseSubjects", func(t *testing.T) {
		s := &domain.CaseSubject{ID: "subj-001", CaseID: "case-001", Name: "Acme Corp", Role: "respondent"}
		if err := repo.SaveCaseSubject(ctx, orgID, s); err != nil {
			t.Fatalf("SaveCaseSubject failed: %v", err)
		}

		list, err := repo.ListCaseSubjects(ctx, orgID, 10)
		if err != nil {
			t.Fatalf("ListCaseSubjects failed: %v", err)
		}
		if len(list) != 1 || list[0].Name != "Acme Corp" {
			t.Errorf("unexpected case subjects: %+v", list)
		}
	})
}

func TestAlertLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	orgID := "org-001"

	newAlert := func(id string) *domain.ConflictAlert {
		return &domain.ConflictAlert{
			ID:            id,
			DisclosureID:  "disc-001",
			PersonID:      "person-001",
			Type:          domain.ConflictSelfDealing,
			Severity:      domain.SeverityHigh,
			Status:        domain.AlertOpen,
			MatchedEntity: "Acme Corp",
			Confidence:    95,
			Summary:       "entity disclosed in 3 prior submissions",
			Context: domain.MatchContext{
				Kind:       domain.ContextDisclosure,
				Disclosure: &domain.DisclosureContext{DisclosureIDs: []string{"disc-000"}},
			},
			SeverityFactors: []string{"exact entity name match"},
			CreatedAt:       time.Now().UTC(),
			UpdatedAt:       time.Now().UTC(),
		}
	}

	t.Run("SaveAndGet", func(t *testing.T) {
		if err := repo.SaveAlert(ctx, orgID, newAlert("alert-001")); err != nil {
			t.Fatalf("SaveAlert failed: %v", err)
		}

		a, err := repo.GetAlert(ctx, orgID, "alert-001")
		if err != nil {
			t.Fatalf("GetAlert failed: %v", err)
		}
		if a.Context.Kind != domain.ContextDisclosure || a.Context.Disclosure == nil {
			t.Errorf("expected disclosure context round trip, got %+v", a.Context)
		}
		if len(a.SeverityFactors) != 1 {
			t.Errorf("expected severity factors round trip, got %v", a.SeverityFactors)
		}
	})

	t.Run("Dismiss", func(t *testing.T) {
		err := repo.DismissAlert(ctx, orgID, "alert-001", "false_positive", "different entity", "reviewer-1")
		if err != nil {
			t.Fatalf("DismissAlert failed: %v", err)
		}

		a, err := repo.GetAlert(ctx, orgID, "alert-001")
		if err != nil {
			t.Fatalf("GetAlert failed: %v", err)
		}
		if a.Status != domain.AlertDismissed {
			t.Errorf("expected DISMISSED, got %s", a.Status)
		}
		if a.DismissedAt == nil || a.DismissedBy != "reviewer-1" {
			t.Errorf("expected dismissal details recorded, got %+v", a)
		}
	})

	t.Run("DismissRequiresOpen", func(t *testing.T) {
		err := repo.DismissAlert(ctx, orgID, "alert-001", "false_positive", "again", "reviewer-1")
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("expected ErrInvalidState for second dismissal, got: %v", err)
		}
	})

	t.Run("DismissRequiresReason", func(t *testing.T) {
		if err := repo.SaveAlert(ctx, orgID, newAlert("alert-002")); err != nil {
			t.Fatalf("SaveAlert failed: %v", err)
		}
		err := repo.DismissAlert(ctx, orgID, "alert-002", "", "", "reviewer-1")
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing reason, got: %v", err)
		}
	})

	t.Run("Escalate", func(t *testing.T) {
		if err := repo.EscalateAlert(ctx, orgID, "alert-002", "case-100"); err != nil {
			t.Fatalf("EscalateAlert failed: %v", err)
		}

		a, err := repo.GetAlert(ctx, orgID, "alert-002")
		if err != nil {
			t.Fatalf("GetAlert failed: %v", err)
		}
		if a.Status != domain.AlertEscalated || a.EscalatedCaseID != "case-100" {
			t.Errorf("expected escalated alert with case link, got %+v", a)
		}
	})

	t.Run("EscalateRequiresOpen", func(t *testing.T) {
		err := repo.EscalateAlert(ctx, orgID, "alert-002", "case-101")
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got: %v", err)
		}
	})

	t.Run("Resolve", func(t *testing.T) {
		if err := repo.ResolveAlert(ctx, orgID, "alert-002"); err != nil {
			t.Fatalf("ResolveAlert failed: %v", err)
		}

		a, err := repo.GetAlert(ctx, orgID, "alert-002")
		if err != nil {
			t.Fatalf("GetAlert failed: %v", err)
		}
		if a.Status != domain.AlertResolved {
			t.Errorf("expected RESOLVED, got %s", a.Status)
		}
	})

	t.Run("ResolveRequiresClosed", func(t *testing.T) {
		if err := repo.SaveAlert(ctx, orgID, newAlert("alert-003")); err != nil {
			t.Fatalf("SaveAlert failed: %v", err)
		}
		err := repo.ResolveAlert(ctx, orgID, "alert-003")
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("expected ErrInvalidState resolving an OPEN alert, got: %v", err)
		}
	})

	t.Run("ListByStatus", func(t *testing.T) {
		open, err := repo.ListAlerts(ctx, orgID, domain.AlertOpen, 10)
		if err != nil {
			t.Fatalf("ListAlerts failed: %v", err)
		}
		if len(open) != 1 {
			t.Errorf("expected 1 open alert, got %d", len(open))
		}

		all, err := repo.ListAlerts(ctx, orgID, "", 10)
		if err != nil {
			t.Fatalf("ListAlerts failed: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 alerts total, got %d", len(all))
		}
	})

	t.Run("ListByEntity", func(t *testing.T) {
		list, err := repo.ListAlertsByEntity(ctx, orgID, "Acme Corp", 10)
		if err != nil {
			t.Fatalf("ListAlertsByEntity failed: %v", err)
		}
		if len(list) != 3 {
			t.Errorf("expected 3 alerts for entity, got %d", len(list))
		}
	})

	t.Run("TransitionOnMissingAlert", func(t *testing.T) {
		err := repo.DismissAlert(ctx, orgID, "nonexistent", "c", "r", "a")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestExclusions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	orgID := "org-001"

	newExclusion := func(id string, active bool) *domain.ConflictExclusion {
		return &domain.ConflictExclusion{
			ID:            id,
			PersonID:      "person-001",
			MatchedEntity: "acme corp",
			Type:          domain.ConflictSelfDealing,
			Scope:         domain.ScopePermanent,
			Active:        active,
			CreatedAt:     time.Now().UTC(),
			UpdatedAt:     time.Now().UTC(),
		}
	}

	t.Run("SaveAndFind", func(t *testing.T) {
		if err := repo.SaveExclusion(ctx, orgID, newExclusion("excl-001", true)); err != nil {
			t.Fatalf("SaveExclusion failed: %v", err)
		}

		found, err := repo.FindActiveExclusions(ctx, orgID, "person-001", domain.ConflictSelfDealing)
		if err != nil {
			t.Fatalf("FindActiveExclusions failed: %v", err)
		}
		if len(found) != 1 {
			t.Errorf("expected 1 active exclusion, got %d", len(found))
		}
	})

	t.Run("ActiveUniqueness", func(t *testing.T) {
		err := repo.SaveExclusion(ctx, orgID, newExclusion("excl-002", true))
		if !errors.Is(err, ErrDuplicate) {
			t.Errorf("expected ErrDuplicate for second active exclusion, got: %v", err)
		}

		// An inactive duplicate is allowed
		if err := repo.SaveExclusion(ctx, orgID, newExclusion("excl-003", false)); err != nil {
			t.Errorf("expected inactive duplicate to save, got: %v", err)
		}
	})

	t.Run("Deactivate", func(t *testing.T) {
		if err := repo.DeactivateExclusion(ctx, orgID, "excl-001"); err != nil {
			t.Fatalf("DeactivateExclusion failed: %v", err)
		}

		found, err := repo.FindActiveExclusions(ctx, orgID, "person-001", domain.ConflictSelfDealing)
		if err != nil {
			t.Fatalf("FindActiveExclusions failed: %v", err)
		}
		if len(found) != 0 {
			t.Errorf("expected 0 active exclusions after deactivation, got %d", len(found))
		}

		// Record is kept for audit
		e, err := repo.GetExclusion(ctx, orgID, "excl-001")
		if err != nil {
			t.Fatalf("GetExclusion failed: %v", err)
		}
		if e.Active {
			t.Error("expected deactivated exclusion")
		}

		// Once deactivated, a new active exclusion can take its place
		if err := repo.SaveExclusion(ctx, orgID, newExclusion("excl-004", true)); err != nil {
			t.Errorf("expected new active exclusion after deactivation, got: %v", err)
		}
	})

	t.Run("DeactivateMissing", func(t *testing.T) {
		if err := repo.DeactivateExclusion(ctx, orgID, "nonexistent"); err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("ListActiveOnly", func(t *testing.T) {
		all, err := repo.ListExclusions(ctx, orgID, false, 10)
		if err != nil {
			t.Fatalf("ListExclusions failed: %v", err)
		}
		active, err := repo.ListExclusions(ctx, orgID, true, 10)
		if err != nil {
			t.Fatalf("ListExclusions failed: %v", err)
		}
		if len(all) != 3 || len(active) != 1 {
			t.Errorf("expected 3 total / 1 active, got %d / %d", len(all), len(active))
		}
	})

	t.Run("TimeLimitedRoundTrip", func(t *testing.T) {
		expires := time.Now().UTC().Add(30 * 24 * time.Hour)
		e := &domain.ConflictExclusion{
			ID:            "excl-time",
			PersonID:      "person-002",
			MatchedEntity: "globex",
			Type:          domain.ConflictHRISMatch,
			Scope:         domain.ScopeTimeLimited,
			ExpiresAt:     &expires,
			Active:        true,
			CreatedAt:     time.Now().UTC(),
			UpdatedAt:     time.Now().UTC(),
		}
		if err := repo.SaveExclusion(ctx, orgID, e); err != nil {
			t.Fatalf("SaveExclusion failed: %v", err)
		}

		retrieved, err := repo.GetExclusion(ctx, orgID, "excl-time")
		if err != nil {
			t.Fatalf("GetExclusion failed: %v", err)
		}
		if retrieved.ExpiresAt == nil {
			t.Fatal("expected expiry to round trip")
		}
	})
}

func TestRulesAndTriggerLogs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	orgID := "org-001"

	t.Run("SaveAndGet", func(t *testing.T) {
		rule := &domain.ThresholdRule{
			ID:              "rule-001",
			Name:            "gift value cap",
			DisclosureTypes: []string{"gift"},
			Conditions: []domain.Condition{
				{Field: domain.DisclosureValueField, Operator: domain.OpGte, Value: 500.0},
			},
			Action:    domain.ActionCreateCase,
			ApplyMode: domain.ApplyForward,
			Priority:  10,
			Active:    true,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := repo.SaveRule(ctx, orgID, rule); err != nil {
			t.Fatalf("SaveRule failed: %v", err)
		}

		retrieved, err := repo.GetRule(ctx, orgID, "rule-001")
		if err != nil {
			t.Fatalf("GetRule failed: %v", err)
		}
		if len(retrieved.Conditions) != 1 || retrieved.Conditions[0].Operator != domain.OpGte {
			t.Errorf("expected conditions round trip, got %+v", retrieved.Conditions)
		}
	})

	t.Run("Upsert", func(t *testing.T) {
		rule, err := repo.GetRule(ctx, orgID, "rule-001")
		if err != nil {
			t.Fatalf("GetRule failed: %v", err)
		}
		rule.Priority = 20
		if err := repo.SaveRule(ctx, orgID, rule); err != nil {
			t.Fatalf("SaveRule upsert failed: %v", err)
		}

		retrieved, err := repo.GetRule(ctx, orgID, "rule-001")
		if err != nil {
			t.Fatalf("GetRule failed: %v", err)
		}
		if retrieved.Priority != 20 {
			t.Errorf("expected priority 20 after upsert, got %d", retrieved.Priority)
		}
	})

	t.Run("AggregateRoundTrip", func(t *testing.T) {
		rule := &domain.ThresholdRule{
			ID:              "rule-002",
			Name:            "rolling gift total",
			DisclosureTypes: []string{"gift"},
			Conditions: []domain.Condition{
				{Field: domain.AggregateValueField, Operator: domain.OpGt, Value: 1000.0},
			},
			Aggregate: &domain.AggregateConfig{
				Function:   domain.AggSum,
				WindowType: domain.WindowRolling,
				WindowN:    12,
				WindowUnit: domain.UnitMonths,
				PerPerson:  true,
			},
			Action:    domain.ActionFlagReview,
			ApplyMode: domain.ApplyForward,
			Priority:  5,
			Active:    true,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := repo.SaveRule(ctx, orgID, rule); err != nil {
			t.Fatalf("SaveRule failed: %v", err)
		}

		retrieved, err := repo.GetRule(ctx, orgID, "rule-002")
		if err != nil {
			t.Fatalf("GetRule failed: %v", err)
		}
		if retrieved.Aggregate == nil || retrieved.Aggregate.Function != domain.AggSum {
			t.Fatalf("expected aggregate config round trip, got %+v", retrieved.Aggregate)
		}
		if retrieved.Aggregate.WindowN != 12 || !retrieved.Aggregate.PerPerson {
			t.Errorf("unexpected aggregate config: %+v", retrieved.Aggregate)
		}
	})

	t.Run("ListActiveByType", func(t *testing.T) {
		ruleSet, err := repo.ListActiveRulesByType(ctx, orgID, "gift")
		if err != nil {
			t.Fatalf("ListActiveRulesByType failed: %v", err)
		}
		if len(ruleSet) != 2 {
			t.Fatalf("expected 2 gift rules, got %d", len(ruleSet))
		}
		if ruleSet[0].Priority < ruleSet[1].Priority {
			t.Error("expected priority descending order")
		}

		ruleSet, err = repo.ListActiveRulesByType(ctx, orgID, "outside_activity")
		if err != nil {
			t.Fatalf("ListActiveRulesByType failed: %v", err)
		}
		if len(ruleSet) != 0 {
			t.Errorf("expected 0 rules for unmatched type, got %d", len(ruleSet))
		}
	})

	t.Run("Deactivate", func(t *testing.T) {
		if err := repo.DeactivateRule(ctx, orgID, "rule-002"); err != nil {
			t.Fatalf("DeactivateRule failed: %v", err)
		}

		ruleSet, err := repo.ListActiveRulesByType(ctx, orgID, "gift")
		if err != nil {
			t.Fatalf("ListActiveRulesByType failed: %v", err)
		}
		if len(ruleSet) != 1 {
			t.Errorf("expected 1 active rule after deactivation, got %d", len(ruleSet))
		}
	})

	t.Run("TriggerLogs", func(t *testing.T) {
		l := &domain.TriggerLog{
			ID:             "log-001",
			RuleID:         "rule-001",
			DisclosureID:   "disc-001",
			PersonID:       "person-001",
			EvaluatedValue: 750,
			ThresholdValue: 500,
			Expression:     `aggregateValue > 500.0`,
			Breakdown: &domain.AggregateBreakdown{
				Function:      domain.AggSum,
				Value:         750,
				DisclosureIDs: []string{"disc-000", "disc-001"},
				Values:        []float64{250, 500},
			},
			Action:    domain.ActionCreateCase,
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.SaveTriggerLog(ctx, orgID, l); err != nil {
			t.Fatalf("SaveTriggerLog failed: %v", err)
		}

		logs, err := repo.ListTriggerLogsByDisclosure(ctx, orgID, "disc-001")
		if err != nil {
			t.Fatalf("ListTriggerLogsByDisclosure failed: %v", err)
		}
		if len(logs) != 1 {
			t.Fatalf("expected 1 trigger log, got %d", len(logs))
		}
		if logs[0].Breakdown == nil || logs[0].Breakdown.Value != 750 {
			t.Errorf("expected breakdown round trip, got %+v", logs[0].Breakdown)
		}
		if logs[0].Expression != `aggregateValue > 500.0` {
			t.Errorf("expected expression round trip, got %q", logs[0].Expression)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "mysql"})
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
