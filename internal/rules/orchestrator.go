package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
)

// ruleCacheTTL bounds how stale a cached active-rule set may be.
const ruleCacheTTL = time.Minute

// RuleCacheKey is the cache key holding the active-rule set for one
// disclosure type.
func RuleCacheKey(disclosureType string) string {
	return "rules:" + disclosureType
}

// InvalidateRuleCache drops the cached active-rule sets for the given
// disclosure types. Rule writers must call this so a created, updated or
// deactivated rule takes effect on the next evaluation instead of after
// the cache TTL lapses. c may be nil.
func InvalidateRuleCache(ctx context.Context, c domain.Cache, orgID string, disclosureTypes []string) {
	if c == nil {
		return
	}
	for _, t := range disclosureTypes {
		if err := c.Delete(ctx, orgID, RuleCacheKey(t)); err != nil {
			slog.Debug("failed to invalidate rule cache",
				"org_id", orgID,
				"disclosure_type", t,
				"error", err,
			)
		}
	}
}

// Orchestrator runs every active rule for a disclosure type against a
// submitted disclosure, records trigger logs and resolves the recommended
// action.
type Orchestrator struct {
	repo  domain.Repository
	calc  *Calculator
	exprs *ExprEngine
	cache domain.Cache // optional; caches active-rule sets per disclosure type
}

// NewOrchestrator creates an orchestrator. cache may be nil.
func NewOrchestrator(repo domain.Repository, calc *Calculator, exprs *ExprEngine, cache domain.Cache) *Orchestrator {
	return &Orchestrator{
		repo:  repo,
		calc:  calc,
		exprs: exprs,
		cache: cache,
	}
}

// Evaluate runs all applicable rules in descending priority order. A single
// rule's failure is logged and skipped; it never aborts evaluation of the
// remaining rules or the disclosure submission.
func (o *Orchestrator) Evaluate(ctx context.Context, d *domain.Disclosure, limits domain.ScanLimits) (*domain.ThresholdResult, error) {
	ruleSet, err := o.loadRules(ctx, d.OrgID, d.Type)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	facts := buildFacts(d)
	result := &domain.ThresholdResult{RulesEvaluated: len(ruleSet)}

	for _, rule := range ruleSet {
		triggered, trig, err := o.evaluateRule(ctx, rule, d, facts, limits)
		if err != nil {
			result.RulesFailed++
			slog.Error("rule evaluation failed",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"disclosure_id", d.ID,
				"org_id", d.OrgID,
				"error", err,
			)
			continue
		}
		if !triggered {
			continue
		}

		result.Triggered = true
		result.TriggeredRules = append(result.TriggeredRules, trig)
		if domain.ActionPriority(trig.Action) > domain.ActionPriority(result.RecommendedAction) {
			result.RecommendedAction = trig.Action
		}

		log := &domain.TriggerLog{
			ID:             uuid.New().String(),
			OrgID:          d.OrgID,
			RuleID:         rule.ID,
			DisclosureID:   d.ID,
			PersonID:       d.PersonID,
			EvaluatedValue: trig.EvaluatedValue,
			ThresholdValue: trig.ThresholdValue,
			Expression:     trig.Expression,
			Breakdown:      trig.Breakdown,
			Action:         trig.Action,
			CreatedAt:      time.Now().UTC(),
		}
		if err := o.repo.SaveTriggerLog(ctx, d.OrgID, log); err != nil {
			slog.Error("failed to save trigger log",
				"rule_id", rule.ID,
				"disclosure_id", d.ID,
				"error", err,
			)
		}
	}

	return result, nil
}

// evaluateRule runs one rule. Panics from malformed configuration are
// contained here so one bad rule cannot take down the batch.
func (o *Orchestrator) evaluateRule(ctx context.Context, rule *domain.ThresholdRule, d *domain.Disclosure, facts map[string]any, limits domain.ScanLimits) (triggered bool, trig domain.TriggeredRule, err error) {
	defer func() {
		if r := recover(); r != nil {
			triggered = false
			err = fmt.Errorf("rule %s: panic: %v", rule.ID, r)
		}
	}()

	evaluatedValue := d.Value
	evaluatedField := domain.DisclosureValueField
	var breakdown *domain.AggregateBreakdown

	ruleFacts := facts
	if rule.Aggregate != nil {
		breakdown, err = o.calc.Compute(ctx, d, rule.Aggregate, limits)
		if err != nil {
			return false, trig, err
		}
		evaluatedValue = breakdown.Value
		evaluatedField = domain.AggregateValueField

		ruleFacts = make(map[string]any, len(facts)+1)
		for k, v := range facts {
			ruleFacts[k] = v
		}
		ruleFacts[domain.AggregateValueField] = evaluatedValue
	}

	if rule.Expression != "" {
		activation := map[string]any{
			"facts":           ruleFacts,
			"aggregateValue":  evaluatedValue,
			"disclosureValue": d.Value,
			"disclosureType":  d.Type,
			"personId":        d.PersonID,
		}
		triggered, err = o.exprs.Eval(rule, activation)
		if err != nil {
			return false, trig, err
		}
	} else {
		triggered = EvaluateConditions(rule.Conditions, ruleFacts)
	}

	if !triggered {
		return false, trig, nil
	}

	trig = domain.TriggeredRule{
		RuleID:         rule.ID,
		RuleName:       rule.Name,
		Action:         rule.Action,
		ActionConfig:   rule.ActionConfig,
		EvaluatedValue: evaluatedValue,
		ThresholdValue: thresholdFromConditions(rule.Conditions, evaluatedField),
		Expression:     rule.Expression,
		Breakdown:      breakdown,
	}
	return true, trig, nil
}

// buildFacts flattens the disclosure's fact data and injects the standard
// fields rules reference by name.
func buildFacts(d *domain.Disclosure) map[string]any {
	facts := Flatten(d.FactData)
	facts[domain.DisclosureValueField] = d.Value
	facts["disclosureType"] = d.Type
	facts["personId"] = d.PersonID
	if d.RelatedCompany != "" {
		facts["relatedCompany"] = d.RelatedCompany
	}
	if d.RelatedPerson != "" {
		facts["relatedPerson"] = d.RelatedPerson
	}
	return facts
}

// thresholdFromConditions extracts the threshold recorded in the trigger
// log: the value of the first condition comparing the evaluated field, or
// failing that the first numeric condition value. Expression rules have no
// conditions and no scalar threshold; the log records zero here and the
// expression text alongside it.
func thresholdFromConditions(conds []domain.Condition, evaluatedField string) float64 {
	for _, c := range conds {
		if c.Field != evaluatedField {
			continue
		}
		if v, ok := toFloat(c.Value); ok {
			return v
		}
	}
	for _, c := range conds {
		if v, ok := toFloat(c.Value); ok {
			return v
		}
	}
	return 0
}

// loadRules returns the active rules for a disclosure type in descending
// priority order, via the cache when one is configured.
func (o *Orchestrator) loadRules(ctx context.Context, orgID, disclosureType string) ([]*domain.ThresholdRule, error) {
	cacheKey := RuleCacheKey(disclosureType)

	if o.cache != nil {
		if raw, err := o.cache.Get(ctx, orgID, cacheKey); err == nil && raw != nil {
			var cached []*domain.ThresholdRule
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	ruleSet, err := o.repo.ListActiveRulesByType(ctx, orgID, disclosureType)
	if err != nil {
		return nil, err
	}

	if o.cache != nil {
		if raw, err := json.Marshal(ruleSet); err == nil {
			if err := o.cache.Set(ctx, orgID, cacheKey, raw, ruleCacheTTL); err != nil {
				slog.Debug("failed to cache rule set", "org_id", orgID, "error", err)
			}
		}
	}

	return ruleSet, nil
}
