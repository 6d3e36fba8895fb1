package domain

import "time"

// TriggeredRule is one rule that fired during threshold evaluation.
type TriggeredRule struct {
	RuleID         string              `json:"ruleId"`
	RuleName       string              `json:"ruleName"`
	Action         RuleAction          `json:"action"`
	ActionConfig   map[string]any      `json:"actionConfig,omitempty"`
	EvaluatedValue float64             `json:"evaluatedValue"`
	ThresholdValue float64             `json:"thresholdValue"`
	Expression     string              `json:"expression,omitempty"`
	Breakdown      *AggregateBreakdown `json:"breakdown,omitempty"`
}

// ThresholdResult is the outcome of running all applicable rules against
// one disclosure.
type ThresholdResult struct {
	Triggered         bool            `json:"triggered"`
	TriggeredRules    []TriggeredRule `json:"triggeredRules"`
	RecommendedAction RuleAction      `json:"recommendedAction,omitempty"`
	RulesEvaluated    int             `json:"rulesEvaluated"`
	RulesFailed       int             `json:"rulesFailed"`
}

// ConflictResult is the outcome of running all detection strategies against
// one disclosure, after exclusion filtering.
type ConflictResult struct {
	ConflictCount         int              `json:"conflictCount"`
	Conflicts             []*ConflictAlert `json:"conflicts"`
	ExcludedConflictCount int              `json:"excludedConflictCount"`
	AppliedExclusionIDs   []string         `json:"appliedExclusionIds,omitempty"`
}

// EvaluationResult is the combined, ephemeral output handed back to the
// disclosure-submission caller. It is not persisted as its own record; the
// alerts and trigger logs inside it are.
type EvaluationResult struct {
	DisclosureID string          `json:"disclosureId"`
	OrgID        string          `json:"orgId"`
	PersonID     string          `json:"personId"`
	Threshold    ThresholdResult `json:"threshold"`
	Conflicts    ConflictResult  `json:"conflicts"`
	EvaluatedAt  time.Time       `json:"evaluatedAt"`
	ElapsedMs    int64           `json:"elapsedMs"`
}

// ConflictDetectedEvent is the payload of TopicConflictDetected.
type ConflictDetectedEvent struct {
	OrgID         string           `json:"orgId"`
	DisclosureID  string           `json:"disclosureId"`
	PersonID      string           `json:"personId"`
	ConflictCount int              `json:"conflictCount"`
	Conflicts     []*ConflictAlert `json:"conflicts"`
}

// ThresholdTriggeredEvent is the payload of TopicThresholdTriggered.
type ThresholdTriggeredEvent struct {
	OrgID             string          `json:"orgId"`
	DisclosureID      string          `json:"disclosureId"`
	PersonID          string          `json:"personId"`
	TriggeredRules    []TriggeredRule `json:"triggeredRules"`
	RecommendedAction RuleAction      `json:"recommendedAction"`
}

// DisclosureSubmittedEvent is the payload consumed from
// TopicDisclosureSubmitted by the async worker.
type DisclosureSubmittedEvent struct {
	OrgID          string         `json:"orgId"`
	DisclosureID   string         `json:"disclosureId"`
	PersonID       string         `json:"personId"`
	DisclosureType string         `json:"disclosureType"`
	RelatedCompany string         `json:"relatedCompany,omitempty"`
	RelatedPerson  string         `json:"relatedPerson,omitempty"`
	Value          float64        `json:"value,omitempty"`
	FactData       map[string]any `json:"factData,omitempty"`
	SubmittedAt    *time.Time     `json:"submittedAt,omitempty"`
}
