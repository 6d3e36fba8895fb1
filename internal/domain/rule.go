package domain

import (
	"fmt"
	"time"
)

// Operator is a condition comparison operator.
type Operator string

const (
	OpEq          Operator = "eq"
	OpNeq         Operator = "neq"
	OpGt          Operator = "gt"
	OpGte         Operator = "gte"
	OpLt          Operator = "lt"
	OpLte         Operator = "lte"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
)

// Conjunction joins a condition to the next one in the list.
type Conjunction string

const (
	ConjAnd Conjunction = "AND"
	ConjOr  Conjunction = "OR"
)

// Condition is a single field comparison inside a threshold rule.
// Field is a dot-path into the flattened disclosure fact map; the reserved
// field "aggregateValue" refers to the computed aggregate.
type Condition struct {
	Field       string      `json:"field"`
	Operator    Operator    `json:"operator"`
	Value       any         `json:"value"`
	Conjunction Conjunction `json:"conjunction,omitempty"`
}

// AggregateValueField is the reserved fact key for the computed aggregate.
const AggregateValueField = "aggregateValue"

// DisclosureValueField is the fact key for the disclosure's own value.
const DisclosureValueField = "disclosureValue"

// RuleAction is what happens when a rule triggers.
type RuleAction string

const (
	ActionNotify          RuleAction = "NOTIFY"
	ActionFlagReview      RuleAction = "FLAG_REVIEW"
	ActionRequireApproval RuleAction = "REQUIRE_APPROVAL"
	ActionCreateCase      RuleAction = "CREATE_CASE"
)

// ActionPriority ranks actions when several rules trigger for one
// disclosure. The highest-priority action wins regardless of rule order.
func ActionPriority(a RuleAction) int {
	switch a {
	case ActionCreateCase:
		return 4
	case ActionRequireApproval:
		return 3
	case ActionFlagReview:
		return 2
	case ActionNotify:
		return 1
	default:
		return 0
	}
}

// ApplyMode controls which disclosures a rule applies to.
type ApplyMode string

const (
	ApplyForward         ApplyMode = "FORWARD_ONLY"
	ApplyRetroactive     ApplyMode = "RETROACTIVE"
	ApplyRetroactiveFrom ApplyMode = "RETROACTIVE_FROM_DATE"
)

// AggregateFunc reduces historical disclosure values to one number.
type AggregateFunc string

const (
	AggSum   AggregateFunc = "SUM"
	AggCount AggregateFunc = "COUNT"
	AggAvg   AggregateFunc = "AVG"
	AggMax   AggregateFunc = "MAX"
)

// WindowType selects between a rolling window and a calendar window.
type WindowType string

const (
	WindowRolling  WindowType = "rolling"
	WindowCalendar WindowType = "calendar"
)

// WindowUnit is the unit of a rolling window length.
type WindowUnit string

const (
	UnitDays   WindowUnit = "days"
	UnitMonths WindowUnit = "months"
	UnitYears  WindowUnit = "years"
)

// AggregateConfig describes a rolling- or calendar-window aggregation over
// the person's and/or entity's disclosure history.
type AggregateConfig struct {
	Function AggregateFunc `json:"function"`

	// Field is the dot-path of the numeric fact to aggregate. Empty means
	// the disclosure's own value field.
	Field string `json:"field,omitempty"`

	WindowType WindowType `json:"windowType"`
	WindowN    int        `json:"windowN,omitempty"`    // rolling only
	WindowUnit WindowUnit `json:"windowUnit,omitempty"` // rolling only

	// Dimension flags: which history the window spans.
	PerPerson bool `json:"perPerson"`
	PerEntity bool `json:"perEntity"`

	// GroupBy lists additional fact fields; historical disclosures only
	// contribute when their value for each field equals the current
	// disclosure's value.
	GroupBy []string `json:"groupBy,omitempty"`
}

// ThresholdRule is an organization-configured rule evaluated against each
// submitted disclosure of a matching type.
//
// A rule carries either an ordered Conditions list or a CEL Expression,
// not both. Conditions follow any/all semantics: if any condition in the
// list carries an OR conjunction the whole list is satisfied when any
// condition matches; otherwise every condition must match.
type ThresholdRule struct {
	ID          string `json:"id"`
	OrgID       string `json:"orgId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// DisclosureTypes the rule applies to, e.g. "gift", "outside_activity".
	DisclosureTypes []string `json:"disclosureTypes"`

	Conditions []Condition `json:"conditions,omitempty"`

	// Expression is an optional CEL alternative to Conditions. It is
	// compiled and validated at write time and must yield a bool.
	Expression string `json:"expression,omitempty"`

	Aggregate *AggregateConfig `json:"aggregate,omitempty"`

	Action       RuleAction     `json:"action"`
	ActionConfig map[string]any `json:"actionConfig,omitempty"`

	ApplyMode ApplyMode  `json:"applyMode"`
	ApplyFrom *time.Time `json:"applyFrom,omitempty"` // RETROACTIVE_FROM_DATE only

	Priority int  `json:"priority"`
	Active   bool `json:"active"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// AppliesTo reports whether the rule covers the given disclosure type.
func (r *ThresholdRule) AppliesTo(disclosureType string) bool {
	for _, t := range r.DisclosureTypes {
		if t == disclosureType {
			return true
		}
	}
	return false
}

// Validate checks the rule's structure. Condition values are validated here,
// at write time, so evaluation never has to guess at malformed config.
func (r *ThresholdRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if len(r.DisclosureTypes) == 0 {
		return fmt.Errorf("rule %s: at least one disclosure type is required", r.Name)
	}
	if ActionPriority(r.Action) == 0 {
		return fmt.Errorf("rule %s: unknown action %q", r.Name, r.Action)
	}
	if len(r.Conditions) == 0 && r.Expression == "" {
		return fmt.Errorf("rule %s: conditions or expression required", r.Name)
	}
	if len(r.Conditions) > 0 && r.Expression != "" {
		return fmt.Errorf("rule %s: conditions and expression are mutually exclusive", r.Name)
	}
	for i, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("rule %s: condition %d: %w", r.Name, i, err)
		}
	}
	if r.Aggregate != nil {
		if err := r.Aggregate.Validate(); err != nil {
			return fmt.Errorf("rule %s: aggregate: %w", r.Name, err)
		}
	}
	if r.ApplyMode == ApplyRetroactiveFrom && r.ApplyFrom == nil {
		return fmt.Errorf("rule %s: applyFrom is required for %s", r.Name, ApplyRetroactiveFrom)
	}
	return nil
}

// Validate checks that the operator is known and the value shape fits it.
func (c *Condition) Validate() error {
	if c.Field == "" {
		return fmt.Errorf("field is required")
	}
	switch c.Operator {
	case OpEq, OpNeq, OpContains, OpNotContains:
		if c.Value == nil {
			return fmt.Errorf("operator %s requires a value", c.Operator)
		}
	case OpGt, OpGte, OpLt, OpLte:
		switch c.Value.(type) {
		case float64, int, int64:
		case string:
			// Permitted for date comparisons; parsed at evaluation.
		default:
			return fmt.Errorf("operator %s requires a numeric or date value", c.Operator)
		}
	case OpIn, OpNotIn:
		if _, ok := c.Value.([]any); !ok {
			return fmt.Errorf("operator %s requires a list value", c.Operator)
		}
	default:
		return fmt.Errorf("unknown operator %q", c.Operator)
	}
	switch c.Conjunction {
	case "", ConjAnd, ConjOr:
	default:
		return fmt.Errorf("unknown conjunction %q", c.Conjunction)
	}
	return nil
}

// Validate checks the aggregate configuration.
func (a *AggregateConfig) Validate() error {
	switch a.Function {
	case AggSum, AggCount, AggAvg, AggMax:
	default:
		return fmt.Errorf("unknown aggregate function %q", a.Function)
	}
	switch a.WindowType {
	case WindowRolling:
		if a.WindowN <= 0 {
			return fmt.Errorf("rolling window requires a positive length")
		}
		switch a.WindowUnit {
		case UnitDays, UnitMonths, UnitYears:
		default:
			return fmt.Errorf("unknown window unit %q", a.WindowUnit)
		}
	case WindowCalendar:
	default:
		return fmt.Errorf("unknown window type %q", a.WindowType)
	}
	if !a.PerPerson && !a.PerEntity {
		return fmt.Errorf("at least one aggregate dimension is required")
	}
	return nil
}

// TriggerLog is the immutable record of one rule firing for one disclosure.
type TriggerLog struct {
	ID           string `json:"id"`
	OrgID        string `json:"orgId"`
	RuleID       string `json:"ruleId"`
	DisclosureID string `json:"disclosureId"`
	PersonID     string `json:"personId"`

	EvaluatedValue float64 `json:"evaluatedValue"`
	ThresholdValue float64 `json:"thresholdValue"`

	// Expression is populated for expression rules, which have no scalar
	// threshold; ThresholdValue is zero for them and the expression text
	// is the audit record of what was evaluated.
	Expression string `json:"expression,omitempty"`

	// Breakdown is populated for aggregate rules.
	Breakdown *AggregateBreakdown `json:"breakdown,omitempty"`

	Action    RuleAction `json:"action"`
	CreatedAt time.Time  `json:"createdAt"`
}

// AggregateBreakdown itemizes how an aggregate value was computed.
type AggregateBreakdown struct {
	Function      AggregateFunc `json:"function"`
	Value         float64       `json:"value"`
	WindowStart   time.Time     `json:"windowStart"`
	WindowEnd     time.Time     `json:"windowEnd"`
	DisclosureIDs []string      `json:"disclosureIds"`
	Dates         []time.Time   `json:"dates"`
	Values        []float64     `json:"values"`
	Truncated     bool          `json:"truncated,omitempty"` // scan cap reached
}
