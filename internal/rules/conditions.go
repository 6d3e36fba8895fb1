// Package rules implements the threshold rule engine: condition evaluation
// over flattened disclosure facts, rolling-window aggregation, CEL
// expression rules and the orchestrator that ties them together.
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
)

// Flatten converts nested fact data to a single-level map keyed by
// dot-paths. Arrays stay in place as values.
func Flatten(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	flattenInto("", data, out)
	return out
}

func flattenInto(prefix string, data map[string]any, out map[string]any) {
	for k, v := range data {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// EvaluateConditions applies an ordered condition list to a fact map.
//
// The conjunction semantics are list-wide, not pairwise: if any condition
// in the list carries an OR conjunction, the whole list is satisfied when
// any single condition matches; otherwise every condition must match.
// A condition whose field is absent from the fact map is simply false,
// never an error.
func EvaluateConditions(conds []domain.Condition, facts map[string]any) bool {
	if len(conds) == 0 {
		return false
	}

	anyMode := false
	for _, c := range conds {
		if c.Conjunction == domain.ConjOr {
			anyMode = true
			break
		}
	}

	if anyMode {
		for _, c := range conds {
			if evaluateCondition(c, facts) {
				return true
			}
		}
		return false
	}

	for _, c := range conds {
		if !evaluateCondition(c, facts) {
			return false
		}
	}
	return true
}

func evaluateCondition(c domain.Condition, facts map[string]any) bool {
	fact, ok := facts[c.Field]
	if !ok || fact == nil {
		return false
	}

	switch c.Operator {
	case domain.OpEq:
		return looseEqual(fact, c.Value)
	case domain.OpNeq:
		return !looseEqual(fact, c.Value)
	case domain.OpGt, domain.OpGte, domain.OpLt, domain.OpLte:
		return compareOrdered(c.Operator, fact, c.Value)
	case domain.OpContains:
		return containsValue(fact, c.Value)
	case domain.OpNotContains:
		return !containsValue(fact, c.Value)
	case domain.OpIn:
		return inList(fact, c.Value)
	case domain.OpNotIn:
		return !inList(fact, c.Value)
	default:
		return false
	}
}

// looseEqual compares numerically when both sides coerce to numbers,
// otherwise by case-insensitive string form.
func looseEqual(a, b any) bool {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		return fa == fb
	}
	return strings.EqualFold(fmt.Sprint(a), fmt.Sprint(b))
}

func compareOrdered(op domain.Operator, fact, value any) bool {
	if ff, fok := toFloat(fact); fok {
		if fv, vok := toFloat(value); vok {
			return applyOrdered(op, ff, fv)
		}
	}
	if tf, fok := toTime(fact); fok {
		if tv, vok := toTime(value); vok {
			return applyOrdered(op, float64(tf.UnixNano()), float64(tv.UnixNano()))
		}
	}
	return false
}

func applyOrdered(op domain.Operator, a, b float64) bool {
	switch op {
	case domain.OpGt:
		return a > b
	case domain.OpGte:
		return a >= b
	case domain.OpLt:
		return a < b
	case domain.OpLte:
		return a <= b
	}
	return false
}

// containsValue handles substring containment for string facts and
// membership for list facts.
func containsValue(fact, value any) bool {
	switch f := fact.(type) {
	case string:
		return strings.Contains(strings.ToLower(f), strings.ToLower(fmt.Sprint(value)))
	case []any:
		for _, item := range f {
			if looseEqual(item, value) {
				return true
			}
		}
	}
	return false
}

func inList(fact, value any) bool {
	list, ok := value.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		if looseEqual(fact, item) {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
