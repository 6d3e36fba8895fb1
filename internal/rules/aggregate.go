package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
)

// Calculator computes rolling- and calendar-window aggregates over a
// person's and/or entity's disclosure history. The current disclosure's
// own value always joins the sample set.
type Calculator struct {
	repo domain.Repository
}

// NewCalculator creates a calculator over the given repository.
func NewCalculator(repo domain.Repository) *Calculator {
	return &Calculator{repo: repo}
}

// Compute evaluates the aggregate for the current disclosure and returns
// the value with a full breakdown for reviewer transparency.
func (c *Calculator) Compute(ctx context.Context, d *domain.Disclosure, cfg *domain.AggregateConfig, limits domain.ScanLimits) (*domain.AggregateBreakdown, error) {
	now := time.Now().UTC()
	from, to := windowBounds(cfg, now)

	personFilter := ""
	if cfg.PerPerson {
		personFilter = d.PersonID
	}
	entityFilter := ""
	if cfg.PerEntity {
		entityFilter = primaryEntity(d)
		if entityFilter == "" {
			return nil, fmt.Errorf("aggregate has entity dimension but disclosure %s names no entity", d.ID)
		}
	}

	history, err := c.repo.ListDisclosuresInWindow(ctx, d.OrgID, personFilter, entityFilter, from, to, limits.AggregateRows)
	if err != nil {
		return nil, fmt.Errorf("aggregate: list window disclosures: %w", err)
	}

	truncated := len(history) >= limits.AggregateRows
	if truncated {
		slog.Warn("aggregate scan cap reached",
			"org_id", d.OrgID,
			"disclosure_id", d.ID,
			"limit", limits.AggregateRows,
		)
	}

	currentFacts := Flatten(d.FactData)

	breakdown := &domain.AggregateBreakdown{
		Function:    cfg.Function,
		WindowStart: from,
		WindowEnd:   to,
		Truncated:   truncated,
	}

	for _, h := range history {
		if h.ID == d.ID {
			continue
		}
		if !groupByMatches(cfg.GroupBy, currentFacts, h) {
			continue
		}
		v, ok := extractValue(cfg.Field, h)
		if !ok {
			continue
		}
		breakdown.DisclosureIDs = append(breakdown.DisclosureIDs, h.ID)
		breakdown.Dates = append(breakdown.Dates, h.SubmittedAt)
		breakdown.Values = append(breakdown.Values, v)
	}

	// The disclosure under evaluation always contributes.
	if v, ok := extractValue(cfg.Field, d); ok {
		breakdown.DisclosureIDs = append(breakdown.DisclosureIDs, d.ID)
		breakdown.Dates = append(breakdown.Dates, d.SubmittedAt)
		breakdown.Values = append(breakdown.Values, v)
	}

	breakdown.Value = reduce(cfg.Function, breakdown.Values)
	return breakdown, nil
}

// windowBounds computes [from, to) for the configured window ending now.
func windowBounds(cfg *domain.AggregateConfig, now time.Time) (time.Time, time.Time) {
	if cfg.WindowType == domain.WindowCalendar {
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), now
	}
	switch cfg.WindowUnit {
	case domain.UnitMonths:
		return now.AddDate(0, -cfg.WindowN, 0), now
	case domain.UnitYears:
		return now.AddDate(-cfg.WindowN, 0, 0), now
	default:
		return now.AddDate(0, 0, -cfg.WindowN), now
	}
}

// primaryEntity picks the disclosed counterparty used for the entity
// dimension: the related company when present, else the related person.
func primaryEntity(d *domain.Disclosure) string {
	if d.RelatedCompany != "" {
		return d.RelatedCompany
	}
	return d.RelatedPerson
}

// groupByMatches reports whether a historical disclosure shares the current
// disclosure's value for every group-by field.
func groupByMatches(groupBy []string, currentFacts map[string]any, h *domain.Disclosure) bool {
	if len(groupBy) == 0 {
		return true
	}
	histFacts := Flatten(h.FactData)
	for _, field := range groupBy {
		cur, curOK := currentFacts[field]
		his, hisOK := histFacts[field]
		if !curOK || !hisOK || !looseEqual(cur, his) {
			return false
		}
	}
	return true
}

// extractValue pulls the numeric sample from a disclosure. An empty or
// default field means the disclosure's own value; otherwise the field is a
// dot-path into the fact data. Non-numeric samples are skipped.
func extractValue(field string, d *domain.Disclosure) (float64, bool) {
	if field == "" || field == domain.DisclosureValueField {
		return d.Value, true
	}
	facts := Flatten(d.FactData)
	return toFloat(facts[field])
}

func reduce(fn domain.AggregateFunc, values []float64) float64 {
	if fn == domain.AggCount {
		return float64(len(values))
	}
	if len(values) == 0 {
		return 0
	}
	switch fn {
	case domain.AggSum:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum
	case domain.AggAvg:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	case domain.AggMax:
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max
	}
	return 0
}
