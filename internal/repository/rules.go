package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
)

const ruleColumns = `id, org_id, name, description, disclosure_types, conditions,
	   expression, aggregate, action, action_config, apply_mode, apply_from,
	   priority, active, created_at, updated_at`

// SaveRule upserts a threshold rule with org isolation.
func (r *SQLRepository) SaveRule(ctx context.Context, orgID string, rule *domain.ThresholdRule) error {
	if orgID == "" {
		return fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	types, _ := json.Marshal(rule.DisclosureTypes)
	conditions, _ := json.Marshal(rule.Conditions)
	actionConfig, _ := json.Marshal(rule.ActionConfig)

	var aggregate string
	if rule.Aggregate != nil {
		raw, _ := json.Marshal(rule.Aggregate)
		aggregate = string(raw)
	}

	var applyFrom sql.NullTime
	if rule.ApplyFrom != nil {
		applyFrom = sql.NullTime{Time: *rule.ApplyFrom, Valid: true}
	}

	active := 0
	if rule.Active {
		active = 1
	}

	query := `
		INSERT INTO threshold_rules (
			id, org_id, name, description, disclosure_types, conditions,
			expression, aggregate, action, action_config, apply_mode, apply_from,
			priority, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			disclosure_types = excluded.disclosure_types,
			conditions = excluded.conditions,
			expression = excluded.expression,
			aggregate = excluded.aggregate,
			action = excluded.action,
			action_config = excluded.action_config,
			apply_mode = excluded.apply_mode,
			apply_from = excluded.apply_from,
			priority = excluded.priority,
			active = excluded.active,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, orgID, rule.Name, rule.Description,
		string(types), string(conditions),
		rule.Expression, aggregate,
		string(rule.Action), string(actionConfig),
		string(rule.ApplyMode), applyFrom,
		rule.Priority, active,
		rule.CreatedAt, rule.UpdatedAt,
	)
	return err
}

func scanRule(scan func(...any) error) (*domain.ThresholdRule, error) {
	var rule domain.ThresholdRule
	var description, types, conditions, expression, aggregate, actionConfig sql.NullString
	var applyFrom sql.NullTime
	var active int

	if err := scan(
		&rule.ID, &rule.OrgID, &rule.Name, &description,
		&types, &conditions,
		&expression, &aggregate,
		&rule.Action, &actionConfig,
		&rule.ApplyMode, &applyFrom,
		&rule.Priority, &active,
		&rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return nil, err
	}

	rule.Description = description.String
	rule.Expression = expression.String
	if types.String != "" {
		json.Unmarshal([]byte(types.String), &rule.DisclosureTypes)
	}
	if conditions.String != "" {
		json.Unmarshal([]byte(conditions.String), &rule.Conditions)
	}
	if aggregate.String != "" {
		if err := json.Unmarshal([]byte(aggregate.String), &rule.Aggregate); err != nil {
			return nil, fmt.Errorf("failed to parse aggregate config for %s: %w", rule.ID, err)
		}
	}
	if actionConfig.String != "" {
		json.Unmarshal([]byte(actionConfig.String), &rule.ActionConfig)
	}
	if applyFrom.Valid {
		t := applyFrom.Time
		rule.ApplyFrom = &t
	}
	rule.Active = active == 1
	return &rule, nil
}

// GetRule retrieves a rule by ID with org isolation.
func (r *SQLRepository) GetRule(ctx context.Context, orgID string, ruleID string) (*domain.ThresholdRule, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `SELECT ` + ruleColumns + ` FROM threshold_rules WHERE org_id = ? AND id = ?`

	row := r.db.QueryRowContext(ctx, r.rebind(query), orgID, ruleID)
	rule, err := scanRule(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ListRules retrieves an organization's rules ordered by priority descending.
func (r *SQLRepository) ListRules(ctx context.Context, orgID string, activeOnly bool) ([]*domain.ThresholdRule, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `SELECT ` + ruleColumns + ` FROM threshold_rules WHERE org_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY priority DESC, name`

	return r.queryRules(ctx, query, orgID)
}

// ListActiveRulesByType retrieves the active rules covering a disclosure
// type, ordered by priority descending. The type membership lives inside a
// JSON column, so the final filter runs in Go.
func (r *SQLRepository) ListActiveRulesByType(ctx context.Context, orgID string, disclosureType string) ([]*domain.ThresholdRule, error) {
	ruleSet, err := r.ListRules(ctx, orgID, true)
	if err != nil {
		return nil, err
	}

	var matched []*domain.ThresholdRule
	for _, rule := range ruleSet {
		if rule.AppliesTo(disclosureType) {
			matched = append(matched, rule)
		}
	}
	return matched, nil
}

func (r *SQLRepository) queryRules(ctx context.Context, query string, args ...any) ([]*domain.ThresholdRule, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ruleSet []*domain.ThresholdRule
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}
		ruleSet = append(ruleSet, rule)
	}
	return ruleSet, rows.Err()
}

// DeactivateRule soft-deletes a rule by clearing the active flag. Trigger
// logs referencing it are kept.
func (r *SQLRepository) DeactivateRule(ctx context.Context, orgID string, ruleID string) error {
	if orgID == "" {
		return fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `
		UPDATE threshold_rules
		SET active = 0, updated_at = ?
		WHERE org_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), orgID, ruleID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveTriggerLog stores a trigger log entry. Logs are write-once; there is
// no update or delete path.
func (r *SQLRepository) SaveTriggerLog(ctx context.Context, orgID string, l *domain.TriggerLog) error {
	if orgID == "" {
		return fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	var breakdown string
	if l.Breakdown != nil {
		raw, _ := json.Marshal(l.Breakdown)
		breakdown = string(raw)
	}

	query := `
		INSERT INTO trigger_logs (
			id, org_id, rule_id, disclosure_id, person_id,
			evaluated_value, threshold_value, expression, breakdown, action, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		l.ID, orgID, l.RuleID, l.DisclosureID, l.PersonID,
		l.EvaluatedValue, l.ThresholdValue, l.Expression, breakdown,
		string(l.Action), l.CreatedAt,
	)
	return err
}

// ListTriggerLogsByDisclosure retrieves the audit trail of rule firings for
// one disclosure, oldest first.
func (r *SQLRepository) ListTriggerLogsByDisclosure(ctx context.Context, orgID string, disclosureID string) ([]*domain.TriggerLog, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, org_id, rule_id, disclosure_id, person_id,
			   evaluated_value, threshold_value, expression, breakdown, action, created_at
		FROM trigger_logs
		WHERE org_id = ? AND disclosure_id = ?
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), orgID, disclosureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.TriggerLog
	for rows.Next() {
		var l domain.TriggerLog
		var breakdown sql.NullString

		if err := rows.Scan(
			&l.ID, &l.OrgID, &l.RuleID, &l.DisclosureID, &l.PersonID,
			&l.EvaluatedValue, &l.ThresholdValue, &l.Expression, &breakdown,
			&l.Action, &l.CreatedAt,
		); err != nil {
			return nil, err
		}
		if breakdown.String != "" {
			json.Unmarshal([]byte(breakdown.String), &l.Breakdown)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
