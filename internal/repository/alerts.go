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

const alertColumns = `id, org_id, disclosure_id, person_id, type, severity, status,
	   matched_entity, confidence, summary, context, severity_factors,
	   dismiss_category, dismiss_reason, dismissed_by, dismissed_at,
	   escalated_case_id, exclusion_id, created_at, updated_at`

// SaveAlert stores a conflict alert with org isolation.
func (r *SQLRepository) SaveAlert(ctx context.Context, orgID string, a *domain.ConflictAlert) error {
	if orgID == "" {
		return fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	contextJSON, _ := json.Marshal(a.Context)
	factors, _ := json.Marshal(a.SeverityFactors)

	var dismissedAt sql.NullTime
	if a.DismissedAt != nil {
		dismissedAt = sql.NullTime{Time: *a.DismissedAt, Valid: true}
	}

	query := `
		INSERT INTO conflict_alerts (
			id, org_id, disclosure_id, person_id, type, severity, status,
			matched_entity, confidence, summary, context, severity_factors,
			dismiss_category, dismiss_reason, dismissed_by, dismissed_at,
			escalated_case_id, exclusion_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		a.ID, orgID, a.DisclosureID, a.PersonID,
		string(a.Type), string(a.Severity), string(a.Status),
		a.MatchedEntity, a.Confidence, a.Summary,
		string(contextJSON), string(factors),
		a.DismissCategory, a.DismissReason, a.DismissedBy, dismissedAt,
		a.EscalatedCaseID, a.ExclusionID,
		a.CreatedAt, a.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: alert %s", ErrDuplicate, a.ID)
	}
	return err
}

func scanAlert(scan func(...any) error) (*domain.ConflictAlert, error) {
	var a domain.ConflictAlert
	var contextJSON, factors sql.NullString
	var dismissCategory, dismissReason, dismissedBy sql.NullString
	var escalatedCaseID, exclusionID sql.NullString
	var dismissedAt sql.NullTime

	if err := scan(
		&a.ID, &a.OrgID, &a.DisclosureID, &a.PersonID,
		&a.Type, &a.Severity, &a.Status,
		&a.MatchedEntity, &a.Confidence, &a.Summary,
		&contextJSON, &factors,
		&dismissCategory, &dismissReason, &dismissedBy, &dismissedAt,
		&escalatedCaseID, &exclusionID,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if contextJSON.String != "" {
		json.Unmarshal([]byte(contextJSON.String), &a.Context)
	}
	if factors.String != "" {
		json.Unmarshal([]byte(factors.String), &a.SeverityFactors)
	}
	a.DismissCategory = dismissCategory.String
	a.DismissReason = dismissReason.String
	a.DismissedBy = dismissedBy.String
	a.EscalatedCaseID = escalatedCaseID.String
	a.ExclusionID = exclusionID.String
	if dismissedAt.Valid {
		t := dismissedAt.Time
		a.DismissedAt = &t
	}
	return &a, nil
}

// GetAlert retrieves an alert by ID with org isolation.
func (r *SQLRepository) GetAlert(ctx context.Context, orgID string, alertID string) (*domain.ConflictAlert, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `SELECT ` + alertColumns + ` FROM conflict_alerts WHERE org_id = ? AND id = ?`

	row := r.db.QueryRowContext(ctx, r.rebind(query), orgID, alertID)
	a, err := scanAlert(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAlerts retrieves alerts for an organization, most recent first.
// An empty status means all statuses.
func (r *SQLRepository) ListAlerts(ctx context.Context, orgID string, status domain.AlertStatus, limit int) ([]*domain.ConflictAlert, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `SELECT ` + alertColumns + ` FROM conflict_alerts WHERE org_id = ?`
	args := []any{orgID}

	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}

	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, normalizeLimit(limit))

	return r.queryAlerts(ctx, query, args...)
}

// ListAlertsByEntity retrieves all alerts matching an entity name, most
// recent first. Feeds the entity conflict timeline.
func (r *SQLRepository) ListAlertsByEntity(ctx context.Context, orgID string, entity string, limit int) ([]*domain.ConflictAlert, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}
	if entity == "" {
		return nil, fmt.Errorf("%w: entity is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + alertColumns + `
		FROM conflict_alerts
		WHERE org_id = ? AND matched_entity = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	return r.queryAlerts(ctx, query, orgID, entity, normalizeLimit(limit))
}

func (r *SQLRepository) queryAlerts(ctx context.Context, query string, args ...any) ([]*domain.ConflictAlert, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*domain.ConflictAlert
	for rows.Next() {
		a, err := scanAlert(rows.Scan)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// DismissAlert moves an OPEN alert to DISMISSED with the reviewer's
// categorized reason. Returns ErrInvalidState when the alert is not OPEN.
func (r *SQLRepository) DismissAlert(ctx context.Context, orgID string, alertID string, category, reason, actor string) error {
	if orgID == "" {
		return fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}
	if category == "" || reason == "" {
		return fmt.Errorf("%w: dismissal category and reason are required", ErrInvalidInput)
	}

	now := time.Now().UTC()

	query := `
		UPDATE conflict_alerts
		SET status = ?, dismiss_category = ?, dismiss_reason = ?,
		    dismissed_by = ?, dismissed_at = ?, updated_at = ?
		WHERE org_id = ? AND id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		string(domain.AlertDismissed), category, reason, actor, now, now,
		orgID, alertID, string(domain.AlertOpen),
	)
	if err != nil {
		return err
	}
	return r.transitionOutcome(ctx, orgID, alertID, result)
}

// LinkAlertExclusion records the exclusion created from an alert's
// dismissal. Only DISMISSED alerts carry an exclusion link.
func (r *SQLRepository) LinkAlertExclusion(ctx context.Context, orgID string, alertID string, exclusionID string) error {
	if orgID == "" {
		return fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}
	if exclusionID == "" {
		return fmt.Errorf("%w: exclusionID is required", ErrInvalidInput)
	}

	query := `
		UPDATE conflict_alerts
		SET exclusion_id = ?, updated_at = ?
		WHERE org_id = ? AND id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		exclusionID, time.Now().UTC(),
		orgID, alertID, string(domain.AlertDismissed),
	)
	if err != nil {
		return err
	}
	return r.transitionOutcome(ctx, orgID, alertID, result)
}

// EscalateAlert moves an OPEN alert to ESCALATED and records the created
// case. Returns ErrInvalidState when the alert is not OPEN.
func (r *SQLRepository) EscalateAlert(ctx context.Context, orgID string, alertID string, caseID string) error {
	if orgID == "" {
		return fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}
	if caseID == "" {
		return fmt.Errorf("%w: caseID is required", ErrInvalidInput)
	}

	query := `
		UPDATE conflict_alerts
		SET status = ?, escalated_case_id = ?, updated_at = ?
		WHERE org_id = ? AND id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		string(domain.AlertEscalated), caseID, time.Now().UTC(),
		orgID, alertID, string(domain.AlertOpen),
	)
	if err != nil {
		return err
	}
	return r.transitionOutcome(ctx, orgID, alertID, result)
}

// ResolveAlert closes out a DISMISSED or ESCALATED alert.
func (r *SQLRepository) ResolveAlert(ctx context.Context, orgID string, alertID string) error {
	if orgID == "" {
		return fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `
		UPDATE conflict_alerts
		SET status = ?, updated_at = ?
		WHERE org_id = ? AND id = ? AND status IN (?, ?)
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		string(domain.AlertResolved), time.Now().UTC(),
		orgID, alertID,
		string(domain.AlertDismissed), string(domain.AlertEscalated),
	)
	if err != nil {
		return err
	}
	return r.transitionOutcome(ctx, orgID, alertID, result)
}

// transitionOutcome distinguishes a missing alert from one in the wrong
// state after a guarded status update matched zero rows.
func (r *SQLRepository) transitionOutcome(ctx context.Context, orgID, alertID string, result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	if _, err := r.GetAlert(ctx, orgID, alertID); err != nil {
		return err
	}
	return fmt.Errorf("%w: alert %s", ErrInvalidState, alertID)
}
