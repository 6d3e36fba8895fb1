package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
)

const exclusionColumns = `id, org_id, person_id, matched_entity, type, scope,
	   expires_at, active, source_alert_id, created_by, created_at, updated_at`

// SaveExclusion stores an exclusion with org isolation. The partial unique
// index rejects a second active exclusion for the same
// (person, entity, type) tuple; that surfaces here as ErrDuplicate.
func (r *SQLRepository) SaveExclusion(ctx context.Context, orgID string, e *domain.ConflictExclusion) error {
	if orgID == "" {
		return fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	active := 0
	if e.Active {
		active = 1
	}

	var expiresAt sql.NullTime
	if e.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *e.ExpiresAt, Valid: true}
	}

	query := `
		INSERT INTO conflict_exclusions (
			id, org_id, person_id, matched_entity, type, scope,
			expires_at, active, source_alert_id, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		e.ID, orgID, e.PersonID, e.MatchedEntity, string(e.Type), string(e.Scope),
		expiresAt, active, e.SourceAlertID, e.CreatedBy,
		e.CreatedAt, e.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: active exclusion exists for person %s entity %q type %s",
			ErrDuplicate, e.PersonID, e.MatchedEntity, e.Type)
	}
	return err
}

func scanExclusion(scan func(...any) error) (*domain.ConflictExclusion, error) {
	var e domain.ConflictExclusion
	var expiresAt sql.NullTime
	var active int
	var sourceAlertID, createdBy sql.NullString

	if err := scan(
		&e.ID, &e.OrgID, &e.PersonID, &e.MatchedEntity, &e.Type, &e.Scope,
		&expiresAt, &active, &sourceAlertID, &createdBy,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		t := expiresAt.Time
		e.ExpiresAt = &t
	}
	e.Active = active == 1
	e.SourceAlertID = sourceAlertID.String
	e.CreatedBy = createdBy.String
	return &e, nil
}

// GetExclusion retrieves an exclusion by ID with org isolation.
func (r *SQLRepository) GetExclusion(ctx context.Context, orgID string, exclusionID string) (*domain.ConflictExclusion, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `SELECT ` + exclusionColumns + ` FROM conflict_exclusions WHERE org_id = ? AND id = ?`

	row := r.db.QueryRowContext(ctx, r.rebind(query), orgID, exclusionID)
	e, err := scanExclusion(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListExclusions retrieves exclusions for an organization, most recent first.
func (r *SQLRepository) ListExclusions(ctx context.Context, orgID string, activeOnly bool, limit int) ([]*domain.ConflictExclusion, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `SELECT ` + exclusionColumns + ` FROM conflict_exclusions WHERE org_id = ?`
	args := []any{orgID}

	if activeOnly {
		query += ` AND active = 1`
	}

	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, normalizeLimit(limit))

	return r.queryExclusions(ctx, query, args...)
}

// FindActiveExclusions retrieves the active exclusions that could suppress
// a candidate conflict for the given person and conflict type. In-force
// checks (expiry) stay with the caller.
func (r *SQLRepository) FindActiveExclusions(ctx context.Context, orgID string, personID string, ct domain.ConflictType) ([]*domain.ConflictExclusion, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}
	if personID == "" {
		return nil, fmt.Errorf("%w: personID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + exclusionColumns + `
		FROM conflict_exclusions
		WHERE org_id = ? AND person_id = ? AND type = ? AND active = 1
		ORDER BY created_at
	`
	return r.queryExclusions(ctx, query, orgID, personID, string(ct))
}

func (r *SQLRepository) queryExclusions(ctx context.Context, query string, args ...any) ([]*domain.ConflictExclusion, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exclusions []*domain.ConflictExclusion
	for rows.Next() {
		e, err := scanExclusion(rows.Scan)
		if err != nil {
			return nil, err
		}
		exclusions = append(exclusions, e)
	}
	return exclusions, rows.Err()
}

// DeactivateExclusion clears the active flag. The record itself is kept for
// audit.
func (r *SQLRepository) DeactivateExclusion(ctx context.Context, orgID string, exclusionID string) error {
	if orgID == "" {
		return fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `
		UPDATE conflict_exclusions
		SET active = 0, updated_at = ?
		WHERE org_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), orgID, exclusionID)
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
