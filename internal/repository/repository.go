// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDuplicate    = errors.New("duplicate record")
	ErrInvalidState = errors.New("invalid state transition")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveDisclosure stores a disclosure with org isolation.
func (r *SQLRepository) SaveDisclosure(ctx context.Context, orgID string, d *domain.Disclosure) error {
	if orgID == "" {
		return fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	factData, _ := json.Marshal(d.FactData)

	query := `
		INSERT INTO disclosures (
			id, org_id, person_id, type, related_company, related_person,
			value, fact_data, submitted_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		d.ID, orgID, d.PersonID, d.Type,
		d.RelatedCompany, d.RelatedPerson,
		d.Value, string(factData),
		d.SubmittedAt, d.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: disclosure %s", ErrDuplicate, d.ID)
	}
	return err
}

const disclosureColumns = `id, org_id, person_id, type, related_company, related_person,
	   value, fact_data, submitted_at, created_at`

func scanDisclosure(scan func(...any) error) (*domain.Disclosure, error) {
	var d domain.Disclosure
	var company, person, factData sql.NullString

	if err := scan(
		&d.ID, &d.OrgID, &d.PersonID, &d.Type,
		&company, &person,
		&d.Value, &factData,
		&d.SubmittedAt, &d.CreatedAt,
	); err != nil {
		return nil, err
	}

	d.RelatedCompany = company.String
	d.RelatedPerson = person.String
	if factData.String != "" {
		json.Unmarshal([]byte(factData.String), &d.FactData)
	}
	return &d, nil
}

// GetDisclosure retrieves a disclosure by ID with org isolation.
func (r *SQLRepository) GetDisclosure(ctx context.Context, orgID string, disclosureID string) (*domain.Disclosure, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `SELECT ` + disclosureColumns + ` FROM disclosures WHERE org_id = ? AND id = ?`

	row := r.db.QueryRowContext(ctx, r.rebind(query), orgID, disclosureID)
	d, err := scanDisclosure(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDisclosuresByPerson retrieves a person's disclosures, most recent first.
func (r *SQLRepository) ListDisclosuresByPerson(ctx context.Context, orgID string, personID string, limit int) ([]*domain.Disclosure, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}
	if personID == "" {
		return nil, fmt.Errorf("%w: personID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + disclosureColumns + `
		FROM disclosures
		WHERE org_id = ? AND person_id = ?
		ORDER BY submitted_at DESC
		LIMIT ?
	`
	return r.queryDisclosures(ctx, query, orgID, personID, normalizeLimit(limit))
}

// ListDisclosuresByOrg retrieves an organization's disclosures, most recent first.
func (r *SQLRepository) ListDisclosuresByOrg(ctx context.Context, orgID string, limit int) ([]*domain.Disclosure, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + disclosureColumns + `
		FROM disclosures
		WHERE org_id = ?
		ORDER BY submitted_at DESC
		LIMIT ?
	`
	return r.queryDisclosures(ctx, query, orgID, normalizeLimit(limit))
}

// ListDisclosuresInWindow retrieves disclosures submitted inside [from, to),
// optionally filtered by person and/or counterparty entity name. Ordered
// oldest first so aggregate breakdowns read chronologically.
func (r *SQLRepository) ListDisclosuresInWindow(ctx context.Context, orgID string, personID string, entity string, from, to time.Time, limit int) ([]*domain.Disclosure, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + disclosureColumns + `
		FROM disclosures
		WHERE org_id = ? AND submitted_at >= ? AND submitted_at < ?
	`
	args := []any{orgID, from, to}

	if personID != "" {
		query += ` AND person_id = ?`
		args = append(args, personID)
	}
	if entity != "" {
		query += ` AND (related_company = ? OR related_person = ?)`
		args = append(args, entity, entity)
	}

	query += ` ORDER BY submitted_at ASC LIMIT ?`
	args = append(args, normalizeLimit(limit))

	return r.queryDisclosures(ctx, query, args...)
}

func (r *SQLRepository) queryDisclosures(ctx context.Context, query string, args ...any) ([]*domain.Disclosure, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var disclosures []*domain.Disclosure
	for rows.Next() {
		d, err := scanDisclosure(rows.Scan)
		if err != nil {
			return nil, err
		}
		disclosures = append(disclosures, d)
	}
	return disclosures, rows.Err()
}

// SaveEmployee upserts a directory record with org isolation.
func (r *SQLRepository) SaveEmployee(ctx context.Context, orgID string, e *domain.Employee) error {
	if orgID == "" {
		return fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	active := 0
	if e.Active {
		active = 1
	}

	query := `
		INSERT INTO employees (id, org_id, full_name, department, title, manager_id, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(org_id, id) DO UPDATE SET
			full_name = excluded.full_name,
			department = excluded.department,
			title = excluded.title,
			manager_id = excluded.manager_id,
			active = excluded.active
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		e.ID, orgID, e.FullName, e.Department, e.Title, e.ManagerID, active,
	)
	return err
}

// ListActiveEmployees retrieves the active directory for an organization.
func (r *SQLRepository) ListActiveEmployees(ctx context.Context, orgID string, limit int) ([]*domain.Employee, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, org_id, full_name, department, title, manager_id, active
		FROM employees
		WHERE org_id = ? AND active = 1
		ORDER BY full_name
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), orgID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []*domain.Employee
	for rows.Next() {
		var e domain.Employee
		var department, title, managerID sql.NullString
		var active int

		if err := rows.Scan(&e.ID, &e.OrgID, &e.FullName, &department, &title, &managerID, &active); err != nil {
			return nil, err
		}
		e.Department = department.String
		e.Title = title.String
		e.ManagerID = managerID.String
		e.Active = active == 1
		employees = append(employees, &e)
	}
	return employees, rows.Err()
}

// SaveCaseSubject upserts a historical case subject with org isolation.
func (r *SQLRepository) SaveCaseSubject(ctx context.Context, orgID string, s *domain.CaseSubject) error {
	if orgID == "" {
		return fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO case_subjects (id, org_id, case_id, name, role)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(org_id, id) DO UPDATE SET
			case_id = excluded.case_id,
			name = excluded.name,
			role = excluded.role
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query), s.ID, orgID, s.CaseID, s.Name, s.Role)
	return err
}

// ListCaseSubjects retrieves historical case subjects for an organization.
func (r *SQLRepository) ListCaseSubjects(ctx context.Context, orgID string, limit int) ([]*domain.CaseSubject, error) {
	if orgID == "" {
		return nil, fmt.Errorf("%w: orgID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, org_id, case_id, name, role
		FROM case_subjects
		WHERE org_id = ?
		ORDER BY case_id, name
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), orgID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []*domain.CaseSubject
	for rows.Next() {
		var s domain.CaseSubject
		var role sql.NullString

		if err := rows.Scan(&s.ID, &s.OrgID, &s.CaseID, &s.Name, &role); err != nil {
			return nil, err
		}
		s.Role = role.String
		subjects = append(subjects, &s)
	}
	return subjects, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

// normalizeLimit clamps non-positive limits to a sane default so an
// unbounded scan never reaches the database.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 1000
	}
	return limit
}

// isUniqueViolation matches the unique-constraint errors of both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // modernc.org/sqlite
		strings.Contains(msg, "duplicate key value") // lib/pq
}
