// Package domain defines the core interfaces and types for the disclosure
// compliance evaluation engine.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require orgID for strict multi-org isolation.
type Repository interface {
	// Disclosure operations
	SaveDisclosure(ctx context.Context, orgID string, d *Disclosure) error
	GetDisclosure(ctx context.Context, orgID string, disclosureID string) (*Disclosure, error)
	ListDisclosuresByPerson(ctx context.Context, orgID string, personID string, limit int) ([]*Disclosure, error)
	ListDisclosuresByOrg(ctx context.Context, orgID string, limit int) ([]*Disclosure, error)
	// ListDisclosuresInWindow returns disclosures inside [from, to) filtered
	// by person and/or entity; an empty filter string means unfiltered.
	ListDisclosuresInWindow(ctx context.Context, orgID string, personID string, entity string, from, to time.Time, limit int) ([]*Disclosure, error)

	// Directory read model (HRIS collaborator)
	SaveEmployee(ctx context.Context, orgID string, e *Employee) error
	ListActiveEmployees(ctx context.Context, orgID string, limit int) ([]*Employee, error)

	// Case read model (case/subject collaborator)
	SaveCaseSubject(ctx context.Context, orgID string, s *CaseSubject) error
	ListCaseSubjects(ctx context.Context, orgID string, limit int) ([]*CaseSubject, error)

	// Conflict alerts
	SaveAlert(ctx context.Context, orgID string, a *ConflictAlert) error
	GetAlert(ctx context.Context, orgID string, alertID string) (*ConflictAlert, error)
	ListAlerts(ctx context.Context, orgID string, status AlertStatus, limit int) ([]*ConflictAlert, error)
	ListAlertsByEntity(ctx context.Context, orgID string, entity string, limit int) ([]*ConflictAlert, error)
	DismissAlert(ctx context.Context, orgID string, alertID string, category, reason, actor string) error
	// LinkAlertExclusion records the exclusion a dismissal created.
	LinkAlertExclusion(ctx context.Context, orgID string, alertID string, exclusionID string) error
	EscalateAlert(ctx context.Context, orgID string, alertID string, caseID string) error
	ResolveAlert(ctx context.Context, orgID string, alertID string) error

	// Exclusions
	SaveExclusion(ctx context.Context, orgID string, e *ConflictExclusion) error
	GetExclusion(ctx context.Context, orgID string, exclusionID string) (*ConflictExclusion, error)
	ListExclusions(ctx context.Context, orgID string, activeOnly bool, limit int) ([]*ConflictExclusion, error)
	FindActiveExclusions(ctx context.Context, orgID string, personID string, ct ConflictType) ([]*ConflictExclusion, error)
	DeactivateExclusion(ctx context.Context, orgID string, exclusionID string) error

	// Threshold rules
	SaveRule(ctx context.Context, orgID string, r *ThresholdRule) error
	GetRule(ctx context.Context, orgID string, ruleID string) (*ThresholdRule, error)
	ListRules(ctx context.Context, orgID string, activeOnly bool) ([]*ThresholdRule, error)
	ListActiveRulesByType(ctx context.Context, orgID string, disclosureType string) ([]*ThresholdRule, error)
	DeactivateRule(ctx context.Context, orgID string, ruleID string) error

	// Trigger logs (write-once)
	SaveTriggerLog(ctx context.Context, orgID string, l *TriggerLog) error
	ListTriggerLogsByDisclosure(ctx context.Context, orgID string, disclosureID string) ([]*TriggerLog, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
