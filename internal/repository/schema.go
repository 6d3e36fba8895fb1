package repository

// Schema definitions for the disclosure compliance database.
// Compatible with both SQLite and PostgreSQL.

const schemaDisclosures = `
CREATE TABLE IF NOT EXISTS disclosures (
    id TEXT PRIMARY KEY,
    org_id TEXT NOT NULL,
    person_id TEXT NOT NULL,
    type TEXT NOT NULL,
    related_company TEXT,
    related_person TEXT,
    value REAL NOT NULL DEFAULT 0,
    fact_data TEXT,
    submitted_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_disclosures_org ON disclosures(org_id);
CREATE INDEX IF NOT EXISTS idx_disclosures_person ON disclosures(org_id, person_id);
CREATE INDEX IF NOT EXISTS idx_disclosures_submitted ON disclosures(org_id, submitted_at);
CREATE INDEX IF NOT EXISTS idx_disclosures_company ON disclosures(org_id, related_company);
CREATE INDEX IF NOT EXISTS idx_disclosures_related_person ON disclosures(org_id, related_person);
`

// Read model over the HRIS collaborator. IDs come from the external system,
// so rows are keyed per org.
const schemaEmployees = `
CREATE TABLE IF NOT EXISTS employees (
    id TEXT NOT NULL,
    org_id TEXT NOT NULL,
    full_name TEXT NOT NULL,
    department TEXT,
    title TEXT,
    manager_id TEXT,
    active INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (org_id, id)
);

CREATE INDEX IF NOT EXISTS idx_employees_active ON employees(org_id, active);
`

const schemaCaseSubjects = `
CREATE TABLE IF NOT EXISTS case_subjects (
    id TEXT NOT NULL,
    org_id TEXT NOT NULL,
    case_id TEXT NOT NULL,
    name TEXT NOT NULL,
    role TEXT,
    PRIMARY KEY (org_id, id)
);

CREATE INDEX IF NOT EXISTS idx_case_subjects_case ON case_subjects(org_id, case_id);
`

const schemaConflictAlerts = `
CREATE TABLE IF NOT EXISTS conflict_alerts (
    id TEXT PRIMARY KEY,
    org_id TEXT NOT NULL,
    disclosure_id TEXT NOT NULL,
    person_id TEXT NOT NULL,
    type TEXT NOT NULL,
    severity TEXT NOT NULL,
    status TEXT NOT NULL,
    matched_entity TEXT NOT NULL,
    confidence INTEGER NOT NULL,
    summary TEXT NOT NULL,
    context TEXT NOT NULL,
    severity_factors TEXT,
    dismiss_category TEXT,
    dismiss_reason TEXT,
    dismissed_by TEXT,
    dismissed_at TIMESTAMP,
    escalated_case_id TEXT,
    exclusion_id TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_org ON conflict_alerts(org_id);
CREATE INDEX IF NOT EXISTS idx_alerts_status ON conflict_alerts(org_id, status);
CREATE INDEX IF NOT EXISTS idx_alerts_entity ON conflict_alerts(org_id, matched_entity);
CREATE INDEX IF NOT EXISTS idx_alerts_disclosure ON conflict_alerts(org_id, disclosure_id);
`

// The partial unique index enforces the one-active-exclusion invariant per
// (org, person, entity, type) tuple at the storage layer. Supported by both
// SQLite and PostgreSQL.
const schemaConflictExclusions = `
CREATE TABLE IF NOT EXISTS conflict_exclusions (
    id TEXT PRIMARY KEY,
    org_id TEXT NOT NULL,
    person_id TEXT NOT NULL,
    matched_entity TEXT NOT NULL,
    type TEXT NOT NULL,
    scope TEXT NOT NULL,
    expires_at TIMESTAMP,
    active INTEGER NOT NULL DEFAULT 1,
    source_alert_id TEXT,
    created_by TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exclusions_org ON conflict_exclusions(org_id);
CREATE INDEX IF NOT EXISTS idx_exclusions_person ON conflict_exclusions(org_id, person_id, type);
CREATE UNIQUE INDEX IF NOT EXISTS idx_exclusions_active_unique
    ON conflict_exclusions(org_id, person_id, matched_entity, type)
    WHERE active = 1;
`

const schemaThresholdRules = `
CREATE TABLE IF NOT EXISTS threshold_rules (
    id TEXT PRIMARY KEY,
    org_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    disclosure_types TEXT NOT NULL,
    conditions TEXT,
    expression TEXT,
    aggregate TEXT,
    action TEXT NOT NULL,
    action_config TEXT,
    apply_mode TEXT NOT NULL,
    apply_from TIMESTAMP,
    priority INTEGER NOT NULL DEFAULT 0,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_org ON threshold_rules(org_id);
CREATE INDEX IF NOT EXISTS idx_rules_active ON threshold_rules(org_id, active);
`

const schemaTriggerLogs = `
CREATE TABLE IF NOT EXISTS trigger_logs (
    id TEXT PRIMARY KEY,
    org_id TEXT NOT NULL,
    rule_id TEXT NOT NULL,
    disclosure_id TEXT NOT NULL,
    person_id TEXT NOT NULL,
    evaluated_value REAL NOT NULL,
    threshold_value REAL NOT NULL,
    expression TEXT,
    breakdown TEXT,
    action TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trigger_logs_disclosure ON trigger_logs(org_id, disclosure_id);
CREATE INDEX IF NOT EXISTS idx_trigger_logs_rule ON trigger_logs(org_id, rule_id);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaDisclosures,
		schemaEmployees,
		schemaCaseSubjects,
		schemaConflictAlerts,
		schemaConflictExclusions,
		schemaThresholdRules,
		schemaTriggerLogs,
	}
}
