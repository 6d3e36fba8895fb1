package domain

import (
	"fmt"
	"time"
)

// ConflictType identifies which detection strategy produced an alert.
type ConflictType string

const (
	ConflictSelfDealing      ConflictType = "SELF_DEALING"
	ConflictHRISMatch        ConflictType = "HRIS_MATCH"
	ConflictPriorCaseHistory ConflictType = "PRIOR_CASE_HISTORY"
	ConflictRelationship     ConflictType = "RELATIONSHIP_PATTERN"
	ConflictVendorMatch      ConflictType = "VENDOR_MATCH"
)

// Severity is the tier assigned to a detected conflict.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// AlertStatus is the lifecycle state of a conflict alert.
// An OPEN alert may move to DISMISSED or ESCALATED only; both are terminal
// for the record apart from an explicit resolve.
type AlertStatus string

const (
	AlertOpen      AlertStatus = "OPEN"
	AlertDismissed AlertStatus = "DISMISSED"
	AlertEscalated AlertStatus = "ESCALATED"
	AlertResolved  AlertStatus = "RESOLVED"
)

// ContextKind discriminates the MatchContext union.
type ContextKind string

const (
	ContextVendor     ContextKind = "vendor"
	ContextEmployee   ContextKind = "employee"
	ContextDisclosure ContextKind = "disclosure"
	ContextCase       ContextKind = "case"
)

// MatchContext carries the strategy-specific details of a match.
// Exactly one arm is populated, selected by Kind.
type MatchContext struct {
	Kind       ContextKind        `json:"kind"`
	Vendor     *VendorContext     `json:"vendor,omitempty"`
	Employee   *EmployeeContext   `json:"employee,omitempty"`
	Disclosure *DisclosureContext `json:"disclosure,omitempty"`
	Case       *CaseContext       `json:"case,omitempty"`
}

// Validate checks that the populated arm matches the discriminator.
func (m *MatchContext) Validate() error {
	populated := 0
	if m.Vendor != nil {
		populated++
		if m.Kind != ContextVendor {
			return fmt.Errorf("vendor context populated but kind is %q", m.Kind)
		}
	}
	if m.Employee != nil {
		populated++
		if m.Kind != ContextEmployee {
			return fmt.Errorf("employee context populated but kind is %q", m.Kind)
		}
	}
	if m.Disclosure != nil {
		populated++
		if m.Kind != ContextDisclosure {
			return fmt.Errorf("disclosure context populated but kind is %q", m.Kind)
		}
	}
	if m.Case != nil {
		populated++
		if m.Kind != ContextCase {
			return fmt.Errorf("case context populated but kind is %q", m.Kind)
		}
	}
	if populated != 1 {
		return fmt.Errorf("match context must populate exactly one arm, got %d", populated)
	}
	return nil
}

// VendorContext describes a match against a vendor master record.
type VendorContext struct {
	VendorID   string `json:"vendorId"`
	VendorName string `json:"vendorName"`
	Category   string `json:"category,omitempty"`
}

// EmployeeContext describes a match against the employee directory.
type EmployeeContext struct {
	EmployeeID string `json:"employeeId"`
	FullName   string `json:"fullName"`
	Department string `json:"department,omitempty"`
	Title      string `json:"title,omitempty"`
	ManagerID  string `json:"managerId,omitempty"`
}

// DisclosureContext describes a match against one or more disclosures.
type DisclosureContext struct {
	DisclosureIDs  []string `json:"disclosureIds"`
	DistinctPeople int      `json:"distinctPeople,omitempty"`
}

// CaseContext describes a match against historical case subjects.
type CaseContext struct {
	CaseIDs      []string `json:"caseIds"`
	SubjectNames []string `json:"subjectNames,omitempty"`
}

// ConflictAlert is one detected, non-excluded conflict tied to a disclosure.
// Created by the detection strategies; mutated only by dismiss, escalate and
// resolve; never deleted.
type ConflictAlert struct {
	ID           string       `json:"id"`
	OrgID        string       `json:"orgId"`
	DisclosureID string       `json:"disclosureId"`
	PersonID     string       `json:"personId"`
	Type         ConflictType `json:"type"`
	Severity     Severity     `json:"severity"`
	Status       AlertStatus  `json:"status"`

	MatchedEntity string       `json:"matchedEntity"`
	Confidence    int          `json:"confidence"` // 0-100
	Summary       string       `json:"summary"`
	Context       MatchContext `json:"context"`

	// SeverityFactors records the qualitative factors that fed the
	// severity classification, for reviewer transparency.
	SeverityFactors []string `json:"severityFactors,omitempty"`

	// Dismissal details, set only when Status is DISMISSED.
	DismissCategory string     `json:"dismissCategory,omitempty"`
	DismissReason   string     `json:"dismissReason,omitempty"`
	DismissedBy     string     `json:"dismissedBy,omitempty"`
	DismissedAt     *time.Time `json:"dismissedAt,omitempty"`

	// EscalatedCaseID links the case created from this alert.
	EscalatedCaseID string `json:"escalatedCaseId,omitempty"`

	// ExclusionID is set when a dismissal also created a standing exclusion.
	ExclusionID string `json:"exclusionId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CanTransition reports whether the alert may move to the target status.
func (a *ConflictAlert) CanTransition(to AlertStatus) bool {
	switch to {
	case AlertDismissed, AlertEscalated:
		return a.Status == AlertOpen
	case AlertResolved:
		return a.Status == AlertDismissed || a.Status == AlertEscalated
	default:
		return false
	}
}
