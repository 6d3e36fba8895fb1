package domain

import (
	"time"
)

// Disclosure is a structured self-reported conflict-of-interest, gift or
// outside-activity submission by a person.
type Disclosure struct {
	ID       string `json:"id"`
	OrgID    string `json:"orgId"`
	PersonID string `json:"personId"`

	// Type is the disclosure category, e.g. "gift", "outside_activity",
	// "conflict_of_interest".
	Type string `json:"type"`

	// RelatedCompany and RelatedPerson are the disclosed counterparties.
	// Either may be empty.
	RelatedCompany string `json:"relatedCompany,omitempty"`
	RelatedPerson  string `json:"relatedPerson,omitempty"`

	// Value is the disclosed monetary amount, if any.
	Value float64 `json:"value"`

	// FactData holds the full submitted form, flattened to dot-paths for
	// rule evaluation.
	FactData map[string]any `json:"factData,omitempty"`

	SubmittedAt time.Time `json:"submittedAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EntityNames returns the non-empty disclosed counterparty names.
func (d *Disclosure) EntityNames() []string {
	var names []string
	if d.RelatedCompany != "" {
		names = append(names, d.RelatedCompany)
	}
	if d.RelatedPerson != "" {
		names = append(names, d.RelatedPerson)
	}
	return names
}

// Employee is a read model over the HRIS/directory collaborator.
type Employee struct {
	ID         string `json:"id"`
	OrgID      string `json:"orgId"`
	FullName   string `json:"fullName"`
	Department string `json:"department,omitempty"`
	Title      string `json:"title,omitempty"`
	ManagerID  string `json:"managerId,omitempty"`
	Active     bool   `json:"active"`
}

// CaseSubject is a read model over the case collaborator: one named subject
// of a historical compliance case.
type CaseSubject struct {
	ID     string `json:"id"`
	OrgID  string `json:"orgId"`
	CaseID string `json:"caseId"`
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
}
