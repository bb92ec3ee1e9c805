package entity

import "time"

// StepStatus is the status of a single approval checkpoint.
type StepStatus string

const (
	StepPending  StepStatus = "PENDING"
	StepApproved StepStatus = "APPROVED"
	StepRejected StepStatus = "REJECTED"
)

// String returns the string representation of the status.
func (s StepStatus) String() string {
	return string(s)
}

// RoleManager is the role label recorded on steps resolved to the
// submitter's direct manager.
const RoleManager = "MANAGER"

// ApprovalStep is one concrete approval checkpoint for one expense,
// resolved from a sequence definition to an actual approver. Steps are
// created once at submission, decided by their approver at most once,
// and never deleted.
//
// The approverRole field name is part of the API's stable vocabulary;
// clients filter on it.
type ApprovalStep struct {
	ID           int64      `json:"id"`
	PublicID     string     `json:"public_id"`
	ExpenseID    int64      `json:"expense_id"`
	ApproverID   int64      `json:"approver_id"`
	ApproverRole string     `json:"approverRole,omitempty"`
	Order        int        `json:"order"`
	Status       StepStatus `json:"status"`
	Comment      string     `json:"comment,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
