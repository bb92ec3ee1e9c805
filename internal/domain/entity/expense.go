package entity

import "time"

// ExpenseStatus is the lifecycle status of an expense claim.
type ExpenseStatus string

const (
	ExpensePending   ExpenseStatus = "PENDING"
	ExpenseApproved  ExpenseStatus = "APPROVED"
	ExpenseRejected  ExpenseStatus = "REJECTED"
	ExpenseCancelled ExpenseStatus = "CANCELLED"
)

// IsTerminal returns true once the approval engine can no longer change the expense.
func (s ExpenseStatus) IsTerminal() bool {
	return s == ExpenseApproved || s == ExpenseRejected || s == ExpenseCancelled
}

// String returns the string representation of the status.
func (s ExpenseStatus) String() string {
	return string(s)
}

// Expense is one submitted expense claim. It owns its approval steps; its
// status moves out of PENDING only through an evaluator verdict (or an
// external cancellation).
type Expense struct {
	ID           int64         `json:"id"`
	PublicID     string        `json:"public_id"`
	CompanyID    int64         `json:"company_id"`
	SubmitterID  int64         `json:"submitter_id"`
	Description  string        `json:"description"`
	Category     string        `json:"category"`
	AmountCents  int64         `json:"amount_cents"`
	Currency     string        `json:"currency"`
	ExpenseDate  time.Time     `json:"expense_date"`
	Status       ExpenseStatus `json:"status"`
	StatusReason string        `json:"status_reason,omitempty"`
	SubmittedAt  time.Time     `json:"submitted_at"`
	DecidedAt    *time.Time    `json:"decided_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
