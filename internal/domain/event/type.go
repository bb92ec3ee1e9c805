package event

// Type identifies the type of domain event
type Type string

const (
	TypeExpenseSubmitted Type = "expense.submitted"
	TypeExpenseApproved  Type = "expense.approved"
	TypeExpenseRejected  Type = "expense.rejected"
	TypeExpenseCancelled Type = "expense.cancelled"
	TypeExpenseStuck     Type = "expense.stuck"
	TypeStepDecided      Type = "step.decided"
	TypeStepUnresolved   Type = "step.unresolved"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeExpenseSubmitted,
		TypeExpenseApproved,
		TypeExpenseRejected,
		TypeExpenseCancelled,
		TypeExpenseStuck,
		TypeStepDecided,
		TypeStepUnresolved:
		return true
	default:
		return false
	}
}
