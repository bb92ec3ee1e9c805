package port

import (
	"context"
	"time"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/approval"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
)

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, id int64) (*entity.Expense, error)
	GetByPublicID(ctx context.Context, publicID string) (*entity.Expense, error)
	List(ctx context.Context, companyID int64, limit, offset int) ([]*entity.Expense, error)

	// ListStuck returns PENDING expenses that have no approval steps at all
	// and therefore cannot progress without manual intervention.
	ListStuck(ctx context.Context, companyID int64) ([]*entity.Expense, error)

	// Finalize writes a terminal status and its reason. The update is
	// conditioned on the expense still being PENDING; it returns
	// approval.ErrExpenseFinalized when the expense already left PENDING.
	Finalize(ctx context.Context, id int64, status entity.ExpenseStatus, reason string, decidedAt time.Time) error
}

// StepRepository defines persistence operations for ApprovalStep
type StepRepository interface {
	Create(ctx context.Context, step *entity.ApprovalStep) error
	GetByID(ctx context.Context, id int64) (*entity.ApprovalStep, error)
	GetByPublicID(ctx context.Context, publicID string) (*entity.ApprovalStep, error)
	GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ApprovalStep, error)
	ListPendingByApprover(ctx context.Context, approverID int64) ([]*entity.ApprovalStep, error)

	// Decide records a decision for a step. The write is a compare-and-set
	// conditioned on the step still being PENDING: a duplicate or concurrent
	// submission gets approval.ErrAlreadyDecided and the stored decision is
	// left untouched.
	Decide(ctx context.Context, id int64, status entity.StepStatus, comment string, decidedAt time.Time) error
}

// PolicyRepository defines persistence for approval sequences and rules.
// The read side doubles as the engine's policy store.
type PolicyRepository interface {
	approval.PolicyStore

	CreateSequence(ctx context.Context, sequence *entity.ApprovalSequence) error
	GetSequence(ctx context.Context, id int64) (*entity.ApprovalSequence, error)

	// ActivateSequence makes the given sequence the company's single active
	// definition, deactivating any other atomically.
	ActivateSequence(ctx context.Context, companyID, sequenceID int64) error

	// CreateRule stores a rule at the end of the company's evaluation order.
	// The store assigns the position and reports it back on the entity.
	CreateRule(ctx context.Context, rule *entity.ApprovalRule) error
	ListRules(ctx context.Context, companyID int64) ([]entity.ApprovalRule, error)
}

// UserRepository defines persistence for users. The read side doubles as
// the engine's directory.
type UserRepository interface {
	approval.Directory

	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

// ReceiptRepository defines persistence operations for Receipt
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.Receipt) error
	GetByID(ctx context.Context, id int64) (*entity.Receipt, error)
	GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.Receipt, error)
	Delete(ctx context.Context, id int64) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
