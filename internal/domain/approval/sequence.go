package approval

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
)

// Directory resolves organizational facts for sequence building.
type Directory interface {
	// ManagerOf returns the direct manager of a user, or nil when the user
	// has none.
	ManagerOf(ctx context.Context, userID int64) (*int64, error)

	// ActiveUsersWithRole returns the active users holding a role in a
	// company, in a stable order. The builder uses the first.
	ActiveUsersWithRole(ctx context.Context, companyID int64, role string) ([]int64, error)
}

// PolicyStore provides a company's active approval configuration.
type PolicyStore interface {
	// ActiveSequence returns the company's active sequence definition, or
	// nil when none is configured.
	ActiveSequence(ctx context.Context, companyID int64) (*entity.ApprovalSequence, error)

	// ActiveRules returns the company's active rules in stored order.
	ActiveRules(ctx context.Context, companyID int64) ([]entity.ApprovalRule, error)
}

// Unresolved records a definition step that could not be resolved to a
// concrete approver and was therefore left out of the built sequence.
type Unresolved struct {
	Step   entity.SequenceStep
	Reason string
}

// BuildResult is the outcome of materializing a sequence for one expense.
// Steps carry contiguous zero-based orders; skipped definition steps are
// reported in Unresolved rather than dropped invisibly.
type BuildResult struct {
	Steps      []*entity.ApprovalStep
	Unresolved []Unresolved
}

// SequenceBuilder materializes a company's approval sequence definition
// into concrete approval steps for one expense.
type SequenceBuilder struct {
	directory Directory
	policies  PolicyStore
}

// NewSequenceBuilder creates a sequence builder.
func NewSequenceBuilder(directory Directory, policies PolicyStore) *SequenceBuilder {
	return &SequenceBuilder{
		directory: directory,
		policies:  policies,
	}
}

// Build resolves the approval sequence for the given expense. Without an
// active definition it falls back to a single manager step; a submitter
// without a manager yields an empty sequence. Build is all-or-nothing: any
// directory or policy store failure aborts it with ErrUpstreamUnavailable
// and no partial result.
func (b *SequenceBuilder) Build(ctx context.Context, expense *entity.Expense) (*BuildResult, error) {
	definition, err := b.policies.ActiveSequence(ctx, expense.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("%w: active sequence for company %d: %v", ErrUpstreamUnavailable, expense.CompanyID, err)
	}

	if definition == nil {
		return b.buildManagerFallback(ctx, expense)
	}

	result := &BuildResult{}
	order := 0
	for _, step := range definition.Steps {
		approverID, role, reason, err := b.resolveStep(ctx, expense, step)
		if err != nil {
			return nil, err
		}
		if approverID == 0 {
			result.Unresolved = append(result.Unresolved, Unresolved{Step: step, Reason: reason})
			continue
		}
		result.Steps = append(result.Steps, newStep(expense.ID, approverID, role, order))
		order++
	}
	return result, nil
}

// buildManagerFallback produces the implicit single manager step used when
// a company has no active sequence definition.
func (b *SequenceBuilder) buildManagerFallback(ctx context.Context, expense *entity.Expense) (*BuildResult, error) {
	managerID, err := b.directory.ManagerOf(ctx, expense.SubmitterID)
	if err != nil {
		return nil, fmt.Errorf("%w: manager of user %d: %v", ErrUpstreamUnavailable, expense.SubmitterID, err)
	}

	result := &BuildResult{}
	if managerID == nil {
		result.Unresolved = append(result.Unresolved, Unresolved{
			Step:   entity.SequenceStep{Kind: entity.StepKindManager},
			Reason: fmt.Sprintf("submitter %d has no manager", expense.SubmitterID),
		})
		return result, nil
	}

	result.Steps = append(result.Steps, newStep(expense.ID, *managerID, entity.RoleManager, 0))
	return result, nil
}

// resolveStep resolves one definition step. A zero approver id with a
// non-empty reason means the step is unresolvable; an error means the
// lookup itself failed and the build must abort.
func (b *SequenceBuilder) resolveStep(ctx context.Context, expense *entity.Expense, step entity.SequenceStep) (int64, string, string, error) {
	switch step.Kind {
	case entity.StepKindUser:
		return step.UserID, "", "", nil

	case entity.StepKindRole:
		users, err := b.directory.ActiveUsersWithRole(ctx, expense.CompanyID, step.Role)
		if err != nil {
			return 0, "", "", fmt.Errorf("%w: users with role %s in company %d: %v", ErrUpstreamUnavailable, step.Role, expense.CompanyID, err)
		}
		if len(users) == 0 {
			return 0, "", fmt.Sprintf("no active user with role %s", step.Role), nil
		}
		return users[0], step.Role, "", nil

	case entity.StepKindManager:
		managerID, err := b.directory.ManagerOf(ctx, expense.SubmitterID)
		if err != nil {
			return 0, "", "", fmt.Errorf("%w: manager of user %d: %v", ErrUpstreamUnavailable, expense.SubmitterID, err)
		}
		if managerID == nil {
			return 0, "", fmt.Sprintf("submitter %d has no manager", expense.SubmitterID), nil
		}
		return *managerID, entity.RoleManager, "", nil

	default:
		// Unknown kinds are rejected when the definition is written; a value
		// reaching this point indicates corrupted configuration.
		return 0, "", fmt.Sprintf("unknown step kind %q", step.Kind), nil
	}
}

func newStep(expenseID, approverID int64, role string, order int) *entity.ApprovalStep {
	return &entity.ApprovalStep{
		PublicID:     uuid.NewString(),
		ExpenseID:    expenseID,
		ApproverID:   approverID,
		ApproverRole: role,
		Order:        order,
		Status:       entity.StepPending,
	}
}
