package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/application/port"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/approval"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/event"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DecisionResult is what a recorded decision reports back to the caller.
type DecisionResult struct {
	ExpenseStatus entity.ExpenseStatus `json:"expenseStatus"`
	Reason        string               `json:"reason"`
}

// ExpenseService coordinates the expense approval workflow: sequence build
// at submission, step decisions and re-evaluation afterwards.
type ExpenseService interface {
	SubmitExpense(ctx context.Context, expense *entity.Expense) ([]*entity.ApprovalStep, error)
	RecordDecision(ctx context.Context, stepID, approverID int64, decision entity.StepStatus, comment string) (*DecisionResult, error)
	GetExpense(ctx context.Context, id int64) (*entity.Expense, []*entity.ApprovalStep, error)
	ListExpenses(ctx context.Context, companyID int64, limit, offset int) ([]*entity.Expense, error)
	ListStuckExpenses(ctx context.Context, companyID int64) ([]*entity.Expense, error)
	ListPendingApprovals(ctx context.Context, approverID int64) ([]*entity.ApprovalStep, error)
	CancelExpense(ctx context.Context, id, requesterID int64) error
}

type expenseServiceImpl struct {
	expenseRepo port.ExpenseRepository
	stepRepo    port.StepRepository
	userRepo    port.UserRepository
	policyRepo  port.PolicyRepository
	builder     *approval.SequenceBuilder
	txManager   port.TransactionManager
	notifier    port.Notifier
	logger      Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	expenseRepo port.ExpenseRepository,
	stepRepo port.StepRepository,
	userRepo port.UserRepository,
	policyRepo port.PolicyRepository,
	txManager port.TransactionManager,
	notifier port.Notifier,
	logger Logger,
) ExpenseService {
	return &expenseServiceImpl{
		expenseRepo: expenseRepo,
		stepRepo:    stepRepo,
		userRepo:    userRepo,
		policyRepo:  policyRepo,
		builder:     approval.NewSequenceBuilder(userRepo, policyRepo),
		txManager:   txManager,
		notifier:    notifier,
		logger:      logger,
	}
}

// SubmitExpense creates the expense and materializes its approval sequence
// in one transaction. A build failure rolls everything back; an empty
// sequence is persisted as-is and the expense stays PENDING.
func (s *expenseServiceImpl) SubmitExpense(ctx context.Context, expense *entity.Expense) ([]*entity.ApprovalStep, error) {
	if expense.CompanyID == 0 || expense.SubmitterID == 0 {
		return nil, errors.New("expense requires a company and submitter")
	}
	if expense.AmountCents <= 0 {
		return nil, errors.New("expense amount must be positive")
	}

	now := time.Now()
	expense.PublicID = uuid.NewString()
	expense.Status = entity.ExpensePending
	expense.SubmittedAt = now

	var build *approval.BuildResult
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.expenseRepo.Create(txCtx, expense); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}

		var err error
		build, err = s.builder.Build(txCtx, expense)
		if err != nil {
			return fmt.Errorf("build approval sequence: %w", err)
		}

		for _, step := range build.Steps {
			if err := s.stepRepo.Create(txCtx, step); err != nil {
				return fmt.Errorf("create approval step: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to submit expense",
			"error", err,
			"company_id", expense.CompanyID,
			"submitter_id", expense.SubmitterID)
		return nil, err
	}

	for _, unresolved := range build.Unresolved {
		evt := event.New(event.TypeStepUnresolved, expense.ID, expense.SubmitterID, map[string]interface{}{
			"kind":   string(unresolved.Step.Kind),
			"reason": unresolved.Reason,
		})
		s.logger.Info("Approval step unresolved",
			"event_id", evt.ID,
			"expense_id", expense.ID,
			"kind", unresolved.Step.Kind,
			"reason", unresolved.Reason)
	}

	if len(build.Steps) == 0 {
		evt := event.New(event.TypeExpenseStuck, expense.ID, expense.SubmitterID, nil)
		s.logger.Info("Expense has no resolvable approvers and will stay pending",
			"event_id", evt.ID,
			"expense_id", expense.ID)
	}

	s.logger.Info("Expense submitted",
		"expense_id", expense.ID,
		"public_id", expense.PublicID,
		"steps", len(build.Steps))

	s.notifyPendingApprovers(ctx, expense, build.Steps)
	return build.Steps, nil
}

// RecordDecision records an approver's decision on one of their pending
// steps and re-evaluates the expense. The step write is a compare-and-set;
// re-evaluation runs against a snapshot taken after that write within the
// same transaction.
func (s *expenseServiceImpl) RecordDecision(ctx context.Context, stepID, approverID int64, decision entity.StepStatus, comment string) (*DecisionResult, error) {
	if decision != entity.StepApproved && decision != entity.StepRejected {
		return nil, fmt.Errorf("invalid decision %q", decision)
	}

	step, err := s.stepRepo.GetByID(ctx, stepID)
	if err != nil {
		return nil, fmt.Errorf("get step: %w", err)
	}
	if step == nil || step.ApproverID != approverID {
		return nil, approval.ErrNotFound
	}

	expense, err := s.expenseRepo.GetByID(ctx, step.ExpenseID)
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return nil, approval.ErrNotFound
	}
	if expense.Status.IsTerminal() {
		return nil, approval.ErrExpenseFinalized
	}

	now := time.Now()
	var outcome approval.Outcome
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.stepRepo.Decide(txCtx, step.ID, decision, comment, now); err != nil {
			return err
		}

		steps, err := s.stepRepo.GetByExpenseID(txCtx, expense.ID)
		if err != nil {
			return fmt.Errorf("load steps: %w", err)
		}
		rules, err := s.policyRepo.ActiveRules(txCtx, expense.CompanyID)
		if err != nil {
			return fmt.Errorf("load rules: %w", err)
		}

		outcome = approval.Evaluate(steps, rules)
		if !outcome.Final() {
			return nil
		}

		machine := workflow.NewExpenseLifecycle(workflow.State(expense.Status))
		trigger := workflow.TriggerApprove
		if outcome.Verdict == approval.VerdictRejected {
			trigger = workflow.TriggerReject
		}
		if err := machine.Fire(trigger); err != nil {
			return approval.ErrExpenseFinalized
		}

		if err := s.expenseRepo.Finalize(txCtx, expense.ID, entity.ExpenseStatus(outcome.Verdict), outcome.Reason, now); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, approval.ErrAlreadyDecided) && !errors.Is(err, approval.ErrExpenseFinalized) {
			s.logger.Error("Failed to record decision",
				"error", err,
				"step_id", stepID,
				"approver_id", approverID)
		}
		return nil, err
	}

	evt := event.New(event.TypeStepDecided, expense.ID, approverID, map[string]interface{}{
		"step_id":  step.ID,
		"decision": string(decision),
	})
	s.logger.Info("Decision recorded",
		"event_id", evt.ID,
		"expense_id", expense.ID,
		"step_id", step.ID,
		"decision", decision,
		"verdict", string(outcome.Verdict))

	result := &DecisionResult{ExpenseStatus: entity.ExpensePending, Reason: outcome.Reason}
	if outcome.Final() {
		result.ExpenseStatus = entity.ExpenseStatus(outcome.Verdict)
		s.emitFinalized(ctx, expense, result.ExpenseStatus, approverID)
	}
	return result, nil
}

// GetExpense retrieves an expense together with its approval steps.
func (s *expenseServiceImpl) GetExpense(ctx context.Context, id int64) (*entity.Expense, []*entity.ApprovalStep, error) {
	expense, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return nil, nil, approval.ErrNotFound
	}

	steps, err := s.stepRepo.GetByExpenseID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load steps: %w", err)
	}
	return expense, steps, nil
}

// ListExpenses retrieves a paginated list of a company's expenses.
func (s *expenseServiceImpl) ListExpenses(ctx context.Context, companyID int64, limit, offset int) ([]*entity.Expense, error) {
	expenses, err := s.expenseRepo.List(ctx, companyID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list expenses", "error", err, "company_id", companyID)
		return nil, err
	}
	return expenses, nil
}

// ListStuckExpenses retrieves pending expenses with no approval steps.
func (s *expenseServiceImpl) ListStuckExpenses(ctx context.Context, companyID int64) ([]*entity.Expense, error) {
	expenses, err := s.expenseRepo.ListStuck(ctx, companyID)
	if err != nil {
		s.logger.Error("Failed to list stuck expenses", "error", err, "company_id", companyID)
		return nil, err
	}
	return expenses, nil
}

// ListPendingApprovals retrieves the steps currently awaiting an approver.
func (s *expenseServiceImpl) ListPendingApprovals(ctx context.Context, approverID int64) ([]*entity.ApprovalStep, error) {
	steps, err := s.stepRepo.ListPendingByApprover(ctx, approverID)
	if err != nil {
		s.logger.Error("Failed to list pending approvals", "error", err, "approver_id", approverID)
		return nil, err
	}
	return steps, nil
}

// CancelExpense cancels a pending expense on behalf of its submitter. This
// transition is external to the approval engine: no verdict is computed.
func (s *expenseServiceImpl) CancelExpense(ctx context.Context, id, requesterID int64) error {
	expense, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get expense: %w", err)
	}
	if expense == nil || expense.SubmitterID != requesterID {
		return approval.ErrNotFound
	}

	machine := workflow.NewExpenseLifecycle(workflow.State(expense.Status))
	if err := machine.Fire(workflow.TriggerCancel); err != nil {
		return approval.ErrExpenseFinalized
	}

	if err := s.expenseRepo.Finalize(ctx, id, entity.ExpenseCancelled, "cancelled by submitter", time.Now()); err != nil {
		return err
	}

	evt := event.New(event.TypeExpenseCancelled, id, requesterID, nil)
	s.logger.Info("Expense cancelled", "event_id", evt.ID, "expense_id", id)
	return nil
}

// notifyPendingApprovers is best-effort: notification failures are logged
// and never fail the submission.
func (s *expenseServiceImpl) notifyPendingApprovers(ctx context.Context, expense *entity.Expense, steps []*entity.ApprovalStep) {
	if s.notifier == nil {
		return
	}
	for _, step := range steps {
		approver, err := s.userRepo.GetByID(ctx, step.ApproverID)
		if err != nil || approver == nil {
			s.logger.Error("Failed to load approver for notification",
				"error", err,
				"approver_id", step.ApproverID)
			continue
		}
		if err := s.notifier.NotifyStepPending(ctx, approver, expense, step); err != nil {
			s.logger.Error("Failed to notify approver",
				"error", err,
				"approver_id", step.ApproverID,
				"expense_id", expense.ID)
		}
	}
}

func (s *expenseServiceImpl) emitFinalized(ctx context.Context, expense *entity.Expense, status entity.ExpenseStatus, actorID int64) {
	eventType := event.TypeExpenseApproved
	if status == entity.ExpenseRejected {
		eventType = event.TypeExpenseRejected
	}
	evt := event.New(eventType, expense.ID, actorID, nil)
	s.logger.Info("Expense finalized",
		"event_id", evt.ID,
		"expense_id", expense.ID,
		"status", status)

	if s.notifier == nil {
		return
	}
	submitter, err := s.userRepo.GetByID(ctx, expense.SubmitterID)
	if err != nil || submitter == nil {
		s.logger.Error("Failed to load submitter for notification",
			"error", err,
			"submitter_id", expense.SubmitterID)
		return
	}
	finalized := *expense
	finalized.Status = status
	if err := s.notifier.NotifyExpenseFinalized(ctx, submitter, &finalized); err != nil {
		s.logger.Error("Failed to notify submitter",
			"error", err,
			"expense_id", expense.ID)
	}
}
