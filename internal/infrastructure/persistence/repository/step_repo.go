package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/application/port"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/approval"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/infrastructure/persistence/sqlite"
)

const stepColumns = `id, public_id, expense_id, approver_id, approver_role,
		step_order, status, comment, decided_at, created_at, updated_at`

// StepRepository implements port.StepRepository
type StepRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStepRepository creates a new approval step repository
func NewStepRepository(db *sql.DB, logger *zap.Logger) port.StepRepository {
	return &StepRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new approval step
func (r *StepRepository) Create(ctx context.Context, step *entity.ApprovalStep) error {
	query := `
		INSERT INTO approval_steps (
			public_id, expense_id, approver_id, approver_role, step_order, status
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	var approverRole sql.NullString
	if step.ApproverRole != "" {
		approverRole = sql.NullString{String: step.ApproverRole, Valid: true}
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		step.PublicID,
		step.ExpenseID,
		step.ApproverID,
		approverRole,
		step.Order,
		step.Status,
	)
	if err != nil {
		r.logger.Error("Failed to create approval step",
			zap.Int64("expense_id", step.ExpenseID),
			zap.Int64("approver_id", step.ApproverID),
			zap.Error(err))
		return fmt.Errorf("failed to create approval step: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	step.ID = id
	return nil
}

// GetByID retrieves a step by its ID
func (r *StepRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
	query := `SELECT ` + stepColumns + ` FROM approval_steps WHERE id = ?`

	step, err := r.scanStep(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval step by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get approval step: %w", err)
	}

	return step, nil
}

// GetByPublicID retrieves a step by its public identifier
func (r *StepRepository) GetByPublicID(ctx context.Context, publicID string) (*entity.ApprovalStep, error) {
	query := `SELECT ` + stepColumns + ` FROM approval_steps WHERE public_id = ?`

	step, err := r.scanStep(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, publicID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval step by public ID",
			zap.String("public_id", publicID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get approval step: %w", err)
	}

	return step, nil
}

// GetByExpenseID retrieves all steps for an expense in sequence order
func (r *StepRepository) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ApprovalStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM approval_steps
		WHERE expense_id = ?
		ORDER BY step_order
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to get approval steps by expense ID",
			zap.Int64("expense_id", expenseID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get approval steps: %w", err)
	}
	defer rows.Close()

	return r.scanSteps(rows)
}

// ListPendingByApprover retrieves all steps awaiting a given approver,
// oldest expense first
func (r *StepRepository) ListPendingByApprover(ctx context.Context, approverID int64) ([]*entity.ApprovalStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM approval_steps
		WHERE approver_id = ? AND status = 'PENDING'
		ORDER BY expense_id, step_order
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, approverID)
	if err != nil {
		r.logger.Error("Failed to list pending approvals",
			zap.Int64("approver_id", approverID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}
	defer rows.Close()

	return r.scanSteps(rows)
}

// Decide records a decision for a step. The write is conditioned on the row
// still being PENDING; a concurrent or duplicate decision changes nothing
// and gets approval.ErrAlreadyDecided back.
func (r *StepRepository) Decide(ctx context.Context, id int64, status entity.StepStatus, comment string, decidedAt time.Time) error {
	query := `
		UPDATE approval_steps
		SET status = ?, comment = ?, decided_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'PENDING'
	`

	var commentVal sql.NullString
	if comment != "" {
		commentVal = sql.NullString{String: comment, Valid: true}
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, status, commentVal, decidedAt, id)
	if err != nil {
		r.logger.Error("Failed to decide approval step",
			zap.Int64("id", id),
			zap.String("status", status.String()),
			zap.Error(err))
		return fmt.Errorf("failed to decide approval step: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return approval.ErrAlreadyDecided
	}

	return nil
}

// scanStep scans a single step row
func (r *StepRepository) scanStep(row *sql.Row) (*entity.ApprovalStep, error) {
	var step entity.ApprovalStep
	var approverRole, comment sql.NullString
	var decidedAt sql.NullTime

	err := row.Scan(
		&step.ID,
		&step.PublicID,
		&step.ExpenseID,
		&step.ApproverID,
		&approverRole,
		&step.Order,
		&step.Status,
		&comment,
		&decidedAt,
		&step.CreatedAt,
		&step.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if approverRole.Valid {
		step.ApproverRole = approverRole.String
	}
	if comment.Valid {
		step.Comment = comment.String
	}
	if decidedAt.Valid {
		step.DecidedAt = &decidedAt.Time
	}

	return &step, nil
}

// scanSteps scans multiple step rows
func (r *StepRepository) scanSteps(rows *sql.Rows) ([]*entity.ApprovalStep, error) {
	var steps []*entity.ApprovalStep

	for rows.Next() {
		var step entity.ApprovalStep
		var approverRole, comment sql.NullString
		var decidedAt sql.NullTime

		err := rows.Scan(
			&step.ID,
			&step.PublicID,
			&step.ExpenseID,
			&step.ApproverID,
			&approverRole,
			&step.Order,
			&step.Status,
			&comment,
			&decidedAt,
			&step.CreatedAt,
			&step.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval step: %w", err)
		}

		if approverRole.Valid {
			step.ApproverRole = approverRole.String
		}
		if comment.Valid {
			step.Comment = comment.String
		}
		if decidedAt.Valid {
			step.DecidedAt = &decidedAt.Time
		}

		steps = append(steps, &step)
	}

	return steps, rows.Err()
}

// Verify interface compliance
var _ port.StepRepository = (*StepRepository)(nil)
