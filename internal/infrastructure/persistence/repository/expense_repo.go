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

const expenseColumns = `id, public_id, company_id, submitter_id, description, category,
		amount_cents, currency, expense_date, status, status_reason,
		submitted_at, decided_at, created_at, updated_at`

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new expense claim
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	query := `
		INSERT INTO expenses (
			public_id, company_id, submitter_id, description, category,
			amount_cents, currency, expense_date, status, status_reason, submitted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var statusReason sql.NullString
	if expense.StatusReason != "" {
		statusReason = sql.NullString{String: expense.StatusReason, Valid: true}
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		expense.PublicID,
		expense.CompanyID,
		expense.SubmitterID,
		expense.Description,
		expense.Category,
		expense.AmountCents,
		expense.Currency,
		expense.ExpenseDate,
		expense.Status,
		statusReason,
		expense.SubmittedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense",
			zap.Int64("company_id", expense.CompanyID),
			zap.Int64("submitter_id", expense.SubmitterID),
			zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	expense.ID = id
	return nil
}

// GetByID retrieves an expense by its ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

	expense, err := r.scanExpense(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return expense, nil
}

// GetByPublicID retrieves an expense by its public identifier
func (r *ExpenseRepository) GetByPublicID(ctx context.Context, publicID string) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE public_id = ?`

	expense, err := r.scanExpense(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, publicID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense by public ID",
			zap.String("public_id", publicID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return expense, nil
}

// List retrieves a company's expenses, newest first
func (r *ExpenseRepository) List(ctx context.Context, companyID int64, limit, offset int) ([]*entity.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE company_id = ?
		ORDER BY submitted_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, companyID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list expenses",
			zap.Int64("company_id", companyID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	return r.scanExpenses(rows)
}

// ListStuck retrieves PENDING expenses with no approval steps at all. These
// cannot progress without operator intervention and are surfaced for review.
func (r *ExpenseRepository) ListStuck(ctx context.Context, companyID int64) ([]*entity.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses e
		WHERE e.company_id = ?
			AND e.status = 'PENDING'
			AND NOT EXISTS (SELECT 1 FROM approval_steps s WHERE s.expense_id = e.id)
		ORDER BY e.submitted_at
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, companyID)
	if err != nil {
		r.logger.Error("Failed to list stuck expenses",
			zap.Int64("company_id", companyID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list stuck expenses: %w", err)
	}
	defer rows.Close()

	return r.scanExpenses(rows)
}

// Finalize writes a terminal status and its reason. The update is conditioned
// on the row still being PENDING so a finalized expense is never overwritten.
func (r *ExpenseRepository) Finalize(ctx context.Context, id int64, status entity.ExpenseStatus, reason string, decidedAt time.Time) error {
	query := `
		UPDATE expenses
		SET status = ?, status_reason = ?, decided_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'PENDING'
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, status, reason, decidedAt, id)
	if err != nil {
		r.logger.Error("Failed to finalize expense",
			zap.Int64("id", id),
			zap.String("status", status.String()),
			zap.Error(err))
		return fmt.Errorf("failed to finalize expense: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return approval.ErrExpenseFinalized
	}

	return nil
}

// scanExpense scans a single expense row
func (r *ExpenseRepository) scanExpense(row *sql.Row) (*entity.Expense, error) {
	var expense entity.Expense
	var statusReason sql.NullString
	var decidedAt sql.NullTime

	err := row.Scan(
		&expense.ID,
		&expense.PublicID,
		&expense.CompanyID,
		&expense.SubmitterID,
		&expense.Description,
		&expense.Category,
		&expense.AmountCents,
		&expense.Currency,
		&expense.ExpenseDate,
		&expense.Status,
		&statusReason,
		&expense.SubmittedAt,
		&decidedAt,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if statusReason.Valid {
		expense.StatusReason = statusReason.String
	}
	if decidedAt.Valid {
		expense.DecidedAt = &decidedAt.Time
	}

	return &expense, nil
}

// scanExpenses scans multiple expense rows
func (r *ExpenseRepository) scanExpenses(rows *sql.Rows) ([]*entity.Expense, error) {
	var expenses []*entity.Expense

	for rows.Next() {
		var expense entity.Expense
		var statusReason sql.NullString
		var decidedAt sql.NullTime

		err := rows.Scan(
			&expense.ID,
			&expense.PublicID,
			&expense.CompanyID,
			&expense.SubmitterID,
			&expense.Description,
			&expense.Category,
			&expense.AmountCents,
			&expense.Currency,
			&expense.ExpenseDate,
			&expense.Status,
			&statusReason,
			&expense.SubmittedAt,
			&decidedAt,
			&expense.CreatedAt,
			&expense.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}

		if statusReason.Valid {
			expense.StatusReason = statusReason.String
		}
		if decidedAt.Valid {
			expense.DecidedAt = &decidedAt.Time
		}

		expenses = append(expenses, &expense)
	}

	return expenses, rows.Err()
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
