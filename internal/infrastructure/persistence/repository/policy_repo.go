package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/application/port"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/infrastructure/persistence/sqlite"
)

// PolicyRepository implements port.PolicyRepository
type PolicyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *sql.DB, logger *zap.Logger) port.PolicyRepository {
	return &PolicyRepository{
		db:     db,
		logger: logger,
	}
}

// ActiveSequence retrieves the company's single active sequence definition
// with its steps, or nil when none is active.
func (r *PolicyRepository) ActiveSequence(ctx context.Context, companyID int64) (*entity.ApprovalSequence, error) {
	query := `
		SELECT id, company_id, name, active, created_at, updated_at
		FROM approval_sequences
		WHERE company_id = ? AND active = TRUE
	`

	sequence, err := r.scanSequence(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, companyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get active sequence",
			zap.Int64("company_id", companyID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get active sequence: %w", err)
	}

	if err := r.loadSteps(ctx, sequence); err != nil {
		return nil, err
	}
	return sequence, nil
}

// ActiveRules retrieves the company's active rules in evaluation order
func (r *PolicyRepository) ActiveRules(ctx context.Context, companyID int64) ([]entity.ApprovalRule, error) {
	query := `
		SELECT id, company_id, kind, threshold, approver_id, role, position, active, created_at, updated_at
		FROM approval_rules
		WHERE company_id = ? AND active = TRUE
		ORDER BY position
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, companyID)
	if err != nil {
		r.logger.Error("Failed to get active rules",
			zap.Int64("company_id", companyID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get active rules: %w", err)
	}
	defer rows.Close()

	return r.scanRules(rows)
}

// CreateSequence inserts a sequence definition together with its steps
func (r *PolicyRepository) CreateSequence(ctx context.Context, sequence *entity.ApprovalSequence) error {
	query := `
		INSERT INTO approval_sequences (company_id, name, active)
		VALUES (?, ?, ?)
	`

	exec := sqlite.ExecutorFrom(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, sequence.CompanyID, sequence.Name, sequence.Active)
	if err != nil {
		r.logger.Error("Failed to create sequence",
			zap.Int64("company_id", sequence.CompanyID),
			zap.Error(err))
		return fmt.Errorf("failed to create sequence: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	sequence.ID = id

	stepQuery := `
		INSERT INTO sequence_steps (sequence_id, position, kind, role, user_id)
		VALUES (?, ?, ?, ?, ?)
	`
	for i, step := range sequence.Steps {
		var role sql.NullString
		var userID sql.NullInt64
		if step.Role != "" {
			role = sql.NullString{String: step.Role, Valid: true}
		}
		if step.UserID != 0 {
			userID = sql.NullInt64{Int64: step.UserID, Valid: true}
		}

		if _, err := exec.ExecContext(ctx, stepQuery, sequence.ID, i, step.Kind, role, userID); err != nil {
			r.logger.Error("Failed to create sequence step",
				zap.Int64("sequence_id", sequence.ID),
				zap.Int("position", i),
				zap.Error(err))
			return fmt.Errorf("failed to create sequence step: %w", err)
		}
	}

	return nil
}

// GetSequence retrieves a sequence definition by ID with its steps
func (r *PolicyRepository) GetSequence(ctx context.Context, id int64) (*entity.ApprovalSequence, error) {
	query := `
		SELECT id, company_id, name, active, created_at, updated_at
		FROM approval_sequences
		WHERE id = ?
	`

	sequence, err := r.scanSequence(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get sequence",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get sequence: %w", err)
	}

	if err := r.loadSteps(ctx, sequence); err != nil {
		return nil, err
	}
	return sequence, nil
}

// ActivateSequence makes one sequence the company's active definition,
// deactivating any other. A single UPDATE flips every row of the company
// at once, so two concurrent activations cannot leave two active rows.
func (r *PolicyRepository) ActivateSequence(ctx context.Context, companyID, sequenceID int64) error {
	query := `
		UPDATE approval_sequences
		SET active = (id = ?), updated_at = CURRENT_TIMESTAMP
		WHERE company_id = ?
	`

	if _, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, sequenceID, companyID); err != nil {
		r.logger.Error("Failed to activate sequence",
			zap.Int64("company_id", companyID),
			zap.Int64("sequence_id", sequenceID),
			zap.Error(err))
		return fmt.Errorf("failed to activate sequence: %w", err)
	}

	return nil
}

// CreateRule inserts an approval rule at the end of the company's
// evaluation order. The position is computed inside the INSERT so
// concurrent creations cannot claim the same slot.
func (r *PolicyRepository) CreateRule(ctx context.Context, rule *entity.ApprovalRule) error {
	query := `
		INSERT INTO approval_rules (company_id, kind, threshold, approver_id, role, position, active)
		VALUES (?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM approval_rules WHERE company_id = ?),
			?)
	`

	var threshold sql.NullFloat64
	var approverID sql.NullInt64
	var role sql.NullString
	if rule.Threshold != 0 {
		threshold = sql.NullFloat64{Float64: rule.Threshold, Valid: true}
	}
	if rule.ApproverID != 0 {
		approverID = sql.NullInt64{Int64: rule.ApproverID, Valid: true}
	}
	if rule.Role != "" {
		role = sql.NullString{String: rule.Role, Valid: true}
	}

	exec := sqlite.ExecutorFrom(ctx, r.db)
	result, err := exec.ExecContext(ctx, query,
		rule.CompanyID,
		rule.Kind,
		threshold,
		approverID,
		role,
		rule.CompanyID,
		rule.Active,
	)
	if err != nil {
		r.logger.Error("Failed to create rule",
			zap.Int64("company_id", rule.CompanyID),
			zap.String("kind", string(rule.Kind)),
			zap.Error(err))
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rule.ID = id

	positionQuery := `SELECT position FROM approval_rules WHERE id = ?`
	if err := exec.QueryRowContext(ctx, positionQuery, id).Scan(&rule.Position); err != nil {
		return fmt.Errorf("failed to read rule position: %w", err)
	}

	return nil
}

// ListRules retrieves all of a company's rules in evaluation order
func (r *PolicyRepository) ListRules(ctx context.Context, companyID int64) ([]entity.ApprovalRule, error) {
	query := `
		SELECT id, company_id, kind, threshold, approver_id, role, position, active, created_at, updated_at
		FROM approval_rules
		WHERE company_id = ?
		ORDER BY position
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, companyID)
	if err != nil {
		r.logger.Error("Failed to list rules",
			zap.Int64("company_id", companyID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	return r.scanRules(rows)
}

// loadSteps populates a sequence's step definitions in position order
func (r *PolicyRepository) loadSteps(ctx context.Context, sequence *entity.ApprovalSequence) error {
	query := `
		SELECT kind, role, user_id
		FROM sequence_steps
		WHERE sequence_id = ?
		ORDER BY position
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, sequence.ID)
	if err != nil {
		r.logger.Error("Failed to load sequence steps",
			zap.Int64("sequence_id", sequence.ID),
			zap.Error(err))
		return fmt.Errorf("failed to load sequence steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var step entity.SequenceStep
		var role sql.NullString
		var userID sql.NullInt64

		if err := rows.Scan(&step.Kind, &role, &userID); err != nil {
			return fmt.Errorf("failed to scan sequence step: %w", err)
		}
		if role.Valid {
			step.Role = role.String
		}
		if userID.Valid {
			step.UserID = userID.Int64
		}

		sequence.Steps = append(sequence.Steps, step)
	}

	return rows.Err()
}

// scanSequence scans a single sequence row without its steps
func (r *PolicyRepository) scanSequence(row *sql.Row) (*entity.ApprovalSequence, error) {
	var sequence entity.ApprovalSequence

	err := row.Scan(
		&sequence.ID,
		&sequence.CompanyID,
		&sequence.Name,
		&sequence.Active,
		&sequence.CreatedAt,
		&sequence.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &sequence, nil
}

// scanRules scans multiple rule rows
func (r *PolicyRepository) scanRules(rows *sql.Rows) ([]entity.ApprovalRule, error) {
	var rules []entity.ApprovalRule

	for rows.Next() {
		var rule entity.ApprovalRule
		var threshold sql.NullFloat64
		var approverID sql.NullInt64
		var role sql.NullString

		err := rows.Scan(
			&rule.ID,
			&rule.CompanyID,
			&rule.Kind,
			&threshold,
			&approverID,
			&role,
			&rule.Position,
			&rule.Active,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		if threshold.Valid {
			rule.Threshold = threshold.Float64
		}
		if approverID.Valid {
			rule.ApproverID = approverID.Int64
		}
		if role.Valid {
			rule.Role = role.String
		}

		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// Verify interface compliance
var _ port.PolicyRepository = (*PolicyRepository)(nil)
