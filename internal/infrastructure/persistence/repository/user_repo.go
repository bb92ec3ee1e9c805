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

// UserRepository implements port.UserRepository. Its read side is also the
// directory the sequence builder resolves approvers against.
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (company_id, name, email, role, manager_id, lark_id, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var managerID sql.NullInt64
	var larkID sql.NullString
	if user.ManagerID != nil {
		managerID = sql.NullInt64{Int64: *user.ManagerID, Valid: true}
	}
	if user.LarkID != "" {
		larkID = sql.NullString{String: user.LarkID, Valid: true}
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		user.CompanyID,
		user.Name,
		user.Email,
		user.Role,
		managerID,
		larkID,
		user.Active,
	)
	if err != nil {
		r.logger.Error("Failed to create user",
			zap.Int64("company_id", user.CompanyID),
			zap.String("email", user.Email),
			zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = id
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `
		SELECT id, company_id, name, email, role, manager_id, lark_id, active, created_at, updated_at
		FROM users
		WHERE id = ?
	`

	user, err := r.scanUser(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// ManagerOf returns the ID of a user's direct manager, or nil when the user
// has none (or does not exist)
func (r *UserRepository) ManagerOf(ctx context.Context, userID int64) (*int64, error) {
	query := `SELECT manager_id FROM users WHERE id = ? AND active = TRUE`

	var managerID sql.NullInt64
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(&managerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get manager",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get manager: %w", err)
	}

	if !managerID.Valid {
		return nil, nil
	}
	return &managerID.Int64, nil
}

// ActiveUsersWithRole returns the IDs of active users holding a role within
// a company. The order is stable so role resolution is deterministic.
func (r *UserRepository) ActiveUsersWithRole(ctx context.Context, companyID int64, role string) ([]int64, error) {
	query := `
		SELECT id FROM users
		WHERE company_id = ? AND role = ? AND active = TRUE
		ORDER BY id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, companyID, role)
	if err != nil {
		r.logger.Error("Failed to list users with role",
			zap.Int64("company_id", companyID),
			zap.String("role", role),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list users with role: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// scanUser scans a single user row
func (r *UserRepository) scanUser(row *sql.Row) (*entity.User, error) {
	var user entity.User
	var managerID sql.NullInt64
	var larkID sql.NullString

	err := row.Scan(
		&user.ID,
		&user.CompanyID,
		&user.Name,
		&user.Email,
		&user.Role,
		&managerID,
		&larkID,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if managerID.Valid {
		user.ManagerID = &managerID.Int64
	}
	if larkID.Valid {
		user.LarkID = larkID.String
	}

	return &user, nil
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
