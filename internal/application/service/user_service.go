package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/application/port"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/approval"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
)

// UserService manages company users.
type UserService interface {
	CreateUser(ctx context.Context, user *entity.User) error
	GetUser(ctx context.Context, id int64) (*entity.User, error)
}

type userServiceImpl struct {
	userRepo port.UserRepository
	logger   Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo port.UserRepository, logger Logger) UserService {
	return &userServiceImpl{
		userRepo: userRepo,
		logger:   logger,
	}
}

// CreateUser validates and stores a user. A named manager must exist in the
// same company.
func (s *userServiceImpl) CreateUser(ctx context.Context, user *entity.User) error {
	if user.CompanyID == 0 {
		return errors.New("user requires a company")
	}
	if user.Name == "" || user.Email == "" {
		return errors.New("user requires a name and email")
	}

	if user.ManagerID != nil {
		manager, err := s.userRepo.GetByID(ctx, *user.ManagerID)
		if err != nil {
			return fmt.Errorf("verify manager: %w", err)
		}
		if manager == nil || manager.CompanyID != user.CompanyID {
			return fmt.Errorf("manager %d not found in company %d", *user.ManagerID, user.CompanyID)
		}
	}

	user.Active = true
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", "error", err, "company_id", user.CompanyID)
		return err
	}

	s.logger.Info("User created", "user_id", user.ID, "company_id", user.CompanyID, "role", user.Role)
	return nil
}

// GetUser retrieves a user by ID.
func (s *userServiceImpl) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, approval.ErrNotFound
	}
	return user, nil
}
