package service

import (
	"context"
	"fmt"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/application/port"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/approval"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
)

// PolicyService manages a company's approval sequences and rules. All
// variant validation happens here, at write time, so the engine never sees
// an unknown kind.
type PolicyService interface {
	CreateSequence(ctx context.Context, sequence *entity.ApprovalSequence) error
	ActivateSequence(ctx context.Context, companyID, sequenceID int64) error
	CreateRule(ctx context.Context, rule *entity.ApprovalRule) error
	ListRules(ctx context.Context, companyID int64) ([]entity.ApprovalRule, error)
}

type policyServiceImpl struct {
	policyRepo port.PolicyRepository
	userRepo   port.UserRepository
	logger     Logger
}

// NewPolicyService creates a new PolicyService
func NewPolicyService(policyRepo port.PolicyRepository, userRepo port.UserRepository, logger Logger) PolicyService {
	return &policyServiceImpl{
		policyRepo: policyRepo,
		userRepo:   userRepo,
		logger:     logger,
	}
}

// CreateSequence validates and stores a sequence definition. New sequences
// are created inactive; activation is a separate explicit action.
func (s *policyServiceImpl) CreateSequence(ctx context.Context, sequence *entity.ApprovalSequence) error {
	if err := sequence.Validate(); err != nil {
		return fmt.Errorf("invalid sequence: %w", err)
	}

	for i, step := range sequence.Steps {
		if step.Kind != entity.StepKindUser {
			continue
		}
		user, err := s.userRepo.GetByID(ctx, step.UserID)
		if err != nil {
			return fmt.Errorf("verify step %d approver: %w", i, err)
		}
		if user == nil || user.CompanyID != sequence.CompanyID {
			return fmt.Errorf("invalid sequence: step %d names user %d outside company %d", i, step.UserID, sequence.CompanyID)
		}
	}

	sequence.Active = false
	if err := s.policyRepo.CreateSequence(ctx, sequence); err != nil {
		s.logger.Error("Failed to create sequence", "error", err, "company_id", sequence.CompanyID)
		return err
	}

	s.logger.Info("Sequence created",
		"sequence_id", sequence.ID,
		"company_id", sequence.CompanyID,
		"steps", len(sequence.Steps))
	return nil
}

// ActivateSequence makes a sequence the company's single active definition.
func (s *policyServiceImpl) ActivateSequence(ctx context.Context, companyID, sequenceID int64) error {
	sequence, err := s.policyRepo.GetSequence(ctx, sequenceID)
	if err != nil {
		return fmt.Errorf("get sequence: %w", err)
	}
	if sequence == nil || sequence.CompanyID != companyID {
		return approval.ErrNotFound
	}

	if err := s.policyRepo.ActivateSequence(ctx, companyID, sequenceID); err != nil {
		s.logger.Error("Failed to activate sequence", "error", err, "sequence_id", sequenceID)
		return err
	}

	s.logger.Info("Sequence activated", "sequence_id", sequenceID, "company_id", companyID)
	return nil
}

// CreateRule validates and stores an approval rule. The store appends the
// rule to the company's evaluation order and reports the assigned position
// back on the entity.
func (s *policyServiceImpl) CreateRule(ctx context.Context, rule *entity.ApprovalRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}

	if rule.ApproverID != 0 {
		user, err := s.userRepo.GetByID(ctx, rule.ApproverID)
		if err != nil {
			return fmt.Errorf("verify rule approver: %w", err)
		}
		if user == nil || user.CompanyID != rule.CompanyID {
			return fmt.Errorf("invalid rule: approver %d is outside company %d", rule.ApproverID, rule.CompanyID)
		}
	}

	rule.Active = true

	if err := s.policyRepo.CreateRule(ctx, rule); err != nil {
		s.logger.Error("Failed to create rule", "error", err, "company_id", rule.CompanyID)
		return err
	}

	s.logger.Info("Rule created",
		"rule_id", rule.ID,
		"company_id", rule.CompanyID,
		"kind", rule.Kind,
		"position", rule.Position)
	return nil
}

// ListRules retrieves a company's rules in evaluation order.
func (s *policyServiceImpl) ListRules(ctx context.Context, companyID int64) ([]entity.ApprovalRule, error) {
	rules, err := s.policyRepo.ListRules(ctx, companyID)
	if err != nil {
		s.logger.Error("Failed to list rules", "error", err, "company_id", companyID)
		return nil, err
	}
	return rules, nil
}
