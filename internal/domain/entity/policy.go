package entity

import (
	"errors"
	"fmt"
	"time"
)

// StepKind tags a sequence step variant. The set is closed; anything else
// is rejected when the sequence is written, not silently skipped at
// evaluation time.
type StepKind string

const (
	StepKindManager StepKind = "MANAGER"
	StepKindRole    StepKind = "ROLE"
	StepKindUser    StepKind = "USER"
)

// SequenceStep is one descriptor in an approval sequence definition.
// Exactly one variant applies per kind:
//
//	MANAGER: resolve to the submitter's direct manager
//	ROLE:    resolve to an active user holding Role in the company
//	USER:    the fixed approver UserID
type SequenceStep struct {
	Kind   StepKind `json:"kind"`
	Role   string   `json:"role,omitempty"`
	UserID int64    `json:"user_id,omitempty"`
}

// Validate checks the variant is well formed for its kind.
func (s SequenceStep) Validate() error {
	switch s.Kind {
	case StepKindManager:
		if s.Role != "" || s.UserID != 0 {
			return errors.New("manager step must not carry a role or user")
		}
	case StepKindRole:
		if s.Role == "" {
			return errors.New("role step requires a role")
		}
		if s.UserID != 0 {
			return errors.New("role step must not carry a user")
		}
	case StepKindUser:
		if s.UserID == 0 {
			return errors.New("user step requires a user id")
		}
		if s.Role != "" {
			return errors.New("user step must not carry a role")
		}
	default:
		return fmt.Errorf("unknown step kind: %q", s.Kind)
	}
	return nil
}

// ApprovalSequence is a company's ordered approval sequence definition.
// At most one sequence is active per company at a time.
type ApprovalSequence struct {
	ID        int64          `json:"id"`
	CompanyID int64          `json:"company_id"`
	Name      string         `json:"name"`
	Active    bool           `json:"active"`
	Steps     []SequenceStep `json:"steps"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Validate checks the definition and every step in it.
func (q *ApprovalSequence) Validate() error {
	if q.CompanyID == 0 {
		return errors.New("sequence requires a company")
	}
	if q.Name == "" {
		return errors.New("sequence requires a name")
	}
	if len(q.Steps) == 0 {
		return errors.New("sequence requires at least one step")
	}
	for i, step := range q.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// RuleKind tags an approval rule variant.
type RuleKind string

const (
	// RulePercentage finalizes once approvedCount >= ceil(total * Threshold).
	RulePercentage RuleKind = "PERCENTAGE"
	// RuleSpecific finalizes once the named approver (or any step with the
	// named role) has approved.
	RuleSpecific RuleKind = "SPECIFIC"
	// RuleHybrid finalizes when either the percentage threshold or the named
	// role condition holds.
	RuleHybrid RuleKind = "HYBRID"
)

// ApprovalRule is one company-level early-finalization condition. Rules are
// independent; when several are configured they are evaluated in stored
// order (Position ascending) and the first satisfied rule wins.
type ApprovalRule struct {
	ID         int64     `json:"id"`
	CompanyID  int64     `json:"company_id"`
	Kind       RuleKind  `json:"kind"`
	Threshold  float64   `json:"threshold,omitempty"`
	ApproverID int64     `json:"approver_id,omitempty"`
	Role       string    `json:"role,omitempty"`
	Position   int       `json:"position"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validate checks the rule variant is well formed for its kind.
func (r *ApprovalRule) Validate() error {
	if r.CompanyID == 0 {
		return errors.New("rule requires a company")
	}
	switch r.Kind {
	case RulePercentage:
		if r.Threshold <= 0 || r.Threshold > 1 {
			return fmt.Errorf("percentage threshold must be in (0, 1], got %v", r.Threshold)
		}
		if r.ApproverID != 0 || r.Role != "" {
			return errors.New("percentage rule must not name an approver or role")
		}
	case RuleSpecific:
		if (r.ApproverID == 0) == (r.Role == "") {
			return errors.New("specific rule requires exactly one of approver or role")
		}
		if r.Threshold != 0 {
			return errors.New("specific rule must not carry a threshold")
		}
	case RuleHybrid:
		if r.Threshold <= 0 || r.Threshold > 1 {
			return fmt.Errorf("hybrid threshold must be in (0, 1], got %v", r.Threshold)
		}
		if r.Role == "" {
			return errors.New("hybrid rule requires a role")
		}
		if r.ApproverID != 0 {
			return errors.New("hybrid rule must not name an approver")
		}
	default:
		return fmt.Errorf("unknown rule kind: %q", r.Kind)
	}
	return nil
}
