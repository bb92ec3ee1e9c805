package approval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
)

type fakeDirectory struct {
	managers map[int64]int64
	byRole   map[string][]int64
	err      error
}

func (d *fakeDirectory) ManagerOf(ctx context.Context, userID int64) (*int64, error) {
	if d.err != nil {
		return nil, d.err
	}
	if m, ok := d.managers[userID]; ok {
		return &m, nil
	}
	return nil, nil
}

func (d *fakeDirectory) ActiveUsersWithRole(ctx context.Context, companyID int64, role string) ([]int64, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.byRole[role], nil
}

type fakePolicyStore struct {
	sequence *entity.ApprovalSequence
	rules    []entity.ApprovalRule
	err      error
}

func (p *fakePolicyStore) ActiveSequence(ctx context.Context, companyID int64) (*entity.ApprovalSequence, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.sequence, nil
}

func (p *fakePolicyStore) ActiveRules(ctx context.Context, companyID int64) ([]entity.ApprovalRule, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.rules, nil
}

func testExpense() *entity.Expense {
	return &entity.Expense{ID: 42, CompanyID: 7, SubmitterID: 10}
}

func TestSequenceBuilder_ManagerFallback(t *testing.T) {
	directory := &fakeDirectory{managers: map[int64]int64{10: 20}}
	builder := NewSequenceBuilder(directory, &fakePolicyStore{})

	result, err := builder.Build(context.Background(), testExpense())

	require.NoError(t, err)
	require.Len(t, result.Steps, 1)
	step := result.Steps[0]
	assert.Equal(t, int64(20), step.ApproverID)
	assert.Equal(t, entity.RoleManager, step.ApproverRole)
	assert.Equal(t, 0, step.Order)
	assert.Equal(t, entity.StepPending, step.Status)
	assert.Equal(t, int64(42), step.ExpenseID)
	assert.NotEmpty(t, step.PublicID)
	assert.Empty(t, result.Unresolved)
}

func TestSequenceBuilder_NoManagerYieldsEmptySequence(t *testing.T) {
	builder := NewSequenceBuilder(&fakeDirectory{}, &fakePolicyStore{})

	result, err := builder.Build(context.Background(), testExpense())

	require.NoError(t, err)
	assert.Empty(t, result.Steps)
	require.Len(t, result.Unresolved, 1)
	assert.Contains(t, result.Unresolved[0].Reason, "no manager")
}

func TestSequenceBuilder_DefinitionResolvesAllKinds(t *testing.T) {
	directory := &fakeDirectory{
		managers: map[int64]int64{10: 20},
		byRole:   map[string][]int64{"FINANCE": {30, 31}},
	}
	policies := &fakePolicyStore{
		sequence: &entity.ApprovalSequence{
			ID:        1,
			CompanyID: 7,
			Steps: []entity.SequenceStep{
				{Kind: entity.StepKindManager},
				{Kind: entity.StepKindRole, Role: "FINANCE"},
				{Kind: entity.StepKindUser, UserID: 99},
			},
		},
	}
	builder := NewSequenceBuilder(directory, policies)

	result, err := builder.Build(context.Background(), testExpense())

	require.NoError(t, err)
	require.Len(t, result.Steps, 3)

	assert.Equal(t, int64(20), result.Steps[0].ApproverID)
	assert.Equal(t, entity.RoleManager, result.Steps[0].ApproverRole)

	// Role steps take the first active holder.
	assert.Equal(t, int64(30), result.Steps[1].ApproverID)
	assert.Equal(t, "FINANCE", result.Steps[1].ApproverRole)

	assert.Equal(t, int64(99), result.Steps[2].ApproverID)
	assert.Empty(t, result.Steps[2].ApproverRole)

	for i, step := range result.Steps {
		assert.Equal(t, i, step.Order)
	}
}

func TestSequenceBuilder_UnresolvedStepsDoNotConsumeOrderSlots(t *testing.T) {
	directory := &fakeDirectory{
		byRole: map[string][]int64{"FINANCE": {30}},
	}
	policies := &fakePolicyStore{
		sequence: &entity.ApprovalSequence{
			Steps: []entity.SequenceStep{
				{Kind: entity.StepKindRole, Role: "CFO"}, // nobody holds this role
				{Kind: entity.StepKindManager},           // submitter has no manager
				{Kind: entity.StepKindRole, Role: "FINANCE"},
				{Kind: entity.StepKindUser, UserID: 99},
			},
		},
	}
	builder := NewSequenceBuilder(directory, policies)

	result, err := builder.Build(context.Background(), testExpense())

	require.NoError(t, err)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, 0, result.Steps[0].Order)
	assert.Equal(t, 1, result.Steps[1].Order)
	assert.Len(t, result.Unresolved, 2)
}

func TestSequenceBuilder_DirectoryFailureAbortsBuild(t *testing.T) {
	directory := &fakeDirectory{err: errors.New("directory timeout")}
	builder := NewSequenceBuilder(directory, &fakePolicyStore{})

	result, err := builder.Build(context.Background(), testExpense())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestSequenceBuilder_PolicyStoreFailureAbortsBuild(t *testing.T) {
	builder := NewSequenceBuilder(&fakeDirectory{}, &fakePolicyStore{err: errors.New("store down")})

	result, err := builder.Build(context.Background(), testExpense())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}
