package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/approval"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
)

type noopLogger struct{}

func (noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockTxManager struct{}

func (mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockExpenseRepo struct {
	expenses map[int64]*entity.Expense
	nextID   int64
}

func newMockExpenseRepo() *mockExpenseRepo {
	return &mockExpenseRepo{expenses: make(map[int64]*entity.Expense)}
}

func (m *mockExpenseRepo) Create(ctx context.Context, expense *entity.Expense) error {
	m.nextID++
	expense.ID = m.nextID
	m.expenses[expense.ID] = expense
	return nil
}

func (m *mockExpenseRepo) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	return m.expenses[id], nil
}

func (m *mockExpenseRepo) GetByPublicID(ctx context.Context, publicID string) (*entity.Expense, error) {
	for _, e := range m.expenses {
		if e.PublicID == publicID {
			return e, nil
		}
	}
	return nil, nil
}

func (m *mockExpenseRepo) List(ctx context.Context, companyID int64, limit, offset int) ([]*entity.Expense, error) {
	var out []*entity.Expense
	for _, e := range m.expenses {
		if e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockExpenseRepo) ListStuck(ctx context.Context, companyID int64) ([]*entity.Expense, error) {
	return nil, nil
}

func (m *mockExpenseRepo) Finalize(ctx context.Context, id int64, status entity.ExpenseStatus, reason string, decidedAt time.Time) error {
	expense, ok := m.expenses[id]
	if !ok {
		return approval.ErrNotFound
	}
	if expense.Status != entity.ExpensePending {
		return approval.ErrExpenseFinalized
	}
	expense.Status = status
	expense.StatusReason = reason
	expense.DecidedAt = &decidedAt
	return nil
}

type mockStepRepo struct {
	steps  map[int64]*entity.ApprovalStep
	nextID int64
}

func newMockStepRepo() *mockStepRepo {
	return &mockStepRepo{steps: make(map[int64]*entity.ApprovalStep)}
}

func (m *mockStepRepo) Create(ctx context.Context, step *entity.ApprovalStep) error {
	m.nextID++
	step.ID = m.nextID
	m.steps[step.ID] = step
	return nil
}

func (m *mockStepRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
	return m.steps[id], nil
}

func (m *mockStepRepo) GetByPublicID(ctx context.Context, publicID string) (*entity.ApprovalStep, error) {
	for _, s := range m.steps {
		if s.PublicID == publicID {
			return s, nil
		}
	}
	return nil, nil
}

func (m *mockStepRepo) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ApprovalStep, error) {
	var out []*entity.ApprovalStep
	for _, s := range m.steps {
		if s.ExpenseID == expenseID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *mockStepRepo) ListPendingByApprover(ctx context.Context, approverID int64) ([]*entity.ApprovalStep, error) {
	var out []*entity.ApprovalStep
	for _, s := range m.steps {
		if s.ApproverID == approverID && s.Status == entity.StepPending {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStepRepo) Decide(ctx context.Context, id int64, status entity.StepStatus, comment string, decidedAt time.Time) error {
	step, ok := m.steps[id]
	if !ok {
		return approval.ErrNotFound
	}
	// Compare-and-set semantics of the real store.
	if step.Status != entity.StepPending {
		return approval.ErrAlreadyDecided
	}
	step.Status = status
	step.Comment = comment
	step.DecidedAt = &decidedAt
	return nil
}

type mockUserRepo struct {
	users map[int64]*entity.User
}

func newMockUserRepo(users ...*entity.User) *mockUserRepo {
	repo := &mockUserRepo{users: make(map[int64]*entity.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepo) ManagerOf(ctx context.Context, userID int64) (*int64, error) {
	user, ok := m.users[userID]
	if !ok || user.ManagerID == nil {
		return nil, nil
	}
	return user.ManagerID, nil
}

func (m *mockUserRepo) ActiveUsersWithRole(ctx context.Context, companyID int64, role string) ([]int64, error) {
	var ids []int64
	for _, u := range m.users {
		if u.CompanyID == companyID && u.Role == role && u.Active {
			ids = append(ids, u.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type mockPolicyRepo struct {
	sequences map[int64]*entity.ApprovalSequence
	active    *entity.ApprovalSequence
	rules     []entity.ApprovalRule
	nextID    int64
}

func newMockPolicyRepo() *mockPolicyRepo {
	return &mockPolicyRepo{sequences: make(map[int64]*entity.ApprovalSequence)}
}

func (m *mockPolicyRepo) ActiveSequence(ctx context.Context, companyID int64) (*entity.ApprovalSequence, error) {
	return m.active, nil
}

func (m *mockPolicyRepo) ActiveRules(ctx context.Context, companyID int64) ([]entity.ApprovalRule, error) {
	return m.rules, nil
}

func (m *mockPolicyRepo) CreateSequence(ctx context.Context, sequence *entity.ApprovalSequence) error {
	m.nextID++
	sequence.ID = m.nextID
	m.sequences[sequence.ID] = sequence
	return nil
}

func (m *mockPolicyRepo) GetSequence(ctx context.Context, id int64) (*entity.ApprovalSequence, error) {
	return m.sequences[id], nil
}

func (m *mockPolicyRepo) ActivateSequence(ctx context.Context, companyID, sequenceID int64) error {
	for _, q := range m.sequences {
		q.Active = false
	}
	m.sequences[sequenceID].Active = true
	m.active = m.sequences[sequenceID]
	return nil
}

func (m *mockPolicyRepo) CreateRule(ctx context.Context, rule *entity.ApprovalRule) error {
	m.nextID++
	rule.ID = m.nextID
	// The real store assigns the next position inside the insert.
	rule.Position = len(m.rules)
	m.rules = append(m.rules, *rule)
	return nil
}

func (m *mockPolicyRepo) ListRules(ctx context.Context, companyID int64) ([]entity.ApprovalRule, error) {
	return m.rules, nil
}

type mockReceiptRepo struct {
	receipts map[int64]*entity.Receipt
	nextID   int64
}

func newMockReceiptRepo() *mockReceiptRepo {
	return &mockReceiptRepo{receipts: make(map[int64]*entity.Receipt)}
}

func (m *mockReceiptRepo) Create(ctx context.Context, receipt *entity.Receipt) error {
	m.nextID++
	receipt.ID = m.nextID
	stored := *receipt
	m.receipts[receipt.ID] = &stored
	return nil
}

func (m *mockReceiptRepo) GetByID(ctx context.Context, id int64) (*entity.Receipt, error) {
	return m.receipts[id], nil
}

func (m *mockReceiptRepo) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.Receipt, error) {
	var out []*entity.Receipt
	for _, r := range m.receipts {
		if r.ExpenseID == expenseID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockReceiptRepo) Delete(ctx context.Context, id int64) error {
	delete(m.receipts, id)
	return nil
}

type mockFileStorage struct {
	files map[string][]byte
}

func newMockFileStorage() *mockFileStorage {
	return &mockFileStorage{files: make(map[string][]byte)}
}

func (m *mockFileStorage) SaveFile(fullPath string, content []byte) error {
	m.files[fullPath] = append([]byte(nil), content...)
	return nil
}

func (m *mockFileStorage) ReadFile(fullPath string) ([]byte, error) {
	content, ok := m.files[fullPath]
	if !ok {
		return nil, fmt.Errorf("no file at %s", fullPath)
	}
	return content, nil
}

func (m *mockFileStorage) DeleteFile(fullPath string) error {
	delete(m.files, fullPath)
	return nil
}

type mockNotifier struct {
	stepNotices      []int64
	finalizedNotices []int64
}

func (m *mockNotifier) NotifyStepPending(ctx context.Context, approver *entity.User, expense *entity.Expense, step *entity.ApprovalStep) error {
	m.stepNotices = append(m.stepNotices, step.ID)
	return nil
}

func (m *mockNotifier) NotifyExpenseFinalized(ctx context.Context, submitter *entity.User, expense *entity.Expense) error {
	m.finalizedNotices = append(m.finalizedNotices, expense.ID)
	return nil
}
