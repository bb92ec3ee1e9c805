package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/approval"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/infrastructure/persistence/repository"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/pkg/database"
)

// newTestDB opens a real SQLite database in a temp directory and applies
// the schema, so the tests below exercise the actual SQL the repositories
// run in production.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrator := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.RunMigrations("../../../../migrations"))

	return db.DB
}

func seedCompany(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	result, err := db.Exec(`INSERT INTO companies (name) VALUES (?)`, "acme")
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func seedUser(t *testing.T, db *sql.DB, companyID int64, name string) int64 {
	t.Helper()
	result, err := db.Exec(
		`INSERT INTO users (company_id, name, email) VALUES (?, ?, ?)`,
		companyID, name, fmt.Sprintf("%s@acme.test", name))
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

func seedPendingExpense(t *testing.T, db *sql.DB, companyID, submitterID int64, publicID string) *entity.Expense {
	t.Helper()
	expenses := repository.NewExpenseRepository(db, zap.NewNop())
	expense := &entity.Expense{
		PublicID:    publicID,
		CompanyID:   companyID,
		SubmitterID: submitterID,
		Description: "client lunch",
		Category:    "MEALS",
		AmountCents: 4200,
		Currency:    "USD",
		ExpenseDate: time.Now(),
		Status:      entity.ExpensePending,
		SubmittedAt: time.Now(),
	}
	require.NoError(t, expenses.Create(context.Background(), expense))
	return expense
}

// Two approvers racing to decide the same step: the conditional update
// must let exactly one decision through and reject the other.
func TestStepRepository_DecideIsCompareAndSet(t *testing.T) {
	db := newTestDB(t)
	companyID := seedCompany(t, db)
	submitterID := seedUser(t, db, companyID, "sam")
	approverID := seedUser(t, db, companyID, "mia")
	expense := seedPendingExpense(t, db, companyID, submitterID, "exp-cas-1")

	steps := repository.NewStepRepository(db, zap.NewNop())
	step := &entity.ApprovalStep{
		PublicID:   "step-cas-1",
		ExpenseID:  expense.ID,
		ApproverID: approverID,
		Order:      0,
		Status:     entity.StepPending,
	}
	require.NoError(t, steps.Create(context.Background(), step))

	start := make(chan struct{})
	results := make(chan error, 2)
	for _, decision := range []entity.StepStatus{entity.StepApproved, entity.StepRejected} {
		decision := decision
		go func() {
			<-start
			results <- steps.Decide(context.Background(), step.ID, decision, "", time.Now())
		}()
	}
	close(start)

	var succeeded, conflicted int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, approval.ErrAlreadyDecided):
			conflicted++
		default:
			t.Fatalf("unexpected decide error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	stored, err := steps.GetByID(context.Background(), step.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, entity.StepPending, stored.Status)
	require.NotNil(t, stored.DecidedAt)
}

func TestStepRepository_DecideTwiceKeepsFirstDecision(t *testing.T) {
	db := newTestDB(t)
	companyID := seedCompany(t, db)
	submitterID := seedUser(t, db, companyID, "sam")
	approverID := seedUser(t, db, companyID, "mia")
	expense := seedPendingExpense(t, db, companyID, submitterID, "exp-cas-2")

	steps := repository.NewStepRepository(db, zap.NewNop())
	step := &entity.ApprovalStep{
		PublicID:   "step-cas-2",
		ExpenseID:  expense.ID,
		ApproverID: approverID,
		Order:      0,
		Status:     entity.StepPending,
	}
	require.NoError(t, steps.Create(context.Background(), step))

	require.NoError(t, steps.Decide(context.Background(), step.ID, entity.StepApproved, "looks good", time.Now()))

	err := steps.Decide(context.Background(), step.ID, entity.StepRejected, "changed my mind", time.Now())
	assert.ErrorIs(t, err, approval.ErrAlreadyDecided)

	stored, err := steps.GetByID(context.Background(), step.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StepApproved, stored.Status)
	assert.Equal(t, "looks good", stored.Comment)
}

func TestExpenseRepository_FinalizeOnlyOnce(t *testing.T) {
	db := newTestDB(t)
	companyID := seedCompany(t, db)
	submitterID := seedUser(t, db, companyID, "sam")
	expense := seedPendingExpense(t, db, companyID, submitterID, "exp-final-1")

	expenses := repository.NewExpenseRepository(db, zap.NewNop())

	require.NoError(t, expenses.Finalize(context.Background(), expense.ID, entity.ExpenseApproved, "all approvals completed", time.Now()))

	err := expenses.Finalize(context.Background(), expense.ID, entity.ExpenseRejected, "rejected late", time.Now())
	assert.ErrorIs(t, err, approval.ErrExpenseFinalized)

	stored, err := expenses.GetByID(context.Background(), expense.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ExpenseApproved, stored.Status)
	assert.Equal(t, "all approvals completed", stored.StatusReason)
}

// Interleaved activations of two different sequences must never leave the
// company with more than one active definition.
func TestPolicyRepository_ActivateSequenceKeepsSingleActive(t *testing.T) {
	db := newTestDB(t)
	companyID := seedCompany(t, db)

	policies := repository.NewPolicyRepository(db, zap.NewNop())
	first := &entity.ApprovalSequence{CompanyID: companyID, Name: "v1"}
	second := &entity.ApprovalSequence{CompanyID: companyID, Name: "v2"}
	require.NoError(t, policies.CreateSequence(context.Background(), first))
	require.NoError(t, policies.CreateSequence(context.Background(), second))

	var wg sync.WaitGroup
	activateErrs := make(chan error, 50)
	for _, id := range []int64{first.ID, second.ID} {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if err := policies.ActivateSequence(context.Background(), companyID, id); err != nil {
					activateErrs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(activateErrs)
	for err := range activateErrs {
		t.Fatalf("unexpected activate error: %v", err)
	}

	var active int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM approval_sequences WHERE company_id = ? AND active = TRUE`,
		companyID).Scan(&active))
	assert.Equal(t, 1, active)

	require.NoError(t, policies.ActivateSequence(context.Background(), companyID, second.ID))
	current, err := policies.ActiveSequence(context.Background(), companyID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)
}

// Concurrent rule creation must assign every rule its own position.
func TestPolicyRepository_CreateRuleAssignsDistinctPositions(t *testing.T) {
	db := newTestDB(t)
	companyID := seedCompany(t, db)

	policies := repository.NewPolicyRepository(db, zap.NewNop())

	const workers = 2
	const rulesPerWorker = 5
	var wg sync.WaitGroup
	createErrs := make(chan error, workers*rulesPerWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rulesPerWorker; i++ {
				rule := &entity.ApprovalRule{
					CompanyID: companyID,
					Kind:      entity.RulePercentage,
					Threshold: 0.5,
					Active:    true,
				}
				if err := policies.CreateRule(context.Background(), rule); err != nil {
					createErrs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(createErrs)
	for err := range createErrs {
		t.Fatalf("unexpected create error: %v", err)
	}

	rules, err := policies.ListRules(context.Background(), companyID)
	require.NoError(t, err)
	require.Len(t, rules, workers*rulesPerWorker)
	for i, rule := range rules {
		assert.Equal(t, i, rule.Position)
	}
}
