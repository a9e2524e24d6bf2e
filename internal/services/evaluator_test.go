package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"economix/internal/models"
)

func testSnapshot(userID int64) *models.FinancialSnapshot {
	snapshot := models.EmptySnapshot(userID)
	return snapshot
}

func expenseTx(categoryID int64, amount float64) *models.Transaction {
	return &models.Transaction{
		Type:       models.TransactionTypeExpense,
		Amount:     decimal.NewFromFloat(amount),
		CategoryID: &categoryID,
		Date:       time.Now(),
	}
}

func incomeTx(categoryID int64, amount float64) *models.Transaction {
	return &models.Transaction{
		Type:       models.TransactionTypeIncome,
		Amount:     decimal.NewFromFloat(amount),
		CategoryID: &categoryID,
		Date:       time.Now(),
	}
}

func TestEvaluateTransactionCount(t *testing.T) {
	criteria := models.Criteria{Type: models.CriterionTransactionCount, Target: 10}

	t.Run("below target", func(t *testing.T) {
		snapshot := testSnapshot(1)
		for i := 0; i < 7; i++ {
			snapshot.Transactions = append(snapshot.Transactions, incomeTx(1, 10))
		}

		next, handled := EvaluateCriteria(criteria, snapshot, models.Progress{})
		require.True(t, handled)
		require.NotNil(t, next.Current)
		assert.Equal(t, 7.0, *next.Current)
		assert.Equal(t, 10.0, *next.Target)
		assert.False(t, next.Complete)
	})

	t.Run("at target", func(t *testing.T) {
		snapshot := testSnapshot(1)
		for i := 0; i < 10; i++ {
			snapshot.Transactions = append(snapshot.Transactions, incomeTx(1, 10))
		}

		next, handled := EvaluateCriteria(criteria, snapshot, models.Progress{})
		require.True(t, handled)
		assert.True(t, next.Complete)
		assert.Equal(t, 10.0, *next.Current)
	})
}

func TestEvaluateSavingsAmount(t *testing.T) {
	snapshot := testSnapshot(1)
	snapshot.Accounts = []*models.Account{
		{AccountType: models.AccountTypeSavings, Balance: decimal.NewFromInt(300)},
		{AccountType: models.AccountTypeChecking, Balance: decimal.NewFromInt(500)},
		{AccountType: models.AccountTypeSavings, Balance: decimal.NewFromInt(250)},
	}
	criteria := models.Criteria{Type: models.CriterionSavingsAmount, Target: 500}

	next, handled := EvaluateCriteria(criteria, snapshot, models.Progress{})
	require.True(t, handled)
	assert.Equal(t, 550.0, *next.Current)
	assert.True(t, next.Complete)
}

func TestEvaluateDebtReduction(t *testing.T) {
	criteria := models.Criteria{Type: models.CriterionDebtReduction, Target: 50}

	t.Run("percentage paid off", func(t *testing.T) {
		snapshot := testSnapshot(1)
		snapshot.Debts = []*models.Debt{
			{OriginalAmount: decimal.NewFromInt(1000), CurrentBalance: decimal.NewFromInt(400)},
		}

		next, handled := EvaluateCriteria(criteria, snapshot, models.Progress{})
		require.True(t, handled)
		assert.Equal(t, 60.0, *next.Current)
		assert.True(t, next.Complete)
	})

	t.Run("no debt history scores zero", func(t *testing.T) {
		snapshot := testSnapshot(1)

		next, handled := EvaluateCriteria(criteria, snapshot, models.Progress{})
		require.True(t, handled)
		assert.Equal(t, 0.0, *next.Current)
		assert.False(t, next.Complete)
	})

	t.Run("rounds the percentage", func(t *testing.T) {
		snapshot := testSnapshot(1)
		snapshot.Debts = []*models.Debt{
			{OriginalAmount: decimal.NewFromInt(3), CurrentBalance: decimal.NewFromInt(2)},
		}

		next, _ := EvaluateCriteria(criteria, snapshot, models.Progress{})
		assert.Equal(t, 33.0, *next.Current)
	})
}

func TestEvaluateGoalCompletion(t *testing.T) {
	snapshot := testSnapshot(1)
	snapshot.Goals = []*models.Goal{
		{Completed: true},
		{Completed: false},
		{Completed: true},
	}
	criteria := models.Criteria{Type: models.CriterionGoalCompletion, Target: 2}

	next, handled := EvaluateCriteria(criteria, snapshot, models.Progress{})
	require.True(t, handled)
	assert.Equal(t, 2.0, *next.Current)
	assert.True(t, next.Complete)
}

func TestEvaluateExpenseReduction(t *testing.T) {
	criteria := models.Criteria{Type: models.CriterionExpenseReduction, Target: 20}
	now := time.Now()

	buckets := func(current, previous float64) []*models.MonthlySummary {
		return []*models.MonthlySummary{
			{Month: now, TotalExpenses: decimal.NewFromFloat(current)},
			{Month: now.AddDate(0, -1, 0), TotalExpenses: decimal.NewFromFloat(previous)},
		}
	}

	t.Run("reduction reaches target", func(t *testing.T) {
		snapshot := testSnapshot(1)
		snapshot.MonthlySummaries = buckets(80, 100)

		next, handled := EvaluateCriteria(criteria, snapshot, models.Progress{})
		require.True(t, handled)
		assert.Equal(t, 20.0, *next.Current)
		assert.True(t, next.Complete)
	})

	t.Run("spending increase clamps to zero", func(t *testing.T) {
		snapshot := testSnapshot(1)
		snapshot.MonthlySummaries = buckets(120, 100)

		next, _ := EvaluateCriteria(criteria, snapshot, models.Progress{})
		assert.Equal(t, 0.0, *next.Current)
		assert.False(t, next.Complete)
	})

	t.Run("quiet current month counts as full reduction", func(t *testing.T) {
		snapshot := testSnapshot(1)
		snapshot.MonthlySummaries = buckets(0, 200)

		next, _ := EvaluateCriteria(criteria, snapshot, models.Progress{})
		assert.Equal(t, 100.0, *next.Current)
		assert.True(t, next.Complete)
	})

	t.Run("single bucket leaves progress unchanged", func(t *testing.T) {
		snapshot := testSnapshot(1)
		snapshot.MonthlySummaries = []*models.MonthlySummary{
			{Month: now, TotalExpenses: decimal.NewFromInt(80)},
		}

		next, handled := EvaluateCriteria(criteria, snapshot, models.Progress{})
		require.True(t, handled)
		assert.Nil(t, next.Current)
		assert.False(t, next.Complete)
	})

	t.Run("zero previous expenses leaves progress unchanged", func(t *testing.T) {
		snapshot := testSnapshot(1)
		snapshot.MonthlySummaries = buckets(80, 0)

		prior := models.Progress{}
		next, _ := EvaluateCriteria(criteria, snapshot, prior)
		assert.Equal(t, prior, next)
	})
}

func TestEvaluateSaveAmount(t *testing.T) {
	categoryID := int64(5)
	snapshot := testSnapshot(1)
	snapshot.Transactions = []*models.Transaction{
		incomeTx(categoryID, 100),
		incomeTx(categoryID, 50),
		incomeTx(9, 400),        // other category
		expenseTx(categoryID, 30), // wrong type
	}
	criteria := models.Criteria{Type: models.CriterionSaveAmount, Target: 150, CategoryID: &categoryID}

	next, handled := EvaluateCriteria(criteria, snapshot, models.Progress{})
	require.True(t, handled)
	assert.Equal(t, 150.0, *next.Current)
	assert.True(t, next.Complete)
}

func TestEvaluateReduceExpenses(t *testing.T) {
	categoryID := int64(5)
	criteria := models.Criteria{Type: models.CriterionReduceExpenses, Target: 100, CategoryID: &categoryID}

	t.Run("under target is complete", func(t *testing.T) {
		snapshot := testSnapshot(1)
		snapshot.Transactions = []*models.Transaction{
			expenseTx(categoryID, 40),
			expenseTx(categoryID, 40),
			incomeTx(categoryID, 500), // ignored
		}

		next, handled := EvaluateCriteria(criteria, snapshot, models.Progress{})
		require.True(t, handled)
		assert.Equal(t, 80.0, *next.Current)
		assert.True(t, next.Complete)
	})

	t.Run("over target is incomplete", func(t *testing.T) {
		snapshot := testSnapshot(1)
		snapshot.Transactions = []*models.Transaction{
			expenseTx(categoryID, 120),
		}

		next, _ := EvaluateCriteria(criteria, snapshot, models.Progress{})
		assert.Equal(t, 120.0, *next.Current)
		assert.False(t, next.Complete)
	})
}

func TestEvaluateUnknownCriterion(t *testing.T) {
	prior := models.Progress{Complete: false}
	next, handled := EvaluateCriteria(models.Criteria{Type: "mystery", Target: 1}, testSnapshot(1), prior)
	assert.False(t, handled)
	assert.Equal(t, prior, next)
}

func TestProgressCompleteIsMonotonic(t *testing.T) {
	criteria := models.Criteria{Type: models.CriterionTransactionCount, Target: 5}
	snapshot := testSnapshot(1)
	snapshot.Transactions = append(snapshot.Transactions, incomeTx(1, 10))

	prior := models.Progress{Complete: true}
	next, handled := EvaluateCriteria(criteria, snapshot, prior)
	require.True(t, handled)
	assert.True(t, next.Complete, "complete must never revert")
	assert.Equal(t, 1.0, *next.Current)
}
