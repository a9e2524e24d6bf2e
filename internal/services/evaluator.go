package services

import (
	"math"

	"github.com/shopspring/decimal"

	"economix/internal/models"
)

// ===============================
// CRITERION EVALUATORS
// ===============================

// evaluatorFunc computes the next progress for one criterion against a
// snapshot. Evaluators are pure: they read the snapshot and the prior
// progress and return the next progress without touching storage.
type evaluatorFunc func(criteria models.Criteria, snapshot *models.FinancialSnapshot, prior models.Progress) models.Progress

// evaluators is the closed dispatch table keyed by criterion type.
var evaluators = map[models.CriterionType]evaluatorFunc{
	models.CriterionTransactionCount: evaluateTransactionCount,
	models.CriterionSavingsAmount:    evaluateSavingsAmount,
	models.CriterionDebtReduction:    evaluateDebtReduction,
	models.CriterionGoalCompletion:   evaluateGoalCompletion,
	models.CriterionExpenseReduction: evaluateExpenseReduction,
	models.CriterionSaveAmount:       evaluateSaveAmount,
	models.CriterionReduceExpenses:   evaluateReduceExpenses,
}

// EvaluateCriteria dispatches a criterion to its evaluator. The second
// return is false for unknown types, which callers treat as a logged no-op.
func EvaluateCriteria(criteria models.Criteria, snapshot *models.FinancialSnapshot, prior models.Progress) (models.Progress, bool) {
	evaluate, ok := evaluators[criteria.Type]
	if !ok {
		return prior, false
	}
	return evaluate(criteria, snapshot, prior), true
}

// evaluateTransactionCount counts the transactions inside the snapshot
// window.
func evaluateTransactionCount(criteria models.Criteria, snapshot *models.FinancialSnapshot, prior models.Progress) models.Progress {
	current := float64(len(snapshot.Transactions))
	return prior.WithValues(current, criteria.Target, current >= criteria.Target)
}

// evaluateSavingsAmount sums the balances of savings accounts.
func evaluateSavingsAmount(criteria models.Criteria, snapshot *models.FinancialSnapshot, prior models.Progress) models.Progress {
	total := decimal.Zero
	for _, account := range snapshot.Accounts {
		if account.AccountType == models.AccountTypeSavings {
			total = total.Add(account.Balance)
		}
	}
	current := total.InexactFloat64()
	return prior.WithValues(current, criteria.Target, current >= criteria.Target)
}

// evaluateDebtReduction computes the percentage of original debt paid off
// across all debts. A user with no debt history scores 0, not 100.
func evaluateDebtReduction(criteria models.Criteria, snapshot *models.FinancialSnapshot, prior models.Progress) models.Progress {
	original := decimal.Zero
	remaining := decimal.Zero
	for _, debt := range snapshot.Debts {
		original = original.Add(debt.OriginalAmount)
		remaining = remaining.Add(debt.CurrentBalance)
	}

	var current float64
	if !original.IsZero() {
		paid := original.Sub(remaining).InexactFloat64()
		current = math.Round(paid / original.InexactFloat64() * 100)
	}
	return prior.WithValues(current, criteria.Target, current >= criteria.Target)
}

// evaluateGoalCompletion counts completed savings goals.
func evaluateGoalCompletion(criteria models.Criteria, snapshot *models.FinancialSnapshot, prior models.Progress) models.Progress {
	var completed int
	for _, goal := range snapshot.Goals {
		if goal.Completed {
			completed++
		}
	}
	current := float64(completed)
	return prior.WithValues(current, criteria.Target, current >= criteria.Target)
}

// evaluateExpenseReduction compares the two most recent monthly buckets.
// With fewer than two buckets, or a prior month without expenses, there is
// no baseline to compare against and progress is left unchanged.
func evaluateExpenseReduction(criteria models.Criteria, snapshot *models.FinancialSnapshot, prior models.Progress) models.Progress {
	if len(snapshot.MonthlySummaries) < 2 {
		return prior
	}
	currMonth := snapshot.MonthlySummaries[0]
	prevMonth := snapshot.MonthlySummaries[1]
	if !prevMonth.TotalExpenses.IsPositive() {
		return prior
	}

	prevExpenses := prevMonth.TotalExpenses.InexactFloat64()
	currExpenses := currMonth.TotalExpenses.InexactFloat64()
	current := math.Round((prevExpenses - currExpenses) / prevExpenses * 100)
	if current < 0 {
		current = 0
	}
	return prior.WithValues(current, criteria.Target, current >= criteria.Target)
}

// evaluateSaveAmount sums the income recorded under the challenge's
// category.
func evaluateSaveAmount(criteria models.Criteria, snapshot *models.FinancialSnapshot, prior models.Progress) models.Progress {
	current := sumCategoryAmount(snapshot.Transactions, criteria.CategoryID, models.TransactionTypeIncome)
	return prior.WithValues(current, criteria.Target, current >= criteria.Target)
}

// evaluateReduceExpenses sums the expenses recorded under the challenge's
// category. Completion is inverted: staying at or under the target wins.
func evaluateReduceExpenses(criteria models.Criteria, snapshot *models.FinancialSnapshot, prior models.Progress) models.Progress {
	current := sumCategoryAmount(snapshot.Transactions, criteria.CategoryID, models.TransactionTypeExpense)
	return prior.WithValues(current, criteria.Target, current <= criteria.Target)
}

// sumCategoryAmount totals the windowed transactions of one type scoped to
// a category.
func sumCategoryAmount(transactions []*models.Transaction, categoryID *int64, txType string) float64 {
	if categoryID == nil {
		return 0
	}
	total := decimal.Zero
	for _, tx := range transactions {
		if tx.Type != txType || tx.CategoryID == nil || *tx.CategoryID != *categoryID {
			continue
		}
		total = total.Add(tx.Amount)
	}
	return total.InexactFloat64()
}
