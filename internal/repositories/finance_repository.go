package repositories

import (
	"context"
	"fmt"
	"time"

	"economix/internal/database"
	"economix/internal/models"

	"go.uber.org/zap"
)

// financeRepository implements FinanceRepository over the shared postgres
// schema. Read-only by contract.
type financeRepository struct {
	*BaseRepository
}

// NewFinanceRepository creates a new finance repository.
func NewFinanceRepository(db *database.Manager, logger *zap.Logger) FinanceRepository {
	return &financeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// GetAccountsByUserID returns all accounts owned by the user.
func (r *financeRepository) GetAccountsByUserID(ctx context.Context, userID int64) ([]*models.Account, error) {
	query := `
		SELECT id, user_id, name, account_type, balance, currency, created_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at ASC`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account := &models.Account{}
		if err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.Name,
			&account.AccountType,
			&account.Balance,
			&account.Currency,
			&account.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// GetRecentTransactions returns transactions with date >= since, newest
// first.
func (r *financeRepository) GetRecentTransactions(ctx context.Context, userID int64, since time.Time) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, account_id, category_id, type, amount, description, date, created_at
		FROM transactions
		WHERE user_id = $1 AND date >= $2
		ORDER BY date DESC, id DESC`

	rows, err := r.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		tx := &models.Transaction{}
		if err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.AccountID,
			&tx.CategoryID,
			&tx.Type,
			&tx.Amount,
			&tx.Description,
			&tx.Date,
			&tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

// GetDebtsByUserID returns all debts owned by the user.
func (r *financeRepository) GetDebtsByUserID(ctx context.Context, userID int64) ([]*models.Debt, error) {
	query := `
		SELECT id, user_id, name, original_amount, current_balance, created_at
		FROM debts
		WHERE user_id = $1
		ORDER BY created_at ASC`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get debts: %w", err)
	}
	defer rows.Close()

	var debts []*models.Debt
	for rows.Next() {
		debt := &models.Debt{}
		if err := rows.Scan(
			&debt.ID,
			&debt.UserID,
			&debt.Name,
			&debt.OriginalAmount,
			&debt.CurrentBalance,
			&debt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, debt)
	}

	return debts, rows.Err()
}

// GetGoalsByUserID returns all savings goals owned by the user.
func (r *financeRepository) GetGoalsByUserID(ctx context.Context, userID int64) ([]*models.Goal, error) {
	query := `
		SELECT id, user_id, name, target_amount, saved_amount, completed, deadline, created_at
		FROM goals
		WHERE user_id = $1
		ORDER BY created_at ASC`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get goals: %w", err)
	}
	defer rows.Close()

	var goals []*models.Goal
	for rows.Next() {
		goal := &models.Goal{}
		if err := rows.Scan(
			&goal.ID,
			&goal.UserID,
			&goal.Name,
			&goal.TargetAmount,
			&goal.SavedAmount,
			&goal.Completed,
			&goal.Deadline,
			&goal.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, goal)
	}

	return goals, rows.Err()
}
