package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"economix/internal/config"
	"economix/internal/models"
	"economix/internal/repositories"
)

// ===============================
// SNAPSHOT SERVICE
// ===============================

// snapshotService builds ephemeral financial snapshots from the read-only
// financial tables. Snapshots are computed per evaluation run and never
// persisted.
type snapshotService struct {
	finance repositories.FinanceRepository
	cfg     *config.EngineConfig
	logger  *zap.Logger
}

// NewSnapshotService creates the snapshot builder.
func NewSnapshotService(finance repositories.FinanceRepository, cfg *config.EngineConfig, logger *zap.Logger) SnapshotService {
	return &snapshotService{
		finance: finance,
		cfg:     cfg,
		logger:  logger,
	}
}

// BuildSnapshot assembles the snapshot for one user. Any read failure
// degrades the whole build to the empty snapshot so evaluation can proceed
// without partial data.
func (s *snapshotService) BuildSnapshot(ctx context.Context, userID int64) *models.FinancialSnapshot {
	now := time.Now()
	since := now.Add(-s.cfg.SnapshotWindow)

	accounts, err := s.finance.GetAccountsByUserID(ctx, userID)
	if err != nil {
		return s.degrade(userID, "accounts", err)
	}

	transactions, err := s.finance.GetRecentTransactions(ctx, userID, since)
	if err != nil {
		return s.degrade(userID, "transactions", err)
	}

	debts, err := s.finance.GetDebtsByUserID(ctx, userID)
	if err != nil {
		return s.degrade(userID, "debts", err)
	}

	goals, err := s.finance.GetGoalsByUserID(ctx, userID)
	if err != nil {
		return s.degrade(userID, "goals", err)
	}

	return &models.FinancialSnapshot{
		UserID:           userID,
		Accounts:         accounts,
		Transactions:     transactions,
		Debts:            debts,
		Goals:            goals,
		MonthlySummaries: s.buildMonthlySummaries(transactions, now),
		BuiltAt:          now,
	}
}

// degrade logs the failed read and returns the empty snapshot.
func (s *snapshotService) degrade(userID int64, source string, err error) *models.FinancialSnapshot {
	s.logger.Warn("financial read failed, using empty snapshot",
		zap.Int64("user_id", userID),
		zap.String("source", source),
		zap.Error(err))
	return models.EmptySnapshot(userID)
}

// buildMonthlySummaries buckets the windowed transactions into trailing
// calendar months, most recent first. The current month always gets a
// bucket, even without movements, so a quiet month reads as zero spending
// rather than vanishing from the comparison; older months produce a bucket
// only when they have movements, so a brand-new user still ends up with a
// single bucket.
func (s *snapshotService) buildMonthlySummaries(transactions []*models.Transaction, now time.Time) []*models.MonthlySummary {
	months := s.cfg.SummaryMonths
	if months < 1 {
		months = 1
	}
	current := monthStart(now)
	oldest := current.AddDate(0, -(months - 1), 0)

	index := make(map[time.Time]*models.MonthlySummary, months)
	index[current] = &models.MonthlySummary{
		Month:         current,
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		Transactions:  []*models.Transaction{},
	}
	for _, tx := range transactions {
		month := monthStart(tx.Date)
		if month.Before(oldest) {
			continue
		}
		summary, ok := index[month]
		if !ok {
			summary = &models.MonthlySummary{
				Month:         month,
				TotalIncome:   decimal.Zero,
				TotalExpenses: decimal.Zero,
				Transactions:  []*models.Transaction{},
			}
			index[month] = summary
		}
		summary.Transactions = append(summary.Transactions, tx)
		switch {
		case tx.IsIncome():
			summary.TotalIncome = summary.TotalIncome.Add(tx.Amount)
		case tx.IsExpense():
			summary.TotalExpenses = summary.TotalExpenses.Add(tx.Amount)
		}
	}

	summaries := make([]*models.MonthlySummary, 0, len(index))
	for _, summary := range index {
		summaries = append(summaries, summary)
	}
	slices.SortFunc(summaries, func(a, b *models.MonthlySummary) int {
		switch {
		case a.Month.After(b.Month):
			return -1
		case a.Month.Before(b.Month):
			return 1
		default:
			return 0
		}
	})

	// Most recent movement first inside each bucket.
	for _, summary := range summaries {
		slices.SortFunc(summary.Transactions, func(a, b *models.Transaction) int {
			switch {
			case a.Date.After(b.Date):
				return -1
			case a.Date.Before(b.Date):
				return 1
			default:
				return int(b.ID - a.ID)
			}
		})
	}

	return summaries
}

// monthStart truncates a time to the first instant of its calendar month.
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
