// file: internal/models/models.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ===============================
// FINANCIAL DATA (read-only input)
// ===============================

// Account type values as stored by the account collaborator.
const (
	AccountTypeChecking = "corriente"
	AccountTypeSavings  = "ahorro"
)

// Transaction type values as stored by the transaction collaborator.
const (
	TransactionTypeIncome  = "ingreso"
	TransactionTypeExpense = "gasto"
)

// Account represents a user bank account with its derived balance.
type Account struct {
	ID          int64           `json:"id" db:"id"`
	UserID      int64           `json:"user_id" db:"user_id"`
	Name        string          `json:"name" db:"name"`
	AccountType string          `json:"account_type" db:"account_type"`
	Balance     decimal.Decimal `json:"balance" db:"balance"`
	Currency    string          `json:"currency" db:"currency"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Transaction represents a single income or expense movement.
type Transaction struct {
	ID          int64           `json:"id" db:"id"`
	UserID      int64           `json:"user_id" db:"user_id"`
	AccountID   int64           `json:"account_id" db:"account_id"`
	CategoryID  *int64          `json:"category_id,omitempty" db:"category_id"`
	Type        string          `json:"type" db:"type"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description *string         `json:"description,omitempty" db:"description"`
	Date        time.Time       `json:"date" db:"date"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// IsIncome reports whether the transaction adds money.
func (t *Transaction) IsIncome() bool { return t.Type == TransactionTypeIncome }

// IsExpense reports whether the transaction removes money.
func (t *Transaction) IsExpense() bool { return t.Type == TransactionTypeExpense }

// Debt represents an outstanding user debt.
type Debt struct {
	ID             int64           `json:"id" db:"id"`
	UserID         int64           `json:"user_id" db:"user_id"`
	Name           string          `json:"name" db:"name"`
	OriginalAmount decimal.Decimal `json:"original_amount" db:"original_amount"`
	CurrentBalance decimal.Decimal `json:"current_balance" db:"current_balance"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Goal represents a user savings goal.
type Goal struct {
	ID           int64           `json:"id" db:"id"`
	UserID       int64           `json:"user_id" db:"user_id"`
	Name         string          `json:"name" db:"name"`
	TargetAmount decimal.Decimal `json:"target_amount" db:"target_amount"`
	SavedAmount  decimal.Decimal `json:"saved_amount" db:"saved_amount"`
	Completed    bool            `json:"completed" db:"completed"`
	Deadline     *time.Time      `json:"deadline,omitempty" db:"deadline"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// MonthlySummary is one trailing calendar-month bucket of a snapshot.
// Index 0 of FinancialSnapshot.MonthlySummaries is the current month.
type MonthlySummary struct {
	Month         time.Time       `json:"month"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	Transactions  []*Transaction  `json:"transactions"`
}

// FinancialSnapshot is the derived, ephemeral view of a user's financial
// state that criterion evaluators read. It is never persisted.
type FinancialSnapshot struct {
	UserID           int64             `json:"user_id"`
	Accounts         []*Account        `json:"accounts"`
	Transactions     []*Transaction    `json:"transactions"`
	Debts            []*Debt           `json:"debts"`
	Goals            []*Goal           `json:"goals"`
	MonthlySummaries []*MonthlySummary `json:"monthly_summaries"`
	BuiltAt          time.Time         `json:"built_at"`
}

// EmptySnapshot returns the degraded all-empty snapshot used when a
// financial read fails. Evaluation proceeds against it rather than aborting.
func EmptySnapshot(userID int64) *FinancialSnapshot {
	return &FinancialSnapshot{
		UserID:           userID,
		Accounts:         []*Account{},
		Transactions:     []*Transaction{},
		Debts:            []*Debt{},
		Goals:            []*Goal{},
		MonthlySummaries: []*MonthlySummary{},
		BuiltAt:          time.Now(),
	}
}

// ===============================
// GAMIFICATION CATALOG
// ===============================

// Achievement is a global, admin-managed catalog milestone. Immutable from
// the engine's perspective.
type Achievement struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" validate:"required"`
	Description string    `json:"description" db:"description"`
	Criteria    Criteria  `json:"criteria" db:"criteria"`
	BadgeImage  *string   `json:"badge_image,omitempty" db:"badge_image"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Challenge statuses.
const (
	ChallengeStatusPending   = "pending"
	ChallengeStatusActive    = "active"
	ChallengeStatusCompleted = "completed"
	ChallengeStatusFailed    = "failed"
)

// Challenge is a time-boxed, opt-in goal. Only rows with Active true are
// eligible for evaluation.
type Challenge struct {
	ID           int64           `json:"id" db:"id"`
	Name         string          `json:"name" db:"name" validate:"required"`
	Description  string          `json:"description" db:"description"`
	Criteria     Criteria        `json:"criteria" db:"criteria"`
	TargetValue  decimal.Decimal `json:"target_value" db:"target_value"`
	CurrentValue decimal.Decimal `json:"current_value" db:"current_value"`
	StartDate    time.Time       `json:"start_date" db:"start_date"`
	EndDate      time.Time       `json:"end_date" db:"end_date"`
	Status       string          `json:"status" db:"status"`
	Active       bool            `json:"active" db:"active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// ===============================
// PER-USER PROGRESS
// ===============================

// Progress is the persisted per-user-per-item progress record. The wire
// shape is `{"complete": bool, "current"?: num, "target"?: num,
// "expired"?: bool, ...}`. Criterion-specific extra keys written by earlier
// evaluations must survive round-trips, so marshalling keeps unknown fields.
type Progress struct {
	Complete bool
	Current  *float64
	Target   *float64
	Expired  bool

	// Extra holds criterion-specific keys not modelled above.
	Extra map[string]json.RawMessage
}

// progressKnownKeys are the fields Progress models explicitly.
var progressKnownKeys = map[string]struct{}{
	"complete": {}, "current": {}, "target": {}, "expired": {},
}

// MarshalJSON flattens Progress into the stored object shape.
func (p Progress) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 4+len(p.Extra))
	out["complete"] = p.Complete
	if p.Current != nil {
		out["current"] = *p.Current
	}
	if p.Target != nil {
		out["target"] = *p.Target
	}
	if p.Expired {
		out["expired"] = true
	}
	for k, v := range p.Extra {
		if _, known := progressKnownKeys[k]; !known {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores Progress, keeping unrecognized keys in Extra.
func (p *Progress) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Progress{}
	if v, ok := raw["complete"]; ok {
		if err := json.Unmarshal(v, &p.Complete); err != nil {
			return err
		}
	}
	if v, ok := raw["current"]; ok {
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			return err
		}
		p.Current = &f
	}
	if v, ok := raw["target"]; ok {
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			return err
		}
		p.Target = &f
	}
	if v, ok := raw["expired"]; ok {
		if err := json.Unmarshal(v, &p.Expired); err != nil {
			return err
		}
	}
	for k, v := range raw {
		if _, known := progressKnownKeys[k]; known {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[k] = v
	}
	return nil
}

// Value implements driver.Valuer so Progress persists as a JSON column.
func (p Progress) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for the JSON progress column.
func (p *Progress) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		*p = Progress{}
		return nil
	default:
		return fmt.Errorf("unsupported progress column type %T", src)
	}
}

// WithValues returns a copy of p carrying the freshly evaluated triple while
// preserving accumulated extra fields. Complete never reverts to false.
func (p Progress) WithValues(current, target float64, complete bool) Progress {
	next := p
	next.Current = &current
	next.Target = &target
	next.Complete = p.Complete || complete
	return next
}

// UserAchievementProgress is the per (user, achievement) progress row.
// Created lazily on first evaluation; once Complete the row is never
// rewritten.
type UserAchievementProgress struct {
	UserID        int64      `json:"user_id" db:"user_id"`
	AchievementID int64      `json:"achievement_id" db:"achievement_id"`
	Progress      Progress   `json:"progress" db:"progress"`
	AchievedAt    *time.Time `json:"achieved_at,omitempty" db:"achieved_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// UserChallenge is the per (user, challenge) enrollment row, created by the
// join action outside this engine. Evaluation only mutates Progress, Status
// and CompletedAt.
type UserChallenge struct {
	UserID      int64      `json:"user_id" db:"user_id"`
	ChallengeID int64      `json:"challenge_id" db:"challenge_id"`
	StartDate   time.Time  `json:"start_date" db:"start_date"`
	Status      string     `json:"status" db:"status"`
	Progress    Progress   `json:"progress" db:"progress"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	// Challenge is the joined catalog row (criteria, end date). Populated by
	// the enrollment query; never written back.
	Challenge *Challenge `json:"challenge,omitempty" db:"-"`
}

// ===============================
// NOTIFICATIONS
// ===============================

// Notification types emitted by the engine.
const (
	NotificationTypeAchievement = "achievement"
	NotificationTypeChallenge   = "challenge"
)

// NotificationContent is the structured content payload of a completion
// notification.
type NotificationContent struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Value implements driver.Valuer so the content payload persists as JSON.
func (c NotificationContent) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for the JSON content column.
func (c *NotificationContent) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	case nil:
		*c = NotificationContent{}
		return nil
	default:
		return fmt.Errorf("unsupported notification content column type %T", src)
	}
}

// Notification represents a durable completion notification row.
type Notification struct {
	ID        int64               `json:"id" db:"id"`
	UserID    int64               `json:"user_id" db:"user_id" validate:"required"`
	Type      string              `json:"type" db:"type" validate:"required,oneof=achievement challenge"`
	Content   NotificationContent `json:"content" db:"content"`
	IsRead    bool                `json:"is_read" db:"is_read"`
	CreatedAt time.Time           `json:"created_at" db:"created_at"`
}

// IsUnread reports whether the notification has not been read yet.
func (n *Notification) IsUnread() bool { return !n.IsRead }
