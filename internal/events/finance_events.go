package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types that trigger gamification evaluation.
const (
	EventTransactionCreated = "transaction.created"
	EventGoalUpdated        = "goal.updated"
	EventDebtUpdated        = "debt.updated"
	EventChallengeJoined    = "challenge.joined"
)

// TransactionCreatedEvent is emitted when a user records a transaction.
type TransactionCreatedEvent struct {
	BaseEvent
	TransactionID int64           `json:"transaction_id"`
	AccountID     int64           `json:"account_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	CategoryID    *int64          `json:"category_id,omitempty"`
}

// NewTransactionCreatedEvent creates a transaction created event.
func NewTransactionCreatedEvent(userID, transactionID, accountID int64, txType string, amount decimal.Decimal, categoryID *int64) *TransactionCreatedEvent {
	return &TransactionCreatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventTransactionCreated,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		TransactionID: transactionID,
		AccountID:     accountID,
		Type:          txType,
		Amount:        amount,
		CategoryID:    categoryID,
	}
}

// GoalUpdatedEvent is emitted when a savings goal changes.
type GoalUpdatedEvent struct {
	BaseEvent
	GoalID    int64 `json:"goal_id"`
	Completed bool  `json:"completed"`
}

// NewGoalUpdatedEvent creates a goal updated event.
func NewGoalUpdatedEvent(userID, goalID int64, completed bool) *GoalUpdatedEvent {
	return &GoalUpdatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventGoalUpdated,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		GoalID:    goalID,
		Completed: completed,
	}
}

// DebtUpdatedEvent is emitted when a debt balance changes.
type DebtUpdatedEvent struct {
	BaseEvent
	DebtID        int64           `json:"debt_id"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
}

// NewDebtUpdatedEvent creates a debt updated event.
func NewDebtUpdatedEvent(userID, debtID int64, currentAmount decimal.Decimal) *DebtUpdatedEvent {
	return &DebtUpdatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventDebtUpdated,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		DebtID:        debtID,
		CurrentAmount: currentAmount,
	}
}

// ChallengeJoinedEvent is emitted when a user enrolls in a challenge.
type ChallengeJoinedEvent struct {
	BaseEvent
	ChallengeID int64 `json:"challenge_id"`
}

// NewChallengeJoinedEvent creates a challenge joined event.
func NewChallengeJoinedEvent(userID, challengeID int64) *ChallengeJoinedEvent {
	return &ChallengeJoinedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventChallengeJoined,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		ChallengeID: challengeID,
	}
}

// AchievementUnlockedEvent is emitted after an achievement completes.
type AchievementUnlockedEvent struct {
	BaseEvent
	AchievementID int64  `json:"achievement_id"`
	Name          string `json:"name"`
}

// NewAchievementUnlockedEvent creates an achievement unlocked event.
func NewAchievementUnlockedEvent(userID, achievementID int64, name string) *AchievementUnlockedEvent {
	return &AchievementUnlockedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "achievement.unlocked",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		AchievementID: achievementID,
		Name:          name,
	}
}

// ChallengeCompletedEvent is emitted after a challenge completes.
type ChallengeCompletedEvent struct {
	BaseEvent
	ChallengeID int64  `json:"challenge_id"`
	Name        string `json:"name"`
}

// NewChallengeCompletedEvent creates a challenge completed event.
func NewChallengeCompletedEvent(userID, challengeID int64, name string) *ChallengeCompletedEvent {
	return &ChallengeCompletedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: "challenge.completed",
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		ChallengeID: challengeID,
		Name:        name,
	}
}
