// file: internal/models/criteria.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CriterionType identifies one kind of completion rule. The set is closed:
// evaluation dispatches through a lookup table keyed by this type, and an
// unrecognized value is a logged no-op rather than an error.
type CriterionType string

const (
	// Achievement criteria.
	CriterionTransactionCount CriterionType = "transaction_count"
	CriterionSavingsAmount    CriterionType = "savings_amount"
	CriterionDebtReduction    CriterionType = "debt_reduction"
	CriterionGoalCompletion   CriterionType = "goal_completion"
	CriterionExpenseReduction CriterionType = "expense_reduction"

	// Challenge-specific criteria.
	CriterionSaveAmount     CriterionType = "save_amount"
	CriterionReduceExpenses CriterionType = "reduce_expenses"
)

// knownCriterionTypes is the closed set accepted by validation.
var knownCriterionTypes = map[CriterionType]struct{}{
	CriterionTransactionCount: {},
	CriterionSavingsAmount:    {},
	CriterionDebtReduction:    {},
	CriterionGoalCompletion:   {},
	CriterionExpenseReduction: {},
	CriterionSaveAmount:       {},
	CriterionReduceExpenses:   {},
}

// IsKnown reports whether t is one of the closed criterion kinds.
func (t CriterionType) IsKnown() bool {
	_, ok := knownCriterionTypes[t]
	return ok
}

// Criteria is the typed rule stored on an achievement or challenge row:
// `{"type": ..., "target": ..., "category_id"?: ...}`. CategoryID only
// applies to the category-scoped challenge kinds (save_amount,
// reduce_expenses).
type Criteria struct {
	Type       CriterionType `json:"type" validate:"required"`
	Target     float64       `json:"target" validate:"gt=0"`
	CategoryID *int64        `json:"category_id,omitempty"`
}

// Value implements driver.Valuer so Criteria persists as a JSON column.
func (c Criteria) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for the JSON criteria column.
func (c *Criteria) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	case nil:
		*c = Criteria{}
		return nil
	default:
		return fmt.Errorf("unsupported criteria column type %T", src)
	}
}
