package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressJSONRoundTrip(t *testing.T) {
	current := 7.0
	target := 10.0
	progress := Progress{Complete: false, Current: &current, Target: &target}

	data, err := json.Marshal(progress)
	require.NoError(t, err)

	var decoded Progress
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, progress, decoded)
}

func TestProgressPreservesUnknownKeys(t *testing.T) {
	raw := []byte(`{"complete": false, "current": 3, "target": 10, "streak_days": 4, "last_category": "comida"}`)

	var progress Progress
	require.NoError(t, json.Unmarshal(raw, &progress))
	require.Contains(t, progress.Extra, "streak_days")
	require.Contains(t, progress.Extra, "last_category")

	// Re-evaluate and make sure the criterion-specific keys survive.
	next := progress.WithValues(5, 10, false)
	data, err := json.Marshal(next)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "streak_days")
	assert.Contains(t, decoded, "last_category")
	assert.Contains(t, decoded, "current")
}

func TestProgressExpiredOmittedWhenFalse(t *testing.T) {
	data, err := json.Marshal(Progress{Complete: true})
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "expired")
	assert.NotContains(t, decoded, "current")
}

func TestProgressScanFromColumn(t *testing.T) {
	var progress Progress
	require.NoError(t, progress.Scan([]byte(`{"complete": true, "expired": true}`)))
	assert.True(t, progress.Complete)
	assert.True(t, progress.Expired)

	var fromNil Progress
	require.NoError(t, fromNil.Scan(nil))
	assert.False(t, fromNil.Complete)
}

func TestWithValuesNeverRevertsComplete(t *testing.T) {
	prior := Progress{Complete: true}
	next := prior.WithValues(1, 10, false)
	assert.True(t, next.Complete)
}

func TestValidateCriteria(t *testing.T) {
	categoryID := int64(5)

	tests := []struct {
		name     string
		criteria Criteria
		wantErr  bool
	}{
		{"valid count criterion", Criteria{Type: CriterionTransactionCount, Target: 10}, false},
		{"valid category criterion", Criteria{Type: CriterionSaveAmount, Target: 100, CategoryID: &categoryID}, false},
		{"unknown type", Criteria{Type: "mystery", Target: 10}, true},
		{"zero target", Criteria{Type: CriterionSavingsAmount, Target: 0}, true},
		{"negative target", Criteria{Type: CriterionSavingsAmount, Target: -5}, true},
		{"missing category", Criteria{Type: CriterionReduceExpenses, Target: 100}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCriteria(tt.criteria)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCriteriaScan(t *testing.T) {
	var criteria Criteria
	require.NoError(t, criteria.Scan([]byte(`{"type": "save_amount", "target": 200, "category_id": 7}`)))
	assert.Equal(t, CriterionSaveAmount, criteria.Type)
	assert.Equal(t, 200.0, criteria.Target)
	require.NotNil(t, criteria.CategoryID)
	assert.Equal(t, int64(7), *criteria.CategoryID)
}

func TestNotificationContentRoundTrip(t *testing.T) {
	content := NotificationContent{ID: 3, Name: "Ahorrador", Message: "mensaje"}

	value, err := content.Value()
	require.NoError(t, err)

	var decoded NotificationContent
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, content, decoded)
}
