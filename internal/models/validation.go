// file: internal/models/validation.go
package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. Struct tag validation covers
// the simple shape checks; criteria get an extra semantic pass because the
// closed type set and the category scoping rule cannot be expressed as tags.
var validate = validator.New()

// ValidateCriteria checks that a stored criteria object is evaluable.
// Catalog rows failing this check are skipped by the evaluation loops (the
// same no-op treatment as an unknown criterion type), never fatal.
func ValidateCriteria(c Criteria) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid criteria: %w", err)
	}
	if !c.Type.IsKnown() {
		return fmt.Errorf("unknown criterion type %q", c.Type)
	}
	switch c.Type {
	case CriterionSaveAmount, CriterionReduceExpenses:
		if c.CategoryID == nil {
			return fmt.Errorf("criterion %q requires category_id", c.Type)
		}
	}
	return nil
}

// ValidateAchievement checks an achievement catalog row before evaluation.
func ValidateAchievement(a *Achievement) error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("invalid achievement %d: %w", a.ID, err)
	}
	return ValidateCriteria(a.Criteria)
}

// ValidateChallenge checks a challenge catalog row before evaluation.
func ValidateChallenge(c *Challenge) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid challenge %d: %w", c.ID, err)
	}
	return ValidateCriteria(c.Criteria)
}

// ValidateNotification checks an outgoing notification record.
func ValidateNotification(n *Notification) error {
	if err := validate.Struct(n); err != nil {
		return fmt.Errorf("invalid notification: %w", err)
	}
	return nil
}
