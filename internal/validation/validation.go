package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"activation-analytics/internal/models"
)

var (
	uuidRegex  = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateTransaction checks the identity and amount fields. Timestamps are
// deliberately not required here: records with missing or unparseable
// timestamps are accepted at ingest and dropped by the engine at scoring
// time.
func ValidateTransaction(txn models.Transaction) error {
	if err := ValidateUUID(txn.ID, "id"); err != nil {
		return err
	}

	if err := ValidateUUID(txn.UserID, "user_id"); err != nil {
		return err
	}

	if err := requireName(txn.RestaurantName, "restaurant_name"); err != nil {
		return err
	}

	if err := requireName(txn.LocationName, "location_name"); err != nil {
		return err
	}

	if txn.Amount < 0 {
		return &ValidationError{
			Field:   "amount",
			Message: "must be non-negative",
		}
	}

	maxAmount := float64(1_000_000)
	if txn.Amount > maxAmount {
		return &ValidationError{
			Field:   "amount",
			Message: "exceeds maximum allowed amount",
		}
	}

	if !txn.CreatedAt.IsZero() {
		maxFutureTime := time.Now().Add(24 * time.Hour)
		if txn.CreatedAt.After(maxFutureTime) {
			return &ValidationError{
				Field:   "created_at",
				Message: "cannot be more than 24 hours in the future",
			}
		}
	}

	return nil
}

func ValidateActivation(act models.Activation) error {
	if err := ValidateUUID(act.ID, "id"); err != nil {
		return err
	}

	if err := ValidateUUID(act.RestaurantID, "restaurant_id"); err != nil {
		return err
	}

	if err := ValidateUUID(act.RestaurantGroupID, "restaurant_group_id"); err != nil {
		return err
	}

	if err := requireName(act.RestaurantName, "restaurant_name"); err != nil {
		return err
	}

	if err := requireName(act.LocationName, "location_name"); err != nil {
		return err
	}

	if strings.TrimSpace(act.Description) == "" {
		return &ValidationError{
			Field:   "description",
			Message: "is required",
		}
	}

	if !act.StartAt.IsZero() && !act.EndAt.IsZero() && !act.StartAt.Before(act.EndAt) {
		return &ValidationError{
			Field:   "start_at",
			Message: "must be before end_at",
		}
	}

	maxDuration := 365 * 24 * time.Hour
	if !act.StartAt.IsZero() && !act.EndAt.IsZero() && act.EndAt.Sub(act.StartAt) > maxDuration {
		return &ValidationError{
			Field:   "end_at",
			Message: "activation duration cannot exceed 1 year",
		}
	}

	if act.MinimumSpend != nil && *act.MinimumSpend < 0 {
		return &ValidationError{
			Field:   "minimum_spend",
			Message: "must be non-negative",
		}
	}

	if act.RewardAmount != nil && *act.RewardAmount < 0 {
		return &ValidationError{
			Field:   "reward_amount",
			Message: "must be non-negative",
		}
	}

	return nil
}

func ValidateContact(c models.Contact) error {
	if err := requireName(c.RestaurantName, "restaurant_name"); err != nil {
		return err
	}

	email := SanitizeString(c.Email)
	if email == "" {
		return &ValidationError{
			Field:   "email",
			Message: "is required",
		}
	}

	if !emailRegex.MatchString(email) {
		return &ValidationError{
			Field:   "email",
			Message: "must be a valid email address",
		}
	}

	return nil
}

func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

func ValidateUUID(id, fieldName string) error {
	if id == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: "is required",
		}
	}

	id = SanitizeString(id)

	if !uuidRegex.MatchString(strings.ToLower(id)) {
		return &ValidationError{
			Field:   fieldName,
			Message: "must be a valid UUID",
		}
	}

	return nil
}

func requireName(name, fieldName string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: "is required",
		}
	}

	if len(name) > 256 {
		return &ValidationError{
			Field:   fieldName,
			Message: "cannot exceed 256 characters",
		}
	}

	return nil
}
