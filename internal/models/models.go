package models

import (
	"strings"
	"time"
)

// Transaction represents a single customer payment at a restaurant location.
type Transaction struct {
	ID             string    `json:"id"`              // uuid
	RestaurantName string    `json:"restaurant_name"` // as reported by the payment feed
	LocationName   string    `json:"location_name"`
	UserID         string    `json:"user_id"`    // uuid
	CreatedAt      time.Time `json:"created_at"` // RFC3339 timestamp
	Amount         float64   `json:"amount"`     // dollars, non-negative
}

// MatchKey returns the normalized (restaurant, location) identity used to
// join transactions to activations.
func (t Transaction) MatchKey() string {
	return MatchKey(t.RestaurantName, t.LocationName)
}

// Activation represents one promotional offer instance tied to a location
// and a time interval. MinimumSpend and RewardAmount are nil until the
// free-text description has been resolved; unresolved activations are
// excluded from scoring.
type Activation struct {
	ID                string    `json:"id"`
	RestaurantID      string    `json:"restaurant_id"`
	RestaurantGroupID string    `json:"restaurant_group_id"`
	RestaurantName    string    `json:"restaurant_name"`
	LocationName      string    `json:"location_name"`
	Description       string    `json:"description"`
	StartAt           time.Time `json:"start_at"`
	EndAt             time.Time `json:"end_at"`
	MinimumSpend      *float64  `json:"minimum_spend,omitempty"`
	RewardAmount      *float64  `json:"reward_amount,omitempty"`
	InitialBudget     float64   `json:"group_initial_budget"`
}

// MatchKey returns the normalized (restaurant, location) identity string.
func (a Activation) MatchKey() string {
	return MatchKey(a.RestaurantName, a.LocationName)
}

// Parsed reports whether the spend threshold and reward have both been
// resolved from the description.
func (a Activation) Parsed() bool {
	return a.MinimumSpend != nil && a.RewardAmount != nil
}

// MatchKey builds the normalized join key shared by transactions and
// activations: lowercased, trimmed restaurant and location names separated
// by "||".
func MatchKey(restaurantName, locationName string) string {
	return strings.ToLower(strings.TrimSpace(restaurantName)) + "||" +
		strings.ToLower(strings.TrimSpace(locationName))
}

// Contact is one entry from the contact directory used to enrich weekly
// rows with email addresses.
type Contact struct {
	RestaurantName string `json:"restaurant_name"`
	Email          string `json:"email"`
}

// WeeklyRow is one output row of the Grouping x Week result table.
type WeeklyRow struct {
	Week                  string   `json:"week"`
	ActivationIDs         string   `json:"activation_id"` // comma-joined list
	RestaurantName        string   `json:"restaurant_name"`
	LocationName          string   `json:"location_name"`
	Description           string   `json:"activation_description"`
	MinimumSpend          float64  `json:"minimum_spend_threshold"`
	RewardAmount          float64  `json:"reward_amount"`
	ActivationStart       string   `json:"activation_start"` // display span only
	ActivationEnd         string   `json:"activation_end"`
	UniqueUsers           int      `json:"unique_users_count"`
	RedeemedUsers         int      `json:"unique_users_count_redeemed"`
	TotalTPV              float64  `json:"total_tpv"`
	MedianCheck           *float64 `json:"median_check,omitempty"`
	TPVVsBaseline         *float64 `json:"tpv_vs_baseline,omitempty"`
	MedianCheckVsBaseline *float64 `json:"median_check_vs_baseline,omitempty"`
	MarketingSpend        float64  `json:"marketing_spend"`
	RemainingGroupBudget  float64  `json:"remaining_group_budget"`
	NewUsers              int      `json:"new_users_count"`
	ReturningUsers        int      `json:"returning_users_count"`
	NewUserPercentage     *float64 `json:"new_user_percentage,omitempty"`
	Notes                 string   `json:"notes"`

	// Contact enrichment, populated only when a contact directory is loaded.
	Emails               string `json:"emails,omitempty"`
	EmailMatchConfidence string `json:"email_match_confidence,omitempty"`
	EmailMatchNotes      string `json:"email_match_notes,omitempty"`
}

// DailyRow is one output row of the Grouping x active-day result table.
type DailyRow struct {
	Date                  string   `json:"date"` // YYYY-MM-DD
	DayOfWeek             string   `json:"day_of_week"`
	ActivationIDs         string   `json:"activation_id"`
	RestaurantName        string   `json:"restaurant_name"`
	LocationName          string   `json:"location_name"`
	Description           string   `json:"activation_description"`
	MinimumSpend          float64  `json:"minimum_spend_threshold"`
	RewardAmount          float64  `json:"reward_amount"`
	ActivationStart       string   `json:"activation_start"`
	ActivationEnd         string   `json:"activation_end"`
	UniqueUsers           int      `json:"unique_users_count"`
	RedeemedUsers         int      `json:"unique_users_count_redeemed"`
	TotalTPV              float64  `json:"total_tpv"`
	MedianCheck           *float64 `json:"median_check,omitempty"`
	TPVVsBaseline         *float64 `json:"tpv_vs_baseline,omitempty"`
	MedianCheckVsBaseline *float64 `json:"median_check_vs_baseline,omitempty"`
	MarketingSpend        float64  `json:"marketing_spend"`
	RemainingGroupBudget  float64  `json:"remaining_group_budget"`
	NewUsers              int      `json:"new_users_count"`
	ReturningUsers        int      `json:"returning_users_count"`
	NewUserPercentage     *float64 `json:"new_user_percentage,omitempty"`
	Notes                 string   `json:"notes"`
}

// AnalysisRun summarizes one completed engine invocation.
type AnalysisRun struct {
	ID          string    `json:"id"` // uuid
	AsOf        time.Time `json:"as_of"`
	CreatedAt   time.Time `json:"created_at"`
	WeeklyCount int       `json:"weekly_count"`
	DailyCount  int       `json:"daily_count"`
}

// IngestTransactionsRequest is the request body for transaction ingestion.
type IngestTransactionsRequest struct {
	Transactions []Transaction `json:"transactions"`
}

// IngestActivationsRequest is the request body for activation ingestion.
type IngestActivationsRequest struct {
	Activations []Activation `json:"activations"`
}

// IngestContactsRequest is the request body for contact ingestion.
type IngestContactsRequest struct {
	Contacts []Contact `json:"contacts"`
}

// IngestResponse reports how many records were stored.
type IngestResponse struct {
	Inserted int `json:"inserted"`
}

// RunAnalysisRequest optionally pins the as-of instant the reporting weeks
// are derived from. Zero means "now".
type RunAnalysisRequest struct {
	AsOf time.Time `json:"as_of,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
