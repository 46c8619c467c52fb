// Package report renders the engine's result tables for humans: CSV exports
// of the weekly and daily tables and a per-location narrative email.
package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"activation-analytics/internal/models"
)

var weeklyHeader = []string{
	"week", "activation_id", "restaurant_name", "location_name", "activation_description",
	"minimum_spend_threshold", "reward_amount", "activation_start", "activation_end",
	"unique_users_count", "unique_users_count_REDEEMED", "total_tpv", "tpv_vs_baseline",
	"median_check_vs_baseline", "marketing_spend", "remaining_group_budget", "new_users_count",
	"returning_users_count", "new_user_percentage", "notes",
}

var weeklyEmailColumns = []string{"emails", "email_match_confidence", "email_match_notes"}

var dailyHeader = []string{
	"date", "day_of_week", "activation_id", "restaurant_name", "location_name",
	"activation_description", "minimum_spend_threshold", "reward_amount", "activation_start",
	"activation_end", "unique_users_count", "unique_users_count_REDEEMED", "total_tpv",
	"tpv_vs_baseline", "median_check_vs_baseline", "marketing_spend", "remaining_group_budget",
	"new_users_count", "returning_users_count", "new_user_percentage", "notes",
}

// WriteWeeklyCSV writes the weekly result table. With no rows it still
// emits the full header so downstream consumers always see a well-formed
// table. withEmails appends the contact-enrichment columns.
func WriteWeeklyCSV(w io.Writer, rows []models.WeeklyRow, withEmails bool) error {
	cw := csv.NewWriter(w)

	header := weeklyHeader
	if withEmails {
		header = append(append([]string{}, weeklyHeader...), weeklyEmailColumns...)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.Week,
			row.ActivationIDs,
			row.RestaurantName,
			row.LocationName,
			row.Description,
			formatFloat(row.MinimumSpend),
			formatFloat(row.RewardAmount),
			row.ActivationStart,
			row.ActivationEnd,
			strconv.Itoa(row.UniqueUsers),
			strconv.Itoa(row.RedeemedUsers),
			formatFloat(row.TotalTPV),
			formatFloatPtr(row.TPVVsBaseline),
			formatFloatPtr(row.MedianCheckVsBaseline),
			formatFloat(row.MarketingSpend),
			formatFloat(row.RemainingGroupBudget),
			strconv.Itoa(row.NewUsers),
			strconv.Itoa(row.ReturningUsers),
			formatFloatPtr(row.NewUserPercentage),
			row.Notes,
		}
		if withEmails {
			record = append(record, row.Emails, row.EmailMatchConfidence, row.EmailMatchNotes)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteDailyCSV writes the daily result table, header included even when
// empty.
func WriteDailyCSV(w io.Writer, rows []models.DailyRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(dailyHeader); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.Date,
			row.DayOfWeek,
			row.ActivationIDs,
			row.RestaurantName,
			row.LocationName,
			row.Description,
			formatFloat(row.MinimumSpend),
			formatFloat(row.RewardAmount),
			row.ActivationStart,
			row.ActivationEnd,
			strconv.Itoa(row.UniqueUsers),
			strconv.Itoa(row.RedeemedUsers),
			formatFloat(row.TotalTPV),
			formatFloatPtr(row.TPVVsBaseline),
			formatFloatPtr(row.MedianCheckVsBaseline),
			formatFloat(row.MarketingSpend),
			formatFloat(row.RemainingGroupBudget),
			strconv.Itoa(row.NewUsers),
			strconv.Itoa(row.ReturningUsers),
			formatFloatPtr(row.NewUserPercentage),
			row.Notes,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// formatFloatPtr renders absent values ("no baseline") as empty cells,
// distinct from a legitimate 0.
func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
