package report

import (
	"bytes"
	"strings"
	"testing"

	"activation-analytics/internal/models"
)

func TestRenderEmail(t *testing.T) {
	check := 20.0
	lift := -20.0
	week1 := sampleWeeklyRow()
	week1.Week = "Week 1"
	week1.MedianCheck = &check

	week2 := sampleWeeklyRow()
	week2.MedianCheck = &check
	week2.MedianCheckVsBaseline = &lift

	var buf bytes.Buffer
	if err := RenderEmail(&buf, []models.WeeklyRow{week2, week1}); err != nil {
		t.Fatalf("RenderEmail: %v", err)
	}
	body := buf.String()

	for _, want := range []string{
		"<b>Pasta Palace</b> <b>Downtown</b>",
		"past two weeks",
		"<b>Week 1 (Two weeks ago):</b>",
		"<b>Week 2 (Last week):</b>",
		"Tuesday, 6:00 PM to Tuesday, 10:00 PM",
		"1 customers hit the $25.00 minimum and earned $10.00 each",
		"$40.00 processed",
		"-20.0% compared to the average",
		"Remaining Group Budget*:</b> $480.00",
		"1 new customers (+50.0%) and 1 returning customers",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("email body missing %q", want)
		}
	}
}

func TestRenderEmail_EmptyRows(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderEmail(&buf, nil); err == nil {
		t.Fatal("expected an error for empty input")
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{1234.5, "$1,234.50"},
		{1000000, "$1,000,000.00"},
		{-480, "-$480.00"},
	}
	for _, tt := range tests {
		if got := formatMoney(tt.in); got != tt.want {
			t.Errorf("formatMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := formatMoney((*float64)(nil)); got != "N/A" {
		t.Errorf("formatMoney(nil) = %q, want N/A", got)
	}
}

func TestFormatPercent(t *testing.T) {
	up := 12.345
	down := -3.2
	if got := formatPercent(&up); got != "+12.3%" {
		t.Errorf("formatPercent(12.345) = %q", got)
	}
	if got := formatPercent(&down); got != "-3.2%" {
		t.Errorf("formatPercent(-3.2) = %q", got)
	}
	if got := formatPercent(nil); got != "N/A" {
		t.Errorf("formatPercent(nil) = %q", got)
	}
}

func TestFormatDayTime(t *testing.T) {
	if got := formatDayTime("2025-10-07 18:00:00"); got != "Tuesday, 6:00 PM" {
		t.Errorf("formatDayTime = %q", got)
	}
	if got := formatDayTime("not a timestamp"); got != "not a timestamp" {
		t.Errorf("unparseable input changed: %q", got)
	}
}
