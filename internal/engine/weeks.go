package engine

import (
	"sort"
	"strconv"
	"time"
)

// ReportingWeek is a calendar week slice of the analysis window, running
// Monday 00:00:00 through Sunday 23:59:59.
type ReportingWeek struct {
	Number int    // 1-based, oldest first
	Label  string // "Week 1", "Week 2", ...
	Window Interval
}

// LastCompleteWeeks returns the last n complete calendar weeks ending before
// the week containing asOf, oldest first.
func LastCompleteWeeks(asOf time.Time, n int) []ReportingWeek {
	// Monday of the week containing asOf.
	daysSinceMonday := (int(asOf.Weekday()) + 6) % 7
	monday := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location()).
		AddDate(0, 0, -daysSinceMonday)

	weeks := make([]ReportingWeek, 0, n)
	for i := n; i >= 1; i-- {
		start := monday.AddDate(0, 0, -7*i)
		end := start.AddDate(0, 0, 6)
		end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, end.Location())
		weeks = append(weeks, ReportingWeek{
			Window: Interval{Start: start, End: end},
		})
	}
	for i := range weeks {
		weeks[i].Number = i + 1
		weeks[i].Label = "Week " + strconv.Itoa(i+1)
	}
	return weeks
}

// AnalysisWindow spans all the reporting weeks.
func AnalysisWindow(weeks []ReportingWeek) Interval {
	if len(weeks) == 0 {
		return Interval{}
	}
	return Interval{
		Start: weeks[0].Window.Start,
		End:   weeks[len(weeks)-1].Window.End,
	}
}

// dayWindow returns the calendar-day interval containing the instant d.
func dayWindow(d time.Time) Interval {
	return Interval{
		Start: time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location()),
		End:   time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, d.Location()),
	}
}

// activeDays enumerates every calendar day touched by any of the intervals,
// as midnight instants in ascending order.
func activeDays(periods []Interval) []time.Time {
	seen := make(map[time.Time]bool)
	var days []time.Time
	for _, p := range periods {
		if !p.Valid() {
			continue
		}
		cur := time.Date(p.Start.Year(), p.Start.Month(), p.Start.Day(), 0, 0, 0, 0, p.Start.Location())
		last := time.Date(p.End.Year(), p.End.Month(), p.End.Day(), 0, 0, 0, 0, p.End.Location())
		for !cur.After(last) {
			if !seen[cur] {
				seen[cur] = true
				days = append(days, cur)
			}
			cur = cur.AddDate(0, 0, 1)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
