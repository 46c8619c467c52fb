package engine

import (
	"sort"
	"strings"
	"time"

	"activation-analytics/internal/models"
)

// Grouping is the set of activations sharing a location and identical
// spend/reward terms. Its member intervals are treated as a union, never a
// single span: OverallStart/OverallEnd exist for display only and must not
// bound transaction queries.
type Grouping struct {
	MatchKey          string
	RestaurantName    string
	LocationName      string
	RestaurantID      string
	RestaurantGroupID string
	MinimumSpend      float64
	RewardAmount      float64
	InitialBudget     float64
	Description       string
	ActivationIDs     []string
	Periods           []Interval
	OverallStart      time.Time
	OverallEnd        time.Time
}

// ActivationIDList returns the comma-joined member activation ids for
// display.
func (g Grouping) ActivationIDList() string {
	return strings.Join(g.ActivationIDs, ", ")
}

// BuildGroupings normalizes the raw activation set into scoring groupings.
// An activation is rejected when its spend threshold or reward is
// unresolved, its interval is unknown, or the interval does not overlap the
// analysis window. Member intervals are retained distinctly; the
// representative description is the shortest text, ties broken
// lexicographically so reruns are deterministic.
func BuildGroupings(activations []models.Activation, analysisWindow Interval) []Grouping {
	type key struct {
		matchKey string
		minSpend float64
		reward   float64
	}

	byKey := make(map[key]*Grouping)
	descriptions := make(map[key][]string)

	for _, act := range activations {
		if !act.Parsed() {
			continue
		}
		iv := Interval{Start: act.StartAt, End: act.EndAt}
		if !iv.Valid() || !iv.Overlaps(analysisWindow) {
			continue
		}

		k := key{act.MatchKey(), *act.MinimumSpend, *act.RewardAmount}
		g, ok := byKey[k]
		if !ok {
			g = &Grouping{
				MatchKey:          k.matchKey,
				RestaurantName:    act.RestaurantName,
				LocationName:      act.LocationName,
				RestaurantID:      act.RestaurantID,
				RestaurantGroupID: act.RestaurantGroupID,
				MinimumSpend:      k.minSpend,
				RewardAmount:      k.reward,
				InitialBudget:     act.InitialBudget,
				OverallStart:      act.StartAt,
				OverallEnd:        act.EndAt,
			}
			byKey[k] = g
		}

		g.ActivationIDs = append(g.ActivationIDs, act.ID)
		g.Periods = append(g.Periods, iv)
		if act.StartAt.Before(g.OverallStart) {
			g.OverallStart = act.StartAt
		}
		if act.EndAt.After(g.OverallEnd) {
			g.OverallEnd = act.EndAt
		}
		descriptions[k] = append(descriptions[k], act.Description)
	}

	groupings := make([]Grouping, 0, len(byKey))
	for k, g := range byKey {
		g.Description = representativeDescription(descriptions[k])
		sort.Strings(g.ActivationIDs)
		sort.Slice(g.Periods, func(i, j int) bool {
			if !g.Periods[i].Start.Equal(g.Periods[j].Start) {
				return g.Periods[i].Start.Before(g.Periods[j].Start)
			}
			return g.Periods[i].End.Before(g.Periods[j].End)
		})
		groupings = append(groupings, *g)
	}

	sort.Slice(groupings, func(i, j int) bool {
		a, b := groupings[i], groupings[j]
		if a.MatchKey != b.MatchKey {
			return a.MatchKey < b.MatchKey
		}
		if a.MinimumSpend != b.MinimumSpend {
			return a.MinimumSpend < b.MinimumSpend
		}
		return a.RewardAmount < b.RewardAmount
	})
	return groupings
}

// representativeDescription picks the shortest distinct description,
// breaking length ties lexicographically.
func representativeDescription(descs []string) string {
	best := ""
	for _, d := range descs {
		if best == "" {
			best = d
			continue
		}
		if len(d) < len(best) || (len(d) == len(best) && d < best) {
			best = d
		}
	}
	return best
}
