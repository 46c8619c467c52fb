package engine

import "activation-analytics/internal/models"

// ExclusionIndex holds, per location, every known activation interval
// regardless of offer type. Baseline windows overlapping any of them are
// contaminated and must not contribute samples.
type ExclusionIndex struct {
	periods map[string][]Interval
}

// BuildExclusionIndex collects activation intervals from the FULL activation
// set, not just the scored subset. Activations without a known interval are
// skipped entirely.
func BuildExclusionIndex(activations []models.Activation) *ExclusionIndex {
	periods := make(map[string][]Interval)
	for _, act := range activations {
		iv := Interval{Start: act.StartAt, End: act.EndAt}
		if !iv.Valid() {
			continue
		}
		k := act.MatchKey()
		periods[k] = append(periods[k], iv)
	}
	return &ExclusionIndex{periods: periods}
}

// OverlapsAnyActivation reports whether the window intersects any stored
// activation interval for the location.
func (x *ExclusionIndex) OverlapsAnyActivation(matchKey string, window Interval) bool {
	for _, iv := range x.periods[matchKey] {
		if window.Overlaps(iv) {
			return true
		}
	}
	return false
}
