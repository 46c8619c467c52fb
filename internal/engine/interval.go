package engine

import "time"

// Interval is a closed time interval [Start, End]. Both endpoints are
// inclusive everywhere in the engine.
type Interval struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether either endpoint is unset.
func (iv Interval) IsZero() bool {
	return iv.Start.IsZero() || iv.End.IsZero()
}

// Valid reports whether the interval is non-empty (Start <= End).
func (iv Interval) Valid() bool {
	return !iv.IsZero() && !iv.Start.After(iv.End)
}

// Contains reports whether t falls inside the interval, endpoints included.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && !t.After(iv.End)
}

// Overlaps reports whether the two closed intervals intersect:
// NOT(iv.End < other.Start OR iv.Start > other.End).
func (iv Interval) Overlaps(other Interval) bool {
	return !(iv.End.Before(other.Start) || iv.Start.After(other.End))
}

// Intersect clamps the interval to other. The second return value is false
// when the intersection is empty.
func (iv Interval) Intersect(other Interval) (Interval, bool) {
	out := iv
	if other.Start.After(out.Start) {
		out.Start = other.Start
	}
	if other.End.Before(out.End) {
		out.End = other.End
	}
	if out.Start.After(out.End) {
		return Interval{}, false
	}
	return out, true
}
