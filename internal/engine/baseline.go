package engine

import (
	"sort"

	"activation-analytics/internal/models"
)

// Baseline holds the prior-period reference values for a scored window.
// Totals use the mean of weekly sums while check size uses the median of
// weekly medians; the two aggregation strategies differ intentionally.
type Baseline struct {
	TotalTPV    *float64
	MedianCheck *float64
	Samples     int
}

// baselineFor samples the same calendar alignment from the previous weeks,
// skipping any offset whose shifted window overlaps an activation for the
// location and any offset with no transactions at all.
func (e *Engine) baselineFor(matchKey string, scored Interval) Baseline {
	var totals, medians []float64

	for offset := 1; offset <= e.cfg.BaselineWeeks; offset++ {
		shifted := Interval{
			Start: scored.Start.AddDate(0, 0, -7*offset),
			End:   scored.End.AddDate(0, 0, -7*offset),
		}
		if e.exclusion.OverlapsAnyActivation(matchKey, shifted) {
			continue
		}

		txns := e.transactionsIn(matchKey, shifted)
		if len(txns) == 0 {
			continue
		}
		var sum float64
		amounts := make([]float64, 0, len(txns))
		for _, txn := range txns {
			sum += txn.Amount
			amounts = append(amounts, txn.Amount)
		}
		totals = append(totals, sum)
		medians = append(medians, median(amounts))
	}

	b := Baseline{Samples: len(totals)}
	if len(totals) > 0 {
		b.TotalTPV = ptr(mean(totals))
	}
	if len(medians) > 0 {
		b.MedianCheck = ptr(median(medians))
	}
	return b
}

// lift computes the percentage change of actual versus baseline. A zero
// baseline with nonzero actual maps to the unbounded-growth sentinel; zero
// against zero is 0; an absent baseline yields nil, which is distinct from
// a legitimate 0% lift.
func (e *Engine) lift(actual float64, baseline *float64) *float64 {
	if baseline == nil {
		return nil
	}
	if *baseline > 0 {
		return ptr((actual - *baseline) / *baseline * 100)
	}
	if actual == 0 {
		return ptr(0.0)
	}
	return ptr(e.cfg.ZeroBaselineSentinel)
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func medianAmounts(txns []models.Transaction) float64 {
	amounts := make([]float64, 0, len(txns))
	for _, txn := range txns {
		amounts = append(amounts, txn.Amount)
	}
	return median(amounts)
}

func ptr(v float64) *float64 { return &v }
