package engine

// BudgetState is the cumulative marketing-budget position of a restaurant
// group, recomputed fresh every run.
type BudgetState struct {
	GroupID         string
	InitialBudget   float64
	CumulativeSpend float64
	Remaining       float64
}

// groupBudget accrues marketing spend over EVERY parsed activation of the
// grouping's restaurant group, not just the grouping being scored, counting
// only activations starting on or after the location's budget cutoff.
// Each activation is scored with its own threshold and its own reward.
// A non-positive initial budget means the group is not budget-tracked and
// the remaining balance short-circuits to 0.
func (e *Engine) groupBudget(g Grouping) BudgetState {
	cutoff := e.cfg.BudgetCutoffFor(g.RestaurantName)

	var spend float64
	for _, act := range e.activations {
		if act.RestaurantGroupID != g.RestaurantGroupID || !act.Parsed() {
			continue
		}
		if act.StartAt.IsZero() || act.StartAt.Before(cutoff) {
			continue
		}
		iv := Interval{Start: act.StartAt, End: act.EndAt}
		if !iv.Valid() {
			continue
		}

		txns := e.transactionsIn(act.MatchKey(), iv)
		if len(txns) == 0 {
			continue
		}
		res := MatchRedemptions(txns, *act.MinimumSpend, e.cfg.RedemptionWindow)
		spend += res.MarketingSpend(*act.RewardAmount)
	}

	state := BudgetState{
		GroupID:         g.RestaurantGroupID,
		InitialBudget:   g.InitialBudget,
		CumulativeSpend: spend,
	}
	if g.InitialBudget > 0 {
		state.Remaining = g.InitialBudget - spend
	}
	return state
}
