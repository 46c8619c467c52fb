package engine

import (
	"sort"
	"time"

	"activation-analytics/internal/models"
)

// ZeroTransactionsNote flags rows whose scope had no transactions at all.
// The row is still emitted with zeroed aggregates rather than omitted.
const ZeroTransactionsNote = "No transactions during activation period"

const displayTimeLayout = "2006-01-02 15:04:05"

// scopeMetrics are the per-scope aggregates shared by weekly and daily rows.
type scopeMetrics struct {
	uniqueUsers    int
	redeemedUsers  int
	totalTPV       float64
	medianCheck    *float64
	marketingSpend float64
	newUsers       int
	returningUsers int
	newUserPct     *float64
	note           string
}

// scoreScope computes the aggregates for one collected transaction scope.
func (e *Engine) scoreScope(g Grouping, scope []models.Transaction) scopeMetrics {
	if len(scope) == 0 {
		return scopeMetrics{note: ZeroTransactionsNote}
	}

	m := scopeMetrics{}

	seen := make(map[string]bool)
	var users []string
	for _, txn := range scope {
		m.totalTPV += txn.Amount
		if !seen[txn.UserID] {
			seen[txn.UserID] = true
			users = append(users, txn.UserID)
		}
	}
	sort.Strings(users)
	m.uniqueUsers = len(users)
	m.medianCheck = ptr(medianAmounts(scope))

	res := MatchRedemptions(scope, g.MinimumSpend, e.cfg.RedemptionWindow)
	m.redeemedUsers = len(res.RedeemedUsers)
	m.marketingSpend = res.MarketingSpend(g.RewardAmount)

	// A user is new iff their first-ever transaction at this location falls
	// inside ANY member interval of the grouping, regardless of which
	// reporting period is being scored. Users absent from the history index
	// default to new.
	for _, user := range users {
		firstSeen, ok := e.history.FirstSeen(g.MatchKey, user)
		if !ok {
			m.newUsers++
			continue
		}
		isNew := false
		for _, p := range g.Periods {
			if p.Contains(firstSeen) {
				isNew = true
				break
			}
		}
		if isNew {
			m.newUsers++
		} else {
			m.returningUsers++
		}
	}

	if m.uniqueUsers > 0 {
		m.newUserPct = ptr(round2(float64(m.newUsers) / float64(m.uniqueUsers) * 100))
	}
	return m
}

// weeklyRow scores one grouping against one reporting week.
func (e *Engine) weeklyRow(g Grouping, wk ReportingWeek, budget BudgetState) models.WeeklyRow {
	scope := e.collectScope(g.MatchKey, g.Periods, wk.Window)
	m := e.scoreScope(g, scope)

	row := models.WeeklyRow{
		Week:                 wk.Label,
		ActivationIDs:        g.ActivationIDList(),
		RestaurantName:       g.RestaurantName,
		LocationName:         g.LocationName,
		Description:          g.Description,
		MinimumSpend:         g.MinimumSpend,
		RewardAmount:         g.RewardAmount,
		ActivationStart:      g.OverallStart.Format(displayTimeLayout),
		ActivationEnd:        g.OverallEnd.Format(displayTimeLayout),
		UniqueUsers:          m.uniqueUsers,
		RedeemedUsers:        m.redeemedUsers,
		TotalTPV:             round2(m.totalTPV),
		MedianCheck:          round2p(m.medianCheck),
		MarketingSpend:       round2(m.marketingSpend),
		RemainingGroupBudget: round2(budget.Remaining),
		NewUsers:             m.newUsers,
		ReturningUsers:       m.returningUsers,
		NewUserPercentage:    m.newUserPct,
		Notes:                m.note,
	}

	if len(scope) > 0 {
		base := e.baselineFor(g.MatchKey, wk.Window)
		row.TPVVsBaseline = round2p(e.lift(m.totalTPV, base.TotalTPV))
		row.MedianCheckVsBaseline = round2p(e.lift(*m.medianCheck, base.MedianCheck))
	}
	return row
}

// dailyRow scores one grouping against one active calendar day, already
// clamped to the analysis window.
func (e *Engine) dailyRow(g Grouping, day time.Time, bound Interval, budget BudgetState) models.DailyRow {
	scope := e.collectScope(g.MatchKey, g.Periods, bound)
	m := e.scoreScope(g, scope)

	row := models.DailyRow{
		Date:                 day.Format("2006-01-02"),
		DayOfWeek:            day.Weekday().String(),
		ActivationIDs:        g.ActivationIDList(),
		RestaurantName:       g.RestaurantName,
		LocationName:         g.LocationName,
		Description:          g.Description,
		MinimumSpend:         g.MinimumSpend,
		RewardAmount:         g.RewardAmount,
		ActivationStart:      g.OverallStart.Format(displayTimeLayout),
		ActivationEnd:        g.OverallEnd.Format(displayTimeLayout),
		UniqueUsers:          m.uniqueUsers,
		RedeemedUsers:        m.redeemedUsers,
		TotalTPV:             round2(m.totalTPV),
		MedianCheck:          round2p(m.medianCheck),
		MarketingSpend:       round2(m.marketingSpend),
		RemainingGroupBudget: round2(budget.Remaining),
		NewUsers:             m.newUsers,
		ReturningUsers:       m.returningUsers,
		NewUserPercentage:    m.newUserPct,
		Notes:                m.note,
	}

	if len(scope) > 0 {
		base := e.baselineFor(g.MatchKey, bound)
		row.TPVVsBaseline = round2p(e.lift(m.totalTPV, base.TotalTPV))
		row.MedianCheckVsBaseline = round2p(e.lift(*m.medianCheck, base.MedianCheck))
	}
	return row
}
