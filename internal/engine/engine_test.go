package engine

import (
	"testing"
	"time"

	"activation-analytics/internal/models"
)

// The fixture runs with asOf Wednesday 2025-10-22, so the reporting weeks
// are Oct 6-12 (Week 1) and Oct 13-19 (Week 2).
var fixtureAsOf = time.Date(2025, 10, 22, 9, 0, 0, 0, time.UTC)

func fixtureActivations() []models.Activation {
	return []models.Activation{
		activationAt("act-w1",
			time.Date(2025, 10, 7, 18, 0, 0, 0, time.UTC),
			time.Date(2025, 10, 7, 22, 0, 0, 0, time.UTC), 25, 10),
		activationAt("act-w2",
			time.Date(2025, 10, 14, 18, 0, 0, 0, time.UTC),
			time.Date(2025, 10, 14, 22, 0, 0, 0, time.UTC), 25, 10),
	}
}

func fixtureTransactions() []models.Transaction {
	return []models.Transaction{
		// Week 1 activation evening: user-c redeems.
		txnAt("user-c", time.Date(2025, 10, 7, 19, 0, 0, 0, time.UTC), 40),
		// Week 2 activation evening: user-a redeems, user-b does not.
		txnAt("user-a", time.Date(2025, 10, 14, 18, 30, 0, 0, time.UTC), 30),
		txnAt("user-b", time.Date(2025, 10, 14, 19, 0, 0, 0, time.UTC), 10),
		// Prior history makes user-b a returning customer.
		txnAt("user-b", time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC), 20),
		// Baseline sample two weeks before the reporting window.
		txnAt("user-d", time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC), 50),
		// Contaminated week (contains act-w1): must never feed a baseline.
		txnAt("user-e", time.Date(2025, 10, 8, 12, 0, 0, 0, time.UTC), 1000),
	}
}

func fixtureEngine() *Engine {
	return New(DefaultConfig(), fixtureTransactions(), fixtureActivations())
}

func findWeekly(t *testing.T, rows []models.WeeklyRow, week, restaurant string) models.WeeklyRow {
	t.Helper()
	for _, row := range rows {
		if row.Week == week && row.RestaurantName == restaurant {
			return row
		}
	}
	t.Fatalf("no weekly row for %s / %s", week, restaurant)
	return models.WeeklyRow{}
}

func TestRun_WeeklyRows(t *testing.T) {
	result := fixtureEngine().Run(fixtureAsOf)

	if len(result.Weekly) != 2 {
		t.Fatalf("expected 2 weekly rows, got %d", len(result.Weekly))
	}

	w1 := findWeekly(t, result.Weekly, "Week 1", "Pasta Palace")
	if w1.UniqueUsers != 1 || w1.RedeemedUsers != 1 {
		t.Errorf("week 1 users = %d/%d, want 1/1", w1.UniqueUsers, w1.RedeemedUsers)
	}
	if w1.TotalTPV != 40 {
		t.Errorf("week 1 TPV = %v, want 40", w1.TotalTPV)
	}
	if w1.MarketingSpend != 10 {
		t.Errorf("week 1 marketing spend = %v, want 10", w1.MarketingSpend)
	}

	w2 := findWeekly(t, result.Weekly, "Week 2", "Pasta Palace")
	if w2.UniqueUsers != 2 || w2.RedeemedUsers != 1 {
		t.Errorf("week 2 users = %d/%d, want 2/1", w2.UniqueUsers, w2.RedeemedUsers)
	}
	if w2.TotalTPV != 40 {
		t.Errorf("week 2 TPV = %v, want 40", w2.TotalTPV)
	}
	if w2.NewUsers != 1 || w2.ReturningUsers != 1 {
		t.Errorf("week 2 new/returning = %d/%d, want 1/1", w2.NewUsers, w2.ReturningUsers)
	}
	if w2.NewUserPercentage == nil || *w2.NewUserPercentage != 50 {
		t.Errorf("week 2 new user pct = %v, want 50", w2.NewUserPercentage)
	}
	if w2.ActivationIDs != "act-w1, act-w2" {
		t.Errorf("week 2 activation ids = %q", w2.ActivationIDs)
	}
}

func TestRun_BaselineExcludesContaminatedWeeks(t *testing.T) {
	result := fixtureEngine().Run(fixtureAsOf)

	// Week 2 baseline candidates: Oct 6-12 holds act-w1 and is excluded
	// despite its $1000 transaction; Sep 29-Oct 5 contributes its $50; the
	// two older offsets are empty. Baseline TPV is therefore 50.
	w2 := findWeekly(t, result.Weekly, "Week 2", "Pasta Palace")
	if w2.TPVVsBaseline == nil {
		t.Fatal("expected a TPV baseline for week 2")
	}
	if *w2.TPVVsBaseline != -20 {
		t.Errorf("week 2 TPV lift = %v, want -20", *w2.TPVVsBaseline)
	}

	// Actual median check 20 against baseline 50.
	if w2.MedianCheckVsBaseline == nil || *w2.MedianCheckVsBaseline != -60 {
		t.Errorf("week 2 median check lift = %v, want -60", w2.MedianCheckVsBaseline)
	}
}

func TestRun_BudgetSharedAcrossWeeks(t *testing.T) {
	result := fixtureEngine().Run(fixtureAsOf)

	// One redemption per activation, $10 reward each: 500 - 20 = 480, and
	// the figure is the run-level position, identical on every row.
	for _, row := range result.Weekly {
		if row.RemainingGroupBudget != 480 {
			t.Errorf("%s remaining budget = %v, want 480", row.Week, row.RemainingGroupBudget)
		}
	}
}

func TestRun_DailyRows(t *testing.T) {
	result := fixtureEngine().Run(fixtureAsOf)

	if len(result.Daily) != 2 {
		t.Fatalf("expected 2 daily rows, got %d", len(result.Daily))
	}
	if result.Daily[0].Date != "2025-10-07" || result.Daily[1].Date != "2025-10-14" {
		t.Errorf("daily dates = %q, %q", result.Daily[0].Date, result.Daily[1].Date)
	}
	if result.Daily[0].DayOfWeek != "Tuesday" {
		t.Errorf("day of week = %q, want Tuesday", result.Daily[0].DayOfWeek)
	}
	if result.Daily[1].UniqueUsers != 2 || result.Daily[1].RedeemedUsers != 1 {
		t.Errorf("Oct 14 users = %d/%d, want 2/1",
			result.Daily[1].UniqueUsers, result.Daily[1].RedeemedUsers)
	}
}

func TestRun_ZeroTransactionRowStillEmitted(t *testing.T) {
	activations := append(fixtureActivations(), models.Activation{
		ID:                "act-empty",
		RestaurantID:      "rest-2",
		RestaurantGroupID: "group-2",
		RestaurantName:    "Empty Bistro",
		LocationName:      "Uptown",
		Description:       "Spend $25, get $10",
		StartAt:           time.Date(2025, 10, 15, 18, 0, 0, 0, time.UTC),
		EndAt:             time.Date(2025, 10, 15, 22, 0, 0, 0, time.UTC),
		MinimumSpend:      fptr(25),
		RewardAmount:      fptr(10),
		InitialBudget:     200,
	})

	e := New(DefaultConfig(), fixtureTransactions(), activations)
	result := e.Run(fixtureAsOf)

	row := findWeekly(t, result.Weekly, "Week 2", "Empty Bistro")
	if row.Notes != ZeroTransactionsNote {
		t.Errorf("notes = %q, want %q", row.Notes, ZeroTransactionsNote)
	}
	if row.UniqueUsers != 0 || row.TotalTPV != 0 {
		t.Errorf("zero-transaction row carries data: users=%d tpv=%v", row.UniqueUsers, row.TotalTPV)
	}
	if row.TPVVsBaseline != nil {
		t.Error("zero-transaction row must not carry baseline lifts")
	}
	if row.RemainingGroupBudget != 200 {
		t.Errorf("no-redemption group remaining = %v, want the untouched 200", row.RemainingGroupBudget)
	}
}

func TestRun_WeekWithoutOverlapSkipped(t *testing.T) {
	// An activation only in week 2 must not produce a week 1 row.
	acts := []models.Activation{fixtureActivations()[1]}
	e := New(DefaultConfig(), fixtureTransactions(), acts)
	result := e.Run(fixtureAsOf)

	for _, row := range result.Weekly {
		if row.Week == "Week 1" {
			t.Errorf("unexpected week 1 row for a week-2-only activation")
		}
	}
}

func TestLift(t *testing.T) {
	e := fixtureEngine()

	if got := e.lift(40, fptr(50)); got == nil || *got != -20 {
		t.Errorf("lift(40, 50) = %v, want -20", got)
	}
	if got := e.lift(40, fptr(0)); got == nil || *got != 999 {
		t.Errorf("lift(40, 0) = %v, want the 999 sentinel", got)
	}
	if got := e.lift(0, fptr(0)); got == nil || *got != 0 {
		t.Errorf("lift(0, 0) = %v, want 0", got)
	}
	if got := e.lift(40, nil); got != nil {
		t.Errorf("lift(40, nil) = %v, want nil", got)
	}
}

func TestBaselineFor_ZeroValueSampleKept(t *testing.T) {
	// A week containing only a $0 transaction is a legitimate sample: the
	// baseline exists and is zero, which later maps actual growth to the
	// sentinel instead of nil.
	txns := []models.Transaction{
		txnAt("user-a", time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC), 0),
	}
	e := New(DefaultConfig(), txns, nil)

	scored := Interval{
		Start: time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 10, 19, 23, 59, 59, 0, time.UTC),
	}
	b := e.baselineFor(models.MatchKey("Pasta Palace", "Downtown"), scored)

	if b.Samples != 1 {
		t.Fatalf("expected 1 sample, got %d", b.Samples)
	}
	if b.TotalTPV == nil || *b.TotalTPV != 0 {
		t.Errorf("baseline TPV = %v, want 0", b.TotalTPV)
	}
}

func TestScoreScope_UnknownUserDefaultsToNew(t *testing.T) {
	e := fixtureEngine()
	g := BuildGroupings(fixtureActivations(), AnalysisWindow(LastCompleteWeeks(fixtureAsOf, 2)))[0]

	// A transaction at a location the history index has never seen.
	foreign := models.Transaction{
		ID:             "txn-x",
		RestaurantName: "Somewhere Else",
		LocationName:   "Nowhere",
		UserID:         "user-x",
		CreatedAt:      time.Date(2025, 10, 14, 19, 0, 0, 0, time.UTC),
		Amount:         30,
	}

	m := e.scoreScope(g, []models.Transaction{foreign})
	if m.newUsers != 1 || m.returningUsers != 0 {
		t.Errorf("unknown user classified new=%d returning=%d, want 1/0", m.newUsers, m.returningUsers)
	}
}

func TestGroupBudget_CutoffExcludesEarlierActivations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultBudgetCutoff = time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC)

	e := New(cfg, fixtureTransactions(), fixtureActivations())
	g := BuildGroupings(fixtureActivations(), AnalysisWindow(LastCompleteWeeks(fixtureAsOf, 2)))[0]

	// act-w1 starts Oct 7, before the cutoff, so only act-w2's single
	// redemption accrues.
	state := e.groupBudget(g)
	if state.CumulativeSpend != 10 {
		t.Errorf("cumulative spend = %v, want 10", state.CumulativeSpend)
	}
	if state.Remaining != 490 {
		t.Errorf("remaining = %v, want 490", state.Remaining)
	}
}

func TestGroupBudget_PerRestaurantOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BudgetCutoffOverrides = map[string]time.Time{
		"Pasta Palace": time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC),
	}

	e := New(cfg, fixtureTransactions(), fixtureActivations())
	g := BuildGroupings(fixtureActivations(), AnalysisWindow(LastCompleteWeeks(fixtureAsOf, 2)))[0]

	if state := e.groupBudget(g); state.CumulativeSpend != 10 {
		t.Errorf("cumulative spend = %v, want 10", state.CumulativeSpend)
	}
}

func TestGroupBudget_UntrackedGroupReportsZero(t *testing.T) {
	acts := fixtureActivations()
	for i := range acts {
		acts[i].InitialBudget = 0
	}

	e := New(DefaultConfig(), fixtureTransactions(), acts)
	g := BuildGroupings(acts, AnalysisWindow(LastCompleteWeeks(fixtureAsOf, 2)))[0]

	state := e.groupBudget(g)
	if state.CumulativeSpend != 20 {
		t.Errorf("cumulative spend = %v, want 20", state.CumulativeSpend)
	}
	if state.Remaining != 0 {
		t.Errorf("remaining = %v, want 0 for an untracked group", state.Remaining)
	}
}

func TestUserHistory_FirstSeen(t *testing.T) {
	h := BuildUserHistory(fixtureTransactions())

	key := models.MatchKey("Pasta Palace", "Downtown")
	first, ok := h.FirstSeen(key, "user-b")
	if !ok {
		t.Fatal("expected history for user-b")
	}
	want := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	if !first.Equal(want) {
		t.Errorf("first seen = %v, want %v", first, want)
	}

	if _, ok := h.FirstSeen(key, "user-z"); ok {
		t.Error("unexpected history for unknown user")
	}
}

func TestExclusionIndex_UsesFullActivationSet(t *testing.T) {
	// An unresolved activation still contaminates baselines.
	act := fixtureActivations()[0]
	act.MinimumSpend = nil
	act.RewardAmount = nil

	idx := BuildExclusionIndex([]models.Activation{act})

	window := Interval{
		Start: time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 10, 12, 23, 59, 59, 0, time.UTC),
	}
	if !idx.OverlapsAnyActivation(act.MatchKey(), window) {
		t.Error("expected overlap with the unresolved activation's interval")
	}

	before := Interval{
		Start: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 9, 7, 23, 59, 59, 0, time.UTC),
	}
	if idx.OverlapsAnyActivation(act.MatchKey(), before) {
		t.Error("unexpected overlap with a clean window")
	}
}
