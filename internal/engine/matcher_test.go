package engine

import (
	"testing"
	"time"

	"activation-analytics/internal/models"
)

func txnAt(user string, at time.Time, amount float64) models.Transaction {
	return models.Transaction{
		ID:             user + "-" + at.Format("150405"),
		RestaurantName: "Pasta Palace",
		LocationName:   "Downtown",
		UserID:         user,
		CreatedAt:      at,
		Amount:         amount,
	}
}

func TestMatchRedemptions_SingleWindowAggregation(t *testing.T) {
	base := time.Date(2025, 10, 15, 18, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		txnAt("user-a", base, 10),
		txnAt("user-a", base.Add(20*time.Minute), 20),
	}

	res := MatchRedemptions(txns, 25, time.Hour)

	if len(res.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(res.Events))
	}
	if res.Events[0].WindowSum != 30 {
		t.Errorf("expected window sum 30, got %v", res.Events[0].WindowSum)
	}
	if len(res.Events[0].Consumed) != 2 {
		t.Errorf("expected both transactions consumed, got %d", len(res.Events[0].Consumed))
	}
	if !res.RedeemedUsers["user-a"] {
		t.Error("expected user-a marked redeemed")
	}
}

func TestMatchRedemptions_BoundaryInclusive(t *testing.T) {
	base := time.Date(2025, 10, 15, 18, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		txnAt("user-a", base, 15),
		txnAt("user-a", base.Add(time.Hour), 15), // exactly on the boundary
	}

	res := MatchRedemptions(txns, 25, time.Hour)

	if len(res.Events) != 1 {
		t.Fatalf("expected boundary transaction to count, got %d events", len(res.Events))
	}
	if res.Events[0].WindowSum != 30 {
		t.Errorf("expected window sum 30, got %v", res.Events[0].WindowSum)
	}
}

func TestMatchRedemptions_JustPastBoundaryExcluded(t *testing.T) {
	base := time.Date(2025, 10, 15, 18, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		txnAt("user-a", base, 15),
		txnAt("user-a", base.Add(time.Hour+time.Second), 15),
	}

	res := MatchRedemptions(txns, 25, time.Hour)

	if len(res.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(res.Events))
	}
}

func TestMatchRedemptions_GreedyPackingStrandsValue(t *testing.T) {
	// $10 then $20 ninety minutes apart: each anchor fails alone even though
	// the combined value clears the threshold. The packing is greedy per
	// window, never a global optimum.
	base := time.Date(2025, 10, 15, 18, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		txnAt("user-a", base, 10),
		txnAt("user-a", base.Add(90*time.Minute), 20),
	}

	res := MatchRedemptions(txns, 25, time.Hour)

	if len(res.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(res.Events))
	}
	if res.RedeemedUsers["user-a"] {
		t.Error("user-a should not be marked redeemed")
	}
}

func TestMatchRedemptions_NoDoubleConsumption(t *testing.T) {
	// Three transactions inside one hour clear the threshold once; the
	// second anchor finds everything consumed and produces nothing.
	base := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		txnAt("user-a", base, 20),
		txnAt("user-a", base.Add(10*time.Minute), 20),
		txnAt("user-a", base.Add(20*time.Minute), 20),
	}

	res := MatchRedemptions(txns, 25, time.Hour)

	if len(res.Events) != 1 {
		t.Fatalf("expected exactly 1 event, got %d", len(res.Events))
	}
	if res.Events[0].WindowSum != 60 {
		t.Errorf("expected the whole window consumed (sum 60), got %v", res.Events[0].WindowSum)
	}
}

func TestMatchRedemptions_SequentialWindows(t *testing.T) {
	base := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		txnAt("user-a", base, 30),
		txnAt("user-a", base.Add(3*time.Hour), 40),
	}

	res := MatchRedemptions(txns, 25, time.Hour)

	if len(res.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(res.Events))
	}
	if len(res.RedeemedUsers) != 1 {
		t.Errorf("expected 1 redeemed user, got %d", len(res.RedeemedUsers))
	}
}

func TestMatchRedemptions_UsersIndependent(t *testing.T) {
	base := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		txnAt("user-a", base, 15),
		txnAt("user-b", base.Add(5*time.Minute), 15),
	}

	// Neither user clears the threshold alone; their amounts must not pool.
	res := MatchRedemptions(txns, 25, time.Hour)

	if len(res.Events) != 0 {
		t.Fatalf("expected no events across users, got %d", len(res.Events))
	}
}

func TestMatchRedemptions_ZeroTimestampDropped(t *testing.T) {
	base := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		{UserID: "user-a", Amount: 100},
		txnAt("user-a", base, 10),
	}

	res := MatchRedemptions(txns, 25, time.Hour)

	if len(res.Events) != 0 {
		t.Fatalf("untimestamped transaction must not contribute, got %d events", len(res.Events))
	}
}

func TestMarketingSpend(t *testing.T) {
	base := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		txnAt("user-a", base, 30),
		txnAt("user-b", base, 50),
	}

	res := MatchRedemptions(txns, 25, time.Hour)

	if got := res.MarketingSpend(10); got != 20 {
		t.Errorf("expected marketing spend 20, got %v", got)
	}
}
