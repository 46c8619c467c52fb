package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"activation-analytics/internal/cache"
	"activation-analytics/internal/config"
	"activation-analytics/internal/database"
	"activation-analytics/internal/events"
	"activation-analytics/internal/features"
	"activation-analytics/internal/models"
)

func setupTestDB(t *testing.T) (*database.DB, func()) {
	dbPath := "./test_" + time.Now().Format("20060102150405.000000000") + ".db"
	db, err := database.NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

func testConfig() *config.Config {
	return &config.Config{
		Cache: config.CacheConfig{TTLSeconds: 60},
		Analysis: config.AnalysisConfig{
			RedemptionWindowMinutes: 60,
			BaselineWeeks:           4,
			ReportingWeeks:          2,
			ZeroBaselineSentinel:    999.0,
			ContactMinConfidence:    0.70,
		},
	}
}

func newTestService(t *testing.T, cacheEnabled bool) (*Service, func()) {
	db, cleanup := setupTestDB(t)

	flags := features.NewManager()
	flags.Register(features.FeatureCacheEnabled, cacheEnabled, "")
	flags.Register(features.FeatureEventHooksEnabled, true, "")
	flags.Register(features.FeatureContactEnrichment, true, "")

	svc := NewService(db, cache.NewInMemoryCache(), events.NewManager(true), flags,
		nil, testConfig(), zerolog.Nop())
	return svc, cleanup
}

// fixtureAsOf is a Wednesday, so the reporting weeks are Oct 6-12 and
// Oct 13-19 2025.
var fixtureAsOf = time.Date(2025, 10, 22, 9, 0, 0, 0, time.UTC)

func ingestFixture(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()

	activations := []models.Activation{{
		ID:                uuid.New().String(),
		RestaurantID:      uuid.New().String(),
		RestaurantGroupID: uuid.New().String(),
		RestaurantName:    "Pasta Palace",
		LocationName:      "Downtown",
		Description:       "Spend $25, get $10",
		StartAt:           time.Date(2025, 10, 14, 18, 0, 0, 0, time.UTC),
		EndAt:             time.Date(2025, 10, 14, 22, 0, 0, 0, time.UTC),
		InitialBudget:     500,
	}}
	if _, err := svc.IngestActivations(ctx, activations); err != nil {
		t.Fatalf("Failed to ingest activations: %v", err)
	}

	userA := uuid.New().String()
	userB := uuid.New().String()
	transactions := []models.Transaction{
		{
			ID:             uuid.New().String(),
			RestaurantName: "Pasta Palace",
			LocationName:   "Downtown",
			UserID:         userA,
			CreatedAt:      time.Date(2025, 10, 14, 18, 30, 0, 0, time.UTC),
			Amount:         30,
		},
		{
			ID:             uuid.New().String(),
			RestaurantName: "Pasta Palace",
			LocationName:   "Downtown",
			UserID:         userB,
			CreatedAt:      time.Date(2025, 10, 14, 19, 0, 0, 0, time.UTC),
			Amount:         10,
		},
	}
	if _, err := svc.IngestTransactions(ctx, transactions); err != nil {
		t.Fatalf("Failed to ingest transactions: %v", err)
	}

	contacts := []models.Contact{{
		RestaurantName: "Pasta Palace Downtown",
		Email:          "owner@pastapalace.com",
	}}
	if _, err := svc.IngestContacts(ctx, contacts); err != nil {
		t.Fatalf("Failed to ingest contacts: %v", err)
	}
}

func TestRunAnalysis_EndToEnd(t *testing.T) {
	svc, cleanup := newTestService(t, false)
	defer cleanup()

	ingestFixture(t, svc)

	run, err := svc.RunAnalysis(context.Background(), fixtureAsOf)
	if err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}
	if run.ID == "" {
		t.Error("run id not assigned")
	}
	if run.WeeklyCount != 1 || run.DailyCount != 1 {
		t.Errorf("run counts weekly=%d daily=%d, want 1/1", run.WeeklyCount, run.DailyCount)
	}

	weekly, err := svc.LatestWeeklyRows(context.Background())
	if err != nil {
		t.Fatalf("LatestWeeklyRows: %v", err)
	}
	if len(weekly) != 1 {
		t.Fatalf("expected 1 weekly row, got %d", len(weekly))
	}

	row := weekly[0]
	if row.Week != "Week 2" {
		t.Errorf("week = %q, want Week 2", row.Week)
	}
	if row.UniqueUsers != 2 || row.RedeemedUsers != 1 {
		t.Errorf("users = %d/%d, want 2/1", row.UniqueUsers, row.RedeemedUsers)
	}
	if row.MinimumSpend != 25 || row.RewardAmount != 10 {
		t.Errorf("terms parsed as %v/%v, want 25/10", row.MinimumSpend, row.RewardAmount)
	}
	if row.MarketingSpend != 10 {
		t.Errorf("marketing spend = %v, want 10", row.MarketingSpend)
	}
	if row.RemainingGroupBudget != 490 {
		t.Errorf("remaining budget = %v, want 490", row.RemainingGroupBudget)
	}
	if row.Emails != "owner@pastapalace.com" {
		t.Errorf("emails = %q, want the matched contact", row.Emails)
	}
	if row.EmailMatchConfidence != "100%" {
		t.Errorf("email confidence = %q, want 100%%", row.EmailMatchConfidence)
	}

	daily, err := svc.LatestDailyRows(context.Background())
	if err != nil {
		t.Fatalf("LatestDailyRows: %v", err)
	}
	if len(daily) != 1 || daily[0].Date != "2025-10-14" {
		t.Fatalf("daily rows = %+v, want a single 2025-10-14 row", daily)
	}
}

func TestRunAnalysis_CachedResults(t *testing.T) {
	svc, cleanup := newTestService(t, true)
	defer cleanup()

	ingestFixture(t, svc)

	if _, err := svc.RunAnalysis(context.Background(), fixtureAsOf); err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}

	weekly, err := svc.LatestWeeklyRows(context.Background())
	if err != nil {
		t.Fatalf("LatestWeeklyRows: %v", err)
	}
	if len(weekly) != 1 || weekly[0].RedeemedUsers != 1 {
		t.Errorf("cached weekly rows = %+v", weekly)
	}
}

func TestLatestRun_NoneRecorded(t *testing.T) {
	svc, cleanup := newTestService(t, false)
	defer cleanup()

	if _, err := svc.LatestRun(); !errors.Is(err, ErrNoRuns) {
		t.Errorf("expected ErrNoRuns, got %v", err)
	}
	if _, err := svc.LatestWeeklyRows(context.Background()); !errors.Is(err, ErrNoRuns) {
		t.Errorf("expected ErrNoRuns from weekly rows, got %v", err)
	}
}

func TestEmailReport(t *testing.T) {
	svc, cleanup := newTestService(t, false)
	defer cleanup()

	ingestFixture(t, svc)
	if _, err := svc.RunAnalysis(context.Background(), fixtureAsOf); err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}

	body, err := svc.EmailReport(context.Background(), "pasta palace")
	if err != nil {
		t.Fatalf("EmailReport: %v", err)
	}
	if !strings.Contains(body, "<b>Pasta Palace</b> <b>Downtown</b>") {
		t.Error("email body missing restaurant header")
	}

	if _, err := svc.EmailReport(context.Background(), "Unknown Venue"); err == nil {
		t.Error("expected an error for an unknown restaurant")
	}
}

func TestIngestTransactions_Validation(t *testing.T) {
	svc, cleanup := newTestService(t, false)
	defer cleanup()

	_, err := svc.IngestTransactions(context.Background(), []models.Transaction{{
		ID:             "bogus",
		RestaurantName: "Pasta Palace",
		LocationName:   "Downtown",
		UserID:         uuid.New().String(),
		Amount:         10,
	}})
	if err == nil {
		t.Fatal("expected a validation error")
	}

	if _, err := svc.IngestTransactions(context.Background(), nil); err == nil {
		t.Fatal("expected an error for an empty batch")
	}
}
