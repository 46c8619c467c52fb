package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"activation-analytics/internal/cache"
	"activation-analytics/internal/config"
	"activation-analytics/internal/contacts"
	"activation-analytics/internal/database"
	"activation-analytics/internal/descparse"
	"activation-analytics/internal/engine"
	"activation-analytics/internal/events"
	"activation-analytics/internal/features"
	"activation-analytics/internal/metrics"
	"activation-analytics/internal/models"
	"activation-analytics/internal/report"
	"activation-analytics/internal/tracing"
	"activation-analytics/internal/validation"
)

// ErrNoRuns is returned when results are requested before any analysis run
// has completed.
var ErrNoRuns = fmt.Errorf("no analysis run recorded yet")

const maxBatchSize = 10000

// Service provides the business logic for ingestion, analysis, and report
// retrieval.
type Service struct {
	db       *database.DB
	cache    cache.Cache
	events   *events.Manager
	flags    *features.Manager
	fallback descparse.Fallback
	cfg      *config.Config
	logger   zerolog.Logger
	cacheTTL time.Duration
}

// NewService creates a new service instance.
func NewService(db *database.DB, c cache.Cache, ev *events.Manager, flags *features.Manager,
	fallback descparse.Fallback, cfg *config.Config, logger zerolog.Logger) *Service {
	return &Service{
		db:       db,
		cache:    c,
		events:   ev,
		flags:    flags,
		fallback: fallback,
		cfg:      cfg,
		logger:   logger,
		cacheTTL: time.Duration(cfg.Cache.TTLSeconds) * time.Second,
	}
}

// IngestTransactions validates and stores a transaction batch.
func (s *Service) IngestTransactions(ctx context.Context, transactions []models.Transaction) (int, error) {
	if len(transactions) == 0 {
		return 0, fmt.Errorf("no transactions provided")
	}

	if len(transactions) > maxBatchSize {
		return 0, fmt.Errorf("cannot process more than %d transactions per request", maxBatchSize)
	}

	for i, txn := range transactions {
		if err := validation.ValidateTransaction(txn); err != nil {
			metrics.IngestRejected.WithLabelValues("transaction").Inc()
			return 0, fmt.Errorf("invalid transaction at index %d: %w", i, err)
		}
	}

	inserted, err := s.db.InsertTransactions(transactions)
	if err != nil {
		return 0, err
	}

	metrics.RecordsIngested.WithLabelValues("transaction").Add(float64(inserted))
	s.events.PublishIngested(ctx, events.EventTransactionsIngested, inserted)
	s.logger.Info().Int("count", inserted).Msg("transactions ingested")
	return inserted, nil
}

// IngestActivations validates and stores an activation batch. Spend and
// reward values already present on the records are kept; missing ones are
// resolved from the description at analysis time.
func (s *Service) IngestActivations(ctx context.Context, activations []models.Activation) (int, error) {
	if len(activations) == 0 {
		return 0, fmt.Errorf("no activations provided")
	}

	if len(activations) > maxBatchSize {
		return 0, fmt.Errorf("cannot process more than %d activations per request", maxBatchSize)
	}

	for i, act := range activations {
		if err := validation.ValidateActivation(act); err != nil {
			metrics.IngestRejected.WithLabelValues("activation").Inc()
			return 0, fmt.Errorf("invalid activation at index %d: %w", i, err)
		}
	}

	inserted, err := s.db.InsertActivations(activations)
	if err != nil {
		return 0, err
	}

	metrics.RecordsIngested.WithLabelValues("activation").Add(float64(inserted))
	s.events.PublishIngested(ctx, events.EventActivationsIngested, inserted)
	s.logger.Info().Int("count", inserted).Msg("activations ingested")
	return inserted, nil
}

// IngestContacts validates and stores contact directory entries.
func (s *Service) IngestContacts(ctx context.Context, list []models.Contact) (int, error) {
	if len(list) == 0 {
		return 0, fmt.Errorf("no contacts provided")
	}

	for i, c := range list {
		if err := validation.ValidateContact(c); err != nil {
			metrics.IngestRejected.WithLabelValues("contact").Inc()
			return 0, fmt.Errorf("invalid contact at index %d: %w", i, err)
		}
	}

	inserted, err := s.db.InsertContacts(list)
	if err != nil {
		return 0, err
	}

	metrics.RecordsIngested.WithLabelValues("contact").Add(float64(inserted))
	s.events.PublishIngested(ctx, events.EventContactsIngested, inserted)
	s.logger.Info().Int("count", inserted).Msg("contacts ingested")
	return inserted, nil
}

// RunAnalysis loads the stored snapshot, scores it, and persists the result
// tables under a fresh run ID. A zero asOf means "now".
func (s *Service) RunAnalysis(ctx context.Context, asOf time.Time) (models.AnalysisRun, error) {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "analysis.run")
	defer span.End()

	start := time.Now()
	if asOf.IsZero() {
		asOf = start
	}
	span.SetAttributes(attribute.String("analysis.as_of", asOf.Format(time.RFC3339)))

	transactions, err := s.db.ListTransactions()
	if err != nil {
		metrics.AnalysisRuns.WithLabelValues("error").Inc()
		return models.AnalysisRun{}, fmt.Errorf("failed to load transactions: %w", err)
	}

	activations, err := s.db.ListActivations()
	if err != nil {
		metrics.AnalysisRuns.WithLabelValues("error").Inc()
		return models.AnalysisRun{}, fmt.Errorf("failed to load activations: %w", err)
	}

	var fb descparse.Fallback
	if s.flags.IsEnabled(features.FeatureSemanticFallback) {
		fb = s.fallback
	}
	activations = descparse.Resolve(ctx, activations, fb)

	result := engine.New(s.engineConfig(), transactions, activations).Run(asOf)

	if s.flags.IsEnabled(features.FeatureContactEnrichment) {
		directory, err := s.db.ListContacts()
		if err != nil {
			return models.AnalysisRun{}, fmt.Errorf("failed to load contacts: %w", err)
		}
		if len(directory) > 0 {
			matcher := contacts.NewMatcher(directory, s.cfg.Analysis.ContactMinConfidence, nil)
			matcher.EnrichWeeklyRows(ctx, result.Weekly)
		}
	}

	run := models.AnalysisRun{
		ID:          uuid.New().String(),
		AsOf:        asOf,
		CreatedAt:   time.Now().UTC(),
		WeeklyCount: len(result.Weekly),
		DailyCount:  len(result.Daily),
	}

	if err := s.db.SaveRun(run, result.Weekly, result.Daily); err != nil {
		metrics.AnalysisRuns.WithLabelValues("error").Inc()
		return models.AnalysisRun{}, fmt.Errorf("failed to save run: %w", err)
	}

	if s.flags.IsEnabled(features.FeatureCacheEnabled) {
		if err := cache.SetJSON(ctx, s.cache, cache.WeeklyKey(run.ID), result.Weekly, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache weekly results")
		}
		if err := cache.SetJSON(ctx, s.cache, cache.DailyKey(run.ID), result.Daily, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache daily results")
		}
	}

	duration := time.Since(start)
	redeemed := 0
	for _, row := range result.Weekly {
		redeemed += row.RedeemedUsers
	}

	metrics.AnalysisRuns.WithLabelValues("ok").Inc()
	metrics.AnalysisDuration.Observe(duration.Seconds())
	metrics.RedemptionEvents.Add(float64(redeemed))
	metrics.WeeklyRowsProduced.Set(float64(run.WeeklyCount))
	metrics.DailyRowsProduced.Set(float64(run.DailyCount))

	s.events.PublishAnalysisCompleted(ctx, events.AnalysisCompletedData{
		RunID:       run.ID,
		AsOf:        asOf,
		WeeklyCount: run.WeeklyCount,
		DailyCount:  run.DailyCount,
		Duration:    duration,
	})

	s.logger.Info().
		Str("run_id", run.ID).
		Int("weekly_rows", run.WeeklyCount).
		Int("daily_rows", run.DailyCount).
		Dur("duration", duration).
		Msg("analysis run completed")

	return run, nil
}

// engineConfig translates the loaded configuration into engine policy.
func (s *Service) engineConfig() engine.Config {
	cutoff, overrides := s.cfg.BudgetCutoffs()
	return engine.Config{
		RedemptionWindow:      time.Duration(s.cfg.Analysis.RedemptionWindowMinutes) * time.Minute,
		BaselineWeeks:         s.cfg.Analysis.BaselineWeeks,
		ZeroBaselineSentinel:  s.cfg.Analysis.ZeroBaselineSentinel,
		ReportingWeeks:        s.cfg.Analysis.ReportingWeeks,
		DefaultBudgetCutoff:   cutoff,
		BudgetCutoffOverrides: overrides,
	}
}

// LatestRun returns the most recent analysis run.
func (s *Service) LatestRun() (models.AnalysisRun, error) {
	run, ok, err := s.db.LatestRun()
	if err != nil {
		return models.AnalysisRun{}, err
	}
	if !ok {
		return models.AnalysisRun{}, ErrNoRuns
	}
	return run, nil
}

// LatestWeeklyRows returns the weekly table of the most recent run,
// cache-first when caching is enabled.
func (s *Service) LatestWeeklyRows(ctx context.Context) ([]models.WeeklyRow, error) {
	run, err := s.LatestRun()
	if err != nil {
		return nil, err
	}

	if s.flags.IsEnabled(features.FeatureCacheEnabled) {
		var rows []models.WeeklyRow
		if err := cache.GetJSON(ctx, s.cache, cache.WeeklyKey(run.ID), &rows); err == nil {
			return rows, nil
		}
	}

	return s.db.WeeklyRows(run.ID)
}

// LatestDailyRows returns the daily table of the most recent run.
func (s *Service) LatestDailyRows(ctx context.Context) ([]models.DailyRow, error) {
	run, err := s.LatestRun()
	if err != nil {
		return nil, err
	}

	if s.flags.IsEnabled(features.FeatureCacheEnabled) {
		var rows []models.DailyRow
		if err := cache.GetJSON(ctx, s.cache, cache.DailyKey(run.ID), &rows); err == nil {
			return rows, nil
		}
	}

	return s.db.DailyRows(run.ID)
}

// EmailReport renders the performance summary email for one restaurant from
// the most recent run's weekly rows.
func (s *Service) EmailReport(ctx context.Context, restaurantName string) (string, error) {
	rows, err := s.LatestWeeklyRows(ctx)
	if err != nil {
		return "", err
	}

	want := strings.ToLower(strings.TrimSpace(restaurantName))
	var subset []models.WeeklyRow
	for _, row := range rows {
		if strings.ToLower(strings.TrimSpace(row.RestaurantName)) == want {
			subset = append(subset, row)
		}
	}

	if len(subset) == 0 {
		return "", fmt.Errorf("no results for restaurant %q", restaurantName)
	}

	var buf bytes.Buffer
	if err := report.RenderEmail(&buf, subset); err != nil {
		return "", fmt.Errorf("failed to render email: %w", err)
	}
	return buf.String(), nil
}
