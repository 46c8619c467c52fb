package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"activation-analytics/internal/cache"
	"activation-analytics/internal/config"
	"activation-analytics/internal/database"
	"activation-analytics/internal/descparse"
	"activation-analytics/internal/events"
	"activation-analytics/internal/features"
	"activation-analytics/internal/handler"
	"activation-analytics/internal/middleware"
	"activation-analytics/internal/service"
	"activation-analytics/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Path to JSON config file (optional)")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "activation-analytics").Logger()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
	}); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	var resultCache cache.Cache
	if cfg.Cache.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer redisCache.Close()
		resultCache = redisCache
		logger.Info().Str("addr", cfg.Cache.RedisAddr).Msg("using Redis cache")
	} else {
		resultCache = cache.NewInMemoryCache()
		logger.Info().Msg("using in-memory cache")
	}

	eventManager := events.NewManager(true)
	defer eventManager.Shutdown()

	flagManager := features.NewManager()
	defer flagManager.Shutdown()
	flagManager.Register(features.FeatureCacheEnabled, true, "Cache result tables per run")
	flagManager.Register(features.FeatureEventHooksEnabled, true, "Publish ingestion and analysis events")
	flagManager.Register(features.FeatureSemanticFallback, cfg.Parser.FallbackEndpoint != "", "Resolve unparseable descriptions via the remote parser")
	flagManager.Register(features.FeatureContactEnrichment, true, "Attach matched contact emails to weekly rows")

	var fallback descparse.Fallback
	if cfg.Parser.FallbackEndpoint != "" {
		fallback = descparse.NewHTTPFallback(cfg.Parser.FallbackEndpoint)
	}

	svc := service.NewService(db, resultCache, eventManager, flagManager, fallback, cfg, logger)
	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	})

	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.TracingMiddleware())
	r.Use(middleware.MetricsMiddleware())

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Security.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Routes
	r.Post("/transactions", h.IngestTransactions)
	r.Post("/activations", h.IngestActivations)
	r.Post("/contacts", h.IngestContacts)

	r.Route("/analysis", func(r chi.Router) {
		r.Post("/run", h.RunAnalysis)
		r.Get("/latest", h.GetLatestRun)
		r.Get("/weekly", h.GetWeeklyResults)
		r.Get("/weekly.csv", h.GetWeeklyCSV)
		r.Get("/daily", h.GetDailyResults)
		r.Get("/daily.csv", h.GetDailyCSV)
	})

	r.Get("/reports/{restaurant}/email", h.GetEmailReport)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logger.Info().Msg("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	logger.Info().Str("addr", addr).Str("db", cfg.Database.Path).Msg("starting server")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
