package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"admissions-platform/internal/cache"
	"admissions-platform/internal/config"
	"admissions-platform/internal/handlers"
	"admissions-platform/internal/repository"
	"admissions-platform/internal/services"
	"admissions-platform/pkg/database"
	"admissions-platform/pkg/logging"
	"admissions-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger("admissions-api", version)

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting admissions platform API server", logging.Fields{
		"version":       version,
		"environment":   cfg.Environment,
		"server_host":   cfg.Server.Host,
		"server_port":   cfg.Server.Port,
		"db_host":       cfg.Database.Host,
		"db_name":       cfg.Database.Database,
		"cache_backend": cfg.Cache.Backend,
	})

	metricsCollector := metrics.NewCollector("admissions_platform")

	db, err := database.NewPostgresDB(cfg.Database.Postgres(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	resultCache, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to initialize cache", logging.Fields{
			"backend": cfg.Cache.Backend,
		}, err)
	}
	defer resultCache.Close()

	// Initialize repository
	admissionRepo := repository.NewAdmissionRepository(db, logger, metricsCollector)

	// Initialize services
	analysisService := services.NewAnalysisService(admissionRepo, resultCache, cfg.Analysis.CacheTTL, logger, metricsCollector)
	recommendationService := services.NewRecommendationService(
		admissionRepo,
		resultCache,
		cfg.Analysis.CacheTTL,
		cfg.Recommendation.LookbackYears,
		logger,
		metricsCollector,
	)
	programService := services.NewProgramService(admissionRepo, logger, metricsCollector)

	// Initialize handlers
	admissionHandler := handlers.NewAdmissionHandler(
		analysisService,
		recommendationService,
		programService,
		logger,
		metricsCollector,
	)

	// Setup router
	router := mux.NewRouter()
	router.Use(handlers.RequestID, handlers.Instrument(logger, metricsCollector))

	admissionHandler.RegisterRoutes(router)

	// API documentation
	router.HandleFunc(handlers.OpenAPIPath, handlers.OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", handlers.SwaggerUI).Methods("GET")

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{
		"timeout": cfg.Server.ShutdownTimeout.String(),
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
