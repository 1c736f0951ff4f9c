package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"admissions-platform/internal/cache"
	"admissions-platform/internal/config"
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

	// Parse command-line flags
	dataDir := flag.String("data-dir", "./data", "Directory containing admission CSV files")
	file := flag.String("file", "", "Single CSV file to import (overrides -data-dir)")
	batchSize := flag.Int("batch-size", cfg.Ingestion.BatchSize, "Number of rows to insert in each transaction")
	flag.Parse()

	logger := cfg.Logging.NewLogger("admissions-ingester", version)

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting admission data ingestion", logging.Fields{
		"version":    version,
		"data_dir":   *dataDir,
		"file":       *file,
		"batch_size": *batchSize,
	})

	metricsCollector := metrics.NewCollector("admissions_ingester")

	db, err := database.NewPostgresDB(cfg.Database.Postgres(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Only a shared backend can be invalidated from this process
	var resultCache cache.Service
	if cfg.Cache.Backend == "redis" {
		resultCache, err = cache.New(cfg.Cache)
		if err != nil {
			logger.Warn(ctx, "[INGESTER_CACHE_UNAVAILABLE] Cached results will expire by TTL", logging.Fields{
				"error": err.Error(),
			})
			resultCache = nil
		} else {
			defer resultCache.Close()
		}
	}

	admissionRepo := repository.NewAdmissionRepository(db, logger, metricsCollector)
	ingestionService := services.NewIngestionService(admissionRepo, resultCache, logger, metricsCollector)

	var result *services.IngestionResult
	if *file != "" {
		result, err = ingestionService.IngestFile(ctx, *file, *batchSize)
	} else {
		result, err = ingestionService.IngestDirectory(ctx, *dataDir, *batchSize)
	}
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Total Files:        %d\n", result.TotalFiles)
	fmt.Printf("Total Records:      %d\n", result.TotalRecords)
	fmt.Printf("Inserted:           %d\n", result.Inserted)
	fmt.Printf("Skipped (existing): %d\n", result.Skipped)
	fmt.Printf("Failed:             %d\n", result.Failed)
	fmt.Printf("Duration:           %v\n", result.Duration)
	if secs := result.Duration.Seconds(); secs > 0 {
		fmt.Printf("Records/Second:     %.2f\n", float64(result.Inserted+result.Skipped)/secs)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed", logging.Fields{
		"total_records":    result.TotalRecords,
		"inserted":         result.Inserted,
		"skipped":          result.Skipped,
		"failed":           result.Failed,
		"duration_seconds": result.Duration.Seconds(),
	})
}
