package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"admissions-platform/internal/config"
	"admissions-platform/migrations"
	"admissions-platform/pkg/database"
	"admissions-platform/pkg/logging"
	"admissions-platform/pkg/metrics"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	name, schema, err := migrations.Schema(*direction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger("admissions-migrate", "1.0.0")
	ctx := context.Background()

	db, err := database.NewPostgresDB(cfg.Database.Postgres(), logger, metrics.NewCollector("admissions_migrate"))
	if err != nil {
		logger.Fatal(ctx, "[MIGRATE_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	logger.Info(ctx, "[MIGRATE_START] Running migration", logging.Fields{
		"migration": name,
	})

	if _, err := db.ExecContext(ctx, "migrate_"+*direction, schema); err != nil {
		db.Close()
		logger.Fatal(ctx, "[MIGRATE_ERROR] Failed to execute migration", logging.Fields{
			"migration": name,
		}, err)
	}

	logger.Info(ctx, "[MIGRATE_COMPLETE] Migration completed successfully", logging.Fields{
		"migration": name,
	})
}
