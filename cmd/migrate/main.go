package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/leathercraft/inventory-service/internal/config"
	mongoRepo "github.com/leathercraft/inventory-service/internal/infrastructure/mongodb"
	"github.com/leathercraft/inventory-service/internal/maintenance"
	"github.com/leathercraft/inventory-service/pkg/cloudevents"
	"github.com/leathercraft/inventory-service/pkg/logging"
	"github.com/leathercraft/inventory-service/pkg/mongodb"
)

// Migration tool: re-derives status and trims ledgers past capacity for
// records written by older builds

const serviceName = "inventory-migrate"

var (
	mongoURI = flag.String("mongo-uri", "", "MongoDB connection URI (defaults to MONGODB_URI / config)")
	dbName   = flag.String("db", "", "Database name (defaults to MONGODB_DATABASE / config)")
	dryRun   = flag.Bool("dry-run", true, "Dry run mode (no actual writes)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *mongoURI != "" {
		cfg.MongoDB.URI = *mongoURI
	}
	if *dbName != "" {
		cfg.MongoDB.Database = *dbName
	}

	logger := logging.New(logging.DefaultConfig(serviceName))
	logger.Info("Starting record migration", "database", cfg.MongoDB.Database, "dryRun", *dryRun)

	ctx := context.Background()
	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = cfg.MongoDB.URI
	mongoConfig.Database = cfg.MongoDB.Database
	mongoConfig.ConnectTimeout = cfg.MongoDB.ConnectTimeout

	client, err := mongodb.NewClient(ctx, mongoConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer client.Close(context.Background())

	repo := mongoRepo.NewRecordRepository(client.Database(), cloudevents.NewEventFactory("/"+serviceName))

	report, err := maintenance.NewMigrator(repo, logger, *dryRun).Run(ctx)
	if err != nil {
		logger.WithError(err).Error("Migration failed")
		os.Exit(1)
	}

	fmt.Println("\n=== Migration Summary ===")
	fmt.Printf("Records scanned:     %d\n", report.Scanned)
	fmt.Printf("Status re-derived:   %d\n", report.StatusFixed)
	fmt.Printf("Ledgers trimmed:     %d (%d entries dropped)\n", report.LedgersTrimmed, report.EntriesDropped)

	if report.DryRun {
		fmt.Println("\nDRY RUN MODE - no changes were made")
		fmt.Println("Run with -dry-run=false to apply")
		return
	}

	fmt.Printf("Records saved:       %d\n", report.Saved)
	fmt.Printf("Save failures:       %d\n", report.Failed)
	if report.Failed > 0 {
		os.Exit(1)
	}
}
