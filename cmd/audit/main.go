package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/leathercraft/inventory-service/internal/config"
	mongoRepo "github.com/leathercraft/inventory-service/internal/infrastructure/mongodb"
	"github.com/leathercraft/inventory-service/internal/maintenance"
	"github.com/leathercraft/inventory-service/pkg/cloudevents"
	"github.com/leathercraft/inventory-service/pkg/logging"
	"github.com/leathercraft/inventory-service/pkg/mongodb"
)

// Audit tool: scans every record and reports broken invariants. Exits 2
// when anything is found so it can gate a deploy.

const serviceName = "inventory-audit"

var (
	mongoURI = flag.String("mongo-uri", "", "MongoDB connection URI (defaults to MONGODB_URI / config)")
	dbName   = flag.String("db", "", "Database name (defaults to MONGODB_DATABASE / config)")
	asJSON   = flag.Bool("json", false, "Print the report as JSON")
	limit    = flag.Int("limit", 50, "Maximum number of findings to print")
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

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Output = os.Stderr
	logger := logging.New(logConfig)

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

	report, err := maintenance.Audit(ctx, repo)
	if err != nil {
		logger.WithError(err).Error("Audit failed")
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	} else {
		printReport(report, *limit)
	}

	if !report.Healthy() {
		os.Exit(2)
	}
}

func printReport(report *maintenance.AuditReport, limit int) {
	fmt.Printf("\n=== Stock Audit ===\n")
	fmt.Printf("Records scanned: %d\n", report.Scanned)

	if report.Healthy() {
		fmt.Println("No invariant violations found")
		return
	}

	fmt.Printf("Records with violations: %d\n\n", len(report.Findings))
	for i, f := range report.Findings {
		if i == limit {
			fmt.Printf("... %d more\n", len(report.Findings)-limit)
			break
		}
		fmt.Printf("%-36s  %-8s  %s\n", f.RecordID, f.ItemKind, f.ItemID)
		fmt.Printf("    %s\n", strings.Join(f.Violations, "\n    "))
	}
}
