package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leathercraft/inventory-service/internal/application"
	"github.com/leathercraft/inventory-service/internal/config"
	mongoRepo "github.com/leathercraft/inventory-service/internal/infrastructure/mongodb"
	"github.com/leathercraft/inventory-service/internal/stock"
	"github.com/leathercraft/inventory-service/internal/workflows"
	"github.com/leathercraft/inventory-service/pkg/cloudevents"
	"github.com/leathercraft/inventory-service/pkg/logging"
	"github.com/leathercraft/inventory-service/pkg/metrics"
	"github.com/leathercraft/inventory-service/pkg/mongodb"
	pkgtemporal "github.com/leathercraft/inventory-service/pkg/temporal"
)

const serviceName = "inventory-worker"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		logging.New(logging.DefaultConfig(serviceName)).WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(cfg.LogLevel)
	logConfig.Environment = cfg.Environment
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting stock worker")
	ctx := context.Background()

	m := metrics.New(metrics.DefaultConfig(serviceName))

	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = cfg.MongoDB.URI
	mongoConfig.Database = cfg.MongoDB.Database
	mongoConfig.ConnectTimeout = cfg.MongoDB.ConnectTimeout
	mongoConfig.MaxPoolSize = cfg.MongoDB.MaxPoolSize
	mongoConfig.MinPoolSize = cfg.MongoDB.MinPoolSize

	mongoClient, err := mongodb.NewClient(ctx, mongoConfig,
		mongodb.WithMonitor(mongodb.NewCommandMonitor(mongoConfig.Database, m, logger)))
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(context.Background())

	// events written here are published by the API's outbox publisher
	repo := mongoRepo.NewRecordRepository(mongoClient.Database(), cloudevents.NewEventFactory("/"+serviceName))

	stockService := application.NewStockApplicationService(
		repo,
		stock.NewEngine(),
		stock.NewKeyedLocker(),
		m,
		logger,
		application.WithConflictRetries(cfg.Engine.ConflictRetries),
	)

	temporalClient, err := pkgtemporal.NewClient(ctx, &pkgtemporal.Config{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Identity:  serviceName,
	}, logger.Logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create Temporal client")
		os.Exit(1)
	}
	defer temporalClient.Close()
	logger.Info("Connected to Temporal", "hostPort", cfg.Temporal.HostPort, "namespace", cfg.Temporal.Namespace)

	w := temporalClient.NewWorker(pkgtemporal.DefaultWorkerOptions(cfg.Temporal.TaskQueue))

	w.RegisterWorkflow(workflows.ProductionOrderMaterialsWorkflow)
	w.RegisterWorkflow(workflows.CycleCountWorkflow)
	logger.Info("Registered workflows", "workflows", []string{
		pkgtemporal.WorkflowNames.ProductionOrderMaterials,
		pkgtemporal.WorkflowNames.CycleCount,
	})

	w.RegisterActivity(workflows.NewStockActivities(stockService, logger))
	logger.Info("Registered activities", "activities", []string{
		workflows.ActivityReserveMaterial,
		workflows.ActivityReleaseMaterial,
		workflows.ActivityConsumeMaterial,
		workflows.ActivityReconcileCount,
	})

	if err := w.Start(); err != nil {
		logger.WithError(err).Error("Worker failed to start")
		os.Exit(1)
	}
	logger.Info("Worker started", "taskQueue", cfg.Temporal.TaskQueue)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")

	w.Stop()
	logger.Info("Worker stopped")
}
