package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leathercraft/inventory-service/internal/api"
	"github.com/leathercraft/inventory-service/internal/application"
	"github.com/leathercraft/inventory-service/internal/config"
	mongoRepo "github.com/leathercraft/inventory-service/internal/infrastructure/mongodb"
	"github.com/leathercraft/inventory-service/internal/stock"
	"github.com/leathercraft/inventory-service/pkg/cloudevents"
	"github.com/leathercraft/inventory-service/pkg/idempotency"
	"github.com/leathercraft/inventory-service/pkg/kafka"
	"github.com/leathercraft/inventory-service/pkg/logging"
	"github.com/leathercraft/inventory-service/pkg/metrics"
	"github.com/leathercraft/inventory-service/pkg/middleware"
	"github.com/leathercraft/inventory-service/pkg/mongodb"
	"github.com/leathercraft/inventory-service/pkg/outbox"
	pkgtemporal "github.com/leathercraft/inventory-service/pkg/temporal"
	"github.com/leathercraft/inventory-service/pkg/tracing"
)

const serviceName = "inventory-service"

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

	logger.Info("Starting inventory-service API", "ledgerCapacity", cfg.Engine.LedgerCapacity)
	ctx := context.Background()

	// Tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.Environment = cfg.Environment
	tracingConfig.Enabled = cfg.Tracing.Enabled
	tracingConfig.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	tracingConfig.SampleRate = cfg.Tracing.SampleRate

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		// keep serving without traces
		logger.WithError(err).Error("Failed to initialize tracing")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "enabled", tracingConfig.Enabled, "endpoint", tracingConfig.OTLPEndpoint)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	// MongoDB
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
	logger.Info("Connected to MongoDB", "database", mongoConfig.Database)

	eventFactory := cloudevents.NewEventFactory("/" + serviceName)
	repo := mongoRepo.NewRecordRepository(mongoClient.Database(), eventFactory)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Error("Failed to create indexes")
		os.Exit(1)
	}

	idempotencyStore := idempotency.NewMongoStore(mongoClient.Database())
	if err := idempotencyStore.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Error("Failed to create idempotency indexes")
		os.Exit(1)
	}

	// Kafka
	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = cfg.Kafka.Brokers
	kafkaConfig.ClientID = cfg.Kafka.ClientID
	producer := kafka.NewProductionProducer(kafkaConfig, m, logger)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", kafkaConfig.Brokers)

	outboxPublisher := outbox.NewPublisher(repo.OutboxRepository(), producer, logger, m, &outbox.PublisherConfig{
		PollInterval: cfg.Engine.OutboxPollInterval,
		BatchSize:    cfg.Engine.OutboxBatchSize,
	})
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()

	stockService := application.NewStockApplicationService(
		repo,
		stock.NewEngine(),
		stock.NewKeyedLocker(),
		m,
		logger,
		application.WithConflictRetries(cfg.Engine.ConflictRetries),
	)

	// Temporal is optional for the API; workflow routes answer 503 without it
	var starter pkgtemporal.WorkflowStarter
	temporalClient, err := pkgtemporal.NewClient(ctx, &pkgtemporal.Config{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Identity:  serviceName,
	}, logger.Logger)
	if err != nil {
		logger.WithError(err).Warn("Temporal unavailable, workflow routes disabled")
	} else {
		defer temporalClient.Close()
		starter = temporalClient
		logger.Info("Connected to Temporal", "hostPort", cfg.Temporal.HostPort, "namespace", cfg.Temporal.Namespace)
	}

	router := gin.New()
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middlewareConfig.Idempotency = idempotency.DefaultConfig(serviceName, idempotencyStore, logger)
	middlewareConfig.Idempotency.Metrics = m
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.TracingMiddleware(serviceName))
	router.NoRoute(middleware.NoRoute())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	handler := api.NewHandler(stockService, starter, cfg.Temporal.TaskQueue, m, logger)
	handler.RegisterRoutes(router.Group("/api/v1"))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", cfg.Server.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	logger.Info("Server exited")
}
