package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/seu-repo/wasteledger/internal/adapter/http/fiber/handlers"
	"github.com/seu-repo/wasteledger/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/wasteledger/internal/adapter/queue"
	"github.com/seu-repo/wasteledger/internal/adapter/storage/postgres"
	"github.com/seu-repo/wasteledger/internal/observability/telemetry"
	"github.com/seu-repo/wasteledger/internal/service/auth"
	"github.com/seu-repo/wasteledger/internal/service/health"
	"github.com/seu-repo/wasteledger/internal/service/transaction"
	"github.com/seu-repo/wasteledger/pkg/config"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// 2. Initialize Logger
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	logger.Info("Starting wasteledger",
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	// 3. Secrets from Vault override the config file
	if cfg.Vault.Enabled {
		if err := applyVaultSecrets(cfg, logger); err != nil {
			logger.Fatal("Failed to load secrets from Vault", zap.Error(err))
		}
	}

	// 4. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(
			cfg.OpenTelemetry.ServiceName,
			cfg.App.Version,
			cfg.OpenTelemetry.Jaeger.Endpoint,
			cfg.OpenTelemetry.Jaeger.SamplerParam,
		)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	// 5. Initialize Database
	db, err := postgres.NewConnection(cfg.Database.URL, postgres.Options{
		Driver:          cfg.Database.Driver,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogQueries:      cfg.Database.LogQueries,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer postgres.Close(db)

	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(db); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	// 6. Initialize Redis (optional) and the recognition cache
	redisClient, recognitionCache, err := newCache(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer recognitionCache.Close()

	// 7. Initialize Message Queue
	messageQueue, err := queue.New(queue.Config{
		Driver:      cfg.Queue.Driver,
		NATSURL:     cfg.NATS.URL,
		RabbitMQURL: cfg.RabbitMQ.URL,
		Exchange:    cfg.RabbitMQ.Exchange,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to message queue", zap.Error(err))
	}
	defer messageQueue.Close()

	// 8. Initialize Repositories
	transactionRepo := postgres.NewTransactionRepository(db, logger)
	sequence, err := newSequenceAllocator(cfg.Transactions.SequenceBackend, db, redisClient, transactionRepo, logger)
	if err != nil {
		logger.Fatal("Failed to initialize sequence allocator", zap.Error(err))
	}

	// 9. Initialize Recognition Pipeline
	pipeline, breakers := newRecognitionPipeline(cfg.Recognition, recognitionCache, logger)

	// 10. Initialize Services (Business Logic Layer)
	loc, err := time.LoadLocation(cfg.Transactions.Timezone)
	if err != nil {
		logger.Fatal("Invalid transactions timezone", zap.Error(err))
	}
	rates, err := transaction.RatesFromConfig(cfg.Billing.Rates)
	if err != nil {
		logger.Fatal("Invalid billing rates", zap.Error(err))
	}

	idGenerator := transaction.NewIDGenerator(sequence, loc)
	transactionService := transaction.NewService(
		transactionRepo,
		idGenerator,
		pipeline,
		transaction.NewCredentialVerifier(),
		messageQueue,
		cfg.Transactions.CalibrationTolerance,
		logger,
	)
	billingService := transaction.NewBillingService(transactionRepo, messageQueue, &transaction.BillingConfig{
		Currency: cfg.Billing.Currency,
		Rates:    rates,
	}, logger)

	// 11. Health checks
	healthService := health.NewService(cfg.App.Version, logger)
	healthService.RegisterPing("database", true, transactionRepo.Ping)
	if redisClient != nil {
		healthService.RegisterPing("redis", cfg.Transactions.SequenceBackend == "redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if checker, ok := messageQueue.(queue.Checker); ok {
		healthService.RegisterPing("queue", false, func(ctx context.Context) error {
			return checker.Ready()
		})
	}
	for name, client := range breakers {
		healthService.RegisterPing("provider_"+name, false, breakerCheck(client))
	}

	// 12. Initialize Fiber HTTP Server
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ServerHeader:          cfg.App.Name,
		DisableStartupMessage: true,
		BodyLimit:             cfg.HTTP.BodyLimit,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	// Global Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(middleware.RequestContext(cfg.HTTP.RequestTimeout))
	if cfg.CORS.Enabled {
		app.Use(middleware.NewCORS(cfg.CORS))
	}

	health.NewFiberHandler(healthService).RegisterRoutes(app)

	// API v1 Routes
	v1 := app.Group("/api/v1")
	if cfg.CircuitBreaker.Enabled {
		v1.Use(middleware.CircuitBreaker(middleware.CircuitBreakerConfig{
			MaxRequests:  uint32(cfg.CircuitBreaker.MaxRequests),
			Interval:     cfg.CircuitBreaker.Interval,
			Timeout:      cfg.CircuitBreaker.Timeout,
			FailureRatio: cfg.CircuitBreaker.FailureThreshold,
		}, logger))
	}
	if cfg.JWT.Secret != "" {
		validator := auth.NewTokenValidator(cfg.JWT.Secret, cfg.JWT.Issuer, recognitionCache, logger)
		v1.Use(middleware.AuthRequired(validator))
	} else {
		logger.Warn("jwt.secret is empty, /api/v1 is not authenticated")
	}
	if cfg.RateLimiting.Enabled {
		v1.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Max:    cfg.RateLimiting.MaxRequests,
			Window: cfg.RateLimiting.Window,
		}))
	}

	handlers.NewTransactionHandler(transactionService, logger).Register(v1)
	handlers.NewBillingHandler(billingService, logger).Register(v1)

	// 13. Start Background Workers
	startEventAudit(messageQueue, logger)

	// 14. Start HTTP Server
	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	// 15. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}
