package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"streamrouter/internal/broker"
	"streamrouter/internal/config"
	"streamrouter/internal/constants"
	"streamrouter/internal/logger"
	"streamrouter/internal/management"
	"streamrouter/internal/routing"
	"streamrouter/internal/storage"
	"streamrouter/pkg/bootstrap"
	"streamrouter/pkg/cel"
	"streamrouter/pkg/health"
	"streamrouter/pkg/metrics"
	"streamrouter/pkg/middleware"
	"streamrouter/pkg/migrations"
	"streamrouter/pkg/ratelimit"
	"streamrouter/pkg/tracing"
)

type App struct {
	config         *config.Config
	logger         logger.Logger
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	mongoClient    *mongo.Client
	producer       broker.Producer
	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &App{
		config:      cfg,
		logger:      log,
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	if err := a.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := a.initRouter(ctx); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	return nil
}

// initDatabase connects MongoDB, which holds streams, rules and the audit
// log. PostgreSQL is only touched to keep the read-only routing schema
// migrated for routers running on that backend.
func (a *App) initDatabase(ctx context.Context) error {
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	mongoClient, err := a.dbConnector.InitMongoDB(initCtx)
	if err != nil {
		return err
	}
	if mongoClient == nil {
		return fmt.Errorf("database.mongodb.uri is required")
	}
	a.mongoClient = mongoClient

	if err := migrations.EnsureMongoIndexes(initCtx, a.mongoDatabase()); err != nil {
		return fmt.Errorf("failed to ensure MongoDB indexes: %w", err)
	}

	if a.config.Database.RunMigrations {
		db, err := a.dbConnector.InitPostgreSQL(initCtx)
		if err != nil {
			return err
		}
		if db != nil {
			a.db = db
			if err := migrations.RunPostgres(db); err != nil {
				return fmt.Errorf("failed to run PostgreSQL migrations: %w", err)
			}
			a.logger.InfowCtx(ctx, "PostgreSQL migrations applied")
		}
	}

	return nil
}

func (a *App) mongoDatabase() *mongo.Database {
	dbName := a.config.Database.MongoDB.Database
	if dbName == "" {
		dbName = constants.DefaultMongoDBName
	}
	return a.mongoClient.Database(dbName)
}

func (a *App) initRouter(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(serviceName))
	}

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.ActorMiddleware())

	if a.config.Management.RateLimit.Enabled {
		rateLimitConfig := ratelimit.FromConfig(a.config.Management.RateLimit)
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
		a.logger.InfowCtx(ctx, "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create expression evaluator: %w", err)
	}
	patterns := routing.NewPatternCache(constants.DefaultPatternCacheTTL, constants.DefaultPatternCacheCleanup, evaluator)
	registry := routing.NewRegistry(patterns)

	mongoDB := a.mongoDatabase()
	repo := storage.NewMongoRepository(mongoDB, serviceName)

	opts := []management.ServiceOption{
		management.WithAuditLog(storage.NewMongoAuditLog(mongoDB, serviceName)),
		management.WithLogger(a.logger),
	}

	if a.config.Broker.Type == "kafka" && a.config.Broker.Kafka.ConfigUpdateTopic != "" {
		producer, err := broker.NewProducer(a.config.Broker, a.logger)
		if err != nil {
			a.logger.WarnwCtx(ctx, "Failed to create config event producer, config events will be disabled", "error", err)
		} else {
			a.producer = producer
			opts = append(opts, management.WithConfigEvents(management.NewConfigEventProducer(producer, a.config.Broker.Kafka.ConfigUpdateTopic)))
			a.logger.InfowCtx(ctx, "Config event producer initialized", "topic", a.config.Broker.Kafka.ConfigUpdateTopic)
		}
	}

	svc := management.NewService(repo, registry, patterns, opts...)
	management.NewHandler(svc, a.logger).RegisterRoutes(router)

	metrics.RegisterManagementMetrics()
	metrics.RegisterBrokerMetrics()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	if a.db != nil {
		healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
	return nil
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.InfowCtx(ctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(ctx)
	case err := <-errChan:
		_ = a.Shutdown(ctx)
		return err
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
	}

	dbErrs := a.dbConnector.ShutdownDatabases(shutdownCtx, nil, a.db, a.mongoClient)
	errs = append(errs, dbErrs...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Server exited successfully")
	return nil
}
