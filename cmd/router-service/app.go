package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"streamrouter/internal/broker"
	"streamrouter/internal/config"
	"streamrouter/internal/config_handler"
	"streamrouter/internal/constants"
	"streamrouter/internal/logger"
	"streamrouter/internal/pipeline"
	"streamrouter/internal/routing"
	"streamrouter/internal/storage"
	"streamrouter/pkg/bootstrap"
	"streamrouter/pkg/cel"
	"streamrouter/pkg/circuitbreaker"
	"streamrouter/pkg/health"
	"streamrouter/pkg/logging"
	"streamrouter/pkg/metrics"
	"streamrouter/pkg/models"
	"streamrouter/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	mongoClient    *mongo.Client
	redisClient    *redis.Client
	snapshotStore  *storage.RedisSnapshotStore
	cache          *routing.StreamCache
	service        *pipeline.Service
	health         *health.CheckerRegistry
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
		health:      health.NewCheckerRegistry(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterRoutingMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	fetcher, err := a.initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	router, err := a.initRouting(ctx, fetcher)
	if err != nil {
		return fmt.Errorf("failed to initialize routing: %w", err)
	}

	if err := a.InitBroker(serviceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	outputTopic := a.Config.Broker.Kafka.OutputTopic
	if outputTopic == "" {
		outputTopic = constants.DefaultOutputTopic
	}
	a.service = pipeline.NewService(router, a.Producer, pipeline.Options{
		OutputTopic:     outputTopic,
		DefaultStreamID: a.Config.Routing.DefaultStreamID,
	}, a.Logger)

	a.initHTTPServer()
	return nil
}

// initStorage builds the fetch chain: Redis shared snapshot, then the circuit
// breaker, then the configured backend.
func (a *App) initStorage(ctx context.Context) (routing.StreamFetcher, error) {
	var fetcher routing.StreamFetcher

	switch a.Config.Storage.Backend {
	case constants.StorageBackendPostgres:
		db, err := a.dbConnector.InitPostgreSQL(ctx)
		if err != nil {
			return nil, err
		}
		if db == nil {
			return nil, fmt.Errorf("postgres backend selected but database.postgres.host is empty")
		}
		a.db = db
		a.health.Register(health.NewPostgreSQLChecker(db))
		fetcher = storage.NewPostgresRepository(db, serviceName)
	case constants.StorageBackendMongoDB, "":
		client, err := a.dbConnector.InitMongoDB(ctx)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, fmt.Errorf("mongodb backend selected but database.mongodb.uri is empty")
		}
		a.mongoClient = client
		a.health.Register(health.NewMongoDBChecker(client))
		fetcher = storage.NewMongoRepository(client.Database(a.mongoDatabaseName()), serviceName)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", a.Config.Storage.Backend)
	}

	if a.Config.CircuitBreaker.Enabled {
		breaker := circuitbreaker.NewWrapper(circuitbreaker.FromSettings(constants.CircuitBreakerStreamFetcher, a.Config.CircuitBreaker))
		fetcher = storage.NewCircuitBreakerFetcher(fetcher, breaker)
	}

	redisClient, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		a.Logger.WarnwCtx(ctx, "Redis unavailable, shared snapshot disabled", "error", err)
	} else if redisClient != nil {
		a.redisClient = redisClient
		a.health.Register(health.NewRedisChecker(redisClient))
		a.snapshotStore = storage.NewRedisSnapshotStore(redisClient, fetcher, a.Config.Routing.Cache.L2TTL, a.Logger)
		fetcher = a.snapshotStore
	}

	return fetcher, nil
}

func (a *App) initRouting(ctx context.Context, fetcher routing.StreamFetcher) (*routing.Router, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create expression evaluator: %w", err)
	}

	patternTTL := a.Config.Routing.Cache.PatternCacheTTL
	if patternTTL <= 0 {
		patternTTL = constants.DefaultPatternCacheTTL
	}
	patterns := routing.NewPatternCache(patternTTL, constants.DefaultPatternCacheCleanup, evaluator)
	registry := routing.NewRegistry(patterns)

	fetchTimeout := a.Config.Storage.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = constants.DefaultFetchTimeout
	}
	a.cache = routing.NewStreamCache(fetcher, routing.CacheOptions{
		TTL:                 a.Config.Routing.Cache.TTL,
		RefreshErrorBackoff: a.Config.Routing.Cache.RefreshErrorBackoff,
		FetchTimeout:        fetchTimeout,
	}, a.Logger)

	if err := a.cache.Reload(ctx); err != nil {
		initCtx := logging.WithServiceName(ctx, serviceName)
		a.Logger.WarnwCtx(initCtx, "Failed to load initial streams, will retry on first message",
			"error", err,
		)
	}

	a.health.Register(health.NewFuncChecker("stream_snapshot", a.checkSnapshot))

	return routing.NewRouter(a.cache, registry, a.Logger), nil
}

func (a *App) checkSnapshot(context.Context) error {
	snapshot := a.cache.Current()
	if snapshot == nil {
		return routing.ErrNoSnapshot
	}
	if !a.cache.Valid() {
		return fmt.Errorf("%w: serving snapshot loaded at %s", health.ErrDegraded, snapshot.LoadedAt.UTC().Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := a.health.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(h)
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      mux,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if topic := a.Config.Broker.Kafka.ConfigUpdateTopic; topic != "" {
		a.runConfigConsumer(gCtx, g, topic)
	}

	interval := a.Config.Routing.Cache.RefreshInterval
	if interval > 0 {
		g.Go(func() error {
			err := a.cache.Run(gCtx, interval, a.Config.Routing.Cache.RefreshJitter)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	inputTopic := a.Config.Broker.Kafka.InputTopic
	if inputTopic == "" {
		inputTopic = constants.DefaultInputTopic
	}
	g.Go(func() error {
		return a.Consumer.Consume(gCtx, inputTopic, a.service.HandleMessage)
	})

	return g.Wait()
}

// runConfigConsumer listens for stream changes. Every replica needs every
// event, so each one joins its own consumer group.
func (a *App) runConfigConsumer(ctx context.Context, g *errgroup.Group, topic string) {
	groupID := a.Config.Broker.Kafka.GroupID + "-config-" + uuid.NewString()
	consumer, err := broker.NewConsumer(a.Config.Broker, a.Logger, broker.WithGroupID(groupID), broker.WithoutDLQ())
	if err != nil {
		configCtx := logging.WithServiceName(ctx, serviceName)
		a.Logger.WarnwCtx(configCtx, "Failed to create config event consumer, event-driven reload disabled",
			"error", err,
		)
		return
	}
	consumer.SetServiceName(serviceName)

	handler := config_handler.NewHandler(models.ServiceTypeRouting, a.cache, a.Logger)
	if a.snapshotStore != nil {
		handler.WithShared(a.snapshotStore)
	}

	g.Go(func() error {
		defer consumer.Close()
		configCtx := logging.WithServiceName(ctx, serviceName)
		a.Logger.InfowCtx(configCtx, "Starting config update event consumer",
			"topic", topic,
			"group_id", groupID,
		)
		return consumer.Consume(ctx, topic, handler.HandleConfigUpdateEvent)
	})
}

func (a *App) mongoDatabaseName() string {
	if a.Config.Database.MongoDB.Database != "" {
		return a.Config.Database.MongoDB.Database
	}
	return constants.DefaultMongoDBName
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, serviceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down router service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redisClient, a.db, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
