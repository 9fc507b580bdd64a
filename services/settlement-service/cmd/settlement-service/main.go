package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/isectech/bulkshare/pkg/logging"
	"github.com/isectech/bulkshare/pkg/metrics"
	httpdelivery "github.com/isectech/bulkshare/services/settlement-service/delivery/http"
	"github.com/isectech/bulkshare/services/settlement-service/domain/repository"
	"github.com/isectech/bulkshare/services/settlement-service/infrastructure/cache"
	"github.com/isectech/bulkshare/services/settlement-service/infrastructure/messaging"
	"github.com/isectech/bulkshare/services/settlement-service/infrastructure/store"
	"github.com/isectech/bulkshare/services/settlement-service/usecase"
	"github.com/isectech/bulkshare/shared/common"
	"github.com/isectech/bulkshare/shared/database/mongodb"
	"github.com/isectech/bulkshare/shared/database/redis"
)

const (
	serviceName = "settlement-service"
	version     = "1.0.0"
)

// Application wires the settlement service together
type Application struct {
	config  *common.Config
	logger  *logging.Logger
	metrics *metrics.Collector

	documents repository.DocumentStore
	health    repository.HealthChecker
	lookups   repository.OrderLookupRepository
	publisher usecase.EventPublisher

	httpServer *httpdelivery.SettlementHTTPServer

	closers []func(ctx context.Context) error
}

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	app := &Application{}

	if err := app.Initialize(*configPath); err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.httpServer.Start()
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdownCh:
		app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			app.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}

	if err := app.Shutdown(); err != nil {
		app.logger.Error("Error during shutdown", zap.Error(err))
		os.Exit(1)
	}

	app.logger.Info("Application shutdown complete")
	app.logger.Cleanup()
}

// Initialize builds every component from configuration
func (app *Application) Initialize(configPath string) error {
	var err error

	app.config, err = common.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app.logger, err = logging.NewLogger(logging.Config{
		Level:       app.config.Logging.Level,
		Format:      app.config.Logging.Format,
		Output:      app.config.Logging.Output,
		ServiceName: serviceName,
		Development: app.config.Service.Environment == "development",
	})
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	app.logger.Info("Starting settlement service",
		zap.String("version", version),
		zap.String("environment", app.config.Service.Environment),
		zap.String("storage_driver", app.config.Storage.Driver))

	if app.config.Metrics.Enabled {
		app.metrics = metrics.NewCollector(app.config.Metrics.Namespace)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.initStorage(ctx); err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}

	if err := app.initCache(ctx); err != nil {
		return fmt.Errorf("failed to init cache: %w", err)
	}

	app.initMessaging()
	app.initServer()

	app.logger.Info("Application initialization complete")
	return nil
}

func (app *Application) initStorage(ctx context.Context) error {
	switch app.config.Storage.Driver {
	case common.StorageDriverMongoDB:
		cfg := mongodb.DefaultConfig()
		cfg.URI = app.config.Storage.MongoDB.URI
		cfg.Database = app.config.Storage.MongoDB.Database
		cfg.MaxPoolSize = app.config.Storage.MongoDB.MaxPoolSize
		cfg.MinPoolSize = app.config.Storage.MongoDB.MinPoolSize
		cfg.ConnectTimeout = app.config.Storage.MongoDB.ConnectTimeout
		cfg.Authentication.Username = app.config.Storage.MongoDB.Username
		cfg.Authentication.Password = app.config.Storage.MongoDB.Password

		client, err := mongodb.NewClient(ctx, cfg, app.logger.Logger)
		if err != nil {
			return err
		}
		mongoStore := store.NewMongoStore(client)
		app.documents, app.health = mongoStore, mongoStore
		app.closers = append(app.closers, client.Close)

	case common.StorageDriverPostgreSQL:
		pgStore, err := store.NewPostgresStore(ctx, app.config.Storage.PostgreSQL)
		if err != nil {
			return err
		}
		app.documents, app.health = pgStore, pgStore
		app.closers = append(app.closers, func(context.Context) error { return pgStore.Close() })

	default:
		app.logger.Warn("Using in-memory storage; data is lost on restart")
		memStore := store.NewMemoryStore()
		app.documents, app.health = memStore, memStore
	}

	app.lookups = store.NewOrderLookupRepository(app.documents)
	return nil
}

func (app *Application) initCache(ctx context.Context) error {
	redisCfg := app.config.Cache.Redis
	if !redisCfg.Enabled {
		return nil
	}

	cfg := redis.DefaultConfig()
	cfg.Address = fmt.Sprintf("%s:%d", redisCfg.Host, redisCfg.Port)
	cfg.Password = redisCfg.Password
	cfg.DB = redisCfg.Database
	cfg.MaxRetries = redisCfg.MaxRetries
	cfg.PoolSize = redisCfg.PoolSize
	cfg.IdleTimeout = redisCfg.IdleTimeout

	client, err := redis.NewClient(ctx, cfg, app.logger.Logger)
	if err != nil {
		return err
	}

	app.lookups = cache.NewCachedOrderLookup(app.lookups, client, cfg.KeyPrefix, redisCfg.LookupTTL, app.logger, app.metrics)
	app.closers = append(app.closers, func(context.Context) error { return client.Close() })
	return nil
}

func (app *Application) initMessaging() {
	kafkaCfg := app.config.MessageQueue.Kafka
	if len(kafkaCfg.Brokers) == 0 {
		app.logger.Info("No Kafka brokers configured; settlement events are not published")
		app.publisher = messaging.NoopPublisher{}
		return
	}

	publisher := messaging.NewKafkaEventPublisher(messaging.KafkaPublisherConfig{
		Brokers:      kafkaCfg.Brokers,
		ClientID:     kafkaCfg.ClientID,
		Topic:        kafkaCfg.Topic,
		BatchTimeout: kafkaCfg.BatchTimeout,
		WriteTimeout: kafkaCfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(kafkaCfg.RequiredAcks),
	}, app.logger, app.metrics)

	app.publisher = publisher
	app.closers = append(app.closers, func(context.Context) error { return publisher.Close() })
}

func (app *Application) initServer() {
	if app.config.Service.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	settlements := store.NewSettlementRepository(app.documents)
	listings := store.NewListingRepository(app.documents)

	writer := usecase.NewSettlementWriter(settlements, app.publisher, app.logger, app.metrics)
	lifecycle := usecase.NewTransactionLifecycle(app.lookups, listings, settlements, app.publisher, app.logger, app.metrics)

	app.httpServer = httpdelivery.NewSettlementHTTPServer(
		writer,
		lifecycle,
		app.health,
		app.logger,
		app.metrics,
		httpdelivery.ConfigFromCommon(app.config),
	)
}

// Shutdown stops the server, then releases connections in reverse order
func (app *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout+5*time.Second)
	defer cancel()

	var firstErr error
	if err := app.httpServer.Shutdown(ctx); err != nil {
		firstErr = err
	}

	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](ctx); err != nil {
			app.logger.Error("Failed to close resource", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
