package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/jobs"
	"storefront/internal/log"
	"storefront/internal/queue"
	"storefront/internal/repository"
	"storefront/internal/security"
	"storefront/internal/server"
	"storefront/internal/service"
	"storefront/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.LogLevel)

	ctx := context.Background()

	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(cfg.Postgres.DSN); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	publisher, closePublisher := newPublisher(cfg.Events, logger)
	producer := queue.NewProducer(redisClient, cfg.Worker.Stream, cfg.Worker.StreamMaxLen)

	users := repository.NewUserRepository(dbPool)
	sessions := repository.NewSessionRepository(dbPool)
	categories := repository.NewCategoryRepository(dbPool)
	products := repository.NewProductRepository(dbPool)
	carts := repository.NewCartRepository(dbPool)
	orders := repository.NewOrderRepository(dbPool)
	payments := repository.NewPaymentRepository(dbPool)
	reviews := repository.NewReviewRepository(dbPool)

	hasher := security.NewPasswordHasher(security.DefaultArgon2Params)
	tokens := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  cfg.Security.JWTAccessSecret,
		RefreshSecret: cfg.Security.JWTRefreshSecret,
		AccessTTL:     cfg.Security.JWTAccessTTL,
		RefreshTTL:    cfg.Security.JWTRefreshTTL,
	})

	svc := handlers.Services{
		Auth: service.NewAuthService(users, sessions, tokens, hasher, producer, service.AuthConfig{
			ResetCodeTTL:    cfg.Security.ResetCodeTTL,
			ResetCodeLength: cfg.Security.ResetCodeLength,
			ExposeResetCode: cfg.Security.ExposeResetCode,
		}, logger),
		Users:    service.NewUserService(users, hasher, logger),
		Catalog:  service.NewCatalogService(categories, products, logger),
		Images:   service.NewProductImageService(products, objectStore, cfg.HTTP.MaxUploadBytes, logger),
		Carts:    service.NewCartService(carts, logger),
		Orders:   service.NewOrderService(orders, carts, publisher, logger),
		Payments: service.NewPaymentService(payments, orders, publisher, logger),
		Reviews:  service.NewReviewService(reviews, logger),
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, svc,
		handlers.HealthCheck{Name: "postgres", Ping: dbPool.Ping},
		handlers.HealthCheck{Name: "redis", Ping: cache.Pinger(redisClient)},
		handlers.HealthCheck{Name: "storage", Ping: objectStore.Ping},
	)
	httpServer, err := server.NewHTTPServer(cfg, logger, handlerSet)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build http server")
	}

	scheduler := jobs.NewScheduler(producer, cfg.Jobs.SessionCleanupSpec, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient, closePublisher)
}

// newPublisher connects to RabbitMQ when a broker URL is configured. Without
// one, domain events are dropped.
func newPublisher(cfg config.EventsConfig, logger zerolog.Logger) (events.Publisher, func() error) {
	if cfg.AMQPURL == "" {
		logger.Info().Msg("events disabled, no amqp url configured")
		return events.Nop{}, func() error { return nil }
	}
	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect rabbitmq")
	}
	return publisher, publisher.Close
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	scheduler *jobs.Scheduler,
	db *pgxpool.Pool,
	redisClient *redis.Client,
	closePublisher func() error,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	if err := closePublisher(); err != nil {
		logger.Error().Err(err).Msg("event publisher close error")
	}
	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
