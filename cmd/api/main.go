package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/kursadbilgin/crm-engine/internal/config"
	"github.com/kursadbilgin/crm-engine/internal/handler"
	"github.com/kursadbilgin/crm-engine/internal/infra/postgresql"
	"github.com/kursadbilgin/crm-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/crm-engine/internal/infra/redis"
	"github.com/kursadbilgin/crm-engine/internal/observability"
	"github.com/kursadbilgin/crm-engine/internal/provider"
	"github.com/kursadbilgin/crm-engine/internal/repository"
	"github.com/kursadbilgin/crm-engine/internal/service"
	"github.com/kursadbilgin/crm-engine/internal/transport"
	"github.com/kursadbilgin/crm-engine/internal/vault"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.SendRateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	credentialVault, err := vault.New(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal("credential vault initialization failed", zap.Error(err))
	}

	configRepo := repository.NewGormProviderConfigRepo(db)
	messageRepo := repository.NewGormMessageRepo(db)
	invoiceRepo := repository.NewGormInvoiceRepo(db)

	providerService, err := service.NewProviderService(configRepo, credentialVault, logger)
	if err != nil {
		logger.Fatal("provider service initialization failed", zap.Error(err))
	}

	dispatcher, err := service.NewDispatcher(providerService, provider.NewRegistry(), messageRepo, limiter, logger)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}

	scheduler, err := service.NewRecurrenceScheduler(
		invoiceRepo,
		time.Duration(cfg.RecurrenceSweepIntervalHours)*time.Hour,
		time.Duration(cfg.RecurrenceStartupDelaySeconds)*time.Second,
		cfg.RecurrenceScanLimit,
		logger,
	)
	if err != nil {
		logger.Fatal("recurrence scheduler initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher.SetMetrics(metrics)
	scheduler.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(correlationMiddleware())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterMessageRoutes(app, dispatcher, messageRepo); err != nil {
		logger.Fatal("message routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterProviderRoutes(app, providerService); err != nil {
		logger.Fatal("provider routes registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("crm-engine api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		err := scheduler.Start(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-groupCtx.Done()
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("crm-engine api terminated", zap.Error(err))
	}

	logger.Info("crm-engine api stopped")
}

// correlationMiddleware threads an X-Correlation-ID through the request
// context, minting one when the caller did not supply it.
func correlationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		correlationID := c.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), correlationID))
		c.Set("X-Correlation-ID", correlationID)
		return c.Next()
	}
}
