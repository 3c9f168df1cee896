package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/supportbase/keel/internal/api/http"
	"github.com/supportbase/keel/internal/api/http/handlers"
	"github.com/supportbase/keel/internal/auth"
	"github.com/supportbase/keel/internal/config"
	"github.com/supportbase/keel/internal/ingest"
	"github.com/supportbase/keel/internal/observability"
	"github.com/supportbase/keel/internal/persistence"
	"github.com/supportbase/keel/internal/push"
	"github.com/supportbase/keel/internal/realtime"
	"github.com/supportbase/keel/internal/repository"
	"github.com/supportbase/keel/internal/service"
	"github.com/supportbase/keel/internal/shopify"
	"github.com/supportbase/keel/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)

	shopifyClient := shopify.NewClient(cfg.Shopify)
	resolver := shopify.NewResolver(shopifyClient, redis.Client, cfg.Shopify.CacheTTL(), logger)

	broadcaster := realtime.NewBroadcaster(cfg.Inbox.SubscriberBufferSize, logger)

	expoClient := push.NewExpoClient(cfg.Push.ExpoURL)
	webPushClient := push.NewWebPushClient(cfg.Push, logger)

	notificationService := service.NewNotificationService(agentRepo, expoClient, webPushClient, logger, metrics)
	threadingService := service.NewThreadingService(ticketRepo, messageRepo, cfg.Inbox.ReopenWindow(), logger)
	ticketService := service.NewTicketService(ticketRepo, messageRepo)
	authService := service.NewAuthService(cfg.Auth, agentRepo)
	agentService := service.NewAgentService(agentRepo, logger)

	pipeline := ingest.NewPipeline(resolver, broadcaster, notificationService, threadingService, logger, metrics)

	sweeper := worker.NewSweeper(threadingService, cfg.Inbox.SweepInterval(), logger)
	sweeper.Start(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), agentRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Webhooks:       handlers.NewWebhooksHandler(pipeline, logger),
		Events:         handlers.NewEventsHandler(broadcaster, cfg.Inbox.KeepAlive()),
		Push:           handlers.NewPushHandler(agentService, webPushClient),
		Customers:      handlers.NewCustomersHandler(resolver),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	broadcaster.Shutdown()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
