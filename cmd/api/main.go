package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/equipdesk/equipdesk/internal/api/http"
	"github.com/equipdesk/equipdesk/internal/api/http/handlers"
	"github.com/equipdesk/equipdesk/internal/auth"
	"github.com/equipdesk/equipdesk/internal/cache"
	"github.com/equipdesk/equipdesk/internal/config"
	"github.com/equipdesk/equipdesk/internal/events"
	"github.com/equipdesk/equipdesk/internal/observability"
	"github.com/equipdesk/equipdesk/internal/persistence"
	"github.com/equipdesk/equipdesk/internal/push"
	"github.com/equipdesk/equipdesk/internal/repository"
	"github.com/equipdesk/equipdesk/internal/service"
	"github.com/equipdesk/equipdesk/internal/worker"
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

	rds := persistence.NewRedis(cfg.Redis, logger)
	defer rds.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	chatRepo := repository.NewChatRepository(pool)
	technicianRepo := repository.NewTechnicianRepository(pool)
	administratorRepo := repository.NewAdministratorRepository(pool)
	employeeRepo := repository.NewEmployeeRepository(pool)
	locationRepo := repository.NewLocationRepository(pool)
	equipmentRepo := repository.NewEquipmentRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	hub := push.NewHub(logger, push.WithDeliveryHook(metrics.PushDeliveryHook()))
	hub.Bind(dispatcher)
	defer hub.Close()

	bridge := push.NewBridge(rds.Client, cfg.Push.Channel, logger)
	bridge.BindPublisher(dispatcher)
	go bridge.Listen(ctx, hub)

	cacheLayer := cache.New(logger,
		cache.WithRemoteStore(cache.NewRedisStore(rds.Client, cfg.Cache.RemotePrefix)),
		cache.WithLookupHook(metrics.CacheLookupHook()),
	)

	ticketService := service.NewTicketService(service.TicketServiceDeps{
		Tickets:     ticketRepo,
		Technicians: technicianRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	chatService := service.NewChatService(service.ChatServiceDeps{
		Tickets:    ticketRepo,
		Messages:   chatRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	directoryService := service.NewDirectoryService(service.DirectoryServiceDeps{
		Locations:   locationRepo,
		Equipment:   equipmentRepo,
		Tickets:     ticketRepo,
		Technicians: technicianRepo,
		Cache:       cacheLayer,
		TTL:         cfg.Cache,
	})
	feedbackService := service.NewFeedbackService(service.FeedbackServiceDeps{
		Tickets:  ticketRepo,
		Feedback: feedbackRepo,
	})
	dashboardService := service.NewDashboardService(service.DashboardServiceDeps{
		Tickets: ticketRepo,
		Cache:   cacheLayer,
		TTL:     cfg.Cache,
	})
	worker.StartNotificationWorker(service.NewNotificationService(logger), dispatcher)

	resolver := auth.NewResolver(technicianRepo, administratorRepo, employeeRepo)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokens)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, rds),
		Auth:           handlers.NewAuthHandler(resolver, tokens, cacheLayer),
		Tickets:        handlers.NewTicketsHandler(ticketService, metrics),
		Chat:           handlers.NewChatHandler(chatService, feedbackService),
		Directory:      handlers.NewDirectoryHandler(directoryService, dashboardService),
		Stream:         handlers.NewStreamHandler(hub, cacheLayer, ticketRepo, logger),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
