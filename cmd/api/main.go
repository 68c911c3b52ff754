package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/deskops/support-core/internal/api/http"
	"github.com/deskops/support-core/internal/api/http/handlers"
	"github.com/deskops/support-core/internal/auth"
	"github.com/deskops/support-core/internal/config"
	"github.com/deskops/support-core/internal/events"
	"github.com/deskops/support-core/internal/observability"
	"github.com/deskops/support-core/internal/persistence"
	"github.com/deskops/support-core/internal/repository"
	"github.com/deskops/support-core/internal/service"
	"github.com/deskops/support-core/internal/sla"
	"github.com/deskops/support-core/internal/worker"
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	dispatchStateRepo := repository.NewDispatchStateRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)

	policy := sla.NewPolicy(cfg.SLA)
	evaluator := sla.NewEvaluator(cfg.SLA.AtRiskFraction)

	dispatcher := events.NewInMemoryDispatcher()

	dispatchService := service.NewDispatchService(notificationRepo, dispatchStateRepo, logger, metrics)
	dispatchService.RegisterHandlers(dispatcher)

	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo:       ticketRepo,
		ActivityRepo:     activityRepo,
		ConversationRepo: conversationRepo,
		Policy:           policy,
		Dispatcher:       dispatcher,
	})

	badgeService := service.NewBadgeService(service.BadgeDependencies{
		TicketRepo:       ticketRepo,
		ConversationRepo: conversationRepo,
		Cache:            redis.ClientHandle(),
		Logger:           logger,
		Metrics:          metrics,
		OnAlert: func(alert service.BadgeAlert) {
			logger.Info("badge alert",
				zap.Int("unread_conversations", alert.Counts.UnreadConversations),
				zap.Int("urgent_or_breached", alert.Counts.UrgentOrBreachedTickets),
			)
		},
	})

	statsService := service.NewStatsService(ticketRepo, conversationRepo, evaluator, nil)
	authService := service.NewAuthService(cfg.Auth, agentRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), agentRepo)

	sweeper := worker.NewSLASweeper(ticketRepo, evaluator, dispatchService, logger, metrics, cfg.SLA.SweepInterval, nil)
	poller := worker.NewBadgePoller(badgeService, logger, cfg.Badge.PollInterval)
	go sweeper.Run(ctx)
	go poller.Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Agents:         handlers.NewAgentsHandler(authService),
		Tickets:        handlers.NewTicketsHandler(lifecycleService, evaluator),
		Notifications:  handlers.NewNotificationsHandler(notificationRepo),
		Stats:          handlers.NewStatsHandler(statsService, badgeService),
		Inbox:          handlers.NewInboxHandler(lifecycleService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = app.ShutdownWithContext(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
