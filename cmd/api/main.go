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

	httptransport "github.com/spec-kit/compliance-core/internal/api/http"
	"github.com/spec-kit/compliance-core/internal/api/http/handlers"
	"github.com/spec-kit/compliance-core/internal/config"
	"github.com/spec-kit/compliance-core/internal/domain"
	"github.com/spec-kit/compliance-core/internal/events"
	"github.com/spec-kit/compliance-core/internal/observability"
	"github.com/spec-kit/compliance-core/internal/persistence"
	"github.com/spec-kit/compliance-core/internal/repository"
	"github.com/spec-kit/compliance-core/internal/scheduler"
	"github.com/spec-kit/compliance-core/internal/service"
	"github.com/spec-kit/compliance-core/internal/worker"
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
	registry := scheduler.NewRegistry()

	var taskScheduler scheduler.Scheduler
	var taskWorker *scheduler.Worker
	if err := redis.Ping(ctx); err == nil {
		retention := time.Duration(cfg.Scheduler.TaskRetentionHours) * time.Hour
		redisScheduler := scheduler.NewRedisScheduler(redis.Client, cfg.Scheduler.KeyPrefix, retention, logger)
		taskWorker = scheduler.NewWorker(redisScheduler, registry, logger, metrics,
			cfg.Scheduler.PollInterval(), cfg.Scheduler.WorkerCount)
		taskScheduler = redisScheduler
	} else {
		logger.Warn("redis unreachable; falling back to in-memory scheduler")
		taskScheduler = scheduler.NewMemoryScheduler(registry, logger)
	}

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	itemRepo := repository.NewTicketItemRepository(pool)
	forensicRepo := repository.NewForensicRepository(pool)
	whitelistRepo := repository.NewWhitelistRepository(pool)
	providerRepo := repository.NewProviderRepository(pool)
	ddaRepo := repository.NewDDARepository(pool)
	logRepo := repository.NewTicketLogRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	itemSettings := domain.TicketItemSettings{UpdateMaxTime: cfg.Ticket.ItemUpdateMaxSeconds}
	relationService := service.NewRelationService(itemRepo, whitelistRepo, itemSettings, logger)
	forensicService := service.NewForensicService(forensicRepo, logger)

	ticketService := service.NewTicketService(cfg.Ticket, service.TicketDependencies{
		TicketRepo:    ticketRepo,
		TicketLogRepo: logRepo,
		ProviderRepo:  providerRepo,
		DDARepo:       ddaRepo,
		Relations:     relationService,
		Forensic:      forensicService,
		Scheduler:     taskScheduler,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
	})

	taskHandlers := service.NewTaskHandlers(service.TaskHandlerDependencies{
		TicketRepo:    ticketRepo,
		TicketLogRepo: logRepo,
		Relations:     relationService,
		Forensic:      forensicService,
		Scheduler:     taskScheduler,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	taskHandlers.Register(registry)

	auditService := service.NewAuditService(dispatcher, logRepo, logger)
	worker.StartAuditWorker(auditService)

	if taskWorker != nil {
		taskWorker.Start(ctx)
		defer taskWorker.Stop()
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	ticketsHandler := handlers.NewTicketsHandler(ticketService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  healthHandler,
		Tickets: ticketsHandler,
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
