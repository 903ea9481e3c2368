package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/solicitudes-service/internal/api/http"
	"github.com/spec-kit/solicitudes-service/internal/api/http/handlers"
	"github.com/spec-kit/solicitudes-service/internal/auth"
	"github.com/spec-kit/solicitudes-service/internal/cache"
	"github.com/spec-kit/solicitudes-service/internal/config"
	"github.com/spec-kit/solicitudes-service/internal/events"
	"github.com/spec-kit/solicitudes-service/internal/observability"
	"github.com/spec-kit/solicitudes-service/internal/persistence"
	"github.com/spec-kit/solicitudes-service/internal/repository"
	"github.com/spec-kit/solicitudes-service/internal/service"
	"github.com/spec-kit/solicitudes-service/internal/worker"
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

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	telephonyRepo := repository.NewTelephonyRepository(pool)
	travelRepo := repository.NewTravelRepository(pool)
	proposalRepo := repository.NewProposalRepository(pool)
	deviceRepo := repository.NewDeviceRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	travelCache := cache.NewTravelCache(redis.Client, cfg.Workflow.CacheTTL())

	authService := service.NewAuthService(*cfg, userRepo)
	telephonyService := service.NewTelephonyService(service.TelephonyDependencies{
		TicketRepo: telephonyRepo,
		DeviceRepo: deviceRepo,
		Dispatcher: dispatcher,
	})
	travelService := service.NewTravelService(service.TravelDependencies{
		TicketRepo:       travelRepo,
		Cache:            travelCache,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		VigenciaMinHoras: cfg.Workflow.VigenciaMinHoras,
		VigenciaMaxHoras: cfg.Workflow.VigenciaMaxHoras,
	})
	proposalService := service.NewProposalService(service.ProposalDependencies{
		ProposalRepo: proposalRepo,
		TicketRepo:   travelRepo,
		Cache:        travelCache,
		Dispatcher:   dispatcher,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Users:          handlers.NewUsersHandler(authService),
		Telephony:      handlers.NewTelephonyHandler(telephonyService),
		Travel:         handlers.NewTravelHandler(travelService),
		Proposals:      handlers.NewProposalHandler(proposalService),
		AuthMiddleware: authMiddleware,
	})

	worker.StartNotificationWorker(notificationService)

	expiryWorker := worker.NewExpiryWorker(travelService, cfg.Workflow.SweepInterval(), logger)
	expiryWorker.Start(ctx)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	expiryWorker.Stop()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
