package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/agency-dashboard/internal/api/http"
	"github.com/spec-kit/agency-dashboard/internal/api/http/handlers"
	"github.com/spec-kit/agency-dashboard/internal/auth"
	"github.com/spec-kit/agency-dashboard/internal/config"
	"github.com/spec-kit/agency-dashboard/internal/events"
	"github.com/spec-kit/agency-dashboard/internal/observability"
	"github.com/spec-kit/agency-dashboard/internal/persistence"
	"github.com/spec-kit/agency-dashboard/internal/report"
	"github.com/spec-kit/agency-dashboard/internal/repository"
	"github.com/spec-kit/agency-dashboard/internal/service"
	"github.com/spec-kit/agency-dashboard/internal/store"
	"github.com/spec-kit/agency-dashboard/internal/worker"
	"github.com/spec-kit/agency-dashboard/internal/workflow"
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

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	// change notifications cross instances only through redis
	notifier := store.NewLocalNotifier()
	if redis.Enabled() {
		notifier = store.NewRedisNotifier(redis.Client, logger)
	}
	var base store.Store
	if pg.Enabled() {
		base = store.NewPostgresStore(pg.PoolHandle(), notifier, logger)
	} else {
		base = store.NewMemoryStore()
	}
	docs := store.Instrument(base, metrics)

	// dashboards read from the mirror; writes and id allocation read the store
	mirror := store.NewMirror(docs, logger, store.DashboardCollections...)
	if err := mirror.Start(ctx); err != nil {
		logger.Fatal("failed to load dashboard collections", zap.Error(err))
	}
	defer mirror.Stop()

	var locker persistence.Locker = persistence.NewLocalLocker()
	if redis.Enabled() {
		locker = persistence.NewRedisLocker(redis.Client)
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	var forwarder events.Forwarder
	if cfg.Notification.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.Notification.AMQPURL, cfg.Notification.Exchange)
		if err != nil {
			logger.Warn("amqp unavailable; events stay in process", zap.Error(err))
		} else {
			forwarder = publisher
			defer publisher.Close()
		}
	}

	employeeRepo := repository.NewEmployeeRepository(docs)
	taskRepo := repository.NewTaskRepository(docs)
	clientRepo := repository.NewClientRepository(docs)
	identities := auth.NewLocalProvider(repository.NewAuthAccountRepository(docs), cfg.Auth.BcryptCost)

	engine := workflow.NewEngine(workflow.EngineDependencies{
		Store:      docs,
		Locker:     locker,
		Recorder:   metrics,
		Logger:     logger,
		MaxRetries: cfg.Workflow.MaxRetries,
		Backoff:    cfg.Workflow.RetryBackoff(),
	})

	employeeService := service.NewEmployeeService(service.EmployeeDependencies{
		Store:        docs,
		EmployeeRepo: employeeRepo,
		TaskRepo:     taskRepo,
		ClientRepo:   clientRepo,
		Identity:     identities,
		Locker:       locker,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	clientService := service.NewClientService(service.ClientDependencies{
		Store:        docs,
		ClientRepo:   clientRepo,
		EmployeeRepo: employeeRepo,
		Engine:       engine,
		Locker:       locker,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	taskService := service.NewTaskService(service.TaskDependencies{
		Store:        docs,
		TaskRepo:     taskRepo,
		ClientRepo:   clientRepo,
		EmployeeRepo: employeeRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		TaskRepo:               repository.NewTaskRepository(mirror),
		ClientRepo:             repository.NewClientRepository(mirror),
		EmployeeRepo:           repository.NewEmployeeRepository(mirror),
		DeletedAuthAccountRepo: repository.NewDeletedAuthAccountRepository(docs),
		Exporter:               report.NewExporter(cfg.Report.Company, cfg.Report.ProductName),
		Recorder:               metrics,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		EmployeeRepo: employeeRepo,
		Identity:     identities,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), employeeRepo)

	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, forwarder, logger), logger)

	seeds, err := service.LoadSeedFile(cfg.Seed.File)
	if err != nil {
		logger.Fatal("failed to load seed file", zap.Error(err))
	}
	if seeded, err := employeeService.Seed(ctx, seeds, cfg.Seed.AdminPassword); err != nil {
		logger.Fatal("failed to seed system employees", zap.Error(err))
	} else if seeded > 0 {
		logger.Info("system employees seeded", zap.Int("count", seeded))
	}

	recoveryDone := worker.StartRecoveryWorker(ctx, engine, cfg.Workflow.RecoveryInterval(), logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Employees:      handlers.NewEmployeesHandler(employeeService),
		Clients:        handlers.NewClientsHandler(clientService),
		Tasks:          handlers.NewTasksHandler(taskService),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		Changes:        handlers.NewChangesHandler(mirror, logger, store.DashboardCollections...),
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
	cancel()
	<-recoveryDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
