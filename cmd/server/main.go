package main

import (
	"context"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	redislib "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/reminders/api/handler"
	"github.com/fastygo/reminders/internal/config"
	firebaseInfra "github.com/fastygo/reminders/internal/infrastructure/firebase"
	"github.com/fastygo/reminders/internal/infrastructure/jobstore"
	mongoInfra "github.com/fastygo/reminders/internal/infrastructure/mongo"
	"github.com/fastygo/reminders/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/reminders/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/reminders/internal/infrastructure/redis"
	"github.com/fastygo/reminders/internal/middleware"
	"github.com/fastygo/reminders/internal/observability"
	"github.com/fastygo/reminders/internal/router"
	"github.com/fastygo/reminders/internal/services"
	"github.com/fastygo/reminders/internal/services/lifecycle"
	"github.com/fastygo/reminders/pkg/httpcontext"
	"github.com/fastygo/reminders/pkg/logger"
	"github.com/fastygo/reminders/repository"
	mongoRepo "github.com/fastygo/reminders/repository/mongo"
	"github.com/fastygo/reminders/repository/postgres"
	redisRepo "github.com/fastygo/reminders/repository/redis"
	"github.com/fastygo/reminders/usecase"
	notificationUC "github.com/fastygo/reminders/usecase/notification"
	reminderUC "github.com/fastygo/reminders/usecase/reminder"
	taskUC "github.com/fastygo/reminders/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.MustNewMetrics(registry)

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	reminderRepo := redisRepo.NewReminderRepository(redisClient, cfg.Reminder.TTL,
		redisRepo.WithLogger(zapLogger),
		redisRepo.WithMalformedObserver(metrics.MalformedRecord),
	)
	readStateRepo := redisRepo.NewReadStateRepository(redisClient, cfg.Reminder.ReadMarkerTTL)

	taskRepo := openTaskStore(appCtx, cfg, manager, zapLogger)

	var jobStore *jobstore.Store
	if cfg.AsyncDispatch() {
		jobStore, err = jobstore.Open(cfg.Dispatcher.Path, cfg.Dispatcher.Bucket)
		if err != nil {
			zapLogger.Fatal("failed to open reminder job store", zap.Error(err))
		}
		manager.Register("job_store", func(ctx context.Context) error {
			return jobStore.Close()
		})
	}

	mon := monitor.New(0, zapLogger, healthChecks(redisClient, taskRepo, jobStore)...)
	mon.Refresh(appCtx)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	scheduler := reminderUC.NewScheduler(reminderRepo, cfg.Reminder.WindowDays, zapLogger, metrics)

	var (
		reminders  usecase.ReminderScheduler = scheduler
		jobHandler *apiHandler.JobHandler
		ctxAdapter = httpcontext.NewAdapter(cfg.Context.RequestTimeout)
	)
	if jobStore != nil {
		dispatcher := services.NewDispatcher(jobStore, scheduler, taskRepo, mon, zapLogger, metrics, services.DispatcherConfig{
			Interval:    cfg.Dispatcher.Interval,
			BatchSize:   cfg.Dispatcher.BatchSize,
			Workers:     cfg.Dispatcher.Workers,
			MaxAttempts: cfg.Dispatcher.MaxAttempts,
			Retention:   cfg.Dispatcher.Retention,
		})
		if err := dispatcher.Start(appCtx); err != nil {
			zapLogger.Fatal("failed to start reminder dispatcher", zap.Error(err))
		}
		manager.Register("reminder_dispatcher", dispatcher.Stop)

		reminders = services.NewReminderBridge(dispatcher, scheduler, zapLogger)
		jobHandler = apiHandler.NewJobHandler(dispatcher, ctxAdapter, zapLogger)
	}

	taskUseCase := taskUC.New(taskRepo, reminders, reminders, cfg.Reminder.WindowDays, zapLogger)
	projector := notificationUC.NewProjector(reminderRepo, readStateRepo, zapLogger, metrics)

	handlers := router.Handlers{
		Task:         apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Notification: apiHandler.NewNotificationHandler(projector, ctxAdapter, zapLogger),
		Job:          jobHandler,
		Health:       apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	var routerOpts router.Options
	if cfg.HTTP.EnableMetrics {
		routerOpts.Metrics = registry
	}
	r := router.New(handlers, authMiddleware(appCtx, cfg, zapLogger), routerOpts)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	manager.Go(appCtx, "http_server", func(ctx context.Context) error {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("task_store", cfg.TaskStore),
			zap.String("dispatch_mode", cfg.Dispatcher.Mode),
		)
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	select {
	case <-appCtx.Done():
	case err := <-manager.Failed():
		zapLogger.Error("component failed, shutting down", zap.Error(err))
	}

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

func openTaskStore(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, zapLogger *zap.Logger) repository.TaskRepository {
	switch cfg.TaskStore {
	case config.TaskStoreMongo:
		client, err := mongoInfra.NewClient(ctx, cfg.Mongo, zapLogger)
		if err != nil {
			zapLogger.Fatal("mongodb connection failed", zap.Error(err))
		}
		manager.Register("mongodb", client.Disconnect)
		if err := mongoRepo.EnsureIndexes(ctx, client.Database(cfg.Mongo.Database)); err != nil {
			zapLogger.Warn("failed to ensure task indexes", zap.Error(err))
		}
		return mongoRepo.NewTaskRepository(client, cfg.Mongo.Database)

	default:
		if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
			zapLogger.Fatal("migrations failed", zap.Error(err))
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, zapLogger)
		if err != nil {
			zapLogger.Fatal("postgres connection failed", zap.Error(err))
		}
		manager.Register("postgres", func(context.Context) error {
			pgInfra.Close(pool, zapLogger)
			return nil
		})
		return postgres.NewTaskRepository(pool)
	}
}

// healthChecks makes redis the only critical dependency: the dispatcher drains while the task
// store is down and defers the affected jobs itself.
func healthChecks(redisClient *redislib.Client, tasks interface{ Ping(context.Context) error }, jobs *jobstore.Store) []monitor.Check {
	checks := []monitor.Check{
		monitor.RedisCheck(redisClient),
		monitor.PingCheck("task_store", false, tasks),
	}
	if jobs != nil {
		checks = append(checks, monitor.SizeCheck("job_store", jobs.Size))
	}
	return checks
}

func authMiddleware(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) middleware.Middleware {
	if cfg.Auth.Provider == config.AuthProviderFirebase {
		client, err := firebaseInfra.NewAuthClient(ctx, cfg.Auth.Firebase, zapLogger)
		if err != nil {
			zapLogger.Fatal("firebase initialization failed", zap.Error(err))
		}
		return middleware.FirebaseAuth(client, zapLogger)
	}
	return middleware.JWTAuth(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, zapLogger)
}
