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

	httptransport "github.com/dib506676/TicketMate/internal/api/http"
	"github.com/dib506676/TicketMate/internal/api/http/handlers"
	"github.com/dib506676/TicketMate/internal/auth"
	"github.com/dib506676/TicketMate/internal/bus"
	"github.com/dib506676/TicketMate/internal/classifier"
	"github.com/dib506676/TicketMate/internal/config"
	"github.com/dib506676/TicketMate/internal/notifier"
	"github.com/dib506676/TicketMate/internal/observability"
	"github.com/dib506676/TicketMate/internal/persistence"
	"github.com/dib506676/TicketMate/internal/repository"
	"github.com/dib506676/TicketMate/internal/triage"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	metrics := observability.NewMetrics()

	var (
		redis    *persistence.Redis
		eventBus bus.Bus
		redisBus *bus.RedisBus
	)
	switch cfg.Bus.Driver {
	case "memory":
		logger.Warn("using in-memory bus; run logs will not survive a restart")
		eventBus = bus.NewInMemoryBus(bus.NewMemoryStepLog(), logger, metrics, cfg.Bus.RetryDelay())
	default:
		redis = persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		stepLog := bus.NewRedisStepLog(redis.Client, time.Duration(cfg.Bus.RunLogTTLHours)*time.Hour)
		redisBus = bus.NewRedisBus(redis.Client, stepLog, logger, metrics, bus.RedisBusConfig{
			Workers:    cfg.Bus.Workers,
			RetryDelay: cfg.Bus.RetryDelay(),
			OutcomeTTL: time.Duration(cfg.Bus.OutcomeTTLHours) * time.Hour,
		})
		eventBus = redisBus
	}

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	var cl classifier.Classifier = classifier.Disabled{}
	if cfg.Classifier.Endpoint != "" {
		cl = classifier.NewHTTPClassifier(cfg.Classifier)
	} else {
		logger.Warn("CLASSIFIER_ENDPOINT not set; tickets will be triaged without AI suggestions")
	}

	var nt notifier.Notifier
	if cfg.Notifier.SMTPHost != "" {
		nt = notifier.NewSMTPNotifier(cfg.Notifier)
	} else {
		logger.Warn("SMTP_HOST not set; notifications will only be logged")
		nt = notifier.NewLogNotifier(logger)
	}

	triageService := triage.NewService(triage.Dependencies{
		TicketRepo:  ticketRepo,
		UserRepo:    userRepo,
		Classifier:  cl,
		Notifier:    nt,
		Logger:      logger,
		FrontendURL: cfg.App.FrontendURL,
	})
	eventBus.Subscribe(triageService.TicketCreatedWorkflow(cfg.Bus.MaxRetries))
	eventBus.Subscribe(triageService.UserSignedUpWorkflow(cfg.Bus.MaxRetries))

	if redisBus != nil {
		redisBus.Start(ctx)
		defer redisBus.Close()
	}

	tokens := auth.NewTokenManager(cfg.Auth.ProducerSecret, cfg.Auth.TokenTTLMinutes)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:       handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Events:       handlers.NewEventsHandler(eventBus, logger),
		Metrics:      handlers.NewMetricsHandler(metrics),
		ProducerAuth: auth.NewMiddleware(tokens),
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
