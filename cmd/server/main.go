package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"    // optional .env loading for local runs
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/hostel-residence/internal/config"
	"github.com/iliyamo/hostel-residence/internal/database"
	"github.com/iliyamo/hostel-residence/internal/handler"
	"github.com/iliyamo/hostel-residence/internal/ledger"
	"github.com/iliyamo/hostel-residence/internal/logger"
	"github.com/iliyamo/hostel-residence/internal/middleware"
	"github.com/iliyamo/hostel-residence/internal/notify"
	"github.com/iliyamo/hostel-residence/internal/queue"
	"github.com/iliyamo/hostel-residence/internal/repository"
	"github.com/iliyamo/hostel-residence/internal/router"
	"github.com/iliyamo/hostel-residence/internal/service"
)

const serviceName = "hostel-residence"

func main() {
	_ = godotenv.Load() // a missing .env is fine; the environment wins

	cfg := config.Load() // Load environment config
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
	log.Info("server stopped")
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Redis is optional: without it the rate limiter and cache are off.
	var rdb *redis.Client
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()
	if rlCfg.Enabled || cacheCfg.Enabled {
		rdb, err = config.NewRedisClient(config.LoadRedisConfig())
		if err != nil {
			log.Warn("redis unavailable; rate limiting and caching disabled", zap.Error(err))
		} else {
			defer rdb.Close()
		}
	}

	publisher := service.NewPublisher(cfg.AMQPURL, log)
	defer publisher.Close()

	// ---- Repositories & ledger ----
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	rooms := repository.NewRoomRepo(db)
	allocs := repository.NewAllocationRepo(db)
	notifications := repository.NewNotificationRepo(db)
	audit := repository.NewAuditRepo(db)
	led := ledger.New(allocs, log.Named("ledger"))

	base := handler.NewBase(log.Named("http"), audit, publisher, notifications)

	// ---- HTTP ----
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log.Named("access")))

	stack := router.Stack{JWTSecret: cfg.JWTSecret}
	if rdb != nil {
		if rlCfg.Enabled {
			stack.Limit = middleware.NewTokenBucket(rlCfg, rdb, log)
			stack.AuthLimit = middleware.NewTokenBucket(middleware.AuthBucket(rlCfg), rdb, log)
		}
		if cacheCfg.Enabled {
			stack.Cache = middleware.NewRedisCache(cacheCfg, rdb, log)
		}
	}

	var redisPing func(context.Context) error
	if rdb != nil {
		redisPing = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	router.RegisterRoutes(e, handler.Ready(map[string]func(context.Context) error{
		"database": db.PingContext,
		"redis":    redisPing,
	}))

	v1 := router.Protected(e, stack)
	router.RegisterAuth(e, v1, handler.NewAuthHandler(base, cfg, users, tokens), stack)
	router.RegisterRooms(v1,
		handler.NewRoomHandler(base, rooms, led),
		handler.NewAllocationHandler(base, led, allocs))
	router.RegisterResident(v1, router.Resident{
		Attendance:    handler.NewAttendanceHandler(base, repository.NewAttendanceRepo(db)),
		Complaints:    handler.NewComplaintHandler(base, repository.NewComplaintRepo(db)),
		Maintenance:   handler.NewMaintenanceHandler(base, repository.NewMaintenanceRepo(db), users),
		Payments:      handler.NewPaymentHandler(base, repository.NewPaymentRepo(db), allocs),
		Notices:       handler.NewNoticeHandler(base, repository.NewNoticeRepo(db), rdb, cacheCfg.Prefix),
		Visitors:      handler.NewVisitorHandler(base, repository.NewVisitorRepo(db)),
		Feedback:      handler.NewFeedbackHandler(base, repository.NewFeedbackRepo(db)),
		Notifications: handler.NewNotificationHandler(base, notifications),
		Events:        handler.NewEventHandler(base, repository.NewEventRepo(db)),
	}, stack.Cache)
	router.RegisterAdmin(v1,
		handler.NewUserHandler(base, cfg, users, tokens),
		handler.NewDashboardHandler(base, repository.NewDashboardRepo(db), repository.NewSearchRepo(db)),
		handler.NewAuditHandler(base, audit),
		handler.NewExportHandler(base, rooms, users, allocs, repository.NewPaymentRepo(db)))

	// ---- Broker consumer ----
	if publisher.Enabled() {
		var sender queue.Sender
		if cfg.NotifyWebhook != "" {
			sender = notify.NewWebhook(cfg.NotifyWebhook, cfg.NotifyToken, log.Named("webhook"))
		}
		consumer := queue.NewConsumer(cfg.AMQPURL, log.Named("consumer"))
		consumer.Handle(queue.AllocationsQueue, queue.AllocationLogHandler(cfg.EventLogPath))
		consumer.Handle(queue.NotificationsQueue, queue.NotificationHandler(sender, notifications, log.Named("notify")))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("consumer stopped", zap.Error(err))
			}
		}()
	}

	addr := ":" + cfg.Port // Address string with port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
