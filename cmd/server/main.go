package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/dogrun-backend/internal/auth"
	"github.com/iliyamo/dogrun-backend/internal/config"
	"github.com/iliyamo/dogrun-backend/internal/database"
	"github.com/iliyamo/dogrun-backend/internal/handler"
	"github.com/iliyamo/dogrun-backend/internal/middleware"
	"github.com/iliyamo/dogrun-backend/internal/queue"
	"github.com/iliyamo/dogrun-backend/internal/repository"
	"github.com/iliyamo/dogrun-backend/internal/router"
	"github.com/iliyamo/dogrun-backend/internal/service"
	"github.com/iliyamo/dogrun-backend/internal/storage"
	"github.com/iliyamo/dogrun-backend/internal/validator"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load() // Load environment config
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	dsn := database.DSN(cfg)
	if cfg.AutoMigrate {
		if err := database.Migrate(dsn, logger); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
	}
	db, err := database.Open(dsn)
	if err != nil {
		logger.Error("open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	storageCfg := config.LoadStorageConfig()
	files, err := storage.New(ctx, storageCfg)
	if err != nil {
		logger.Error("init certificate storage", slog.Any("error", err))
		os.Exit(1)
	}

	// ---- repositories ----
	runner := repository.NewTxRunner(db)
	users := repository.NewUserRepo(db)
	admins := repository.NewAdminRepo(db)
	dogs := repository.NewDogRepo(db)
	posts := repository.NewPostRepo(db)
	entries := repository.NewEntryRepo(db, runner)
	hours := repository.NewBusinessHourRepo(db)
	apps := repository.NewApplicationRepo(db, runner)
	adminLogs := repository.NewAdminLogRepo(db)

	// ---- audit pipeline ----
	auditCfg := config.LoadAuditConfig()
	var writer service.AuditWriter = adminLogs
	if auditCfg.AMQPURL != "" {
		pub := queue.NewPublisher(auditCfg.AMQPURL, auditCfg.Queue, logger)
		defer pub.Close()
		writer = service.FallbackWriter{Primary: pub, Secondary: adminLogs}
		if auditCfg.RunConsumer {
			consumer := &queue.Consumer{URL: auditCfg.AMQPURL, Queue: auditCfg.Queue, Store: adminLogs, Logger: logger}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("audit consumer stopped", slog.Any("error", err))
				}
			}()
		}
	}
	audit := service.NewAsyncAuditSink(writer, logger, auditCfg.BufferSize, auditCfg.PublishTimeout)
	defer audit.Close()

	// ---- services ----
	hasher := auth.NewHasher(cfg.BcryptCost)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.UserTokenTTL, cfg.AdminTokenTTL)
	resolver := auth.NewResolver(tokens, repository.PrincipalStore{Users: users, Admins: admins})
	accounts := service.NewAccountService(users, admins, hasher, tokens, audit)
	applications := service.NewApplicationService(apps, users, hasher, audit)

	cacheCfg := config.LoadCacheConfig()
	invalidate := func(ctx context.Context) error { return middleware.InvalidateCache(ctx, cacheCfg, rdb) }

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Validator = validator.New()
	e.HTTPErrorHandler = handler.ErrorHandler(logger)
	e.Use(middleware.Metrics())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	router.RegisterRoutes(e, router.Handlers{
		Auth: handler.NewAuthHandler(accounts, applications, files, storageCfg.MaxBytes),
		Admin: &handler.AdminHandler{
			Accounts: accounts,
			Apps:     applications,
			Users:    users,
			Dogs:     dogs,
			Posts:    posts,
			Remover:  repository.NewUserDeleter(runner),
			Audit:    audit,
		},
		Users:         handler.NewUserHandler(users),
		Dogs:          handler.NewDogHandler(dogs),
		Posts:         handler.NewPostHandler(posts),
		Entries:       handler.NewEntryHandler(entries),
		BusinessHours: handler.NewBusinessHourHandler(hours, audit, invalidate, logger),
		Ready:         handler.Ready(db),
	}, router.Guards{
		Resolver:  resolver,
		RateLimit: middleware.RateLimit(config.LoadRateLimitConfig(), rdb, logger),
		Cache:     middleware.ResponseCache(cacheCfg, rdb, logger),
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		logger.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
	logger.Info("server stopped")
}

// newLogger logs JSON in production and text elsewhere.
func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if !cfg.IsProduction() {
		opts.Level = slog.LevelDebug
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
