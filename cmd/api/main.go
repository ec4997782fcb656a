// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/carterperez-dev/insighta/internal/admin"
	"github.com/carterperez-dev/insighta/internal/auth"
	"github.com/carterperez-dev/insighta/internal/blog"
	"github.com/carterperez-dev/insighta/internal/config"
	"github.com/carterperez-dev/insighta/internal/core"
	"github.com/carterperez-dev/insighta/internal/health"
	"github.com/carterperez-dev/insighta/internal/mail"
	"github.com/carterperez-dev/insighta/internal/middleware"
	"github.com/carterperez-dev/insighta/internal/server"
	"github.com/carterperez-dev/insighta/internal/user"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closeLog := setupLogger(cfg.Log)
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"driver", cfg.Database.Driver,
	)

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		return err
	}
	if cfg.Otel.Enabled {
		logger.Info("OpenTelemetry tracer initialized", "endpoint", cfg.Otel.Endpoint)
	}

	store, err := core.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("record store connected", "driver", store.Driver())

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected", "pool_size", cfg.Redis.PoolSize)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}

	renderer, err := mail.NewRenderer()
	if err != nil {
		return err
	}
	mailer := mail.NewMailer(
		mail.NewDispatcher(cfg.Mail, logger),
		renderer,
		cfg.App.Name,
		cfg.Mail,
	)

	userRepo, blogRepo, err := repositories(store)
	if err != nil {
		return err
	}

	userSvc := user.NewService(userRepo, cfg.User)
	authSvc := auth.NewService(
		auth.NewRepository(redis.Client),
		jwtManager,
		userSvc,
		mailer,
		cfg.OTP,
		logger,
	)
	blogSvc := blog.NewService(blogRepo, userSvc, logger)

	authHandler := auth.NewHandler(authSvc, auth.NewCookieSettings(cfg.Cookie, cfg.IsProduction()))
	userHandler := user.NewHandler(userSvc, authSvc)
	blogHandler := blog.NewHandler(blogSvc)

	healthHandler := health.NewHandler(cfg.App.Version,
		health.Dependency{Name: store.Driver(), Checker: store},
		health.Dependency{Name: "redis", Checker: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Store:       store,
		StoreDriver: store.Driver(),
		Redis:       redis,
		Users:       userSvc,
		Blogs:       blogSvc,
		Logger:      logger,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing(telemetry.Tracer))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recoverer(logger))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit:     middleware.LimitFromConfig(cfg.RateLimit),
			KeyPrefix: "ratelimit:global",
			FailOpen:  true,
			Logger:    logger,
		}).Handler,
	)

	healthHandler.RegisterRoutes(router)

	authLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:     middleware.LimitFromConfig(cfg.AuthRateLimit),
		KeyPrefix: "ratelimit:auth",
		FailOpen:  true,
		Logger:    logger,
	})

	authenticator := middleware.Authenticator(authSvc, cfg.Cookie.AccessName)
	optionalAuth := middleware.OptionalAuth(authSvc, cfg.Cookie.AccessName)
	adminOnly := middleware.RequireAdmin

	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authLimiter.Handler)
			authHandler.RegisterRoutes(r, authenticator)
		})

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		blogHandler.RegisterRoutes(r, authenticator, optionalAuth)
		blogHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	drainDelay := cfg.Server.DrainDelay
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("record store close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func repositories(store core.Store) (user.Repository, blog.Repository, error) {
	switch s := store.(type) {
	case *core.Database:
		return user.NewPostgresRepository(s.DB), blog.NewPostgresRepository(s.DB), nil
	case *core.Mongo:
		return user.NewMongoRepository(s.DB), blog.NewMongoRepository(s.DB), nil
	default:
		return nil, nil, fmt.Errorf("no repositories for store %T", store)
	}
}

// setupLogger writes to stdout and, when log.file is set, to a rotating
// file as well.
func setupLogger(cfg config.LogConfig) (*slog.Logger, func()) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out io.Writer = os.Stdout
	closeFn := func() {}

	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotating)
		closeFn = func() { _ = rotating.Close() } //nolint:errcheck // process is exiting
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closeFn
}
