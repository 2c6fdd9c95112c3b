// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"github.com/carterperez-dev/uznavaykin/internal/admin"
	"github.com/carterperez-dev/uznavaykin/internal/auth"
	"github.com/carterperez-dev/uznavaykin/internal/config"
	"github.com/carterperez-dev/uznavaykin/internal/content"
	"github.com/carterperez-dev/uznavaykin/internal/core"
	"github.com/carterperez-dev/uznavaykin/internal/entitlement"
	"github.com/carterperez-dev/uznavaykin/internal/events"
	"github.com/carterperez-dev/uznavaykin/internal/health"
	"github.com/carterperez-dev/uznavaykin/internal/jobs"
	"github.com/carterperez-dev/uznavaykin/internal/middleware"
	"github.com/carterperez-dev/uznavaykin/internal/presence"
	"github.com/carterperez-dev/uznavaykin/internal/server"
	"github.com/carterperez-dev/uznavaykin/internal/subscription"
	"github.com/carterperez-dev/uznavaykin/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen,gocyclo // bootstrap code is inherently verbose
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

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"auto_migrate", cfg.Database.AutoMigrate,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	clock := clockwork.NewRealClock()
	resolver := entitlement.NewResolver(clock)

	hasher, err := core.NewPasswordHasher(core.DefaultArgon2Params)
	if err != nil {
		return err
	}

	if !cfg.IsProduction() {
		generated, keyErr := auth.EnsureKeyPair(
			cfg.JWT.PrivateKeyPath,
			cfg.JWT.PublicKeyPath,
		)
		if keyErr != nil {
			return keyErr
		}
		if generated {
			logger.Warn("generated development signing keys",
				"private_key_path", cfg.JWT.PrivateKeyPath,
			)
		}
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT, clock)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"access_ttl", cfg.JWT.AccessTokenExpire.String(),
	)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo, resolver)
	userHandler := user.NewHandler(userSvc)

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(auth.ServiceDeps{
		Repo:         authRepo,
		JWT:          jwtManager,
		UserProvider: userSvc,
		Hasher:       hasher,
		Redis:        redis.Client,
		Clock:        clock,
	})
	authHandler := auth.NewHandler(authSvc)

	if cfg.Bootstrap.Enabled() {
		hash, hashErr := hasher.Hash(cfg.Bootstrap.AdminPassword)
		if hashErr != nil {
			return hashErr
		}
		if err := userSvc.EnsureAdmin(
			ctx,
			cfg.Bootstrap.AdminUsername,
			cfg.Bootstrap.AdminEmail,
			hash,
		); err != nil {
			return err
		}
	}

	contentSvc := content.NewService(
		content.NewRepository(db.DB),
		userSvc,
		cfg.Content.CountDeniedViews,
	)
	contentHandler := content.NewHandler(contentSvc)

	healthDeps := []health.Dependency{
		{Name: "database", Checker: db},
		{Name: "redis", Checker: redis},
	}

	var (
		publisher   subscription.Publisher
		eventsStats func() events.Stats
		eventsPing  func(context.Context) error
		amqpConn    *events.Connection
	)
	if cfg.Events.Enabled {
		amqpConn, err = events.Connect(cfg.Events)
		if err != nil {
			return err
		}

		purchases, pubErr := events.NewPurchasePublisher(
			amqpConn.Channel(),
			cfg.Events.Queue,
		)
		if pubErr != nil {
			//nolint:errcheck // already failing
			_ = amqpConn.Close()
			return pubErr
		}

		go amqpConn.Watch(ctx, purchases.Rebind)

		publisher = purchases
		eventsStats = purchases.Stats
		eventsPing = amqpConn.Ping
		logger.Info("purchase events enabled", "queue", cfg.Events.Queue)
	}

	subscriptionSvc := subscription.NewService(subscription.ServiceDeps{
		Users: userRepo,
		Plans: subscription.NewPlanRepository(db.DB),
		Ledger: subscription.NewLedger(subscription.Caps{
			Premium: cfg.Subscription.PremiumBonusCap,
			VIP:     cfg.Subscription.VIPBonusCap,
		}),
		Clock:     clock,
		Publisher: publisher,
	})
	subscriptionHandler := subscription.NewHandler(subscriptionSvc)

	tracker := presence.NewTracker(redis.Client, userRepo, clock, cfg.Presence)
	presenceHandler := presence.NewHandler(tracker)

	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.Add(
		cfg.Jobs.TokenCleanupSchedule,
		"refresh_token_cleanup",
		jobs.TokenCleanup(authSvc),
	); err != nil {
		return err
	}
	scheduler.Start()
	logger.Info("job scheduler started", "jobs", scheduler.Len())

	healthHandler := health.NewHandler(healthDeps...)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:     db.Stats,
		RedisStats:  redis.PoolStats,
		DBPing:      db.Ping,
		RedisPing:   redis.Ping,
		Users:       userSvc,
		Content:     contentSvc,
		Online:      tracker,
		EventsStats: eventsStats,
		EventsPing:  eventsPing,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.Every(
				cfg.RateLimit.Window,
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.JWKSHandler())

	tiered := middleware.TieredRateLimiter(
		redis.Client,
		middleware.DefaultTiers,
		userSvc.EffectiveTierByID,
	)
	withIdentity := func(
		authMW func(http.Handler) http.Handler,
	) func(http.Handler) http.Handler {
		return tracker.Wrap(func(next http.Handler) http.Handler {
			return authMW(tiered(next))
		})
	}

	authenticator := withIdentity(middleware.Authenticator(authSvc))
	optionalAuth := withIdentity(middleware.OptionalAuth(authSvc))
	adminOnly := middleware.RequireAdmin

	purchaseLimit := middleware.NewRateLimiter(
		redis.Client,
		middleware.RateLimitConfig{
			Limit: middleware.PerHour(
				cfg.RateLimit.PurchasesPerHour,
				cfg.RateLimit.PurchaseBurst,
			),
			KeyFunc: middleware.KeyByUserAndEndpoint,
		},
	).Handler

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		contentHandler.RegisterRoutes(r, optionalAuth)
		contentHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		subscriptionHandler.RegisterRoutes(r, authenticator, purchaseLimit)
		presenceHandler.RegisterRoutes(r)

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

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler shutdown error", "error", err)
	}

	if amqpConn != nil {
		if err := amqpConn.Close(); err != nil {
			logger.Error("rabbitmq close error", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
