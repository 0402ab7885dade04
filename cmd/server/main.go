package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hugh/canicloud/internal/api"
	"github.com/hugh/canicloud/internal/api/middleware"
	"github.com/hugh/canicloud/internal/api/respond"
	"github.com/hugh/canicloud/internal/auth"
	"github.com/hugh/canicloud/internal/blob"
	"github.com/hugh/canicloud/internal/database"
	"github.com/hugh/canicloud/internal/payments"
	"github.com/hugh/canicloud/internal/projects"
	"github.com/hugh/canicloud/internal/store"
	"github.com/hugh/canicloud/internal/tasks"
	"github.com/hugh/canicloud/pkg/cache"
	"github.com/hugh/canicloud/pkg/config"
	"github.com/hugh/canicloud/pkg/crypto"
	"github.com/hugh/canicloud/pkg/queue"
	"github.com/hugh/canicloud/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting canicloud server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	signinExpiry, err := auth.ParseExpiry(cfg.JWT.SigninExpiry)
	if err != nil {
		logger.Error("invalid SIGNIN_TOKEN_EXPIRY", "error", err)
		os.Exit(1)
	}

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(cfg.Database.URL(), logger); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	st := store.New(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, OTP mail and shared revocation disabled", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	// Revocation cache
	var revocations cache.Store
	switch {
	case cfg.Revocation.Backend == "redis" && redisClient != nil:
		revocations = cache.NewRedisStore(redisClient, "canicloud:")
	case cfg.Revocation.Backend == "redis":
		logger.Error("REVOCATION_BACKEND=redis but Redis is unreachable")
		os.Exit(1)
	default:
		mem := cache.NewMemoryStore(time.Minute)
		defer mem.Close()
		revocations = mem
		logger.Info("using in-memory revocation cache, revoked tokens are not shared between instances")
	}
	blacklist := auth.NewBlacklist(revocations)

	envelope, err := crypto.NewEnvelope(cfg.Encryption.Key, cfg.Encryption.Randomizer)
	if err != nil {
		logger.Error("failed to create envelope", "error", err)
		os.Exit(1)
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.CodeKey)
	if err != nil {
		logger.Error("failed to create code encryptor", "error", err)
		os.Exit(1)
	}
	if cfg.Encryption.CodeKey == "" {
		logger.Warn("CODE_ENCRYPTION_KEY not set, using generated key - uploaded code will be unreadable after restart")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	blobs, err := blob.New(ctx, cfg.Blob)
	cancel()
	if err != nil {
		logger.Error("failed to create blob store", "provider", cfg.Blob.Provider, "error", err)
		os.Exit(1)
	}

	providers, err := payments.NewProviders(cfg.Payments)
	if err != nil {
		logger.Error("failed to create payment providers", "error", err)
		os.Exit(1)
	}
	if len(providers) == 0 {
		logger.Warn("no payment provider configured, /v/pay will reject orders")
	}

	// OTP mail goes through the worker when Redis is available.
	var notifier *tasks.Notifier
	if redisClient != nil {
		asynqClient := queue.NewClient(&cfg.Redis)
		defer asynqClient.Close()
		notifier = tasks.NewNotifier(asynqClient, logger)
	} else {
		notifier = tasks.NewNotifier(nil, logger)
	}

	var google auth.GoogleVerifier
	if cfg.Google.ClientID != "" {
		google = auth.NewGoogleOAuth(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURI)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer)
	authService := auth.NewService(auth.ServiceConfig{
		Store:        st,
		JWT:          jwtService,
		Envelope:     envelope,
		Blacklist:    blacklist,
		OTPs:         auth.NewOTPGenerator(cfg.Server.IsProduction()),
		Throttle:     auth.NewOTPThrottle(cfg.RateLimit.OTPPerMinute),
		Google:       google,
		Notifier:     notifier,
		SigninExpiry: signinExpiry,
		Logger:       logger,
	})
	projectService := projects.NewService(st, jwtService, envelope, encryptor, blobs, logger)
	paymentService := payments.NewService(payments.ServiceConfig{
		Store:           st,
		Providers:       providers,
		DefaultProvider: cfg.Payments.Provider,
		Currency:        cfg.Payments.Currency,
		Pricing:         payments.PricingFromConfig(cfg.Payments),
		Logger:          logger,
	})

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window())
	defer rateLimiter.Stop()

	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		Responder:      respond.New(!cfg.Server.IsProduction(), logger),
		Envelope:       envelope,
		Tokens:         jwtService,
		Revoker:        blacklist,
		AuthService:    authService,
		ProjectService: projectService,
		PaymentService: paymentService,
		RateLimiter:    rateLimiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SecureCookie:   cfg.Server.IsProduction(),
		SigninExpiry:   signinExpiry,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
