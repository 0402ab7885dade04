package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/canicloud/internal/api/handlers"
	"github.com/hugh/canicloud/internal/api/middleware"
	"github.com/hugh/canicloud/internal/api/respond"
	"github.com/hugh/canicloud/internal/auth"
	"github.com/hugh/canicloud/internal/payments"
	"github.com/hugh/canicloud/internal/projects"
	"github.com/hugh/canicloud/pkg/crypto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client // optional, only used by /health
	Logger         *slog.Logger
	Responder      *respond.Responder
	Envelope       *crypto.Envelope
	Tokens         auth.TokenService
	Revoker        auth.Revoker
	AuthService    *auth.Service
	ProjectService *projects.Service
	PaymentService *payments.Service
	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
	AllowedOrigins []string
	SecureCookie   bool
	SigninExpiry   time.Duration
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()
	rs := cfg.Responder

	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(cfg.Logger, rs))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics)

	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "x-access-token", "token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis, rs)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, rs, cfg.SecureCookie, cfg.SigninExpiry)
	projectHandler := handlers.NewProjectHandler(cfg.ProjectService, rs, cfg.Logger)
	paymentHandler := handlers.NewPaymentHandler(cfg.PaymentService, rs)

	requireAuth := middleware.Auth(cfg.Tokens, cfg.Revoker, cfg.AuthService, rs)
	envelope := middleware.DecryptBody(cfg.Envelope, false, rs)
	lenient := middleware.DecryptBody(cfg.Envelope, true, rs)
	param := middleware.DecryptParam(cfg.Envelope, "data", rs)

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/a", func(r chi.Router) {
		r.With(envelope).Post("/sendOtp", authHandler.SendOTP)
		r.With(envelope).Post("/verifyOtp", authHandler.VerifyOTP)
		r.With(envelope).Post("/signupWithEP", authHandler.SignupWithEmailPassword)
		r.With(envelope).Post("/signin", authHandler.SigninWithEmailPassword)
		r.Get("/get-oauth-url", authHandler.GetOAuthURL)
		r.With(envelope).Post("/signinWithGoogle", authHandler.SigninWithGoogle)
		r.Get("/google-oauth-callback", authHandler.GoogleCallback)
		r.With(lenient).Post("/signinWithCli", authHandler.SigninWithCli)
		r.With(envelope).Post("/signinWithII", authHandler.SigninWithInternetIdentity)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.With(envelope).Post("/forgotPassword", authHandler.ForgotPassword)
			r.Get("/signout", authHandler.Signout)
			r.Get("/me", authHandler.Me)
			r.Post("/encrypt", authHandler.Encrypt)
			r.Post("/decrypt", authHandler.Decrypt)
		})
	})

	r.Route("/v", func(r chi.Router) {
		r.Use(requireAuth)

		r.Route("/p", func(r chi.Router) {
			r.With(envelope).Post("/", projectHandler.Create)
			r.Get("/", projectHandler.List)

			r.Route("/{data}", func(r chi.Router) {
				r.Use(param)
				r.Get("/", projectHandler.Get)
				r.Delete("/", projectHandler.Delete)
				r.With(envelope).Post("/activate", projectHandler.Activate)
				r.Post("/deactivate", projectHandler.Deactivate)
				r.With(envelope).Post("/token", projectHandler.CreateToken)
				r.Get("/token", projectHandler.ListTokens)
				r.Delete("/token", projectHandler.DeleteToken)
				r.Put("/code", projectHandler.UploadCode)
				r.Patch("/code", projectHandler.DownloadCode)
				r.Get("/code", projectHandler.DownloadCode)
			})
		})

		r.Route("/pay", func(r chi.Router) {
			r.With(lenient).Post("/", paymentHandler.CreateOrder)
			r.With(param).Get("/{data}", paymentHandler.CaptureOrder)
		})
	})

	return &Router{r}
}
