package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/config"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/transport/http/handlers"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/transport/http/middleware"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Passwords    *usecase.PasswordService
	Accounts     *usecase.AccountService
	Audit        *usecase.AuditRecorder
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config != nil && deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Config != nil && len(deps.Config.App.CORSOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
	}
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")

		if deps.Services.Auth != nil {
			authHandler := handlers.NewAuthHandler(deps.Services.Auth)
			authHandler.RegisterRoutes(authGroup, rateLimitChain(deps, "auth_login_ip", loginLimit(deps))...)
		}

		if deps.Services.Registration != nil {
			registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration)
			registrationHandler.RegisterRoutes(authGroup, rateLimitChain(deps, "auth_register_ip", registerLimit(deps))...)
		}

		if deps.Services.Auth != nil {
			authMiddleware := middleware.RequireAuth(deps.Services.Auth)

			if deps.Services.Passwords != nil {
				passwordHandler := handlers.NewPasswordHandler(deps.Services.Passwords)
				authGroup.POST("/change-password", authMiddleware, passwordHandler.ChangePassword)
			}

			if deps.Services.Accounts != nil && deps.Services.Audit != nil {
				accountHandler := handlers.NewAccountHandler(deps.Services.Accounts, deps.Services.Audit)
				authGroup.PUT("/profile", authMiddleware, accountHandler.UpdateProfile)

				accountGroup := api.Group("/account")
				accountGroup.Use(authMiddleware)
				accountHandler.RegisterRoutes(accountGroup)
			}
		}
	}

	return r
}

func loginLimit(deps Dependencies) int {
	if deps.Config == nil {
		return 0
	}
	return deps.Config.RateLimit.LoginMaxAttempts
}

func registerLimit(deps Dependencies) int {
	if deps.Config == nil {
		return 0
	}
	return deps.Config.RateLimit.RegisterMaxAttempts
}

func rateLimitChain(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
