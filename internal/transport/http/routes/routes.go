package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-auth/internal/infra/config"
	"github.com/arklim/social-platform-auth/internal/transport/http/handlers"
	"github.com/arklim/social-platform-auth/internal/transport/http/middleware"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Registration  *usecase.RegistrationService
	PasswordReset *usecase.PasswordResetService
	Sessions      *usecase.SessionService
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config     *config.AppConfig
	Logger     *zap.Logger
	Services   ServiceSet
	Database   DatabaseChecker
	Registerer prometheus.Registerer
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	if len(deps.Config.App.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))
	}

	if deps.Registerer != nil {
		metrics := middleware.NewHTTPMetrics(deps.Registerer)
		r.Use(metrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 1)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var requireAuth gin.HandlerFunc
	if deps.Services.Sessions != nil {
		requireAuth = middleware.RequireAuth(deps.Services.Sessions)

		authHandler := handlers.NewAuthHandler(deps.Services.Registration, deps.Services.Sessions)
		authHandler.RegisterRoutes(r.Group("/auth"), requireAuth)

		adminHandler := handlers.NewAdminHandler(deps.Services.Sessions)
		adminHandler.RegisterRoutes(r.Group("/admin"), requireAuth)
	}

	if deps.Services.Registration != nil {
		verificationHandler := handlers.NewVerificationHandler(deps.Services.Registration)
		verificationHandler.RegisterRoutes(r.Group("/verify"))
	}

	if deps.Services.PasswordReset != nil {
		passwordHandler := handlers.NewPasswordHandler(deps.Services.PasswordReset)
		passwordHandler.RegisterRoutes(r.Group("/password"))
	}

	return r
}
