package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/evxlab/certificate-api/internal/handler"
	"github.com/evxlab/certificate-api/internal/middleware"
	"github.com/evxlab/certificate-api/internal/service"
	"github.com/evxlab/certificate-api/pkg/config"
	"github.com/evxlab/certificate-api/pkg/logger"
	corsmiddleware "github.com/evxlab/certificate-api/pkg/middleware/cors"
	reqidmiddleware "github.com/evxlab/certificate-api/pkg/middleware/requestid"
)

// Dependencies holds everything the HTTP layer needs.
type Dependencies struct {
	Config       *config.Config
	Logger       *zap.Logger
	Auth         *service.AuthService
	Certificates *service.CertificateService
	Metrics      *service.MetricsService
	Store        handler.Pinger
}

// New builds the gin engine with all routes registered.
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	logr := deps.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.Use(reqidmiddleware.Middleware())
	r.Use(middleware.Recovery(logr))
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	metricsHandler := handler.NewMetricsHandler(deps.Metrics, deps.Store)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	api := r.Group(prefix)

	authHandler := handler.NewAuthHandler(deps.Auth, cfg.Cookie)
	session := middleware.Session(deps.Auth, cfg.Cookie.Name)

	auth := api.Group("/auth")
	auth.POST("/master-login", authHandler.MasterLogin)
	auth.GET("/me", authHandler.Me)
	protected := auth.Group("", session)
	protected.POST("/login", authHandler.Login)
	protected.POST("/logout", authHandler.Logout)
	protected.POST("/create-student", authHandler.CreateStudent)
	protected.POST("/edit-student", authHandler.EditStudent)

	certificateHandler := handler.NewCertificateHandler(deps.Certificates)
	certificates := api.Group("/certificate")
	certificates.GET("/verify/:id", certificateHandler.Verify)
	certificates.GET("/verify/:id/pdf", certificateHandler.PDF)
	certificates.GET("/lookup", certificateHandler.Lookup)
	certificates.GET("/options", certificateHandler.Options)

	return r
}
