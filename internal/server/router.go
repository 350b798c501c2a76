package server

import (
	"net/http"

	"github.com/abduss/bitbeem/internal/auth"
	"github.com/abduss/bitbeem/internal/blob"
	"github.com/abduss/bitbeem/internal/config"
	"github.com/abduss/bitbeem/internal/file"
	"github.com/abduss/bitbeem/internal/logger"
	"github.com/abduss/bitbeem/internal/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config      config.Config
	DB          Pinger
	Blobs       blob.Store
	Log         *zap.Logger
	AuthService *auth.Service
	AdminTokens *auth.AdminTokens
	FileService *file.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware(deps.Log))
	router.Use(metrics.Middleware())

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "bitbeem is running")
	})
	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("")
	if deps.AuthService != nil {
		auth.RegisterRoutes(api, deps.AuthService)

		if deps.FileService != nil {
			file.RegisterRoutes(api, deps.FileService,
				auth.RequirePrincipal(deps.AuthService, deps.AdminTokens),
				deps.Config.Server.MaxUploadBytes,
			)
		}
	}

	return router
}
