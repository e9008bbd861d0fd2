package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	analyticsservice "github.com/lk2023060901/media-edge-backend/internal/analytics/service"
	assetservice "github.com/lk2023060901/media-edge-backend/internal/asset/service"
	"github.com/lk2023060901/media-edge-backend/internal/conf"
	linkservice "github.com/lk2023060901/media-edge-backend/internal/link/service"
	apperrors "github.com/lk2023060901/media-edge-backend/internal/pkg/errors"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/metrics"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/response"
	"go.uber.org/zap"
)

type HTTPServer struct {
	server *http.Server
	router *gin.Engine
	logger *logger.Logger
}

func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	assetService *assetservice.AssetService,
	linkService *linkservice.LinkService,
	analyticsService *analyticsservice.AnalyticsService,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(logger.GinRecovery(log, func(c *gin.Context) {
		response.InternalError(c)
	}))
	router.Use(logger.GinLoggerWithConfig(log, logger.MiddlewareOptions{
		SkipPaths: []string{"/health", "/metrics"},
	}))
	router.Use(metrics.GinMiddleware())
	router.Use(CORS(config.CORS))

	router.NoRoute(func(c *gin.Context) {
		response.ErrorWithCode(c, apperrors.ErrNotFound)
	})
	// gin 已写入 Allow 头
	router.NoMethod(func(c *gin.Context) {
		response.ErrorWithCode(c, apperrors.ErrMethodNotAllowed)
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", metrics.Handler())

	assetService.RegisterRoutes(router)
	linkService.RegisterRoutes(router)
	analyticsService.RegisterRoutes(router)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)

	return &HTTPServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		router: router,
		logger: log,
	}
}

// Handler 供测试直接驱动路由
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}
