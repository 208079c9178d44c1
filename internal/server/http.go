package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cartelera/signage-backend/internal/conf"
	"github.com/cartelera/signage-backend/internal/content/service"
	"github.com/cartelera/signage-backend/internal/pkg/logger"
)

// HTTPServer wraps the gin engine and its net/http server
type HTTPServer struct {
	engine *gin.Engine
	server *http.Server
	logger *logger.Logger
}

// NewHTTPServer builds the engine, wires middleware and routes
func NewHTTPServer(cfg conf.ServerConfig, svc *service.ContentService, lgr *logger.Logger) *HTTPServer {
	if lgr == nil {
		lgr = logger.L()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(lgr))
	engine.Use(cors())

	api := engine.Group("/api")
	svc.RegisterRoutes(api)
	api.GET("/health", svc.Health)

	svc.RegisterFileRoutes(engine)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	return &HTTPServer{
		engine: engine,
		logger: lgr,
		server: &http.Server{
			Addr:    addr,
			Handler: engine,
		},
	}
}

// Start begins serving; blocks until the listener fails or closes
func (s *HTTPServer) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("http server stopping")
	return s.server.Shutdown(ctx)
}

// requestLogger logs each request with latency and status
func requestLogger(lgr *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		// SSE requests hold the connection open; logging them on exit
		// is fine, the latency just reflects the subscription length.
		lgr.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// cors allows the dashboard and mobile frontends to call from any origin
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
