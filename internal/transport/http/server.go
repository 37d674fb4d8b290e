package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirerelay/internal/config"
	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/metrics"
	"github.com/vovakirdan/wirerelay/internal/session"
)

// NewServer builds the admin HTTP server: health, registry snapshots,
// Prometheus metrics and the WebSocket bridge into regular sessions.
func NewServer(registry *core.Registry, cfg config.Config, logger *zerolog.Logger, m *metrics.Metrics) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(registry, cfg, logger, m),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter wires the gin routes.
func NewRouter(registry *core.Registry, cfg config.Config, logger *zerolog.Logger, m *metrics.Metrics) *gin.Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	api := NewAPIHandlers(registry, logger)
	router.GET("/health", healthHandler)
	router.GET("/api/channels", api.ListChannels)
	router.GET("/api/stats", api.Stats)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	ws := NewWSHandler(registry, logger, m, session.Options{
		Transport:          "ws",
		SendQueueSize:      cfg.SendQueueSize,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		WriteTimeout:       cfg.WriteTimeout,
	})
	router.GET("/ws", gin.WrapH(ws))

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
