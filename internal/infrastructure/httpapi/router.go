package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dizzycode.xyz/multi-strategy-server/pkg/logger"
)

// RouterOptions 路由依賴
type RouterOptions struct {
	Handler  *Handler
	Hub      *Hub
	Gatherer prometheus.Gatherer // nil 時不掛載 /metrics
	Logger   logger.Logger
}

// NewRouter 創建 gin 路由
func NewRouter(opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(opts.Logger))

	h := opts.Handler
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.GET("/state", h.State)
		api.GET("/strategies", h.Strategies)
		api.PUT("/strategies/:name/parameters", h.UpdateParameters)
		api.PUT("/settings", h.UpdateSettings)
	}

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	if opts.Hub != nil {
		r.GET("/ws", opts.Hub.ServeWS)
	}

	return r
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug("HTTP request", map[string]any{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}
