package http

import (
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"logi-match/internal/metrics"
	"logi-match/internal/service"
)

const requestIDHeader = "X-Request-ID"

// RouterDeps agrupa handlers y servicios que expone el router.
type RouterDeps struct {
	JWT            *service.JWTService
	Chat           *ChatHandler
	Profiles       *ProfileHandler
	AI             *AIHandler
	AllowedOrigins []string
}

// NewRouter configura el router de Gin con middlewares y rutas base.
func NewRouter(logger *zap.Logger, deps RouterDeps) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()

	r.Use(
		requestIDMiddleware(),
		zapLoggerMiddleware(logger),
		gin.Recovery(),
		metricsMiddleware(),
		corsMiddleware(deps.AllowedOrigins),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", AuthMiddleware(deps.JWT, logger))

	// El stream SSE no lleva Content-Type JSON.
	if deps.Chat != nil {
		api.GET("/chat/stream", deps.Chat.Stream)
	}

	jsonAPI := api.Group("", jsonContentTypeMiddleware())
	if deps.Chat != nil {
		jsonAPI.POST("/chat/send", deps.Chat.Send)
		jsonAPI.GET("/chat/history", deps.Chat.History)
		jsonAPI.POST("/chat/start", deps.Chat.Start)
		jsonAPI.POST("/pusher/trigger", deps.Chat.Trigger)
	}
	if deps.Profiles != nil {
		jsonAPI.GET("/users/:id", deps.Profiles.GetUser)
	}
	if deps.AI != nil {
		jsonAPI.POST("/ai/ask", deps.AI.Ask)
	}

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("request_id", c.GetString(requestIDHeader)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// requestIDMiddleware propaga X-Request-ID o genera uno nuevo.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// metricsMiddleware usa la ruta registrada como label para no explotar cardinalidad.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", requestIDHeader}
	cfg.ExposeHeaders = []string{requestIDHeader}
	return cors.New(cfg)
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
