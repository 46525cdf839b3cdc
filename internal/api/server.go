package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/themobileprof/commandbot/internal/api/middleware"
)

// Pinger reports dependency health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EngineConfig wires handlers into the HTTP engine. Optional handlers that
// are nil leave their routes unregistered.
type EngineConfig struct {
	Commands     *CommandHandler
	Interactions *InteractionHandler
	Voice        *VoiceHandler
	WebSocket    gin.HandlerFunc

	Database        Pinger
	Gatherer        prometheus.Gatherer
	RateLimitPerMin int
	AllowedOrigins  []string
	Logger          *zap.Logger
}

// NewEngine builds the gin engine with middleware and routes.
func NewEngine(cfg EngineConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.AllowedOrigins...))

	router.GET("/health", healthHandler(cfg.Database))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	limited := router.Group("/")
	if cfg.RateLimitPerMin > 0 {
		limited.Use(middleware.PerIP(cfg.RateLimitPerMin))
	}

	if cfg.Commands != nil {
		limited.GET("/", cfg.Commands.Index)
		limited.POST("/command", cfg.Commands.HandleCommand)
	}
	if cfg.WebSocket != nil {
		limited.GET("/ws/command", cfg.WebSocket)
	}

	features := middleware.Features{
		middleware.FeatureInteractionLog: cfg.Interactions != nil,
	}
	interactions := limited.Group("/api/interactions")
	interactions.Use(middleware.RequireFeature(features, middleware.FeatureInteractionLog))
	if cfg.Interactions != nil {
		interactions.GET("", cfg.Interactions.ListInteractions)
	} else {
		interactions.GET("", func(c *gin.Context) {})
	}

	if cfg.Voice != nil {
		voice := router.Group("/api/voice")
		{
			voice.POST("/incoming", cfg.Voice.HandleIncoming)
			voice.POST("/gather", cfg.Voice.HandleGather)
			voice.POST("/status", cfg.Voice.HandleStatus)
		}
	}

	return router
}

func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		}
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				status["status"] = "degraded"
				status["database"] = "unreachable"
				c.JSON(http.StatusServiceUnavailable, status)
				return
			}
			status["database"] = "ok"
		}
		c.JSON(http.StatusOK, status)
	}
}
