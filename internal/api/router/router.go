package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/power-monitor/config"
	"github.com/d60-Lab/power-monitor/internal/api/handler"
	"github.com/d60-Lab/power-monitor/internal/api/middleware"
)

// New 组装路由：gzip + otel 追踪 + swagger + 业务路由
func New(cfg *config.Config, h *handler.Handler) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	if cfg.Telemetry.Enabled {
		r.Use(otelgin.Middleware("power-monitor"))
	}

	r.GET("/health", h.Health)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/outages", h.ListOutages)
		v1.GET("/outages/:id", h.GetOutage)
		v1.GET("/notifications", h.ListNotifications)

		ops := v1.Group("", middleware.JWTAuth(cfg.Auth.JWTSecret))
		{
			ops.POST("/cycles", h.TriggerCycle)
			ops.POST("/retries", h.TriggerRetrySweep)
		}
	}
	return r
}
