package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/carbonex30/scheduler/config"
	"github.com/carbonex30/scheduler/internal/api/handler"
	"github.com/carbonex30/scheduler/internal/api/middleware"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时任务提交接口不限流
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.Limiter, logger *zap.Logger) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", h.Health.Health)

	// 生成与训练都是重任务，按客户端 IP + 路由限流
	submitLimit := middleware.RateLimit(limiter, cfg.Server.RateLimit, time.Minute, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 排班模块
		schedules := v1.Group("/schedules")
		{
			schedules.POST("", h.Schedule.CreateSchedule)
			schedules.GET("", h.Schedule.ListSchedules)
			schedules.POST("/generate", submitLimit, h.Schedule.Generate)
			schedules.GET("/:id", h.Schedule.GetSchedule)
			schedules.PATCH("/:id", h.Schedule.Update)
			schedules.DELETE("/:id", h.Schedule.Delete)
			schedules.POST("/:id/generate", submitLimit, h.Schedule.Regenerate)
			schedules.POST("/:id/cancel", h.Schedule.Cancel)
			schedules.POST("/:id/publish", h.Schedule.Publish)
			schedules.GET("/:id/assignments", h.Schedule.GetAssignments)
			schedules.GET("/:id/export", h.Export.ExportSchedule)
		}

		// 模型训练模块
		ml := v1.Group("/ml")
		{
			ml.POST("/train", submitLimit, h.Training.Train)
			ml.GET("/history", h.Training.History)
			ml.GET("/history/:id", h.Training.GetRecord)
		}
	}

	return r
}
