package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/carbonex30/scheduler/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Schedule *ScheduleHandler
	Training *TrainingHandler
	Export   *ExportHandler
	Health   *HealthHandler
}

// Pinger 健康检查依赖（数据库、Redis）
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHandler 创建 Handler 聚合；deps 为健康检查项，名称 → 探测器
func NewHandler(svc *service.Service, deps map[string]Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		Schedule: NewScheduleHandler(svc.Schedule, logger),
		Training: NewTrainingHandler(svc.Training, logger),
		Export:   NewExportHandler(svc.Export, logger),
		Health:   NewHealthHandler(deps),
	}
}
