package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/carbonex30/scheduler/internal/service"
	pkgerrors "github.com/carbonex30/scheduler/pkg/errors"
	"github.com/carbonex30/scheduler/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
	logger    *zap.Logger
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, logger: logger}
}

// ExportSchedule 导出排班表
// GET /api/v1/schedules/:id/export?format=xlsx|ics
func (h *ExportHandler) ExportSchedule(c *gin.Context) {
	id, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	file, err := h.exportSvc.ExportSchedule(c.Request.Context(), id, c.Query("format"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, file.Filename, file.ContentType, file.Content.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		response.ErrorWithDetails(c, http.StatusBadRequest, 22001, "参数校验失败", err.Error())
	case errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 22101, "排班表不存在")
	case errors.Is(err, service.ErrExportNoItems):
		response.UnprocessableEntity(c, 22102, "排班表中无分配")
	default:
		h.logger.Error("导出失败", zap.String("request_id", RequestID(c)), zap.Error(err))
		response.InternalError(c)
	}
}
