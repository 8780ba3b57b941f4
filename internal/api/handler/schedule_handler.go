package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/carbonex30/scheduler/internal/dto"
	"github.com/carbonex30/scheduler/internal/service"
	pkgerrors "github.com/carbonex30/scheduler/pkg/errors"
	"github.com/carbonex30/scheduler/pkg/response"
)

// ScheduleHandler 排班模块 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
	logger      *zap.Logger
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc, logger: logger}
}

// CreateSchedule 创建草稿排班表
// POST /api/v1/schedules
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	schedule, err := h.scheduleSvc.CreateSchedule(c.Request.Context(), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.Created(c, schedule)
}

// Generate 创建排班表并生成
// POST /api/v1/schedules/generate
//
// 默认异步返回 202，进度通过 GET /schedules/:id 轮询；?wait=true 时在请求内完成生成。
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if QueryBool(c, "wait") {
		result, err := h.scheduleSvc.GenerateSchedule(c.Request.Context(), &req)
		if err != nil {
			h.handleScheduleError(c, err)
			return
		}
		response.OK(c, result)
		return
	}

	sub, err := h.scheduleSvc.SubmitGeneration(c.Request.Context(), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}
	response.Accepted(c, sub)
}

// Regenerate 对 draft / failed 排班表重新生成
// POST /api/v1/schedules/:id/generate
func (h *ScheduleHandler) Regenerate(c *gin.Context) {
	id, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.RegenerateScheduleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	sub, err := h.scheduleSvc.RegenerateSchedule(c.Request.Context(), id, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}
	response.Accepted(c, sub)
}

// Cancel 请求取消生成
// POST /api/v1/schedules/:id/cancel
func (h *ScheduleHandler) Cancel(c *gin.Context) {
	id, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	schedule, err := h.scheduleSvc.CancelGeneration(c.Request.Context(), id)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}
	response.OK(c, schedule)
}

// Publish 发布排班表
// POST /api/v1/schedules/:id/publish
func (h *ScheduleHandler) Publish(c *gin.Context) {
	id, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	schedule, err := h.scheduleSvc.PublishSchedule(c.Request.Context(), id)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}
	response.OK(c, schedule)
}

// Delete 删除排班表
// DELETE /api/v1/schedules/:id
func (h *ScheduleHandler) Delete(c *gin.Context) {
	id, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	if err := h.scheduleSvc.DeleteSchedule(c.Request.Context(), id); err != nil {
		h.handleScheduleError(c, err)
		return
	}
	response.OK(c, nil)
}

// GetSchedule 获取排班表（含生成状态，用于轮询进度）
// GET /api/v1/schedules/:id
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	id, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	schedule, err := h.scheduleSvc.GetSchedule(c.Request.Context(), id)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}
	response.OK(c, schedule)
}

// Update 修改排班表名称 / 备注
// PATCH /api/v1/schedules/:id
func (h *ScheduleHandler) Update(c *gin.Context) {
	id, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	schedule, err := h.scheduleSvc.UpdateSchedule(c.Request.Context(), id, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}
	response.OK(c, schedule)
}

// ListSchedules 排班表列表
// GET /api/v1/schedules
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	var req dto.ScheduleListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	list, total, err := h.scheduleSvc.ListSchedules(c.Request.Context(), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetAssignments 排班明细
// GET /api/v1/schedules/:id/assignments
func (h *ScheduleHandler) GetAssignments(c *gin.Context) {
	id, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	items, err := h.scheduleSvc.GetScheduleAssignments(c.Request.Context(), id)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": items})
}

// handleScheduleError 统一处理排班模块业务错误
func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		response.ErrorWithDetails(c, http.StatusBadRequest, 20001, "参数校验失败", err.Error())
	case errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 20101, "排班表不存在")
	case errors.Is(err, pkgerrors.ErrConcurrentGeneration):
		response.Conflict(c, 20102, "排班表正在生成中")
	case errors.Is(err, pkgerrors.ErrIllegalTransition):
		response.ErrorWithDetails(c, http.StatusConflict, 20103, "当前状态不允许此操作", err.Error())
	case errors.Is(err, pkgerrors.ErrCancelled):
		response.Conflict(c, 20104, "生成已取消")
	case errors.Is(err, service.ErrJobRejected):
		response.ServiceUnavailable(c, 20105)
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 20106, "排班表已被修改，请刷新后重试")
	case errors.Is(err, pkgerrors.ErrStorage):
		h.logger.Error("排班存储失败", zap.String("request_id", RequestID(c)), zap.Error(err))
		response.StorageError(c)
	default:
		h.logger.Error("排班请求处理失败", zap.String("request_id", RequestID(c)), zap.Error(err))
		response.InternalError(c)
	}
}
