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

// TrainingHandler 模型训练 HTTP 处理器
type TrainingHandler struct {
	trainingSvc service.TrainingService
	logger      *zap.Logger
}

// NewTrainingHandler 创建 TrainingHandler
func NewTrainingHandler(trainingSvc service.TrainingService, logger *zap.Logger) *TrainingHandler {
	return &TrainingHandler{trainingSvc: trainingSvc, logger: logger}
}

// Train 训练模型
// POST /api/v1/ml/train
//
// 默认异步返回 202；?wait=true 时同步返回训练结果。
func (h *TrainingHandler) Train(c *gin.Context) {
	var req dto.TrainModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if QueryBool(c, "wait") {
		result, err := h.trainingSvc.TrainModel(c.Request.Context(), &req)
		if err != nil {
			h.handleTrainingError(c, err)
			return
		}
		response.OK(c, result)
		return
	}

	sub, err := h.trainingSvc.SubmitTraining(c.Request.Context(), &req)
	if err != nil {
		h.handleTrainingError(c, err)
		return
	}
	response.Accepted(c, sub)
}

// History 训练历史（新记录在前）
// GET /api/v1/ml/history
func (h *TrainingHandler) History(c *gin.Context) {
	var req dto.TrainingHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	list, err := h.trainingSvc.GetTrainingHistory(c.Request.Context(), req.ModelType)
	if err != nil {
		h.handleTrainingError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetRecord 单条训练记录
// GET /api/v1/ml/history/:id
func (h *TrainingHandler) GetRecord(c *gin.Context) {
	id, ok := MustGetID(c, "id")
	if !ok {
		return
	}

	rec, err := h.trainingSvc.GetTrainingRecord(c.Request.Context(), id)
	if err != nil {
		h.handleTrainingError(c, err)
		return
	}
	response.OK(c, rec)
}

// handleTrainingError 统一处理训练模块业务错误
func (h *TrainingHandler) handleTrainingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		response.ErrorWithDetails(c, http.StatusBadRequest, 21001, "参数校验失败", err.Error())
	case errors.Is(err, service.ErrTrainingRecordNotFound):
		response.NotFound(c, 21101, "训练记录不存在")
	case errors.Is(err, pkgerrors.ErrConcurrentTraining):
		response.Conflict(c, 21102, "该模型类型正在训练中")
	case errors.Is(err, pkgerrors.ErrTrainingData):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, 21103, "训练数据不足", err.Error())
	case errors.Is(err, service.ErrJobRejected):
		response.ServiceUnavailable(c, 21104)
	case errors.Is(err, pkgerrors.ErrStorage):
		h.logger.Error("训练存储失败", zap.String("request_id", RequestID(c)), zap.Error(err))
		response.StorageError(c)
	default:
		h.logger.Error("训练请求处理失败", zap.String("request_id", RequestID(c)), zap.Error(err))
		response.InternalError(c)
	}
}
