package dto

import (
	"github.com/carbonex30/scheduler/internal/mlmodel"
	"github.com/carbonex30/scheduler/internal/model"
)

// ── 模型训练 DTO ──

// TrainModelRequest 训练请求；rows 为已解析的历史分配
type TrainModelRequest struct {
	Rows      []mlmodel.Row `json:"rows"`
	ModelType string        `json:"model_type" binding:"required,oneof=preference_predictor conflict_detector"`
	ModelName string        `json:"model_name" binding:"omitempty,max=100"`
}

// TrainingHistoryRequest 训练历史查询参数
type TrainingHistoryRequest struct {
	ModelType string `form:"model_type" binding:"omitempty,oneof=preference_predictor conflict_detector"`
}

// TrainModelResult 训练结果
type TrainModelResult struct {
	Success                 bool               `json:"success"`
	TrainingRecordID        string             `json:"training_record_id,omitempty"`
	ModelType               string             `json:"model_type"`
	NumSamples              int                `json:"num_samples"`
	Metrics                 map[string]float64 `json:"metrics"`
	ModelPath               string             `json:"model_path,omitempty"`
	ArtifactVersion         int                `json:"artifact_version,omitempty"`
	TrainingDurationSeconds float64            `json:"training_duration_seconds"`
	Warnings                []string           `json:"warnings"`
	Errors                  []string           `json:"errors"`
}

// TrainingRecordResponse 训练记录响应
type TrainingRecordResponse struct {
	ID                  string             `json:"id"`
	ModelType           string             `json:"model_type"`
	ModelName           string             `json:"model_name,omitempty"`
	Status              string             `json:"status"`
	TrainingStartedAt   string             `json:"training_started_at"`
	TrainingCompletedAt *string            `json:"training_completed_at,omitempty"`
	NumSamples          int                `json:"num_samples"`
	Metrics             map[string]float64 `json:"metrics"`
	Warnings            []string           `json:"warnings"`
	ModelPath           string             `json:"model_path,omitempty"`
	ArtifactVersion     int                `json:"artifact_version,omitempty"`
	ErrorMessage        string             `json:"error_message,omitempty"`
}

// NewTrainingRecordResponse 将训练记录转换为响应
func NewTrainingRecordResponse(r *model.TrainingRecord) TrainingRecordResponse {
	return TrainingRecordResponse{
		ID:                  r.TrainingRecordID,
		ModelType:           r.ModelType,
		ModelName:           r.ModelName,
		Status:              string(r.Status),
		TrainingStartedAt:   r.TrainingStartedAt.UTC().Format(DateTimeLayout),
		TrainingCompletedAt: formatTime(r.TrainingCompletedAt),
		NumSamples:          r.NumSamples,
		Metrics:             r.MetricValues(),
		Warnings:            nonNil(r.Warnings),
		ModelPath:           r.ModelPath,
		ArtifactVersion:     r.ArtifactVersion,
		ErrorMessage:        r.ErrorMessage,
	}
}
