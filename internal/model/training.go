package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 模型类型
const (
	ModelTypePreference = "preference_predictor"
	ModelTypeConflict   = "conflict_detector"
)

// ValidModelType 是否为支持的模型类型
func ValidModelType(t string) bool {
	return t == ModelTypePreference || t == ModelTypeConflict
}

// TrainingStatus 训练记录状态
type TrainingStatus string

const (
	TrainingRunning   TrainingStatus = "running"
	TrainingCompleted TrainingStatus = "completed"
	TrainingFailed    TrainingStatus = "failed"
)

// IsTerminal 终态记录不可再修改
func (s TrainingStatus) IsTerminal() bool {
	return s == TrainingCompleted || s == TrainingFailed
}

// TrainingRecord 训练记录，对应 training_records（追加写日志）
type TrainingRecord struct {
	TrainingRecordID    string                      `gorm:"type:uuid;primaryKey"            json:"training_record_id"`
	ModelType           string                      `gorm:"type:varchar(50);not null;index" json:"model_type"`
	ModelName           string                      `gorm:"type:varchar(100)"               json:"model_name,omitempty"`
	TrainingStartedAt   time.Time                   `gorm:"not null"                        json:"training_started_at"`
	TrainingCompletedAt *time.Time                  `json:"training_completed_at,omitempty"`
	NumSamples          int                         `gorm:"not null"                        json:"num_samples"`
	Metrics             datatypes.JSONMap           `json:"metrics,omitempty"`
	Warnings            datatypes.JSONSlice[string] `json:"warnings,omitempty"`
	Status              TrainingStatus              `gorm:"type:varchar(20);not null;index" json:"status"`
	ModelPath           string                      `gorm:"type:varchar(500)"               json:"model_path,omitempty"`
	ArtifactVersion     int                         `gorm:"not null"                        json:"artifact_version"`
	ErrorMessage        string                      `gorm:"type:text"                       json:"error_message,omitempty"`
	CreatedAt           time.Time                   `gorm:"not null"                        json:"created_at"`
}

// TableName 指定表名
func (TrainingRecord) TableName() string { return "training_records" }

func (r *TrainingRecord) BeforeCreate(*gorm.DB) error {
	newID(&r.TrainingRecordID)
	if r.Status == "" {
		r.Status = TrainingRunning
	}
	return nil
}

// MetricValues 指标的数值视图；JSON 列读回的数字为 json.Number
func (r *TrainingRecord) MetricValues() map[string]float64 {
	out := make(map[string]float64, len(r.Metrics))
	for k, v := range r.Metrics {
		switch n := v.(type) {
		case float64:
			out[k] = n
		case int:
			out[k] = float64(n)
		case int64:
			out[k] = float64(n)
		case json.Number:
			if f, err := n.Float64(); err == nil {
				out[k] = f
			}
		}
	}
	return out
}

// ModelArtifact 模型产物，对应 model_artifacts（写入后不可变）
type ModelArtifact struct {
	ArtifactID       string    `gorm:"type:uuid;primaryKey"                                  json:"artifact_id"`
	ModelType        string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_artifact_ver" json:"model_type"`
	Version          int       `gorm:"not null;uniqueIndex:uq_artifact_ver"                  json:"version"`
	Path             string    `gorm:"type:varchar(500);not null"                            json:"path"`
	TrainingRecordID string    `gorm:"type:uuid;not null"                                    json:"training_record_id"`
	CreatedAt        time.Time `gorm:"not null"                                              json:"created_at"`
}

// TableName 指定表名
func (ModelArtifact) TableName() string { return "model_artifacts" }

func (a *ModelArtifact) BeforeCreate(*gorm.DB) error {
	newID(&a.ArtifactID)
	return nil
}

// All 返回全部持久化模型，供 AutoMigrate 使用
func All() []interface{} {
	return []interface{}{
		&Department{},
		&Employee{},
		&ShiftTemplate{},
		&TimeOffRequest{},
		&EmployeePreference{},
		&Schedule{},
		&Assignment{},
		&TrainingRecord{},
		&ModelArtifact{},
	}
}
