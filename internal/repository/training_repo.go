package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/carbonex30/scheduler/internal/model"
	pkgerrors "github.com/carbonex30/scheduler/pkg/errors"
)

// TrainingRepository 训练记录与模型产物数据访问接口
// 训练记录只追加；进入终态后不再修改
type TrainingRepository interface {
	Create(ctx context.Context, record *model.TrainingRecord) error
	GetByID(ctx context.Context, id string) (*model.TrainingRecord, error)
	// Complete 写入产物行并将记录置为 completed
	Complete(ctx context.Context, record *model.TrainingRecord, artifact *model.ModelArtifact) error
	// Fail 将 running 记录置为 failed
	Fail(ctx context.Context, record *model.TrainingRecord) error
	List(ctx context.Context, modelType string) ([]model.TrainingRecord, error)
	LatestCompleted(ctx context.Context, modelType string) (*model.TrainingRecord, error)
	NextVersion(ctx context.Context, modelType string) (int, error)
	HasRunning(ctx context.Context, modelType string) (bool, error)
	ListStaleRunning(ctx context.Context, startedBefore time.Time) ([]model.TrainingRecord, error)
}

type trainingRepo struct {
	db *gorm.DB
}

// NewTrainingRepo 创建 TrainingRepository 实例
func NewTrainingRepo(db *gorm.DB) TrainingRepository {
	return &trainingRepo{db: db}
}

func (r *trainingRepo) Create(ctx context.Context, record *model.TrainingRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *trainingRepo) GetByID(ctx context.Context, id string) (*model.TrainingRecord, error) {
	var record model.TrainingRecord
	err := r.db.WithContext(ctx).
		Where("training_record_id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *trainingRepo) Complete(ctx context.Context, record *model.TrainingRecord, artifact *model.ModelArtifact) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(artifact).Error; err != nil {
			return err
		}
		result := tx.Model(&model.TrainingRecord{}).
			Where("training_record_id = ? AND status = ?", record.TrainingRecordID, model.TrainingRunning).
			Updates(map[string]interface{}{
				"status":                model.TrainingCompleted,
				"training_completed_at": record.TrainingCompletedAt,
				"num_samples":           record.NumSamples,
				"metrics":               record.Metrics,
				"warnings":              record.Warnings,
				"model_path":            record.ModelPath,
				"artifact_version":      record.ArtifactVersion,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}
		record.Status = model.TrainingCompleted
		return nil
	})
}

func (r *trainingRepo) Fail(ctx context.Context, record *model.TrainingRecord) error {
	result := r.db.WithContext(ctx).
		Model(&model.TrainingRecord{}).
		Where("training_record_id = ? AND status = ?", record.TrainingRecordID, model.TrainingRunning).
		Updates(map[string]interface{}{
			"status":                model.TrainingFailed,
			"training_completed_at": record.TrainingCompletedAt,
			"num_samples":           record.NumSamples,
			"warnings":              record.Warnings,
			"error_message":         record.ErrorMessage,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	record.Status = model.TrainingFailed
	return nil
}

func (r *trainingRepo) List(ctx context.Context, modelType string) ([]model.TrainingRecord, error) {
	var records []model.TrainingRecord
	q := r.db.WithContext(ctx)
	if modelType != "" {
		q = q.Where("model_type = ?", modelType)
	}
	err := q.Order("training_started_at DESC, created_at DESC, training_record_id DESC").
		Find(&records).Error
	return records, err
}

func (r *trainingRepo) LatestCompleted(ctx context.Context, modelType string) (*model.TrainingRecord, error) {
	var record model.TrainingRecord
	err := r.db.WithContext(ctx).
		Where("model_type = ? AND status = ?", modelType, model.TrainingCompleted).
		Order("artifact_version DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *trainingRepo) NextVersion(ctx context.Context, modelType string) (int, error) {
	var latest int
	err := r.db.WithContext(ctx).
		Model(&model.ModelArtifact{}).
		Where("model_type = ?", modelType).
		Select("COALESCE(MAX(version), 0)").
		Scan(&latest).Error
	if err != nil {
		return 0, err
	}
	return latest + 1, nil
}

func (r *trainingRepo) HasRunning(ctx context.Context, modelType string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.TrainingRecord{}).
		Where("model_type = ? AND status = ?", modelType, model.TrainingRunning).
		Count(&n).Error
	return n > 0, err
}

func (r *trainingRepo) ListStaleRunning(ctx context.Context, startedBefore time.Time) ([]model.TrainingRecord, error) {
	var records []model.TrainingRecord
	err := r.db.WithContext(ctx).
		Where("status = ? AND training_started_at < ?", model.TrainingRunning, startedBefore.UTC()).
		Order("training_started_at ASC").
		Find(&records).Error
	return records, err
}
