package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/carbonex30/scheduler/internal/model"
	pkgerrors "github.com/carbonex30/scheduler/pkg/errors"
)

// ScheduleRepository 排班表与分配明细数据访问接口
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *model.Schedule) error
	GetByID(ctx context.Context, id string) (*model.Schedule, error)
	List(ctx context.Context, status model.ScheduleStatus, offset, limit int) ([]model.Schedule, int64, error)
	Update(ctx context.Context, schedule *model.Schedule) error
	// TransitionStatus 条件更新：仅当当前状态属于 from 时迁移到 to，返回是否生效
	TransitionStatus(ctx context.Context, id string, from []model.ScheduleStatus, to model.ScheduleStatus, updates map[string]interface{}) (bool, error)
	// SaveGeneration 同一事务内整体替换分配并写入 generated 汇总
	SaveGeneration(ctx context.Context, schedule *model.Schedule, assignments []model.Assignment) error
	RequestCancel(ctx context.Context, id string) (bool, error)
	IsCancelRequested(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	ListAssignments(ctx context.Context, scheduleID string) ([]model.Assignment, error)
	CountAssignments(ctx context.Context, scheduleID string) (int64, error)
	ListStaleGenerating(ctx context.Context, startedBefore time.Time) ([]model.Schedule, error)
}

// ── Schedule Repository 实现 ──

type scheduleRepo struct {
	db *gorm.DB
}

// NewScheduleRepo 创建 ScheduleRepository 实例
func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

// assignmentBatchSize 批量插入分配的批大小
const assignmentBatchSize = 500

func (r *scheduleRepo) Create(ctx context.Context, schedule *model.Schedule) error {
	if schedule.Version == 0 {
		schedule.Version = 1
	}
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *scheduleRepo) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	var schedule model.Schedule
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepo) List(ctx context.Context, status model.ScheduleStatus, offset, limit int) ([]model.Schedule, int64, error) {
	var (
		schedules []model.Schedule
		total     int64
	)
	q := r.db.WithContext(ctx).Model(&model.Schedule{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC, schedule_id ASC").
		Offset(offset).Limit(limit).
		Find(&schedules).Error
	return schedules, total, err
}

// Update 更新名称与备注（乐观锁）
func (r *scheduleRepo) Update(ctx context.Context, schedule *model.Schedule) error {
	oldVersion := schedule.Version
	result := r.db.WithContext(ctx).
		Model(schedule).
		Where("schedule_id = ? AND version = ?", schedule.ScheduleID, oldVersion).
		Updates(map[string]interface{}{
			"name":    schedule.Name,
			"notes":   schedule.Notes,
			"version": oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	schedule.Version = oldVersion + 1
	return nil
}

func (r *scheduleRepo) TransitionStatus(ctx context.Context, id string, from []model.ScheduleStatus, to model.ScheduleStatus, updates map[string]interface{}) (bool, error) {
	values := make(map[string]interface{}, len(updates)+2)
	for k, v := range updates {
		values[k] = v
	}
	values["status"] = to
	values["version"] = gorm.Expr("version + 1")

	result := r.db.WithContext(ctx).
		Model(&model.Schedule{}).
		Where("schedule_id = ? AND status IN ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *scheduleRepo) SaveGeneration(ctx context.Context, schedule *model.Schedule, assignments []model.Assignment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("schedule_id = ?", schedule.ScheduleID).
			Delete(&model.Assignment{}).Error; err != nil {
			return err
		}

		if len(assignments) > 0 {
			for i := range assignments {
				assignments[i].ScheduleID = schedule.ScheduleID
				assignments[i].StartsAt = assignments[i].StartsAt.UTC()
				assignments[i].EndsAt = assignments[i].EndsAt.UTC()
			}
			if err := tx.CreateInBatches(&assignments, assignmentBatchSize).Error; err != nil {
				return err
			}
		}

		result := tx.Model(&model.Schedule{}).
			Where("schedule_id = ? AND status = ? AND cancel_requested = ?",
				schedule.ScheduleID, model.ScheduleGenerating, false).
			Updates(map[string]interface{}{
				"status":                      model.ScheduleGenerated,
				"generation_completed_at":     schedule.GenerationCompletedAt,
				"generation_duration_seconds": schedule.GenerationDurationSeconds,
				"optimizer_score":             schedule.OptimizerScore,
				"ml_assisted":                 schedule.MLAssisted,
				"num_assignments":             schedule.NumAssignments,
				"num_unassigned_shifts":       schedule.NumUnassignedShifts,
				"warnings":                    schedule.Warnings,
				"errors":                      schedule.Errors,
				"version":                     gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// 期间被取消或被清理任务标记失败，整体回滚
			var current model.Schedule
			if err := tx.Select("status", "cancel_requested").
				Where("schedule_id = ?", schedule.ScheduleID).
				First(&current).Error; err != nil {
				return err
			}
			if current.CancelRequested {
				return pkgerrors.ErrCancelled
			}
			return &model.TransitionError{From: current.Status, To: model.ScheduleGenerated}
		}
		return nil
	})
}

func (r *scheduleRepo) RequestCancel(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Schedule{}).
		Where("schedule_id = ? AND status = ?", id, model.ScheduleGenerating).
		Update("cancel_requested", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *scheduleRepo) IsCancelRequested(ctx context.Context, id string) (bool, error) {
	var schedule model.Schedule
	err := r.db.WithContext(ctx).
		Select("cancel_requested").
		Where("schedule_id = ?", id).
		First(&schedule).Error
	if err != nil {
		return false, err
	}
	return schedule.CancelRequested, nil
}

// Delete 删除排班表及其全部分配；生成中的排班表拒绝删除
func (r *scheduleRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var schedule model.Schedule
		if err := tx.Select("schedule_id", "status").
			Where("schedule_id = ?", id).
			First(&schedule).Error; err != nil {
			return err
		}
		if !schedule.Status.CanDelete() {
			return pkgerrors.ErrConcurrentGeneration
		}

		if err := tx.Where("schedule_id = ?", id).Delete(&model.Assignment{}).Error; err != nil {
			return err
		}
		result := tx.Where("schedule_id = ? AND status <> ?", id, model.ScheduleGenerating).
			Delete(&model.Schedule{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrConcurrentGeneration
		}
		return nil
	})
}

func (r *scheduleRepo) ListAssignments(ctx context.Context, scheduleID string) ([]model.Assignment, error) {
	var items []model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Preload("ShiftTemplate").
		Where("schedule_id = ?", scheduleID).
		Order("shift_date ASC, start_time ASC, employee_id ASC, assignment_id ASC").
		Find(&items).Error
	return items, err
}

func (r *scheduleRepo) CountAssignments(ctx context.Context, scheduleID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("schedule_id = ?", scheduleID).
		Count(&n).Error
	return n, err
}

func (r *scheduleRepo) ListStaleGenerating(ctx context.Context, startedBefore time.Time) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := r.db.WithContext(ctx).
		Where("status = ? AND generation_started_at < ?", model.ScheduleGenerating, startedBefore.UTC()).
		Order("generation_started_at ASC").
		Find(&schedules).Error
	return schedules, err
}

// IsNotFound 判断是否为记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
