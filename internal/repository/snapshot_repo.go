package repository

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/carbonex30/scheduler/internal/model"
)

// SnapshotQuery 快照范围
type SnapshotQuery struct {
	Start         time.Time
	End           time.Time
	DepartmentIDs []string
	// ExcludeScheduleID 重新生成时排除本排班表自身的旧分配
	ExcludeScheduleID string
}

// SnapshotRepository 主数据只读快照
type SnapshotRepository interface {
	Load(ctx context.Context, q SnapshotQuery) (*model.Snapshot, error)
}

type snapshotRepo struct {
	db *gorm.DB
}

// NewSnapshotRepo 创建 SnapshotRepository 实例
func NewSnapshotRepo(db *gorm.DB) SnapshotRepository {
	return &snapshotRepo{db: db}
}

// committedMargin 已确定班次的查询余量，覆盖区间两端所在 ISO 周与跨天班次
const committedMargin = 8 * 24 * time.Hour

// Load 在同一个只读事务内读取全部主数据
// postgres 使用 REPEATABLE READ，保证生成期间看不到之后的主数据修改
func (r *snapshotRepo) Load(ctx context.Context, q SnapshotQuery) (*model.Snapshot, error) {
	var opts []*sql.TxOptions
	if r.db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}

	snap := &model.Snapshot{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("is_active = ?", true).
			Order("department_id ASC").
			Find(&snap.Departments).Error; err != nil {
			return err
		}

		if err := tx.Where("is_active = ?", true).
			Order("employee_id ASC").
			Find(&snap.Employees).Error; err != nil {
			return err
		}

		tq := tx.Where("is_active = ?", true)
		if len(q.DepartmentIDs) > 0 {
			tq = tq.Where("department_id IN ?", q.DepartmentIDs)
		}
		if err := tq.Order("shift_template_id ASC").Find(&snap.Templates).Error; err != nil {
			return err
		}

		if err := tx.Where("start_date <= ? AND end_date >= ?", q.End, q.Start).
			Order("employee_id ASC, start_date ASC").
			Find(&snap.TimeOff).Error; err != nil {
			return err
		}

		if err := tx.Where("is_active = ?", true).
			Order("employee_id ASC, preference_id ASC").
			Find(&snap.Preferences).Error; err != nil {
			return err
		}

		cq := tx.Model(&model.Assignment{}).
			Joins("JOIN schedules ON schedules.schedule_id = assignments.schedule_id").
			Where("schedules.status IN ?", []model.ScheduleStatus{model.ScheduleGenerated, model.SchedulePublished}).
			Where("assignments.starts_at < ? AND assignments.ends_at > ?",
				q.End.Add(committedMargin).UTC(), q.Start.Add(-committedMargin).UTC())
		if q.ExcludeScheduleID != "" {
			cq = cq.Where("assignments.schedule_id <> ?", q.ExcludeScheduleID)
		}
		return cq.Order("assignments.employee_id ASC, assignments.starts_at ASC").
			Find(&snap.Committed).Error
	}, opts...)
	if err != nil {
		return nil, err
	}
	return snap, nil
}
