package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/carbonex30/scheduler/internal/model"
	"github.com/carbonex30/scheduler/internal/repository"
	pkgerrors "github.com/carbonex30/scheduler/pkg/errors"
)

// staleGrace 超时之外额外等待的时间，避免与正在收尾的任务竞争
const staleGrace = time.Minute

// JanitorOptions 清理任务参数
type JanitorOptions struct {
	Spec              string // cron 表达式，支持 @every
	GenerationTimeout time.Duration
	TrainingTimeout   time.Duration
	Now               func() time.Time
}

// Janitor 定期把进程崩溃后遗留的 generating 排班表与 running 训练记录置为 failed
type Janitor struct {
	repo   *repository.Repository
	opts   JanitorOptions
	logger *zap.Logger
	cron   *cron.Cron
}

// NewJanitor 创建清理任务；Start 之前不会运行
func NewJanitor(repo *repository.Repository, opts JanitorOptions, logger *zap.Logger) (*Janitor, error) {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	j := &Janitor{
		repo:   repo,
		opts:   opts,
		logger: logger,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	if opts.Spec == "" {
		return j, nil
	}
	if _, err := j.cron.AddFunc(opts.Spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		j.Sweep(ctx)
	}); err != nil {
		return nil, fmt.Errorf("无效的清理任务表达式 %q: %w", opts.Spec, err)
	}
	return j, nil
}

// Start 启动定时清理
func (j *Janitor) Start() {
	if j.opts.Spec == "" {
		j.logger.Info("未配置清理任务")
		return
	}
	j.cron.Start()
	j.logger.Info("清理任务已启动", zap.String("spec", j.opts.Spec))
}

// Stop 停止调度并等待正在执行的清理结束
func (j *Janitor) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// SweepResult 单次清理的结果
type SweepResult struct {
	Schedules int
	Trainings int
}

// Sweep 执行一次清理，返回置为 failed 的数量
func (j *Janitor) Sweep(ctx context.Context) SweepResult {
	var res SweepResult
	now := j.opts.Now()

	// ── 排班生成 ──
	if j.opts.GenerationTimeout > 0 {
		cutoff := now.Add(-(j.opts.GenerationTimeout + staleGrace))
		schedules, err := j.repo.Schedule.ListStaleGenerating(ctx, cutoff)
		if err != nil {
			j.logger.Error("查询超时排班表失败", zap.Error(err))
		}
		for i := range schedules {
			s := &schedules[i]
			ok, err := j.repo.Schedule.TransitionStatus(ctx, s.ScheduleID,
				[]model.ScheduleStatus{model.ScheduleGenerating}, model.ScheduleFailed,
				map[string]interface{}{
					"generation_completed_at": now,
					"optimizer_score":         nil,
					"errors": datatypes.JSONSlice[string]{
						fmt.Sprintf("generation abandoned: no progress for more than %s", j.opts.GenerationTimeout),
					},
				})
			if err != nil {
				j.logger.Error("标记超时排班表失败", zap.String("schedule_id", s.ScheduleID), zap.Error(err))
				continue
			}
			if ok {
				res.Schedules++
				j.logger.Warn("排班生成超时，已标记为失败", zap.String("schedule_id", s.ScheduleID))
			}
		}
	}

	// ── 模型训练 ──
	if j.opts.TrainingTimeout > 0 {
		cutoff := now.Add(-(j.opts.TrainingTimeout + staleGrace))
		records, err := j.repo.Training.ListStaleRunning(ctx, cutoff)
		if err != nil {
			j.logger.Error("查询超时训练记录失败", zap.Error(err))
		}
		for i := range records {
			rec := &records[i]
			rec.TrainingCompletedAt = &now
			rec.ErrorMessage = fmt.Sprintf("training abandoned: no progress for more than %s", j.opts.TrainingTimeout)
			if rec.Warnings == nil {
				rec.Warnings = datatypes.JSONSlice[string]{}
			}
			if err := j.repo.Training.Fail(ctx, rec); err != nil {
				if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
					j.logger.Error("标记超时训练记录失败", zap.String("training_record_id", rec.TrainingRecordID), zap.Error(err))
				}
				continue
			}
			res.Trainings++
			j.logger.Warn("模型训练超时，已标记为失败", zap.String("training_record_id", rec.TrainingRecordID))
		}
	}

	return res
}
