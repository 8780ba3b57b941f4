package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/carbonex30/scheduler/config"
	"github.com/carbonex30/scheduler/internal/dto"
	"github.com/carbonex30/scheduler/internal/engine"
	"github.com/carbonex30/scheduler/internal/mlmodel"
	"github.com/carbonex30/scheduler/internal/model"
	"github.com/carbonex30/scheduler/internal/repository"
	pkgerrors "github.com/carbonex30/scheduler/pkg/errors"
)

// 运行结果中的固定提示
const (
	warnMLUnavailable = "ML model unavailable, used baseline"
	warnCancelled     = "cancelled"
)

// ScheduleService 排班业务接口
type ScheduleService interface {
	// 创建草稿排班表
	CreateSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	// 同步生成：创建排班表并在当前请求内完成生成
	GenerateSchedule(ctx context.Context, req *dto.GenerateScheduleRequest) (*dto.GenerateScheduleResult, error)
	// 异步生成：创建排班表后立即返回，进度通过状态轮询
	SubmitGeneration(ctx context.Context, req *dto.GenerateScheduleRequest) (*dto.SubmitResponse, error)
	// 对 draft / failed 排班表重新生成（异步）
	RegenerateSchedule(ctx context.Context, id string, req *dto.RegenerateScheduleRequest) (*dto.SubmitResponse, error)
	// 请求取消生成
	CancelGeneration(ctx context.Context, id string) (*dto.ScheduleResponse, error)
	// 发布排班表
	PublishSchedule(ctx context.Context, id string) (*dto.ScheduleResponse, error)
	// 修改名称 / 备注（乐观锁）
	UpdateSchedule(ctx context.Context, id string, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error)
	// 删除排班表（级联删除分配）
	DeleteSchedule(ctx context.Context, id string) error
	GetSchedule(ctx context.Context, id string) (*dto.ScheduleResponse, error)
	ListSchedules(ctx context.Context, req *dto.ScheduleListRequest) ([]dto.ScheduleResponse, int64, error)
	GetScheduleAssignments(ctx context.Context, id string) ([]dto.AssignmentResponse, error)
}

type scheduleService struct {
	cfg    *config.Config
	repo   *repository.Repository
	store  *mlmodel.ArtifactStore
	locker Locker
	runner Runner
	logger *zap.Logger
	now    func() time.Time

	// 产物文件不可变，按路径缓存已加载的模型
	modelMu sync.Mutex
	models  map[string]interface{}
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(opts Options, store *mlmodel.ArtifactStore) ScheduleService {
	return &scheduleService{
		cfg:    opts.Config,
		repo:   opts.Repo,
		store:  store,
		locker: opts.Locker,
		runner: opts.Runner,
		logger: opts.Logger,
		now:    opts.Now,
		models: make(map[string]interface{}),
	}
}

func scheduleLockKey(id string) string { return "schedule:" + id }

// ════════════════════════════════════════════════════════════
// 创建
// ════════════════════════════════════════════════════════════

func (s *scheduleService) CreateSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	r, err := s.parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	schedule := &model.Schedule{
		Name:          req.Name,
		StartDate:     r.Start,
		EndDate:       r.End,
		Status:        model.ScheduleDraft,
		DepartmentIDs: datatypes.JSONSlice[string](req.DepartmentIDs),
		Notes:         req.Notes,
	}
	if err := s.repo.Schedule.Create(ctx, schedule); err != nil {
		s.logger.Error("创建排班表失败", zap.Error(err))
		return nil, fmt.Errorf("%w: create schedule: %v", pkgerrors.ErrStorage, err)
	}
	return dto.NewScheduleResponse(schedule), nil
}

// parseRange 解析并校验日期范围
func (s *scheduleService) parseRange(start, end string) (engine.DateRange, error) {
	var r engine.DateRange
	var err error
	if r.Start, err = time.Parse(dto.DateLayout, start); err != nil {
		return r, fmt.Errorf("%w: invalid start_date %q", pkgerrors.ErrValidation, start)
	}
	if r.End, err = time.Parse(dto.DateLayout, end); err != nil {
		return r, fmt.Errorf("%w: invalid end_date %q", pkgerrors.ErrValidation, end)
	}
	if err := engine.ValidateRange(r, s.cfg.Scheduling.MaxHorizonDays); err != nil {
		return r, err
	}
	return r, nil
}

// newDraft 为生成请求创建草稿排班表
func (s *scheduleService) newDraft(ctx context.Context, req *dto.GenerateScheduleRequest) (*model.Schedule, error) {
	r, err := s.parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	name := req.Name
	if name == "" {
		name = fmt.Sprintf("Schedule %s to %s", req.StartDate, req.EndDate)
	}
	schedule := &model.Schedule{
		Name:          name,
		StartDate:     r.Start,
		EndDate:       r.End,
		Status:        model.ScheduleDraft,
		DepartmentIDs: datatypes.JSONSlice[string](req.DepartmentIDs),
		UseML:         req.UseML,
		Notes:         req.Notes,
	}
	if err := s.repo.Schedule.Create(ctx, schedule); err != nil {
		s.logger.Error("创建排班表失败", zap.Error(err))
		return nil, fmt.Errorf("%w: create schedule: %v", pkgerrors.ErrStorage, err)
	}
	return schedule, nil
}

// ════════════════════════════════════════════════════════════
// 生成
// ════════════════════════════════════════════════════════════

func (s *scheduleService) GenerateSchedule(ctx context.Context, req *dto.GenerateScheduleRequest) (*dto.GenerateScheduleResult, error) {
	schedule, err := s.newDraft(ctx, req)
	if err != nil {
		return failedResult("", err), err
	}
	unlock, err := s.begin(ctx, schedule, req.UseML)
	if err != nil {
		return failedResult(schedule.ScheduleID, err), err
	}
	defer unlock()

	return s.execute(ctx, schedule)
}

func (s *scheduleService) SubmitGeneration(ctx context.Context, req *dto.GenerateScheduleRequest) (*dto.SubmitResponse, error) {
	schedule, err := s.newDraft(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, schedule, req.UseML)
}

func (s *scheduleService) RegenerateSchedule(ctx context.Context, id string, req *dto.RegenerateScheduleRequest) (*dto.SubmitResponse, error) {
	schedule, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !schedule.Status.CanStartGeneration() {
		if schedule.Status == model.ScheduleGenerating {
			return nil, pkgerrors.ErrConcurrentGeneration
		}
		return nil, &model.TransitionError{From: schedule.Status, To: model.ScheduleGenerating}
	}
	return s.submit(ctx, schedule, req.UseML)
}

// submit 同步抢占排班表后把生成交给后台执行器
func (s *scheduleService) submit(ctx context.Context, schedule *model.Schedule, useML bool) (*dto.SubmitResponse, error) {
	unlock, err := s.begin(ctx, schedule, useML)
	if err != nil {
		return nil, err
	}

	job := *schedule
	err = s.runner.Submit(scheduleLockKey(schedule.ScheduleID), func(jobCtx context.Context) {
		defer unlock()
		_, _ = s.execute(jobCtx, &job)
	})
	if err != nil {
		s.logger.Error("提交生成任务失败", zap.String("schedule_id", schedule.ScheduleID), zap.Error(err))
		s.markFailed(&job, nil, []string{err.Error()})
		unlock()
		return nil, fmt.Errorf("%w: %v", ErrJobRejected, err)
	}

	s.logger.Info("生成任务已提交", zap.String("schedule_id", schedule.ScheduleID), zap.Bool("use_ml", useML))
	return &dto.SubmitResponse{ID: schedule.ScheduleID, Status: string(model.ScheduleGenerating)}, nil
}

// begin 抢占排班表：任务锁 + 条件状态更新（draft/failed → generating）
func (s *scheduleService) begin(ctx context.Context, schedule *model.Schedule, useML bool) (func(), error) {
	unlock, ok, err := s.locker.TryLock(ctx, scheduleLockKey(schedule.ScheduleID), s.cfg.Scheduling.GenerationTimeout+time.Minute)
	if err != nil {
		s.logger.Error("获取排班任务锁失败", zap.String("schedule_id", schedule.ScheduleID), zap.Error(err))
		return nil, fmt.Errorf("%w: acquire lock: %v", pkgerrors.ErrStorage, err)
	}
	if !ok {
		return nil, pkgerrors.ErrConcurrentGeneration
	}

	now := s.now()
	ok, err = s.repo.Schedule.TransitionStatus(ctx, schedule.ScheduleID, model.GenerationSources(), model.ScheduleGenerating,
		map[string]interface{}{
			"generation_started_at":       now,
			"generation_completed_at":     nil,
			"generation_duration_seconds": 0,
			"optimizer_score":             nil,
			"ml_assisted":                 false,
			"use_ml":                      useML,
			"num_assignments":             0,
			"num_unassigned_shifts":       0,
			"warnings":                    datatypes.JSONSlice[string]{},
			"errors":                      datatypes.JSONSlice[string]{},
			"cancel_requested":            false,
		})
	if err != nil {
		unlock()
		s.logger.Error("更新排班表状态失败", zap.String("schedule_id", schedule.ScheduleID), zap.Error(err))
		return nil, fmt.Errorf("%w: start generation: %v", pkgerrors.ErrStorage, err)
	}
	if !ok {
		unlock()
		current, err := s.get(ctx, schedule.ScheduleID)
		if err != nil {
			return nil, err
		}
		if current.Status == model.ScheduleGenerating {
			return nil, pkgerrors.ErrConcurrentGeneration
		}
		return nil, &model.TransitionError{From: current.Status, To: model.ScheduleGenerating}
	}

	schedule.UseML = useML
	schedule.Status = model.ScheduleGenerating
	schedule.GenerationStartedAt = &now
	schedule.GenerationCompletedAt = nil
	schedule.OptimizerScore = nil
	schedule.CancelRequested = false
	return unlock, nil
}

// execute 生成主流程；调用方已持有锁且排班表处于 generating
// 失败时 result.Success=false，同时返回可用 errors.Is 分类的错误
func (s *scheduleService) execute(ctx context.Context, schedule *model.Schedule) (result *dto.GenerateScheduleResult, runErr error) {
	var cancel context.CancelFunc
	if s.cfg.Scheduling.GenerationTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Scheduling.GenerationTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	log := s.logger.With(zap.String("schedule_id", schedule.ScheduleID))
	result = &dto.GenerateScheduleResult{
		ScheduleID: schedule.ScheduleID,
		Warnings:   []string{},
		Errors:     []string{},
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("生成任务 panic", zap.Any("panic", r))
			msg := fmt.Sprintf("internal error: %v", r)
			s.markFailed(schedule, result.Warnings, []string{msg})
			result.Success = false
			result.Errors = append(result.Errors, msg)
			runErr = errors.New(msg)
		}
	}()

	fail := func(err error) (*dto.GenerateScheduleResult, error) {
		if errors.Is(err, pkgerrors.ErrCancelled) || errors.Is(err, context.Canceled) {
			err = pkgerrors.ErrCancelled
			log.Info("生成任务已取消")
			result.Warnings = append(result.Warnings, warnCancelled)
			s.markFailed(schedule, result.Warnings, nil)
			result.Errors = append(result.Errors, warnCancelled)
		} else {
			if errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("generation timed out after %s: %w", s.cfg.Scheduling.GenerationTimeout, err)
			}
			log.Error("生成任务失败", zap.Error(err))
			s.markFailed(schedule, result.Warnings, []string{err.Error()})
			result.Errors = append(result.Errors, err.Error())
		}
		result.Success = false
		result.GenerationDurationSeconds = schedule.GenerationDurationSeconds
		return result, err
	}

	// 1. 主数据快照
	snap, err := s.repo.Snapshot.Load(ctx, repository.SnapshotQuery{
		Start:             schedule.StartDate,
		End:               schedule.EndDate,
		DepartmentIDs:     schedule.DepartmentIDs,
		ExcludeScheduleID: schedule.ScheduleID,
	})
	if err != nil {
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		return fail(fmt.Errorf("%w: load snapshot: %v", pkgerrors.ErrStorage, err))
	}

	// 2. 展开班次实例
	loc := s.cfg.Scheduling.Location()
	instances, err := engine.ExpandShifts(snap.Templates,
		engine.DateRange{Start: schedule.StartDate, End: schedule.EndDate}, schedule.DepartmentIDs, loc)
	if err != nil {
		return fail(err)
	}

	// 3. 评分器与冲突检测
	scorer, detector, warnings := s.loadModels(ctx, schedule.UseML)
	result.Warnings = append(result.Warnings, warnings...)

	// 4. 贪心分配
	res, err := engine.Optimize(ctx, instances, snap, engine.Options{
		Scorer:           scorer,
		Detector:         detector,
		Location:         loc,
		CancelCheckEvery: s.cfg.Scheduling.CancelCheckEvery,
		Checkpoint:       s.checkpoint(schedule.ScheduleID),
	})
	if err != nil {
		return fail(err)
	}
	result.Warnings = append(result.Warnings, res.Warnings...)

	// 5. 整体替换分配并写入汇总
	completed := s.now()
	score := res.Score
	schedule.GenerationCompletedAt = &completed
	schedule.GenerationDurationSeconds = completed.Sub(*schedule.GenerationStartedAt).Seconds()
	schedule.OptimizerScore = &score
	schedule.MLAssisted = scorer.MLAssisted()
	schedule.NumAssignments = len(res.Assignments)
	schedule.NumUnassignedShifts = res.Unassigned
	schedule.Warnings = result.Warnings
	schedule.Errors = datatypes.JSONSlice[string]{}

	if err := s.repo.Schedule.SaveGeneration(ctx, schedule, res.Assignments); err != nil {
		var te *model.TransitionError
		switch {
		case errors.Is(err, pkgerrors.ErrCancelled), ctx.Err() != nil:
			return fail(pkgerrors.ErrCancelled)
		case errors.As(err, &te):
			// 已被清理任务标记为 failed，不再覆盖
			log.Warn("保存生成结果时状态已变化", zap.String("status", string(te.From)))
			result.Errors = append(result.Errors, te.Error())
			return result, err
		default:
			return fail(fmt.Errorf("%w: save assignments: %v", pkgerrors.ErrStorage, err))
		}
	}
	schedule.Status = model.ScheduleGenerated

	result.Success = true
	result.NumAssignments = schedule.NumAssignments
	result.NumUnassignedShifts = schedule.NumUnassignedShifts
	result.OptimizerScore = score
	result.GenerationDurationSeconds = schedule.GenerationDurationSeconds
	result.MLAssisted = schedule.MLAssisted

	log.Info("排班生成完成",
		zap.Int("instances", res.Instances),
		zap.Int("assignments", result.NumAssignments),
		zap.Int("unassigned", result.NumUnassignedShifts),
		zap.Float64("score", score),
		zap.Bool("ml_assisted", result.MLAssisted),
		zap.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}

// checkpoint 同时观察任务 ctx 与持久化的取消标记
func (s *scheduleService) checkpoint(id string) engine.Checkpoint {
	return func(ctx context.Context, processed int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		cancelled, err := s.repo.Schedule.IsCancelRequested(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: read cancel flag: %v", pkgerrors.ErrStorage, err)
		}
		if cancelled {
			s.logger.Info("检测到取消标记", zap.String("schedule_id", id), zap.Int("processed", processed))
			return pkgerrors.ErrCancelled
		}
		return nil
	}
}

// markFailed generating → failed；使用独立 ctx，任务 ctx 已取消时也能落库
func (s *scheduleService) markFailed(schedule *model.Schedule, warnings, errs []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := s.now()
	var duration float64
	if schedule.GenerationStartedAt != nil {
		duration = now.Sub(*schedule.GenerationStartedAt).Seconds()
	}
	if warnings == nil {
		warnings = []string{}
	}
	if errs == nil {
		errs = []string{}
	}
	ok, err := s.repo.Schedule.TransitionStatus(ctx, schedule.ScheduleID,
		[]model.ScheduleStatus{model.ScheduleGenerating}, model.ScheduleFailed,
		map[string]interface{}{
			"generation_completed_at":     now,
			"generation_duration_seconds": duration,
			"optimizer_score":             nil,
			"warnings":                    datatypes.JSONSlice[string](warnings),
			"errors":                      datatypes.JSONSlice[string](errs),
		})
	if err != nil {
		s.logger.Error("标记排班表失败状态失败", zap.String("schedule_id", schedule.ScheduleID), zap.Error(err))
		return
	}
	if ok {
		schedule.Status = model.ScheduleFailed
		schedule.GenerationCompletedAt = &now
		schedule.GenerationDurationSeconds = duration
		schedule.OptimizerScore = nil
	}
}

// loadModels 按 use_ml 选择评分器与冲突检测器；模型缺失只产生 warning
func (s *scheduleService) loadModels(ctx context.Context, useML bool) (engine.Scorer, engine.ConflictDetector, []string) {
	if !useML {
		return engine.BaselineScorer{}, engine.NoopDetector{}, nil
	}

	var (
		scorer   engine.Scorer           = engine.BaselineScorer{}
		detector engine.ConflictDetector = engine.NoopDetector{}
		warnings []string
	)

	if pm, err := s.loadPreference(ctx); err != nil {
		s.logger.Warn("偏好模型不可用，回退基线评分", zap.Error(err))
		warnings = append(warnings, warnMLUnavailable)
	} else {
		scorer = engine.NewMLScorer(pm)
	}

	if cm, err := s.loadConflict(ctx); err != nil {
		s.logger.Debug("冲突检测模型不可用，跳过疲劳提示", zap.Error(err))
	} else {
		detector = engine.NewRestDetector(cm, s.cfg.Scheduling.MinRestHours, s.cfg.Scheduling.MaxConsecutiveDays)
	}
	return scorer, detector, warnings
}

func (s *scheduleService) latestArtifactPath(ctx context.Context, modelType string) (string, error) {
	rec, err := s.repo.Training.LatestCompleted(ctx, modelType)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", fmt.Errorf("%w: no completed %s", pkgerrors.ErrModelUnavailable, modelType)
		}
		return "", fmt.Errorf("%w: %v", pkgerrors.ErrModelUnavailable, err)
	}
	return rec.ModelPath, nil
}

func (s *scheduleService) loadPreference(ctx context.Context) (*mlmodel.PreferenceModel, error) {
	path, err := s.latestArtifactPath(ctx, model.ModelTypePreference)
	if err != nil {
		return nil, err
	}
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	if m, ok := s.models[path].(*mlmodel.PreferenceModel); ok {
		return m, nil
	}
	m, err := s.store.LoadPreference(path)
	if err != nil {
		return nil, err
	}
	s.models[path] = m
	return m, nil
}

func (s *scheduleService) loadConflict(ctx context.Context) (*mlmodel.ConflictModel, error) {
	path, err := s.latestArtifactPath(ctx, model.ModelTypeConflict)
	if err != nil {
		return nil, err
	}
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	if m, ok := s.models[path].(*mlmodel.ConflictModel); ok {
		return m, nil
	}
	m, err := s.store.LoadConflict(path)
	if err != nil {
		return nil, err
	}
	s.models[path] = m
	return m, nil
}

// ════════════════════════════════════════════════════════════
// 取消 / 发布 / 删除
// ════════════════════════════════════════════════════════════

func (s *scheduleService) CancelGeneration(ctx context.Context, id string) (*dto.ScheduleResponse, error) {
	ok, err := s.repo.Schedule.RequestCancel(ctx, id)
	if err != nil {
		s.logger.Error("写入取消标记失败", zap.String("schedule_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: request cancel: %v", pkgerrors.ErrStorage, err)
	}
	schedule, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &model.TransitionError{From: schedule.Status, To: model.ScheduleFailed}
	}
	// 本实例上运行的任务立即中断；其他实例通过取消标记感知
	s.runner.Cancel(scheduleLockKey(id))
	s.logger.Info("已请求取消生成", zap.String("schedule_id", id))
	return dto.NewScheduleResponse(schedule), nil
}

func (s *scheduleService) PublishSchedule(ctx context.Context, id string) (*dto.ScheduleResponse, error) {
	schedule, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := schedule.Status.Transition(model.SchedulePublished); err != nil {
		return nil, err
	}

	now := s.now()
	ok, err := s.repo.Schedule.TransitionStatus(ctx, id,
		[]model.ScheduleStatus{model.ScheduleGenerated}, model.SchedulePublished,
		map[string]interface{}{"published_at": now})
	if err != nil {
		s.logger.Error("发布排班表失败", zap.String("schedule_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: publish: %v", pkgerrors.ErrStorage, err)
	}
	if !ok {
		current, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &model.TransitionError{From: current.Status, To: model.SchedulePublished}
	}

	published, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("排班表已发布", zap.String("schedule_id", id), zap.Int("assignments", published.NumAssignments))
	return dto.NewScheduleResponse(published), nil
}

func (s *scheduleService) DeleteSchedule(ctx context.Context, id string) error {
	if err := s.repo.Schedule.Delete(ctx, id); err != nil {
		switch {
		case repository.IsNotFound(err):
			return ErrScheduleNotFound
		case errors.Is(err, pkgerrors.ErrConcurrentGeneration):
			return err
		default:
			s.logger.Error("删除排班表失败", zap.String("schedule_id", id), zap.Error(err))
			return fmt.Errorf("%w: delete schedule: %v", pkgerrors.ErrStorage, err)
		}
	}
	s.logger.Info("排班表已删除", zap.String("schedule_id", id))
	return nil
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *scheduleService) get(ctx context.Context, id string) (*model.Schedule, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询排班表失败", zap.String("schedule_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: get schedule: %v", pkgerrors.ErrStorage, err)
	}
	return schedule, nil
}

func (s *scheduleService) GetSchedule(ctx context.Context, id string) (*dto.ScheduleResponse, error) {
	schedule, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewScheduleResponse(schedule), nil
}

func (s *scheduleService) UpdateSchedule(ctx context.Context, id string, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	if req.Name == nil && req.Notes == nil {
		return nil, fmt.Errorf("%w: nothing to update", pkgerrors.ErrValidation)
	}
	schedule, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.Version != req.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}
	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.Notes != nil {
		schedule.Notes = *req.Notes
	}
	if err := s.repo.Schedule.Update(ctx, schedule); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("更新排班表失败", zap.String("schedule_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: update schedule: %v", pkgerrors.ErrStorage, err)
	}
	return dto.NewScheduleResponse(schedule), nil
}

func (s *scheduleService) ListSchedules(ctx context.Context, req *dto.ScheduleListRequest) ([]dto.ScheduleResponse, int64, error) {
	var status model.ScheduleStatus
	if req.Status != "" {
		st, err := model.ParseScheduleStatus(req.Status)
		if err != nil {
			return nil, 0, err
		}
		status = st
	}
	schedules, total, err := s.repo.Schedule.List(ctx, status, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询排班表列表失败", zap.Error(err))
		return nil, 0, fmt.Errorf("%w: list schedules: %v", pkgerrors.ErrStorage, err)
	}
	list := make([]dto.ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		list = append(list, *dto.NewScheduleResponse(&schedules[i]))
	}
	return list, total, nil
}

func (s *scheduleService) GetScheduleAssignments(ctx context.Context, id string) ([]dto.AssignmentResponse, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	items, err := s.repo.Schedule.ListAssignments(ctx, id)
	if err != nil {
		s.logger.Error("查询分配明细失败", zap.String("schedule_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: list assignments: %v", pkgerrors.ErrStorage, err)
	}
	list := make([]dto.AssignmentResponse, 0, len(items))
	for i := range items {
		list = append(list, dto.NewAssignmentResponse(&items[i]))
	}
	return list, nil
}

// ── 辅助函数 ──

func failedResult(scheduleID string, err error) *dto.GenerateScheduleResult {
	return &dto.GenerateScheduleResult{
		Success:    false,
		ScheduleID: scheduleID,
		Warnings:   []string{},
		Errors:     []string{err.Error()},
	}
}
