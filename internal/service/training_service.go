package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/carbonex30/scheduler/config"
	"github.com/carbonex30/scheduler/internal/dto"
	"github.com/carbonex30/scheduler/internal/mlmodel"
	"github.com/carbonex30/scheduler/internal/model"
	"github.com/carbonex30/scheduler/internal/repository"
	pkgerrors "github.com/carbonex30/scheduler/pkg/errors"
)

// TrainingService 模型训练业务接口
type TrainingService interface {
	// 同步训练
	TrainModel(ctx context.Context, req *dto.TrainModelRequest) (*dto.TrainModelResult, error)
	// 异步训练，返回训练记录 ID
	SubmitTraining(ctx context.Context, req *dto.TrainModelRequest) (*dto.SubmitResponse, error)
	// 训练历史，最新的在前
	GetTrainingHistory(ctx context.Context, modelType string) ([]dto.TrainingRecordResponse, error)
	GetTrainingRecord(ctx context.Context, id string) (*dto.TrainingRecordResponse, error)
}

type trainingService struct {
	cfg    *config.Config
	repo   *repository.Repository
	store  *mlmodel.ArtifactStore
	locker Locker
	runner Runner
	logger *zap.Logger
	now    func() time.Time
}

// NewTrainingService 创建 TrainingService 实例
func NewTrainingService(opts Options, store *mlmodel.ArtifactStore) TrainingService {
	return &trainingService{
		cfg:    opts.Config,
		repo:   opts.Repo,
		store:  store,
		locker: opts.Locker,
		runner: opts.Runner,
		logger: opts.Logger,
		now:    opts.Now,
	}
}

func trainingLockKey(modelType string) string { return "training:" + modelType }

// ════════════════════════════════════════════════════════════
// TrainModel：校验 → 特征 → 拟合 → 指标 → 写产物 → 完成记录
// ════════════════════════════════════════════════════════════

func (s *trainingService) TrainModel(ctx context.Context, req *dto.TrainModelRequest) (*dto.TrainModelResult, error) {
	rec, unlock, err := s.begin(ctx, req)
	if err != nil {
		return &dto.TrainModelResult{
			ModelType: req.ModelType,
			Metrics:   map[string]float64{},
			Warnings:  []string{},
			Errors:    []string{err.Error()},
		}, err
	}
	defer unlock()
	return s.train(ctx, rec, req.Rows)
}

func (s *trainingService) SubmitTraining(ctx context.Context, req *dto.TrainModelRequest) (*dto.SubmitResponse, error) {
	rec, unlock, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}

	rows := req.Rows
	err = s.runner.Submit("training:"+rec.TrainingRecordID, func(jobCtx context.Context) {
		defer unlock()
		_, _ = s.train(jobCtx, rec, rows)
	})
	if err != nil {
		s.logger.Error("提交训练任务失败", zap.String("training_record_id", rec.TrainingRecordID), zap.Error(err))
		s.fail(rec, err)
		unlock()
		return nil, fmt.Errorf("%w: %v", ErrJobRejected, err)
	}

	s.logger.Info("训练任务已提交",
		zap.String("training_record_id", rec.TrainingRecordID),
		zap.String("model_type", rec.ModelType),
		zap.Int("rows", len(rows)),
	)
	return &dto.SubmitResponse{ID: rec.TrainingRecordID, Status: string(model.TrainingRunning)}, nil
}

// begin 校验模型类型，取得类型锁并创建 running 记录
func (s *trainingService) begin(ctx context.Context, req *dto.TrainModelRequest) (*model.TrainingRecord, func(), error) {
	if !model.ValidModelType(req.ModelType) {
		return nil, nil, fmt.Errorf("%w: unknown model_type %q", pkgerrors.ErrValidation, req.ModelType)
	}

	unlock, ok, err := s.locker.TryLock(ctx, trainingLockKey(req.ModelType), s.cfg.ML.LockTTL)
	if err != nil {
		s.logger.Error("获取训练锁失败", zap.String("model_type", req.ModelType), zap.Error(err))
		return nil, nil, fmt.Errorf("%w: acquire lock: %v", pkgerrors.ErrStorage, err)
	}
	if !ok {
		return nil, nil, pkgerrors.ErrConcurrentTraining
	}

	// 其他实例崩溃前遗留的 running 记录由清理任务处理
	running, err := s.repo.Training.HasRunning(ctx, req.ModelType)
	if err != nil {
		unlock()
		return nil, nil, fmt.Errorf("%w: check running: %v", pkgerrors.ErrStorage, err)
	}
	if running {
		unlock()
		return nil, nil, pkgerrors.ErrConcurrentTraining
	}

	name := req.ModelName
	if name == "" {
		name = fmt.Sprintf("%s_%s", req.ModelType, s.now().Format("20060102_150405"))
	}
	rec := &model.TrainingRecord{
		ModelType:         req.ModelType,
		ModelName:         name,
		TrainingStartedAt: s.now(),
		Status:            model.TrainingRunning,
	}
	if err := s.repo.Training.Create(ctx, rec); err != nil {
		unlock()
		s.logger.Error("创建训练记录失败", zap.Error(err))
		return nil, nil, fmt.Errorf("%w: create training record: %v", pkgerrors.ErrStorage, err)
	}
	return rec, unlock, nil
}

// train 训练主流程；任何错误或 panic 都会在返回前把记录置为 failed
func (s *trainingService) train(ctx context.Context, rec *model.TrainingRecord, rows []mlmodel.Row) (result *dto.TrainModelResult, runErr error) {
	if s.cfg.ML.TrainingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ML.TrainingTimeout)
		defer cancel()
	}

	log := s.logger.With(zap.String("training_record_id", rec.TrainingRecordID), zap.String("model_type", rec.ModelType))
	result = &dto.TrainModelResult{
		TrainingRecordID: rec.TrainingRecordID,
		ModelType:        rec.ModelType,
		Metrics:          map[string]float64{},
		Warnings:         []string{},
		Errors:           []string{},
	}

	fail := func(err error) (*dto.TrainModelResult, error) {
		log.Error("训练失败", zap.Error(err))
		rec.Warnings = result.Warnings
		s.fail(rec, err)
		result.Success = false
		result.Errors = append(result.Errors, err.Error())
		result.TrainingDurationSeconds = s.now().Sub(rec.TrainingStartedAt).Seconds()
		return result, err
	}

	defer func() {
		if r := recover(); r != nil {
			result, runErr = fail(fmt.Errorf("internal error: %v", r))
		}
	}()

	// 1. 校验与特征
	samples, warnings := mlmodel.ParseRows(rows)
	result.Warnings = append(result.Warnings, warnings...)
	result.NumSamples = len(samples)
	rec.NumSamples = len(samples)
	if len(samples) < s.cfg.ML.MinTrainingSamples {
		return fail(fmt.Errorf("%w: %d valid samples, at least %d required",
			pkgerrors.ErrTrainingData, len(samples), s.cfg.ML.MinTrainingSamples))
	}

	// 2. 拟合与指标
	var (
		payload interface{}
		metrics mlmodel.Metrics
		err     error
	)
	switch rec.ModelType {
	case model.ModelTypePreference:
		payload, metrics, err = mlmodel.TrainPreference(samples)
	case model.ModelTypeConflict:
		payload, metrics, err = mlmodel.TrainConflict(samples)
	}
	if err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("training aborted: %w", err))
	}

	// 3. 写入不可变产物
	version, err := s.repo.Training.NextVersion(ctx, rec.ModelType)
	if err != nil {
		return fail(fmt.Errorf("%w: next version: %v", pkgerrors.ErrStorage, err))
	}
	trainedAt := s.now()
	path, err := s.store.Write(mlmodel.Envelope{
		ModelType:        rec.ModelType,
		Version:          version,
		TrainedAt:        trainedAt,
		TrainingRecordID: rec.TrainingRecordID,
	}, payload)
	if err != nil {
		return fail(err)
	}

	// 4. 完成记录（与产物行同一事务）
	rec.TrainingCompletedAt = &trainedAt
	rec.Metrics = datatypes.JSONMap(metrics.Map())
	rec.Warnings = result.Warnings
	rec.ModelPath = path
	rec.ArtifactVersion = version
	if err := s.repo.Training.Complete(ctx, rec, &model.ModelArtifact{
		ModelType:        rec.ModelType,
		Version:          version,
		Path:             path,
		TrainingRecordID: rec.TrainingRecordID,
	}); err != nil {
		if derr := s.store.Discard(path); derr != nil {
			log.Warn("清理未登记产物失败", zap.String("path", path), zap.Error(derr))
		}
		rec.TrainingCompletedAt = nil
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return fail(fmt.Errorf("training record is no longer running: %w", err))
		}
		return fail(fmt.Errorf("%w: complete training record: %v", pkgerrors.ErrStorage, err))
	}

	result.Success = true
	result.Metrics = metrics
	result.ModelPath = path
	result.ArtifactVersion = version
	result.TrainingDurationSeconds = trainedAt.Sub(rec.TrainingStartedAt).Seconds()

	log.Info("训练完成",
		zap.Int("samples", len(samples)),
		zap.Int("version", version),
		zap.String("path", path),
		zap.Any("metrics", metrics),
	)
	return result, nil
}

// fail running → failed；使用独立 ctx，训练 ctx 已超时也能落库
func (s *trainingService) fail(rec *model.TrainingRecord, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := s.now()
	rec.TrainingCompletedAt = &now
	rec.ErrorMessage = cause.Error()
	if err := s.repo.Training.Fail(ctx, rec); err != nil {
		s.logger.Error("标记训练记录失败状态失败",
			zap.String("training_record_id", rec.TrainingRecordID), zap.Error(err))
	}
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *trainingService) GetTrainingHistory(ctx context.Context, modelType string) ([]dto.TrainingRecordResponse, error) {
	if modelType != "" && !model.ValidModelType(modelType) {
		return nil, fmt.Errorf("%w: unknown model_type %q", pkgerrors.ErrValidation, modelType)
	}
	records, err := s.repo.Training.List(ctx, modelType)
	if err != nil {
		s.logger.Error("查询训练历史失败", zap.Error(err))
		return nil, fmt.Errorf("%w: list training records: %v", pkgerrors.ErrStorage, err)
	}
	list := make([]dto.TrainingRecordResponse, 0, len(records))
	for i := range records {
		list = append(list, dto.NewTrainingRecordResponse(&records[i]))
	}
	return list, nil
}

func (s *trainingService) GetTrainingRecord(ctx context.Context, id string) (*dto.TrainingRecordResponse, error) {
	rec, err := s.repo.Training.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTrainingRecordNotFound
		}
		s.logger.Error("查询训练记录失败", zap.String("training_record_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: get training record: %v", pkgerrors.ErrStorage, err)
	}
	resp := dto.NewTrainingRecordResponse(rec)
	return &resp, nil
}
