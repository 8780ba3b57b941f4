package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/carbonex30/scheduler/internal/dto"
	"github.com/carbonex30/scheduler/internal/mlmodel"
	"github.com/carbonex30/scheduler/internal/model"
	pkgerrors "github.com/carbonex30/scheduler/pkg/errors"
)

// historyRows A 接受早班，B 拒绝早班、接受晚班
func historyRows(weeks int) []mlmodel.Row {
	var rows []mlmodel.Row
	base := time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC)
	for w := 0; w < weeks; w++ {
		date := base.AddDate(0, 0, 7*w).Format("2006-01-02")
		rows = append(rows,
			mlmodel.Row{EmployeeID: empA, DepartmentID: deptD1, ShiftDate: date, StartTime: "09:00", EndTime: "13:00", DurationHours: 4, Accepted: true},
			mlmodel.Row{EmployeeID: empB, DepartmentID: deptD1, ShiftDate: date, StartTime: "09:00", EndTime: "13:00", DurationHours: 4, Accepted: false},
			mlmodel.Row{EmployeeID: empB, DepartmentID: deptD1, ShiftDate: date, StartTime: "18:00", EndTime: "22:00", DurationHours: 4, Accepted: true},
		)
	}
	return rows
}

func TestTrainingService_TrainPreference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.Training.TrainModel(ctx, &dto.TrainModelRequest{
		Rows:      historyRows(4),
		ModelType: model.ModelTypePreference,
	})
	if err != nil {
		t.Fatalf("TrainModel 失败: %v", err)
	}
	if !res.Success || res.ArtifactVersion != 1 {
		t.Fatalf("期望成功且版本为 1: %+v", res)
	}
	if res.NumSamples != 12 {
		t.Errorf("期望 12 条样本，实际 %d", res.NumSamples)
	}
	if _, ok := res.Metrics["auc"]; !ok {
		t.Errorf("偏好模型应输出 auc 指标: %v", res.Metrics)
	}
	if _, err := os.Stat(res.ModelPath); err != nil {
		t.Errorf("产物文件应存在: %v", err)
	}

	rec, err := env.svc.Training.GetTrainingRecord(ctx, res.TrainingRecordID)
	if err != nil {
		t.Fatalf("GetTrainingRecord 失败: %v", err)
	}
	if rec.Status != string(model.TrainingCompleted) || rec.ModelPath != res.ModelPath {
		t.Errorf("训练记录状态或路径不正确: %+v", rec)
	}
	if !strings.HasPrefix(rec.ModelName, model.ModelTypePreference+"_") {
		t.Errorf("默认模型名应以类型开头: %s", rec.ModelName)
	}

	// 再次训练产生新版本，旧产物保持不变
	again, err := env.svc.Training.TrainModel(ctx, &dto.TrainModelRequest{
		Rows:      historyRows(5),
		ModelType: model.ModelTypePreference,
		ModelName: "weekly",
	})
	if err != nil || again.ArtifactVersion != 2 {
		t.Fatalf("期望版本 2: %+v %v", again, err)
	}
	if again.ModelPath == res.ModelPath {
		t.Error("新版本应写入新路径")
	}
	if _, err := os.Stat(res.ModelPath); err != nil {
		t.Errorf("旧版本产物应保留: %v", err)
	}
}

func TestTrainingService_TrainConflict(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.svc.Training.TrainModel(context.Background(), &dto.TrainModelRequest{
		Rows:      historyRows(4),
		ModelType: model.ModelTypeConflict,
	})
	if err != nil || !res.Success {
		t.Fatalf("TrainModel 失败: %v %+v", err, res)
	}
	if !strings.Contains(res.ModelPath, model.ModelTypeConflict+"_v1.json") {
		t.Errorf("产物路径不符合命名规则: %s", res.ModelPath)
	}
}

func TestTrainingService_InsufficientData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.Training.TrainModel(ctx, &dto.TrainModelRequest{ModelType: model.ModelTypePreference})
	if !errors.Is(err, pkgerrors.ErrTrainingData) {
		t.Fatalf("期望 ErrTrainingData，实际 %v", err)
	}
	if res.Success || len(res.Errors) == 0 || !strings.Contains(res.Errors[0], "training data error") {
		t.Errorf("期望失败结果携带训练数据错误: %+v", res)
	}

	rec, err := env.svc.Training.GetTrainingRecord(ctx, res.TrainingRecordID)
	if err != nil {
		t.Fatalf("GetTrainingRecord 失败: %v", err)
	}
	if rec.Status != string(model.TrainingFailed) || rec.ErrorMessage == "" || rec.TrainingCompletedAt == nil {
		t.Errorf("训练记录应为 failed 并带错误信息: %+v", rec)
	}

	// 无效行被跳过并产生 warning
	rows := historyRows(3)
	rows = append(rows, mlmodel.Row{EmployeeID: empA, ShiftDate: "not-a-date", StartTime: "09:00", DurationHours: 4})
	res, err = env.svc.Training.TrainModel(ctx, &dto.TrainModelRequest{Rows: rows, ModelType: model.ModelTypePreference})
	if !errors.Is(err, pkgerrors.ErrTrainingData) {
		t.Fatalf("9 条有效样本应不足，实际 %v", err)
	}
	if res.NumSamples != 9 || len(res.Warnings) != 1 {
		t.Errorf("期望 9 条样本 1 条 warning，实际 %d / %v", res.NumSamples, res.Warnings)
	}
}

func TestTrainingService_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Training.TrainModel(ctx, &dto.TrainModelRequest{ModelType: "forecaster"}); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("未知模型类型应返回 ErrValidation，实际 %v", err)
	}
	if _, err := env.svc.Training.GetTrainingHistory(ctx, "forecaster"); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("未知模型类型应返回 ErrValidation，实际 %v", err)
	}
	if _, err := env.svc.Training.GetTrainingRecord(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrTrainingRecordNotFound) {
		t.Errorf("期望 ErrTrainingRecordNotFound，实际 %v", err)
	}
}

func TestTrainingService_ConcurrentTraining(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	unlock, ok, err := env.locker.TryLock(ctx, trainingLockKey(model.ModelTypePreference), time.Minute)
	if err != nil || !ok {
		t.Fatalf("预先加锁失败: %v", err)
	}
	_, err = env.svc.Training.TrainModel(ctx, &dto.TrainModelRequest{Rows: historyRows(4), ModelType: model.ModelTypePreference})
	if !errors.Is(err, pkgerrors.ErrConcurrentTraining) {
		t.Errorf("期望 ErrConcurrentTraining，实际 %v", err)
	}

	// 其他类型不受影响
	if res, err := env.svc.Training.TrainModel(ctx, &dto.TrainModelRequest{Rows: historyRows(4), ModelType: model.ModelTypeConflict}); err != nil || !res.Success {
		t.Errorf("其他模型类型应可训练: %v", err)
	}
	unlock()

	// 遗留 running 记录同样阻止新训练
	stale := &model.TrainingRecord{
		ModelType:         model.ModelTypePreference,
		ModelName:         "stale",
		TrainingStartedAt: time.Now().UTC(),
		Status:            model.TrainingRunning,
	}
	if err := env.repo.Training.Create(ctx, stale); err != nil {
		t.Fatalf("写入遗留记录失败: %v", err)
	}
	_, err = env.svc.Training.TrainModel(ctx, &dto.TrainModelRequest{Rows: historyRows(4), ModelType: model.ModelTypePreference})
	if !errors.Is(err, pkgerrors.ErrConcurrentTraining) {
		t.Errorf("存在 running 记录时期望 ErrConcurrentTraining，实际 %v", err)
	}
}

func TestTrainingService_SubmitAndHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sub, err := env.svc.Training.SubmitTraining(ctx, &dto.TrainModelRequest{Rows: historyRows(4), ModelType: model.ModelTypePreference})
	if err != nil {
		t.Fatalf("SubmitTraining 失败: %v", err)
	}
	if sub.Status != string(model.TrainingRunning) {
		t.Errorf("提交后应为 running，实际 %s", sub.Status)
	}
	env.runner.Wait()

	if _, err := env.svc.Training.TrainModel(ctx, &dto.TrainModelRequest{ModelType: model.ModelTypeConflict}); err == nil {
		t.Fatal("空数据训练应失败")
	}

	all, err := env.svc.Training.GetTrainingHistory(ctx, "")
	if err != nil {
		t.Fatalf("GetTrainingHistory 失败: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("期望 2 条训练记录，实际 %d", len(all))
	}

	prefs, _ := env.svc.Training.GetTrainingHistory(ctx, model.ModelTypePreference)
	if len(prefs) != 1 || prefs[0].ID != sub.ID || prefs[0].Status != string(model.TrainingCompleted) {
		t.Errorf("偏好模型历史不正确: %+v", prefs)
	}
}

func TestTrainingService_SubmitRejected(t *testing.T) {
	env := newTestEnv(t)
	env.runner.reject = true
	ctx := context.Background()

	if _, err := env.svc.Training.SubmitTraining(ctx, &dto.TrainModelRequest{Rows: historyRows(4), ModelType: model.ModelTypePreference}); !errors.Is(err, ErrJobRejected) {
		t.Fatalf("期望 ErrJobRejected，实际 %v", err)
	}
	list, _ := env.svc.Training.GetTrainingHistory(ctx, model.ModelTypePreference)
	if len(list) != 1 || list[0].Status != string(model.TrainingFailed) {
		t.Errorf("提交失败的训练记录应为 failed: %+v", list)
	}

	// 锁已释放，可再次训练
	env.runner.reject = false
	if _, err := env.svc.Training.TrainModel(ctx, &dto.TrainModelRequest{Rows: historyRows(4), ModelType: model.ModelTypePreference}); err != nil {
		t.Errorf("锁应已释放: %v", err)
	}
}
