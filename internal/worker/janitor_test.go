package worker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carbonex30/scheduler/internal/model"
	"github.com/carbonex30/scheduler/internal/repository"
	"github.com/carbonex30/scheduler/pkg/database"
)

func newJanitorRepo(t *testing.T) *repository.Repository {
	t.Helper()
	db, err := database.NewMemoryDB(strings.ReplaceAll(t.Name(), "/", "_"), model.All()...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewRepository(db)
}

func generatingSchedule(t *testing.T, repo *repository.Repository, startedAt time.Time) string {
	t.Helper()
	ctx := context.Background()
	day := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	s := &model.Schedule{Name: "stale", StartDate: day, EndDate: day, Status: model.ScheduleDraft}
	require.NoError(t, repo.Schedule.Create(ctx, s))
	ok, err := repo.Schedule.TransitionStatus(ctx, s.ScheduleID, model.GenerationSources(), model.ScheduleGenerating,
		map[string]interface{}{"generation_started_at": startedAt})
	require.NoError(t, err)
	require.True(t, ok)
	return s.ScheduleID
}

func TestJanitor_Sweep(t *testing.T) {
	repo := newJanitorRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)

	staleID := generatingSchedule(t, repo, now.Add(-time.Hour))
	freshID := generatingSchedule(t, repo, now.Add(-time.Minute))

	staleRec := &model.TrainingRecord{
		ModelType:         model.ModelTypePreference,
		ModelName:         "stale",
		TrainingStartedAt: now.Add(-2 * time.Hour),
		Status:            model.TrainingRunning,
	}
	require.NoError(t, repo.Training.Create(ctx, staleRec))
	freshRec := &model.TrainingRecord{
		ModelType:         model.ModelTypeConflict,
		ModelName:         "fresh",
		TrainingStartedAt: now.Add(-time.Minute),
		Status:            model.TrainingRunning,
	}
	require.NoError(t, repo.Training.Create(ctx, freshRec))

	j, err := NewJanitor(repo, JanitorOptions{
		GenerationTimeout: 5 * time.Minute,
		TrainingTimeout:   15 * time.Minute,
		Now:               func() time.Time { return now },
	}, zap.NewNop())
	require.NoError(t, err)

	res := j.Sweep(ctx)
	assert.Equal(t, SweepResult{Schedules: 1, Trainings: 1}, res)

	stale, err := repo.Schedule.GetByID(ctx, staleID)
	require.NoError(t, err)
	assert.Equal(t, model.ScheduleFailed, stale.Status)
	assert.Nil(t, stale.OptimizerScore)
	require.Len(t, stale.Errors, 1)
	assert.Contains(t, stale.Errors[0], "generation abandoned")

	fresh, err := repo.Schedule.GetByID(ctx, freshID)
	require.NoError(t, err)
	assert.Equal(t, model.ScheduleGenerating, fresh.Status, "未超时的排班表不应被清理")

	gotStale, err := repo.Training.GetByID(ctx, staleRec.TrainingRecordID)
	require.NoError(t, err)
	assert.Equal(t, model.TrainingFailed, gotStale.Status)
	assert.Contains(t, gotStale.ErrorMessage, "training abandoned")

	gotFresh, err := repo.Training.GetByID(ctx, freshRec.TrainingRecordID)
	require.NoError(t, err)
	assert.Equal(t, model.TrainingRunning, gotFresh.Status)

	// 再次清理不会重复处理
	assert.Equal(t, SweepResult{}, j.Sweep(ctx))
}

func TestJanitor_InvalidSpec(t *testing.T) {
	repo := newJanitorRepo(t)
	_, err := NewJanitor(repo, JanitorOptions{Spec: "every minute"}, zap.NewNop())
	assert.Error(t, err)

	j, err := NewJanitor(repo, JanitorOptions{Spec: "@every 1m"}, zap.NewNop())
	require.NoError(t, err)
	j.Start()
	j.Stop(context.Background())
}
