package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carbonex30/scheduler/config"
	"github.com/carbonex30/scheduler/internal/model"
	"github.com/carbonex30/scheduler/internal/repository"
	"github.com/carbonex30/scheduler/pkg/database"
)

// ── 测试辅助 ──

const (
	deptD1 = "d1000000-0000-0000-0000-000000000001"
	empA   = "a0000000-0000-0000-0000-00000000000a"
	empB   = "b0000000-0000-0000-0000-00000000000b"
)

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	cfg    *config.Config
	repo   *repository.Repository
	runner *testRunner
	locker Locker
	svc    *Service

	morning *model.ShiftTemplate
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.NewMemoryDB(name, model.All()...)
	if err != nil {
		t.Fatalf("创建测试数据库失败: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := config.Default()
	cfg.ML.ModelsDir = t.TempDir()
	cfg.ML.MinTrainingSamples = 10
	cfg.Scheduling.CancelCheckEvery = 1

	env := &testEnv{
		t:      t,
		db:     db,
		cfg:    cfg,
		repo:   repository.NewRepository(db),
		runner: newTestRunner(),
		locker: NewLocalLocker(),
	}
	env.build()
	env.seed()
	return env
}

// build 按当前 repo 组装服务；替换 repo 后需重新调用
func (e *testEnv) build() {
	e.svc = NewService(Options{
		Config: e.cfg,
		Repo:   e.repo,
		Locker: e.locker,
		Runner: e.runner,
		Logger: zap.NewNop(),
		Now:    newClock(time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)),
	})
}

// seed 部门 D1 + 员工 A/B（周上限 20h）+ 周一早班 09:00-13:00 需 2 人
func (e *testEnv) seed() {
	e.t.Helper()
	e.create(&model.Department{DepartmentID: deptD1, Name: "D1", IsActive: true})
	for _, id := range []string{empA, empB} {
		e.create(&model.Employee{
			EmployeeID:      id,
			DepartmentID:    deptD1,
			FirstName:       strings.ToUpper(id[:1]),
			EmploymentType:  model.EmploymentFullTime,
			MaxHoursPerWeek: 20,
			IsActive:        true,
		})
	}
	e.morning = &model.ShiftTemplate{
		DepartmentID:      deptD1,
		Name:              "Morning",
		DayOfWeek:         0,
		StartTime:         "09:00",
		EndTime:           "13:00",
		DurationHours:     4,
		RequiredEmployees: 2,
		IsActive:          true,
	}
	e.create(e.morning)
}

func (e *testEnv) create(v interface{}) {
	e.t.Helper()
	if err := e.db.Create(v).Error; err != nil {
		e.t.Fatalf("写入种子数据失败: %v", err)
	}
}

// commitHours 在另一个已生成的排班表中为员工写入已确定工时
func (e *testEnv) commitHours(employeeID string, start time.Time, hours int) {
	e.t.Helper()
	ctx := context.Background()
	other := &model.Schedule{Name: "other", StartDate: start, EndDate: start}
	if err := e.repo.Schedule.Create(ctx, other); err != nil {
		e.t.Fatalf("创建排班表失败: %v", err)
	}
	if ok, err := e.repo.Schedule.TransitionStatus(ctx, other.ScheduleID, model.GenerationSources(), model.ScheduleGenerating, nil); err != nil || !ok {
		e.t.Fatalf("进入 generating 失败: %v", err)
	}
	end := start.Add(time.Duration(hours) * time.Hour)
	score := 1.0
	other.OptimizerScore = &score
	other.NumAssignments = 1
	err := e.repo.Schedule.SaveGeneration(ctx, other, []model.Assignment{{
		EmployeeID:      employeeID,
		ShiftTemplateID: e.morning.ShiftTemplateID,
		ShiftDate:       time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		StartTime:       start.Format("15:04"),
		EndTime:         end.Format("15:04"),
		StartsAt:        start,
		EndsAt:          end,
		Hours:           float64(hours),
		Score:           1,
	}})
	if err != nil {
		e.t.Fatalf("写入已确定工时失败: %v", err)
	}
}

func newClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

// ── 后台执行器 ──

type testRunner struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	cancels map[string]context.CancelFunc
	reject  bool
}

func newTestRunner() *testRunner {
	return &testRunner{cancels: make(map[string]context.CancelFunc)}
}

func (r *testRunner) Submit(key string, fn func(ctx context.Context)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject {
		return errors.New("worker pool is shutting down")
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancels[key] = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		fn(ctx)
	}()
	return nil
}

func (r *testRunner) Cancel(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.cancels[key]
	if ok {
		cancel()
	}
	return ok
}

func (r *testRunner) Wait() { r.wg.Wait() }

// ── 可控快照 ──

// gatedSnapshotRepo Load 开始时发出信号，等待放行后再读取
type gatedSnapshotRepo struct {
	inner     repository.SnapshotRepository
	started   chan struct{}
	release   chan struct{}
	honourCtx bool
	failWith  error
	startOnce sync.Once
}

func (g *gatedSnapshotRepo) Load(ctx context.Context, q repository.SnapshotQuery) (*model.Snapshot, error) {
	if g.failWith != nil {
		return nil, g.failWith
	}
	g.startOnce.Do(func() { close(g.started) })
	if g.honourCtx {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else {
		<-g.release
	}
	return g.inner.Load(ctx, q)
}

func (e *testEnv) gateSnapshot(honourCtx bool) *gatedSnapshotRepo {
	g := &gatedSnapshotRepo{
		inner:     e.repo.Snapshot,
		started:   make(chan struct{}),
		release:   make(chan struct{}),
		honourCtx: honourCtx,
	}
	repo := *e.repo
	repo.Snapshot = g
	e.repo = &repo
	e.build()
	return g
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("等待后台任务超时")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
