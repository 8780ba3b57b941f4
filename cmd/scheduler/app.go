package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carbonex30/scheduler/config"
	"github.com/carbonex30/scheduler/internal/model"
	"github.com/carbonex30/scheduler/internal/repository"
	"github.com/carbonex30/scheduler/internal/service"
	"github.com/carbonex30/scheduler/internal/worker"
	"github.com/carbonex30/scheduler/pkg/database"
	applogger "github.com/carbonex30/scheduler/pkg/logger"
	"github.com/carbonex30/scheduler/pkg/redis"
)

// app 各子命令共用的依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client // 未配置或连接失败时为 nil
	repo   *repository.Repository
}

// bootstrap 加载配置 → 日志 → 数据库 → Redis（可选）
func bootstrap(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, db: db, repo: repository.NewRepository(db)}

	// Redis 可选：连接失败时降级为进程内锁，不限流
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，任务锁降级为进程内锁", zap.Error(err))
		} else {
			a.rdb = rdb
		}
	}
	return a, nil
}

// migrate 按驱动执行迁移
func (a *app) migrate() error {
	return database.Migrate(a.db, a.logger, model.All()...)
}

func (a *app) locker() service.Locker {
	if a.rdb != nil {
		return service.NewRedisLocker(a.rdb, a.logger)
	}
	return service.NewLocalLocker()
}

// newService 组装服务层；runner 为 nil 时使用单并发执行器（CLI 同步命令）
func (a *app) newService(runner service.Runner) *service.Service {
	if runner == nil {
		runner = worker.NewPool(1, a.logger)
	}
	return service.NewService(service.Options{
		Config: a.cfg,
		Repo:   a.repo,
		Locker: a.locker(),
		Runner: runner,
		Logger: a.logger,
	})
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
	a.logger.Sync()
}
