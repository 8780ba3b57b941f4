package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carbonex30/scheduler/internal/api/handler"
	"github.com/carbonex30/scheduler/internal/api/middleware"
	"github.com/carbonex30/scheduler/internal/api/router"
	"github.com/carbonex30/scheduler/internal/worker"
	"github.com/carbonex30/scheduler/pkg/database"
)

func newServeCmd(configPath *string) *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath, skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "启动时不执行数据库迁移")
	return cmd
}

func runServe(configPath string, skipMigrate bool) error {
	// 1. 配置、日志、数据库、Redis
	a, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	logger.Info("应用启动中...",
		zap.Int("port", a.cfg.Server.Port),
		zap.String("log_level", a.cfg.Log.Level),
		zap.String("db_driver", a.cfg.Database.Driver),
	)

	// 2. 数据库迁移
	if !skipMigrate {
		if err := a.migrate(); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	// 3. 后台任务：执行器 + 崩溃恢复清理
	pool := worker.NewPool(a.cfg.Worker.Concurrency, logger)
	janitor, err := worker.NewJanitor(a.repo, worker.JanitorOptions{
		Spec:              a.cfg.Worker.JanitorSpec,
		GenerationTimeout: a.cfg.Scheduling.GenerationTimeout,
		TrainingTimeout:   a.cfg.ML.TrainingTimeout,
	}, logger)
	if err != nil {
		return err
	}
	janitor.Start()

	// 4. 依赖注入: Repository → Service → Handler
	svc := a.newService(pool)
	deps := map[string]handler.Pinger{"database": database.NewHealthCheck(a.db)}
	var limiter middleware.Limiter
	if a.rdb != nil {
		deps["redis"] = a.rdb
		limiter = a.rdb
	}
	h := handler.NewHandler(svc, deps, logger)

	// 5. 路由与 HTTP 服务器
	engine := router.Setup(a.cfg, h, limiter, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// 同步生成 / 训练可能持续较久
		WriteTimeout: a.cfg.Scheduling.GenerationTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// 6. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
	case err := <-serveErr:
		logger.Error("HTTP 服务器异常", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	janitor.Stop(ctx)
	// 未完成的生成任务被取消后落为 failed，可重新生成
	if err := pool.Shutdown(ctx); err != nil {
		logger.Warn("后台任务未在超时前结束", zap.Error(err))
	}

	logger.Info("服务器已关闭")
	return nil
}
