/*
Package cmd - 应用装配与生命周期

设计原则:
1. Builder 是组合根：所有依赖（数据库、管道、业务模块）在这里装配
2. 业务模块通过 Module 函数接入，注册处理器并提供自己的路由
3. 进程生命周期统一处理：优雅关闭、日志刷新、连接回收
*/
package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"archkit/api"
	"archkit/application/usecase"
	"archkit/config"
	"archkit/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 装配完成的应用实例
type App struct {
	config   *config.Config
	router   *api.Router
	server   *http.Server
	mediator *usecase.Mediator
	db       *gorm.DB
}

// Mediator 返回装配好的中介者（用于测试与后台任务）
func (a *App) Mediator() *usecase.Mediator {
	return a.mediator
}

// GetEngine 获取 Gin 引擎（用于 httptest）
func (a *App) GetEngine() *gin.Engine {
	return a.router.GetEngine()
}

// DB 返回底层数据库连接，内存模式下为 nil
func (a *App) DB() *gorm.DB {
	return a.db
}

// Run 启动 HTTP 服务并阻塞，收到 SIGINT/SIGTERM 后优雅关闭
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			zap.String("addr", a.server.Addr),
			zap.String("env", a.config.App.Env))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("Shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	logger.Info("Server stopped")
	_ = logger.Sync()
	return nil
}
