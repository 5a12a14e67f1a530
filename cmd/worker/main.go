// Outbox 投递进程：轮询 outbox 表并把待发布事件交给发布器
// 与 HTTP 服务分开部署，互不影响伸缩
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"archkit/config"
	"archkit/infrastructure/persistence/gormdb"
	"archkit/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	configPath := os.Getenv("ARCHKIT_CONFIG")

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Log, cfg.App.Env); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	dbConfig := &gormdb.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Username:        cfg.Database.Username,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Log.Level,
	}

	db, err := dbConfig.Connect()
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	worker, err := gormdb.NewOutboxWorker(
		gormdb.NewOutboxRepository(db),
		&gormdb.LoggingOutboxPublisher{},
		cfg.Outbox.PollInterval,
		cfg.Outbox.BatchSize,
		cfg.Outbox.MaxRetries,
	)
	if err != nil {
		logger.Fatal("failed to create outbox worker", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Shutting down worker", zap.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("Outbox worker starting",
		zap.Duration("poll_interval", cfg.Outbox.PollInterval),
		zap.Int("batch_size", cfg.Outbox.BatchSize))

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Fatal("outbox worker stopped with error", zap.Error(err))
	}
	logger.Info("Outbox worker stopped")
}
