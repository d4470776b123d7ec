package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"strategy-api/internal/app"
	"strategy-api/internal/config"
	"strategy-api/internal/log"
	"strategy-api/internal/store"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.Parse()

	// .env 仅用于本地开发注入密钥，缺失时静默跳过。
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		logger.Error("初始化数据库失败", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	strategyApp := app.New(cfg, logger, sqliteStore)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := strategyApp.Run(ctx); err != nil {
		logger.Error("系统运行异常", zap.Error(err))
		os.Exit(1)
	}
}
