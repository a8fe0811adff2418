package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"bitget-fleet/internal/app"
	"bitget-fleet/internal/config"
	"bitget-fleet/internal/log"
)

func main() {
	configPath := flag.String("config", "config.json", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, config.ErrDefaultWritten) {
			fmt.Printf("已生成默认配置 %s，请填写账户凭证后重新运行\n", *configPath)
			return
		}
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("启动多账户交易终端",
		zap.String("config", *configPath),
		zap.Int("accounts", len(cfg.Accounts)),
		zap.String("symbol", cfg.Trading.Symbol),
	)

	if err := app.New(cfg, logger).Run(ctx); err != nil {
		logger.Error("运行失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("退出")
}
