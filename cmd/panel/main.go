package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emabot/gopanel/internal/dashboard"
	"github.com/emabot/gopanel/pkg/config"
	"github.com/emabot/gopanel/pkg/logger"
	"github.com/emabot/gopanel/pkg/sdk/api"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "配置文件路径（可选）")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// TUI 模式日志只进文件，终端输出会打乱界面
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.OutputFile,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
		NoConsole:  true,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 启动前探测一次后端，连不上就尽早提示而不是进入界面后才报错
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	probe := api.NewClient(cfg.Client.BaseURL, func() string { return "" })
	if _, err := probe.Health(probeCtx); err != nil {
		fmt.Fprintf(os.Stderr, "后端 %s 不可达: %v\n", cfg.Client.BaseURL, err)
		logger.Warnf("健康检查失败: %v", err)
	}
	cancel()

	if err := dashboard.Run(ctx, cfg.Client); err != nil {
		fmt.Fprintf(os.Stderr, "面板退出: %v\n", err)
		os.Exit(1)
	}
}
