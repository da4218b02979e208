package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emabot/gopanel/internal/server"
	"github.com/emabot/gopanel/pkg/config"
	"github.com/emabot/gopanel/pkg/logger"
	"github.com/emabot/gopanel/pkg/shutdown"
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

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.OutputFile,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	srv, err := server.New(cfg.Server)
	if err != nil {
		logger.Errorf("初始化服务端失败: %v", err)
		os.Exit(1)
	}

	sm := shutdown.NewManager()
	sm.OnShutdown(func(_ context.Context) {
		if err := srv.Close(); err != nil {
			logger.Warnf("关闭服务端失败: %v", err)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := srv.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sm.Shutdown(shutdownCtx)

	if runErr != nil {
		logger.Errorf("服务端退出: %v", runErr)
		os.Exit(1)
	}
	logger.Infof("服务端已停止")
}
