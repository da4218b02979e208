// coinswatch 无界面的行情盯盘工具：连上推送流，把每次更新打到标准输出
// 适合重定向到文件或者挂在 tmux 里观察信号变化
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emabot/gopanel/internal/domain"
	"github.com/emabot/gopanel/internal/feed"
	"github.com/emabot/gopanel/pkg/config"
	"github.com/emabot/gopanel/pkg/logger"
	"github.com/emabot/gopanel/pkg/sdk/api"
	ws "github.com/emabot/gopanel/pkg/sdk/websocket"
)

func main() {
	var (
		configFile string
		onlySignal bool
	)
	flag.StringVar(&configFile, "config", "", "配置文件路径（可选）")
	flag.BoolVar(&onlySignal, "signal-only", false, "只在信号变化时输出")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config{Level: "warn"}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiClient := api.NewClient(cfg.Client.BaseURL, func() string { return "" })
	streamURL := cfg.Client.StreamURL()
	f := feed.New(apiClient, func(h ws.MessageHandler, onState ws.StateHandler) feed.Stream {
		return ws.NewClient(streamURL, h, onState)
	})
	f.Open(ctx)
	defer f.Close()

	fmt.Printf("盯盘 %s（Ctrl+C 退出）\n", cfg.Client.BaseURL)

	lastSignal := map[string]domain.Signal{}
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\n已退出")
			return
		case <-f.Updates():
			printRows(f.Rows(), lastSignal, onlySignal)
		}
	}
}

func printRows(rows []domain.CoinTicker, lastSignal map[string]domain.Signal, onlySignal bool) {
	ts := time.Now().Format("15:04:05")
	for _, r := range rows {
		if onlySignal && lastSignal[r.Symbol] == r.Signal {
			continue
		}
		lastSignal[r.Symbol] = r.Signal

		ema := ""
		if r.HasIndicators() {
			ema = fmt.Sprintf(" ema9=%s ema21=%s", r.EMA9.StringFixed(2), r.EMA21.StringFixed(2))
		}
		fmt.Printf("[%s] %-10s %12s %6s%%%s %s\n",
			ts, r.Symbol, r.Price.StringFixed(4), r.Change24h.StringFixed(2), ema, r.Signal)
	}
}
