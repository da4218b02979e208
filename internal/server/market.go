package server

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"github.com/emabot/gopanel/internal/domain"
	"github.com/emabot/gopanel/pkg/config"
)

// watchSymbols 面板跟踪的合约
var watchSymbols = []string{
	"BTCUSDT", "ETHUSDT", "BNBUSDT", "ADAUSDT", "SOLUSDT",
	"XRPUSDT", "DOTUSDT", "DOGEUSDT", "AVAXUSDT", "LUNAUSDT",
}

// mockBasePrice 模拟行情的起始价
var mockBasePrice = map[string]float64{
	"BTCUSDT":  65000,
	"ETHUSDT":  3200,
	"BNBUSDT":  580,
	"ADAUSDT":  0.45,
	"SOLUSDT":  150,
	"XRPUSDT":  0.52,
	"DOTUSDT":  6.8,
	"DOGEUSDT": 0.12,
	"AVAXUSDT": 28,
	"LUNAUSDT": 0.6,
}

// klineWindow 保留的收盘价数量，够算 EMA21 并留出热身余量
const klineWindow = 120

// marketSource 行情源：周期性刷新合约快照
// 模拟模式走随机游走，真实模式从币安合约拉 K 线和 24h 统计
type marketSource struct {
	cfg     config.ServerConfig
	futures *futures.Client // 仅 UseBinance 时非 nil

	mu     sync.RWMutex
	coins  []domain.CoinTicker
	closes map[string][]float64
	volume map[string]float64
	rng    *rand.Rand
}

func newMarketSource(cfg config.ServerConfig) *marketSource {
	m := &marketSource{
		cfg:    cfg,
		closes: make(map[string][]float64),
		volume: make(map[string]float64),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if cfg.UseBinance {
		m.futures = futures.NewClient(cfg.BinanceKey, cfg.BinanceSecret)
	} else {
		m.seedMock()
	}
	m.refresh(context.Background())
	return m
}

// Coins 当前快照的副本
func (m *marketSource) Coins() []domain.CoinTicker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.CoinTicker, len(m.coins))
	copy(out, m.coins)
	return out
}

func (m *marketSource) run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.PushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refresh(ctx)
		}
	}
}

func (m *marketSource) refresh(ctx context.Context) {
	if m.futures != nil {
		m.refreshBinance(ctx)
		return
	}
	m.refreshMock()
}

// seedMock 预生成一段历史，让 EMA 一开播就有值
func (m *marketSource) seedMock() {
	for _, sym := range watchSymbols {
		price := mockBasePrice[sym]
		closes := make([]float64, 0, klineWindow)
		for i := 0; i < klineWindow; i++ {
			price *= 1 + m.rng.NormFloat64()*0.002
			closes = append(closes, price)
		}
		m.closes[sym] = closes
		m.volume[sym] = (0.5 + m.rng.Float64()) * 1e9
	}
}

func (m *marketSource) refreshMock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	coins := make([]domain.CoinTicker, 0, len(watchSymbols))
	for _, sym := range watchSymbols {
		closes := m.closes[sym]
		last := closes[len(closes)-1]
		next := last * (1 + m.rng.NormFloat64()*0.002)
		closes = append(closes, next)
		if len(closes) > klineWindow {
			closes = closes[len(closes)-klineWindow:]
		}
		m.closes[sym] = closes
		m.volume[sym] *= 1 + m.rng.NormFloat64()*0.01

		change := (next/closes[0] - 1) * 100
		coins = append(coins, buildTicker(sym, next, change, m.volume[sym], closes))
	}
	m.coins = coins
}

func (m *marketSource) refreshBinance(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	coins := make([]domain.CoinTicker, 0, len(watchSymbols))
	for _, sym := range watchSymbols {
		klines, err := m.futures.NewKlinesService().
			Symbol(sym).Interval("1m").Limit(klineWindow).Do(ctx)
		if err != nil {
			log.Warnf("拉取 %s K 线失败: %v", sym, err)
			continue
		}
		closes := make([]float64, 0, len(klines))
		for _, k := range klines {
			v, err := strconv.ParseFloat(k.Close, 64)
			if err != nil {
				continue
			}
			closes = append(closes, v)
		}
		if len(closes) == 0 {
			continue
		}

		var change, volume float64
		stats, err := m.futures.NewListPriceChangeStatsService().Symbol(sym).Do(ctx)
		if err != nil {
			log.Warnf("拉取 %s 24h 统计失败: %v", sym, err)
		} else if len(stats) > 0 {
			change, _ = strconv.ParseFloat(stats[0].PriceChangePercent, 64)
			volume, _ = strconv.ParseFloat(stats[0].QuoteVolume, 64)
		}

		coins = append(coins, buildTicker(sym, closes[len(closes)-1], change, volume, closes))
	}
	if len(coins) == 0 {
		// 全部失败就保留上一轮快照
		return
	}

	m.mu.Lock()
	m.coins = coins
	m.mu.Unlock()
}

func buildTicker(sym string, price, changePct, volume float64, closes []float64) domain.CoinTicker {
	t := domain.CoinTicker{
		Symbol:    sym,
		Price:     decimal.NewFromFloat(price),
		Change24h: decimal.NewFromFloat(changePct).Round(2),
		Volume24h: decimal.NewFromFloat(volume).Round(0),
		Signal:    domain.SignalHold,
	}
	e9, e21, sig := latestEMASignal(closes)
	if e21 != 0 {
		d9 := decimal.NewFromFloat(e9)
		d21 := decimal.NewFromFloat(e21)
		t.EMA9 = &d9
		t.EMA21 = &d21
		t.Signal = sig
	}
	return t
}
