package server

import (
	"github.com/emabot/gopanel/internal/domain"
)

// ema 指数移动平均，k = 2/(n+1)
// 数据不足一个周期时返回 nil
func ema(closes []float64, period int) []float64 {
	if len(closes) < period || period <= 0 {
		return nil
	}
	out := make([]float64, len(closes))

	// 种子用前 period 根的简单平均
	var sum float64
	for _, v := range closes[:period] {
		sum += v
	}
	out[period-1] = sum / float64(period)

	k := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		out[i] = closes[i]*k + out[i-1]*(1-k)
	}
	return out
}

// classifySignal 按快慢线交叉给信号
// 快线在慢线上方为 BUY、下方为 SELL；
// 与前一根的多空关系发生翻转时（上穿/下穿当根）升级为强信号
func classifySignal(ema9, ema21, prevEMA9, prevEMA21 float64) domain.Signal {
	bull := ema9 > ema21
	prevBull := prevEMA9 > prevEMA21
	switch {
	case bull && !prevBull:
		return domain.SignalStrongBuy
	case !bull && prevBull:
		return domain.SignalStrongSell
	case bull:
		return domain.SignalBuy
	default:
		return domain.SignalSell
	}
}

// latestEMASignal 从收盘序列算出最新的 EMA9/EMA21 和信号
// 交叉判定需要前一根的 EMA 对，序列不够长时只给 HOLD
func latestEMASignal(closes []float64) (ema9, ema21 float64, sig domain.Signal) {
	fast := ema(closes, 9)
	slow := ema(closes, 21)
	last := len(closes) - 1
	// 慢线种子落在第 21 根，再往前一根才有可比的前值
	if fast == nil || slow == nil || last < 21 {
		return 0, 0, domain.SignalHold
	}
	ema9, ema21 = fast[last], slow[last]
	return ema9, ema21, classifySignal(ema9, ema21, fast[last-1], slow[last-1])
}
