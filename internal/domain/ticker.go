package domain

import (
	"github.com/shopspring/decimal"
)

// Signal 由外部行情服务根据 EMA 交叉派生的交易信号
type Signal string

const (
	SignalStrongBuy  Signal = "STRONG_BUY"
	SignalBuy        Signal = "BUY"
	SignalHold       Signal = "HOLD"
	SignalSell       Signal = "SELL"
	SignalStrongSell Signal = "STRONG_SELL"
)

// ParseSignal 解析信号字符串，未知或空值归为 HOLD
func ParseSignal(s string) Signal {
	switch Signal(s) {
	case SignalStrongBuy, SignalBuy, SignalSell, SignalStrongSell, SignalHold:
		return Signal(s)
	default:
		return SignalHold
	}
}

// CoinTicker 单个合约的行情快照
// EMA9/EMA21 在第一次完整推送到达之前可能缺失，用指针表达缺失
type CoinTicker struct {
	Symbol    string           `json:"symbol"`
	Price     decimal.Decimal  `json:"price"`
	Change24h decimal.Decimal  `json:"change_24h"`
	Volume24h decimal.Decimal  `json:"volume_24h"`
	EMA9      *decimal.Decimal `json:"ema9,omitempty"`
	EMA21     *decimal.Decimal `json:"ema21,omitempty"`
	Signal    Signal           `json:"signal,omitempty"`
}

// HasIndicators 指标是否就绪
func (t *CoinTicker) HasIndicators() bool {
	return t.EMA9 != nil && t.EMA21 != nil
}
