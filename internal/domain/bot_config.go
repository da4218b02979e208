package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxLeverage 杠杆上限（输入约束，实际限制由交易所决定）
const MaxLeverage = 125

// Timeframes 支持的 K 线周期
var Timeframes = []string{"1m", "5m", "15m", "1h", "4h", "1d"}

// BotConfig 机器人执行参数
// 客户端同时持有两份：persisted（服务端最后确认的）和 draft（编辑中的）
type BotConfig struct {
	Symbol       string          `json:"symbol"`
	Timeframe    string          `json:"timeframe"`
	Leverage     int             `json:"leverage"`
	TakeProfit   decimal.Decimal `json:"take_profit"`
	StopLoss     decimal.Decimal `json:"stop_loss"`
	PositionSize decimal.Decimal `json:"position_size"`
	IsActive     bool            `json:"is_active"`
}

// DefaultBotConfig 服务端在用户从未保存过配置时返回的默认值
func DefaultBotConfig() BotConfig {
	return BotConfig{
		Symbol:       "BTCUSDT",
		Timeframe:    "1m",
		Leverage:     1,
		TakeProfit:   decimal.NewFromFloat(2.0),
		StopLoss:     decimal.NewFromFloat(1.0),
		PositionSize: decimal.NewFromFloat(10.0),
	}
}

// ValidTimeframe 周期是否受支持
func ValidTimeframe(tf string) bool {
	for _, t := range Timeframes {
		if t == tf {
			return true
		}
	}
	return false
}

// Validate 校验配置是否可提交
// 止盈/止损为无约束的带符号小数，不在此校验
func (c BotConfig) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("交易对不能为空")
	}
	if !ValidTimeframe(c.Timeframe) {
		return fmt.Errorf("不支持的周期: %s", c.Timeframe)
	}
	if c.Leverage < 1 || c.Leverage > MaxLeverage {
		return fmt.Errorf("杠杆必须在 1-%d 之间: %d", MaxLeverage, c.Leverage)
	}
	if !c.PositionSize.IsPositive() {
		return fmt.Errorf("仓位大小必须为正值: %s", c.PositionSize)
	}
	return nil
}

// Equal 两份配置是否一致（decimal 按数值比较，IsActive 不参与：
// 它是服务端回填的运行状态，不属于可编辑参数）
func (c BotConfig) Equal(o BotConfig) bool {
	return c.Symbol == o.Symbol &&
		c.Timeframe == o.Timeframe &&
		c.Leverage == o.Leverage &&
		c.TakeProfit.Equal(o.TakeProfit) &&
		c.StopLoss.Equal(o.StopLoss) &&
		c.PositionSize.Equal(o.PositionSize)
}
