package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/emabot/gopanel/internal/domain"
)

// 配置编辑器字段顺序
const (
	cfgSymbol = iota
	cfgTimeframe
	cfgLeverage
	cfgTakeProfit
	cfgStopLoss
	cfgPositionSize
	cfgFieldCount
)

var cfgLabels = [cfgFieldCount]string{
	"交易对", "周期", "杠杆", "止盈%", "止损%", "仓位(USDT)",
}

// configForm 机器人配置编辑器
// 字段以文本缓冲编辑，collect 时才解析回 BotConfig，
// 解析失败的输入不会进草稿
type configForm struct {
	inputs [cfgFieldCount]string
	focus  int
	active bool // 是否持有键盘焦点
}

// load 用一份配置重置所有缓冲
func (f *configForm) load(cfg domain.BotConfig) {
	f.inputs[cfgSymbol] = cfg.Symbol
	f.inputs[cfgTimeframe] = cfg.Timeframe
	f.inputs[cfgLeverage] = strconv.Itoa(cfg.Leverage)
	f.inputs[cfgTakeProfit] = cfg.TakeProfit.String()
	f.inputs[cfgStopLoss] = cfg.StopLoss.String()
	f.inputs[cfgPositionSize] = cfg.PositionSize.String()
}

// collect 把缓冲解析成配置；草稿的 IsActive 由控制器维护，这里不碰
func (f *configForm) collect(base domain.BotConfig) (domain.BotConfig, error) {
	cfg := base
	cfg.Symbol = strings.ToUpper(strings.TrimSpace(f.inputs[cfgSymbol]))
	cfg.Timeframe = f.inputs[cfgTimeframe]

	lev, err := strconv.Atoi(strings.TrimSpace(f.inputs[cfgLeverage]))
	if err != nil {
		return cfg, fmt.Errorf("杠杆不是整数: %s", f.inputs[cfgLeverage])
	}
	cfg.Leverage = lev

	for _, p := range []struct {
		idx int
		dst *decimal.Decimal
	}{
		{cfgTakeProfit, &cfg.TakeProfit},
		{cfgStopLoss, &cfg.StopLoss},
		{cfgPositionSize, &cfg.PositionSize},
	} {
		d, err := decimal.NewFromString(strings.TrimSpace(f.inputs[p.idx]))
		if err != nil {
			return cfg, fmt.Errorf("%s 不是数字: %s", cfgLabels[p.idx], f.inputs[p.idx])
		}
		*p.dst = d
	}
	return cfg, nil
}

// cycleTimeframe 周期字段用左右键在支持的取值里轮转
func (f *configForm) cycleTimeframe(delta int) {
	cur := 0
	for i, tf := range domain.Timeframes {
		if tf == f.inputs[cfgTimeframe] {
			cur = i
			break
		}
	}
	n := len(domain.Timeframes)
	f.inputs[cfgTimeframe] = domain.Timeframes[(cur+delta+n)%n]
}

// handleKey 处理一次按键；返回 true 表示按键被消费
func (f *configForm) handleKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "down":
		f.focus = (f.focus + 1) % cfgFieldCount
		return true
	case "up":
		f.focus = (f.focus - 1 + cfgFieldCount) % cfgFieldCount
		return true
	case "left":
		if f.focus == cfgTimeframe {
			f.cycleTimeframe(-1)
			return true
		}
	case "right":
		if f.focus == cfgTimeframe {
			f.cycleTimeframe(1)
			return true
		}
	case "backspace":
		if f.focus == cfgTimeframe {
			return true
		}
		if v := f.inputs[f.focus]; v != "" {
			runes := []rune(v)
			f.inputs[f.focus] = string(runes[:len(runes)-1])
		}
		return true
	}

	if msg.Type == tea.KeyRunes && f.focus != cfgTimeframe {
		f.inputs[f.focus] += string(msg.Runes)
		return true
	}
	return false
}

func (f *configForm) render(width int, dirty bool) string {
	var lines []string
	header := "机器人配置"
	if dirty {
		header += warnStyle.Render("（未保存）")
	}
	lines = append(lines, sectionStyle.Render(header))
	lines = append(lines, strings.Repeat("─", max(width-6, 10)))

	for i := 0; i < cfgFieldCount; i++ {
		val := f.inputs[i]
		if i == cfgTimeframe {
			val = "◀ " + val + " ▶"
		}
		line := fmt.Sprintf("%-10s %s", cfgLabels[i], val)
		if f.active && i == f.focus {
			lines = append(lines, focusedStyle.Render("> "+line+"▎"))
		} else {
			lines = append(lines, "  "+line)
		}
	}
	return strings.Join(lines, "\n")
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
