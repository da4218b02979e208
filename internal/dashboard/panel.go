package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/emabot/gopanel/internal/botctl"
	"github.com/emabot/gopanel/internal/domain"
	ws "github.com/emabot/gopanel/pkg/sdk/websocket"
)

// toast 短暂停留的状态条消息
type toast struct {
	text      string
	isError   bool
	expiresAt time.Time
}

const toastTTL = 4 * time.Second

// renderCoinsTable 行情表格
func renderCoinsTable(rows []domain.CoinTicker, connState ws.State, width int) string {
	var lines []string

	connLabel := dimStyle.Render(connState.String())
	switch connState {
	case ws.StateOpen:
		connLabel = upStyle.Render("实时")
	case ws.StateConnecting:
		connLabel = warnStyle.Render("连接中")
	case ws.StateClosed:
		connLabel = downStyle.Render("已断开")
	}
	lines = append(lines, sectionStyle.Render("行情")+" "+connLabel)
	lines = append(lines, strings.Repeat("─", max(width-6, 10)))

	lines = append(lines, dimStyle.Render(fmt.Sprintf(
		"%-10s %12s %8s %14s %10s %10s %12s",
		"交易对", "价格", "24h%", "24h量", "EMA9", "EMA21", "信号")))

	if len(rows) == 0 {
		lines = append(lines, dimStyle.Render("等待行情数据..."))
	}
	for _, r := range rows {
		ema9, ema21 := "-", "-"
		if r.EMA9 != nil {
			ema9 = r.EMA9.StringFixed(2)
		}
		if r.EMA21 != nil {
			ema21 = r.EMA21.StringFixed(2)
		}
		change := changeStyle(r.Change24h.IsNegative()).
			Render(fmt.Sprintf("%8s", r.Change24h.StringFixed(2)))
		sig := signalStyle(r.Signal).Render(fmt.Sprintf("%12s", string(r.Signal)))
		lines = append(lines, fmt.Sprintf("%-10s %12s %s %14s %10s %10s %s",
			r.Symbol, r.Price.StringFixed(4), change,
			formatVolume(r.Volume24h), ema9, ema21, sig))
	}
	return strings.Join(lines, "\n")
}

// formatVolume 成交量缩写（1.2B / 340.5M / 88.0K）
func formatVolume(v decimal.Decimal) string {
	billion := decimal.NewFromInt(1_000_000_000)
	million := decimal.NewFromInt(1_000_000)
	thousand := decimal.NewFromInt(1_000)
	switch {
	case v.GreaterThanOrEqual(billion):
		return v.Div(billion).StringFixed(1) + "B"
	case v.GreaterThanOrEqual(million):
		return v.Div(million).StringFixed(1) + "M"
	case v.GreaterThanOrEqual(thousand):
		return v.Div(thousand).StringFixed(1) + "K"
	default:
		return v.StringFixed(1)
	}
}

// renderRunState 机器人运行状态条
func renderRunState(state botctl.RunState, profile *domain.UserProfile) string {
	var parts []string
	switch state {
	case botctl.RunStateRunning:
		parts = append(parts, runningStyle.Render("● 运行中"))
	case botctl.RunStateStopped:
		parts = append(parts, stoppedStyle.Render("○ 已停止"))
	default:
		parts = append(parts, dimStyle.Render("? 未知"))
	}
	if profile != nil {
		sub := downStyle.Render("订阅未激活")
		if profile.Subscription.IsActive {
			sub = upStyle.Render("订阅有效")
		}
		key := warnStyle.Render("未绑定 API Key")
		if profile.HasAPIKey {
			key = dimStyle.Render("API Key 已绑定")
		}
		parts = append(parts, sub, key)
	}
	return strings.Join(parts, "  ")
}

// renderToasts 状态条消息
func renderToasts(toasts []toast) string {
	if len(toasts) == 0 {
		return ""
	}
	var lines []string
	for _, t := range toasts {
		if t.isError {
			lines = append(lines, errorToastStyle.Render("✗ "+t.text))
		} else {
			lines = append(lines, infoToastStyle.Render("✓ "+t.text))
		}
	}
	return strings.Join(lines, "\n")
}

// renderHeader 面板标题栏
func renderHeader(profile *domain.UserProfile) string {
	who := ""
	if profile != nil {
		who = fmt.Sprintf(" | %s <%s>", profile.Name, profile.Email)
		if profile.IsAdmin {
			who += " [admin]"
		}
	}
	return titleStyle.Render(fmt.Sprintf("EMA 交易面板%s | %s", who, time.Now().Format("15:04:05")))
}

// joinPanels 左右两栏布局
func joinPanels(left, right string, leftWidth, rightWidth int) string {
	l := panelStyle.Width(leftWidth).Render(left)
	r := panelStyle.Width(rightWidth).Render(right)
	return lipgloss.JoinHorizontal(lipgloss.Top, l, " ", r)
}
