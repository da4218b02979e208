package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/emabot/gopanel/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

	focusedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	upStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	downStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))

	errorToastStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	infoToastStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	runningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	stoppedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("241"))
)

// signalStyle 信号着色：买绿卖红，观望灰
func signalStyle(s domain.Signal) lipgloss.Style {
	switch s {
	case domain.SignalStrongBuy:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	case domain.SignalBuy:
		return upStyle
	case domain.SignalStrongSell:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	case domain.SignalSell:
		return downStyle
	default:
		return dimStyle
	}
}

// changeStyle 涨跌幅着色
func changeStyle(negative bool) lipgloss.Style {
	if negative {
		return downStyle
	}
	return upStyle
}
