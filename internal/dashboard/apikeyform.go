package dashboard

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// apiKeyForm 交易所 API 密钥更新弹窗
type apiKeyForm struct {
	fields  [2]authField
	focus   int
	lastErr string
}

func newAPIKeyForm() apiKeyForm {
	return apiKeyForm{
		fields: [2]authField{
			{label: "API Key", masked: true},
			{label: "API Secret", masked: true},
		},
	}
}

func (f *apiKeyForm) submission() (key, secret string, ok bool) {
	key = strings.TrimSpace(f.fields[0].value)
	secret = strings.TrimSpace(f.fields[1].value)
	if key == "" || secret == "" {
		return "", "", false
	}
	return key, secret, true
}

// handleKey 处理一次按键
// done 为 true 表示弹窗应该关闭，submit 为 true 表示用户请求提交
func (f *apiKeyForm) handleKey(msg tea.KeyMsg) (done, submit bool) {
	switch msg.String() {
	case "esc":
		return true, false
	case "enter":
		return false, true
	case "tab", "down", "up", "shift+tab":
		f.focus = 1 - f.focus
		return false, false
	case "backspace":
		if v := f.fields[f.focus].value; v != "" {
			runes := []rune(v)
			f.fields[f.focus].value = string(runes[:len(runes)-1])
		}
		return false, false
	}
	if msg.Type == tea.KeyRunes {
		f.fields[f.focus].value += string(msg.Runes)
	}
	return false, false
}

func (f *apiKeyForm) render(width int) string {
	var lines []string
	lines = append(lines, sectionStyle.Render("更新交易所 API 密钥"))
	lines = append(lines, strings.Repeat("─", max(width-6, 10)))
	for i, field := range f.fields {
		shown := strings.Repeat("*", len([]rune(field.value)))
		line := field.label + ": " + shown
		if i == f.focus {
			lines = append(lines, focusedStyle.Render("> "+line+"▎"))
		} else {
			lines = append(lines, "  "+line)
		}
	}
	if f.lastErr != "" {
		lines = append(lines, errorToastStyle.Render(f.lastErr))
	}
	lines = append(lines, dimStyle.Render("Enter 提交 · Esc 取消"))
	return panelStyle.Width(width).Render(strings.Join(lines, "\n"))
}
