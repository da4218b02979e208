package dashboard

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// authMode 表单工作模式
type authMode int

const (
	modeLogin authMode = iota
	modeRegister
)

// authField 表单输入框
type authField struct {
	label  string
	value  string
	masked bool
}

// authForm 登录/注册表单
// 没有现成的输入组件可用，按键直接落到聚焦的字段上
type authForm struct {
	mode    authMode
	fields  []authField
	focus   int
	busy    bool // 请求在途时锁住提交
	lastErr string
}

const (
	fieldName = iota
	fieldEmail
	fieldPassword
)

func newAuthForm() authForm {
	return authForm{
		mode: modeLogin,
		fields: []authField{
			{label: "姓名"},
			{label: "邮箱"},
			{label: "密码", masked: true},
		},
	}
}

// visible 当前模式下可见的字段下标
func (f *authForm) visible() []int {
	if f.mode == modeRegister {
		return []int{fieldName, fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword}
}

func (f *authForm) toggleMode() {
	if f.mode == modeLogin {
		f.mode = modeRegister
	} else {
		f.mode = modeLogin
	}
	f.focus = 0
	f.lastErr = ""
}

// submission 表单当前内容；ok 为 false 表示还不能提交
func (f *authForm) submission() (name, email, password string, ok bool) {
	name = strings.TrimSpace(f.fields[fieldName].value)
	email = strings.TrimSpace(f.fields[fieldEmail].value)
	password = f.fields[fieldPassword].value
	if email == "" || password == "" {
		return "", "", "", false
	}
	if f.mode == modeRegister && name == "" {
		return "", "", "", false
	}
	return name, email, password, true
}

// handleKey 处理一次按键；返回 true 表示用户请求提交
func (f *authForm) handleKey(msg tea.KeyMsg) (submit bool) {
	if f.busy {
		return false
	}
	vis := f.visible()

	switch msg.String() {
	case "tab", "down":
		f.focus = (f.focus + 1) % len(vis)
		return false
	case "shift+tab", "up":
		f.focus = (f.focus - 1 + len(vis)) % len(vis)
		return false
	case "ctrl+t":
		f.toggleMode()
		return false
	case "enter":
		return true
	case "backspace":
		field := &f.fields[vis[f.focus]]
		if field.value != "" {
			runes := []rune(field.value)
			field.value = string(runes[:len(runes)-1])
		}
		return false
	}

	if msg.Type == tea.KeyRunes {
		field := &f.fields[vis[f.focus]]
		field.value += string(msg.Runes)
	}
	return false
}

func (f *authForm) render(width int) string {
	if width < 44 {
		width = 44
	}

	var lines []string
	if f.mode == modeLogin {
		lines = append(lines, sectionStyle.Render("登录"))
	} else {
		lines = append(lines, sectionStyle.Render("注册"))
	}
	lines = append(lines, strings.Repeat("─", width-6))

	for i, idx := range f.visible() {
		field := f.fields[idx]
		shown := field.value
		if field.masked {
			shown = strings.Repeat("*", len([]rune(field.value)))
		}
		line := field.label + ": " + shown
		if i == f.focus && !f.busy {
			lines = append(lines, focusedStyle.Render("> "+line+"▎"))
		} else {
			lines = append(lines, "  "+line)
		}
	}

	lines = append(lines, "")
	if f.busy {
		lines = append(lines, warnStyle.Render("请求中..."))
	} else if f.lastErr != "" {
		lines = append(lines, errorToastStyle.Render(f.lastErr))
	}
	if f.mode == modeLogin {
		lines = append(lines, dimStyle.Render("Enter 登录 · Ctrl+T 切换注册 · Ctrl+C 退出"))
	} else {
		lines = append(lines, dimStyle.Render("Enter 注册 · Ctrl+T 切换登录 · Ctrl+C 退出"))
	}

	box := panelStyle.Width(width - 4).Render(strings.Join(lines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("EMA 交易面板"), box)
}
