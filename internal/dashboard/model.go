package dashboard

import (
	"context"
	"os"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/emabot/gopanel/internal/botctl"
	"github.com/emabot/gopanel/internal/feed"
	"github.com/emabot/gopanel/internal/session"
	"github.com/emabot/gopanel/pkg/sdk/api"
)

var modelLog = logrus.WithField("component", "dashboard.model")

// view 面板当前所处的界面
type view int

const (
	viewLoading view = iota
	viewAuth
	viewPanel
)

// refreshInterval 后台对账周期（配置 + 用户资料）
const refreshInterval = 30 * time.Second

type (
	// bootstrapDoneMsg 启动时的会话恢复完成
	bootstrapDoneMsg struct{}

	// authResultMsg 登录/注册请求返回
	authResultMsg struct{ err error }

	// feedSignalMsg 行情数据源有更新；src 用来丢弃上一次挂载残留的信号
	feedSignalMsg struct{ src *feed.Feed }

	// botSignalMsg 机器人控制器状态有更新
	botSignalMsg struct{ src *botctl.Controller }

	// cfgLoadedMsg 首次拉取机器人配置返回
	cfgLoadedMsg struct{ err error }

	// opDoneMsg 一次面板操作（保存/启停/登出/改密钥）返回
	opDoneMsg struct {
		label string
		err   error
	}

	refreshTickMsg time.Time
	clockTickMsg   time.Time
)

// Model 面板根模型
// 同时扮演编排者：会话恢复、行情源的挂载/卸载、配置控制器的
// 生命周期都从这里驱动
type Model struct {
	ctx  context.Context
	api  *api.Client
	sess *session.Manager

	newFeed func() *feed.Feed
	feed    *feed.Feed
	bot     *botctl.Controller

	view    view
	auth    authForm
	cfg     configForm
	keyForm *apiKeyForm

	toasts []toast
	width  int
	height int
}

// NewModel 创建根模型
func NewModel(ctx context.Context, apiClient *api.Client, sess *session.Manager, newFeed func() *feed.Feed) Model {
	return Model{
		ctx:     ctx,
		api:     apiClient,
		sess:    sess,
		newFeed: newFeed,
		view:    viewLoading,
		auth:    newAuthForm(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.bootstrapCmd(), clockTick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case clockTickMsg:
		m.expireToasts()
		return m, clockTick()

	case bootstrapDoneMsg:
		if m.sess.State() == session.StateAuthenticated {
			return m.mountPanel()
		}
		m.view = viewAuth
		return m, nil

	case authResultMsg:
		m.auth.busy = false
		if msg.err != nil {
			m.auth.lastErr = api.UserDetail(msg.err)
			return m, nil
		}
		return m.mountPanel()

	case feedSignalMsg:
		if msg.src != m.feed {
			// 上一次挂载的残留信号
			return m, nil
		}
		return m, m.waitFeed()

	case botSignalMsg:
		if msg.src != m.bot {
			return m, nil
		}
		return m, m.waitBot()

	case cfgLoadedMsg:
		if msg.err != nil {
			m.pushToast("拉取机器人配置失败: "+api.UserDetail(msg.err), true)
			return m, nil
		}
		m.cfg.load(m.bot.Draft())
		return m, nil

	case opDoneMsg:
		return m.handleOpDone(msg)

	case refreshTickMsg:
		if m.view != viewPanel {
			return m, nil
		}
		return m, tea.Batch(m.refreshCmd(), refreshTick())

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Ctrl+C 永远退出；补发 SIGINT 让外层的优雅退出链路走完
	if msg.String() == "ctrl+c" {
		m.unmountPanel()
		_ = syscall.Kill(os.Getpid(), syscall.SIGINT)
		return m, tea.Quit
	}

	switch m.view {
	case viewAuth:
		if m.auth.handleKey(msg) {
			return m.submitAuth()
		}
		return m, nil

	case viewPanel:
		return m.handlePanelKey(msg)
	}
	return m, nil
}

func (m Model) submitAuth() (tea.Model, tea.Cmd) {
	name, email, password, ok := m.auth.submission()
	if !ok {
		m.auth.lastErr = "请填写所有字段"
		return m, nil
	}
	m.auth.busy = true
	m.auth.lastErr = ""
	mode := m.auth.mode
	return m, func() tea.Msg {
		var err error
		if mode == modeRegister {
			err = m.sess.Register(m.ctx, name, email, password)
		} else {
			err = m.sess.Login(m.ctx, email, password)
		}
		return authResultMsg{err: err}
	}
}

func (m Model) handlePanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// API Key 弹窗优先吃掉所有按键
	if m.keyForm != nil {
		done, submit := m.keyForm.handleKey(msg)
		if submit {
			return m.submitAPIKey()
		}
		if done {
			m.keyForm = nil
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+s":
		return m.saveConfig()
	case "ctrl+r":
		m.bot.ResetDraft()
		m.cfg.load(m.bot.Draft())
		m.pushToast("已放弃未保存的修改", false)
		return m, nil
	case "esc":
		m.cfg.active = false
		return m, nil
	}

	if m.cfg.active {
		if m.cfg.handleKey(msg) {
			return m, nil
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		m.unmountPanel()
		return m, tea.Quit
	case "e":
		m.cfg.active = true
		return m, nil
	case "b":
		return m.toggleBot()
	case "k":
		form := newAPIKeyForm()
		m.keyForm = &form
		return m, nil
	case "l":
		return m.logout()
	}
	return m, nil
}

// mountPanel 登录成功或会话恢复后挂载主面板
func (m Model) mountPanel() (tea.Model, tea.Cmd) {
	m.view = viewPanel
	m.auth = newAuthForm()

	m.feed = m.newFeed()
	m.feed.Open(m.ctx)

	m.bot = botctl.New(m.api)
	m.cfg = configForm{}
	m.cfg.load(m.bot.Draft())

	bot := m.bot
	loadCfg := func() tea.Msg {
		return cfgLoadedMsg{err: bot.Load(m.ctx)}
	}
	return m, tea.Batch(m.waitFeed(), m.waitBot(), loadCfg, refreshTick())
}

// unmountPanel 行情源是作用域资源：所有离开面板的路径都要关掉它
func (m *Model) unmountPanel() {
	if m.feed != nil {
		m.feed.Close()
		m.feed = nil
	}
	if m.bot != nil {
		m.bot.Close()
		m.bot = nil
	}
	m.keyForm = nil
	m.cfg = configForm{}
}

func (m Model) logout() (tea.Model, tea.Cmd) {
	m.unmountPanel()
	m.sess.Logout()
	m.view = viewAuth
	m.toasts = nil
	modelLog.Info("用户登出")
	return m, nil
}

func (m Model) saveConfig() (tea.Model, tea.Cmd) {
	draft, err := m.cfg.collect(m.bot.Draft())
	if err != nil {
		m.pushToast(err.Error(), true)
		return m, nil
	}
	m.bot.SetDraft(draft)
	bot := m.bot
	return m, func() tea.Msg {
		return opDoneMsg{label: "保存配置", err: bot.SaveConfig(m.ctx)}
	}
}

func (m Model) toggleBot() (tea.Model, tea.Cmd) {
	bot := m.bot
	if bot.RunState() == botctl.RunStateRunning {
		return m, func() tea.Msg {
			return opDoneMsg{label: "停止机器人", err: bot.Stop(m.ctx)}
		}
	}
	return m, func() tea.Msg {
		return opDoneMsg{label: "启动机器人", err: bot.Start(m.ctx)}
	}
}

func (m Model) submitAPIKey() (tea.Model, tea.Cmd) {
	key, secret, ok := m.keyForm.submission()
	if !ok {
		m.keyForm.lastErr = "请填写密钥和密文"
		return m, nil
	}
	m.keyForm = nil
	return m, func() tea.Msg {
		if err := m.api.UpdateAPIKey(m.ctx, key, secret); err != nil {
			return opDoneMsg{label: "更新 API Key", err: err}
		}
		// 资料里的 has_api_key 要跟着变
		return opDoneMsg{label: "更新 API Key", err: m.sess.RefreshProfile(m.ctx)}
	}
}

func (m Model) handleOpDone(msg opDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if api.IsUnauthorized(msg.err) {
			// 会话已经失效，回登录界面
			m.unmountPanel()
			m.view = viewAuth
			m.auth.lastErr = "会话已过期，请重新登录"
			return m, nil
		}
		m.pushToast(msg.label+"失败: "+api.UserDetail(msg.err), true)
		return m, nil
	}
	m.pushToast(msg.label+"成功", false)
	if msg.label == "保存配置" && m.bot != nil {
		m.cfg.load(m.bot.Draft())
	}
	return m, nil
}

// refreshCmd 后台对账：配置跟服务端对齐，资料里的订阅状态保持新鲜
func (m Model) refreshCmd() tea.Cmd {
	bot, sess, ctx := m.bot, m.sess, m.ctx
	return func() tea.Msg {
		if err := bot.Refresh(ctx); err != nil && api.IsUnauthorized(err) {
			return opDoneMsg{label: "刷新", err: err}
		}
		if err := sess.RefreshProfile(ctx); err != nil {
			modelLog.Debugf("刷新用户资料失败: %v", err)
		}
		return nil
	}
}

func (m Model) waitFeed() tea.Cmd {
	f := m.feed
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		<-f.Updates()
		return feedSignalMsg{src: f}
	}
}

func (m Model) waitBot() tea.Cmd {
	b := m.bot
	if b == nil {
		return nil
	}
	return func() tea.Msg {
		<-b.Updates()
		return botSignalMsg{src: b}
	}
}

func (m Model) bootstrapCmd() tea.Cmd {
	return func() tea.Msg {
		m.sess.Bootstrap(m.ctx)
		return bootstrapDoneMsg{}
	}
}

func (m *Model) pushToast(text string, isError bool) {
	m.toasts = append(m.toasts, toast{
		text:      text,
		isError:   isError,
		expiresAt: time.Now().Add(toastTTL),
	})
	if isError {
		modelLog.Warn(text)
	}
}

func (m *Model) expireToasts() {
	now := time.Now()
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if t.expiresAt.After(now) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

func clockTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return clockTickMsg(t)
	})
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

func (m Model) View() string {
	switch m.view {
	case viewLoading:
		return "会话恢复中..."
	case viewAuth:
		return m.auth.render(m.width)
	case viewPanel:
		return m.renderPanel()
	}
	return ""
}

func (m Model) renderPanel() string {
	availableWidth := m.width - 4
	if availableWidth < 100 {
		availableWidth = 100
	}
	leftWidth := availableWidth * 2 / 3
	rightWidth := availableWidth - leftWidth - 1

	left := renderCoinsTable(m.feed.Rows(), m.feed.ConnState(), leftWidth)

	var rightParts []string
	rightParts = append(rightParts, renderRunState(m.bot.RunState(), m.sess.Profile()))
	rightParts = append(rightParts, "")
	rightParts = append(rightParts, m.cfg.render(rightWidth, m.bot.Dirty()))
	rightParts = append(rightParts, "")
	if m.cfg.active {
		rightParts = append(rightParts, dimStyle.Render("↑↓ 选字段 · Ctrl+S 保存 · Esc 退出编辑"))
	} else {
		rightParts = append(rightParts, dimStyle.Render("E 编辑配置 · B 启停 · K API密钥 · L 登出 · Q 退出"))
	}
	right := strings.Join(rightParts, "\n")

	sections := []string{
		renderHeader(m.sess.Profile()),
		joinPanels(left, right, leftWidth, rightWidth),
	}
	if m.keyForm != nil {
		sections = append(sections, m.keyForm.render(leftWidth))
	}
	if ts := renderToasts(m.toasts); ts != "" {
		sections = append(sections, ts)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
