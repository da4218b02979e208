// Package session 管理认证状态机与令牌生命周期
package session

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/emabot/gopanel/internal/domain"
	"github.com/emabot/gopanel/pkg/sdk/api"
)

var sessionLog = logrus.WithField("component", "session")

// AuthState 会话状态
type AuthState int

const (
	// StateInitializing 第一次 profile 刷新尚未完成，界面既不渲染面板也不渲染登录表单
	StateInitializing AuthState = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	default:
		return "UNKNOWN"
	}
}

// AuthAPI 认证服务接口（由 pkg/sdk/api.Client 实现）
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*api.AuthResponse, error)
	Profile(ctx context.Context) (*domain.UserProfile, error)
}

// Manager 会话管理器
// 共享凭据的唯一写者：其它组件通过 Token() 只读取当前令牌。
// 同一会话的登录/登出操作由离散的用户动作触发，不期望并发执行；
// 登录尚未返回时发起登出是一个已接受的竞态，结果以后完成者为准。
type Manager struct {
	mu      sync.RWMutex
	state   AuthState
	token   string
	profile *domain.UserProfile

	store *TokenStore
	api   AuthAPI
}

// NewManager 创建新的会话管理器，初始状态为 INITIALIZING
func NewManager(store *TokenStore, authAPI AuthAPI) *Manager {
	return &Manager{
		state: StateInitializing,
		store: store,
		api:   authAPI,
	}
}

// State 当前会话状态
func (m *Manager) State() AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Token 当前令牌（供 HTTP 客户端的 TokenProvider 读取），为空表示未登录
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Profile 当前用户资料，未登录时为 nil
func (m *Manager) Profile() *domain.UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile
}

// Bootstrap 启动时恢复会话
// 有存储令牌则附加后尝试拉取资料；任何失败（包括网络错误）都视为
// 令牌失效：清除存储并静默进入 UNAUTHENTICATED——这一层无法区分
// 令牌过期和网络不可达，调用方必须接受该简化
func (m *Manager) Bootstrap(ctx context.Context) {
	token, ok := m.store.Load()
	if !ok {
		m.mu.Lock()
		m.state = StateUnauthenticated
		m.mu.Unlock()
		sessionLog.Debug("无存储令牌，进入未登录状态")
		return
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	profile, err := m.api.Profile(ctx)
	if err != nil {
		sessionLog.Infof("启动时资料刷新失败，按令牌失效处理: %v", err)
		if cerr := m.store.Clear(); cerr != nil {
			sessionLog.Warnf("清除失效令牌失败: %v", cerr)
		}
		m.mu.Lock()
		m.token = ""
		m.profile = nil
		m.state = StateUnauthenticated
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	m.profile = profile
	m.state = StateAuthenticated
	m.mu.Unlock()
	sessionLog.Infof("会话已恢复: %s", profile.Email)
}

// Login 登录，失败时状态不变且不重试
// 返回的错误可用 api.UserDetail 提取服务端提示
func (m *Manager) Login(ctx context.Context, email, password string) error {
	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		sessionLog.Infof("登录失败: %v", err)
		return err
	}
	m.establish(resp)
	sessionLog.Infof("登录成功: %s", resp.User.Email)
	return nil
}

// Register 注册，成功后与登录进入同一已认证状态
func (m *Manager) Register(ctx context.Context, name, email, password string) error {
	resp, err := m.api.Register(ctx, name, email, password)
	if err != nil {
		sessionLog.Infof("注册失败: %v", err)
		return err
	}
	m.establish(resp)
	sessionLog.Infof("注册成功: %s", resp.User.Email)
	return nil
}

// establish 以一次成功的认证响应建立会话
func (m *Manager) establish(resp *api.AuthResponse) {
	if err := m.store.Save(resp.AccessToken); err != nil {
		// 持久化失败不影响本次会话，只是下次启动需要重新登录
		sessionLog.Warnf("令牌持久化失败: %v", err)
	}
	profile := resp.User
	m.mu.Lock()
	m.token = resp.AccessToken
	m.profile = &profile
	m.state = StateAuthenticated
	m.mu.Unlock()
}

// Logout 本地登出：清令牌、清资料、进入未登录态
// 不等待任何服务端往返，重复调用幂等
func (m *Manager) Logout() {
	if err := m.store.Clear(); err != nil {
		sessionLog.Warnf("清除令牌存储失败: %v", err)
	}
	m.mu.Lock()
	m.token = ""
	m.profile = nil
	m.state = StateUnauthenticated
	m.mu.Unlock()
	sessionLog.Info("已登出")
}

// RefreshProfile 已认证状态下刷新资料；失败等同于令牌失效，触发登出
func (m *Manager) RefreshProfile(ctx context.Context) error {
	profile, err := m.api.Profile(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			sessionLog.Info("资料刷新返回 401，会话失效")
			m.Logout()
		}
		return err
	}
	m.mu.Lock()
	m.profile = profile
	m.mu.Unlock()
	return nil
}
