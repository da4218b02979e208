package session

import (
	"context"
	"errors"
	"testing"

	"github.com/emabot/gopanel/internal/domain"
	"github.com/emabot/gopanel/pkg/sdk/api"
	"github.com/emabot/gopanel/pkg/secretstore"
)

// fakeAuthAPI 认证服务假实现
type fakeAuthAPI struct {
	loginResp    *api.AuthResponse
	loginErr     error
	registerResp *api.AuthResponse
	registerErr  error
	profileResp  *domain.UserProfile
	profileErr   error

	profileCalls int
}

func (f *fakeAuthAPI) Login(ctx context.Context, email, password string) (*api.AuthResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeAuthAPI) Register(ctx context.Context, name, email, password string) (*api.AuthResponse, error) {
	return f.registerResp, f.registerErr
}

func (f *fakeAuthAPI) Profile(ctx context.Context) (*domain.UserProfile, error) {
	f.profileCalls++
	return f.profileResp, f.profileErr
}

func newTestStore(t *testing.T) *TokenStore {
	t.Helper()
	s, err := secretstore.Open(secretstore.OpenOptions{InMemory: true})
	if err != nil {
		t.Fatalf("打开内存存储失败: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewTokenStore(s)
}

func authResp(token, id, name, email string) *api.AuthResponse {
	return &api.AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        domain.UserProfile{UserID: id, Name: name, Email: email},
	}
}

// TestManager_LoginSuccess 对应场景：登录成功后令牌、资料、状态全部就位
func TestManager_LoginSuccess(t *testing.T) {
	store := newTestStore(t)
	fake := &fakeAuthAPI{loginResp: authResp("T1", "1", "Ada", "a@b.com")}
	m := NewManager(store, fake)

	if err := m.Login(context.Background(), "a@b.com", "x"); err != nil {
		t.Fatalf("登录不应该失败: %v", err)
	}

	if m.State() != StateAuthenticated {
		t.Errorf("期望 AUTHENTICATED，得到 %s", m.State())
	}
	if m.Token() != "T1" {
		t.Errorf("期望令牌 T1，得到 %q", m.Token())
	}
	if stored, ok := store.Load(); !ok || stored != "T1" {
		t.Errorf("期望存储令牌 T1，得到 (%q, %v)", stored, ok)
	}
	if p := m.Profile(); p == nil || p.Name != "Ada" {
		t.Errorf("期望资料 Ada，得到 %+v", p)
	}
}

// TestManager_LoginFailure 测试失败登录不改变状态
func TestManager_LoginFailure(t *testing.T) {
	store := newTestStore(t)
	fake := &fakeAuthAPI{loginErr: &api.Error{Status: 401, Detail: "Invalid credentials"}}
	m := NewManager(store, fake)
	m.Bootstrap(context.Background()) // 无令牌 → UNAUTHENTICATED

	err := m.Login(context.Background(), "a@b.com", "wrong")
	if err == nil {
		t.Fatal("期望登录失败")
	}
	if api.UserDetail(err) != "Invalid credentials" {
		t.Errorf("应透出服务端 detail，得到 %q", api.UserDetail(err))
	}
	if m.State() != StateUnauthenticated {
		t.Errorf("失败登录后状态不应改变，得到 %s", m.State())
	}
	if m.Token() != "" {
		t.Errorf("失败登录不应设置令牌，得到 %q", m.Token())
	}
	if _, ok := store.Load(); ok {
		t.Error("失败登录不应持久化令牌")
	}
}

// TestManager_SuccessiveLogins 测试连续登录后只保留最近一次成功的凭据
func TestManager_SuccessiveLogins(t *testing.T) {
	store := newTestStore(t)
	fake := &fakeAuthAPI{loginResp: authResp("T1", "1", "Ada", "a@b.com")}
	m := NewManager(store, fake)

	if err := m.Login(context.Background(), "a@b.com", "x"); err != nil {
		t.Fatal(err)
	}
	fake.loginResp = authResp("T2", "2", "Bob", "b@c.com")
	if err := m.Login(context.Background(), "b@c.com", "y"); err != nil {
		t.Fatal(err)
	}

	if m.Token() != "T2" {
		t.Errorf("期望最近一次成功的令牌 T2，得到 %q", m.Token())
	}
	if stored, _ := store.Load(); stored != "T2" {
		t.Errorf("存储应反映最近一次成功，得到 %q", stored)
	}
	if p := m.Profile(); p == nil || p.Name != "Bob" {
		t.Errorf("成功后应只持有一份最新资料，得到 %+v", p)
	}
}

// TestManager_BootstrapNoToken 测试无令牌启动不发起网络调用
func TestManager_BootstrapNoToken(t *testing.T) {
	store := newTestStore(t)
	fake := &fakeAuthAPI{}
	m := NewManager(store, fake)

	if m.State() != StateInitializing {
		t.Errorf("初始状态应为 INITIALIZING，得到 %s", m.State())
	}
	m.Bootstrap(context.Background())
	if m.State() != StateUnauthenticated {
		t.Errorf("无令牌启动应进入 UNAUTHENTICATED，得到 %s", m.State())
	}
	if fake.profileCalls != 0 {
		t.Errorf("无令牌时不应调用 Profile，调用了 %d 次", fake.profileCalls)
	}
}

// TestManager_BootstrapValidToken 测试有效令牌恢复会话
func TestManager_BootstrapValidToken(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("T1"); err != nil {
		t.Fatal(err)
	}
	fake := &fakeAuthAPI{profileResp: &domain.UserProfile{UserID: "1", Name: "Ada", Email: "a@b.com"}}
	m := NewManager(store, fake)

	m.Bootstrap(context.Background())
	if m.State() != StateAuthenticated {
		t.Errorf("期望 AUTHENTICATED，得到 %s", m.State())
	}
	if m.Token() != "T1" {
		t.Errorf("期望令牌 T1，得到 %q", m.Token())
	}
}

// TestManager_BootstrapStaleToken 测试失效令牌静默登出并清存储
func TestManager_BootstrapStaleToken(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("STALE"); err != nil {
		t.Fatal(err)
	}
	fake := &fakeAuthAPI{profileErr: &api.Error{Status: 401, Detail: "Invalid token"}}
	m := NewManager(store, fake)

	m.Bootstrap(context.Background())
	if m.State() != StateUnauthenticated {
		t.Errorf("失效令牌应进入 UNAUTHENTICATED，得到 %s", m.State())
	}
	if m.Token() != "" {
		t.Errorf("失效令牌应被清除，得到 %q", m.Token())
	}
	if _, ok := store.Load(); ok {
		t.Error("失效令牌应从存储中删除")
	}
}

// TestManager_BootstrapNetworkError 测试网络错误同样按令牌失效处理
func TestManager_BootstrapNetworkError(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("T1"); err != nil {
		t.Fatal(err)
	}
	fake := &fakeAuthAPI{profileErr: errors.New("connection refused")}
	m := NewManager(store, fake)

	m.Bootstrap(context.Background())
	if m.State() != StateUnauthenticated {
		t.Errorf("网络错误也应进入 UNAUTHENTICATED，得到 %s", m.State())
	}
	if _, ok := store.Load(); ok {
		t.Error("这一层无法区分过期与断网，令牌应被清除")
	}
}

// TestManager_LogoutIdempotent 测试登出幂等：令牌、附加、资料全部清空
func TestManager_LogoutIdempotent(t *testing.T) {
	store := newTestStore(t)
	fake := &fakeAuthAPI{loginResp: authResp("T1", "1", "Ada", "a@b.com")}
	m := NewManager(store, fake)

	if err := m.Login(context.Background(), "a@b.com", "x"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		m.Logout()
		if m.State() != StateUnauthenticated {
			t.Errorf("第 %d 次登出后状态应为 UNAUTHENTICATED，得到 %s", i+1, m.State())
		}
		if m.Token() != "" {
			t.Errorf("第 %d 次登出后令牌应为空", i+1)
		}
		if m.Profile() != nil {
			t.Errorf("第 %d 次登出后资料应为空", i+1)
		}
		if _, ok := store.Load(); ok {
			t.Errorf("第 %d 次登出后存储令牌应不存在", i+1)
		}
	}
}

// TestManager_RegisterSuccess 测试注册与登录进入同一状态
func TestManager_RegisterSuccess(t *testing.T) {
	store := newTestStore(t)
	fake := &fakeAuthAPI{registerResp: authResp("T9", "9", "New", "n@b.com")}
	m := NewManager(store, fake)

	if err := m.Register(context.Background(), "New", "n@b.com", "pw"); err != nil {
		t.Fatalf("注册不应该失败: %v", err)
	}
	if m.State() != StateAuthenticated {
		t.Errorf("注册成功应进入 AUTHENTICATED，得到 %s", m.State())
	}
	if m.Token() != "T9" {
		t.Errorf("期望令牌 T9，得到 %q", m.Token())
	}
}
