package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/emabot/gopanel/pkg/config"
)

func newTestServer(t *testing.T, grantSub bool) (*Server, http.Handler) {
	t.Helper()
	cfg := config.ServerConfig{
		ListenAddr:        ":0",
		DBPath:            filepath.Join(t.TempDir(), "test.db"),
		JWTSecret:         "test_secret",
		TokenTTL:          time.Hour,
		PushInterval:      time.Minute,
		GrantSubscription: grantSub,
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("创建服务端失败: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, s.Router()
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("编码请求体失败: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("解析响应失败: %v (body=%s)", err, w.Body.String())
	}
	return out
}

// registerUser 注册并返回令牌
func registerUser(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/register", "", map[string]string{
		"name": "Ada", "email": email, "password": "secret123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("注册失败: %d %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatal("注册响应缺少令牌")
	}
	return token
}

func TestHealth(t *testing.T) {
	_, router := newTestServer(t, true)
	w := doJSON(t, router, http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，得到 %d", w.Code)
	}
	if decodeBody(t, w)["status"] != "healthy" {
		t.Error("期望 status=healthy")
	}
}

func TestRegisterAndLogin(t *testing.T) {
	_, router := newTestServer(t, true)
	registerUser(t, router, "a@b.com")

	// 重复注册被拒
	w := doJSON(t, router, http.MethodPost, "/api/register", "", map[string]string{
		"name": "Ada", "email": "a@b.com", "password": "secret123",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("重复注册期望 400，得到 %d", w.Code)
	}

	// 正确密码登录
	w = doJSON(t, router, http.MethodPost, "/api/login", "", map[string]string{
		"email": "a@b.com", "password": "secret123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("登录期望 200，得到 %d %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["token_type"] != "bearer" {
		t.Errorf("期望 token_type=bearer，得到 %v", body["token_type"])
	}
	user, _ := body["user"].(map[string]any)
	if user == nil || user["email"] != "a@b.com" || user["name"] != "Ada" {
		t.Errorf("用户资料不对: %v", body["user"])
	}

	// 错误密码
	w = doJSON(t, router, http.MethodPost, "/api/login", "", map[string]string{
		"email": "a@b.com", "password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("错误密码期望 401，得到 %d", w.Code)
	}
	if decodeBody(t, w)["detail"] != "Invalid credentials" {
		t.Error("期望 detail=Invalid credentials")
	}
}

func TestProfileRequiresAuth(t *testing.T) {
	_, router := newTestServer(t, true)

	w := doJSON(t, router, http.MethodGet, "/api/user/profile", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("无令牌期望 401，得到 %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/user/profile", "garbage", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("坏令牌期望 401，得到 %d", w.Code)
	}

	token := registerUser(t, router, "a@b.com")
	w = doJSON(t, router, http.MethodGet, "/api/user/profile", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，得到 %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["has_api_key"] != false {
		t.Error("新用户不应有 API Key")
	}
	sub, _ := body["subscription"].(map[string]any)
	if sub == nil || sub["is_active"] != true {
		t.Errorf("期望订阅有效: %v", body["subscription"])
	}
}

func TestUpdateAPIKey(t *testing.T) {
	_, router := newTestServer(t, true)
	token := registerUser(t, router, "a@b.com")

	w := doJSON(t, router, http.MethodPut, "/api/user/api-key", token, map[string]string{
		"api_key": "K", "api_secret": "S",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，得到 %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/user/profile", token, nil)
	if decodeBody(t, w)["has_api_key"] != true {
		t.Error("更新后 has_api_key 应为 true")
	}

	// 缺字段被拒
	w = doJSON(t, router, http.MethodPut, "/api/user/api-key", token, map[string]string{
		"api_key": "K",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("缺 secret 期望 400，得到 %d", w.Code)
	}
}

func TestBotConfigRoundTrip(t *testing.T) {
	_, router := newTestServer(t, true)
	token := registerUser(t, router, "a@b.com")

	// 没保存过时返回默认配置
	w := doJSON(t, router, http.MethodGet, "/api/bot/config", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，得到 %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["symbol"] != "BTCUSDT" || body["timeframe"] != "1m" {
		t.Errorf("期望默认配置: %v", body)
	}

	// 保存新配置
	w = doJSON(t, router, http.MethodPut, "/api/bot/config", token, map[string]any{
		"symbol": "ETHUSDT", "timeframe": "5m", "leverage": 10,
		"take_profit": "3.5", "stop_loss": "1.5", "position_size": "25",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("保存期望 200，得到 %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/bot/config", token, nil)
	body = decodeBody(t, w)
	if body["symbol"] != "ETHUSDT" || body["timeframe"] != "5m" {
		t.Errorf("配置没存进去: %v", body)
	}

	// 非法杠杆被拒且不改动已存配置
	w = doJSON(t, router, http.MethodPut, "/api/bot/config", token, map[string]any{
		"symbol": "ETHUSDT", "timeframe": "5m", "leverage": 500,
		"take_profit": "3.5", "stop_loss": "1.5", "position_size": "25",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法杠杆期望 400，得到 %d", w.Code)
	}
	if decodeBody(t, w)["detail"] == "" {
		t.Error("期望有 detail 错误信息")
	}
	w = doJSON(t, router, http.MethodGet, "/api/bot/config", token, nil)
	if decodeBody(t, w)["symbol"] != "ETHUSDT" {
		t.Error("被拒的保存不应改动已存配置")
	}
}

func TestStartStopBot(t *testing.T) {
	_, router := newTestServer(t, true)
	token := registerUser(t, router, "a@b.com")

	w := doJSON(t, router, http.MethodPost, "/api/bot/start", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("启动期望 200，得到 %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodGet, "/api/bot/config", token, nil)
	if decodeBody(t, w)["is_active"] != true {
		t.Error("启动后 is_active 应为 true")
	}

	w = doJSON(t, router, http.MethodPost, "/api/bot/stop", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("停止期望 200，得到 %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/bot/config", token, nil)
	if decodeBody(t, w)["is_active"] != false {
		t.Error("停止后 is_active 应为 false")
	}
}

// 订阅未激活时启动被 403 拒绝
func TestStartBotRequiresSubscription(t *testing.T) {
	_, router := newTestServer(t, false)
	token := registerUser(t, router, "a@b.com")

	w := doJSON(t, router, http.MethodPost, "/api/bot/start", token, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("期望 403，得到 %d", w.Code)
	}
	if decodeBody(t, w)["detail"] != "Active subscription required" {
		t.Errorf("期望订阅错误信息，得到 %s", w.Body.String())
	}
	// 停止不要求订阅
	w = doJSON(t, router, http.MethodPost, "/api/bot/stop", token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("停止期望 200，得到 %d", w.Code)
	}
}

func TestCoinsSnapshot(t *testing.T) {
	_, router := newTestServer(t, true)
	w := doJSON(t, router, http.MethodGet, "/api/coins", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，得到 %d", w.Code)
	}
	body := decodeBody(t, w)
	coins, _ := body["coins"].([]any)
	if len(coins) != len(watchSymbols) {
		t.Fatalf("期望 %d 个合约，得到 %d", len(watchSymbols), len(coins))
	}
	first, _ := coins[0].(map[string]any)
	if first["symbol"] == "" || first["signal"] == "" {
		t.Errorf("合约行缺字段: %v", first)
	}
}
