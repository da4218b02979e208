package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emabot/gopanel/internal/domain"
)

func testBotConfig() domain.BotConfig {
	return domain.DefaultBotConfig()
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client, *string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	token := ""
	client := NewClient(srv.URL, func() string { return token })
	return srv, client, &token
}

// TestClient_Login 测试登录请求与响应解析
func TestClient_Login(t *testing.T) {
	_, client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, EndpointLogin, r.URL.Path)

		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "a@b.com", req.Email)
		require.Equal(t, "x", req.Password)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "T1",
			"token_type": "bearer",
			"user": {"user_id": "1", "name": "Ada", "email": "a@b.com"}
		}`))
	})

	resp, err := client.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	assert.Equal(t, "T1", resp.AccessToken)
	assert.Equal(t, "Ada", resp.User.Name)
}

// TestClient_LoginFailure 测试服务端拒绝时透出 detail
func TestClient_LoginFailure(t *testing.T) {
	_, client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "Invalid credentials"}`))
	})

	_, err := client.Login(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Invalid credentials", UserDetail(err))
}

// TestClient_BearerHeader 测试受保护请求携带 Bearer 头
func TestClient_BearerHeader(t *testing.T) {
	var gotAuth string
	_, client, token := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user_id":"1","name":"Ada","email":"a@b.com"}`))
	})

	*token = "T1"
	_, err := client.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer T1", gotAuth)

	// 令牌清空后不再携带
	*token = ""
	_, err = client.Profile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

// TestClient_Coins 测试行情快照解析（含指标缺失）
func TestClient_Coins(t *testing.T) {
	_, client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"coins": [
			{"symbol":"BTCUSDT","price":65000,"change_24h":2.5,"volume_24h":100,"ema9":64900.5,"ema21":64800.1,"signal":"BUY"},
			{"symbol":"ETHUSDT","price":3000,"change_24h":-1.2,"volume_24h":50}
		]}`))
	})

	resp, err := client.Coins(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Coins, 2)

	btc := resp.Coins[0]
	assert.Equal(t, "BTCUSDT", btc.Symbol)
	assert.Equal(t, "65000", btc.Price.String())
	assert.True(t, btc.HasIndicators())

	eth := resp.Coins[1]
	assert.False(t, eth.HasIndicators(), "缺失的 EMA 应该解析为 nil")
}

// TestClient_SaveBotConfig 测试配置保存失败时的错误转换
func TestClient_SaveBotConfig(t *testing.T) {
	_, client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail": "leverage out of range"}`))
	})

	cfg := testBotConfig()
	err := client.SaveBotConfig(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, "leverage out of range", UserDetail(err))
	assert.False(t, IsUnauthorized(err))
}
