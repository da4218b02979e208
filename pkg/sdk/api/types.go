package api

import (
	"fmt"

	"github.com/emabot/gopanel/internal/domain"
)

// REST 端点路径
const (
	EndpointHealth    = "/api/health"
	EndpointLogin     = "/api/login"
	EndpointRegister  = "/api/register"
	EndpointProfile   = "/api/user/profile"
	EndpointAPIKey    = "/api/user/api-key"
	EndpointCoins     = "/api/coins"
	EndpointBotConfig = "/api/bot/config"
	EndpointBotStart  = "/api/bot/start"
	EndpointBotStop   = "/api/bot/stop"
)

// LoginRequest 登录请求体
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest 注册请求体
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse 登录/注册响应
type AuthResponse struct {
	AccessToken string             `json:"access_token"`
	TokenType   string             `json:"token_type"`
	User        domain.UserProfile `json:"user"`
}

// CoinsResponse GET /api/coins 响应
// Timestamp 保留为字符串：后端序列化不带时区偏移，不强行解析
type CoinsResponse struct {
	Coins     []domain.CoinTicker `json:"coins"`
	Timestamp string              `json:"timestamp"`
}

// AckResponse 仅携带提示消息的确认响应
type AckResponse struct {
	Message string `json:"message"`
}

// HealthResponse GET /api/health 响应
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// APIKeyUpdateRequest 更新交易所 API 密钥请求体
type APIKeyUpdateRequest struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// Error 服务端返回的结构化错误
// Detail 是服务端提供的人类可读消息，适合直接作为通知展示
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Detail)
}

// IsUnauthorized err 是否为 401 服务端错误
func IsUnauthorized(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Status == 401
	}
	return false
}

// UserDetail 提取服务端提示消息；非服务端错误返回空串
// 调用方在为空时应使用通用兜底文案
func UserDetail(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Detail
	}
	return ""
}
