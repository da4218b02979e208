// Package api 提供机器人面板后端的类型化 REST 客户端
package api

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/emabot/gopanel/internal/domain"
	sdkhttp "github.com/emabot/gopanel/pkg/sdk/http"
)

// Client 类型化 REST 客户端
type Client struct {
	http *sdkhttp.Client
}

// NewClient 创建新的客户端
// token 为鉴权令牌提供方（只读），受保护端点会自动携带 Bearer 头
func NewClient(baseURL string, token sdkhttp.TokenProvider) *Client {
	return &Client{
		http: sdkhttp.NewClient(baseURL, token),
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var opt *sdkhttp.RequestOptions
	if body != nil {
		opt = &sdkhttp.RequestOptions{Data: body}
	}
	resp, err := c.http.DoRequest(ctx, method, endpoint, opt, out)
	if err != nil {
		return err
	}
	return asAPIError(resp)
}

func asAPIError(resp *resty.Response) error {
	if resp == nil || resp.IsSuccess() {
		return nil
	}
	detail, _ := sdkhttp.ParseError(resp, nil)
	return &Error{Status: resp.StatusCode(), Detail: detail}
}

// Health 健康检查（无需鉴权）
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, EndpointHealth, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login 登录
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	req := LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, EndpointLogin, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register 注册
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	req := RegisterRequest{Name: name, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, EndpointRegister, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile 获取当前用户资料（鉴权）
func (c *Client) Profile(ctx context.Context) (*domain.UserProfile, error) {
	var out domain.UserProfile
	if err := c.do(ctx, http.MethodGet, EndpointProfile, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAPIKey 更新交易所 API 密钥（鉴权）
func (c *Client) UpdateAPIKey(ctx context.Context, apiKey, apiSecret string) error {
	req := APIKeyUpdateRequest{APIKey: apiKey, APISecret: apiSecret}
	return c.do(ctx, http.MethodPut, EndpointAPIKey, req, nil)
}

// Coins 获取行情快照
func (c *Client) Coins(ctx context.Context) (*CoinsResponse, error) {
	var out CoinsResponse
	if err := c.do(ctx, http.MethodGet, EndpointCoins, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BotConfig 获取机器人配置（鉴权）
func (c *Client) BotConfig(ctx context.Context) (*domain.BotConfig, error) {
	var out domain.BotConfig
	if err := c.do(ctx, http.MethodGet, EndpointBotConfig, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveBotConfig 全量替换机器人配置（鉴权）
func (c *Client) SaveBotConfig(ctx context.Context, cfg domain.BotConfig) error {
	return c.do(ctx, http.MethodPut, EndpointBotConfig, cfg, nil)
}

// StartBot 启动机器人（鉴权）
func (c *Client) StartBot(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, EndpointBotStart, nil, nil)
}

// StopBot 停止机器人（鉴权）
func (c *Client) StopBot(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, EndpointBotStop, nil, nil)
}
