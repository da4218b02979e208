package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// TokenProvider 返回当前的 bearer 令牌，为空表示未登录
// 令牌只由会话管理器写入，这里只读——共享凭据的单写者约定
type TokenProvider func() string

// Client resty 的薄封装，负责基础地址、超时重试和鉴权头注入
type Client struct {
	client *resty.Client
	token  TokenProvider
}

// NewClient 创建新的 HTTP 客户端
func NewClient(host string, token TokenProvider) *Client {
	host = strings.TrimSuffix(host, "/")

	// resty 会自动从环境变量读取代理配置（HTTP_PROXY, HTTPS_PROXY）
	client := resty.New().
		SetBaseURL(host).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second)

	return &Client{client: client, token: token}
}

// RequestOptions 单次请求选项
type RequestOptions struct {
	Headers map[string]string
	Data    any
	Params  map[string]string
}

func (c *Client) newRequest(ctx context.Context) *resty.Request {
	r := c.client.R()
	if ctx != nil {
		r.SetContext(ctx)
	}
	r.SetHeader("Accept", "application/json")
	r.SetHeader("User-Agent", "gopanel-sdk")
	if c.token != nil {
		if t := c.token(); t != "" {
			r.SetHeader("Authorization", "Bearer "+t)
		}
	}
	return r
}

// DoRequest 执行请求，out 非空时将 2xx 响应体反序列化进去
func (c *Client) DoRequest(ctx context.Context, method, endpoint string, opt *RequestOptions, out any) (*resty.Response, error) {
	rc := c.newRequest(ctx)
	if opt != nil {
		for k, v := range opt.Headers {
			rc.SetHeader(k, v)
		}
		if opt.Params != nil {
			rc.SetQueryParams(opt.Params)
		}
		if opt.Data != nil {
			rc.SetHeader("Content-Type", "application/json")
			rc.SetBody(opt.Data)
		}
	}
	if out != nil {
		rc.SetResult(out)
	}

	switch strings.ToUpper(method) {
	case http.MethodGet:
		return rc.Get(endpoint)
	case http.MethodPost:
		return rc.Post(endpoint)
	case http.MethodPut:
		return rc.Put(endpoint)
	case http.MethodDelete:
		return rc.Delete(endpoint)
	default:
		return nil, fmt.Errorf("unsupported method: %s", method)
	}
}

// serviceError 服务端错误响应体（FastAPI 风格 {"detail": "..."}，
// 兼容 {"message": ...} 与 {"error": ...}）
type serviceError struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Err     string `json:"error"`
}

// ParseError 把非 2xx 响应转换成带服务端提示的错误
// 返回 (detail, err)：detail 适合直接展示给用户
func ParseError(resp *resty.Response, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("http: nil response")
	}
	if resp.IsSuccess() {
		return "", nil
	}
	var se serviceError
	_ = json.Unmarshal(resp.Body(), &se)
	detail := se.Detail
	if detail == "" {
		detail = se.Message
	}
	if detail == "" {
		detail = se.Err
	}
	if detail == "" {
		detail = strings.TrimSpace(string(resp.Body()))
	}
	if detail == "" {
		detail = resp.Status()
	}
	return detail, errors.Errorf("http %d: %s", resp.StatusCode(), detail)
}

// IsUnauthorized 是否为 401 响应
func IsUnauthorized(resp *resty.Response) bool {
	return resp != nil && resp.StatusCode() == http.StatusUnauthorized
}
