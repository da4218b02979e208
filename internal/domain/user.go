package domain

import "time"

// Subscription 订阅状态（启动机器人需要有效订阅）
type Subscription struct {
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// UserProfile 用户资料
// 登录/注册响应只携带 user_id/email/name 子集，
// 完整字段来自 GET /api/user/profile
type UserProfile struct {
	UserID       string       `json:"user_id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	IsAdmin      bool         `json:"is_admin"`
	HasAPIKey    bool         `json:"has_api_key"`
	Subscription Subscription `json:"subscription"`
}
