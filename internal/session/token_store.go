package session

import (
	"path/filepath"

	"github.com/emabot/gopanel/pkg/logger"
	"github.com/emabot/gopanel/pkg/secretstore"
)

const tokenKey = "auth_token"

// TokenStore 持久化 bearer 令牌（跨进程重启保留）
// 不做任何令牌形状或有效期校验：有效性只由下一次鉴权请求的结果决定
type TokenStore struct {
	store *secretstore.Store
}

// NewTokenStore 使用已打开的存储创建 TokenStore
func NewTokenStore(store *secretstore.Store) *TokenStore {
	return &TokenStore{store: store}
}

// OpenTokenStore 在数据目录下打开令牌存储
func OpenTokenStore(dataDir string) (*TokenStore, error) {
	s, err := secretstore.Open(secretstore.OpenOptions{
		Path: filepath.Join(dataDir, "tokenstore"),
	})
	if err != nil {
		return nil, err
	}
	return &TokenStore{store: s}, nil
}

// Save 保存令牌
func (t *TokenStore) Save(token string) error {
	return t.store.SetString(tokenKey, token)
}

// Load 读取令牌，第二个返回值表示是否存在
// 读取出错按不存在处理：宁可要求重新登录，也不要带着坏状态继续
func (t *TokenStore) Load() (string, bool) {
	v, ok, err := t.store.GetString(tokenKey)
	if err != nil {
		logger.Warnf("读取令牌存储失败: %v", err)
		return "", false
	}
	if v == "" {
		return "", false
	}
	return v, ok
}

// Clear 删除令牌（幂等）
func (t *TokenStore) Clear() error {
	return t.store.Delete(tokenKey)
}

// Close 关闭底层存储
func (t *TokenStore) Close() error {
	return t.store.Close()
}
