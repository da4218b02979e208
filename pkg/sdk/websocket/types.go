// Package websocket 提供行情推送流的 WebSocket 客户端
package websocket

import (
	"encoding/json"
	"time"
)

const (
	// MsgTypeCoinsUpdate 行情更新消息，data 为完整的合约集合（非增量）
	MsgTypeCoinsUpdate = "coins_update"

	defaultDialTimeout  = 10 * time.Second
	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 90 * time.Second
	defaultCloseTimeout = 5 * time.Second
)

// State 推送流连接状态
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Envelope 推送消息信封 {type, data}
// 未知 type 的消息由调用方忽略
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Config 客户端配置
type Config struct {
	DialTimeout  time.Duration
	PingInterval time.Duration
	PongTimeout  time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		DialTimeout:  defaultDialTimeout,
		PingInterval: defaultPingInterval,
		PongTimeout:  defaultPongTimeout,
	}
}
