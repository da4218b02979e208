package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "ws")

// MessageHandler 处理一条已解析的推送消息信封
// 回调在读取 goroutine 上串行执行，不要在里面做耗时操作
type MessageHandler func(env Envelope)

// StateHandler 连接状态变化回调
type StateHandler func(state State)

// Client 推送流客户端
// 生命周期由挂载方控制：Connect 打开，Close 确定性关闭；
// 本层不做自动重连，连接断开只会把状态置为 CLOSED
type Client struct {
	url     string
	config  *Config
	handler MessageHandler
	onState StateHandler

	conn   *websocket.Conn
	connMu sync.Mutex

	state int32 // atomic State

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
	started   bool
	startedMu sync.Mutex
}

// NewClient 创建新的推送流客户端
func NewClient(url string, handler MessageHandler, onState StateHandler) *Client {
	return NewClientWithConfig(url, handler, onState, DefaultConfig())
}

// NewClientWithConfig 使用自定义配置创建客户端
func NewClientWithConfig(url string, handler MessageHandler, onState StateHandler, config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	return &Client{
		url:     url,
		config:  config,
		handler: handler,
		onState: onState,
		state:   int32(StateConnecting),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// State 当前连接状态
func (c *Client) State() State {
	return State(atomic.LoadInt32(&c.state))
}

func (c *Client) setState(s State) {
	old := State(atomic.SwapInt32(&c.state, int32(s)))
	if old != s && c.onState != nil {
		c.onState(s)
	}
}

// Connect 建立连接并开始读取
func (c *Client) Connect(ctx context.Context) error {
	c.startedMu.Lock()
	if c.started {
		c.startedMu.Unlock()
		return fmt.Errorf("推送流客户端已启动")
	}
	c.started = true
	c.startedMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: c.config.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.setState(StateClosed)
		close(c.doneCh)
		return fmt.Errorf("连接推送流失败 %s: %w", c.url, err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout))
	})
	_ = conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout))

	c.setState(StateOpen)
	log.Infof("推送流已连接: %s", c.url)

	go c.readLoop()
	go c.pingLoop()
	return nil
}

// readLoop 读取并分发消息，连接断开时退出并把状态置为 CLOSED
func (c *Client) readLoop() {
	defer close(c.doneCh)
	defer c.setState(StateClosed)

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stopCh:
				// 主动关闭，息事宁人
			default:
				log.Warnf("推送流读取中断: %v", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// 坏消息当噪声丢弃，绝不拆连接
			log.Debugf("丢弃无法解析的推送消息: %v", err)
			continue
		}

		// 分发前再次确认未关闭，保证 Close 返回后不再有回调
		select {
		case <-c.stopCh:
			return
		default:
		}
		if c.handler != nil {
			c.handler(env)
		}
	}
}

// pingLoop 周期性发送 ping，配合读超时探测死连接
func (c *Client) pingLoop() {
	if c.config.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-c.doneCh:
			return
		case <-ticker.C:
			c.connMu.Lock()
			conn := c.conn
			c.connMu.Unlock()
			if conn == nil {
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

// Close 确定性关闭连接
// 返回后保证：状态为 CLOSED，且不会再有任何消息回调
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCh)

		c.startedMu.Lock()
		started := c.started
		c.startedMu.Unlock()
		if !started {
			c.setState(StateClosed)
			return
		}

		c.connMu.Lock()
		if c.conn != nil {
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = c.conn.Close()
		}
		c.connMu.Unlock()

		select {
		case <-c.doneCh:
		case <-time.After(defaultCloseTimeout):
			log.Warnf("推送流关闭等待超时")
		}
		c.setState(StateClosed)
	})
}
