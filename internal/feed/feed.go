// Package feed 把一次性 REST 快照和推送流更新调和成单一的行情视图
package feed

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/emabot/gopanel/internal/domain"
	"github.com/emabot/gopanel/pkg/sdk/api"
	ws "github.com/emabot/gopanel/pkg/sdk/websocket"
	"github.com/emabot/gopanel/pkg/sigchan"
)

var log = logrus.WithField("component", "feed")

// CoinsAPI 行情快照接口（由 pkg/sdk/api.Client 实现）
type CoinsAPI interface {
	Coins(ctx context.Context) (*api.CoinsResponse, error)
}

// Stream 推送流接口（由 pkg/sdk/websocket.Client 实现）
type Stream interface {
	Connect(ctx context.Context) error
	Close()
	State() ws.State
}

// StreamFactory 构造推送流客户端；Feed 把自己的消息/状态回调注入进去
type StreamFactory func(handler ws.MessageHandler, onState ws.StateHandler) Stream

// Feed 行情数据源
//
// 调和规则：整集合粒度的 last-writer-wins——每次被接受的更新（REST 或
// 推送）整体替换合约集合，绝不做字段级合并，避免价格来自一个源、信号
// 来自另一个源的部分陈旧。每次接受的更新携带客户端单调 revision，
// 在更新到达之后才完成的 REST 响应会被拒绝，不会用旧数据覆盖新数据。
type Feed struct {
	coinsAPI  CoinsAPI
	newStream StreamFactory

	mu        sync.RWMutex
	rows      []domain.CoinTicker // 按 symbol 稳定排序
	revision  uint64              // 每次接受的更新递增
	connState ws.State
	closed    bool

	stream    Stream
	updates   *sigchan.Chan
	closeOnce sync.Once
}

// New 创建新的行情数据源
func New(coinsAPI CoinsAPI, factory StreamFactory) *Feed {
	return &Feed{
		coinsAPI:  coinsAPI,
		newStream: factory,
		connState: ws.StateConnecting,
		updates:   sigchan.New(1),
	}
}

// Open 挂载：并发发起一次 REST 快照拉取并打开推送流
// 两个数据源相互独立：快照失败不影响推送流，推送流连不上也不影响快照
func (f *Feed) Open(ctx context.Context) {
	go f.fetchSnapshot(ctx)

	f.stream = f.newStream(f.onMessage, f.onStreamState)
	if err := f.stream.Connect(ctx); err != nil {
		log.Warnf("推送流连接失败: %v", err)
		f.setConnState(ws.StateClosed)
	}
}

// fetchSnapshot 拉取一次 REST 快照
func (f *Feed) fetchSnapshot(ctx context.Context) {
	f.mu.RLock()
	rev := f.revision
	f.mu.RUnlock()

	resp, err := f.coinsAPI.Coins(ctx)
	if err != nil {
		log.Warnf("行情快照拉取失败: %v", err)
		return
	}
	f.apply(resp.Coins, &rev)
}

// onMessage 推送流消息回调
func (f *Feed) onMessage(env ws.Envelope) {
	if env.Type != ws.MsgTypeCoinsUpdate {
		// 其它消息类型不归这个组件管
		return
	}
	var coins []domain.CoinTicker
	if err := json.Unmarshal(env.Data, &coins); err != nil {
		log.Debugf("丢弃无法解析的 coins_update: %v", err)
		return
	}
	// 推送消息总是最新的，无条件接受
	f.apply(coins, nil)
}

// apply 接受一次更新并整体替换集合
// baseRev 非 nil 时为条件接受：更新发起后若已有其它更新被接受则丢弃
// 本次（防止慢 REST 响应复活旧数据）；推送更新传 nil 无条件接受
func (f *Feed) apply(coins []domain.CoinTicker, baseRev *uint64) {
	rows := make([]domain.CoinTicker, len(coins))
	copy(rows, coins)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Symbol < rows[j].Symbol
	})

	f.mu.Lock()
	if f.closed {
		// 卸载之后到达的响应安全忽略
		f.mu.Unlock()
		return
	}
	if baseRev != nil && f.revision != *baseRev {
		f.mu.Unlock()
		log.Debugf("丢弃过期快照（rev %d != %d）", *baseRev, f.revision)
		return
	}
	f.rows = rows
	f.revision++
	f.mu.Unlock()

	f.updates.Emit()
}

// onStreamState 推送流状态回调
func (f *Feed) onStreamState(s ws.State) {
	f.setConnState(s)
}

func (f *Feed) setConnState(s ws.State) {
	f.mu.Lock()
	if f.closed && s != ws.StateClosed {
		f.mu.Unlock()
		return
	}
	f.connState = s
	f.mu.Unlock()
	f.updates.Emit()
}

// Rows 当前合约集合（按 symbol 排序的副本）
func (f *Feed) Rows() []domain.CoinTicker {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]domain.CoinTicker, len(f.rows))
	copy(out, f.rows)
	return out
}

// Revision 当前集合的修订号（接受过多少次更新）
func (f *Feed) Revision() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.revision
}

// ConnState 推送流连接状态
func (f *Feed) ConnState() ws.State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connState
}

// Updates 合并后的更新信号（集合或连接状态变化时触发，用于界面重绘）
func (f *Feed) Updates() <-chan struct{} {
	return f.updates.C()
}

// Close 卸载：确定性关闭推送流
// 返回后保证不再接受任何更新——这是一个作用域资源，
// 所有退出路径（卸载、错误、登出）都必须走到这里
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.connState = ws.StateClosed
		f.mu.Unlock()

		if f.stream != nil {
			f.stream.Close()
		}

		// 唤醒还挂在 Updates() 上的消费者，让它观察到关闭
		f.updates.Emit()
	})
}
