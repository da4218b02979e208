// Package botctl 管理机器人配置的草稿/已保存双副本和启停控制
package botctl

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/emabot/gopanel/internal/domain"
	"github.com/emabot/gopanel/pkg/sigchan"
)

var log = logrus.WithField("component", "botctl")

// RunState 机器人运行状态（以服务端确认为准）
type RunState string

const (
	RunStateUnknown RunState = "UNKNOWN"
	RunStateRunning RunState = "RUNNING"
	RunStateStopped RunState = "STOPPED"
)

// BotAPI 机器人控制接口（由 pkg/sdk/api.Client 实现）
type BotAPI interface {
	BotConfig(ctx context.Context) (*domain.BotConfig, error)
	SaveBotConfig(ctx context.Context, cfg domain.BotConfig) error
	StartBot(ctx context.Context) error
	StopBot(ctx context.Context) error
}

// Controller 机器人配置控制器
//
// 同时持有两份配置：persisted 是服务端最后确认的，draft 是编辑中的。
// 编辑只改 draft；SaveConfig 成功后 draft 晋升为 persisted，被拒绝时
// draft 原样保留，用户的输入永远不会因为一次失败的保存而丢失。
type Controller struct {
	api BotAPI

	mu        sync.RWMutex
	persisted domain.BotConfig
	draft     domain.BotConfig
	loaded    bool
	runState  RunState

	updates *sigchan.Chan
}

// New 创建控制器，Load 之前两份配置都是零值
func New(api BotAPI) *Controller {
	return &Controller{
		api:      api,
		runState: RunStateUnknown,
		updates:  sigchan.New(1),
	}
}

// Load 从服务端拉取当前配置，persisted 和 draft 都重置为它
func (c *Controller) Load(ctx context.Context) error {
	cfg, err := c.api.BotConfig(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.persisted = *cfg
	c.draft = *cfg
	c.loaded = true
	c.runState = runStateOf(cfg.IsActive)
	c.mu.Unlock()

	c.updates.Emit()
	return nil
}

// Loaded 是否已经成功拉取过配置
func (c *Controller) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Draft 当前编辑中的配置
func (c *Controller) Draft() domain.BotConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.draft
}

// Persisted 服务端最后确认的配置
func (c *Controller) Persisted() domain.BotConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.persisted
}

// SetDraft 整体替换草稿；IsActive 不是可编辑参数，强制保持
// persisted 的值
func (c *Controller) SetDraft(cfg domain.BotConfig) {
	c.mu.Lock()
	cfg.IsActive = c.persisted.IsActive
	c.draft = cfg
	c.mu.Unlock()
	c.updates.Emit()
}

// Dirty 草稿是否偏离了已保存的配置
func (c *Controller) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.draft.Equal(c.persisted)
}

// ResetDraft 丢弃编辑，草稿回到已保存的配置
func (c *Controller) ResetDraft() {
	c.mu.Lock()
	c.draft = c.persisted
	c.mu.Unlock()
	c.updates.Emit()
}

// SaveConfig 校验并提交草稿
// 客户端校验失败或服务端拒绝都返回错误且草稿原样保留；
// 成功后草稿晋升为已保存配置
func (c *Controller) SaveConfig(ctx context.Context) error {
	c.mu.RLock()
	draft := c.draft
	c.mu.RUnlock()

	if err := draft.Validate(); err != nil {
		return err
	}
	if err := c.api.SaveBotConfig(ctx, draft); err != nil {
		return err
	}

	c.mu.Lock()
	c.persisted = draft
	c.mu.Unlock()

	c.updates.Emit()
	return nil
}

// RunState 机器人运行状态
func (c *Controller) RunState() RunState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runState
}

// Start 请求启动机器人
// 服务端可能拒绝（比如订阅未激活），错误原样透传给调用方展示
func (c *Controller) Start(ctx context.Context) error {
	if err := c.api.StartBot(ctx); err != nil {
		return err
	}
	c.setRunning(true)
	return nil
}

// Stop 请求停止机器人
func (c *Controller) Stop(ctx context.Context) error {
	if err := c.api.StopBot(ctx); err != nil {
		return err
	}
	c.setRunning(false)
	return nil
}

// Refresh 用服务端配置对账本地状态
// persisted 跟随服务端；草稿只有在没有未保存编辑时才跟随，
// 有编辑时保留，不让后台轮询吃掉用户的输入
func (c *Controller) Refresh(ctx context.Context) error {
	cfg, err := c.api.BotConfig(ctx)
	if err != nil {
		log.Debugf("配置对账失败: %v", err)
		return err
	}

	c.mu.Lock()
	dirty := !c.draft.Equal(c.persisted)
	c.persisted = *cfg
	if !dirty {
		c.draft = *cfg
	} else {
		c.draft.IsActive = cfg.IsActive
	}
	c.loaded = true
	c.runState = runStateOf(cfg.IsActive)
	c.mu.Unlock()

	c.updates.Emit()
	return nil
}

// Updates 状态变化信号（用于界面重绘）
func (c *Controller) Updates() <-chan struct{} {
	return c.updates.C()
}

// Close 卸载：发一个最终信号，唤醒还挂在 Updates() 上的消费者
func (c *Controller) Close() {
	c.updates.Emit()
}

func (c *Controller) setRunning(running bool) {
	c.mu.Lock()
	c.runState = runStateOf(running)
	c.persisted.IsActive = running
	c.draft.IsActive = running
	c.mu.Unlock()
	c.updates.Emit()
}

func runStateOf(active bool) RunState {
	if active {
		return RunStateRunning
	}
	return RunStateStopped
}
