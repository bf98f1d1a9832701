// Package system implements the message-handling systems and their dispatch chain.
//
// 每个系统是一个可独立开关的消息处理器。分发器按注册顺序依次调用，
// 第一个返回 true 的系统终止本条消息的处理链。
package system

import (
	"context"

	"github.com/rs/zerolog"

	internalconn "github.com/xieyuen/PF-GUGUBot/internal/connector"
	"github.com/xieyuen/PF-GUGUBot/pkg/connector"
	"github.com/xieyuen/PF-GUGUBot/pkg/logger"
)

// System 消息处理系统接口
type System interface {
	// Name 返回系统名称
	Name() string

	// Enabled 系统是否启用
	Enabled() bool

	// Dispatch 处理一条入站消息，返回是否已处理。
	// 可预期的情况（事件类型不符、系统关闭等）不得 panic，按未处理返回。
	Dispatch(ctx context.Context, info *connector.BroadcastInfo) bool
}

// Broadcaster 系统侧需要的连接器管理能力
type Broadcaster interface {
	Get(name string) connector.Connector
	Connectors() []connector.Connector
	BroadcastProcessedInfo(ctx context.Context, info *connector.ProcessedInfo, opts internalconn.BroadcastOptions) error
}

// Translator 翻译提供者
type Translator interface {
	Tr(key string, kwargs map[string]string) string
}

// StyleProvider 可选的风格覆盖提供者，优先于默认翻译
type StyleProvider interface {
	GetTranslation(key string, kwargs map[string]string) (string, bool)
}

// PlayerLookup 玩家绑定查询（仅绑定提醒系统使用）
type PlayerLookup interface {
	HasBinding(senderID, platform string) (bool, error)
}

// Manager 系统分发器。
//
// 持有有序的系统列表；同一事件的分发链严格串行，链内系统状态无并发访问。
type Manager struct {
	systems []System
	log     zerolog.Logger
}

// NewManager 创建系统分发器
func NewManager() *Manager {
	return &Manager{log: logger.Component("system.manager")}
}

// Register 按顺序注册系统
func (m *Manager) Register(s System) {
	m.systems = append(m.systems, s)
	m.log.Debug().Str("system", s.Name()).Msg("系统已注册")
}

// Systems 返回注册顺序的系统列表
func (m *Manager) Systems() []System {
	return m.systems
}

// Dispatch 依次调用各系统，直到第一个返回 true。
// 返回是否有系统处理了该消息。
func (m *Manager) Dispatch(ctx context.Context, info *connector.BroadcastInfo) bool {
	for _, s := range m.systems {
		if m.dispatchOne(ctx, s, info) {
			m.log.Debug().
				Str("system", s.Name()).
				Str("event_id", info.ID).
				Msg("消息已被处理")
			return true
		}
	}
	return false
}

// dispatchOne 调用单个系统，panic 不跨越分发边界
func (m *Manager) dispatchOne(ctx context.Context, s System, info *connector.BroadcastInfo) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().
				Str("system", s.Name()).
				Any("panic", r).
				Msg("系统处理消息时发生异常")
			handled = false
		}
	}()
	return s.Dispatch(ctx, info)
}
