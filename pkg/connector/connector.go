// Package connector defines the core interfaces and types for platform connectors.
package connector

import (
	"context"

	"github.com/xieyuen/PF-GUGUBot/pkg/message"
)

// Connector 平台连接器接口
type Connector interface {
	// Name 返回连接器来源名称（如 QQ、Bridge）
	Name() string

	// Enabled 连接器是否启用
	Enabled() bool

	// SendEnabled 该平台的消息是否允许被转发出去
	SendEnabled() bool

	// ReceiveEnabled 该平台是否接收其他平台转发来的消息
	ReceiveEnabled() bool

	// Start 启动连接器
	Start(ctx context.Context) error

	// Stop 停止连接器
	Stop(ctx context.Context) error

	// Send 投递一条处理后的消息
	Send(ctx context.Context, info *ProcessedInfo) error

	// OnBroadcast 注册入站消息回调
	OnBroadcast(handler BroadcastHandler)
}

// BroadcastHandler 入站消息处理回调
type BroadcastHandler func(ctx context.Context, info *BroadcastInfo)

// Source 入站消息的来源标识
type Source struct {
	Origin string `json:"origin"`
}

// IsFrom 判断消息是否来自指定平台
func (s Source) IsFrom(name string) bool {
	return s.Origin == name
}

// BroadcastInfo 入站消息封装。
//
// 由分发器按事件创建，整个分发链结束后丢弃，系统不得持有引用。
type BroadcastInfo struct {
	// ID 事件标识，用于日志关联
	ID string `json:"id"`

	// EventType 事件类型，系统只处理 "message"
	EventType string `json:"event_type"`

	// Message 消息段序列，可能为空
	Message message.Message `json:"message"`

	// Source 原始来源
	Source Source `json:"source"`

	// SourceID 群号 / 频道号，可能为空
	SourceID string `json:"source_id,omitempty"`

	// ReceiverSource 实际产生该事件的连接器名称。
	// 桥接代理其他平台流量时与 Source.Origin 不同。
	ReceiverSource string `json:"receiver_source,omitempty"`

	// Sender 发送者显示名
	Sender string `json:"sender,omitempty"`

	// SenderID 发送者稳定标识
	SenderID string `json:"sender_id,omitempty"`

	// IsAdmin 上游计算的管理员标记
	IsAdmin bool `json:"is_admin"`

	// EventSubType 如 "private" / "group"
	EventSubType string `json:"event_sub_type,omitempty"`

	// Raw 原始事件，按原样透传
	Raw any `json:"-"`

	// Server 服务端句柄，按原样透传
	Server any `json:"-"`
}

// ProcessedInfo 出站消息封装
type ProcessedInfo struct {
	// ProcessedMessage 待投递的消息段序列
	ProcessedMessage message.Message `json:"processed_message"`

	// Source / SourceID 从入站消息复制，保留溯源信息
	Source   Source `json:"source"`
	SourceID string `json:"source_id,omitempty"`

	// Sender / SenderID 可被覆盖（如回复时替换为机器人名）
	Sender   string `json:"sender,omitempty"`
	SenderID string `json:"sender_id,omitempty"`

	// Target 连接器名 -> event_sub_type，发送层据此决定投递形态
	Target map[string]string `json:"target,omitempty"`

	// 透传字段
	Raw          any    `json:"-"`
	Server       any    `json:"-"`
	EventSubType string `json:"event_sub_type,omitempty"`
}
