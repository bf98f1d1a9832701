// Package qq implements the QQ connector over a OneBot v11 WebSocket link.
package qq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xieyuen/PF-GUGUBot/internal/config"
	internalconn "github.com/xieyuen/PF-GUGUBot/internal/connector"
	pkgconn "github.com/xieyuen/PF-GUGUBot/pkg/connector"
	"github.com/xieyuen/PF-GUGUBot/pkg/logger"
	"github.com/xieyuen/PF-GUGUBot/pkg/message"
)

// event OneBot v11 上报事件
type event struct {
	PostType      string          `json:"post_type"`
	MessageType   string          `json:"message_type"`
	SubType       string          `json:"sub_type"`
	MetaEventType string          `json:"meta_event_type"`
	MessageID     int64           `json:"message_id"`
	GroupID       int64           `json:"group_id"`
	UserID        int64           `json:"user_id"`
	Message       message.Message `json:"message"`
	Sender        eventSender     `json:"sender"`
}

// eventSender 上报事件中的发送者信息
type eventSender struct {
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
	Role     string `json:"role"`
}

// action OneBot v11 动作帧
type action struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
	Echo   string         `json:"echo,omitempty"`
}

// Connector QQ 连接器。
//
// 以正向 WebSocket 客户端连接 OneBot 实现，断线后自动重连。
type Connector struct {
	cfg     *config.Config
	link    *internalconn.Link
	handler pkgconn.BroadcastHandler
	log     zerolog.Logger
}

// New 创建 QQ 连接器
func New(cfg *config.Config) *Connector {
	c := &Connector{
		cfg: cfg,
		log: logger.Component("connector.qq"),
	}
	c.link = internalconn.NewLink("connector.qq", func() string {
		return cfg.GetKeysString("", "connector", "qq", "ws_url")
	})
	c.link.OnFrame(c.handleFrame)
	return c
}

// Name 返回配置的来源名称
func (c *Connector) Name() string {
	return c.cfg.GetKeysString("QQ", "connector", "qq", "source_name")
}

// Enabled 连接器是否启用
func (c *Connector) Enabled() bool {
	return c.cfg.GetKeysBool(true, "connector", "qq", "enable")
}

// SendEnabled QQ 消息是否允许转发到其他平台
func (c *Connector) SendEnabled() bool {
	return c.cfg.GetKeysBool(true, "connector", "qq", "enable_send")
}

// ReceiveEnabled QQ 是否接收其他平台转发来的消息
func (c *Connector) ReceiveEnabled() bool {
	return c.cfg.GetKeysBool(true, "connector", "qq", "enable_receive")
}

// OnBroadcast 注册入站消息回调
func (c *Connector) OnBroadcast(handler pkgconn.BroadcastHandler) {
	c.handler = handler
}

// Start 启动连接循环
func (c *Connector) Start(ctx context.Context) error {
	c.link.Start(ctx)
	return nil
}

// Stop 停止连接器
func (c *Connector) Stop(ctx context.Context) error {
	c.link.Stop()
	return nil
}

// handleFrame 处理一帧 OneBot 上报
func (c *Connector) handleFrame(ctx context.Context, data []byte) {
	info, ok := c.parseEvent(data)
	if !ok {
		return
	}
	if c.handler != nil {
		c.handler(ctx, info)
	}
}

// parseEvent 将 OneBot 上报事件转换为入站消息
func (c *Connector) parseEvent(data []byte) (*pkgconn.BroadcastInfo, bool) {
	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		c.log.Debug().Err(err).Msg("解析 OneBot 事件失败")
		return nil, false
	}

	// 心跳等元事件与动作响应不进入分发链
	if ev.PostType == "" || ev.PostType == "meta_event" {
		return nil, false
	}

	info := &pkgconn.BroadcastInfo{
		ID:           uuid.New().String(),
		EventType:    ev.PostType,
		Message:      ev.Message,
		Source:       pkgconn.Source{Origin: c.Name()},
		SenderID:     strconv.FormatInt(ev.UserID, 10),
		Sender:       ev.Sender.Nickname,
		EventSubType: ev.MessageType,
		Raw:          data,
	}
	if ev.Sender.Card != "" {
		info.Sender = ev.Sender.Card
	}
	if ev.GroupID != 0 {
		info.SourceID = strconv.FormatInt(ev.GroupID, 10)
	} else if ev.MessageType == "private" {
		// 私聊没有群号，会话标识就是对方的用户号，回复据此定位私聊
		info.SourceID = info.SenderID
	}
	info.IsAdmin = c.isAdmin(info.SenderID, ev.Sender.Role)

	return info, true
}

// isAdmin 判断发送者是否为管理员。
// admin_ids 中的用户与群主/群管理员均视为管理员。
func (c *Connector) isAdmin(senderID, role string) bool {
	for _, id := range c.cfg.GetKeysStringSlice("connector", "qq", "permissions", "admin_ids") {
		if id == senderID {
			return true
		}
	}
	return role == "owner" || role == "admin"
}

// Send 将出站消息投递到 QQ，按 target 映射决定私聊或群聊形态
func (c *Connector) Send(ctx context.Context, info *pkgconn.ProcessedInfo) error {
	for _, frame := range c.buildActions(info) {
		data, err := json.Marshal(frame)
		if err != nil {
			return fmt.Errorf("marshal action: %w", err)
		}
		if err := c.link.Write(data); err != nil {
			return fmt.Errorf("%s: %w", frame.Action, err)
		}
	}
	return nil
}

// buildActions 构造出站动作帧列表
func (c *Connector) buildActions(info *pkgconn.ProcessedInfo) []action {
	segments := c.outboundSegments(info)

	if c.deliverySubType(info) == "private" {
		userID := info.SourceID
		if userID == "" {
			userID = info.SenderID
		}
		id, err := strconv.ParseInt(userID, 10, 64)
		if err != nil {
			c.log.Warn().Str("user_id", userID).Msg("私聊投递缺少有效用户号")
			return nil
		}
		return []action{{
			Action: "send_private_msg",
			Params: map[string]any{
				"user_id": id,
				"message": segments,
			},
			Echo: uuid.New().String(),
		}}
	}

	var frames []action
	for _, group := range c.targetGroups(info) {
		frames = append(frames, action{
			Action: "send_group_msg",
			Params: map[string]any{
				"group_id": group,
				"message":  segments,
			},
			Echo: uuid.New().String(),
		})
	}
	return frames
}

// deliverySubType 投递形态：target 映射优先，回退到 event_sub_type
func (c *Connector) deliverySubType(info *pkgconn.ProcessedInfo) string {
	if info.SourceID != "" {
		if sub, ok := info.Target[info.SourceID]; ok {
			return sub
		}
	}
	if sub, ok := info.Target[c.Name()]; ok {
		return sub
	}
	return info.EventSubType
}

// targetGroups 计算投递的群列表。
// 消息源自 QQ 时回到原群，否则投递到配置的转发群。
func (c *Connector) targetGroups(info *pkgconn.ProcessedInfo) []int64 {
	if info.Source.IsFrom(c.Name()) && info.SourceID != "" {
		if id, err := strconv.ParseInt(info.SourceID, 10, 64); err == nil {
			return []int64{id}
		}
	}

	var groups []int64
	for _, raw := range c.cfg.GetKeysStringSlice("connector", "qq", "group_ids") {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.log.Warn().Str("group_id", raw).Msg("忽略无效的群号配置")
			continue
		}
		groups = append(groups, id)
	}
	return groups
}

// outboundSegments 构造出站消息段。
// 来自其他平台的消息前置发送者名，便于群内区分。
func (c *Connector) outboundSegments(info *pkgconn.ProcessedInfo) message.Message {
	if info.Sender == "" || info.Source.IsFrom(c.Name()) {
		return info.ProcessedMessage
	}
	result := make(message.Message, 0, len(info.ProcessedMessage)+1)
	result = append(result, message.Text("["+info.Sender+"] "))
	return append(result, info.ProcessedMessage...)
}
