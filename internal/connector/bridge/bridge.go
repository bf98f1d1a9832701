// Package bridge implements the Minecraft bridge connector.
//
// 桥接端代理一个或多个 Minecraft 服务端的流量：入站帧携带真实来源
// （通常是 Minecraft），连接器在转入分发链时把自身名称记为
// receiver_source，供转发系统做有效来源判断。
package bridge

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xieyuen/PF-GUGUBot/internal/config"
	internalconn "github.com/xieyuen/PF-GUGUBot/internal/connector"
	pkgconn "github.com/xieyuen/PF-GUGUBot/pkg/connector"
	"github.com/xieyuen/PF-GUGUBot/pkg/logger"
	"github.com/xieyuen/PF-GUGUBot/pkg/message"
)

// frame 桥接端的 JSON 帧
type frame struct {
	EventType    string          `json:"event_type"`
	Message      message.Message `json:"message"`
	Origin       string          `json:"origin"`
	SourceID     string          `json:"source_id,omitempty"`
	Sender       string          `json:"sender,omitempty"`
	SenderID     string          `json:"sender_id,omitempty"`
	EventSubType string          `json:"event_sub_type,omitempty"`
	Server       string          `json:"server,omitempty"`
}

// Connector Minecraft 桥接连接器
type Connector struct {
	cfg     *config.Config
	link    *internalconn.Link
	handler pkgconn.BroadcastHandler
	log     zerolog.Logger
}

// New 创建桥接连接器
func New(cfg *config.Config) *Connector {
	c := &Connector{
		cfg: cfg,
		log: logger.Component("connector.bridge"),
	}
	c.link = internalconn.NewLink("connector.bridge", func() string {
		return cfg.GetKeysString("", "connector", "minecraft_bridge", "ws_url")
	})
	c.link.OnFrame(c.handleFrame)
	return c
}

// Name 返回配置的来源名称
func (c *Connector) Name() string {
	return c.cfg.GetKeysString("Bridge", "connector", "minecraft_bridge", "source_name")
}

// Enabled 连接器是否启用
func (c *Connector) Enabled() bool {
	return c.cfg.GetKeysBool(true, "connector", "minecraft_bridge", "enable")
}

// SendEnabled 桥接消息是否允许转发到其他平台
func (c *Connector) SendEnabled() bool {
	return c.cfg.GetKeysBool(true, "connector", "minecraft_bridge", "enable_send")
}

// ReceiveEnabled 桥接端是否接收其他平台转发来的消息
func (c *Connector) ReceiveEnabled() bool {
	return c.cfg.GetKeysBool(true, "connector", "minecraft_bridge", "enable_receive")
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

// handleFrame 处理一帧桥接消息
func (c *Connector) handleFrame(ctx context.Context, data []byte) {
	info, ok := c.parseFrame(data)
	if !ok {
		return
	}
	if c.handler != nil {
		c.handler(ctx, info)
	}
}

// parseFrame 将桥接帧转换为入站消息
func (c *Connector) parseFrame(data []byte) (*pkgconn.BroadcastInfo, bool) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.log.Debug().Err(err).Msg("解析桥接帧失败")
		return nil, false
	}
	if f.EventType == "" {
		return nil, false
	}

	origin := f.Origin
	if origin == "" {
		origin = c.cfg.GetKeysString("Minecraft", "connector", "minecraft", "source_name")
	}
	subType := f.EventSubType
	if subType == "" {
		subType = "mc"
	}

	return &pkgconn.BroadcastInfo{
		ID:             uuid.New().String(),
		EventType:      f.EventType,
		Message:        f.Message,
		Source:         pkgconn.Source{Origin: origin},
		SourceID:       f.SourceID,
		ReceiverSource: c.Name(),
		Sender:         f.Sender,
		SenderID:       f.SenderID,
		EventSubType:   subType,
		Server:         f.Server,
		Raw:            data,
	}, true
}

// Send 将出站消息写到桥接端
func (c *Connector) Send(ctx context.Context, info *pkgconn.ProcessedInfo) error {
	out := frame{
		EventType:    "message",
		Message:      info.ProcessedMessage,
		Origin:       info.Source.Origin,
		SourceID:     info.SourceID,
		Sender:       info.Sender,
		SenderID:     info.SenderID,
		EventSubType: info.EventSubType,
	}
	if server, ok := info.Server.(string); ok {
		out.Server = server
	}

	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return c.link.Write(data)
}
