// Package minecraft implements the Minecraft server connector.
//
// 服务器本身不持有独立链路：出站投递委托给桥接连接器的连接，
// 入站流量也由桥接端转入。本连接器承担 Minecraft 作为转发目标的
// 身份与收发门控。
package minecraft

import (
	"context"

	"github.com/xieyuen/PF-GUGUBot/internal/config"
	pkgconn "github.com/xieyuen/PF-GUGUBot/pkg/connector"
)

// Connector Minecraft 连接器
type Connector struct {
	cfg      *config.Config
	upstream pkgconn.Connector
}

// New 创建 Minecraft 连接器，upstream 为承载链路的桥接连接器
func New(cfg *config.Config, upstream pkgconn.Connector) *Connector {
	return &Connector{cfg: cfg, upstream: upstream}
}

// Name 返回配置的来源名称
func (c *Connector) Name() string {
	return c.cfg.GetKeysString("Minecraft", "connector", "minecraft", "source_name")
}

// Enabled 连接器是否启用
func (c *Connector) Enabled() bool {
	return c.cfg.GetKeysBool(true, "connector", "minecraft", "enable")
}

// SendEnabled 服务器消息是否允许转发到其他平台
func (c *Connector) SendEnabled() bool {
	return c.cfg.GetKeysBool(true, "connector", "minecraft", "enable_send")
}

// ReceiveEnabled 服务器是否接收其他平台转发来的消息
func (c *Connector) ReceiveEnabled() bool {
	return c.cfg.GetKeysBool(true, "connector", "minecraft", "enable_receive")
}

// Start 无独立链路，启动由桥接连接器负责
func (c *Connector) Start(ctx context.Context) error {
	return nil
}

// Stop 无独立链路
func (c *Connector) Stop(ctx context.Context) error {
	return nil
}

// OnBroadcast 入站流量经桥接连接器转入，此处无注册点
func (c *Connector) OnBroadcast(handler pkgconn.BroadcastHandler) {}

// Send 经桥接链路投递到服务器。
// 消息的真实来源是本服务器时直接丢弃，避免回环。
func (c *Connector) Send(ctx context.Context, info *pkgconn.ProcessedInfo) error {
	if info.Source.IsFrom(c.Name()) {
		return nil
	}
	return c.upstream.Send(ctx, info)
}
