package system

import (
	"context"
	"strings"

	"github.com/xieyuen/PF-GUGUBot/internal/connector"
	pkgconn "github.com/xieyuen/PF-GUGUBot/pkg/connector"
	"github.com/xieyuen/PF-GUGUBot/pkg/message"
)

// CrossBroadcastSystem 跨平台强制广播系统。
//
// QQ 端发送 #mc <消息> 可突破 enable_send 限制，仅广播到 Minecraft；
// Minecraft 端发送 !!qq <消息> 仅广播到 QQ。
// 目标连接器只要求存在且启用，不检查其收发门控。
type CrossBroadcastSystem struct {
	*Base
}

// NewCrossBroadcastSystem 创建跨服广播系统
func NewCrossBroadcastSystem(deps Deps) *CrossBroadcastSystem {
	return &CrossBroadcastSystem{Base: NewBase("cross_broadcast", true, deps)}
}

// Dispatch 识别跨服命令并做单目标转发。
// 未命中命令或目标不可用时返回 false，消息落给后续系统处理。
func (s *CrossBroadcastSystem) Dispatch(ctx context.Context, info *pkgconn.BroadcastInfo) bool {
	if info.EventType != "message" {
		return false
	}
	text, ok := info.Message.FirstText()
	if !ok {
		return false
	}
	if !s.Enabled() {
		return false
	}

	text = strings.TrimSpace(text)
	sourceName := effectiveSource(info)

	qqName := s.cfg.GetKeysString("QQ", "connector", "qq", "source_name")
	mcName := s.cfg.GetKeysString("Minecraft", "connector", "minecraft", "source_name")

	// QQ 端: #mc <消息> -> 仅广播到 MC
	prefix := s.cfg.GetString("gugubot.command_prefix", "#")
	mcCmd := prefix + s.cfg.GetKeysString("mc", "system", "cross_broadcast", "mc_command")
	if sourceName == qqName && strings.HasPrefix(text, mcCmd) {
		return s.relayTo(ctx, info, info.Message.StripPrefix(mcCmd), mcName)
	}

	// MC 端: !!qq <消息> -> 仅广播到 QQ
	qqCmd := s.cfg.GetKeysString("!!qq", "system", "cross_broadcast", "qq_command")
	if sourceName == mcName && strings.HasPrefix(text, qqCmd) {
		return s.relayTo(ctx, info, info.Message.StripPrefix(qqCmd), qqName)
	}

	return false
}

// relayTo 把剥掉命令前缀后的消息仅投递给目标连接器
func (s *CrossBroadcastSystem) relayTo(ctx context.Context, info *pkgconn.BroadcastInfo, msg message.Message, target string) bool {
	c := s.conns.Get(target)
	if c == nil || !c.Enabled() {
		return false
	}

	processed := &pkgconn.ProcessedInfo{
		ProcessedMessage: msg,
		Source:           info.Source,
		SourceID:         info.SourceID,
		Sender:           info.Sender,
		SenderID:         info.SenderID,
		Raw:              info.Raw,
		Server:           info.Server,
		EventSubType:     info.EventSubType,
	}

	if err := s.conns.BroadcastProcessedInfo(ctx, processed, connector.BroadcastOptions{Include: []string{target}}); err != nil {
		s.log.Error().Err(err).Str("target", target).Msg("跨服广播失败")
		return false
	}
	return true
}
