package system

import (
	"context"

	"github.com/xieyuen/PF-GUGUBot/internal/connector"
	pkgconn "github.com/xieyuen/PF-GUGUBot/pkg/connector"
)

// EchoSystem 回声系统，把一个平台收到的消息转发到其他所有平台。
type EchoSystem struct {
	*Base
}

// NewEchoSystem 创建回声系统
func NewEchoSystem(deps Deps) *EchoSystem {
	return &EchoSystem{Base: NewBase("echo", true, deps)}
}

// Dispatch 处理入站消息：转发到除来源外的所有可接收平台。
func (s *EchoSystem) Dispatch(ctx context.Context, info *pkgconn.BroadcastInfo) bool {
	if s.HandleEnableDisable(ctx, info) {
		return true
	}

	if !s.Enabled() {
		return false
	}

	qqName := s.cfg.GetKeysString("QQ", "connector", "qq", "source_name")

	// QQ 私聊消息不转发
	if info.Source.IsFrom(qqName) && info.EventSubType == "private" {
		return false
	}

	// QQ 管理群消息不转发
	if info.Source.IsFrom(qqName) && info.EventSubType == "group" && s.isAdminGroup(info.SourceID) {
		return false
	}

	if info.EventType != "message" {
		return false
	}

	// 来源连接器 enable_send=false 时整条消息不转发，而不是仅把它排除出目标
	sourceName := effectiveSource(info)
	if c := s.conns.Get(sourceName); c != nil && !c.SendEnabled() {
		return false
	}

	processed := &pkgconn.ProcessedInfo{
		ProcessedMessage: info.Message,
		Source:           info.Source,
		SourceID:         info.SourceID,
		Sender:           info.Sender,
		SenderID:         info.SenderID,
		Raw:              info.Raw,
		Server:           info.Server,
		EventSubType:     info.EventSubType,
	}

	exclude := []string{sourceName}
	for _, c := range s.conns.Connectors() {
		if !c.ReceiveEnabled() {
			exclude = append(exclude, c.Name())
		}
	}

	if err := s.conns.BroadcastProcessedInfo(ctx, processed, connector.BroadcastOptions{Exclude: exclude}); err != nil {
		s.log.Error().Err(err).Str("event_id", info.ID).Msg("回声系统转发消息失败")
		return false
	}
	return true
}
