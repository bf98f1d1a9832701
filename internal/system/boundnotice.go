package system

import (
	"context"

	pkgconn "github.com/xieyuen/PF-GUGUBot/pkg/connector"
	"github.com/xieyuen/PF-GUGUBot/pkg/message"
)

// BoundNoticeSystem 绑定提醒系统。
//
// 发送者未绑定游戏 ID 时回复一条提醒；从不拦截消息，
// 除开关命令外一律返回 false，让后续系统（回声）继续处理。
type BoundNoticeSystem struct {
	*Base
	players PlayerLookup
}

// NewBoundNoticeSystem 创建绑定提醒系统。players 可为 nil，此时系统不做任何事。
func NewBoundNoticeSystem(deps Deps, players PlayerLookup) *BoundNoticeSystem {
	return &BoundNoticeSystem{
		Base:    NewBase("bound_notice", false, deps),
		players: players,
	}
}

// Dispatch 检查发送者绑定状态，必要时发送提醒。
func (s *BoundNoticeSystem) Dispatch(ctx context.Context, info *pkgconn.BroadcastInfo) bool {
	if info.EventType != "message" {
		return false
	}
	if len(info.Message) == 0 {
		return false
	}

	if s.HandleEnableDisable(ctx, info) {
		return true
	}

	if !s.Enabled() || s.players == nil {
		return false
	}

	s.checkAndNotify(ctx, info)
	return false
}

// checkAndNotify 查询绑定状态，未绑定时发送 @ 提醒
func (s *BoundNoticeSystem) checkAndNotify(ctx context.Context, info *pkgconn.BroadcastInfo) {
	if info.SenderID == "" {
		return
	}
	if info.IsAdmin {
		return
	}
	if s.isAdminGroup(info.SourceID) {
		return
	}

	bound, err := s.players.HasBinding(info.SenderID, info.Source.Origin)
	if err != nil {
		s.log.Error().Err(err).Str("sender_id", info.SenderID).Msg("查询玩家绑定失败")
		return
	}
	if bound {
		return
	}

	prefix := s.cfg.GetString("gugubot.command_prefix", "#")
	notice := s.Tr("notice_message", map[string]string{
		"command_prefix": prefix,
		"bound_name":     s.TrGlobal("gugubot.system.bound.name", nil),
	})

	reply := message.Message{message.At(info.SenderID), message.Text(notice)}
	if err := s.Reply(ctx, info, reply); err != nil {
		s.log.Error().Err(err).Str("sender_id", info.SenderID).Msg("发送绑定提醒失败")
	}
}
