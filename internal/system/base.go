package system

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/xieyuen/PF-GUGUBot/internal/config"
	internalconn "github.com/xieyuen/PF-GUGUBot/internal/connector"
	"github.com/xieyuen/PF-GUGUBot/pkg/connector"
	"github.com/xieyuen/PF-GUGUBot/pkg/logger"
	"github.com/xieyuen/PF-GUGUBot/pkg/message"
)

// Deps 系统的协作者集合，按依赖注入传入
type Deps struct {
	Config     *config.Config
	Connectors Broadcaster
	Translator Translator

	// Style 可选，非 nil 时翻译查找先走风格覆盖
	Style StyleProvider
}

// Base 各系统共享行为的组合助手：命令识别、回复构造、开关切换、翻译查找。
//
// 不参与分发链，由具体系统组合持有。
type Base struct {
	name   string
	enable bool
	cfg    *config.Config
	conns  Broadcaster
	deps   Deps
	log    zerolog.Logger
}

// NewBase 创建共享助手。enable 初值从持久化配置读取，配置缺失时用 defaultEnable。
func NewBase(name string, defaultEnable bool, deps Deps) *Base {
	return &Base{
		name:   name,
		enable: deps.Config.GetKeysBool(defaultEnable, "system", name, "enable"),
		cfg:    deps.Config,
		conns:  deps.Connectors,
		deps:   deps,
		log:    logger.Component("system." + name),
	}
}

// Name 返回系统名称
func (b *Base) Name() string {
	return b.name
}

// Enabled 返回当前开关状态。
//
// 分发链串行执行，enable 只被本系统的开关命令写入，无需加锁。
func (b *Base) Enabled() bool {
	return b.enable
}

// IsCommand 判断是否是命令：message 事件、首段为文本、以命令前缀开头，
// 且在 group_admin 模式下发送者必须是管理员。
func (b *Base) IsCommand(info *connector.BroadcastInfo) bool {
	if info.EventType != "message" {
		return false
	}

	text, ok := info.Message.FirstText()
	if !ok {
		return false
	}

	prefix := b.cfg.GetString("gugubot.command_prefix", "#")
	if !strings.HasPrefix(text, prefix) {
		return false
	}

	if b.cfg.GetBool("gugubot.group_admin", false) && !info.IsAdmin {
		return false
	}

	return true
}

// Tr 查找本系统命名空间下的翻译（gugubot.system.<name>.<key>）
func (b *Base) Tr(key string, kwargs map[string]string) string {
	return b.lookup("gugubot.system."+b.name+"."+key, kwargs)
}

// TrGlobal 查找全局翻译键
func (b *Base) TrGlobal(key string, kwargs map[string]string) string {
	return b.lookup(key, kwargs)
}

// lookup 风格覆盖优先，回退到默认翻译
func (b *Base) lookup(fullKey string, kwargs map[string]string) string {
	if b.deps.Style != nil {
		if text, ok := b.deps.Style.GetTranslation(fullKey, kwargs); ok {
			return text
		}
	}
	return b.deps.Translator.Tr(fullKey, kwargs)
}

// BuildReply 构造回复封装。
//
// target 键优先用数字形式的 source_id，否则用来源平台名；
// 若入站消息经桥接连接器转入（receiver_source 为桥且真实来源不是桥），
// 额外加入桥接目标，让回复沿来路送达，同时保留原始来源目标。
func (b *Base) BuildReply(info *connector.BroadcastInfo, msg message.Message) *connector.ProcessedInfo {
	targetKey := info.Source.Origin
	if isNumeric(info.SourceID) {
		targetKey = info.SourceID
	}
	target := map[string]string{targetKey: info.EventSubType}

	bridgeName := b.cfg.GetKeysString("Bridge", "connector", "minecraft_bridge", "source_name")
	if info.ReceiverSource == bridgeName && !info.Source.IsFrom(bridgeName) {
		target[info.ReceiverSource] = info.EventSubType
	}

	return &connector.ProcessedInfo{
		ProcessedMessage: msg,
		Source:           info.Source,
		SourceID:         info.SourceID,
		Sender:           b.TrGlobal("gugubot.bot_name", nil),
		Target:           target,
		Raw:              info.Raw,
		Server:           info.Server,
		EventSubType:     info.EventSubType,
	}
}

// Reply 构造回复并通过入站来路的连接器发回
func (b *Base) Reply(ctx context.Context, info *connector.BroadcastInfo, msg message.Message) error {
	respond := b.BuildReply(info, msg)

	receiver := info.ReceiverSource
	if receiver == "" {
		receiver = info.Source.Origin
	}
	return b.conns.BroadcastProcessedInfo(ctx, respond, internalconn.BroadcastOptions{
		Include: []string{receiver},
	})
}

// HandleEnableDisable 识别 <前缀><系统名> <开启|关闭> 命令。
//
// 仅管理员可用；命中时切换并持久化开关状态，回复确认文案，返回 true。
func (b *Base) HandleEnableDisable(ctx context.Context, info *connector.BroadcastInfo) bool {
	if !b.IsCommand(info) {
		return false
	}
	if !info.IsAdmin {
		return false
	}

	text, _ := info.Message.FirstText()
	prefix := b.cfg.GetString("gugubot.command_prefix", "#")
	command := strings.TrimSpace(strings.TrimPrefix(text, prefix))

	displayName := b.Tr("name", nil)
	if !strings.HasPrefix(command, displayName) {
		return false
	}
	command = strings.TrimSpace(strings.TrimPrefix(command, displayName))

	switch command {
	case b.TrGlobal("gugubot.enable", nil):
		return b.switchEnable(ctx, true, info)
	case b.TrGlobal("gugubot.disable", nil):
		return b.switchEnable(ctx, false, info)
	}
	return false
}

// switchEnable 切换开关状态。
//
// 持久化失败时内存状态保持不变，只记录日志；命令本身视为已处理。
func (b *Base) switchEnable(ctx context.Context, enable bool, info *connector.BroadcastInfo) bool {
	key := config.Key("system", b.name, "enable")
	if err := b.cfg.Set(key, enable); err != nil {
		b.log.Error().Err(err).Bool("enable", enable).Msg("保存开关状态失败")
		return true
	}
	b.enable = enable

	replyKey := "gugubot.disable_success"
	if enable {
		replyKey = "gugubot.enable_success"
	}
	reply := message.Message{message.Text(b.TrGlobal(replyKey, nil))}
	if err := b.Reply(ctx, info, reply); err != nil {
		b.log.Error().Err(err).Msg("发送开关确认失败")
	}
	return true
}

// effectiveSource 返回实际来源连接器名：receiver_source 优先，其次原始来源
func effectiveSource(info *connector.BroadcastInfo) string {
	if info.ReceiverSource != "" {
		return info.ReceiverSource
	}
	return info.Source.Origin
}

// isAdminGroup 判断 sourceID 是否在 QQ 管理群列表中
func (b *Base) isAdminGroup(sourceID string) bool {
	if sourceID == "" {
		return false
	}
	for _, id := range b.cfg.GetKeysStringSlice("connector", "qq", "permissions", "admin_group_ids") {
		if id != "" && id == sourceID {
			return true
		}
	}
	return false
}

// isNumeric 判断字符串是否全为数字
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
