package system

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xieyuen/PF-GUGUBot/internal/config"
	internalconn "github.com/xieyuen/PF-GUGUBot/internal/connector"
	"github.com/xieyuen/PF-GUGUBot/internal/i18n"
	pkgconn "github.com/xieyuen/PF-GUGUBot/pkg/connector"
	"github.com/xieyuen/PF-GUGUBot/pkg/message"
)

// fakeConnector 测试用连接器描述
type fakeConnector struct {
	name          string
	enable        bool
	enableSend    bool
	enableReceive bool
}

func (f *fakeConnector) Name() string { return f.name }
func (f *fakeConnector) Enabled() bool { return f.enable }
func (f *fakeConnector) SendEnabled() bool { return f.enableSend }
func (f *fakeConnector) ReceiveEnabled() bool { return f.enableReceive }
func (f *fakeConnector) Start(ctx context.Context) error { return nil }
func (f *fakeConnector) Stop(ctx context.Context) error { return nil }
func (f *fakeConnector) Send(ctx context.Context, i *pkgconn.ProcessedInfo) error { return nil }
func (f *fakeConnector) OnBroadcast(handler pkgconn.BroadcastHandler) {}

// broadcastCall 记录一次广播调用
type broadcastCall struct {
	info *pkgconn.ProcessedInfo
	opts internalconn.BroadcastOptions
}

// fakeBroadcaster 测试用连接器管理器
type fakeBroadcaster struct {
	conns []*fakeConnector
	calls []broadcastCall
	err   error
}

func (f *fakeBroadcaster) Get(name string) pkgconn.Connector {
	for _, c := range f.conns {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (f *fakeBroadcaster) Connectors() []pkgconn.Connector {
	result := make([]pkgconn.Connector, 0, len(f.conns))
	for _, c := range f.conns {
		result = append(result, c)
	}
	return result
}

func (f *fakeBroadcaster) BroadcastProcessedInfo(ctx context.Context, info *pkgconn.ProcessedInfo, opts internalconn.BroadcastOptions) error {
	f.calls = append(f.calls, broadcastCall{info: info, opts: opts})
	return f.err
}

func connUp(name string) *fakeConnector {
	return &fakeConnector{name: name, enable: true, enableSend: true, enableReceive: true}
}

func defaultConns() *fakeBroadcaster {
	return &fakeBroadcaster{conns: []*fakeConnector{connUp("QQ"), connUp("Minecraft"), connUp("Bridge")}}
}

func testDeps(t *testing.T, conns *fakeBroadcaster) Deps {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return depsWith(t, cfg, conns)
}

func depsWith(t *testing.T, cfg *config.Config, conns *fakeBroadcaster) Deps {
	t.Helper()
	tr, err := i18n.NewTranslator("", "zh_cn")
	require.NoError(t, err)
	return Deps{Config: cfg, Connectors: conns, Translator: tr}
}

// qqMessage 构造一条来自 QQ 群聊的普通入站消息
func qqMessage(text string) *pkgconn.BroadcastInfo {
	return &pkgconn.BroadcastInfo{
		EventType:    "message",
		Message:      message.Message{message.Text(text)},
		Source:       pkgconn.Source{Origin: "QQ"},
		SourceID:     "10086",
		Sender:       "player1",
		SenderID:     "42",
		EventSubType: "group",
	}
}

// mcMessage 构造一条来自 Minecraft 的入站消息
func mcMessage(text string) *pkgconn.BroadcastInfo {
	return &pkgconn.BroadcastInfo{
		EventType:    "message",
		Message:      message.Message{message.Text(text)},
		Source:       pkgconn.Source{Origin: "Minecraft"},
		Sender:       "Steve",
		SenderID:     "steve",
		EventSubType: "mc",
	}
}
