package qq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xieyuen/PF-GUGUBot/internal/config"
	pkgconn "github.com/xieyuen/PF-GUGUBot/pkg/connector"
	"github.com/xieyuen/PF-GUGUBot/pkg/message"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestParseGroupMessage(t *testing.T) {
	c := New(testConfig(t))

	data := []byte(`{
		"post_type": "message",
		"message_type": "group",
		"group_id": 10086,
		"user_id": 42,
		"message": [{"type": "text", "data": {"text": "hello"}}],
		"sender": {"nickname": "player1", "card": "", "role": "member"}
	}`)

	info, ok := c.parseEvent(data)
	require.True(t, ok)
	assert.Equal(t, "message", info.EventType)
	assert.Equal(t, "group", info.EventSubType)
	assert.Equal(t, "QQ", info.Source.Origin)
	assert.Equal(t, "10086", info.SourceID)
	assert.Equal(t, "42", info.SenderID)
	assert.Equal(t, "player1", info.Sender)
	assert.Equal(t, "hello", info.Message.PlainText())
	assert.False(t, info.IsAdmin)
	assert.NotEmpty(t, info.ID)
}

func TestParsePrefersGroupCard(t *testing.T) {
	c := New(testConfig(t))

	data := []byte(`{
		"post_type": "message",
		"message_type": "group",
		"group_id": 10086,
		"user_id": 42,
		"message": [{"type": "text", "data": {"text": "hi"}}],
		"sender": {"nickname": "player1", "card": "群名片"}
	}`)

	info, ok := c.parseEvent(data)
	require.True(t, ok)
	assert.Equal(t, "群名片", info.Sender)
}

func TestParsePrivateMessage(t *testing.T) {
	c := New(testConfig(t))

	data := []byte(`{
		"post_type": "message",
		"message_type": "private",
		"user_id": 42,
		"message": [{"type": "text", "data": {"text": "#转发 关闭"}}],
		"sender": {"nickname": "admin1"}
	}`)

	info, ok := c.parseEvent(data)
	require.True(t, ok)
	assert.Equal(t, "private", info.EventSubType)
	assert.Equal(t, "42", info.SourceID, "私聊会话标识应为对方用户号")
	assert.Equal(t, "42", info.SenderID)
}

func TestParseSkipsMetaEvents(t *testing.T) {
	c := New(testConfig(t))

	_, ok := c.parseEvent([]byte(`{"post_type": "meta_event", "meta_event_type": "heartbeat"}`))
	assert.False(t, ok)

	_, ok = c.parseEvent([]byte(`{"status": "ok"}`))
	assert.False(t, ok, "动作响应帧不应进入分发链")
}

func TestParseInvalidJSON(t *testing.T) {
	c := New(testConfig(t))

	_, ok := c.parseEvent([]byte(`{not json`))
	assert.False(t, ok)
}

func TestIsAdmin(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.Set("connector.qq.permissions.admin_ids", []string{"100"}))
	c := New(cfg)

	assert.True(t, c.isAdmin("100", "member"), "admin_ids 中的用户")
	assert.True(t, c.isAdmin("42", "owner"), "群主")
	assert.True(t, c.isAdmin("42", "admin"), "群管理员")
	assert.False(t, c.isAdmin("42", "member"))
}

func TestTargetGroupsBackToOrigin(t *testing.T) {
	c := New(testConfig(t))

	groups := c.targetGroups(&pkgconn.ProcessedInfo{
		Source:   pkgconn.Source{Origin: "QQ"},
		SourceID: "10086",
	})
	assert.Equal(t, []int64{10086}, groups)
}

func TestTargetGroupsFromOtherPlatform(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.Set("connector.qq.group_ids", []string{"111", "222"}))
	c := New(cfg)

	groups := c.targetGroups(&pkgconn.ProcessedInfo{
		Source: pkgconn.Source{Origin: "Minecraft"},
	})
	assert.Equal(t, []int64{111, 222}, groups)
}

func TestOutboundSegmentsPrefixesForeignSender(t *testing.T) {
	c := New(testConfig(t))

	msg := c.outboundSegments(&pkgconn.ProcessedInfo{
		ProcessedMessage: message.Message{message.Text("hello")},
		Source:           pkgconn.Source{Origin: "Minecraft"},
		Sender:           "Steve",
	})
	assert.Equal(t, "[Steve] hello", msg.PlainText())
}

func TestOutboundSegmentsNoPrefixForOwnMessages(t *testing.T) {
	c := New(testConfig(t))

	msg := c.outboundSegments(&pkgconn.ProcessedInfo{
		ProcessedMessage: message.Message{message.Text("已关闭")},
		Source:           pkgconn.Source{Origin: "QQ"},
		Sender:           "GUGUBot",
	})
	assert.Equal(t, "已关闭", msg.PlainText())
}

func TestBuildActionsPrivateReply(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.Set("connector.qq.group_ids", []string{"111", "222"}))
	c := New(cfg)

	// 私聊管理命令的确认回复：只发给对方本人，不得进入转发群
	frames := c.buildActions(&pkgconn.ProcessedInfo{
		ProcessedMessage: message.Message{message.Text("已关闭")},
		Source:           pkgconn.Source{Origin: "QQ"},
		SourceID:         "42",
		Target:           map[string]string{"42": "private"},
		EventSubType:     "private",
	})

	require.Len(t, frames, 1)
	assert.Equal(t, "send_private_msg", frames[0].Action)
	assert.Equal(t, int64(42), frames[0].Params["user_id"])
}

func TestBuildActionsGroupReply(t *testing.T) {
	c := New(testConfig(t))

	frames := c.buildActions(&pkgconn.ProcessedInfo{
		ProcessedMessage: message.Message{message.Text("已开启")},
		Source:           pkgconn.Source{Origin: "QQ"},
		SourceID:         "10086",
		Target:           map[string]string{"10086": "group"},
		EventSubType:     "group",
	})

	require.Len(t, frames, 1)
	assert.Equal(t, "send_group_msg", frames[0].Action)
	assert.Equal(t, int64(10086), frames[0].Params["group_id"])
}

func TestBuildActionsPrivateWithoutUserID(t *testing.T) {
	c := New(testConfig(t))

	frames := c.buildActions(&pkgconn.ProcessedInfo{
		ProcessedMessage: message.Message{message.Text("hi")},
		Source:           pkgconn.Source{Origin: "QQ"},
		Target:           map[string]string{"QQ": "private"},
	})
	assert.Empty(t, frames)
}

func TestSendWithoutConnection(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.Set("connector.qq.group_ids", []string{"111"}))
	c := New(cfg)

	err := c.Send(context.Background(), &pkgconn.ProcessedInfo{
		ProcessedMessage: message.Message{message.Text("hello")},
		Source:           pkgconn.Source{Origin: "Minecraft"},
	})
	assert.Error(t, err)
}

func TestConnectReceiveAndSend(t *testing.T) {
	upgrader := websocket.Upgrader{}
	outbound := make(chan []byte, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		event := `{
			"post_type": "message",
			"message_type": "group",
			"group_id": 10086,
			"user_id": 42,
			"message": [{"type": "text", "data": {"text": "hello"}}],
			"sender": {"nickname": "player1"}
		}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(event)); err != nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		outbound <- data
	}))
	defer srv.Close()

	cfg := testConfig(t)
	require.NoError(t, cfg.Set("connector.qq.ws_url", "ws"+strings.TrimPrefix(srv.URL, "http")))

	c := New(cfg)
	received := make(chan *pkgconn.BroadcastInfo, 1)
	c.OnBroadcast(func(ctx context.Context, info *pkgconn.BroadcastInfo) {
		received <- info
	})

	require.NoError(t, c.Start(context.Background()))
	defer c.Stop(context.Background())

	var info *pkgconn.BroadcastInfo
	select {
	case info = <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("等待入站消息超时")
	}
	assert.Equal(t, "hello", info.Message.PlainText())

	err := c.Send(context.Background(), &pkgconn.ProcessedInfo{
		ProcessedMessage: message.Message{message.Text("hi qq")},
		Source:           pkgconn.Source{Origin: "QQ"},
		SourceID:         "10086",
	})
	require.NoError(t, err)

	select {
	case data := <-outbound:
		var frame map[string]any
		require.NoError(t, json.Unmarshal(data, &frame))
		assert.Equal(t, "send_group_msg", frame["action"])
		params := frame["params"].(map[string]any)
		assert.Equal(t, float64(10086), params["group_id"])
	case <-time.After(5 * time.Second):
		t.Fatal("等待出站帧超时")
	}
}
