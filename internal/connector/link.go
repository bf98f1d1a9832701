package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/xieyuen/PF-GUGUBot/pkg/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1024 * 1024 // 1MB

	// Reconnect backoff bounds.
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// FrameHandler 入站帧处理回调
type FrameHandler func(ctx context.Context, data []byte)

// Link 维护一条到远端的 WebSocket 连接。
//
// 连接断开后按指数退避自动重连；URL 每次重连时重新取值，
// 以便配置热更新后生效。
type Link struct {
	url     func() string
	onFrame FrameHandler
	log     zerolog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
}

// NewLink 创建连接，name 用于日志标识
func NewLink(name string, url func() string) *Link {
	return &Link{
		url: url,
		log: logger.Component(name),
	}
}

// OnFrame 注册入站帧回调
func (l *Link) OnFrame(fn FrameHandler) {
	l.onFrame = fn
}

// Start 启动连接循环
func (l *Link) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	go l.run(runCtx)
}

// Stop 停止连接循环并关闭当前连接
func (l *Link) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
}

// Connected 当前是否有活动连接
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Write 写出一帧文本消息
func (l *Link) Write(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return fmt.Errorf("not connected")
	}
	l.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return l.conn.WriteMessage(websocket.TextMessage, data)
}

// run 维持连接，断开后退避重连
func (l *Link) run(ctx context.Context) {
	backoff := reconnectMin
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		url := l.url()
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			l.log.Warn().Err(err).Str("url", url).Dur("retry_in", backoff).Msg("连接失败")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, reconnectMax)
			continue
		}

		l.log.Info().Str("url", url).Msg("连接已建立")
		backoff = reconnectMin

		l.mu.Lock()
		l.conn = conn
		l.mu.Unlock()

		pingCtx, stopPing := context.WithCancel(ctx)
		go l.pingLoop(pingCtx, conn)
		l.readPump(ctx, conn)
		stopPing()

		l.mu.Lock()
		if l.conn == conn {
			l.conn = nil
		}
		l.mu.Unlock()
		conn.Close()
	}
}

// readPump 读取入站帧并回调
func (l *Link) readPump(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.log.Error().Err(err).Msg("读取失败")
			}
			return
		}
		if l.onFrame != nil {
			l.onFrame(ctx, data)
		}
	}
}

// pingLoop 周期性发送 ping 保活
func (l *Link) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
