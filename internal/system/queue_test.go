package system

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconn "github.com/xieyuen/PF-GUGUBot/pkg/connector"
)

// chainGuard 检测处理链是否交叠
type chainGuard struct {
	active  atomic.Int32
	overlap atomic.Bool
	seen    atomic.Int32
}

func (g *chainGuard) Name() string { return "guard" }
func (g *chainGuard) Enabled() bool { return true }

func (g *chainGuard) Dispatch(ctx context.Context, info *pkgconn.BroadcastInfo) bool {
	if g.active.Add(1) > 1 {
		g.overlap.Store(true)
	}
	time.Sleep(100 * time.Microsecond)
	g.seen.Add(1)
	g.active.Add(-1)
	return false
}

func TestQueueSerializesConcurrentProducers(t *testing.T) {
	conns := defaultConns()
	deps := testDeps(t, conns)

	guard := &chainGuard{}
	m := NewManager()
	m.Register(guard)
	m.Register(NewEchoSystem(deps))

	q := NewQueue(m, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	const perProducer = 50

	// 一个连接器不断发开关命令，另一个连接器同时发普通消息
	go func() {
		for i := 0; i < perProducer; i++ {
			text := "#转发 关闭"
			if i%2 == 1 {
				text = "#转发 开启"
			}
			info := qqMessage(text)
			info.IsAdmin = true
			q.Enqueue(ctx, info)
		}
	}()
	go func() {
		for i := 0; i < perProducer; i++ {
			q.Enqueue(ctx, mcMessage("hello"))
		}
	}()

	deadline := time.After(10 * time.Second)
	for guard.seen.Load() < 2*perProducer {
		select {
		case <-deadline:
			t.Fatalf("处理了 %d/%d 条事件后超时", guard.seen.Load(), 2*perProducer)
		case <-time.After(time.Millisecond):
		}
	}

	assert.False(t, guard.overlap.Load(), "处理链不得并发执行")
}

func TestQueueStopsOnContextCancel(t *testing.T) {
	guard := &chainGuard{}
	m := NewManager()
	m.Register(guard)

	q := NewQueue(m, 1)
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	q.Enqueue(ctx, qqMessage("hello"))
	deadline := time.After(5 * time.Second)
	for guard.seen.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("等待事件处理超时")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()

	// 取消后入队不阻塞，事件被放弃
	q.Enqueue(ctx, qqMessage("dropped"))
	q.Enqueue(ctx, qqMessage("dropped"))

	time.Sleep(10 * time.Millisecond)
	require.Equal(t, int32(1), guard.seen.Load())
}
