package system

import (
	"context"

	"github.com/xieyuen/PF-GUGUBot/pkg/connector"
)

// Queue 入站事件队列。
//
// 各连接器的读循环运行在独立 goroutine 上；队列把所有入站事件汇入
// 单个分发 goroutine，保证任意时刻只有一条处理链在执行，
// 系统状态（如开关标志）因此无需加锁。
type Queue struct {
	mgr *Manager
	ch  chan *connector.BroadcastInfo
}

// defaultQueueSize 事件缓冲大小，写满后入队阻塞在连接器的读循环上
const defaultQueueSize = 256

// NewQueue 创建事件队列。size 非正时使用默认缓冲大小。
func NewQueue(mgr *Manager, size int) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Queue{
		mgr: mgr,
		ch:  make(chan *connector.BroadcastInfo, size),
	}
}

// Start 启动分发循环，ctx 取消后退出
func (q *Queue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case info := <-q.ch:
				q.mgr.Dispatch(ctx, info)
			}
		}
	}()
}

// Enqueue 投入一条入站事件，ctx 取消时放弃
func (q *Queue) Enqueue(ctx context.Context, info *connector.BroadcastInfo) {
	select {
	case q.ch <- info:
	case <-ctx.Done():
	}
}
