// Package connector provides the connector registry and broadcast fan-out.
package connector

import (
	"context"
	"fmt"
	"sync"

	"github.com/xieyuen/PF-GUGUBot/pkg/connector"
	"github.com/xieyuen/PF-GUGUBot/pkg/logger"
)

// BroadcastOptions 控制广播的目标集合。
//
// Include 非空时只投递给列出的连接器；否则投递给除 Exclude 外的所有连接器。
type BroadcastOptions struct {
	Include []string
	Exclude []string
}

// Manager 连接器注册表
type Manager struct {
	connectors map[string]connector.Connector
	order      []string
	mu         sync.RWMutex
}

// NewManager 创建连接器注册表
func NewManager() *Manager {
	return &Manager{
		connectors: make(map[string]connector.Connector),
	}
}

// Register 注册连接器
func (m *Manager) Register(c connector.Connector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.connectors[c.Name()]; !exists {
		m.order = append(m.order, c.Name())
	}
	m.connectors[c.Name()] = c
}

// Get 获取指定连接器，不存在时返回 nil
func (m *Manager) Get(name string) connector.Connector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connectors[name]
}

// Connectors 按注册顺序返回所有连接器
func (m *Manager) Connectors() []connector.Connector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]connector.Connector, 0, len(m.order))
	for _, name := range m.order {
		result = append(result, m.connectors[name])
	}
	return result
}

// Count 返回注册的连接器数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connectors)
}

// StartAll 启动所有启用的连接器
func (m *Manager) StartAll(ctx context.Context) error {
	for _, c := range m.Connectors() {
		if !c.Enabled() {
			continue
		}
		if err := c.Start(ctx); err != nil {
			return fmt.Errorf("start connector %s: %w", c.Name(), err)
		}
	}
	return nil
}

// StopAll 停止所有连接器
func (m *Manager) StopAll(ctx context.Context) error {
	var lastErr error
	for _, c := range m.Connectors() {
		if err := c.Stop(ctx); err != nil {
			lastErr = fmt.Errorf("stop connector %s: %w", c.Name(), err)
		}
	}
	return lastErr
}

// BroadcastProcessedInfo 将出站消息投递到目标连接器集合。
//
// 各目标的发送并发执行；单个目标失败只记录日志，不影响其他目标，
// 也不作为整体错误返回。
func (m *Manager) BroadcastProcessedInfo(ctx context.Context, info *connector.ProcessedInfo, opts BroadcastOptions) error {
	if info == nil {
		return fmt.Errorf("processed info is nil")
	}

	targets := m.resolveTargets(opts)
	if len(targets) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, c := range targets {
		wg.Add(1)
		go func(c connector.Connector) {
			defer wg.Done()
			if err := c.Send(ctx, info); err != nil {
				logger.Error().
					Err(err).
					Str("connector", c.Name()).
					Msg("投递消息失败")
			}
		}(c)
	}
	wg.Wait()
	return nil
}

// resolveTargets 根据 Include/Exclude 计算目标连接器列表
func (m *Manager) resolveTargets(opts BroadcastOptions) []connector.Connector {
	if len(opts.Include) > 0 {
		result := make([]connector.Connector, 0, len(opts.Include))
		for _, name := range opts.Include {
			if c := m.Get(name); c != nil {
				result = append(result, c)
			}
		}
		return result
	}

	excluded := make(map[string]struct{}, len(opts.Exclude))
	for _, name := range opts.Exclude {
		excluded[name] = struct{}{}
	}

	var result []connector.Connector
	for _, c := range m.Connectors() {
		if _, skip := excluded[c.Name()]; skip {
			continue
		}
		result = append(result, c)
	}
	return result
}
