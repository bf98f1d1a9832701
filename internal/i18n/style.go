package i18n

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/xieyuen/PF-GUGUBot/pkg/logger"
)

const reloadDebounce = 100 * time.Millisecond

// StyleManager 风格覆盖提供者。
//
// 从独立的风格文件加载文案覆盖，文件变更时热重载。
// 查找优先级高于默认翻译，未命中的键回退到 Translator。
type StyleManager struct {
	path     string
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once

	entries map[string]string
	reload  *time.Timer
	mu      sync.RWMutex
}

// NewStyleManager 创建风格管理器并做首次加载
func NewStyleManager(path string) (*StyleManager, error) {
	entries, err := loadYAMLFile(path)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = make(map[string]string)
	}

	return &StyleManager{
		path:    path,
		stopCh:  make(chan struct{}),
		entries: entries,
	}, nil
}

// GetTranslation 查找风格覆盖，未命中返回 false
func (s *StyleManager) GetTranslation(key string, kwargs map[string]string) (string, bool) {
	s.mu.RLock()
	text, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	return interpolate(text, kwargs), true
}

// Watch 开始监听风格文件变更
func (s *StyleManager) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = w

	if err := w.Add(s.path); err != nil {
		logger.Warn().Err(err).Str("path", s.path).Msg("监听风格文件失败")
	}

	go s.run()
	return nil
}

// run 处理文件系统事件
func (s *StyleManager) run() {
	for {
		select {
		case <-s.stopCh:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				s.scheduleReload()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Msg("风格文件监听错误")
		}
	}
}

// scheduleReload 防抖后重新加载风格文件
func (s *StyleManager) scheduleReload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reload != nil {
		s.reload.Stop()
	}
	s.reload = time.AfterFunc(reloadDebounce, func() {
		entries, err := loadYAMLFile(s.path)
		if err != nil {
			logger.Error().Err(err).Str("path", s.path).Msg("重载风格文件失败")
			return
		}
		if entries == nil {
			entries = make(map[string]string)
		}

		s.mu.Lock()
		s.entries = entries
		s.mu.Unlock()
		logger.Info().Str("path", s.path).Int("keys", len(entries)).Msg("风格文件已重载")
	})
}

// Close 停止监听
func (s *StyleManager) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
