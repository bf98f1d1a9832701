// Package schedule broadcasts configured announcements on cron schedules.
package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/xieyuen/PF-GUGUBot/internal/config"
	internalconn "github.com/xieyuen/PF-GUGUBot/internal/connector"
	pkgconn "github.com/xieyuen/PF-GUGUBot/pkg/connector"
	"github.com/xieyuen/PF-GUGUBot/pkg/logger"
	"github.com/xieyuen/PF-GUGUBot/pkg/message"
)

// Broadcaster 公告投递所需的连接器能力
type Broadcaster interface {
	Connectors() []pkgconn.Connector
	BroadcastProcessedInfo(ctx context.Context, info *pkgconn.ProcessedInfo, opts internalconn.BroadcastOptions) error
}

// Announcement 一条定时公告
type Announcement struct {
	// Name 公告标识，仅用于日志
	Name string `mapstructure:"name"`

	// Cron 标准五段 cron 表达式，也支持 @every 等描述符
	Cron string `mapstructure:"cron"`

	// Message 公告文本
	Message string `mapstructure:"message"`

	// Targets 目标连接器名，为空时投递到所有接收端
	Targets []string `mapstructure:"targets"`
}

// Scheduler 定时公告调度器
type Scheduler struct {
	cfg   *config.Config
	conns Broadcaster
	cron  *cron.Cron
	log   zerolog.Logger
	count int
}

// NewScheduler 创建公告调度器
func NewScheduler(cfg *config.Config, conns Broadcaster) *Scheduler {
	return &Scheduler{
		cfg:   cfg,
		conns: conns,
		cron:  cron.New(),
		log:   logger.Component("schedule"),
	}
}

// Start 加载公告配置并启动调度。
// schedule.enable 为 false 时不做任何事。
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.GetKeysBool(false, "schedule", "enable") {
		return nil
	}

	announcements, err := s.loadAnnouncements()
	if err != nil {
		return err
	}

	for _, ann := range announcements {
		ann := ann
		if _, err := s.cron.AddFunc(ann.Cron, func() {
			s.announce(ctx, ann)
		}); err != nil {
			return fmt.Errorf("register announcement %q: %w", ann.Name, err)
		}
		s.count++
	}

	s.cron.Start()
	s.log.Info().Int("announcements", s.count).Msg("公告调度已启动")
	return nil
}

// Stop 停止调度并等待进行中的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Count 已注册的公告数量
func (s *Scheduler) Count() int {
	return s.count
}

// loadAnnouncements 从配置读取公告列表并校验
func (s *Scheduler) loadAnnouncements() ([]Announcement, error) {
	var announcements []Announcement
	if err := s.cfg.UnmarshalKey(config.Key("schedule", "announcements"), &announcements); err != nil {
		return nil, fmt.Errorf("parse announcements: %w", err)
	}

	result := announcements[:0]
	for _, ann := range announcements {
		if ann.Cron == "" || ann.Message == "" {
			s.log.Warn().Str("name", ann.Name).Msg("忽略缺少 cron 或 message 的公告")
			continue
		}
		result = append(result, ann)
	}
	return result, nil
}

// announce 投递一条公告到目标连接器。
// 未显式指定目标时，投递到所有允许接收的连接器。
func (s *Scheduler) announce(ctx context.Context, ann Announcement) {
	targets := s.resolveTargets(ann)
	if len(targets) == 0 {
		return
	}

	info := &pkgconn.ProcessedInfo{
		ProcessedMessage: message.Message{message.Text(ann.Message)},
		Sender:           s.cfg.GetKeysString("GUGUBot", "gugubot", "bot_name"),
	}

	if err := s.conns.BroadcastProcessedInfo(ctx, info, internalconn.BroadcastOptions{Include: targets}); err != nil {
		s.log.Error().Err(err).Str("name", ann.Name).Msg("公告投递失败")
		return
	}
	s.log.Debug().Str("name", ann.Name).Strs("targets", targets).Msg("公告已投递")
}

// resolveTargets 计算公告的目标集合，过滤掉不接收转发的连接器
func (s *Scheduler) resolveTargets(ann Announcement) []string {
	allowed := make(map[string]bool)
	var order []string
	for _, c := range s.conns.Connectors() {
		if c.Enabled() && c.ReceiveEnabled() {
			allowed[c.Name()] = true
			order = append(order, c.Name())
		}
	}

	if len(ann.Targets) == 0 {
		return order
	}

	var result []string
	for _, name := range ann.Targets {
		if allowed[name] {
			result = append(result, name)
		}
	}
	return result
}
