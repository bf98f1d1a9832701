// Package app wires the relay components into a runnable application.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/xieyuen/PF-GUGUBot/internal/bound"
	"github.com/xieyuen/PF-GUGUBot/internal/config"
	internalconn "github.com/xieyuen/PF-GUGUBot/internal/connector"
	"github.com/xieyuen/PF-GUGUBot/internal/connector/bridge"
	"github.com/xieyuen/PF-GUGUBot/internal/connector/minecraft"
	"github.com/xieyuen/PF-GUGUBot/internal/connector/qq"
	"github.com/xieyuen/PF-GUGUBot/internal/i18n"
	"github.com/xieyuen/PF-GUGUBot/internal/schedule"
	"github.com/xieyuen/PF-GUGUBot/internal/status"
	"github.com/xieyuen/PF-GUGUBot/internal/system"
	pkgconn "github.com/xieyuen/PF-GUGUBot/pkg/connector"
	"github.com/xieyuen/PF-GUGUBot/pkg/logger"
)

// App 机器人应用，持有全部组件并管理其生命周期
type App struct {
	cfg       *config.Config
	conns     *internalconn.Manager
	systems   *system.Manager
	queue     *system.Queue
	players   *bound.Store
	style     *i18n.StyleManager
	scheduler *schedule.Scheduler
	statusSrv *status.Server
	log       zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool
}

// Options 应用构建参数
type Options struct {
	// ConfigPath 配置文件路径，空值时使用默认路径
	ConfigPath string

	// StoragePath 绑定数据库路径，空值时使用配置或默认路径
	StoragePath string

	// LogLevel 覆盖配置中的日志级别，空值时不覆盖
	LogLevel string
}

// New 构建应用并完成组件装配
func New(opts Options) (*App, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		var err error
		configPath, err = config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.GetKeysString("info", "log", "level")
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	if err := logger.Init(logger.LogConfig{
		Level:  level,
		Format: cfg.GetKeysString("console", "log", "format"),
		File:   cfg.GetKeysString("", "log", "file"),
	}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &App{
		cfg: cfg,
		log: logger.Component("app"),
	}
	if err := app.assemble(opts); err != nil {
		return nil, err
	}
	return app, nil
}

// assemble 装配连接器、系统与周边服务
func (a *App) assemble(opts Options) error {
	cfg := a.cfg

	// 翻译与风格覆盖
	translator, err := i18n.NewTranslator(
		cfg.GetKeysString("", "i18n", "dir"),
		cfg.GetKeysString("zh_cn", "i18n", "locale"),
	)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	var style *i18n.StyleManager
	if styleFile := cfg.GetKeysString("", "style", "file"); styleFile != "" {
		style, err = i18n.NewStyleManager(styleFile)
		if err != nil {
			return fmt.Errorf("load style file: %w", err)
		}
		a.style = style
	}

	// 玩家绑定存储
	storagePath := opts.StoragePath
	if storagePath == "" {
		storagePath = cfg.GetKeysString("", "storage", "path")
	}
	if storagePath == "" {
		storagePath, err = config.DefaultDataPath()
		if err != nil {
			return err
		}
	}
	players, err := bound.Open(storagePath)
	if err != nil {
		return fmt.Errorf("open binding store: %w", err)
	}
	a.players = players

	// 连接器。Minecraft 不持有独立链路，出站经桥接连接器投递。
	a.conns = internalconn.NewManager()
	bridgeConn := bridge.New(cfg)
	a.conns.Register(qq.New(cfg))
	a.conns.Register(minecraft.New(cfg, bridgeConn))
	a.conns.Register(bridgeConn)

	// 系统链。绑定提醒先行（从不拦截），跨服优先于普通转发。
	deps := system.Deps{
		Config:     cfg,
		Connectors: a.conns,
		Translator: translator,
		Style:      styleAdapter(style),
	}
	a.systems = system.NewManager()
	a.systems.Register(system.NewBoundNoticeSystem(deps, players))
	a.systems.Register(system.NewCrossBroadcastSystem(deps))
	a.systems.Register(system.NewEchoSystem(deps))

	// 各连接器的读循环在独立 goroutine 上，入站事件统一经队列
	// 串行分发，处理链之间不会交叠。
	a.queue = system.NewQueue(a.systems, 0)
	for _, c := range a.conns.Connectors() {
		c.OnBroadcast(func(ctx context.Context, info *pkgconn.BroadcastInfo) {
			a.queue.Enqueue(ctx, info)
		})
	}

	// 周边服务
	a.scheduler = schedule.NewScheduler(cfg, a.conns)
	a.statusSrv = status.NewServer(cfg, a.conns, a.systems)

	return nil
}

// styleAdapter 将可能为 nil 的 StyleManager 适配为系统层接口
func styleAdapter(style *i18n.StyleManager) system.StyleProvider {
	if style == nil {
		return nil
	}
	return style
}

// Start 启动全部组件
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return fmt.Errorf("app already running")
	}

	a.ctx, a.cancel = context.WithCancel(context.Background())

	a.queue.Start(a.ctx)
	if err := a.conns.StartAll(a.ctx); err != nil {
		return fmt.Errorf("start connectors: %w", err)
	}
	if err := a.scheduler.Start(a.ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := a.statusSrv.Start(a.ctx); err != nil {
		return fmt.Errorf("start status server: %w", err)
	}
	if a.style != nil {
		if err := a.style.Watch(); err != nil {
			a.log.Warn().Err(err).Msg("风格文件监听启动失败")
		}
	}

	a.running = true
	a.log.Info().
		Int("connectors", a.conns.Count()).
		Int("systems", len(a.systems.Systems())).
		Msg("应用已启动")
	return nil
}

// Stop 按相反顺序关闭全部组件
func (a *App) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var lastErr error
	if err := a.statusSrv.Stop(shutdownCtx); err != nil {
		lastErr = err
	}
	a.scheduler.Stop()
	if err := a.conns.StopAll(shutdownCtx); err != nil {
		lastErr = err
	}
	if a.style != nil {
		a.style.Close()
	}
	if err := a.players.Close(); err != nil {
		lastErr = err
	}
	a.cancel()
	a.running = false

	a.log.Info().Msg("应用已停止")
	if lastErr != nil {
		return lastErr
	}
	return logger.Close()
}

// Config 返回应用配置
func (a *App) Config() *config.Config {
	return a.cfg
}

// Players 返回玩家绑定存储
func (a *App) Players() *bound.Store {
	return a.players
}

// Connectors 返回连接器注册表
func (a *App) Connectors() *internalconn.Manager {
	return a.conns
}

// Systems 返回系统分发器
func (a *App) Systems() *system.Manager {
	return a.systems
}
