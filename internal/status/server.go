// Package status exposes the HTTP status endpoint.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/xieyuen/PF-GUGUBot/internal/config"
	"github.com/xieyuen/PF-GUGUBot/internal/system"
	pkgconn "github.com/xieyuen/PF-GUGUBot/pkg/connector"
	"github.com/xieyuen/PF-GUGUBot/pkg/logger"
)

// ConnectorLister 连接器状态来源
type ConnectorLister interface {
	Connectors() []pkgconn.Connector
}

// SystemLister 系统状态来源
type SystemLister interface {
	Systems() []system.System
}

// ConnectorStatus 单个连接器的状态快照
type ConnectorStatus struct {
	Name           string `json:"name"`
	Enabled        bool   `json:"enabled"`
	SendEnabled    bool   `json:"send_enabled"`
	ReceiveEnabled bool   `json:"receive_enabled"`
}

// SystemStatus 单个系统的状态快照
type SystemStatus struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Snapshot /status 的响应体
type Snapshot struct {
	BotName       string            `json:"bot_name"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Connectors    []ConnectorStatus `json:"connectors"`
	Systems       []SystemStatus    `json:"systems"`
}

// Server 状态服务
type Server struct {
	cfg        *config.Config
	conns      ConnectorLister
	systems    SystemLister
	httpServer *http.Server
	startedAt  time.Time
	log        zerolog.Logger
}

// NewServer 创建状态服务
func NewServer(cfg *config.Config, conns ConnectorLister, systems SystemLister) *Server {
	s := &Server{
		cfg:       cfg,
		conns:     conns,
		systems:   systems,
		startedAt: time.Now(),
		log:       logger.Component("status"),
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler 返回 HTTP 处理器，测试用
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start 在配置的地址上启动监听。
// status.enable 为 false 时不做任何事。
func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.GetKeysBool(true, "status", "enable") {
		return nil
	}

	host := s.cfg.GetKeysString("127.0.0.1", "status", "host")
	port := s.cfg.GetInt(config.Key("status", "port"), 18799)
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.log.Info().Str("addr", addr).Msg("状态服务已启动")
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("状态服务异常退出")
		}
	}()
	return nil
}

// Stop 关闭状态服务
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleHealthz 存活检查
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus 返回连接器与系统的状态快照
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := Snapshot{
		BotName:       s.cfg.GetKeysString("GUGUBot", "gugubot", "bot_name"),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Connectors:    []ConnectorStatus{},
		Systems:       []SystemStatus{},
	}

	for _, c := range s.conns.Connectors() {
		snapshot.Connectors = append(snapshot.Connectors, ConnectorStatus{
			Name:           c.Name(),
			Enabled:        c.Enabled(),
			SendEnabled:    c.SendEnabled(),
			ReceiveEnabled: c.ReceiveEnabled(),
		})
	}
	for _, sys := range s.systems.Systems() {
		snapshot.Systems = append(snapshot.Systems, SystemStatus{
			Name:    sys.Name(),
			Enabled: sys.Enabled(),
		})
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// writeJSON 写出 JSON 响应
func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
