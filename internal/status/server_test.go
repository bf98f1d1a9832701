package status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xieyuen/PF-GUGUBot/internal/config"
	"github.com/xieyuen/PF-GUGUBot/internal/system"
	pkgconn "github.com/xieyuen/PF-GUGUBot/pkg/connector"
)

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
func (f *fakeConnector) Send(ctx context.Context, info *pkgconn.ProcessedInfo) error { return nil }
func (f *fakeConnector) OnBroadcast(handler pkgconn.BroadcastHandler) {}

type fakeConnectorLister struct {
	conns []pkgconn.Connector
}

func (f *fakeConnectorLister) Connectors() []pkgconn.Connector { return f.conns }

type fakeSystem struct {
	name    string
	enabled bool
}

func (f *fakeSystem) Name() string { return f.name }
func (f *fakeSystem) Enabled() bool { return f.enabled }
func (f *fakeSystem) Dispatch(ctx context.Context, info *pkgconn.BroadcastInfo) bool {
	return false
}

type fakeSystemLister struct {
	systems []system.System
}

func (f *fakeSystemLister) Systems() []system.System { return f.systems }

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)

	conns := &fakeConnectorLister{conns: []pkgconn.Connector{
		&fakeConnector{name: "QQ", enable: true, enableSend: true, enableReceive: true},
		&fakeConnector{name: "Bridge", enable: true, enableSend: true, enableReceive: false},
	}}
	systems := &fakeSystemLister{systems: []system.System{
		&fakeSystem{name: "echo", enabled: true},
		&fakeSystem{name: "bound_notice", enabled: false},
	}}
	return NewServer(cfg, conns, systems)
}

func TestHealthz(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestStatusSnapshot(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snapshot Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))

	assert.Equal(t, "GUGUBot", snapshot.BotName)
	require.Len(t, snapshot.Connectors, 2)
	assert.Equal(t, "QQ", snapshot.Connectors[0].Name)
	assert.True(t, snapshot.Connectors[0].ReceiveEnabled)
	assert.False(t, snapshot.Connectors[1].ReceiveEnabled)

	require.Len(t, snapshot.Systems, 2)
	assert.Equal(t, "echo", snapshot.Systems[0].Name)
	assert.True(t, snapshot.Systems[0].Enabled)
	assert.False(t, snapshot.Systems[1].Enabled)
}

func TestStatusMethodNotAllowed(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStartDisabled(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Set("status.enable", false))

	s := NewServer(cfg, &fakeConnectorLister{}, &fakeSystemLister{})
	require.NoError(t, s.Start(context.Background()))
}

func TestStartAndShutdown(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Set("status.port", 0)) // 随机端口

	s := NewServer(cfg, &fakeConnectorLister{}, &fakeSystemLister{})
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
