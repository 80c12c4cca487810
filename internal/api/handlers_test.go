package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/alerter"
	"github.com/darshan-rambhia/fleetglint/internal/cache"
	"github.com/darshan-rambhia/fleetglint/internal/command"
	"github.com/darshan-rambhia/fleetglint/internal/events"
	"github.com/darshan-rambhia/fleetglint/internal/ingest"
	"github.com/darshan-rambhia/fleetglint/internal/metrics"
	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/darshan-rambhia/fleetglint/internal/notify"
	"github.com/darshan-rambhia/fleetglint/internal/registry"
	"github.com/darshan-rambhia/fleetglint/internal/store"
	"github.com/darshan-rambhia/fleetglint/internal/throttle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const agentKey = "key-lab-01"

// failWriter is a ResponseWriter whose Write always returns an error.
// Used to exercise the "client disconnected" debug-log path in writeJSON.
type failWriter struct {
	header http.Header
}

func (fw *failWriter) Header() http.Header       { return fw.header }
func (fw *failWriter) WriteHeader(int)           {}
func (fw *failWriter) Write([]byte) (int, error) { return 0, errors.New("write failed") }

type recordingProvider struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Send(_ context.Context, n model.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return nil
}

func (p *recordingProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type inlineSubmitter struct{}

func (inlineSubmitter) Submit(_ context.Context, fn func()) error {
	fn()
	return nil
}

type testEnv struct {
	srv      *Server
	store    *store.Store
	cache    *cache.Cache
	provider *recordingProvider
	handler  http.Handler
}

func newTestEnv(t *testing.T, limit int, opts Options) *testEnv {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m := metrics.New()
	b := events.New(m)
	reg := registry.New(st)
	alerts := alerter.NewManager(st, m)
	c := cache.New()
	p := &recordingProvider{}
	thr := notify.NewThrottler(st, throttle.NewCooldown(throttle.NewMemoryStore()), inlineSubmitter{}, m, p)
	disp := command.NewDispatcher(st, reg, command.NewArtifacts(dir), b, m, command.Options{})

	srv := NewServer(":0", Deps{
		Store:    st,
		Registry: reg,
		Ingest: ingest.NewService(ingest.Deps{
			Store:     st,
			Registry:  reg,
			Alerts:    alerts,
			Cache:     c,
			Publisher: b,
			Notifier:  thr,
			Sweeper:   store.NewPruner(st, store.DefaultRetention()),
			Metrics:   m,
		}),
		Alerts:      alerts,
		Commands:    disp,
		Cache:       c,
		Broadcaster: b,
		Notifier:    thr,
		Settings:    notify.NewSettings(st),
		Limiter:     throttle.NewLimiter(throttle.NewMemoryStore(), limit, time.Minute),
		Metrics:     m,
	}, opts)
	return &testEnv{srv: srv, store: st, cache: c, provider: p, handler: srv.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch v := body.(type) {
	case nil:
	case string:
		buf.WriteString(v)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(v))
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func report(cpu float64) map[string]any {
	return map[string]any{
		"hostname":   "LAB-01",
		"ip_address": "10.0.0.11",
		"cpu_usage":  cpu,
		"ram_total":  16.0,
		"ram_used":   4.0,
		"ram_usage":  25.0,
		"disk_total": 500.0,
		"disk_used":  100.0,
		"disk_usage": 20.0,
	}
}

func (e *testEnv) ingest(t *testing.T, cpu float64) ingest.Result {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/agent/report", report(cpu), agentTokenHeader, agentKey)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res ingest.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// --- agent report ---

func TestReport_RegistersAndAlerts(t *testing.T) {
	e := newTestEnv(t, 100, Options{})

	res := e.ingest(t, 95)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.MachineID)
	assert.NotEmpty(t, res.ReportID)
	assert.Equal(t, []string{"CPU_HIGH"}, res.Alerts)

	w := e.do(t, http.MethodGet, "/api/alerts?resolved=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[model.AlertPage](t, w)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, model.AlertCPUHigh, page.Data[0].Type)
	assert.Equal(t, "LAB-01", page.Data[0].Hostname)

	sum := decode[model.FleetSummary](t, e.do(t, http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, 1, sum.TotalMachines)
	assert.Equal(t, 1, sum.Online)
	assert.Equal(t, 1, sum.UnresolvedAlerts)
	assert.InDelta(t, 95.0, sum.AvgCPU, 0.001)
}

func TestReport_RepeatRefreshesThenResolves(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	e.ingest(t, 95)
	e.ingest(t, 97)

	page := decode[model.AlertPage](t, e.do(t, http.MethodGet, "/api/alerts", nil))
	assert.Equal(t, 1, page.Total, "repeat trigger refreshes in place")

	res := e.ingest(t, 10)
	assert.Empty(t, res.Alerts)
	assert.NotNil(t, res.Alerts)

	page = decode[model.AlertPage](t, e.do(t, http.MethodGet, "/api/alerts?resolved=true", nil))
	require.Equal(t, 1, page.Total)
	assert.NotNil(t, page.Data[0].ResolvedAt)
	assert.Zero(t, decode[model.FleetSummary](t, e.do(t, http.MethodGet, "/api/dashboard", nil)).UnresolvedAlerts)
}

func TestReport_Unauthorized(t *testing.T) {
	e := newTestEnv(t, 100, Options{})

	w := e.do(t, http.MethodPost, "/api/agent/report", report(10))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())

	e.ingest(t, 10)
	w = e.do(t, http.MethodPost, "/api/agent/report", report(99), agentTokenHeader, "someone-else")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())

	page := decode[model.AlertPage](t, e.do(t, http.MethodGet, "/api/alerts", nil))
	assert.Zero(t, page.Total, "rejected report has no side effects")
}

func TestReport_Invalid(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	p := report(10)
	delete(p, "hostname")
	p["disk_usage"] = 150.0

	w := e.do(t, http.MethodPost, "/api/agent/report", p, agentTokenHeader, agentKey)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[errorResponse](t, w)
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, "hostname")
	assert.Contains(t, body.Fields, "disk_usage")

	ms := decode[[]model.Machine](t, e.do(t, http.MethodGet, "/api/machines", nil))
	assert.Empty(t, ms)
}

func TestReport_RateLimited(t *testing.T) {
	e := newTestEnv(t, 2, Options{})
	e.ingest(t, 10)
	e.ingest(t, 10)

	w := e.do(t, http.MethodPost, "/api/agent/report", report(10), agentTokenHeader, agentKey)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// Admin routes are not rate limited.
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/machines", nil).Code)
}

// --- commands ---

func TestCommandLifecycle(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	id := e.ingest(t, 10).MachineID

	w := e.do(t, http.MethodPost, "/api/commands", map[string]any{"machine_id": id, "action": "restart"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[model.Command](t, w)
	assert.Equal(t, model.CommandPending, created.Status)

	poll := func() []model.Command {
		w := e.do(t, http.MethodGet, "/api/agent/commands?hostname=LAB-01", nil, agentTokenHeader, agentKey)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode[struct {
			Commands []model.Command `json:"commands"`
		}](t, w).Commands
	}
	claimed := poll()
	require.Len(t, claimed, 1)
	assert.Equal(t, created.ID, claimed[0].ID)
	assert.Equal(t, model.CommandExecuting, claimed[0].Status)
	assert.Empty(t, poll(), "a claimed command is never delivered twice")

	resultPath := "/api/agent/commands/" + created.ID + "/result"
	w = e.do(t, http.MethodPost, resultPath, map[string]any{"success": true, "output": "done"}, agentTokenHeader, agentKey)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, resultPath, map[string]any{"success": false}, agentTokenHeader, agentKey)
	assert.Equal(t, http.StatusConflict, w.Code)

	cmds := decode[[]model.Command](t, e.do(t, http.MethodGet, "/api/commands?machine_id="+id, nil))
	require.Len(t, cmds, 1)
	assert.Equal(t, model.CommandCompleted, cmds[0].Status)
	require.NotNil(t, cmds[0].Result)
	assert.Equal(t, "done", *cmds[0].Result)
}

func TestCommandErrors(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	id := e.ingest(t, 10).MachineID

	w := e.do(t, http.MethodPost, "/api/commands", map[string]any{"machine_id": id, "action": "format_c"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/commands", map[string]any{"machine_id": "nope", "action": "restart"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, "/api/commands", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/commands?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/agent/commands", nil, agentTokenHeader, agentKey)
	assert.Equal(t, http.StatusBadRequest, w.Code, "hostname is required")

	w = e.do(t, http.MethodGet, "/api/agent/commands?hostname=LAB-01", nil, agentTokenHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/agent/commands/missing/result", map[string]any{"success": true}, agentTokenHeader, agentKey)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "unknown command ids are not disclosed")
}

func TestCommandResult_Screenshot(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	id := e.ingest(t, 10).MachineID

	created := decode[model.Command](t, e.do(t, http.MethodPost, "/api/commands",
		map[string]any{"machine_id": id, "action": command.ActionScreenshot}))
	e.do(t, http.MethodGet, "/api/agent/commands?hostname=LAB-01", nil, agentTokenHeader, agentKey)

	png := []byte("\x89PNG\r\n\x1a\nfake-image")
	w := e.do(t, http.MethodPost, "/api/agent/commands/"+created.ID+"/result",
		map[string]any{"success": true, "screenshot": base64.StdEncoding.EncodeToString(png)},
		agentTokenHeader, agentKey)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	shots := decode[[]model.Screenshot](t, e.do(t, http.MethodGet, "/api/machines/"+id+"/screenshots", nil))
	require.Len(t, shots, 1)
	assert.Equal(t, created.ID, shots[0].CommandID)

	w = e.do(t, http.MethodGet, "/api/screenshots/"+shots[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, png, w.Body.Bytes())

	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/screenshots/"+shots[0].ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/screenshots/"+shots[0].ID, nil).Code)
}

func TestCommandResult_BadScreenshot(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	w := e.do(t, http.MethodPost, "/api/agent/commands/x/result",
		map[string]any{"success": true, "screenshot": "***"}, agentTokenHeader, agentKey)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- machines ---

func TestMachines(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	id := e.ingest(t, 95).MachineID

	ms := decode[[]model.Machine](t, e.do(t, http.MethodGet, "/api/machines", nil))
	require.Len(t, ms, 1)
	assert.Equal(t, model.StatusOnline, ms[0].Status)

	w := e.do(t, http.MethodGet, "/api/machines/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[struct {
		Hostname     string        `json:"hostname"`
		LatestReport *model.Report `json:"latest_report"`
		Alerts       []model.Alert `json:"alerts"`
	}](t, w)
	assert.Equal(t, "LAB-01", detail.Hostname)
	require.NotNil(t, detail.LatestReport)
	assert.Equal(t, 95.0, detail.LatestReport.CPUUsage)
	assert.Len(t, detail.Alerts, 1)
	assert.NotContains(t, w.Body.String(), agentKey, "token is never serialized")

	reports := decode[[]model.Report](t, e.do(t, http.MethodGet, "/api/machines/"+id+"/reports?hours=2", nil))
	assert.Len(t, reports, 1)

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/machines/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/machines/nope/reports", nil).Code)
}

func TestMachineThresholds(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	id := e.ingest(t, 10).MachineID
	path := "/api/machines/" + id + "/thresholds"

	got := decode[thresholdsResponse](t, e.do(t, http.MethodGet, path, nil))
	assert.False(t, got.Custom)
	assert.Equal(t, 90.0, got.CPUThreshold)

	w := e.do(t, http.MethodPut, path, map[string]any{"cpu_threshold": 50})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got = decode[thresholdsResponse](t, e.do(t, http.MethodGet, path, nil))
	assert.True(t, got.Custom)
	assert.Equal(t, 50.0, got.CPUThreshold)
	assert.Equal(t, 85.0, got.RAMThreshold, "absent field takes the default")

	res := e.ingest(t, 60)
	assert.Equal(t, []string{"CPU_HIGH"}, res.Alerts, "override applies to the next report")

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPut, path, map[string]any{"ram_threshold": 120}).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPut, "/api/machines/nope/thresholds", map[string]any{}).Code)
}

func TestRotateToken(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	id := e.ingest(t, 10).MachineID

	w := e.do(t, http.MethodPost, "/api/machines/"+id+"/token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[map[string]string](t, w)["token"]
	require.NotEmpty(t, token)

	w = e.do(t, http.MethodPost, "/api/agent/report", report(10), agentTokenHeader, agentKey)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "old token stops working")
	w = e.do(t, http.MethodPost, "/api/agent/report", report(10), agentTokenHeader, token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteMachine(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	id := e.ingest(t, 95).MachineID

	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/machines/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/machines/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, "/api/machines/"+id, nil).Code)

	sum := decode[model.FleetSummary](t, e.do(t, http.MethodGet, "/api/dashboard", nil))
	assert.Zero(t, sum.TotalMachines)
	assert.Zero(t, sum.UnresolvedAlerts)
	assert.Zero(t, decode[model.AlertPage](t, e.do(t, http.MethodGet, "/api/alerts", nil)).Total)
}

// --- alerts ---

func TestAlerts_ManualResolve(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	e.ingest(t, 95)
	alert := decode[model.AlertPage](t, e.do(t, http.MethodGet, "/api/alerts", nil)).Data[0]

	w := e.do(t, http.MethodPatch, "/api/alerts/"+alert.ID, map[string]any{"resolved": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPatch, "/api/alerts/"+alert.ID, map[string]any{"resolved": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[model.Alert](t, w)
	assert.True(t, got.Resolved)
	assert.NotNil(t, got.ResolvedAt)
	assert.Zero(t, decode[model.FleetSummary](t, e.do(t, http.MethodGet, "/api/dashboard", nil)).UnresolvedAlerts)

	// The condition is still present, so the next report opens a new alert.
	e.ingest(t, 95)
	page := decode[model.AlertPage](t, e.do(t, http.MethodGet, "/api/alerts?resolved=false", nil))
	require.Equal(t, 1, page.Total)
	assert.NotEqual(t, alert.ID, page.Data[0].ID)

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPatch, "/api/alerts/nope", nil).Code)
}

func TestAlerts_BulkResolveAndDelete(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	p := report(95)
	p["ram_usage"] = 95.0
	w := e.do(t, http.MethodPost, "/api/agent/report", p, agentTokenHeader, agentKey)
	require.Equal(t, http.StatusOK, w.Code)

	page := decode[model.AlertPage](t, e.do(t, http.MethodGet, "/api/alerts", nil))
	require.Equal(t, 2, page.Total)

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/alerts/resolve", map[string]any{"ids": []string{}}).Code)

	w = e.do(t, http.MethodPost, "/api/alerts/resolve", map[string]any{"ids": []string{page.Data[0].ID}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[map[string]int64](t, w)["resolved"])

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodDelete, "/api/alerts?scope=some", nil).Code)

	w = e.do(t, http.MethodDelete, "/api/alerts?scope=resolved", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[map[string]int64](t, w)["deleted"])

	w = e.do(t, http.MethodDelete, "/api/alerts?scope=all", nil)
	assert.Equal(t, int64(1), decode[map[string]int64](t, w)["deleted"])
	assert.Zero(t, decode[model.FleetSummary](t, e.do(t, http.MethodGet, "/api/dashboard", nil)).UnresolvedAlerts)
}

func TestAlerts_ListParams(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	e.ingest(t, 95)

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/alerts?resolved=maybe", nil).Code)

	page := decode[model.AlertPage](t, e.do(t, http.MethodGet, "/api/alerts?limit=500&page=0", nil))
	assert.Equal(t, 100, page.Limit, "limit is clamped")
	assert.Equal(t, 1, page.Page)

	page = decode[model.AlertPage](t, e.do(t, http.MethodGet, "/api/alerts?search=LAB", nil))
	assert.Equal(t, 1, page.Total)
	page = decode[model.AlertPage](t, e.do(t, http.MethodGet, "/api/alerts?search=printer", nil))
	assert.Zero(t, page.Total)
}

// --- settings ---

func TestNotifySettings(t *testing.T) {
	e := newTestEnv(t, 100, Options{})

	got := decode[notify.MaskedConfig](t, e.do(t, http.MethodGet, "/api/settings/notify", nil))
	assert.False(t, got.HasToken)
	assert.Equal(t, 15, got.CooldownMinutes)

	w := e.do(t, http.MethodPut, "/api/settings/notify", map[string]any{"enabled": true, "line_token": "abcdef-secret-1234"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "secret")

	got = decode[notify.MaskedConfig](t, e.do(t, http.MethodGet, "/api/settings/notify", nil))
	assert.True(t, got.Enabled)
	assert.True(t, got.HasToken)
	assert.Equal(t, "abcdef...1234", got.LineToken)

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPut, "/api/settings/notify", map[string]any{"cooldown_minutes": -1}).Code)
}

func TestNotifyTest(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	w := e.do(t, http.MethodPost, "/api/settings/notify/test", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, e.provider.count(), "static provider receives the test message")
}

func TestReport_NotifiesWhenEnabled(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	e.do(t, http.MethodPut, "/api/settings/notify", map[string]any{"enabled": true})

	e.ingest(t, 95)
	e.ingest(t, 95)
	assert.Equal(t, 1, e.provider.count(), "second report is inside the cooldown")
}

// --- admin gate, health, metrics, swagger ---

func TestAdminGate(t *testing.T) {
	e := newTestEnv(t, 100, Options{AdminToken: "s3cret"})

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/machines", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/machines", nil, "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/machines", nil, "Authorization", "Bearer s3cret").Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/machines?token=s3cret", nil).Code)

	// Agent and service routes are not behind the admin gate.
	e.ingest(t, 10)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/healthz", nil).Code)
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	w := e.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])

	e.store.Close()
	w = e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	e.ingest(t, 95)
	w := e.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `fleetglint_ingest_reports_total{result="accepted"} 1`)
}

func TestSecurityHeaders(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	w := e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestSwaggerUI(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	w := e.do(t, http.MethodGet, "/swagger/doc.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/agent/report")
}

func TestSwaggerDoc_CoversRoutes(t *testing.T) {
	e := newTestEnv(t, 100, Options{})
	w := e.do(t, http.MethodGet, "/swagger/doc.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode[struct {
		Host  string                                `json:"host"`
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}](t, w)
	assert.Equal(t, "localhost:3800", doc.Host)

	routes := []string{
		"POST /api/agent/report",
		"GET /api/agent/commands",
		"POST /api/agent/commands/{id}/result",
		"GET /api/machines",
		"GET /api/machines/{id}",
		"DELETE /api/machines/{id}",
		"POST /api/machines/{id}/token",
		"GET /api/machines/{id}/reports",
		"GET /api/machines/{id}/thresholds",
		"PUT /api/machines/{id}/thresholds",
		"GET /api/machines/{id}/screenshots",
		"DELETE /api/machines/{id}/screenshots",
		"GET /api/screenshots/{id}",
		"DELETE /api/screenshots/{id}",
		"GET /api/alerts",
		"DELETE /api/alerts",
		"PATCH /api/alerts/{id}",
		"POST /api/alerts/resolve",
		"POST /api/commands",
		"GET /api/commands",
		"GET /api/settings/notify",
		"PUT /api/settings/notify",
		"POST /api/settings/notify/test",
		"GET /api/dashboard",
		"GET /ws",
		"GET /healthz",
	}
	documented := 0
	for _, ops := range doc.Paths {
		documented += len(ops)
	}
	assert.Equal(t, len(routes), documented)
	for _, route := range routes {
		method, path, _ := strings.Cut(route, " ")
		assert.Contains(t, doc.Paths[path], strings.ToLower(method), route)
	}
}

// --- helpers ---

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		body   string
	}{
		{model.NewValidationError("hostname", "is required"), http.StatusBadRequest, `{"error":"validation failed","fields":{"hostname":"is required"}}`},
		{fmt.Errorf("machine x: %w", model.ErrUnauthorized), http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{fmt.Errorf("machine x: %w", model.ErrNotFound), http.StatusNotFound, `{"error":"not found"}`},
		{model.ErrRateLimited, http.StatusTooManyRequests, `{"error":"rate limited"}`},
		{fmt.Errorf("cmd: %w", model.ErrInvalidTransition), http.StatusConflict, `{"error":"command is not executing"}`},
		{model.Transient("storing report", errors.New("disk I/O error")), http.StatusServiceUnavailable, `{"error":"temporarily unavailable"}`},
		{errors.New("boom"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
			assert.NotContains(t, w.Body.String(), "disk I/O")
		})
	}
}

func TestWriteJSON_EncodeError(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, httptest.NewRequest(http.MethodGet, "/x", nil), http.StatusOK, map[string]any{"bad": make(chan int)})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWriteJSON_WriteError(t *testing.T) {
	fw := &failWriter{header: make(http.Header)}
	writeJSON(fw, httptest.NewRequest(http.MethodGet, "/x", nil), http.StatusOK, map[string]string{"ok": "yes"})
	assert.Equal(t, "application/json", fw.header.Get("Content-Type"))
}

func TestReadBody_TooLarge(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x", bytes.NewReader(make([]byte, 64)))
	_, err := readBody(httptest.NewRecorder(), req, 16)
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "body")
}
