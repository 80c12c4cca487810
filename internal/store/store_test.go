package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t testing.TB) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedMachine(t testing.TB, s *Store, hostname string, now time.Time) *model.Machine {
	t.Helper()
	m, created, err := s.UpsertMachine(context.Background(), hostname, "tok-"+hostname, model.MachineFields{}, now)
	require.NoError(t, err)
	require.True(t, created)
	return m
}

func insertReport(t testing.TB, s *Store, machineID string, cpu float64, at time.Time) *model.Report {
	t.Helper()
	r := &model.Report{
		MachineID: machineID,
		CPUUsage:  cpu,
		RAMTotal:  16,
		RAMUsed:   8,
		RAMUsage:  50,
		DiskTotal: 500,
		DiskUsed:  100,
		DiskUsage: 20,
		NetworkUp: true,
		CreatedAt: at,
	}
	require.NoError(t, s.InsertReport(context.Background(), r))
	return r
}

func TestNew(t *testing.T) {
	s := newTestStore(t)
	assert.NotNil(t, s)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestNew_InvalidPath(t *testing.T) {
	// parent "directory" is a regular file
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := New(filepath.Join(blocker, "test.db"))
	assert.Error(t, err)
}

func TestNew_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := New(path)
	require.NoError(t, err)
	seedMachine(t, s, "LAB-01", time.Now())
	require.NoError(t, s.Close())

	s2, err := New(path)
	require.NoError(t, err)
	defer s2.Close()
	m, err := s2.GetMachineByHostname(context.Background(), "LAB-01")
	require.NoError(t, err)
	assert.Equal(t, "LAB-01", m.Hostname)
}

func TestUpsertMachine_CreateThenUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	m, created, err := s.UpsertMachine(ctx, "LAB-01", "secret", model.MachineFields{OSVersion: "Windows 11"}, t0)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "unknown", m.IPAddress)
	assert.Equal(t, "General", m.Department)
	assert.Equal(t, "Windows 11", m.OSVersion)
	assert.Equal(t, t0, m.CreatedAt)

	t1 := t0.Add(time.Minute)
	m2, created, err := s.UpsertMachine(ctx, "LAB-01", "secret", model.MachineFields{IPAddress: "10.0.0.5", Department: "Lab"}, t1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, m.ID, m2.ID)
	assert.Equal(t, "10.0.0.5", m2.IPAddress)
	assert.Equal(t, "Lab", m2.Department)
	assert.Equal(t, "Windows 11", m2.OSVersion, "empty field keeps stored value")
	assert.Equal(t, t1, m2.LastSeenAt)

	got, err := s.GetMachine(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", got.IPAddress)
	assert.Equal(t, "Windows 11", got.OSVersion)
	assert.Equal(t, t1, got.LastSeenAt)
	assert.Equal(t, t0, got.CreatedAt)
}

func TestUpsertMachine_WrongToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	t0 := time.Now().UTC()

	m, _, err := s.UpsertMachine(ctx, "LAB-01", "secret", model.MachineFields{IPAddress: "10.0.0.5"}, t0)
	require.NoError(t, err)

	_, _, err = s.UpsertMachine(ctx, "LAB-01", "other", model.MachineFields{IPAddress: "10.9.9.9"}, t0.Add(time.Hour))
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	got, err := s.GetMachine(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", got.IPAddress)
	assert.Equal(t, m.LastSeenAt, got.LastSeenAt)
}

func TestAuthenticateMachine(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := seedMachine(t, s, "LAB-01", time.Now())

	got, err := s.AuthenticateMachine(ctx, "LAB-01", "tok-LAB-01")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	_, err = s.AuthenticateMachine(ctx, "LAB-01", "nope")
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = s.AuthenticateMachine(ctx, "LAB-99", "tok-LAB-99")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestMachineAdmin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	b := seedMachine(t, s, "LAB-02", now)
	a := seedMachine(t, s, "LAB-01", now)

	list, err := s.ListMachines(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "LAB-01", list[0].Hostname)
	assert.Equal(t, "LAB-02", list[1].Hostname)

	require.NoError(t, s.SetMachineToken(ctx, a.ID, "rotated"))
	_, err = s.AuthenticateMachine(ctx, "LAB-01", "tok-LAB-01")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	_, err = s.AuthenticateMachine(ctx, "LAB-01", "rotated")
	assert.NoError(t, err)
	assert.ErrorIs(t, s.SetMachineToken(ctx, "missing", "x"), model.ErrNotFound)

	insertReport(t, s, b.ID, 10, now)
	require.NoError(t, s.DeleteMachine(ctx, b.ID))
	_, err = s.GetMachine(ctx, b.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.LatestReport(ctx, b.ID)
	assert.ErrorIs(t, err, model.ErrNotFound, "reports cascade with the machine")
	assert.ErrorIs(t, s.DeleteMachine(ctx, b.ID), model.ErrNotFound)
}

func TestReports(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := seedMachine(t, s, "LAB-01", now)

	cores := 8
	temp := 61.5
	r := &model.Report{
		MachineID:       m.ID,
		CPUUsage:        42,
		CPUCores:        &cores,
		CPUTemp:         &temp,
		CPUSpeed:        "3.2 GHz",
		RAMUsage:        50,
		DiskUsage:       70,
		NetworkUp:       true,
		AntivirusStatus: "enabled",
		EventLogErrors:  2,
		Telemetry: model.Telemetry{
			"software": json.RawMessage(`[{"name":"7-Zip"}]`),
		},
		CreatedAt: now,
	}
	require.NoError(t, s.InsertReport(ctx, r))
	assert.NotEmpty(t, r.ID)
	insertReport(t, s, m.ID, 10, now.Add(-2*time.Hour))

	latest, err := s.LatestReport(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, latest.ID)
	require.NotNil(t, latest.CPUCores)
	assert.Equal(t, 8, *latest.CPUCores)
	require.NotNil(t, latest.CPUTemp)
	assert.Equal(t, 61.5, *latest.CPUTemp)
	assert.Nil(t, latest.Uptime)
	assert.Equal(t, "3.2 GHz", latest.CPUSpeed)
	assert.Equal(t, 2, latest.EventLogErrors)
	assert.JSONEq(t, `[{"name":"7-Zip"}]`, string(latest.Telemetry["software"]))

	all, err := s.ListReports(ctx, m.ID, now.Add(-3*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 10.0, all[0].CPUUsage, "oldest first")

	recent, err := s.ListReports(ctx, m.ID, now.Add(-time.Hour), 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	byMachine, err := s.LatestReports(ctx)
	require.NoError(t, err)
	require.Contains(t, byMachine, m.ID)
	assert.Equal(t, r.ID, byMachine[m.ID].ID)

	n, err := s.DeleteReportsBefore(ctx, m.ID, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLatestReport_None(t *testing.T) {
	s := newTestStore(t)
	m := seedMachine(t, s, "LAB-01", time.Now())
	_, err := s.LatestReport(context.Background(), m.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestThresholds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := seedMachine(t, s, "LAB-01", time.Now())

	_, found, err := s.GetThreshold(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, found)

	th := model.AlertThreshold{MachineID: m.ID, CPUThreshold: 80, RAMThreshold: 70, DiskThreshold: 60, UpdatedAt: time.Now()}
	require.NoError(t, s.UpsertThreshold(ctx, th))
	th.CPUThreshold = 75
	require.NoError(t, s.UpsertThreshold(ctx, th))

	got, found, err := s.GetThreshold(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 75.0, got.CPUThreshold)
	assert.Equal(t, 70.0, got.RAMThreshold)
	assert.False(t, got.EventLogErrors)
}

func TestNotificationConfig(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.GetNotificationConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultNotificationConfig(), c)

	c.Enabled = true
	c.LineToken = "line-token-value"
	c.CooldownMinutes = 5
	c.NotifyOffline = false
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveNotificationConfig(ctx, c, now))

	got, err := s.GetNotificationConfig(ctx)
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.Equal(t, "line-token-value", got.LineToken)
	assert.Equal(t, 5, got.CooldownMinutes)
	assert.False(t, got.NotifyOffline)
	assert.True(t, got.NotifyEventLog)
	assert.Equal(t, now, got.UpdatedAt)
}

func TestScreenshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	m := seedMachine(t, s, "LAB-01", now)

	first := &model.Screenshot{MachineID: m.ID, CommandID: "c1", Path: "screenshots/a.png", CreatedAt: now.Add(-time.Minute)}
	second := &model.Screenshot{MachineID: m.ID, Path: "screenshots/b.png", CreatedAt: now}
	require.NoError(t, s.InsertScreenshot(ctx, first))
	require.NoError(t, s.InsertScreenshot(ctx, second))

	list, err := s.ListScreenshots(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	got, err := s.GetScreenshot(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "c1", got.CommandID)

	del, err := s.DeleteScreenshot(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "screenshots/a.png", del.Path)
	_, err = s.DeleteScreenshot(ctx, first.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	rest, err := s.DeleteScreenshots(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, second.ID, rest[0].ID)

	list, err = s.ListScreenshots(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
