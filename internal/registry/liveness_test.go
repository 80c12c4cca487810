package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	topic, name string
}

type fakePublisher struct {
	mu  sync.Mutex
	got []published
}

func (p *fakePublisher) Publish(topic, name string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, published{topic, name})
}

type fakeNotifier struct {
	mu       sync.Mutex
	machines []string
}

func (n *fakeNotifier) NotifyOffline(_ context.Context, m model.Machine) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.machines = append(n.machines, m.Hostname)
}

func TestWatcher_DetectsOfflineEdge(t *testing.T) {
	r, _, clk := newTestRegistry(t)
	ctx := context.Background()
	pub := &fakePublisher{}
	notif := &fakeNotifier{}
	w := NewWatcher(r, pub, notif, time.Minute)

	m, _, err := r.UpsertFromReport(ctx, "LAB-01", "key", model.MachineFields{})
	require.NoError(t, err)

	assert.Empty(t, w.Check(ctx), "first sighting is online")

	clk.Advance(3 * time.Minute)
	assert.Empty(t, w.Check(ctx), "warning is not offline")

	clk.Advance(3 * time.Minute)
	off := w.Check(ctx)
	require.Len(t, off, 1)
	assert.Equal(t, m.ID, off[0].ID)
	assert.Equal(t, []string{"LAB-01"}, notif.machines)
	assert.Equal(t, []published{
		{"dashboard", model.EventMachineUpdated},
		{"machine:" + m.ID, model.EventMachineUpdated},
	}, pub.got)

	// still offline: no second edge
	clk.Advance(time.Hour)
	assert.Empty(t, w.Check(ctx))
	assert.Len(t, notif.machines, 1)

	// comes back, then drops again
	_, _, err = r.UpsertFromReport(ctx, "LAB-01", "key", model.MachineFields{})
	require.NoError(t, err)
	w.Observe(m.ID, model.StatusOnline)
	clk.Advance(10 * time.Minute)
	assert.Len(t, w.Check(ctx), 1)
	assert.Len(t, notif.machines, 2)
}

func TestWatcher_OfflineAtStartupIsNotAnEdge(t *testing.T) {
	r, _, clk := newTestRegistry(t)
	ctx := context.Background()
	notif := &fakeNotifier{}
	w := NewWatcher(r, nil, notif, 0)
	assert.Equal(t, time.Minute, w.interval)

	_, _, err := r.UpsertFromReport(ctx, "LAB-01", "key", model.MachineFields{})
	require.NoError(t, err)
	clk.Advance(time.Hour)

	assert.Empty(t, w.Check(ctx))
	assert.Empty(t, notif.machines)
}

func TestWatcher_ForgetsDeletedMachines(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()
	w := NewWatcher(r, nil, nil, time.Minute)

	m, _, err := r.UpsertFromReport(ctx, "LAB-01", "key", model.MachineFields{})
	require.NoError(t, err)
	w.Check(ctx)
	require.Contains(t, w.seen, m.ID)

	require.NoError(t, r.Delete(ctx, m.ID))
	w.Check(ctx)
	assert.NotContains(t, w.seen, m.ID)
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	w := NewWatcher(r, nil, nil, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Run(ctx), context.DeadlineExceeded)
}
