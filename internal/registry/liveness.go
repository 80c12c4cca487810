package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/events"
	"github.com/darshan-rambhia/fleetglint/internal/model"
)

// OfflineNotifier is told when a machine goes offline.
type OfflineNotifier interface {
	NotifyOffline(ctx context.Context, m model.Machine)
}

// Watcher periodically reclassifies every machine and reacts to transitions
// into offline. Status itself is still derived on read; the watcher only
// remembers the last status it saw so it can detect the edge.
type Watcher struct {
	registry  *Registry
	publisher events.Publisher
	notifier  OfflineNotifier
	interval  time.Duration

	mu   sync.Mutex
	seen map[string]model.MachineStatus
}

// NewWatcher returns a Watcher. publisher and notifier may be nil.
func NewWatcher(r *Registry, publisher events.Publisher, notifier OfflineNotifier, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watcher{
		registry:  r,
		publisher: publisher,
		notifier:  notifier,
		interval:  interval,
		seen:      make(map[string]model.MachineStatus),
	}
}

// Run checks at startup and then on every tick until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("liveness watcher started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.Check(ctx)
		select {
		case <-ctx.Done():
			slog.Info("liveness watcher stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Check classifies every machine once and returns the machines that went
// offline since the previous check. Machines already offline the first time
// they are seen do not count as transitions.
func (w *Watcher) Check(ctx context.Context) []model.Machine {
	machines, err := w.registry.List(ctx)
	if err != nil {
		slog.Error("liveness check failed", "error", err)
		return nil
	}

	var offline []model.Machine
	w.mu.Lock()
	present := make(map[string]struct{}, len(machines))
	for _, m := range machines {
		present[m.ID] = struct{}{}
		prev, known := w.seen[m.ID]
		w.seen[m.ID] = m.Status
		if known && prev != model.StatusOffline && m.Status == model.StatusOffline {
			offline = append(offline, m)
		}
	}
	for id := range w.seen {
		if _, ok := present[id]; !ok {
			delete(w.seen, id)
		}
	}
	w.mu.Unlock()

	for _, m := range offline {
		slog.Warn("machine went offline", "machine", m.ID, "hostname", m.Hostname, "last_seen", m.LastSeenAt)
		if w.publisher != nil {
			w.publisher.Publish(events.DashboardTopic, model.EventMachineUpdated, m)
			w.publisher.Publish(events.MachineTopic(m.ID), model.EventMachineUpdated, m)
		}
		if w.notifier != nil {
			w.notifier.NotifyOffline(ctx, m)
		}
	}
	return offline
}

// Observe records a status seen outside the watcher, e.g. on ingestion, so a
// machine that reports again is not missed on its next offline edge.
func (w *Watcher) Observe(id string, status model.MachineStatus) {
	w.mu.Lock()
	w.seen[id] = status
	w.mu.Unlock()
}
