package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/metrics"
	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/darshan-rambhia/fleetglint/internal/throttle"
)

// AlertTitle heads every alert notification.
const AlertTitle = "IT Monitor Alert"

// ConfigSource loads the operator-managed notification settings.
type ConfigSource interface {
	GetNotificationConfig(ctx context.Context) (model.NotificationConfig, error)
}

// Throttler decides which fired alerts are worth an outbound message,
// enforces the per (type, machine) cooldown, and hands one batched message
// per report cycle to the worker pool.
type Throttler struct {
	config    ConfigSource
	static    []Provider
	cooldown  *throttle.Cooldown
	submitter Submitter
	metrics   *metrics.Metrics
	lineURL   string
}

// NewThrottler returns a Throttler. static providers come from the config
// file and receive every message alongside LINE. m may be nil.
func NewThrottler(cfg ConfigSource, cooldown *throttle.Cooldown, submitter Submitter, m *metrics.Metrics, static ...Provider) *Throttler {
	return &Throttler{
		config:    cfg,
		static:    static,
		cooldown:  cooldown,
		submitter: submitter,
		metrics:   m,
	}
}

// WithLineURL points the LINE provider at url instead of DefaultLineURL.
func (t *Throttler) WithLineURL(url string) *Throttler {
	t.lineURL = url
	return t
}

// MaybeNotify composes one line per fired type whose cooldown has elapsed
// and sends them as a single notification. Metric lines are only composed
// when the metric also meets the notification threshold; the event log line
// only when event log notifications are on. It reports whether a message was
// submitted. Send failures are logged, never returned.
func (t *Throttler) MaybeNotify(ctx context.Context, machineID, hostname string, fired []model.AlertType, r *model.Report) bool {
	if len(fired) == 0 || r == nil {
		return false
	}
	cfg, channels, ok := t.load(ctx)
	if !ok {
		return false
	}

	var (
		lines  []string
		types  []string
		claims []claim
	)
	severity := string(model.SeverityWarning)
	for _, typ := range fired {
		line := composeLine(cfg, typ, hostname, r)
		if line == "" {
			continue
		}
		key := throttle.Key(string(typ), machineID)
		at, ok := t.cooldown.Acquire(key, cfg.Cooldown())
		if !ok {
			slog.Debug("notification cooling down", "machine", machineID, "type", typ)
			continue
		}
		claims = append(claims, claim{key: key, at: at})
		lines = append(lines, line)
		types = append(types, string(typ))
		if typ == model.AlertCPUHigh {
			severity = string(model.SeverityCritical)
		}
	}
	if len(lines) == 0 {
		return false
	}

	return t.dispatch(ctx, channels, claims, model.Notification{
		AlertType: strings.Join(types, ","),
		Severity:  severity,
		Title:     AlertTitle,
		Message:   strings.Join(lines, "\n"),
		MachineID: machineID,
		Hostname:  hostname,
		Timestamp: t.cooldown.Now(),
	})
}

// NotifyOffline sends an offline notification for m when offline
// notifications are on and the offline cooldown for m has elapsed.
func (t *Throttler) NotifyOffline(ctx context.Context, m model.Machine) {
	cfg, channels, ok := t.load(ctx)
	if !ok || !cfg.NotifyOffline {
		return
	}
	key := throttle.Key(string(model.AlertOffline), m.ID)
	at, ok := t.cooldown.Acquire(key, cfg.Cooldown())
	if !ok {
		return
	}
	t.dispatch(ctx, channels, []claim{{key: key, at: at}}, model.Notification{
		AlertType: string(model.AlertOffline),
		Severity:  string(model.SeverityCritical),
		Title:     AlertTitle,
		Message:   "Computer OFFLINE: " + m.Hostname,
		MachineID: m.ID,
		Hostname:  m.Hostname,
		Timestamp: t.cooldown.Now(),
	})
}

// Test sends a test message synchronously to every configured channel,
// ignoring the enabled flag and the cooldown.
func (t *Throttler) Test(ctx context.Context) error {
	cfg, err := t.config.GetNotificationConfig(ctx)
	if err != nil {
		return model.Transient("loading notification config", err)
	}
	channels := t.channels(cfg)
	if len(channels) == 0 {
		return model.NewValidationError("line_token", "no notification channel configured")
	}
	n := model.Notification{
		AlertType: "test",
		Severity:  "info",
		Title:     "IT Monitor - Test Notification",
		Message:   "This is a test message from IT Monitor Server.",
		Timestamp: t.cooldown.Now(),
	}
	for _, p := range channels {
		if err := t.send(ctx, p, n); err != nil {
			return model.Transient("sending test notification", err)
		}
	}
	return nil
}

func (t *Throttler) load(ctx context.Context) (model.NotificationConfig, []Provider, bool) {
	cfg, err := t.config.GetNotificationConfig(ctx)
	if err != nil {
		slog.Error("loading notification config", "error", err)
		return cfg, nil, false
	}
	if !cfg.Enabled {
		return cfg, nil, false
	}
	channels := t.channels(cfg)
	return cfg, channels, len(channels) > 0
}

func (t *Throttler) channels(cfg model.NotificationConfig) []Provider {
	out := make([]Provider, 0, len(t.static)+1)
	if cfg.LineToken != "" {
		out = append(out, NewLine(t.lineURL, cfg.LineToken))
	}
	return append(out, t.static...)
}

// claim is a cooldown stamp taken for a pending notification.
type claim struct {
	key string
	at  time.Time
}

// dispatch hands the send to the pool without waiting; the send itself runs
// detached from ctx so a finished request does not cancel it. A dropped send
// gives its cooldown claims back.
func (t *Throttler) dispatch(ctx context.Context, channels []Provider, claims []claim, n model.Notification) bool {
	err := t.submitter.Submit(ctx, func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		for _, p := range channels {
			if err := t.send(sendCtx, p, n); err != nil {
				slog.Error("notification failed", "provider", p.Name(), "machine", n.MachineID, "error", err)
			}
		}
	})
	if err != nil {
		for _, c := range claims {
			t.cooldown.Release(c.key, c.at)
		}
		t.metrics.IncNotify("pool", "dropped")
		slog.Warn("notification dropped", "machine", n.MachineID, "type", n.AlertType, "error", err)
		return false
	}
	return true
}

func (t *Throttler) send(ctx context.Context, p Provider, n model.Notification) error {
	if err := p.Send(ctx, n); err != nil {
		t.metrics.IncNotify(p.Name(), "failed")
		return err
	}
	t.metrics.IncNotify(p.Name(), "sent")
	slog.Info("notification sent", "provider", p.Name(), "type", n.AlertType, "machine", n.MachineID)
	return nil
}

func composeLine(cfg model.NotificationConfig, typ model.AlertType, hostname string, r *model.Report) string {
	switch typ {
	case model.AlertCPUHigh:
		if r.CPUUsage >= cfg.CPUThreshold {
			return fmt.Sprintf("CPU High: %.1f%% on %s", r.CPUUsage, hostname)
		}
	case model.AlertRAMHigh:
		if r.RAMUsage >= cfg.RAMThreshold {
			return fmt.Sprintf("RAM High: %.1f%% on %s", r.RAMUsage, hostname)
		}
	case model.AlertDiskHigh:
		if r.DiskUsage >= cfg.DiskThreshold {
			return fmt.Sprintf("Disk High: %.1f%% on %s", r.DiskUsage, hostname)
		}
	case model.AlertEventLogError:
		if cfg.NotifyEventLog {
			return "Error events found in Windows Event Log on " + hostname
		}
	}
	return ""
}
