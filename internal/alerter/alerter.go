// Package alerter turns telemetry reports into alert state: threshold
// evaluation, deduplicated upserts, and automatic resolution.
package alerter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/metrics"
	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/darshan-rambhia/fleetglint/internal/store"
)

// CriticalPercent is the fixed usage above which RAM and disk alerts are critical.
const CriticalPercent = 95.0

// Evaluation is the decision for one monitored condition on one report.
type Evaluation struct {
	Type      model.AlertType
	Triggered bool
	Severity  model.Severity
	Message   string
}

// Evaluate checks a report against th and returns one evaluation per
// monitored condition, triggered or not, in a fixed order.
func Evaluate(hostname string, r *model.Report, th model.AlertThreshold) []Evaluation {
	evals := []Evaluation{
		{
			Type:      model.AlertCPUHigh,
			Triggered: r.CPUUsage > th.CPUThreshold,
			Severity:  model.SeverityCritical,
			Message:   fmt.Sprintf("CPU usage is %.1f%% on %s", r.CPUUsage, hostname),
		},
		{
			Type:      model.AlertRAMHigh,
			Triggered: r.RAMUsage > th.RAMThreshold,
			Severity:  usageSeverity(r.RAMUsage),
			Message:   fmt.Sprintf("RAM usage is %.1f%% on %s", r.RAMUsage, hostname),
		},
		{
			Type:      model.AlertDiskHigh,
			Triggered: r.DiskUsage > th.DiskThreshold,
			Severity:  usageSeverity(r.DiskUsage),
			Message:   fmt.Sprintf("Disk usage is %.1f%% on %s", r.DiskUsage, hostname),
		},
	}

	// Emitted even with checking disabled so a stale alert resolves.
	evals = append(evals, Evaluation{
		Type:      model.AlertEventLogError,
		Triggered: th.EventLogErrors && r.EventLogErrors > 0,
		Severity:  model.SeverityWarning,
		Message:   fmt.Sprintf("%d error(s) found in Windows Event Log on %s", r.EventLogErrors, hostname),
	})
	return evals
}

func usageSeverity(pct float64) model.Severity {
	if pct > CriticalPercent {
		return model.SeverityCritical
	}
	return model.SeverityWarning
}

// Outcome summarizes what one Apply changed.
type Outcome struct {
	// Fired lists triggered types in evaluation order.
	Fired []model.AlertType
	// Created holds alerts that did not exist before this cycle.
	Created []model.Alert
	// Refreshed holds existing unresolved alerts updated in place.
	Refreshed []model.Alert
	// Resolved counts alerts auto-resolved this cycle.
	Resolved int64
}

// Labels returns the fired types as upper-case tags, e.g. "CPU_HIGH".
func (o Outcome) Labels() []string {
	out := make([]string, 0, len(o.Fired))
	for _, t := range o.Fired {
		out = append(out, t.Label())
	}
	return out
}

// Changed returns created and refreshed alerts together.
func (o Outcome) Changed() []model.Alert {
	out := make([]model.Alert, 0, len(o.Created)+len(o.Refreshed))
	out = append(out, o.Created...)
	return append(out, o.Refreshed...)
}

// Manager applies evaluations to stored alert state.
type Manager struct {
	store   *store.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewManager returns a Manager over st. m may be nil.
func NewManager(st *store.Store, m *metrics.Metrics) *Manager {
	return &Manager{store: st, metrics: m, now: time.Now}
}

// WithClock replaces the manager's clock.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Apply upserts an alert for every triggered evaluation and resolves the
// unresolved alert of every untriggered one. It stops at the first storage
// failure; effects already applied are kept.
func (m *Manager) Apply(ctx context.Context, machineID string, evals []Evaluation) (Outcome, error) {
	var out Outcome
	now := m.now()
	for _, e := range evals {
		if !e.Triggered {
			n, err := m.store.ResolveAlerts(ctx, machineID, e.Type, now)
			if err != nil {
				return out, model.Transient("resolving alerts", err)
			}
			if n > 0 {
				slog.Info("alert resolved", "machine", machineID, "type", e.Type)
				m.metrics.AddAlertTransitions(string(e.Type), "resolved", n)
			}
			out.Resolved += n
			continue
		}

		alert, created, err := m.store.UpsertAlert(ctx, machineID, e.Type, e.Severity, e.Message, now)
		if err != nil {
			return out, model.Transient("upserting alert", err)
		}
		out.Fired = append(out.Fired, e.Type)
		if created {
			slog.Warn("alert fired",
				"machine", machineID,
				"type", e.Type,
				"severity", FormatSeverity(string(e.Severity)),
				"message", e.Message,
			)
			m.metrics.IncAlertTransition(string(e.Type), "created")
			out.Created = append(out.Created, alert)
		} else {
			m.metrics.IncAlertTransition(string(e.Type), "refreshed")
			out.Refreshed = append(out.Refreshed, alert)
		}
	}
	return out, nil
}

// Resolve is the operator path: it resolves the given alerts by ID. A
// resolved condition only comes back when a later report triggers it again.
func (m *Manager) Resolve(ctx context.Context, ids []string) (int64, error) {
	n, err := m.store.ResolveAlertsByID(ctx, ids, m.now())
	if err != nil {
		return 0, model.Transient("resolving alerts", err)
	}
	m.metrics.AddAlertTransitions("manual", "resolved", n)
	return n, nil
}

// FormatSeverity returns an uppercase severity string for log lines and messages.
func FormatSeverity(s string) string {
	return strings.ToUpper(s)
}
