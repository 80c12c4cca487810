// Package ingest runs the report pipeline: validate, register, persist,
// evaluate alerts, fan out events, notify, and sweep old reports.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/alerter"
	"github.com/darshan-rambhia/fleetglint/internal/cache"
	"github.com/darshan-rambhia/fleetglint/internal/events"
	"github.com/darshan-rambhia/fleetglint/internal/metrics"
	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/darshan-rambhia/fleetglint/internal/registry"
	"github.com/darshan-rambhia/fleetglint/internal/store"
)

// Notifier sends outbound notifications for alerts fired in one cycle.
type Notifier interface {
	MaybeNotify(ctx context.Context, machineID, hostname string, fired []model.AlertType, r *model.Report) bool
}

// Sweeper prunes a machine's expired reports.
type Sweeper interface {
	SweepMachine(ctx context.Context, machineID string) (int64, error)
}

// Observer is told the status of every machine that just reported.
type Observer interface {
	Observe(id string, status model.MachineStatus)
}

// Result is what an agent gets back for an accepted report.
type Result struct {
	Success   bool     `json:"success"`
	MachineID string   `json:"machine_id"`
	ReportID  string   `json:"report_id"`
	Alerts    []string `json:"alerts"`
}

// Deps wires a Service. Everything except Store, Registry, and Alerts may be nil.
type Deps struct {
	Store     *store.Store
	Registry  *registry.Registry
	Alerts    *alerter.Manager
	Cache     *cache.Cache
	Publisher events.Publisher
	Notifier  Notifier
	Sweeper   Sweeper
	Observer  Observer
	Metrics   *metrics.Metrics
}

// Service accepts agent reports.
type Service struct {
	Deps
}

// NewService returns a Service over d.
func NewService(d Deps) *Service {
	return &Service{Deps: d}
}

// Ingest validates raw, binds or checks the machine credential, stores the
// report, and updates alert state. Invalid or unauthenticated input changes
// nothing. Notification and sweep failures are logged and never returned.
func (s *Service) Ingest(ctx context.Context, token string, raw []byte) (Result, error) {
	start := time.Now()
	res, err := s.ingest(ctx, token, raw)
	s.Metrics.ObserveIngest(time.Since(start))
	s.Metrics.IncIngest(outcome(err))
	return res, err
}

func (s *Service) ingest(ctx context.Context, token string, raw []byte) (Result, error) {
	if token == "" {
		return Result{}, model.ErrUnauthorized
	}
	in, err := Validate(raw)
	if err != nil {
		return Result{}, err
	}

	m, created, err := s.Registry.UpsertFromReport(ctx, in.Hostname, token, in.Fields)
	if err != nil {
		if errors.Is(err, model.ErrUnauthorized) {
			slog.Warn("report rejected", "hostname", in.Hostname, "reason", "credential mismatch")
		}
		return Result{}, err
	}
	if created {
		slog.Info("machine registered", "machine", m.ID, "hostname", m.Hostname)
	}

	report := in.Report
	report.MachineID = m.ID
	report.CreatedAt = m.LastSeenAt
	if err := s.Store.InsertReport(ctx, &report); err != nil {
		return Result{}, model.Transient("storing report", err)
	}

	th, _, err := s.Registry.Thresholds(ctx, m.ID)
	if err != nil {
		return Result{}, err
	}
	out, err := s.Alerts.Apply(ctx, m.ID, alerter.Evaluate(m.Hostname, &report, th))
	if err != nil {
		return Result{}, err
	}

	if s.Observer != nil {
		s.Observer.Observe(m.ID, m.Status)
	}
	if s.Cache != nil {
		if !s.Cache.ApplyReport(m, &report, out.Changed()) {
			slog.Debug("newer report already cached", "machine", m.ID, "report", report.ID)
		}
	}
	s.publish(m, &report, out)

	if s.Notifier != nil && len(out.Fired) > 0 {
		s.Notifier.MaybeNotify(ctx, m.ID, m.Hostname, out.Fired, &report)
	}
	if s.Sweeper != nil {
		if n, err := s.Sweeper.SweepMachine(ctx, m.ID); err != nil {
			slog.Error("sweeping reports", "machine", m.ID, "error", err)
		} else if n > 0 {
			slog.Debug("swept reports", "machine", m.ID, "deleted", n)
		}
	}

	return Result{
		Success:   true,
		MachineID: m.ID,
		ReportID:  report.ID,
		Alerts:    out.Labels(),
	}, nil
}

func (s *Service) publish(m *model.Machine, r *model.Report, out alerter.Outcome) {
	if s.Publisher == nil {
		return
	}
	machineTopic := events.MachineTopic(m.ID)
	s.Publisher.Publish(events.DashboardTopic, model.EventMachineUpdated, m)
	s.Publisher.Publish(machineTopic, model.EventMachineUpdated, m)
	s.Publisher.Publish(machineTopic, model.EventReportNew, r)
	for _, a := range out.Created {
		s.Publisher.Publish(events.DashboardTopic, model.EventAlertNew, a)
		s.Publisher.Publish(machineTopic, model.EventAlertNew, a)
	}
}

func outcome(err error) string {
	var ve *model.ValidationError
	switch {
	case err == nil:
		return "accepted"
	case errors.As(err, &ve):
		return "invalid"
	case errors.Is(err, model.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}
