package store

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig defines how long to keep data in each table.
type RetentionConfig struct {
	Reports          time.Duration // default 24h
	ResolvedAlerts   time.Duration // default 30d
	FinishedCommands time.Duration // default 30d
}

// DefaultRetention returns the default retention periods.
func DefaultRetention() RetentionConfig {
	return RetentionConfig{
		Reports:          24 * time.Hour,
		ResolvedAlerts:   30 * 24 * time.Hour,
		FinishedCommands: 30 * 24 * time.Hour,
	}
}

// Pruner periodically removes old data from the store.
type Pruner struct {
	store     *Store
	retention RetentionConfig
	interval  time.Duration
	now       func() time.Time
}

// NewPruner creates a pruner with the given retention config.
func NewPruner(store *Store, retention RetentionConfig) *Pruner {
	return &Pruner{
		store:     store,
		retention: retention,
		interval:  1 * time.Hour,
		now:       time.Now,
	}
}

// WithInterval sets how often the pruner runs.
func (p *Pruner) WithInterval(d time.Duration) *Pruner {
	if d > 0 {
		p.interval = d
	}
	return p
}

// WithClock replaces the pruner's clock.
func (p *Pruner) WithClock(now func() time.Time) *Pruner {
	p.now = now
	return p
}

// Run starts the pruner loop. It blocks until the context is cancelled.
func (p *Pruner) Run(ctx context.Context) error {
	slog.Info("pruner started", "interval", p.interval)

	// Run once at startup
	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("pruner stopped")
			return ctx.Err()
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

// SweepMachine drops one machine's reports that fell out of the retention
// window. Ingest calls it after every accepted report.
func (p *Pruner) SweepMachine(ctx context.Context, machineID string) (int64, error) {
	if p.retention.Reports <= 0 {
		return 0, nil
	}
	return p.store.DeleteReportsBefore(ctx, machineID, p.now().Add(-p.retention.Reports))
}

func (p *Pruner) prune(ctx context.Context) {
	now := p.now()
	tables := []struct {
		name      string
		retention time.Duration
		fn        func(context.Context, time.Time) (int64, error)
	}{
		{"reports", p.retention.Reports, p.store.DeleteAllReportsBefore},
		{"alerts", p.retention.ResolvedAlerts, p.store.PruneResolvedAlerts},
		{"commands", p.retention.FinishedCommands, p.store.PruneFinishedCommands},
	}

	for _, t := range tables {
		if t.retention <= 0 {
			continue
		}
		rows, err := t.fn(ctx, now.Add(-t.retention))
		if err != nil {
			slog.Error("pruning failed", "table", t.name, "error", err)
			continue
		}
		if rows > 0 {
			slog.Info("pruned old data", "table", t.name, "rows", rows)
		}
	}
}
