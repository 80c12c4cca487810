// Package cache holds the in-memory view of the fleet used by the dashboard:
// every machine, its latest report, and its unresolved alerts.
package cache

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/darshan-rambhia/fleetglint/internal/registry"
)

// RecentAlertLimit is how many unresolved alerts the summary lists.
const RecentAlertLimit = 10

// Source loads the state the cache is seeded from.
type Source interface {
	ListMachines(ctx context.Context) ([]model.Machine, error)
	LatestReports(ctx context.Context) (map[string]*model.Report, error)
	ListAlerts(ctx context.Context, f model.AlertFilter) (model.AlertPage, error)
}

// Cache is a thread-safe in-memory view of the fleet.
type Cache struct {
	mu sync.RWMutex

	Machines map[string]*model.Machine
	Latest   map[string]*model.Report
	Active   map[string][]model.Alert
}

// CacheSnapshot is a read-only deep copy of the cache state.
type CacheSnapshot struct {
	Machines map[string]*model.Machine
	Latest   map[string]*model.Report
	Active   map[string][]model.Alert
}

// New returns an initialized Cache.
func New() *Cache {
	return &Cache{
		Machines: make(map[string]*model.Machine),
		Latest:   make(map[string]*model.Report),
		Active:   make(map[string][]model.Alert),
	}
}

// Load replaces the cache contents with the state held by src.
func (c *Cache) Load(ctx context.Context, src Source) error {
	machines, err := src.ListMachines(ctx)
	if err != nil {
		return fmt.Errorf("loading machines: %w", err)
	}
	latest, err := src.LatestReports(ctx)
	if err != nil {
		return fmt.Errorf("loading latest reports: %w", err)
	}
	unresolved := false
	page, err := src.ListAlerts(ctx, model.AlertFilter{Resolved: &unresolved, Limit: -1})
	if err != nil {
		return fmt.Errorf("loading active alerts: %w", err)
	}

	active := make(map[string][]model.Alert)
	for _, a := range page.Data {
		active[a.MachineID] = append(active[a.MachineID], a)
	}
	ms := make(map[string]*model.Machine, len(machines))
	for i := range machines {
		m := machines[i]
		ms[m.ID] = &m
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Machines = ms
	c.Latest = latest
	c.Active = active
	return nil
}

// Snapshot returns a deep copy of the cache contents. Report telemetry maps
// are shared; callers must not mutate them.
func (c *Cache) Snapshot() CacheSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := CacheSnapshot{
		Machines: make(map[string]*model.Machine, len(c.Machines)),
		Latest:   make(map[string]*model.Report, len(c.Latest)),
		Active:   make(map[string][]model.Alert, len(c.Active)),
	}
	for id, m := range c.Machines {
		cp := *m
		snap.Machines[id] = &cp
	}
	for id, r := range c.Latest {
		cp := *r
		snap.Latest[id] = &cp
	}
	for id, alerts := range c.Active {
		snap.Active[id] = slices.Clone(alerts)
	}
	return snap
}

// ApplyReport records an ingested report together with its machine and the
// machine's unresolved alerts. A report older than the cached one for the
// same machine is ignored, so concurrent ingests cannot roll the view back.
// It reports whether r was applied.
func (c *Cache) ApplyReport(m *model.Machine, r *model.Report, alerts []model.Alert) bool {
	mc, rc := *m, *r
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.Latest[m.ID]; ok && prev.CreatedAt.After(r.CreatedAt) {
		return false
	}
	c.Machines[m.ID] = &mc
	c.Latest[m.ID] = &rc
	if len(alerts) == 0 {
		delete(c.Active, m.ID)
	} else {
		c.Active[m.ID] = slices.Clone(alerts)
	}
	return true
}

// DropAlerts removes the given alerts, e.g. after an operator resolved them.
func (c *Cache) DropAlerts(ids ...string) {
	if len(ids) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for machineID, alerts := range c.Active {
		kept := slices.DeleteFunc(alerts, func(a model.Alert) bool {
			return slices.Contains(ids, a.ID)
		})
		if len(kept) == 0 {
			delete(c.Active, machineID)
		} else {
			c.Active[machineID] = kept
		}
	}
}

// ClearAlerts forgets every unresolved alert.
func (c *Cache) ClearAlerts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Active = make(map[string][]model.Alert)
}

// Remove forgets a machine and everything cached for it.
func (c *Cache) Remove(machineID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Machines, machineID)
	delete(c.Latest, machineID)
	delete(c.Active, machineID)
}

// Summary rolls the cached fleet up for the dashboard, classifying each
// machine against now.
func (c *Cache) Summary(now time.Time) model.FleetSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := model.FleetSummary{TotalMachines: len(c.Machines), RecentAlerts: []model.Alert{}}
	var cpu, ram, disk float64
	reports := 0
	for id, m := range c.Machines {
		switch registry.Classify(m.LastSeenAt, now) {
		case model.StatusOnline:
			s.Online++
		case model.StatusWarning:
			s.Warning++
		default:
			s.Offline++
		}
		if r, ok := c.Latest[id]; ok {
			cpu += r.CPUUsage
			ram += r.RAMUsage
			disk += r.DiskUsage
			reports++
		}
	}
	if reports > 0 {
		s.AvgCPU = cpu / float64(reports)
		s.AvgRAM = ram / float64(reports)
		s.AvgDisk = disk / float64(reports)
	}

	for _, alerts := range c.Active {
		s.UnresolvedAlerts += len(alerts)
		s.RecentAlerts = append(s.RecentAlerts, alerts...)
	}
	slices.SortFunc(s.RecentAlerts, func(a, b model.Alert) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	if len(s.RecentAlerts) > RecentAlertLimit {
		s.RecentAlerts = s.RecentAlerts[:RecentAlertLimit]
	}
	return s
}
