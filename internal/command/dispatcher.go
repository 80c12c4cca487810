// Package command runs the remote command state machine: admins create
// pending commands, agents claim them on poll, and agents report results.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/events"
	"github.com/darshan-rambhia/fleetglint/internal/metrics"
	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/darshan-rambhia/fleetglint/internal/registry"
	"github.com/darshan-rambhia/fleetglint/internal/store"
	"github.com/google/uuid"
)

const (
	// ActionScreenshot is the one action whose result carries an artifact.
	ActionScreenshot = "screenshot"

	// LeaseExpired is the result stored on commands failed by the reaper.
	LeaseExpired = "lease expired"

	// DefaultResultLimit caps stored result text, in characters.
	DefaultResultLimit = 5000

	// DefaultLeaseTimeout is how long a claimed command may stay executing.
	DefaultLeaseTimeout = 10 * time.Minute
)

// Actions lists the command names agents know how to run.
var Actions = map[string]bool{
	"restart":         true,
	"shutdown":        true,
	"lock":            true,
	"logoff":          true,
	"clear_temp":      true,
	"kill_process":    true,
	"run_powershell":  true,
	"ping":            true,
	"traceroute":      true,
	"ipconfig":        true,
	"disk_cleanup":    true,
	"flush_dns":       true,
	"gpupdate":        true,
	"sfc_scan":        true,
	"service_start":   true,
	"service_stop":    true,
	"service_restart": true,
	ActionScreenshot:  true,
}

// Options tunes a Dispatcher. Zero values take the defaults.
type Options struct {
	// LeaseTimeout fails executing commands claimed longer ago than this.
	// A negative value disables expiry.
	LeaseTimeout time.Duration
	ResultLimit  int
	ReapInterval time.Duration
}

// Result is an agent's report for one command.
type Result struct {
	Success    bool
	Output     string
	Screenshot []byte
}

// Dispatcher owns command transitions and their side effects.
type Dispatcher struct {
	store     *store.Store
	registry  *registry.Registry
	artifacts *Artifacts
	publisher events.Publisher
	metrics   *metrics.Metrics
	opts      Options
	now       func() time.Time
}

// NewDispatcher returns a Dispatcher. publisher and m may be nil.
func NewDispatcher(st *store.Store, reg *registry.Registry, artifacts *Artifacts, publisher events.Publisher, m *metrics.Metrics, opts Options) *Dispatcher {
	if opts.LeaseTimeout == 0 {
		opts.LeaseTimeout = DefaultLeaseTimeout
	}
	if opts.ResultLimit <= 0 {
		opts.ResultLimit = DefaultResultLimit
	}
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = time.Minute
	}
	return &Dispatcher{
		store:     st,
		registry:  reg,
		artifacts: artifacts,
		publisher: publisher,
		metrics:   m,
		opts:      opts,
		now:       time.Now,
	}
}

// WithClock replaces the dispatcher's clock.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Create queues a pending command for machineID.
func (d *Dispatcher) Create(ctx context.Context, machineID, action string, params json.RawMessage) (model.Command, error) {
	verr := &model.ValidationError{}
	if machineID == "" {
		verr.Add("machine_id", "is required")
	}
	switch {
	case action == "":
		verr.Add("action", "is required")
	case !Actions[action]:
		verr.Add("action", fmt.Sprintf("unknown action %q", action))
	}
	if len(params) > 0 && !json.Valid(params) {
		verr.Add("params", "must be valid JSON")
	}
	if err := verr.OrNil(); err != nil {
		return model.Command{}, err
	}

	c, err := d.store.CreateCommand(ctx, machineID, action, params, d.now())
	if err != nil {
		return model.Command{}, model.Transient("creating command", err)
	}
	d.metrics.IncCommandStatus(string(c.Status))
	slog.Info("command created", "command", c.ID, "machine", machineID, "action", action)
	return c, nil
}

// PollAndClaim authenticates the agent and atomically moves its pending
// commands to executing. A second poll never returns the same command.
func (d *Dispatcher) PollAndClaim(ctx context.Context, hostname, token string) ([]model.Command, error) {
	m, err := d.registry.Authenticate(ctx, hostname, token)
	if err != nil {
		return nil, err
	}
	cmds, err := d.store.ClaimPendingCommands(ctx, m.ID, d.now())
	if err != nil {
		return nil, model.Transient("claiming commands", err)
	}
	for _, c := range cmds {
		d.metrics.IncCommandStatus(string(c.Status))
	}
	if len(cmds) > 0 {
		slog.Debug("commands claimed", "machine", m.ID, "count", len(cmds))
	}
	return cmds, nil
}

// ReportResult finishes an executing command. The token must belong to the
// command's machine; an unknown id fails the same way as a wrong token. A successful screenshot result is saved as an artifact
// and the command result stores its path; any other output is truncated.
func (d *Dispatcher) ReportResult(ctx context.Context, id, token string, res Result) (model.Command, error) {
	if token == "" {
		return model.Command{}, model.ErrUnauthorized
	}
	cmd, err := d.store.GetCommand(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.Command{}, model.ErrUnauthorized
	}
	if err != nil {
		return model.Command{}, model.Transient("loading command", err)
	}
	if _, err := d.registry.AuthenticateID(ctx, cmd.MachineID, token); err != nil {
		return model.Command{}, err
	}
	if cmd.Status != model.CommandExecuting {
		return model.Command{}, fmt.Errorf("command %s is %s: %w", id, cmd.Status, model.ErrInvalidTransition)
	}

	now := d.now()
	status := model.CommandFailed
	if res.Success {
		status = model.CommandCompleted
	}
	result := Truncate(res.Output, d.opts.ResultLimit)

	var shot *model.Screenshot
	if res.Success && len(res.Screenshot) > 0 {
		shot = &model.Screenshot{
			ID:        uuid.NewString(),
			MachineID: cmd.MachineID,
			CommandID: cmd.ID,
			CreatedAt: now.UTC().Truncate(time.Millisecond),
		}
		if shot.Path, err = d.artifacts.SaveScreenshot(cmd.MachineID, shot.ID, res.Screenshot); err != nil {
			return model.Command{}, model.Transient("saving screenshot", err)
		}
		result = shot.Path
	}

	done, err := d.store.FinishCommandWithScreenshot(ctx, id, status, result, now, shot)
	if err != nil {
		if shot != nil {
			d.removeArtifact(shot.Path)
		}
		return model.Command{}, model.Transient("finishing command", err)
	}
	d.metrics.IncCommandStatus(string(done.Status))
	slog.Info("command finished", "command", id, "machine", done.MachineID, "status", done.Status)
	d.publish(done.MachineID, model.EventCommandResult, done)
	if shot != nil {
		d.publish(done.MachineID, model.EventScreenshotNew, shot)
	}
	return done, nil
}

// ExpireLeases fails executing commands whose claim is older than the lease
// timeout. Expired commands never return to pending.
func (d *Dispatcher) ExpireLeases(ctx context.Context) ([]model.Command, error) {
	if d.opts.LeaseTimeout < 0 {
		return nil, nil
	}
	now := d.now()
	expired, err := d.store.ExpireCommands(ctx, now.Add(-d.opts.LeaseTimeout), now, LeaseExpired)
	if err != nil {
		return nil, model.Transient("expiring commands", err)
	}
	for _, c := range expired {
		slog.Warn("command lease expired", "command", c.ID, "machine", c.MachineID, "action", c.Action)
		d.metrics.IncCommandStatus(string(c.Status))
		d.publish(c.MachineID, model.EventCommandResult, c)
	}
	return expired, nil
}

// Run expires leases on every tick until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.opts.LeaseTimeout < 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	slog.Info("command reaper started", "lease", d.opts.LeaseTimeout, "interval", d.opts.ReapInterval)

	ticker := time.NewTicker(d.opts.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("command reaper stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.ExpireLeases(ctx); err != nil {
				slog.Error("expiring command leases", "error", err)
			}
		}
	}
}

// List returns the newest commands, optionally filtered.
func (d *Dispatcher) List(ctx context.Context, machineID string, status model.CommandStatus, limit int) ([]model.Command, error) {
	cmds, err := d.store.ListCommands(ctx, machineID, status, limit)
	if err != nil {
		return nil, model.Transient("listing commands", err)
	}
	return cmds, nil
}

// Screenshots lists a machine's screenshots, newest first.
func (d *Dispatcher) Screenshots(ctx context.Context, machineID string) ([]model.Screenshot, error) {
	shots, err := d.store.ListScreenshots(ctx, machineID)
	if err != nil {
		return nil, model.Transient("listing screenshots", err)
	}
	return shots, nil
}

// OpenScreenshot returns the screenshot row and the absolute path of its file.
func (d *Dispatcher) OpenScreenshot(ctx context.Context, id string) (model.Screenshot, string, error) {
	sc, err := d.store.GetScreenshot(ctx, id)
	if err != nil {
		return model.Screenshot{}, "", model.Transient("loading screenshot", err)
	}
	p, err := d.artifacts.Path(sc.Path)
	if err != nil {
		return model.Screenshot{}, "", err
	}
	return sc, p, nil
}

// DeleteScreenshot removes one screenshot file and its row.
func (d *Dispatcher) DeleteScreenshot(ctx context.Context, id string) error {
	sc, err := d.store.GetScreenshot(ctx, id)
	if err != nil {
		return model.Transient("loading screenshot", err)
	}
	d.removeArtifact(sc.Path)
	if _, err := d.store.DeleteScreenshot(ctx, id); err != nil {
		return model.Transient("deleting screenshot", err)
	}
	return nil
}

// DeleteScreenshots removes every screenshot of a machine and returns how
// many rows were deleted.
func (d *Dispatcher) DeleteScreenshots(ctx context.Context, machineID string) (int, error) {
	shots, err := d.store.ListScreenshots(ctx, machineID)
	if err != nil {
		return 0, model.Transient("listing screenshots", err)
	}
	for _, sc := range shots {
		d.removeArtifact(sc.Path)
	}
	deleted, err := d.store.DeleteScreenshots(ctx, machineID)
	if err != nil {
		return 0, model.Transient("deleting screenshots", err)
	}
	return len(deleted), nil
}

// RemoveMachineArtifacts deletes a machine's artifact directory. Called after
// the machine row is gone; failures are logged.
func (d *Dispatcher) RemoveMachineArtifacts(machineID string) {
	if err := d.artifacts.RemoveMachine(machineID); err != nil {
		slog.Warn("removing machine artifacts", "machine", machineID, "error", err)
	}
}

func (d *Dispatcher) removeArtifact(rel string) {
	if err := d.artifacts.Remove(rel); err != nil {
		slog.Warn("removing artifact", "path", rel, "error", err)
	}
}

func (d *Dispatcher) publish(machineID, name string, data any) {
	if d.publisher == nil {
		return
	}
	d.publisher.Publish(events.MachineTopic(machineID), name, data)
}

// Truncate caps s at limit characters.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
