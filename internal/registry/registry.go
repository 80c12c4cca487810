// Package registry owns machine identity: first-contact registration, the
// credential check on every agent call, and live status classification.
package registry

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/darshan-rambhia/fleetglint/internal/store"
)

// Liveness windows measured from a machine's last report.
const (
	OnlineWindow  = 2 * time.Minute
	WarningWindow = 5 * time.Minute
)

// Classify derives a machine's status from its last-seen time. It is never
// stored.
func Classify(lastSeen, now time.Time) model.MachineStatus {
	age := now.Sub(lastSeen)
	switch {
	case age < OnlineWindow:
		return model.StatusOnline
	case age < WarningWindow:
		return model.StatusWarning
	default:
		return model.StatusOffline
	}
}

// Registry upserts machines and authenticates agent credentials.
type Registry struct {
	store *store.Store
	now   func() time.Time
}

// New returns a Registry backed by st.
func New(st *store.Store) *Registry {
	return &Registry{store: st, now: time.Now}
}

// WithClock replaces the registry's clock.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Now returns the registry clock's current time.
func (r *Registry) Now() time.Time { return r.now() }

// UpsertFromReport registers hostname on first contact, binding token as its
// credential, or refreshes an existing machine whose credential matches. The
// returned bool reports whether the machine was created.
func (r *Registry) UpsertFromReport(ctx context.Context, hostname, token string, fields model.MachineFields) (*model.Machine, bool, error) {
	if token == "" {
		return nil, false, model.ErrUnauthorized
	}
	if strings.TrimSpace(hostname) == "" {
		return nil, false, model.NewValidationError("hostname", "required")
	}
	now := r.now()
	m, created, err := r.store.UpsertMachine(ctx, hostname, token, fields, now)
	if err != nil {
		return nil, false, model.Transient("upserting machine", err)
	}
	m.Status = Classify(m.LastSeenAt, now)
	return m, created, nil
}

// Authenticate returns the machine registered as hostname when token is its
// credential. Every failure mode returns model.ErrUnauthorized.
func (r *Registry) Authenticate(ctx context.Context, hostname, token string) (*model.Machine, error) {
	if token == "" || hostname == "" {
		return nil, model.ErrUnauthorized
	}
	m, err := r.store.AuthenticateMachine(ctx, hostname, token)
	if err != nil {
		return nil, model.Transient("authenticating machine", err)
	}
	m.Status = Classify(m.LastSeenAt, r.now())
	return m, nil
}

// AuthenticateID checks token against the credential of the machine with id.
// Unknown machines and mismatches both return model.ErrUnauthorized.
func (r *Registry) AuthenticateID(ctx context.Context, id, token string) (*model.Machine, error) {
	if token == "" {
		return nil, model.ErrUnauthorized
	}
	m, err := r.store.GetMachine(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrUnauthorized
	}
	if err != nil {
		return nil, model.Transient("loading machine", err)
	}
	if subtle.ConstantTimeCompare([]byte(m.Token), []byte(token)) != 1 {
		return nil, model.ErrUnauthorized
	}
	return m, nil
}

// Get returns one machine with its live status.
func (r *Registry) Get(ctx context.Context, id string) (*model.Machine, error) {
	m, err := r.store.GetMachine(ctx, id)
	if err != nil {
		return nil, model.Transient("loading machine", err)
	}
	m.Status = Classify(m.LastSeenAt, r.now())
	return m, nil
}

// List returns every machine with its live status.
func (r *Registry) List(ctx context.Context) ([]model.Machine, error) {
	ms, err := r.store.ListMachines(ctx)
	if err != nil {
		return nil, model.Transient("listing machines", err)
	}
	now := r.now()
	for i := range ms {
		ms[i].Status = Classify(ms[i].LastSeenAt, now)
	}
	if ms == nil {
		ms = []model.Machine{}
	}
	return ms, nil
}

// Delete removes a machine and everything it owns.
func (r *Registry) Delete(ctx context.Context, id string) error {
	return model.Transient("deleting machine", r.store.DeleteMachine(ctx, id))
}

// RotateToken issues a fresh credential for a machine and returns it. The old
// token stops working immediately.
func (r *Registry) RotateToken(ctx context.Context, id string) (string, error) {
	token := rand.Text()
	if err := r.store.SetMachineToken(ctx, id, token); err != nil {
		return "", model.Transient("rotating token", err)
	}
	return token, nil
}

// Thresholds returns the machine's alert thresholds, or the defaults when no
// override is stored. The bool reports whether an override exists.
func (r *Registry) Thresholds(ctx context.Context, machineID string) (model.AlertThreshold, bool, error) {
	th, found, err := r.store.GetThreshold(ctx, machineID)
	if err != nil {
		return model.AlertThreshold{}, false, model.Transient("loading thresholds", err)
	}
	if !found {
		th = model.DefaultThreshold()
		th.MachineID = machineID
	}
	return th, found, nil
}

// SetThresholds validates and stores a machine's threshold override.
func (r *Registry) SetThresholds(ctx context.Context, th model.AlertThreshold) (model.AlertThreshold, error) {
	if _, err := r.store.GetMachine(ctx, th.MachineID); err != nil {
		return model.AlertThreshold{}, model.Transient("loading machine", err)
	}
	verr := &model.ValidationError{}
	for field, v := range map[string]float64{
		"cpu_threshold":  th.CPUThreshold,
		"ram_threshold":  th.RAMThreshold,
		"disk_threshold": th.DiskThreshold,
	} {
		if v < 0 || v > 100 {
			verr.Add(field, fmt.Sprintf("must be between 0 and 100, got %g", v))
		}
	}
	if err := verr.OrNil(); err != nil {
		return model.AlertThreshold{}, err
	}
	th.UpdatedAt = r.now().UTC().Truncate(time.Millisecond)
	if err := r.store.UpsertThreshold(ctx, th); err != nil {
		return model.AlertThreshold{}, model.Transient("saving thresholds", err)
	}
	return th, nil
}
