package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/model"
)

// SettingsStore persists the notification configuration.
type SettingsStore interface {
	ConfigSource
	SaveNotificationConfig(ctx context.Context, c model.NotificationConfig, now time.Time) error
}

// ConfigPatch is a partial update. Nil fields keep their stored value and a
// blank token keeps the stored token.
type ConfigPatch struct {
	Enabled         *bool    `json:"enabled,omitempty"`
	LineToken       *string  `json:"line_token,omitempty"`
	CPUThreshold    *float64 `json:"cpu_threshold,omitempty"`
	RAMThreshold    *float64 `json:"ram_threshold,omitempty"`
	DiskThreshold   *float64 `json:"disk_threshold,omitempty"`
	NotifyOffline   *bool    `json:"notify_offline,omitempty"`
	NotifyEventLog  *bool    `json:"notify_event_log,omitempty"`
	CooldownMinutes *int     `json:"cooldown_minutes,omitempty"`
}

// MaskedConfig is the read view of the configuration. The token never
// leaves the process in full.
type MaskedConfig struct {
	model.NotificationConfig
	HasToken bool `json:"has_token"`
}

// Mask hides all but the edges of the configured token.
func Mask(c model.NotificationConfig) MaskedConfig {
	out := MaskedConfig{NotificationConfig: c, HasToken: c.LineToken != ""}
	out.LineToken = MaskToken(c.LineToken)
	return out
}

// MaskToken keeps the first 6 and last 4 characters of a token. Tokens too
// short to mask that way are hidden entirely.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	r := []rune(token)
	if len(r) <= 10 {
		return "..."
	}
	return string(r[:6]) + "..." + string(r[len(r)-4:])
}

// Apply returns c with the present patch fields applied.
func (p ConfigPatch) Apply(c model.NotificationConfig) (model.NotificationConfig, error) {
	verr := &model.ValidationError{}
	if p.Enabled != nil {
		c.Enabled = *p.Enabled
	}
	if p.LineToken != nil {
		if tok := strings.TrimSpace(*p.LineToken); tok != "" {
			c.LineToken = tok
		}
	}
	for field, pair := range map[string]struct {
		src *float64
		dst *float64
	}{
		"cpu_threshold":  {p.CPUThreshold, &c.CPUThreshold},
		"ram_threshold":  {p.RAMThreshold, &c.RAMThreshold},
		"disk_threshold": {p.DiskThreshold, &c.DiskThreshold},
	} {
		if pair.src == nil {
			continue
		}
		if v := *pair.src; v < 0 || v > 100 {
			verr.Add(field, fmt.Sprintf("must be between 0 and 100, got %g", v))
			continue
		}
		*pair.dst = *pair.src
	}
	if p.NotifyOffline != nil {
		c.NotifyOffline = *p.NotifyOffline
	}
	if p.NotifyEventLog != nil {
		c.NotifyEventLog = *p.NotifyEventLog
	}
	if p.CooldownMinutes != nil {
		if *p.CooldownMinutes < 0 {
			verr.Add("cooldown_minutes", "must not be negative")
		} else {
			c.CooldownMinutes = *p.CooldownMinutes
		}
	}
	if err := verr.OrNil(); err != nil {
		return model.NotificationConfig{}, err
	}
	return c, nil
}

// Settings reads and updates the stored notification configuration.
type Settings struct {
	store SettingsStore
	now   func() time.Time
}

// NewSettings returns a Settings over st.
func NewSettings(st SettingsStore) *Settings {
	return &Settings{store: st, now: time.Now}
}

// Get returns the masked configuration.
func (s *Settings) Get(ctx context.Context) (MaskedConfig, error) {
	c, err := s.store.GetNotificationConfig(ctx)
	if err != nil {
		return MaskedConfig{}, model.Transient("loading notification config", err)
	}
	return Mask(c), nil
}

// Update applies p to the stored configuration and returns the masked result.
func (s *Settings) Update(ctx context.Context, p ConfigPatch) (MaskedConfig, error) {
	c, err := s.store.GetNotificationConfig(ctx)
	if err != nil {
		return MaskedConfig{}, model.Transient("loading notification config", err)
	}
	c, err = p.Apply(c)
	if err != nil {
		return MaskedConfig{}, err
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	if err := s.store.SaveNotificationConfig(ctx, c, now); err != nil {
		return MaskedConfig{}, model.Transient("saving notification config", err)
	}
	c.UpdatedAt = now
	return Mask(c), nil
}
