package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/model"
)

// GetNotificationConfig returns the saved notification settings, or the
// defaults when none have been saved.
func (s *Store) GetNotificationConfig(ctx context.Context) (model.NotificationConfig, error) {
	var (
		c                          model.NotificationConfig
		enabled, offline, eventLog int
		updated                    int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT enabled, line_token, cpu_threshold, ram_threshold, disk_threshold,
			notify_offline, notify_event_log, cooldown_minutes, updated_at
		FROM notification_config WHERE id = 'default'`,
	).Scan(&enabled, &c.LineToken, &c.CPUThreshold, &c.RAMThreshold, &c.DiskThreshold,
		&offline, &eventLog, &c.CooldownMinutes, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultNotificationConfig(), nil
	}
	if err != nil {
		return model.NotificationConfig{}, fmt.Errorf("querying notification config: %w", err)
	}
	c.Enabled = enabled != 0
	c.NotifyOffline = offline != 0
	c.NotifyEventLog = eventLog != 0
	c.UpdatedAt = fromMS(updated)
	return c, nil
}

// SaveNotificationConfig replaces the notification settings.
func (s *Store) SaveNotificationConfig(ctx context.Context, c model.NotificationConfig, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_config (id, enabled, line_token, cpu_threshold, ram_threshold, disk_threshold,
			notify_offline, notify_event_log, cooldown_minutes, updated_at)
		VALUES ('default', ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			enabled          = excluded.enabled,
			line_token       = excluded.line_token,
			cpu_threshold    = excluded.cpu_threshold,
			ram_threshold    = excluded.ram_threshold,
			disk_threshold   = excluded.disk_threshold,
			notify_offline   = excluded.notify_offline,
			notify_event_log = excluded.notify_event_log,
			cooldown_minutes = excluded.cooldown_minutes,
			updated_at       = excluded.updated_at`,
		boolInt(c.Enabled), c.LineToken, c.CPUThreshold, c.RAMThreshold, c.DiskThreshold,
		boolInt(c.NotifyOffline), boolInt(c.NotifyEventLog), c.CooldownMinutes, ms(now),
	)
	if err != nil {
		return fmt.Errorf("saving notification config: %w", err)
	}
	return nil
}
