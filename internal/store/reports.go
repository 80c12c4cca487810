package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/google/uuid"
)

const reportColumns = `id, machine_id, cpu_usage, cpu_cores, cpu_speed, cpu_temp,
	ram_total, ram_used, ram_usage, disk_total, disk_used, disk_usage,
	network_up, uptime, antivirus_status, event_log_errors, telemetry_json, created_at`

func scanReport(row scanner) (*model.Report, error) {
	var (
		r                model.Report
		cores            sql.NullInt64
		speed, av, telem sql.NullString
		temp, uptime     sql.NullFloat64
		networkUp        int
		created          int64
	)
	if err := row.Scan(&r.ID, &r.MachineID, &r.CPUUsage, &cores, &speed, &temp,
		&r.RAMTotal, &r.RAMUsed, &r.RAMUsage, &r.DiskTotal, &r.DiskUsed, &r.DiskUsage,
		&networkUp, &uptime, &av, &r.EventLogErrors, &telem, &created); err != nil {
		return nil, err
	}
	if cores.Valid {
		v := int(cores.Int64)
		r.CPUCores = &v
	}
	if temp.Valid {
		v := temp.Float64
		r.CPUTemp = &v
	}
	if uptime.Valid {
		v := uptime.Float64
		r.Uptime = &v
	}
	r.CPUSpeed = speed.String
	r.AntivirusStatus = av.String
	r.NetworkUp = networkUp != 0
	r.CreatedAt = fromMS(created)
	if telem.Valid && telem.String != "" {
		if err := json.Unmarshal([]byte(telem.String), &r.Telemetry); err != nil {
			return nil, fmt.Errorf("decoding telemetry for report %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

// InsertReport persists a report, assigning its ID when empty. The report's
// CreatedAt must be set by the caller.
func (s *Store) InsertReport(ctx context.Context, r *model.Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	var telem any
	if len(r.Telemetry) > 0 {
		b, err := json.Marshal(r.Telemetry)
		if err != nil {
			return fmt.Errorf("encoding telemetry: %w", err)
		}
		telem = string(b)
	}
	var cores, temp, uptime any
	if r.CPUCores != nil {
		cores = *r.CPUCores
	}
	if r.CPUTemp != nil {
		temp = *r.CPUTemp
	}
	if r.Uptime != nil {
		uptime = *r.Uptime
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.MachineID, r.CPUUsage, cores, nullString(r.CPUSpeed), temp,
		r.RAMTotal, r.RAMUsed, r.RAMUsage, r.DiskTotal, r.DiskUsed, r.DiskUsage,
		boolInt(r.NetworkUp), uptime, nullString(r.AntivirusStatus), r.EventLogErrors, telem,
		ms(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting report for machine %s: %w", r.MachineID, err)
	}
	return nil
}

// LatestReport returns the most recent report for a machine.
func (s *Store) LatestReport(ctx context.Context, machineID string) (*model.Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, `
		SELECT `+reportColumns+` FROM reports
		WHERE machine_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, machineID))
	if err != nil {
		return nil, notFound(err, "latest report for machine "+machineID)
	}
	return r, nil
}

// LatestReports returns the most recent report of every machine that has one,
// keyed by machine ID.
func (s *Store) LatestReports(ctx context.Context) (map[string]*model.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reportColumns+` FROM reports r
		WHERE r.rowid = (
			SELECT r2.rowid FROM reports r2
			WHERE r2.machine_id = r.machine_id
			ORDER BY r2.created_at DESC, r2.rowid DESC LIMIT 1
		)`)
	if err != nil {
		return nil, fmt.Errorf("querying latest reports: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*model.Report)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		out[r.MachineID] = r
	}
	return out, rows.Err()
}

// ListReports returns a machine's reports created at or after since, oldest
// first. A non-positive limit means no limit.
func (s *Store) ListReports(ctx context.Context, machineID string, since time.Time, limit int) ([]model.Report, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reportColumns+` FROM reports
		WHERE machine_id = ? AND created_at >= ?
		ORDER BY created_at ASC, rowid ASC LIMIT ?`, machineID, ms(since), limit)
	if err != nil {
		return nil, fmt.Errorf("listing reports for machine %s: %w", machineID, err)
	}
	defer rows.Close()

	var out []model.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// DeleteReportsBefore removes one machine's reports older than cutoff.
func (s *Store) DeleteReportsBefore(ctx context.Context, machineID string, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reports WHERE machine_id = ? AND created_at < ?`, machineID, ms(cutoff))
	if err != nil {
		return 0, fmt.Errorf("pruning reports for machine %s: %w", machineID, err)
	}
	return res.RowsAffected()
}

// DeleteAllReportsBefore removes every report older than cutoff.
func (s *Store) DeleteAllReportsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE created_at < ?`, ms(cutoff))
	if err != nil {
		return 0, fmt.Errorf("pruning reports: %w", err)
	}
	return res.RowsAffected()
}

// GetThreshold returns the machine's threshold override. The bool is false
// when none is stored.
func (s *Store) GetThreshold(ctx context.Context, machineID string) (model.AlertThreshold, bool, error) {
	var (
		th      model.AlertThreshold
		evt     int
		updated int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT machine_id, cpu_threshold, ram_threshold, disk_threshold, event_log_errors, updated_at
		FROM alert_thresholds WHERE machine_id = ?`, machineID,
	).Scan(&th.MachineID, &th.CPUThreshold, &th.RAMThreshold, &th.DiskThreshold, &evt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AlertThreshold{}, false, nil
	}
	if err != nil {
		return model.AlertThreshold{}, false, fmt.Errorf("querying threshold for machine %s: %w", machineID, err)
	}
	th.EventLogErrors = evt != 0
	th.UpdatedAt = fromMS(updated)
	return th, true, nil
}

// UpsertThreshold stores a machine's threshold override.
func (s *Store) UpsertThreshold(ctx context.Context, th model.AlertThreshold) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_thresholds (machine_id, cpu_threshold, ram_threshold, disk_threshold, event_log_errors, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(machine_id) DO UPDATE SET
			cpu_threshold    = excluded.cpu_threshold,
			ram_threshold    = excluded.ram_threshold,
			disk_threshold   = excluded.disk_threshold,
			event_log_errors = excluded.event_log_errors,
			updated_at       = excluded.updated_at`,
		th.MachineID, th.CPUThreshold, th.RAMThreshold, th.DiskThreshold, boolInt(th.EventLogErrors), ms(th.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving threshold for machine %s: %w", th.MachineID, err)
	}
	return nil
}
