package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/google/uuid"
)

// AlertScope selects which alerts a bulk delete removes.
type AlertScope string

const (
	ScopeAll      AlertScope = "all"
	ScopeActive   AlertScope = "active"
	ScopeResolved AlertScope = "resolved"
)

const alertColumns = `a.id, a.machine_id, COALESCE(m.hostname, ''), a.type, a.severity, a.message,
	a.resolved, a.resolved_at, a.created_at, a.updated_at`

const alertFrom = ` FROM alerts a LEFT JOIN machines m ON m.id = a.machine_id`

func scanAlert(row scanner) (model.Alert, error) {
	var (
		a                model.Alert
		resolved         int
		resolvedAt       sql.NullInt64
		created, updated int64
	)
	if err := row.Scan(&a.ID, &a.MachineID, &a.Hostname, &a.Type, &a.Severity, &a.Message,
		&resolved, &resolvedAt, &created, &updated); err != nil {
		return model.Alert{}, err
	}
	a.Resolved = resolved != 0
	a.ResolvedAt = nullTime(resolvedAt)
	a.CreatedAt = fromMS(created)
	a.UpdatedAt = fromMS(updated)
	return a, nil
}

// UpsertAlert records that condition typ holds for a machine. When an
// unresolved alert of that type exists its severity, message and update time
// are refreshed; otherwise a new alert row is created. The returned bool
// reports creation.
func (s *Store) UpsertAlert(ctx context.Context, machineID string, typ model.AlertType, sev model.Severity, msg string, now time.Time) (model.Alert, bool, error) {
	var (
		out     model.Alert
		created bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		a, err := scanAlert(tx.QueryRowContext(ctx, `SELECT `+alertColumns+alertFrom+`
			WHERE a.machine_id = ? AND a.type = ? AND a.resolved = 0`, machineID, typ))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id := uuid.NewString()
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO alerts (id, machine_id, type, severity, message, resolved, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
				id, machineID, typ, sev, msg, ms(now), ms(now),
			); err != nil {
				return fmt.Errorf("inserting %s alert for machine %s: %w", typ, machineID, err)
			}
			var hostname string
			if err := tx.QueryRowContext(ctx, `SELECT hostname FROM machines WHERE id = ?`, machineID).Scan(&hostname); err != nil {
				return notFound(err, "machine "+machineID)
			}
			out = model.Alert{
				ID:        id,
				MachineID: machineID,
				Hostname:  hostname,
				Type:      typ,
				Severity:  sev,
				Message:   msg,
				CreatedAt: fromMS(ms(now)),
				UpdatedAt: fromMS(ms(now)),
			}
			created = true
			return nil
		case err != nil:
			return fmt.Errorf("querying active %s alert for machine %s: %w", typ, machineID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE alerts SET severity = ?, message = ?, updated_at = ? WHERE id = ?`,
			sev, msg, ms(now), a.ID,
		); err != nil {
			return fmt.Errorf("updating alert %s: %w", a.ID, err)
		}
		a.Severity = sev
		a.Message = msg
		a.UpdatedAt = fromMS(ms(now))
		out = a
		return nil
	})
	if err != nil {
		return model.Alert{}, false, err
	}
	return out, created, nil
}

// ResolveAlerts resolves the unresolved alert of type typ on a machine, if any.
func (s *Store) ResolveAlerts(ctx context.Context, machineID string, typ model.AlertType, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET resolved = 1, resolved_at = ?, updated_at = ?
		WHERE machine_id = ? AND type = ? AND resolved = 0`,
		ms(now), ms(now), machineID, typ,
	)
	if err != nil {
		return 0, fmt.Errorf("resolving %s alerts for machine %s: %w", typ, machineID, err)
	}
	return res.RowsAffected()
}

// ResolveAlertsByID resolves the given alerts. Already-resolved and unknown
// IDs are skipped; the count of newly resolved alerts is returned.
func (s *Store) ResolveAlertsByID(ctx context.Context, ids []string, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{ms(now), ms(now)}
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET resolved = 1, resolved_at = ?, updated_at = ?
		WHERE resolved = 0 AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("resolving alerts: %w", err)
	}
	return res.RowsAffected()
}

// GetAlert returns one alert with its machine's hostname.
func (s *Store) GetAlert(ctx context.Context, id string) (model.Alert, error) {
	a, err := scanAlert(s.db.QueryRowContext(ctx, `SELECT `+alertColumns+alertFrom+` WHERE a.id = ?`, id))
	if err != nil {
		return model.Alert{}, notFound(err, "alert "+id)
	}
	return a, nil
}

// ActiveAlerts returns a machine's unresolved alerts, newest first.
func (s *Store) ActiveAlerts(ctx context.Context, machineID string) ([]model.Alert, error) {
	resolved := false
	page, err := s.ListAlerts(ctx, model.AlertFilter{MachineID: machineID, Resolved: &resolved, Limit: -1})
	if err != nil {
		return nil, err
	}
	return page.Data, nil
}

// ListAlerts returns one page of alerts matching f, newest first. Page is
// 1-based; a negative Limit returns every match on a single page.
func (s *Store) ListAlerts(ctx context.Context, f model.AlertFilter) (model.AlertPage, error) {
	var (
		where []string
		args  []any
	)
	if f.MachineID != "" {
		where = append(where, "a.machine_id = ?")
		args = append(args, f.MachineID)
	}
	if f.Resolved != nil {
		where = append(where, "a.resolved = ?")
		args = append(args, boolInt(*f.Resolved))
	}
	if f.Search != "" {
		like := "%" + escapeLike(f.Search) + "%"
		where = append(where, `(a.message LIKE ? ESCAPE '\' OR m.hostname LIKE ? ESCAPE '\' OR a.type LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+alertFrom+cond, args...).Scan(&total); err != nil {
		return model.AlertPage{}, fmt.Errorf("counting alerts: %w", err)
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	offset := 0
	if limit > 0 {
		offset = (page - 1) * limit
	} else {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+alertColumns+alertFrom+cond+`
		ORDER BY a.created_at DESC, a.rowid DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return model.AlertPage{}, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	out := model.AlertPage{Data: []model.Alert{}, Total: total, Page: page, Limit: limit}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return model.AlertPage{}, fmt.Errorf("scanning alert: %w", err)
		}
		out.Data = append(out.Data, a)
	}
	if err := rows.Err(); err != nil {
		return model.AlertPage{}, err
	}
	if limit > 0 {
		out.TotalPages = (total + limit - 1) / limit
	} else {
		out.Limit = total
		out.TotalPages = 1
	}
	return out, nil
}

// DeleteAlerts removes alerts in scope and returns how many were deleted.
func (s *Store) DeleteAlerts(ctx context.Context, scope AlertScope) (int64, error) {
	q := `DELETE FROM alerts`
	switch scope {
	case ScopeAll:
	case ScopeActive:
		q += ` WHERE resolved = 0`
	case ScopeResolved:
		q += ` WHERE resolved = 1`
	default:
		return 0, model.NewValidationError("scope", "must be one of all, active, resolved")
	}
	res, err := s.db.ExecContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("deleting %s alerts: %w", scope, err)
	}
	return res.RowsAffected()
}

// PruneResolvedAlerts removes alerts resolved before cutoff.
func (s *Store) PruneResolvedAlerts(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM alerts WHERE resolved = 1 AND resolved_at < ?`, ms(cutoff))
	if err != nil {
		return 0, fmt.Errorf("pruning resolved alerts: %w", err)
	}
	return res.RowsAffected()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
