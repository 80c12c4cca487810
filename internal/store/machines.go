package store

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/google/uuid"
)

const machineColumns = `id, hostname, ip_address, mac_address, os_version, department,
	grp, label, tags, token, last_seen_at, created_at`

func scanMachine(row scanner) (*model.Machine, error) {
	var (
		m                          model.Machine
		mac, osv, grp, label, tags sql.NullString
		lastSeen, created          int64
	)
	if err := row.Scan(&m.ID, &m.Hostname, &m.IPAddress, &mac, &osv, &m.Department,
		&grp, &label, &tags, &m.Token, &lastSeen, &created); err != nil {
		return nil, err
	}
	m.MACAddress = mac.String
	m.OSVersion = osv.String
	m.Group = grp.String
	m.Label = label.String
	m.Tags = tags.String
	m.LastSeenAt = fromMS(lastSeen)
	m.CreatedAt = fromMS(created)
	return &m, nil
}

// UpsertMachine creates the machine for hostname, binding token as its
// credential, or, when it exists and token matches, refreshes its non-empty
// identity fields and last-seen time. A token mismatch returns
// model.ErrUnauthorized and changes nothing. The returned bool reports creation.
func (s *Store) UpsertMachine(ctx context.Context, hostname, token string, f model.MachineFields, now time.Time) (*model.Machine, bool, error) {
	var (
		out     *model.Machine
		created bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := scanMachine(tx.QueryRowContext(ctx,
			`SELECT `+machineColumns+` FROM machines WHERE hostname = ?`, hostname))
		if errors.Is(err, sql.ErrNoRows) {
			m = &model.Machine{
				ID:         uuid.NewString(),
				Hostname:   hostname,
				IPAddress:  orDefault(f.IPAddress, "unknown"),
				MACAddress: f.MACAddress,
				OSVersion:  f.OSVersion,
				Department: orDefault(f.Department, "General"),
				Token:      token,
				LastSeenAt: now.UTC().Truncate(time.Millisecond),
				CreatedAt:  now.UTC().Truncate(time.Millisecond),
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO machines (id, hostname, ip_address, mac_address, os_version, department,
					token, last_seen_at, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				m.ID, m.Hostname, m.IPAddress, nullString(m.MACAddress), nullString(m.OSVersion),
				m.Department, m.Token, ms(now), ms(now),
			)
			if err != nil {
				return fmt.Errorf("inserting machine %s: %w", hostname, err)
			}
			out, created = m, true
			return nil
		}
		if err != nil {
			return fmt.Errorf("querying machine %s: %w", hostname, err)
		}

		if subtle.ConstantTimeCompare([]byte(m.Token), []byte(token)) != 1 {
			return model.ErrUnauthorized
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE machines SET
				ip_address   = COALESCE(NULLIF(?, ''), ip_address),
				mac_address  = COALESCE(NULLIF(?, ''), mac_address),
				os_version   = COALESCE(NULLIF(?, ''), os_version),
				department   = COALESCE(NULLIF(?, ''), department),
				last_seen_at = ?
			WHERE id = ?`,
			f.IPAddress, f.MACAddress, f.OSVersion, f.Department, ms(now), m.ID,
		)
		if err != nil {
			return fmt.Errorf("updating machine %s: %w", hostname, err)
		}
		m.IPAddress = orDefault(f.IPAddress, m.IPAddress)
		m.MACAddress = orDefault(f.MACAddress, m.MACAddress)
		m.OSVersion = orDefault(f.OSVersion, m.OSVersion)
		m.Department = orDefault(f.Department, m.Department)
		m.LastSeenAt = now.UTC().Truncate(time.Millisecond)
		out = m
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// AuthenticateMachine returns the machine for hostname when token matches its
// credential, model.ErrUnauthorized otherwise (including unknown hostnames).
func (s *Store) AuthenticateMachine(ctx context.Context, hostname, token string) (*model.Machine, error) {
	m, err := s.GetMachineByHostname(ctx, hostname)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(m.Token), []byte(token)) != 1 {
		return nil, model.ErrUnauthorized
	}
	return m, nil
}

// GetMachine returns the machine with the given id.
func (s *Store) GetMachine(ctx context.Context, id string) (*model.Machine, error) {
	m, err := scanMachine(s.db.QueryRowContext(ctx,
		`SELECT `+machineColumns+` FROM machines WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "machine "+id)
	}
	return m, nil
}

// GetMachineByHostname returns the machine registered under hostname.
func (s *Store) GetMachineByHostname(ctx context.Context, hostname string) (*model.Machine, error) {
	m, err := scanMachine(s.db.QueryRowContext(ctx,
		`SELECT `+machineColumns+` FROM machines WHERE hostname = ?`, hostname))
	if err != nil {
		return nil, notFound(err, "machine "+hostname)
	}
	return m, nil
}

// ListMachines returns every machine ordered by hostname.
func (s *Store) ListMachines(ctx context.Context) ([]model.Machine, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+machineColumns+` FROM machines ORDER BY hostname`)
	if err != nil {
		return nil, fmt.Errorf("listing machines: %w", err)
	}
	defer rows.Close()

	var out []model.Machine
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning machine: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// DeleteMachine removes a machine; its reports, alerts, thresholds, commands
// and screenshot rows cascade.
func (s *Store) DeleteMachine(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM machines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting machine %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("machine %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// SetMachineToken replaces a machine's credential. This is the only path that
// changes a token after first contact.
func (s *Store) SetMachineToken(ctx context.Context, id, token string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE machines SET token = ? WHERE id = ?`, token, id)
	if err != nil {
		return fmt.Errorf("rotating token for machine %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("machine %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
