package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/google/uuid"
)

const screenshotColumns = `id, machine_id, command_id, path, created_at`

func scanScreenshot(row scanner) (model.Screenshot, error) {
	var (
		sc      model.Screenshot
		cmdID   sql.NullString
		created int64
	)
	if err := row.Scan(&sc.ID, &sc.MachineID, &cmdID, &sc.Path, &created); err != nil {
		return model.Screenshot{}, err
	}
	sc.CommandID = cmdID.String
	sc.CreatedAt = fromMS(created)
	return sc, nil
}

// InsertScreenshot records a screenshot artifact, assigning its ID when empty.
func (s *Store) InsertScreenshot(ctx context.Context, sc *model.Screenshot) error {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	return insertScreenshot(ctx, s.db, sc)
}

func insertScreenshot(ctx context.Context, db execer, sc *model.Screenshot) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO screenshots (`+screenshotColumns+`) VALUES (?, ?, ?, ?, ?)`,
		sc.ID, sc.MachineID, nullString(sc.CommandID), sc.Path, ms(sc.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting screenshot for machine %s: %w", sc.MachineID, err)
	}
	return nil
}

// ListScreenshots returns a machine's screenshots, newest first.
func (s *Store) ListScreenshots(ctx context.Context, machineID string) ([]model.Screenshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+screenshotColumns+` FROM screenshots
		WHERE machine_id = ? ORDER BY created_at DESC, rowid DESC`, machineID)
	if err != nil {
		return nil, fmt.Errorf("listing screenshots for machine %s: %w", machineID, err)
	}
	defer rows.Close()

	out := []model.Screenshot{}
	for rows.Next() {
		sc, err := scanScreenshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning screenshot: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// GetScreenshot returns one screenshot row.
func (s *Store) GetScreenshot(ctx context.Context, id string) (model.Screenshot, error) {
	sc, err := scanScreenshot(s.db.QueryRowContext(ctx,
		`SELECT `+screenshotColumns+` FROM screenshots WHERE id = ?`, id))
	if err != nil {
		return model.Screenshot{}, notFound(err, "screenshot "+id)
	}
	return sc, nil
}

// DeleteScreenshot removes one screenshot row and returns it so the caller
// can remove the file.
func (s *Store) DeleteScreenshot(ctx context.Context, id string) (model.Screenshot, error) {
	var out model.Screenshot
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sc, err := scanScreenshot(tx.QueryRowContext(ctx,
			`SELECT `+screenshotColumns+` FROM screenshots WHERE id = ?`, id))
		if err != nil {
			return notFound(err, "screenshot "+id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM screenshots WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting screenshot %s: %w", id, err)
		}
		out = sc
		return nil
	})
	return out, err
}

// DeleteScreenshots removes every screenshot row of a machine and returns the
// removed rows.
func (s *Store) DeleteScreenshots(ctx context.Context, machineID string) ([]model.Screenshot, error) {
	var out []model.Screenshot
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT `+screenshotColumns+` FROM screenshots WHERE machine_id = ?`, machineID)
		if err != nil {
			return fmt.Errorf("listing screenshots for machine %s: %w", machineID, err)
		}
		for rows.Next() {
			sc, err := scanScreenshot(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scanning screenshot: %w", err)
			}
			out = append(out, sc)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM screenshots WHERE machine_id = ?`, machineID); err != nil {
			return fmt.Errorf("deleting screenshots for machine %s: %w", machineID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
