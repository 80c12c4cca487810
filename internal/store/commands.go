package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/google/uuid"
)

const commandColumns = `c.id, c.machine_id, COALESCE(m.hostname, ''), c.action, c.params_json, c.status,
	c.result, c.created_at, c.claimed_at, c.executed_at`

const commandFrom = ` FROM commands c LEFT JOIN machines m ON m.id = c.machine_id`

func scanCommand(row scanner) (model.Command, error) {
	var (
		c                 model.Command
		params, result    sql.NullString
		created           int64
		claimed, executed sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.MachineID, &c.Hostname, &c.Action, &params, &c.Status,
		&result, &created, &claimed, &executed); err != nil {
		return model.Command{}, err
	}
	if params.Valid && params.String != "" {
		c.Params = json.RawMessage(params.String)
	}
	if result.Valid {
		v := result.String
		c.Result = &v
	}
	c.CreatedAt = fromMS(created)
	c.ClaimedAt = nullTime(claimed)
	c.ExecutedAt = nullTime(executed)
	return c, nil
}

// CreateCommand queues a pending command for a machine. An unknown machine
// returns model.ErrNotFound.
func (s *Store) CreateCommand(ctx context.Context, machineID, action string, params json.RawMessage, now time.Time) (model.Command, error) {
	var out model.Command
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var hostname string
		if err := tx.QueryRowContext(ctx, `SELECT hostname FROM machines WHERE id = ?`, machineID).Scan(&hostname); err != nil {
			return notFound(err, "machine "+machineID)
		}
		var p any
		if len(params) > 0 {
			p = string(params)
		}
		out = model.Command{
			ID:        uuid.NewString(),
			MachineID: machineID,
			Hostname:  hostname,
			Action:    action,
			Params:    params,
			Status:    model.CommandPending,
			CreatedAt: fromMS(ms(now)),
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO commands (id, machine_id, action, params_json, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			out.ID, machineID, action, p, model.CommandPending, ms(now),
		); err != nil {
			return fmt.Errorf("inserting command for machine %s: %w", machineID, err)
		}
		return nil
	})
	if err != nil {
		return model.Command{}, err
	}
	return out, nil
}

// GetCommand returns one command.
func (s *Store) GetCommand(ctx context.Context, id string) (model.Command, error) {
	c, err := scanCommand(s.db.QueryRowContext(ctx, `SELECT `+commandColumns+commandFrom+` WHERE c.id = ?`, id))
	if err != nil {
		return model.Command{}, notFound(err, "command "+id)
	}
	return c, nil
}

// ClaimPendingCommands atomically moves every pending command of a machine to
// executing and returns them in creation order. A second claim returns none
// of the same commands.
func (s *Store) ClaimPendingCommands(ctx context.Context, machineID string, now time.Time) ([]model.Command, error) {
	out := []model.Command{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT `+commandColumns+commandFrom+`
			WHERE c.machine_id = ? AND c.status = ?
			ORDER BY c.created_at ASC, c.rowid ASC`, machineID, model.CommandPending)
		if err != nil {
			return fmt.Errorf("querying pending commands for machine %s: %w", machineID, err)
		}
		for rows.Next() {
			c, err := scanCommand(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scanning command: %w", err)
			}
			out = append(out, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(out) == 0 {
			return nil
		}

		args := []any{model.CommandExecuting, ms(now)}
		for _, c := range out {
			args = append(args, c.ID)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE commands SET status = ?, claimed_at = ?
			WHERE status = 'pending' AND id IN (`+placeholders(len(out))+`)`, args...,
		); err != nil {
			return fmt.Errorf("claiming commands for machine %s: %w", machineID, err)
		}
		claimed := fromMS(ms(now))
		for i := range out {
			out[i].Status = model.CommandExecuting
			out[i].ClaimedAt = &claimed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FinishCommand moves an executing command to status (completed or failed)
// with its result. Unknown IDs return model.ErrNotFound, and commands that are
// not executing return model.ErrInvalidTransition.
func (s *Store) FinishCommand(ctx context.Context, id string, status model.CommandStatus, result string, now time.Time) (model.Command, error) {
	return s.FinishCommandWithScreenshot(ctx, id, status, result, now, nil)
}

// FinishCommandWithScreenshot is FinishCommand that also records shot in the
// same transaction. Either both are stored or neither is.
func (s *Store) FinishCommandWithScreenshot(ctx context.Context, id string, status model.CommandStatus, result string, now time.Time, shot *model.Screenshot) (model.Command, error) {
	if status != model.CommandCompleted && status != model.CommandFailed {
		return model.Command{}, fmt.Errorf("finishing command %s as %s: %w", id, status, model.ErrInvalidTransition)
	}
	var out model.Command
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := scanCommand(tx.QueryRowContext(ctx, `SELECT `+commandColumns+commandFrom+` WHERE c.id = ?`, id))
		if err != nil {
			return notFound(err, "command "+id)
		}
		if c.Status != model.CommandExecuting {
			return fmt.Errorf("command %s is %s: %w", id, c.Status, model.ErrInvalidTransition)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE commands SET status = ?, result = ?, executed_at = ? WHERE id = ?`,
			status, result, ms(now), id,
		); err != nil {
			return fmt.Errorf("finishing command %s: %w", id, err)
		}
		if shot != nil {
			if shot.ID == "" {
				shot.ID = uuid.NewString()
			}
			if err := insertScreenshot(ctx, tx, shot); err != nil {
				return err
			}
		}
		executed := fromMS(ms(now))
		c.Status = status
		c.Result = &result
		c.ExecutedAt = &executed
		out = c
		return nil
	})
	if err != nil {
		return model.Command{}, err
	}
	return out, nil
}

// ExpireCommands fails every executing command claimed before cutoff with the
// given result and returns the commands it changed.
func (s *Store) ExpireCommands(ctx context.Context, cutoff, now time.Time, result string) ([]model.Command, error) {
	var out []model.Command
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT `+commandColumns+commandFrom+`
			WHERE c.status = ? AND c.claimed_at < ?`, model.CommandExecuting, ms(cutoff))
		if err != nil {
			return fmt.Errorf("querying stale commands: %w", err)
		}
		for rows.Next() {
			c, err := scanCommand(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scanning command: %w", err)
			}
			out = append(out, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(out) == 0 {
			return nil
		}

		args := []any{model.CommandFailed, result, ms(now)}
		for _, c := range out {
			args = append(args, c.ID)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE commands SET status = ?, result = ?, executed_at = ?
			WHERE status = 'executing' AND id IN (`+placeholders(len(out))+`)`, args...,
		); err != nil {
			return fmt.Errorf("expiring commands: %w", err)
		}
		executed := fromMS(ms(now))
		for i := range out {
			out[i].Status = model.CommandFailed
			out[i].Result = &result
			out[i].ExecutedAt = &executed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListCommands returns the newest commands, optionally filtered by machine and
// status. A non-positive limit means no limit.
func (s *Store) ListCommands(ctx context.Context, machineID string, status model.CommandStatus, limit int) ([]model.Command, error) {
	var (
		where []string
		args  []any
	)
	if machineID != "" {
		where = append(where, "c.machine_id = ?")
		args = append(args, machineID)
	}
	if status != "" {
		where = append(where, "c.status = ?")
		args = append(args, status)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+commandColumns+commandFrom+cond+`
		ORDER BY c.created_at DESC, c.rowid DESC LIMIT ?`, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("listing commands: %w", err)
	}
	defer rows.Close()

	out := []model.Command{}
	for rows.Next() {
		c, err := scanCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning command: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PruneFinishedCommands removes completed and failed commands that finished
// before cutoff.
func (s *Store) PruneFinishedCommands(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM commands
		WHERE status IN ('completed', 'failed') AND executed_at < ?`, ms(cutoff))
	if err != nil {
		return 0, fmt.Errorf("pruning commands: %w", err)
	}
	return res.RowsAffected()
}
