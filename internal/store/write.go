package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/taskmgr/internal/task"
)

// Save writes snap as the newest snapshot and prunes snapshots beyond the
// retention count. Everything happens in one transaction: a failed save
// leaves the previous snapshot in place.
func (s *Store) Save(ctx context.Context, snap task.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	seq, err := lastSeq(ctx, tx)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	seq++
	id := s.ids.Generate()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, seq, item_count)
		VALUES (?, ?, ?)
	`, id, seq, snap.Len()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if err := writeItems(ctx, tx, id, snap); err != nil {
		return fmt.Errorf("save snapshot %s: %w", id, err)
	}
	if err := writeHistory(ctx, tx, id, snap.History); err != nil {
		return fmt.Errorf("save snapshot %s: %w", id, err)
	}

	pruned, err := prune(ctx, tx, seq, s.retain)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot %s: commit: %w", id, err)
	}

	s.logger.Debug("snapshot written", "id", id, "seq", seq, "items", snap.Len(), "pruned", pruned)
	return nil
}

func writeItems(ctx context.Context, tx *sql.Tx, snapshotID string, snap task.Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (snapshot_id, id, type, name, status, description, epic_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare items: %w", err)
	}
	defer stmt.Close()

	for _, kind := range task.Kinds {
		for _, it := range snap.Items(kind) {
			if it.Kind != kind {
				return fmt.Errorf("item %d: %s stored as %s", it.ID, it.Kind, kind)
			}
			var epicID sql.NullInt64
			if it.Kind == task.KindSubtask {
				epicID = sql.NullInt64{Int64: int64(it.EpicID), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				snapshotID,
				it.ID,
				it.Kind.String(),
				it.Name,
				it.Status.String(),
				it.Description,
				epicID,
			); err != nil {
				return fmt.Errorf("write %s %d: %w", it.Kind, it.ID, err)
			}
		}
	}
	return nil
}

func writeHistory(ctx context.Context, tx *sql.Tx, snapshotID string, history []int) error {
	if len(history) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO history (snapshot_id, position, item_id)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare history: %w", err)
	}
	defer stmt.Close()

	for pos, id := range history {
		if _, err := stmt.ExecContext(ctx, snapshotID, pos, id); err != nil {
			return fmt.Errorf("write history entry %d: %w", pos, err)
		}
	}
	return nil
}

// prune deletes snapshots older than the newest retain. Items and history
// rows go with them through ON DELETE CASCADE.
func prune(ctx context.Context, tx *sql.Tx, newest int64, retain int) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM snapshots WHERE seq <= ?
	`, newest-int64(retain))
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	return n, nil
}
