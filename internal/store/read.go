package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/taskmgr/internal/task"
)

// SnapshotInfo describes one retained snapshot.
type SnapshotInfo struct {
	ID    string `json:"id"`
	Seq   int64  `json:"seq"`
	Items int    `json:"items"`
}

// Load returns the newest snapshot, or an empty one if nothing was saved.
func (s *Store) Load(ctx context.Context) (task.Snapshot, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM snapshots
		ORDER BY seq DESC
		LIMIT 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Snapshot{}, nil
	}
	if err != nil {
		return task.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return s.ReadSnapshot(ctx, id)
}

// ReadSnapshot returns the snapshot with the given id. An unknown id
// fails with an error wrapping sql.ErrNoRows.
func (s *Store) ReadSnapshot(ctx context.Context, id string) (task.Snapshot, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM snapshots WHERE id = ?`, id).Scan(&exists); err != nil {
		return task.Snapshot{}, fmt.Errorf("read snapshot %s: %w", id, err)
	}

	var snap task.Snapshot
	if err := s.readItems(ctx, id, &snap); err != nil {
		return task.Snapshot{}, fmt.Errorf("read snapshot %s: %w", id, err)
	}
	history, err := s.readHistory(ctx, id)
	if err != nil {
		return task.Snapshot{}, fmt.Errorf("read snapshot %s: %w", id, err)
	}
	snap.History = history
	return snap, nil
}

func (s *Store) readItems(ctx context.Context, snapshotID string, snap *task.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, name, status, description, epic_id
		FROM items
		WHERE snapshot_id = ?
		ORDER BY id ASC
	`, snapshotID)
	if err != nil {
		return fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return err
		}
		snap.Add(it)
	}
	return rows.Err()
}

func scanItem(rows *sql.Rows) (*task.Item, error) {
	var (
		it           task.Item
		kind, status string
		epicID       sql.NullInt64
	)
	if err := rows.Scan(&it.ID, &kind, &it.Name, &status, &it.Description, &epicID); err != nil {
		return nil, fmt.Errorf("scan item: %w", err)
	}

	var err error
	if it.Kind, err = task.ParseKind(kind); err != nil {
		return nil, fmt.Errorf("item %d: %w", it.ID, err)
	}
	if it.Status, err = task.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("item %d: %w", it.ID, err)
	}
	if epicID.Valid {
		it.EpicID = int(epicID.Int64)
	}
	return &it, nil
}

func (s *Store) readHistory(ctx context.Context, snapshotID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id FROM history
		WHERE snapshot_id = ?
		ORDER BY position ASC
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListSnapshots returns the retained snapshots, oldest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, item_count FROM snapshots
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.ID, &info.Seq, &info.Items); err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return infos, nil
}

// LastSeq returns the seq of the newest snapshot, 0 when none was saved.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	return lastSeq(ctx, s.db)
}
