package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/llmwatch/llmwatch/internal/domain/baseline"
	"github.com/llmwatch/llmwatch/internal/pkg/errors"
)

type BaselineRepository struct {
	store *Store
}

func NewBaselineRepository(store *Store) baseline.Repository {
	return &BaselineRepository{store: store}
}

func (r *BaselineRepository) Save(ctx context.Context, snap *baseline.Snapshot) (int64, error) {
	snap.CreatedAt = time.Now()

	query := r.store.rebind(`INSERT INTO baseline_snapshots (captured_at, metrics, datapoints, data, created_at) VALUES (?, ?, ?, ?, ?)`)

	result, err := r.store.DB.ExecContext(ctx, query,
		formatTime(snap.CapturedAt), snap.Metrics, snap.Datapoints, snap.Data, formatTime(snap.CreatedAt))
	if err != nil {
		return 0, errors.DatabaseError("Failed to save baseline snapshot", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, nil
	}
	snap.ID = id
	return id, nil
}

func (r *BaselineRepository) Latest(ctx context.Context) (*baseline.Snapshot, error) {
	query := `SELECT id, captured_at, metrics, datapoints, data, created_at FROM baseline_snapshots ORDER BY id DESC LIMIT 1`

	var snap baseline.Snapshot
	var capturedAt, createdAt string
	err := r.store.DB.QueryRowContext(ctx, query).Scan(
		&snap.ID, &capturedAt, &snap.Metrics, &snap.Datapoints, &snap.Data, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to load latest snapshot", err)
	}

	snap.CapturedAt = parseTime(capturedAt)
	snap.CreatedAt = parseTime(createdAt)
	return &snap, nil
}

func (r *BaselineRepository) List(ctx context.Context, limit int) ([]*baseline.Snapshot, error) {
	query := r.store.rebind(`SELECT id, captured_at, metrics, datapoints, created_at FROM baseline_snapshots ORDER BY id DESC LIMIT ?`)

	rows, err := r.store.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list snapshots", err)
	}
	defer rows.Close()

	snapshots := make([]*baseline.Snapshot, 0, limit)
	for rows.Next() {
		var snap baseline.Snapshot
		var capturedAt, createdAt string
		if err := rows.Scan(&snap.ID, &capturedAt, &snap.Metrics, &snap.Datapoints, &createdAt); err != nil {
			return nil, errors.DatabaseError("Failed to scan snapshot", err)
		}
		snap.CapturedAt = parseTime(capturedAt)
		snap.CreatedAt = parseTime(createdAt)
		snapshots = append(snapshots, &snap)
	}
	return snapshots, rows.Err()
}

func (r *BaselineRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	// The most recent snapshot always survives so a restart can restore.
	query := r.store.rebind(`DELETE FROM baseline_snapshots WHERE captured_at < ? AND id != (SELECT MAX(id) FROM baseline_snapshots)`)

	result, err := r.store.DB.ExecContext(ctx, query, formatTime(cutoff))
	if err != nil {
		return 0, errors.DatabaseError("Failed to prune snapshots", err)
	}
	return result.RowsAffected()
}
