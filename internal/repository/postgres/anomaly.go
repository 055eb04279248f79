package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/llmwatch/llmwatch/internal/domain/anomaly"
	"github.com/llmwatch/llmwatch/internal/pkg/errors"
)

type AnomalyRepository struct {
	store *Store
}

func NewAnomalyRepository(store *Store) anomaly.Repository {
	return &AnomalyRepository{store: store}
}

const anomalyColumns = `id, metric_name, value, z_score, deviation_percent, direction, severity, baseline_mean, baseline_std, pattern_id, detected_at, created_at`

func (r *AnomalyRepository) Create(ctx context.Context, a *anomaly.Record) (int64, error) {
	a.CreatedAt = time.Now()

	query := r.store.rebind(`INSERT INTO anomalies (metric_name, value, z_score, deviation_percent, direction, severity, baseline_mean, baseline_std, pattern_id, detected_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	result, err := r.store.DB.ExecContext(ctx, query,
		a.MetricName, a.Value, a.ZScore, a.DeviationPercent, a.Direction, a.Severity,
		a.BaselineMean, a.BaselineStd, a.PatternID, formatTime(a.DetectedAt), formatTime(a.CreatedAt))
	if err != nil {
		return 0, errors.DatabaseError("Failed to create anomaly", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		// lib/pq does not implement LastInsertId; the record is stored
		// either way and callers only use the id for logging.
		return 0, nil
	}
	a.ID = id
	return id, nil
}

func (r *AnomalyRepository) GetByID(ctx context.Context, id int64) (*anomaly.Record, error) {
	query := r.store.rebind(fmt.Sprintf(`SELECT %s FROM anomalies WHERE id = ?`, anomalyColumns))

	a, err := scanAnomaly(r.store.DB.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Anomaly")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get anomaly", err)
	}
	return a, nil
}

func (r *AnomalyRepository) List(ctx context.Context, filter anomaly.Filter, limit, offset int) ([]*anomaly.Record, int64, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.MetricName != "" {
		where = append(where, "metric_name = ?")
		args = append(args, filter.MetricName)
	}
	if filter.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.Direction != "" {
		where = append(where, "direction = ?")
		args = append(args, filter.Direction)
	}
	if filter.PatternID != "" {
		where = append(where, "pattern_id = ?")
		args = append(args, filter.PatternID)
	}
	if !filter.Since.IsZero() {
		where = append(where, "detected_at >= ?")
		args = append(args, formatTime(filter.Since))
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := r.store.rebind(fmt.Sprintf("SELECT COUNT(*) FROM anomalies WHERE %s", whereClause))
	if err := r.store.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count anomalies", err)
	}

	query := r.store.rebind(fmt.Sprintf(`SELECT %s FROM anomalies WHERE %s ORDER BY id DESC LIMIT ? OFFSET ?`, anomalyColumns, whereClause))
	args = append(args, limit, offset)

	rows, err := r.store.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list anomalies", err)
	}
	defer rows.Close()

	records := make([]*anomaly.Record, 0, limit)
	for rows.Next() {
		a, err := scanAnomaly(rows)
		if err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan anomaly", err)
		}
		records = append(records, a)
	}
	return records, total, rows.Err()
}

func (r *AnomalyRepository) CountBySeverity(ctx context.Context) (map[string]int, error) {
	rows, err := r.store.DB.QueryContext(ctx, `SELECT severity, COUNT(*) FROM anomalies GROUP BY severity`)
	if err != nil {
		return nil, errors.DatabaseError("Failed to count anomalies by severity", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, errors.DatabaseError("Failed to scan count", err)
		}
		counts[severity] = count
	}
	return counts, rows.Err()
}

func (r *AnomalyRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := r.store.rebind(`DELETE FROM anomalies WHERE detected_at < ?`)
	result, err := r.store.DB.ExecContext(ctx, query, formatTime(cutoff))
	if err != nil {
		return 0, errors.DatabaseError("Failed to prune anomalies", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnomaly(row rowScanner) (*anomaly.Record, error) {
	var a anomaly.Record
	var detectedAt, createdAt string
	err := row.Scan(&a.ID, &a.MetricName, &a.Value, &a.ZScore, &a.DeviationPercent,
		&a.Direction, &a.Severity, &a.BaselineMean, &a.BaselineStd, &a.PatternID,
		&detectedAt, &createdAt)
	if err != nil {
		return nil, err
	}
	a.DetectedAt = parseTime(detectedAt)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}
