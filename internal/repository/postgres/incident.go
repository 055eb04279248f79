package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/llmwatch/llmwatch/internal/domain/incident"
	"github.com/llmwatch/llmwatch/internal/pkg/errors"
)

type IncidentRepository struct {
	store *Store
}

func NewIncidentRepository(store *Store) incident.Repository {
	return &IncidentRepository{store: store}
}

const incidentColumns = `id, title, description, pattern_id, severity, status, metric_names, anomaly_count, root_cause, created_at, updated_at, resolved_at`

func (r *IncidentRepository) Create(ctx context.Context, inc *incident.Incident) error {
	now := time.Now()
	inc.CreatedAt = now
	inc.UpdatedAt = now

	metricNames, err := json.Marshal(inc.MetricNames)
	if err != nil {
		return errors.Internal("Failed to encode metric names", err)
	}

	query := r.store.rebind(`INSERT INTO incidents (id, title, description, pattern_id, severity, status, metric_names, anomaly_count, root_cause, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.store.DB.ExecContext(ctx, query,
		inc.ID, inc.Title, inc.Description, inc.PatternID, inc.Severity, inc.Status,
		string(metricNames), inc.AnomalyCount, inc.RootCause,
		formatTime(inc.CreatedAt), formatTime(inc.UpdatedAt))
	if err != nil {
		return errors.DatabaseError("Failed to create incident", err)
	}
	return nil
}

func (r *IncidentRepository) GetByID(ctx context.Context, id string) (*incident.Incident, error) {
	query := r.store.rebind(fmt.Sprintf(`SELECT %s FROM incidents WHERE id = ?`, incidentColumns))

	inc, err := scanIncident(r.store.DB.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Incident")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get incident", err)
	}
	return inc, nil
}

func (r *IncidentRepository) Update(ctx context.Context, inc *incident.Incident) error {
	inc.UpdatedAt = time.Now()

	metricNames, err := json.Marshal(inc.MetricNames)
	if err != nil {
		return errors.Internal("Failed to encode metric names", err)
	}

	var resolvedAt interface{}
	if inc.ResolvedAt != nil {
		resolvedAt = formatTime(*inc.ResolvedAt)
	}

	query := r.store.rebind(`UPDATE incidents SET title = ?, description = ?, severity = ?, status = ?, metric_names = ?, anomaly_count = ?, root_cause = ?, updated_at = ?, resolved_at = ? WHERE id = ?`)

	result, err := r.store.DB.ExecContext(ctx, query,
		inc.Title, inc.Description, inc.Severity, inc.Status, string(metricNames),
		inc.AnomalyCount, inc.RootCause, formatTime(inc.UpdatedAt), resolvedAt, inc.ID)
	if err != nil {
		return errors.DatabaseError("Failed to update incident", err)
	}

	rows, err := result.RowsAffected()
	if err != nil || rows == 0 {
		return errors.NotFound("Incident")
	}
	return nil
}

func (r *IncidentRepository) List(ctx context.Context, filter incident.Filter, limit, offset int) ([]*incident.Incident, int64, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.PatternID != "" {
		where = append(where, "pattern_id = ?")
		args = append(args, filter.PatternID)
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := r.store.rebind(fmt.Sprintf("SELECT COUNT(*) FROM incidents WHERE %s", whereClause))
	if err := r.store.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count incidents", err)
	}

	query := r.store.rebind(fmt.Sprintf(`SELECT %s FROM incidents WHERE %s ORDER BY created_at DESC LIMIT ? OFFSET ?`, incidentColumns, whereClause))
	args = append(args, limit, offset)

	rows, err := r.store.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list incidents", err)
	}
	defer rows.Close()

	incidents := make([]*incident.Incident, 0, limit)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan incident", err)
		}
		incidents = append(incidents, inc)
	}
	return incidents, total, rows.Err()
}

func (r *IncidentRepository) FindOpenByPattern(ctx context.Context, patternID string, since time.Time) (*incident.Incident, error) {
	query := r.store.rebind(fmt.Sprintf(`SELECT %s FROM incidents WHERE pattern_id = ? AND status != ? AND created_at >= ? ORDER BY created_at DESC LIMIT 1`, incidentColumns))

	inc, err := scanIncident(r.store.DB.QueryRowContext(ctx, query, patternID, incident.StatusResolved, formatTime(since)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to find open incident", err)
	}
	return inc, nil
}

func (r *IncidentRepository) CountOpen(ctx context.Context) (int64, error) {
	query := r.store.rebind(`SELECT COUNT(*) FROM incidents WHERE status != ?`)

	var count int64
	if err := r.store.DB.QueryRowContext(ctx, query, incident.StatusResolved).Scan(&count); err != nil {
		return 0, errors.DatabaseError("Failed to count open incidents", err)
	}
	return count, nil
}

func scanIncident(row rowScanner) (*incident.Incident, error) {
	var inc incident.Incident
	var metricNames, createdAt, updatedAt string
	var rootCause sql.NullString
	var resolvedAt sql.NullString

	err := row.Scan(&inc.ID, &inc.Title, &inc.Description, &inc.PatternID, &inc.Severity,
		&inc.Status, &metricNames, &inc.AnomalyCount, &rootCause, &createdAt, &updatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	_ = json.Unmarshal([]byte(metricNames), &inc.MetricNames)
	inc.RootCause = rootCause.String
	inc.CreatedAt = parseTime(createdAt)
	inc.UpdatedAt = parseTime(updatedAt)
	if resolvedAt.Valid {
		t := parseTime(resolvedAt.String)
		inc.ResolvedAt = &t
	}
	return &inc, nil
}
