package postgres

import (
	"context"
	"time"

	"github.com/llmwatch/llmwatch/internal/domain/interaction"
	"github.com/llmwatch/llmwatch/internal/pkg/errors"
)

type InteractionRepository struct {
	store *Store
}

func NewInteractionRepository(store *Store) interaction.Repository {
	return &InteractionRepository{store: store}
}

func (r *InteractionRepository) Create(ctx context.Context, in *interaction.Interaction) error {
	in.CreatedAt = time.Now()

	query := r.store.rebind(`INSERT INTO interactions (id, provider, model, prompt_length, response_length, prompt_tokens, response_tokens, cost_usd, latency_ms, is_refusal, is_truncated, anomaly_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.store.DB.ExecContext(ctx, query,
		in.ID, in.Provider, in.Model, in.PromptLength, in.ResponseLength,
		in.PromptTokens, in.ResponseTokens, in.CostUSD, in.LatencyMs,
		boolToInt(in.IsRefusal), boolToInt(in.IsTruncated), in.AnomalyCount,
		formatTime(in.CreatedAt))
	if err != nil {
		return errors.DatabaseError("Failed to create interaction", err)
	}
	return nil
}

func (r *InteractionRepository) List(ctx context.Context, limit, offset int) ([]*interaction.Interaction, int64, error) {
	var total int64
	if err := r.store.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions`).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count interactions", err)
	}

	query := r.store.rebind(`SELECT id, provider, model, prompt_length, response_length, prompt_tokens, response_tokens, cost_usd, latency_ms, is_refusal, is_truncated, anomaly_count, created_at FROM interactions ORDER BY created_at DESC LIMIT ? OFFSET ?`)

	rows, err := r.store.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list interactions", err)
	}
	defer rows.Close()

	interactions := make([]*interaction.Interaction, 0, limit)
	for rows.Next() {
		var in interaction.Interaction
		var isRefusal, isTruncated int
		var createdAt string
		err := rows.Scan(&in.ID, &in.Provider, &in.Model, &in.PromptLength, &in.ResponseLength,
			&in.PromptTokens, &in.ResponseTokens, &in.CostUSD, &in.LatencyMs,
			&isRefusal, &isTruncated, &in.AnomalyCount, &createdAt)
		if err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan interaction", err)
		}
		in.IsRefusal = isRefusal == 1
		in.IsTruncated = isTruncated == 1
		in.CreatedAt = parseTime(createdAt)
		interactions = append(interactions, &in)
	}
	return interactions, total, rows.Err()
}

func (r *InteractionRepository) Stats(ctx context.Context) (*interaction.Stats, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(cost_usd), 0), COALESCE(AVG(latency_ms), 0), COALESCE(AVG(is_refusal), 0) FROM interactions`

	var s interaction.Stats
	if err := r.store.DB.QueryRowContext(ctx, query).Scan(&s.TotalRequests, &s.TotalCost, &s.AvgLatencyMs, &s.RefusalRate); err != nil {
		return nil, errors.DatabaseError("Failed to aggregate interactions", err)
	}
	return &s, nil
}

func (r *InteractionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := r.store.rebind(`DELETE FROM interactions WHERE created_at < ?`)
	result, err := r.store.DB.ExecContext(ctx, query, formatTime(cutoff))
	if err != nil {
		return 0, errors.DatabaseError("Failed to prune interactions", err)
	}
	return result.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
