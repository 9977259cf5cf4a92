package suggestions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FACorreiaa/go-group-trip-planner/internal/types"
)

// Repository persists the audit trail of suggestion-provider calls.
type Repository interface {
	SaveInteraction(ctx context.Context, interaction types.AIInteraction) error
	ListInteractionsByGroup(ctx context.Context, groupID uuid.UUID, limit int) ([]types.AIInteraction, error)
}

var _ Repository = (*PostgresSuggestionsRepo)(nil)

type PostgresSuggestionsRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresSuggestionsRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresSuggestionsRepo {
	return &PostgresSuggestionsRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresSuggestionsRepo) SaveInteraction(ctx context.Context, interaction types.AIInteraction) error {
	_, err := r.pgpool.Exec(ctx,
		`INSERT INTO ai_interactions (user_id, group_id, prompt, response_text, model_used, latency_ms)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		interaction.UserID, interaction.GroupID, interaction.Prompt,
		interaction.ResponseText, interaction.ModelUsed, interaction.LatencyMs)
	if err != nil {
		return fmt.Errorf("save ai interaction: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresSuggestionsRepo) ListInteractionsByGroup(ctx context.Context, groupID uuid.UUID, limit int) ([]types.AIInteraction, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pgpool.Query(ctx,
		`SELECT id, user_id, group_id, prompt, response_text, model_used, latency_ms, created_at
         FROM ai_interactions
         WHERE group_id = $1
         ORDER BY created_at DESC
         LIMIT $2`, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ai interactions: query failed: %w", err)
	}
	defer rows.Close()

	var interactions []types.AIInteraction
	for rows.Next() {
		var it types.AIInteraction
		if err := rows.Scan(&it.ID, &it.UserID, &it.GroupID, &it.Prompt, &it.ResponseText,
			&it.ModelUsed, &it.LatencyMs, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("list ai interactions: scan failed: %w", err)
		}
		interactions = append(interactions, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ai interactions: rows error: %w", err)
	}
	return interactions, nil
}
