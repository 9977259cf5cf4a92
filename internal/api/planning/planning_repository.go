package planning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-group-trip-planner/internal/planner"
)

// PGXPool is the slice of pgxpool.Pool this repository uses. Narrowed to an
// interface so tests can substitute pgxmock.
type PGXPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists full planner states. The in-memory planner is the
// source of truth while the process runs; every mutation is followed by a
// SaveState so a restart can Restore from here.
type Repository interface {
	LoadState(ctx context.Context, groupID uuid.UUID) (planner.State, error)
	SaveState(ctx context.Context, state planner.State) error
	DeleteState(ctx context.Context, groupID uuid.UUID) error
}

var _ Repository = (*PostgresPlanningRepo)(nil)

type PostgresPlanningRepo struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresPlanningRepo(pgpool PGXPool, logger *slog.Logger) *PostgresPlanningRepo {
	return &PostgresPlanningRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

// LoadState reassembles a group's planner state. A group with no rows yet
// yields an empty state with default settings.
func (r *PostgresPlanningRepo) LoadState(ctx context.Context, groupID uuid.UUID) (planner.State, error) {
	state := planner.State{
		GroupID: groupID,
		Cart: planner.CartSnapshot{
			Settings: planner.CartSettings{TripDays: 1, PartySize: 1},
		},
	}

	rows, err := r.pgpool.Query(ctx,
		`SELECT rec_id, kind, subject_key, payload, votes, added_by, created_at
         FROM group_recommendations
         WHERE group_id = $1
         ORDER BY rec_id ASC`, groupID)
	if err != nil {
		return state, fmt.Errorf("load state: recommendations query failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec planner.Recommendation
		var payloadJSON []byte
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.SubjectKey, &payloadJSON, &rec.Votes, &rec.AddedBy, &rec.CreatedAt); err != nil {
			return state, fmt.Errorf("load state: recommendation scan failed: %w", err)
		}
		if err := json.Unmarshal(payloadJSON, &rec.Payload); err != nil {
			return state, fmt.Errorf("load state: recommendation payload unmarshal failed: %w", err)
		}
		state.Recommendations = append(state.Recommendations, rec)
	}
	if err := rows.Err(); err != nil {
		return state, fmt.Errorf("load state: recommendations rows error: %w", err)
	}
	rows.Close()

	itemRows, err := r.pgpool.Query(ctx,
		`SELECT kind, subject_key, payload, contributed_by, quantity, added_at
         FROM group_cart_items
         WHERE group_id = $1
         ORDER BY added_at ASC`, groupID)
	if err != nil {
		return state, fmt.Errorf("load state: cart items query failed: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item planner.CartItem
		var payloadJSON []byte
		if err := itemRows.Scan(&item.Kind, &item.SubjectKey, &payloadJSON, &item.ContributedBy, &item.Quantity, &item.AddedAt); err != nil {
			return state, fmt.Errorf("load state: cart item scan failed: %w", err)
		}
		if err := json.Unmarshal(payloadJSON, &item.Payload); err != nil {
			return state, fmt.Errorf("load state: cart payload unmarshal failed: %w", err)
		}
		state.Cart.Items = append(state.Cart.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return state, fmt.Errorf("load state: cart rows error: %w", err)
	}

	var tripDays, partySize int
	err = r.pgpool.QueryRow(ctx,
		`SELECT trip_days, party_size FROM group_cart_settings WHERE group_id = $1`,
		groupID).Scan(&tripDays, &partySize)
	if err == nil {
		state.Cart.Settings = planner.CartSettings{TripDays: tripDays, PartySize: partySize}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return state, fmt.Errorf("load state: settings query failed: %w", err)
	}

	itRows, err := r.pgpool.Query(ctx,
		`SELECT document FROM group_itineraries
         WHERE group_id = $1
         ORDER BY generated_at DESC`, groupID)
	if err != nil {
		return state, fmt.Errorf("load state: itineraries query failed: %w", err)
	}
	defer itRows.Close()
	for itRows.Next() {
		var doc []byte
		if err := itRows.Scan(&doc); err != nil {
			return state, fmt.Errorf("load state: itinerary scan failed: %w", err)
		}
		var it planner.Itinerary
		if err := json.Unmarshal(doc, &it); err != nil {
			return state, fmt.Errorf("load state: itinerary unmarshal failed: %w", err)
		}
		state.Itineraries = append(state.Itineraries, it)
	}
	if err := itRows.Err(); err != nil {
		return state, fmt.Errorf("load state: itineraries rows error: %w", err)
	}

	return state, nil
}

// SaveState replaces the group's recommendations and cart wholesale and
// appends any itineraries not yet stored. One transaction, so a crash never
// leaves half a state behind.
func (r *PostgresPlanningRepo) SaveState(ctx context.Context, state planner.State) error {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save state: begin tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM group_recommendations WHERE group_id = $1`, state.GroupID); err != nil {
		return fmt.Errorf("save state: clear recommendations failed: %w", err)
	}
	for _, rec := range state.Recommendations {
		payloadJSON, err := json.Marshal(rec.Payload)
		if err != nil {
			return fmt.Errorf("save state: recommendation payload marshal failed: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO group_recommendations (group_id, rec_id, kind, subject_key, payload, votes, added_by, created_at)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			state.GroupID, rec.ID, rec.Kind, rec.SubjectKey, payloadJSON, rec.Votes, rec.AddedBy, rec.CreatedAt); err != nil {
			return fmt.Errorf("save state: recommendation insert failed: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM group_cart_items WHERE group_id = $1`, state.GroupID); err != nil {
		return fmt.Errorf("save state: clear cart failed: %w", err)
	}
	for _, item := range state.Cart.Items {
		payloadJSON, err := json.Marshal(item.Payload)
		if err != nil {
			return fmt.Errorf("save state: cart payload marshal failed: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO group_cart_items (group_id, kind, subject_key, payload, contributed_by, quantity, added_at)
             VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			state.GroupID, item.Kind, item.SubjectKey, payloadJSON, item.ContributedBy, item.Quantity, item.AddedAt); err != nil {
			return fmt.Errorf("save state: cart item insert failed: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO group_cart_settings (group_id, trip_days, party_size, updated_at)
         VALUES ($1, $2, $3, NOW())
         ON CONFLICT (group_id) DO UPDATE
         SET trip_days = EXCLUDED.trip_days, party_size = EXCLUDED.party_size, updated_at = NOW()`,
		state.GroupID, state.Cart.Settings.TripDays, state.Cart.Settings.PartySize); err != nil {
		return fmt.Errorf("save state: settings upsert failed: %w", err)
	}

	for _, it := range state.Itineraries {
		doc, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("save state: itinerary marshal failed: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO group_itineraries (id, group_id, document, generated_at)
             VALUES ($1, $2, $3, $4)
             ON CONFLICT (id) DO NOTHING`,
			it.ID, state.GroupID, doc, it.GeneratedAt); err != nil {
			return fmt.Errorf("save state: itinerary insert failed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("save state: commit failed: %w", err)
	}
	return nil
}

// DeleteState drops everything planning-related for a group.
func (r *PostgresPlanningRepo) DeleteState(ctx context.Context, groupID uuid.UUID) error {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete state: begin tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{
		"group_recommendations", "group_cart_items", "group_cart_settings", "group_itineraries",
	} {
		if _, err := tx.Exec(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE group_id = $1`, table), groupID); err != nil {
			return fmt.Errorf("delete state: clearing %s failed: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("delete state: commit failed: %w", err)
	}
	return nil
}
