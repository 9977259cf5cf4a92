package groups

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FACorreiaa/go-group-trip-planner/internal/types"
)

type Repository interface {
	CreateGroup(ctx context.Context, name, city, country, description string, createdBy uuid.UUID) (*types.TravelGroup, error)
	GetGroup(ctx context.Context, groupID uuid.UUID) (*types.TravelGroup, error)
	ListGroupsByCity(ctx context.Context, city string, limit, offset int) ([]types.TravelGroup, error)
	DeleteGroup(ctx context.Context, groupID uuid.UUID) error
	AddMember(ctx context.Context, groupID, userID uuid.UUID, role string) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	GetMemberRole(ctx context.Context, groupID, userID uuid.UUID) (string, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]types.GroupMember, error)
	CountAdmins(ctx context.Context, groupID uuid.UUID) (int, error)
	InsertMessage(ctx context.Context, groupID, userID uuid.UUID, content string) (*types.ChatMessage, error)
	ListMessages(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]types.ChatMessage, int, error)
}

var _ Repository = (*PostgresGroupsRepo)(nil)

type PostgresGroupsRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresGroupsRepo(pgpool *pgxpool.Pool, logger *slog.Logger) *PostgresGroupsRepo {
	return &PostgresGroupsRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresGroupsRepo) CreateGroup(ctx context.Context, name, city, country, description string, createdBy uuid.UUID) (*types.TravelGroup, error) {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("create group: begin tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var g types.TravelGroup
	err = tx.QueryRow(ctx,
		`INSERT INTO travel_groups (name, city, country, description, created_by)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, name, city, country, description, created_by, created_at, updated_at`,
		name, city, country, description, createdBy).
		Scan(&g.ID, &g.Name, &g.City, &g.Country, &g.Description, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create group: insert failed: %w", err)
	}

	// The creator is the first admin
	_, err = tx.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3)`,
		g.ID, createdBy, types.GroupRoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("create group: insert admin member failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("create group: commit failed: %w", err)
	}

	g.MemberCount = 1
	return &g, nil
}

func (r *PostgresGroupsRepo) GetGroup(ctx context.Context, groupID uuid.UUID) (*types.TravelGroup, error) {
	var g types.TravelGroup
	err := r.pgpool.QueryRow(ctx,
		`SELECT g.id, g.name, g.city, g.country, g.description, g.created_by, g.created_at, g.updated_at,
                (SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id)
         FROM travel_groups g WHERE g.id = $1`, groupID).
		Scan(&g.ID, &g.Name, &g.City, &g.Country, &g.Description, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt, &g.MemberCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get group: query failed: %w", err)
	}
	return &g, nil
}

func (r *PostgresGroupsRepo) ListGroupsByCity(ctx context.Context, city string, limit, offset int) ([]types.TravelGroup, error) {
	rows, err := r.pgpool.Query(ctx,
		`SELECT g.id, g.name, g.city, g.country, g.description, g.created_by, g.created_at, g.updated_at,
                (SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id)
         FROM travel_groups g
         WHERE LOWER(g.city) = LOWER($1)
         ORDER BY g.created_at DESC
         LIMIT $2 OFFSET $3`, city, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list groups: query failed: %w", err)
	}
	defer rows.Close()

	var groups []types.TravelGroup
	for rows.Next() {
		var g types.TravelGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.City, &g.Country, &g.Description, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt, &g.MemberCount); err != nil {
			return nil, fmt.Errorf("list groups: scan failed: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list groups: rows error: %w", err)
	}
	return groups, nil
}

func (r *PostgresGroupsRepo) DeleteGroup(ctx context.Context, groupID uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, `DELETE FROM travel_groups WHERE id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("delete group: exec failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresGroupsRepo) AddMember(ctx context.Context, groupID, userID uuid.UUID, role string) error {
	tag, err := r.pgpool.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id, role)
         VALUES ($1, $2, $3)
         ON CONFLICT (group_id, user_id) DO NOTHING`,
		groupID, userID, role)
	if err != nil {
		return fmt.Errorf("add member: insert failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *PostgresGroupsRepo) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`,
		groupID, userID)
	if err != nil {
		return fmt.Errorf("remove member: exec failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotMember
	}
	return nil
}

func (r *PostgresGroupsRepo) GetMemberRole(ctx context.Context, groupID, userID uuid.UUID) (string, error) {
	var role string
	err := r.pgpool.QueryRow(ctx,
		`SELECT role FROM group_members WHERE group_id = $1 AND user_id = $2`,
		groupID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf("get member role: query failed: %w", err)
	}
	return role, nil
}

func (r *PostgresGroupsRepo) ListMembers(ctx context.Context, groupID uuid.UUID) ([]types.GroupMember, error) {
	rows, err := r.pgpool.Query(ctx,
		`SELECT m.group_id, m.user_id, u.username, m.role, m.joined_at
         FROM group_members m
         JOIN users u ON u.id = m.user_id
         WHERE m.group_id = $1
         ORDER BY m.joined_at ASC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: query failed: %w", err)
	}
	defer rows.Close()

	var members []types.GroupMember
	for rows.Next() {
		var m types.GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Username, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("list members: scan failed: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: rows error: %w", err)
	}
	return members, nil
}

func (r *PostgresGroupsRepo) CountAdmins(ctx context.Context, groupID uuid.UUID) (int, error) {
	var count int
	err := r.pgpool.QueryRow(ctx,
		`SELECT COUNT(*) FROM group_members WHERE group_id = $1 AND role = $2`,
		groupID, types.GroupRoleAdmin).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count admins: query failed: %w", err)
	}
	return count, nil
}

func (r *PostgresGroupsRepo) InsertMessage(ctx context.Context, groupID, userID uuid.UUID, content string) (*types.ChatMessage, error) {
	var msg types.ChatMessage
	err := r.pgpool.QueryRow(ctx,
		`INSERT INTO chat_messages (group_id, user_id, content)
         VALUES ($1, $2, $3)
         RETURNING id, group_id, user_id, content, created_at`,
		groupID, userID, content).
		Scan(&msg.ID, &msg.GroupID, &msg.UserID, &msg.Content, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: query failed: %w", err)
	}
	return &msg, nil
}

func (r *PostgresGroupsRepo) ListMessages(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]types.ChatMessage, int, error) {
	var total int
	err := r.pgpool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE group_id = $1`, groupID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: count failed: %w", err)
	}

	rows, err := r.pgpool.Query(ctx,
		`SELECT c.id, c.group_id, c.user_id, u.username, c.content, c.created_at
         FROM chat_messages c
         JOIN users u ON u.id = c.user_id
         WHERE c.group_id = $1
         ORDER BY c.created_at DESC
         LIMIT $2 OFFSET $3`, groupID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: query failed: %w", err)
	}
	defer rows.Close()

	var messages []types.ChatMessage
	for rows.Next() {
		var m types.ChatMessage
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Username, &m.Content, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("list messages: scan failed: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list messages: rows error: %w", err)
	}
	return messages, total, nil
}
