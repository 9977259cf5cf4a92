package types

import (
	"time"

	"github.com/google/uuid"
)

// Membership roles within a travel group. The planner command surface checks
// these before privileged operations; the core itself enforces nothing.
const (
	GroupRoleAdmin  = "admin"
	GroupRoleMember = "member"
)

// TravelGroup is a city-scoped planning group.
type TravelGroup struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	City        string    `json:"city"`
	Country     string    `json:"country,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedBy   uuid.UUID `json:"created_by"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupMember links a user to a group with a role.
type GroupMember struct {
	GroupID  uuid.UUID `json:"group_id"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username,omitempty"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// ChatMessage is a persisted group chat message. Delivery is plain
// request/response; there is no push transport.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	GroupID   uuid.UUID `json:"group_id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateGroupRequest is the body for creating a travel group.
type CreateGroupRequest struct {
	Name        string `json:"name"`
	City        string `json:"city"`
	Country     string `json:"country,omitempty"`
	Description string `json:"description,omitempty"`
}

// PostMessageRequest is the body for posting a chat message.
type PostMessageRequest struct {
	Content string `json:"content"`
}
