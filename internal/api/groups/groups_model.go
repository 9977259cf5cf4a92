package groups

import (
	"errors"

	"github.com/FACorreiaa/go-group-trip-planner/internal/types"
)

var ErrNotFound = errors.New("group not found")
var ErrConflict = errors.New("already a member or conflict")
var ErrForbidden = errors.New("action forbidden")
var ErrNotMember = errors.New("user is not a member of this group")
var ErrMessageBlocked = errors.New("message rejected by moderation")

// GroupDetail is a group together with its member list.
type GroupDetail struct {
	types.TravelGroup
	Members []types.GroupMember `json:"members"`
}

// MessagePage is one page of chat history, newest first.
type MessagePage struct {
	Messages []types.ChatMessage `json:"messages"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
	Total    int                 `json:"total"`
}
