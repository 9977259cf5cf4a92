package groups

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-group-trip-planner/internal/types"
)

const (
	maxMessageLength   = 2000
	defaultPageLimit   = 50
	maxPageLimit       = 200
	defaultGroupsLimit = 20
)

// Spam patterns blocked from group chat. Messages carrying raw contact
// details or payment links are rejected before they reach storage.
var moderationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
	regexp.MustCompile(`\+?\d[\d\s\-()]{8,}\d`),
	regexp.MustCompile(`(?i)\b(?:paypal\.me|cash\.app|venmo\.com)/\S+`),
}

// PlanCleanup is notified after a group is deleted so dependent planning
// state can be dropped. Set post-construction to avoid an import cycle.
type PlanCleanup interface {
	ForgetGroup(ctx context.Context, groupID uuid.UUID) error
}

type Service interface {
	CreateGroup(ctx context.Context, req types.CreateGroupRequest, createdBy uuid.UUID) (*types.TravelGroup, error)
	GetGroup(ctx context.Context, groupID uuid.UUID) (*GroupDetail, error)
	ListGroupsByCity(ctx context.Context, city string, limit, offset int) ([]types.TravelGroup, error)
	DeleteGroup(ctx context.Context, groupID, actingUserID uuid.UUID) error
	JoinGroup(ctx context.Context, groupID, userID uuid.UUID) error
	LeaveGroup(ctx context.Context, groupID, userID uuid.UUID) error
	RequireMember(ctx context.Context, groupID, userID uuid.UUID) (string, error)
	PostMessage(ctx context.Context, groupID, userID uuid.UUID, content string) (*types.ChatMessage, error)
	ListMessages(ctx context.Context, groupID, userID uuid.UUID, limit, offset int) (*MessagePage, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger      *slog.Logger
	repo        Repository
	planCleanup PlanCleanup
}

func NewGroupsService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

// SetPlanCleanup registers the planning-state cleanup hook.
func (s *ServiceImpl) SetPlanCleanup(pc PlanCleanup) {
	s.planCleanup = pc
}

func (s *ServiceImpl) CreateGroup(ctx context.Context, req types.CreateGroupRequest, createdBy uuid.UUID) (*types.TravelGroup, error) {
	ctx, span := otel.Tracer("GroupsService").Start(ctx, "CreateGroup")
	defer span.End()
	l := s.logger.With(slog.String("method", "CreateGroup"), slog.String("city", req.City))

	name := strings.TrimSpace(req.Name)
	city := strings.TrimSpace(req.City)
	if name == "" || city == "" {
		span.SetStatus(codes.Error, "invalid request")
		return nil, fmt.Errorf("group name and city are required: %w", ErrForbidden)
	}

	group, err := s.repo.CreateGroup(ctx, name, city, strings.TrimSpace(req.Country), req.Description, createdBy)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create group", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "group creation failed")
		return nil, err
	}

	l.InfoContext(ctx, "Group created", slog.String("group_id", group.ID.String()))
	span.SetStatus(codes.Ok, "group created")
	return group, nil
}

func (s *ServiceImpl) GetGroup(ctx context.Context, groupID uuid.UUID) (*GroupDetail, error) {
	ctx, span := otel.Tracer("GroupsService").Start(ctx, "GetGroup")
	defer span.End()

	group, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		span.SetStatus(codes.Error, "group lookup failed")
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "member listing failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "group fetched")
	return &GroupDetail{TravelGroup: *group, Members: members}, nil
}

func (s *ServiceImpl) ListGroupsByCity(ctx context.Context, city string, limit, offset int) ([]types.TravelGroup, error) {
	ctx, span := otel.Tracer("GroupsService").Start(ctx, "ListGroupsByCity")
	defer span.End()

	if limit <= 0 {
		limit = defaultGroupsLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	groups, err := s.repo.ListGroupsByCity(ctx, strings.TrimSpace(city), limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "group listing failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "groups listed")
	return groups, nil
}

// DeleteGroup removes a group and everything hanging off it. Admin only.
func (s *ServiceImpl) DeleteGroup(ctx context.Context, groupID, actingUserID uuid.UUID) error {
	ctx, span := otel.Tracer("GroupsService").Start(ctx, "DeleteGroup")
	defer span.End()
	l := s.logger.With(slog.String("method", "DeleteGroup"), slog.String("group_id", groupID.String()))

	role, err := s.repo.GetMemberRole(ctx, groupID, actingUserID)
	if err != nil {
		span.SetStatus(codes.Error, "membership check failed")
		return err
	}
	if role != types.GroupRoleAdmin {
		span.SetStatus(codes.Error, "not an admin")
		return ErrForbidden
	}

	if err := s.repo.DeleteGroup(ctx, groupID); err != nil {
		l.ErrorContext(ctx, "Failed to delete group", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "group deletion failed")
		return err
	}

	if s.planCleanup != nil {
		if err := s.planCleanup.ForgetGroup(ctx, groupID); err != nil {
			// The group itself is gone; orphaned planning rows are harmless
			l.WarnContext(ctx, "Failed to clear planning state", slog.Any("error", err))
		}
	}

	l.InfoContext(ctx, "Group deleted")
	span.SetStatus(codes.Ok, "group deleted")
	return nil
}

func (s *ServiceImpl) JoinGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	ctx, span := otel.Tracer("GroupsService").Start(ctx, "JoinGroup")
	defer span.End()
	l := s.logger.With(slog.String("method", "JoinGroup"), slog.String("group_id", groupID.String()))

	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		span.SetStatus(codes.Error, "group lookup failed")
		return err
	}

	if err := s.repo.AddMember(ctx, groupID, userID, types.GroupRoleMember); err != nil {
		span.SetStatus(codes.Error, "join failed")
		return err
	}

	l.InfoContext(ctx, "User joined group", slog.String("user_id", userID.String()))
	span.SetStatus(codes.Ok, "joined")
	return nil
}

// LeaveGroup removes the membership. The last admin cannot leave; they must
// delete the group or promote someone first.
func (s *ServiceImpl) LeaveGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	ctx, span := otel.Tracer("GroupsService").Start(ctx, "LeaveGroup")
	defer span.End()
	l := s.logger.With(slog.String("method", "LeaveGroup"), slog.String("group_id", groupID.String()))

	role, err := s.repo.GetMemberRole(ctx, groupID, userID)
	if err != nil {
		span.SetStatus(codes.Error, "membership check failed")
		return err
	}

	if role == types.GroupRoleAdmin {
		admins, err := s.repo.CountAdmins(ctx, groupID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "admin count failed")
			return err
		}
		if admins <= 1 {
			span.SetStatus(codes.Error, "sole admin cannot leave")
			return fmt.Errorf("sole admin cannot leave the group: %w", ErrForbidden)
		}
	}

	if err := s.repo.RemoveMember(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "leave failed")
		return err
	}

	l.InfoContext(ctx, "User left group", slog.String("user_id", userID.String()))
	span.SetStatus(codes.Ok, "left")
	return nil
}

// RequireMember returns the user's role in the group, or ErrNotMember.
// Other services use it as the gate in front of group-scoped operations.
func (s *ServiceImpl) RequireMember(ctx context.Context, groupID, userID uuid.UUID) (string, error) {
	return s.repo.GetMemberRole(ctx, groupID, userID)
}

func (s *ServiceImpl) PostMessage(ctx context.Context, groupID, userID uuid.UUID, content string) (*types.ChatMessage, error) {
	ctx, span := otel.Tracer("GroupsService").Start(ctx, "PostMessage")
	defer span.End()
	l := s.logger.With(slog.String("method", "PostMessage"), slog.String("group_id", groupID.String()))

	if _, err := s.repo.GetMemberRole(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "membership check failed")
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" || len(content) > maxMessageLength {
		span.SetStatus(codes.Error, "invalid message")
		return nil, ErrMessageBlocked
	}
	for _, pattern := range moderationPatterns {
		if pattern.MatchString(content) {
			l.WarnContext(ctx, "Message blocked by moderation", slog.String("user_id", userID.String()))
			span.SetStatus(codes.Error, "message blocked")
			return nil, ErrMessageBlocked
		}
	}

	msg, err := s.repo.InsertMessage(ctx, groupID, userID, content)
	if err != nil {
		l.ErrorContext(ctx, "Failed to insert message", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "message insert failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "message posted")
	return msg, nil
}

func (s *ServiceImpl) ListMessages(ctx context.Context, groupID, userID uuid.UUID, limit, offset int) (*MessagePage, error) {
	ctx, span := otel.Tracer("GroupsService").Start(ctx, "ListMessages")
	defer span.End()

	if _, err := s.repo.GetMemberRole(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "membership check failed")
		return nil, err
	}

	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	messages, total, err := s.repo.ListMessages(ctx, groupID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "message listing failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "messages listed")
	return &MessagePage{Messages: messages, Limit: limit, Offset: offset, Total: total}, nil
}
